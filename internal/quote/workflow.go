package quote

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Simplici0/cotizaciones/internal/access"
)

// Transitions:
//
//	draft              -> pending_approval   (Submit)
//	revision_requested -> pending_approval   (Submit, resubmission)
//	pending_approval   -> approved           (Approve, collapses rows)
//	pending_approval   -> revision_requested (RequestRevision)
//	pending_approval   -> denied             (Deny)
//
// Every guard runs before the quote is touched, so a failed call leaves it unchanged.

// PendingApproval names the quote a reviewer was sent to. It is passed
// explicitly to the review entry point instead of living in shared state.
type PendingApproval struct {
	QuoteID int64
}

// Submit sends the quote to review and stamps the submitting seller.
func (q *Quote) Submit(seller access.Actor, now time.Time) error {
	if err := seller.Require(access.PermQuoteSubmit); err != nil {
		return err
	}
	if q.Status != StatusDraft && q.Status != StatusRevisionRequested {
		return fmt.Errorf("%w: cannot submit a %s quote", ErrInvalidTransition, q.Status)
	}
	if strings.TrimSpace(q.ClienteName) == "" {
		return invalid(ErrValidation, "clienteName", "client name is required")
	}
	if len(q.Rows) == 0 {
		return invalid(ErrValidation, "rows", "at least one row is required")
	}

	q.Recalculate()
	q.Status = StatusPendingApproval
	q.VendorName = seller.Name()
	q.VendorEmail = seller.Email
	sent := now
	q.SentForApprovalAt = &sent
	return nil
}

// MissingSelections returns the item keys of the quote that selected does not
// resolve to one of their options, in item order.
func (q *Quote) MissingSelections(selected map[string]string) []string {
	var missing []string
	for _, g := range q.Groups() {
		chosen := selected[g.Item.ID]
		found := false
		for _, opt := range g.Options {
			if chosen != "" && opt.ID == chosen {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, g.Item.ID)
		}
	}
	return missing
}

// Approve keeps one option per item as chosen in selected, recomputes the
// total over the surviving rows and stamps the reviewer.
func (q *Quote) Approve(reviewer access.Actor, selected, comments map[string]string, now time.Time) error {
	if err := reviewer.Require(access.PermQuoteReview); err != nil {
		return err
	}
	if q.Status != StatusPendingApproval {
		return fmt.Errorf("%w: cannot approve a %s quote", ErrInvalidTransition, q.Status)
	}
	if missing := q.MissingSelections(selected); len(missing) > 0 {
		return invalid(ErrIncompleteSelection, "selectedOptions", "missing "+strings.Join(missing, ", "))
	}

	res := ResolveApproval(q.Rows, selected)
	q.Rows = res.Rows
	q.TotalGeneral = res.Total
	q.Status = StatusApproved
	q.SelectedOptions = cloneMap(selected)
	q.ItemComments = nonBlank(comments)
	at := now
	q.ApprovalDate = &at
	q.ApprovalDateFormatted = now.Format(DateLayout)
	q.ApprovedBy = reviewer.Name()
	return nil
}

// RequestRevision sends the quote back to the seller with per-item comments.
// Rows and total are left as they are.
func (q *Quote) RequestRevision(reviewer access.Actor, comments map[string]string, now time.Time) error {
	if err := reviewer.Require(access.PermQuoteReview); err != nil {
		return err
	}
	if q.Status != StatusPendingApproval {
		return fmt.Errorf("%w: cannot request revision of a %s quote", ErrInvalidTransition, q.Status)
	}
	cleaned := nonBlank(comments)
	if len(cleaned) == 0 {
		return invalid(ErrMissingComments, "itemComments", "at least one comment is required")
	}

	q.Status = StatusRevisionRequested
	q.ItemComments = cleaned
	at := now
	q.RevisionDate = &at
	q.RevisionDateFormatted = now.Format(DateLayout)
	q.RevisedBy = reviewer.Name()
	return nil
}

// Deny closes the quote without approval. Comments are optional.
func (q *Quote) Deny(reviewer access.Actor, comments map[string]string, now time.Time) error {
	if err := reviewer.Require(access.PermQuoteReview); err != nil {
		return err
	}
	if q.Status != StatusPendingApproval {
		return fmt.Errorf("%w: cannot deny a %s quote", ErrInvalidTransition, q.Status)
	}

	q.Status = StatusDenied
	if cleaned := nonBlank(comments); len(cleaned) > 0 {
		q.ItemComments = cleaned
	}
	at := now
	q.DeniedDate = &at
	q.DeniedDateFormatted = now.Format(DateLayout)
	q.DeniedBy = reviewer.Name()
	return nil
}

func nonBlank(comments map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range comments {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// CommentKeys returns the commented item keys sorted for stable output.
func (q *Quote) CommentKeys() []string {
	keys := make([]string, 0, len(q.ItemComments))
	for k := range q.ItemComments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
