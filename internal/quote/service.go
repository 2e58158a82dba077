package quote

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/Simplici0/cotizaciones/internal/access"
)

// Repository is the persistence contract the service depends on.
// Missing quotes are reported with an error wrapping ErrNotFound.
type Repository interface {
	Create(ctx context.Context, q *Quote) (*Quote, error)
	Update(ctx context.Context, id int64, patch Patch) (*Quote, error)
	Get(ctx context.Context, id int64) (*Quote, error)
	GetByBusinessID(ctx context.Context, cotizacionID string) (*Quote, error)
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]*Quote, error)
}

// Service applies actor-checked operations to stored quotes. A failed
// operation never reaches the repository.
type Service struct {
	repo       Repository
	now        func() time.Time
	defaultTRM float64
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for audit stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultTRM sets the exchange rate used when a new quote gives none.
func WithDefaultTRM(trm float64) Option {
	return func(s *Service) { s.defaultTRM = trm }
}

// NewService returns a service over repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new draft quote.
func (s *Service) Create(ctx context.Context, seller access.Actor, clienteName string, trm float64) (*Quote, error) {
	if err := seller.Require(access.PermQuoteEdit); err != nil {
		return nil, err
	}
	if trm <= 0 {
		trm = s.defaultTRM
	}
	q := NewQuote(clienteName, trm, s.now())
	created, err := s.repo.Create(ctx, q)
	if err != nil {
		return nil, &PersistenceError{Op: "create", ID: q.CotizacionID, Err: err}
	}
	return created, nil
}

// Get loads a quote by store id.
func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*Quote, error) {
	if err := actor.Require(access.PermQuoteView); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// GetByBusinessID loads a quote by its cotizacion_id.
func (s *Service) GetByBusinessID(ctx context.Context, actor access.Actor, cotizacionID string) (*Quote, error) {
	if err := actor.Require(access.PermQuoteView); err != nil {
		return nil, err
	}
	q, err := s.repo.GetByBusinessID(ctx, cotizacionID)
	if err != nil {
		return nil, wrapRepoErr("get", cotizacionID, err)
	}
	return q, nil
}

// List returns every stored quote.
func (s *Service) List(ctx context.Context, actor access.Actor) ([]*Quote, error) {
	if err := actor.Require(access.PermQuoteView); err != nil {
		return nil, err
	}
	quotes, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return quotes, nil
}

// Delete removes a quote.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	if err := actor.Require(access.PermQuoteDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapRepoErr("delete", idString(id), err)
	}
	return nil
}

// Edit runs fn against an editable copy of the quote and persists the result.
func (s *Service) Edit(ctx context.Context, seller access.Actor, id int64, fn func(q *Quote) error) (*Quote, error) {
	if err := seller.Require(access.PermQuoteEdit); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(q *Quote) error {
		if err := q.ensureEditable(); err != nil {
			return err
		}
		return fn(q)
	})
}

// Submit moves a draft or revised quote to pending_approval.
func (s *Service) Submit(ctx context.Context, seller access.Actor, id int64) (*Quote, error) {
	return s.mutate(ctx, id, func(q *Quote) error {
		return q.Submit(seller, s.now())
	})
}

// OpenForReview loads the quote named by p for a reviewer. Only quotes awaiting
// approval can be opened.
func (s *Service) OpenForReview(ctx context.Context, reviewer access.Actor, p PendingApproval) (*Quote, error) {
	if err := reviewer.Require(access.PermQuoteReview); err != nil {
		return nil, err
	}
	q, err := s.load(ctx, p.QuoteID)
	if err != nil {
		return nil, err
	}
	if q.Status != StatusPendingApproval {
		return nil, ErrInvalidTransition
	}
	return q, nil
}

// Approve collapses the quote to the selected options.
func (s *Service) Approve(ctx context.Context, reviewer access.Actor, id int64, selected, comments map[string]string) (*Quote, error) {
	return s.mutate(ctx, id, func(q *Quote) error {
		return q.Approve(reviewer, selected, comments, s.now())
	})
}

// RequestRevision returns the quote to the seller with comments.
func (s *Service) RequestRevision(ctx context.Context, reviewer access.Actor, id int64, comments map[string]string) (*Quote, error) {
	return s.mutate(ctx, id, func(q *Quote) error {
		return q.RequestRevision(reviewer, comments, s.now())
	})
}

// Deny closes the quote without approval.
func (s *Service) Deny(ctx context.Context, reviewer access.Actor, id int64, comments map[string]string) (*Quote, error) {
	return s.mutate(ctx, id, func(q *Quote) error {
		return q.Deny(reviewer, comments, s.now())
	})
}

// RecordFinalPrice stores a buyer's final price. Only purchaseData and
// updatedAt are written back.
func (s *Service) RecordFinalPrice(ctx context.Context, buyer access.Actor, id int64, rowIndex int, finalPrice float64) (PurchaseEntry, *Quote, error) {
	if err := buyer.Require(access.PermQuotePurchase); err != nil {
		return PurchaseEntry{}, nil, err
	}
	q, err := s.load(ctx, id)
	if err != nil {
		return PurchaseEntry{}, nil, err
	}
	working := q.Clone()
	entry, err := working.RecordFinalPrice(rowIndex, finalPrice, buyer, s.now())
	if err != nil {
		return PurchaseEntry{}, nil, err
	}
	working.UpdatedAt = s.now()

	patch, err := PatchFields(working, "purchaseData", "updatedAt")
	if err != nil {
		return PurchaseEntry{}, nil, err
	}
	saved, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return PurchaseEntry{}, nil, wrapRepoErr("update", idString(id), err)
	}
	return entry, saved, nil
}

func (s *Service) load(ctx context.Context, id int64) (*Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapRepoErr("get", idString(id), err)
	}
	return q, nil
}

func (s *Service) mutate(ctx context.Context, id int64, fn func(q *Quote) error) (*Quote, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = s.now()

	patch, err := ReplacePatch(current, working)
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, wrapRepoErr("update", idString(id), err)
	}
	return saved, nil
}

func wrapRepoErr(op, id string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &PersistenceError{Op: op, ID: id, Err: err}
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
