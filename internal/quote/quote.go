// Package quote holds the quote aggregate: its rows, totals, approval lifecycle
// and purchase records, plus the service that persists it.
package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/cotizaciones/internal/pricing"
)

// Status is the approval lifecycle state of a quote.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusPendingApproval   Status = "pending_approval"
	StatusApproved          Status = "approved"
	StatusRevisionRequested Status = "revision_requested"
	StatusDenied            Status = "denied"
)

// DateLayout is used for the formatted audit dates.
const DateLayout = "02/01/2006 15:04"

// Quote is the aggregate root.
type Quote struct {
	ID           int64     `json:"id,omitempty"`
	CotizacionID string    `json:"cotizacion_id,omitempty"`
	ClienteName  string    `json:"clienteName"`
	Date         string    `json:"date,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Rows         []pricing.Row `json:"rows"`
	TRMGlobal    float64       `json:"trmGlobal"`
	TotalGeneral float64       `json:"totalGeneral"`
	Status       Status        `json:"status"`

	VendorName        string     `json:"vendorName,omitempty"`
	VendorEmail       string     `json:"vendorEmail,omitempty"`
	SentForApprovalAt *time.Time `json:"sentForApprovalAt,omitempty"`

	SelectedOptions       map[string]string `json:"selectedOptions,omitempty"`
	ItemComments          map[string]string `json:"itemComments,omitempty"`
	ApprovalDate          *time.Time        `json:"approvalDate,omitempty"`
	ApprovalDateFormatted string            `json:"approvalDateFormatted,omitempty"`
	ApprovedBy            string            `json:"approvedBy,omitempty"`
	RevisionDate          *time.Time        `json:"revisionDate,omitempty"`
	RevisionDateFormatted string            `json:"revisionDateFormatted,omitempty"`
	RevisedBy             string            `json:"revisedBy,omitempty"`
	DeniedDate            *time.Time        `json:"deniedDate,omitempty"`
	DeniedDateFormatted   string            `json:"deniedDateFormatted,omitempty"`
	DeniedBy              string            `json:"deniedBy,omitempty"`

	PurchaseData map[int]PurchaseEntry `json:"purchaseData,omitempty"`
}

// NewCotizacionID returns a human-readable business key such as COT-20261017-4F9A1C.
func NewCotizacionID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "COT-" + now.Format("20060102") + "-" + suffix
}

// NewQuote returns a draft quote holding one empty row.
func NewQuote(clienteName string, trm float64, now time.Time) *Quote {
	q := &Quote{
		CotizacionID: NewCotizacionID(now),
		ClienteName:  strings.TrimSpace(clienteName),
		Date:         now.Format("2006-01-02"),
		CreatedAt:    now,
		UpdatedAt:    now,
		TRMGlobal:    trm,
		Status:       StatusDraft,
		Rows:         []pricing.Row{pricing.NewRow(newItemID(), "", "", trm)},
	}
	q.Recalculate()
	return q
}

func newItemID() string {
	return "item-" + uuid.NewString()
}

// Editable reports whether the seller may change rows and header fields.
func (q *Quote) Editable() bool {
	return q.Status == StatusDraft || q.Status == StatusRevisionRequested
}

func (q *Quote) ensureEditable() error {
	if !q.Editable() {
		return fmt.Errorf("%w (%s)", ErrReadOnly, q.Status)
	}
	return nil
}

// Recalculate runs the pricing engine over every row and refreshes the total.
func (q *Quote) Recalculate() {
	for i := range q.Rows {
		q.Rows[i] = pricing.CalculateRow(q.Rows[i], q.TRMGlobal)
	}
	q.TotalGeneral = pricing.Total(q.Rows)
}

// Groups exposes rows grouped by logical item.
func (q *Quote) Groups() []Group {
	return GroupByItem(q.Rows)
}

// SetClienteName changes the client of an editable quote.
func (q *Quote) SetClienteName(name string) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	q.ClienteName = strings.TrimSpace(name)
	return nil
}

// SetTRMGlobal changes the quote-level exchange rate and pushes it into every row.
func (q *Quote) SetTRMGlobal(trm float64) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	if trm < 0 {
		return invalid(ErrValidation, "trmGlobal", "exchange rate must be >= 0")
	}
	q.TRMGlobal = trm
	for i := range q.Rows {
		q.Rows[i].TRM = trm
	}
	q.Recalculate()
	return nil
}

// AddItem appends a new logical product with a single option.
func (q *Quote) AddItem(name, description string) (pricing.Row, error) {
	if err := q.ensureEditable(); err != nil {
		return pricing.Row{}, err
	}
	row := pricing.NewRow(newItemID(), strings.TrimSpace(name), strings.TrimSpace(description), q.TRMGlobal)
	q.Rows = append(q.Rows, row)
	q.Recalculate()
	return row, nil
}

// AddOption appends a competing option to the item identified by itemKey.
func (q *Quote) AddOption(itemKey string) (pricing.Row, error) {
	if err := q.ensureEditable(); err != nil {
		return pricing.Row{}, err
	}

	var template *pricing.Row
	for i := range q.Rows {
		if ItemKey(q.Rows[i]) != itemKey {
			continue
		}
		// Pin the derived key so the new option groups with its siblings.
		q.Rows[i].ItemID = itemKey
		if template == nil {
			template = &q.Rows[i]
		}
	}
	if template == nil {
		return pricing.Row{}, invalid(ErrItemNotFound, "itemId", itemKey)
	}

	row := pricing.NewRow(itemKey, template.ItemName, template.ItemDescription, q.TRMGlobal)
	row.Cantidad = template.Cantidad
	q.Rows = append(q.Rows, row)
	q.Recalculate()
	return q.Rows[len(q.Rows)-1], nil
}

// RowInput carries a partial edit of a row's raw inputs; nil fields are left unchanged.
type RowInput struct {
	ItemName        *string                   `json:"itemName,omitempty"`
	ItemDescription *string                   `json:"itemDescription,omitempty"`
	Cantidad        *int                      `json:"cantidad,omitempty"`
	Mayorista       *string                   `json:"mayorista,omitempty"`
	Marca           *string                   `json:"marca,omitempty"`
	Referencia      *string                   `json:"referencia,omitempty"`
	Configuracion   *string                   `json:"configuracion,omitempty"`
	CostoUSD        *float64                  `json:"costoUSD,omitempty"`
	CostoCOP        *float64                  `json:"costoCOP,omitempty"`
	TRM             *float64                  `json:"trm,omitempty"`
	IvaPercentCosto *float64                  `json:"ivaPercentCosto,omitempty"`
	Margen          *float64                  `json:"margen,omitempty"`
	IvaPercentPVP   *float64                  `json:"ivaPercentPVP,omitempty"`
	AdditionalCosts *[]pricing.AdditionalCost `json:"additionalCosts,omitempty"`
}

func (in RowInput) apply(row *pricing.Row) {
	setString(&row.ItemName, in.ItemName)
	setString(&row.ItemDescription, in.ItemDescription)
	setString(&row.Mayorista, in.Mayorista)
	setString(&row.Marca, in.Marca)
	setString(&row.Referencia, in.Referencia)
	setString(&row.Configuracion, in.Configuracion)
	if in.Cantidad != nil {
		row.Cantidad = *in.Cantidad
	}
	setFloat(&row.CostoUSD, in.CostoUSD)
	setFloat(&row.CostoCOP, in.CostoCOP)
	setFloat(&row.TRM, in.TRM)
	setFloat(&row.IvaPercentCosto, in.IvaPercentCosto)
	setFloat(&row.Margen, in.Margen)
	setFloat(&row.IvaPercentPVP, in.IvaPercentPVP)
	if in.AdditionalCosts != nil {
		row.AdditionalCosts = append([]pricing.AdditionalCost{}, (*in.AdditionalCosts)...)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// UpdateRow applies in to the row with rowID and recalculates it.
func (q *Quote) UpdateRow(rowID string, in RowInput) (pricing.Row, error) {
	if err := q.ensureEditable(); err != nil {
		return pricing.Row{}, err
	}
	i := q.rowIndex(rowID)
	if i < 0 {
		return pricing.Row{}, invalid(ErrRowNotFound, "rowId", rowID)
	}
	in.apply(&q.Rows[i])
	q.Recalculate()
	return q.Rows[i], nil
}

// RemoveRow deletes a row; the last remaining row cannot be removed.
func (q *Quote) RemoveRow(rowID string) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	i := q.rowIndex(rowID)
	if i < 0 {
		return invalid(ErrRowNotFound, "rowId", rowID)
	}
	if len(q.Rows) <= 1 {
		return ErrLastRow
	}
	q.Rows = append(q.Rows[:i], q.Rows[i+1:]...)
	q.Recalculate()
	return nil
}

func (q *Quote) rowIndex(rowID string) int {
	for i := range q.Rows {
		if q.Rows[i].ID == rowID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the quote.
func (q *Quote) Clone() *Quote {
	out := *q
	if q.Rows != nil {
		out.Rows = make([]pricing.Row, len(q.Rows))
		for i, row := range q.Rows {
			out.Rows[i] = row.Clone()
		}
	}
	out.SelectedOptions = cloneMap(q.SelectedOptions)
	out.ItemComments = cloneMap(q.ItemComments)
	if q.PurchaseData != nil {
		out.PurchaseData = make(map[int]PurchaseEntry, len(q.PurchaseData))
		for k, v := range q.PurchaseData {
			out.PurchaseData[k] = v
		}
	}
	out.SentForApprovalAt = cloneTime(q.SentForApprovalAt)
	out.ApprovalDate = cloneTime(q.ApprovalDate)
	out.RevisionDate = cloneTime(q.RevisionDate)
	out.DeniedDate = cloneTime(q.DeniedDate)
	return &out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
