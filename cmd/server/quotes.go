package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/cotizaciones/internal/pricing"
	"github.com/Simplici0/cotizaciones/internal/quote"
)

type quoteListItem struct {
	ID           int64        `json:"id"`
	CotizacionID string       `json:"cotizacion_id"`
	ClienteName  string       `json:"clienteName"`
	Status       quote.Status `json:"status"`
	TotalGeneral float64      `json:"totalGeneral"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.quotes.List(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	status := quote.Status(r.URL.Query().Get("status"))

	items := make([]quoteListItem, 0, len(quotes))
	for _, q := range quotes {
		if status != "" && q.Status != status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(q.ClienteName), query) &&
			!strings.Contains(strings.ToLower(q.CotizacionID), query) {
			continue
		}
		items = append(items, quoteListItem{
			ID:           q.ID,
			CotizacionID: q.CotizacionID,
			ClienteName:  q.ClienteName,
			Status:       q.Status,
			TotalGeneral: q.TotalGeneral,
			CreatedAt:    q.CreatedAt,
			UpdatedAt:    q.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type createQuoteRequest struct {
	ClienteName string  `json:"clienteName"`
	TRM         float64 `json:"trm"`
}

func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "solicitud inválida")
		return
	}

	q, err := s.quotes.Create(r.Context(), actorFrom(r.Context()), req.ClienteName, req.TRM)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *server) handleQuoteGet(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := s.quotes.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleQuoteByBusinessID(w http.ResponseWriter, r *http.Request) {
	q, err := s.quotes.GetByBusinessID(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "cotizacionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleQuoteDelete(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.quotes.Delete(r.Context(), actorFrom(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateQuoteRequest struct {
	ClienteName *string  `json:"clienteName"`
	TRMGlobal   *float64 `json:"trmGlobal"`
}

func (s *server) handleQuoteUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateQuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "solicitud inválida")
		return
	}

	q, err := s.quotes.Edit(r.Context(), actorFrom(r.Context()), id, func(q *quote.Quote) error {
		if req.ClienteName != nil {
			if err := q.SetClienteName(*req.ClienteName); err != nil {
				return err
			}
		}
		if req.TRMGlobal != nil {
			return q.SetTRMGlobal(*req.TRMGlobal)
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type itemsResponse struct {
	Groups       []quote.Group `json:"groups"`
	TotalGeneral float64       `json:"totalGeneral"`
}

func (s *server) handleQuoteItems(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := s.quotes.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Groups: q.Groups(), TotalGeneral: q.TotalGeneral})
}

type createItemRequest struct {
	ItemName        string `json:"itemName"`
	ItemDescription string `json:"itemDescription"`
}

type rowResponse struct {
	Row   pricing.Row  `json:"row"`
	Quote *quote.Quote `json:"quote"`
}

func (s *server) handleItemCreate(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "solicitud inválida")
		return
	}

	var row pricing.Row
	q, err := s.quotes.Edit(r.Context(), actorFrom(r.Context()), id, func(q *quote.Quote) error {
		var err error
		row, err = q.AddItem(req.ItemName, req.ItemDescription)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rowResponse{Row: row, Quote: q})
}

func (s *server) handleOptionCreate(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	itemKey := chi.URLParam(r, "itemKey")

	var row pricing.Row
	q, err := s.quotes.Edit(r.Context(), actorFrom(r.Context()), id, func(q *quote.Quote) error {
		var err error
		row, err = q.AddOption(itemKey)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rowResponse{Row: row, Quote: q})
}

func (s *server) handleRowUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rowID := chi.URLParam(r, "rowID")

	var in quote.RowInput
	if err := decodeJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "solicitud inválida")
		return
	}

	var row pricing.Row
	q, err := s.quotes.Edit(r.Context(), actorFrom(r.Context()), id, func(q *quote.Quote) error {
		var err error
		row, err = q.UpdateRow(rowID, in)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rowResponse{Row: row, Quote: q})
}

func (s *server) handleRowDelete(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rowID := chi.URLParam(r, "rowID")

	q, err := s.quotes.Edit(r.Context(), actorFrom(r.Context()), id, func(q *quote.Quote) error {
		return q.RemoveRow(rowID)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type createCostRequest struct {
	Description string           `json:"description"`
	Currency    pricing.Currency `json:"currency"`
	Value       float64          `json:"value"`
	IncludeIVA  bool             `json:"includeIVA"`
}

func (s *server) handleCostCreate(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rowID := chi.URLParam(r, "rowID")

	var req createCostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "solicitud inválida")
		return
	}

	cost := pricing.NewAdditionalCost(strings.TrimSpace(req.Description))
	cost.IncludeIVA = req.IncludeIVA
	switch req.Currency {
	case pricing.CurrencyUSD, "":
		cost.SetValueUSD(req.Value)
	case pricing.CurrencyCOP:
		cost.SetValueCOP(req.Value)
	default:
		writeMessage(w, http.StatusUnprocessableEntity, "moneda debe ser USD o COP")
		return
	}

	var row pricing.Row
	q, err := s.quotes.Edit(r.Context(), actorFrom(r.Context()), id, func(q *quote.Quote) error {
		var costs []pricing.AdditionalCost
		for _, existing := range q.Rows {
			if existing.ID == rowID {
				costs = append(costs, existing.AdditionalCosts...)
				break
			}
		}
		costs = append(costs, cost)
		var err error
		row, err = q.UpdateRow(rowID, quote.RowInput{AdditionalCosts: &costs})
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rowResponse{Row: row, Quote: q})
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := s.quotes.Submit(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type approvalView struct {
	Quote    *quote.Quote  `json:"quote"`
	Groups   []quote.Group `json:"groups"`
	Comments []string      `json:"commentedItems"`
}

// handleApprovalOpen is the reviewer's entry point; the quote id in the URL
// is the pending approval being opened.
func (s *server) handleApprovalOpen(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := s.quotes.OpenForReview(r.Context(), actorFrom(r.Context()), quote.PendingApproval{QuoteID: id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approvalView{Quote: q, Groups: q.Groups(), Comments: q.CommentKeys()})
}

type reviewRequest struct {
	SelectedOptions map[string]string `json:"selectedOptions"`
	ItemComments    map[string]string `json:"itemComments"`
}

type missingSelectionResponse struct {
	errorResponse
	Missing []string `json:"missing"`
}

func (s *server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, req, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	q, err := s.quotes.Approve(r.Context(), actorFrom(r.Context()), id, req.SelectedOptions, req.ItemComments)
	if errors.Is(err, quote.ErrIncompleteSelection) {
		if current, gerr := s.quotes.Get(r.Context(), actorFrom(r.Context()), id); gerr == nil {
			writeJSON(w, http.StatusUnprocessableEntity, missingSelectionResponse{
				errorResponse: errorResponse{Error: quote.ErrIncompleteSelection.Error(), Field: "selectedOptions"},
				Missing:       current.MissingSelections(req.SelectedOptions),
			})
			return
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleRevision(w http.ResponseWriter, r *http.Request) {
	id, req, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	q, err := s.quotes.RequestRevision(r.Context(), actorFrom(r.Context()), id, req.ItemComments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleDeny(w http.ResponseWriter, r *http.Request) {
	id, req, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	q, err := s.quotes.Deny(r.Context(), actorFrom(r.Context()), id, req.ItemComments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) decodeReview(w http.ResponseWriter, r *http.Request) (int64, reviewRequest, bool) {
	var req reviewRequest
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return 0, req, false
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "solicitud inválida")
		return 0, req, false
	}
	return id, req, true
}

type purchaseRequest struct {
	FinalPurchasePrice *float64 `json:"finalPurchasePrice"`
}

type purchaseResponse struct {
	Entry    quote.PurchaseEntry   `json:"entry"`
	Analysis *quote.MarginAnalysis `json:"analysis,omitempty"`
}

func (s *server) handlePurchaseRecord(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rowIndex, err := strconv.Atoi(chi.URLParam(r, "rowIndex"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "índice de fila inválido")
		return
	}
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil || req.FinalPurchasePrice == nil {
		writeMessage(w, http.StatusBadRequest, "finalPurchasePrice es requerido")
		return
	}

	entry, q, err := s.quotes.RecordFinalPrice(r.Context(), actorFrom(r.Context()), id, rowIndex, *req.FinalPurchasePrice)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := purchaseResponse{Entry: entry}
	if analysis, ok := q.AnalyzeRowPurchase(rowIndex); ok {
		resp.Analysis = &analysis
	}
	writeJSON(w, http.StatusOK, resp)
}

type purchaseAnalysisRow struct {
	RowIndex int                   `json:"rowIndex"`
	Row      pricing.Row           `json:"row"`
	Entry    *quote.PurchaseEntry  `json:"entry,omitempty"`
	Analysis *quote.MarginAnalysis `json:"analysis,omitempty"`
}

func (s *server) handlePurchaseAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := s.quotes.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if q.Status != quote.StatusApproved {
		writeError(w, quote.ErrNotApproved)
		return
	}

	out := make([]purchaseAnalysisRow, 0, len(q.Rows))
	for i, row := range q.Rows {
		item := purchaseAnalysisRow{RowIndex: i, Row: row}
		if entry, ok := q.PurchaseData[i]; ok {
			item.Entry = &entry
		}
		if analysis, ok := q.AnalyzeRowPurchase(i); ok {
			item.Analysis = &analysis
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}
