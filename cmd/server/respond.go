package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/cotizaciones/internal/access"
	"github.com/Simplici0/cotizaciones/internal/quote"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	var verr *quote.ValidationError
	if errors.As(err, &verr) {
		resp.Error = verr.Err.Error()
		resp.Field = verr.Field
		resp.Details = verr.Details
	}

	var perr *quote.PersistenceError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, quote.ErrValidation),
		errors.Is(err, quote.ErrIncompleteSelection),
		errors.Is(err, quote.ErrMissingComments),
		errors.Is(err, quote.ErrLastRow):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, access.ErrPermission), errors.Is(err, access.ErrInactiveUser):
		status = http.StatusForbidden
	case errors.Is(err, quote.ErrNotFound),
		errors.Is(err, quote.ErrRowNotFound),
		errors.Is(err, quote.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, quote.ErrReadOnly),
		errors.Is(err, quote.ErrInvalidTransition),
		errors.Is(err, quote.ErrNotApproved):
		status = http.StatusConflict
	case errors.As(err, &perr):
		status = http.StatusServiceUnavailable
		resp = errorResponse{Error: "no se pudo guardar, intenta de nuevo"}
		log.Printf("persistence failure: %v", err)
	default:
		resp = errorResponse{Error: "error interno"}
		log.Printf("request failed: %v", err)
	}

	writeJSON(w, status, resp)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", quote.ErrValidation, name, raw)
	}
	return id, nil
}

func quoteIDParam(r *http.Request) (int64, error) {
	return int64Param(r, "id")
}
