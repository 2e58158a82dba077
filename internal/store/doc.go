// Package store persists quotes. SQLiteStore is the local store the server
// works against, PostgresStore is the shared remote store, and Syncer keeps
// the two in step by cotizacion_id.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Simplici0/cotizaciones/internal/quote"
)

var errMissingBusinessID = errors.New("cotizacion_id is required")

func encodeDoc(q *quote.Quote) (string, error) {
	doc := q.Clone()
	doc.ID = 0
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode quote document: %w", err)
	}
	return string(raw), nil
}

func decodeDoc(id int64, doc string) (*quote.Quote, error) {
	var q quote.Quote
	if err := json.Unmarshal([]byte(doc), &q); err != nil {
		return nil, fmt.Errorf("decode quote %d document: %w", id, err)
	}
	q.ID = id
	return &q, nil
}

// prepareNew copies q and fills the timestamps a new record needs.
func prepareNew(q *quote.Quote, now time.Time) (*quote.Quote, error) {
	if q.CotizacionID == "" {
		return nil, errMissingBusinessID
	}
	out := q.Clone()
	out.ID = 0
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = out.CreatedAt
	}
	return out, nil
}
