package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Simplici0/cotizaciones/internal/quote"
)

const timestampLayout = time.RFC3339Nano

// SQLiteStore keeps quotes in the local SQLite database created by the
// migrations package.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore returns a store over an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Create inserts q and returns it with its assigned id.
func (s *SQLiteStore) Create(ctx context.Context, q *quote.Quote) (*quote.Quote, error) {
	rec, err := prepareNew(q, s.now())
	if err != nil {
		return nil, err
	}
	doc, err := encodeDoc(rec)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (cotizacion_id, cliente_name, status, total_general, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.CotizacionID, rec.ClienteName, string(rec.Status), rec.TotalGeneral, doc,
		formatTimestamp(rec.CreatedAt), formatTimestamp(rec.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert quote %s: %w", rec.CotizacionID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read quote id: %w", err)
	}

	rec.ID = id
	return rec, nil
}

// Update merges patch onto the stored document inside one transaction.
func (s *SQLiteStore) Update(ctx context.Context, id int64, patch quote.Patch) (*quote.Quote, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var doc string
	if err := tx.QueryRowContext(ctx, `SELECT doc FROM quotes WHERE id = ?`, id).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("update quote %d: %w", id, quote.ErrNotFound)
		}
		return nil, fmt.Errorf("load quote %d: %w", id, err)
	}
	current, err := decodeDoc(id, doc)
	if err != nil {
		return nil, err
	}

	merged, err := patch.Apply(current)
	if err != nil {
		return nil, err
	}
	if merged.UpdatedAt.IsZero() {
		merged.UpdatedAt = s.now()
	}
	newDoc, err := encodeDoc(merged)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE quotes
		SET cotizacion_id = ?, cliente_name = ?, status = ?, total_general = ?, doc = ?, updated_at = ?
		WHERE id = ?
	`, merged.CotizacionID, merged.ClienteName, string(merged.Status), merged.TotalGeneral, newDoc,
		formatTimestamp(merged.UpdatedAt), id); err != nil {
		return nil, fmt.Errorf("update quote %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit quote %d: %w", id, err)
	}
	return merged, nil
}

// Get returns the quote stored under id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*quote.Quote, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM quotes WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get quote %d: %w", id, quote.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get quote %d: %w", id, err)
	}
	return decodeDoc(id, doc)
}

// GetByBusinessID returns the quote with the given cotizacion_id.
func (s *SQLiteStore) GetByBusinessID(ctx context.Context, cotizacionID string) (*quote.Quote, error) {
	var (
		id  int64
		doc string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, doc FROM quotes WHERE cotizacion_id = ?`, cotizacionID).Scan(&id, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get quote %s: %w", cotizacionID, quote.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get quote %s: %w", cotizacionID, err)
	}
	return decodeDoc(id, doc)
}

// Delete removes the quote stored under id.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete quote %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete quote %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete quote %d: %w", id, quote.ErrNotFound)
	}
	return nil
}

// ListAll returns every quote, newest first.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]*quote.Quote, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, doc FROM quotes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	var out []*quote.Quote
	for rows.Next() {
		var (
			id  int64
			doc string
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		q, err := decodeDoc(id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return out, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
