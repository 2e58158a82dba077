package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Simplici0/cotizaciones/internal/quote"
)

// quoteRecord is the remote row. The timestamp fields are named so gorm does
// not overwrite them; the document's own timestamps drive sync.
type quoteRecord struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	CotizacionID string `gorm:"size:64;uniqueIndex;not null"`
	ClienteName  string `gorm:"size:255"`
	Status       string `gorm:"size:32;index"`
	TotalGeneral float64
	Doc          string    `gorm:"type:text;not null"`
	CreatedOn    time.Time `gorm:"column:created_at;index"`
	UpdatedOn    time.Time `gorm:"column:updated_at"`
}

func (quoteRecord) TableName() string { return "quotes" }

// PostgresStore keeps quotes in the shared Postgres database.
type PostgresStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPostgresStore returns a store over db. Call AutoMigrate before first use.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// AutoMigrate creates or updates the quotes table.
func (s *PostgresStore) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&quoteRecord{}); err != nil {
		return fmt.Errorf("migrate remote quotes: %w", err)
	}
	return nil
}

// Create inserts q and returns it with its assigned id.
func (s *PostgresStore) Create(ctx context.Context, q *quote.Quote) (*quote.Quote, error) {
	out, err := prepareNew(q, s.now())
	if err != nil {
		return nil, err
	}
	rec, err := toRecord(out)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("insert quote %s: %w", out.CotizacionID, err)
	}
	out.ID = rec.ID
	return out, nil
}

// Update merges patch onto the stored quote under a row lock.
func (s *PostgresStore) Update(ctx context.Context, id int64, patch quote.Patch) (*quote.Quote, error) {
	var merged *quote.Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec quoteRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, id).Error; err != nil {
			return notFound(err, fmt.Sprintf("update quote %d", id))
		}
		current, err := decodeDoc(rec.ID, rec.Doc)
		if err != nil {
			return err
		}
		merged, err = patch.Apply(current)
		if err != nil {
			return err
		}
		if merged.UpdatedAt.IsZero() {
			merged.UpdatedAt = s.now()
		}
		next, err := toRecord(merged)
		if err != nil {
			return err
		}
		next.ID = rec.ID
		if err := tx.Save(&next).Error; err != nil {
			return fmt.Errorf("update quote %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// Get returns the quote stored under id.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*quote.Quote, error) {
	var rec quoteRecord
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("get quote %d", id))
	}
	return decodeDoc(rec.ID, rec.Doc)
}

// GetByBusinessID returns the quote with the given cotizacion_id.
func (s *PostgresStore) GetByBusinessID(ctx context.Context, cotizacionID string) (*quote.Quote, error) {
	var rec quoteRecord
	if err := s.db.WithContext(ctx).Where("cotizacion_id = ?", cotizacionID).First(&rec).Error; err != nil {
		return nil, notFound(err, "get quote "+cotizacionID)
	}
	return decodeDoc(rec.ID, rec.Doc)
}

// Delete removes the quote stored under id.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&quoteRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete quote %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete quote %d: %w", id, quote.ErrNotFound)
	}
	return nil
}

// ListAll returns every quote, newest first.
func (s *PostgresStore) ListAll(ctx context.Context) ([]*quote.Quote, error) {
	var recs []quoteRecord
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	out := make([]*quote.Quote, 0, len(recs))
	for _, rec := range recs {
		q, err := decodeDoc(rec.ID, rec.Doc)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func toRecord(q *quote.Quote) (quoteRecord, error) {
	doc, err := encodeDoc(q)
	if err != nil {
		return quoteRecord{}, err
	}
	return quoteRecord{
		CotizacionID: q.CotizacionID,
		ClienteName:  q.ClienteName,
		Status:       string(q.Status),
		TotalGeneral: q.TotalGeneral,
		Doc:          doc,
		CreatedOn:    q.CreatedAt.UTC(),
		UpdatedOn:    q.UpdatedAt.UTC(),
	}, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, quote.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
