package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Simplici0/cotizaciones/internal/db"
	"github.com/Simplici0/cotizaciones/internal/quote"
)

// Set TEST_POSTGRES_DSN to a disposable database to run these.
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gdb, err := db.OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	s := NewPostgresStore(gdb)
	if err := s.AutoMigrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := gdb.Exec("DELETE FROM quotes").Error; err != nil {
		t.Fatalf("reset quotes: %v", err)
	}
	return s
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestPostgresStore(t)

	created, err := s.Create(ctx, sampleQuote("Remoto"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	later := baseTime.Add(time.Hour)
	if _, err := s.Update(ctx, created.ID, quote.Patch{
		"clienteName": "Remoto editado",
		"updatedAt":   later.Format(time.RFC3339Nano),
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetByBusinessID(ctx, created.CotizacionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ClienteName != "Remoto editado" || !got.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected quote: %+v", got)
	}

	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, created.ID); !errors.Is(err, quote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncerAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	remote := newTestPostgresStore(t)
	local := newTestSQLiteStore(t, "local.db")

	q := sampleQuote("Sincronizado")
	if _, err := local.Create(ctx, q); err != nil {
		t.Fatalf("create local: %v", err)
	}

	stats, err := NewSyncer(local, remote).Run(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if stats.Pushed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if _, err := remote.GetByBusinessID(ctx, q.CotizacionID); err != nil {
		t.Fatalf("quote not pushed: %v", err)
	}
}
