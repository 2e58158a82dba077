package store

import (
	"context"
	"testing"
	"time"

	"github.com/Simplici0/cotizaciones/internal/quote"
)

func TestSyncerCopiesMissingQuotesBothWays(t *testing.T) {
	ctx := context.Background()
	local := newTestSQLiteStore(t, "local.db")
	remote := newTestSQLiteStore(t, "remote.db")

	onlyLocal := sampleQuote("Solo local")
	onlyRemote := sampleQuote("Solo remoto")
	if _, err := local.Create(ctx, onlyLocal); err != nil {
		t.Fatalf("create local: %v", err)
	}
	if _, err := remote.Create(ctx, onlyRemote); err != nil {
		t.Fatalf("create remote: %v", err)
	}

	stats, err := NewSyncer(local, remote).Run(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if stats.Pushed != 1 || stats.Pulled != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if _, err := remote.GetByBusinessID(ctx, onlyLocal.CotizacionID); err != nil {
		t.Fatalf("local quote not pushed: %v", err)
	}
	pulled, err := local.GetByBusinessID(ctx, onlyRemote.CotizacionID)
	if err != nil {
		t.Fatalf("remote quote not pulled: %v", err)
	}
	if !pulled.UpdatedAt.Equal(onlyRemote.UpdatedAt) {
		t.Fatalf("pulled quote lost its timestamp: %v", pulled.UpdatedAt)
	}

	stats, err = NewSyncer(local, remote).Run(ctx)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if stats.Pushed != 0 || stats.Pulled != 0 || stats.Unchanged != 2 {
		t.Fatalf("second pass should be a no-op: %+v", stats)
	}
}

func TestSyncerNewerUpdateWins(t *testing.T) {
	ctx := context.Background()
	local := newTestSQLiteStore(t, "local.db")
	remote := newTestSQLiteStore(t, "remote.db")

	q := sampleQuote("Original")
	q.SelectedOptions = map[string]string{"item-1": "row-1"}
	l, err := local.Create(ctx, q)
	if err != nil {
		t.Fatalf("create local: %v", err)
	}
	r, err := remote.Create(ctx, q)
	if err != nil {
		t.Fatalf("create remote: %v", err)
	}

	remoteEdit := baseTime.Add(2 * time.Hour)
	if _, err := remote.Update(ctx, r.ID, quote.Patch{
		"clienteName":     "Editado en remoto",
		"selectedOptions": nil,
		"updatedAt":       remoteEdit.Format(time.RFC3339Nano),
	}); err != nil {
		t.Fatalf("update remote: %v", err)
	}
	if _, err := local.Update(ctx, l.ID, quote.Patch{
		"clienteName": "Editado en local",
		"updatedAt":   baseTime.Add(time.Hour).Format(time.RFC3339Nano),
	}); err != nil {
		t.Fatalf("update local: %v", err)
	}

	stats, err := NewSyncer(local, remote).Run(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if stats.Pulled != 1 || stats.Pushed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	got, err := local.Get(ctx, l.ID)
	if err != nil {
		t.Fatalf("get local: %v", err)
	}
	if got.ClienteName != "Editado en remoto" || !got.UpdatedAt.Equal(remoteEdit) {
		t.Fatalf("remote edit not applied: %+v", got)
	}
	if len(got.SelectedOptions) != 0 {
		t.Fatalf("field cleared remotely survived locally: %v", got.SelectedOptions)
	}
	if got.CotizacionID != q.CotizacionID {
		t.Fatalf("cotizacion_id changed to %q", got.CotizacionID)
	}
}
