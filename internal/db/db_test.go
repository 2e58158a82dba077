package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenAppliesPragmas(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()

	var mode string
	if err := database.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
}

func TestOpenPostgresGivesUpWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	gdb, err := OpenPostgres(ctx, "postgres://cotizaciones@127.0.0.1:1/cotizaciones?sslmode=disable&connect_timeout=1")
	if err == nil {
		t.Fatalf("expected error for unreachable server, got %v", gdb)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("OpenPostgres kept retrying for %s after the context ended", elapsed)
	}
}

func TestCloseGormToleratesNil(t *testing.T) {
	closeGorm(nil)
}
