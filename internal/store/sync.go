package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/cotizaciones/internal/quote"
)

// SyncStats counts the writes made by one sync pass.
type SyncStats struct {
	Pushed    int
	Pulled    int
	Unchanged int
}

// Syncer reconciles a local and a remote store. Quotes are matched by
// cotizacion_id and the copy with the newer updatedAt wins. Deletions are
// not propagated.
type Syncer struct {
	local  quote.Repository
	remote quote.Repository
}

// NewSyncer returns a Syncer between local and remote.
func NewSyncer(local, remote quote.Repository) *Syncer {
	return &Syncer{local: local, remote: remote}
}

// Run performs one sync pass. Per-quote failures do not stop the pass; they
// are returned joined once every quote has been visited.
func (s *Syncer) Run(ctx context.Context) (SyncStats, error) {
	var stats SyncStats
	var localQuotes, remoteQuotes []*quote.Quote

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		localQuotes, err = s.local.ListAll(gctx)
		if err != nil {
			return fmt.Errorf("list local quotes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		remoteQuotes, err = s.remote.ListAll(gctx)
		if err != nil {
			return fmt.Errorf("list remote quotes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return stats, err
	}

	remoteByKey := make(map[string]*quote.Quote, len(remoteQuotes))
	for _, q := range remoteQuotes {
		remoteByKey[q.CotizacionID] = q
	}

	var errs []error
	for _, l := range localQuotes {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		r, ok := remoteByKey[l.CotizacionID]
		delete(remoteByKey, l.CotizacionID)

		switch {
		case !ok:
			if _, err := s.remote.Create(ctx, l); err != nil {
				errs = append(errs, fmt.Errorf("push %s: %w", l.CotizacionID, err))
				continue
			}
			stats.Pushed++
		case l.UpdatedAt.After(r.UpdatedAt):
			if err := copyInto(ctx, s.remote, r, l); err != nil {
				errs = append(errs, fmt.Errorf("push %s: %w", l.CotizacionID, err))
				continue
			}
			stats.Pushed++
		case r.UpdatedAt.After(l.UpdatedAt):
			if err := copyInto(ctx, s.local, l, r); err != nil {
				errs = append(errs, fmt.Errorf("pull %s: %w", l.CotizacionID, err))
				continue
			}
			stats.Pulled++
		default:
			stats.Unchanged++
		}
	}

	for key, r := range remoteByKey {
		if _, err := s.local.Create(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("pull %s: %w", key, err))
			continue
		}
		stats.Pulled++
	}

	return stats, errors.Join(errs...)
}

// Loop runs a sync pass every interval until ctx is cancelled.
func (s *Syncer) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.Run(ctx)
			if err != nil {
				log.Printf("sync failed: %v", err)
			}
			if stats.Pushed > 0 || stats.Pulled > 0 {
				log.Printf("sync: pushed=%d pulled=%d unchanged=%d", stats.Pushed, stats.Pulled, stats.Unchanged)
			}
		}
	}
}

// copyInto overwrites target with src's document. Fields set on target but
// absent from src are cleared.
func copyInto(ctx context.Context, dst quote.Repository, target, src *quote.Quote) error {
	patch, err := quote.ReplacePatch(target, src)
	if err != nil {
		return err
	}
	_, err = dst.Update(ctx, target.ID, patch)
	return err
}
