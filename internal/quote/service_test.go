package quote

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Simplici0/cotizaciones/internal/access"
)

type memRepo struct {
	nextID    int64
	quotes    map[int64]*Quote
	failWrite error
	updates   []Patch
}

func newMemRepo() *memRepo {
	return &memRepo{quotes: map[int64]*Quote{}}
}

func (r *memRepo) Create(_ context.Context, q *Quote) (*Quote, error) {
	if r.failWrite != nil {
		return nil, r.failWrite
	}
	r.nextID++
	stored := q.Clone()
	stored.ID = r.nextID
	r.quotes[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *memRepo) Update(_ context.Context, id int64, patch Patch) (*Quote, error) {
	if r.failWrite != nil {
		return nil, r.failWrite
	}
	current, ok := r.quotes[id]
	if !ok {
		return nil, fmt.Errorf("update %d: %w", id, ErrNotFound)
	}
	merged, err := patch.Apply(current)
	if err != nil {
		return nil, err
	}
	r.updates = append(r.updates, patch)
	r.quotes[id] = merged
	return merged.Clone(), nil
}

func (r *memRepo) Get(_ context.Context, id int64) (*Quote, error) {
	q, ok := r.quotes[id]
	if !ok {
		return nil, fmt.Errorf("get %d: %w", id, ErrNotFound)
	}
	return q.Clone(), nil
}

func (r *memRepo) GetByBusinessID(_ context.Context, cotizacionID string) (*Quote, error) {
	for _, q := range r.quotes {
		if q.CotizacionID == cotizacionID {
			return q.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.quotes[id]; !ok {
		return ErrNotFound
	}
	delete(r.quotes, id)
	return nil
}

func (r *memRepo) ListAll(_ context.Context) ([]*Quote, error) {
	out := make([]*Quote, 0, len(r.quotes))
	for _, q := range r.quotes {
		out = append(out, q.Clone())
	}
	return out, nil
}

func newTestService(repo *memRepo) *Service {
	return NewService(repo, WithClock(func() time.Time { return testNow }), WithDefaultTRM(4000))
}

func TestServiceFullLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo)

	q, err := svc.Create(ctx, vendedor, "Universidad Nacional", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if q.ID == 0 || q.TRMGlobal != 4000 {
		t.Fatalf("unexpected created quote: id=%d trm=%v", q.ID, q.TRMGlobal)
	}
	firstItem := ItemKey(q.Rows[0])

	var optionID string
	q, err = svc.Edit(ctx, vendedor, q.ID, func(q *Quote) error {
		if _, err := q.UpdateRow(q.Rows[0].ID, RowInput{CostoUSD: ptr(100.0), Margen: ptr(20.0)}); err != nil {
			return err
		}
		opt, err := q.AddOption(firstItem)
		if err != nil {
			return err
		}
		optionID = opt.ID
		_, err = q.UpdateRow(opt.ID, RowInput{CostoUSD: ptr(90.0), Margen: ptr(20.0)})
		return err
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(q.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(q.Rows))
	}
	nearly(t, "totalGeneral", q.TotalGeneral, 950000)

	if _, err := svc.Submit(ctx, vendedor, q.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.OpenForReview(ctx, revisor, PendingApproval{QuoteID: q.ID}); err != nil {
		t.Fatalf("open for review: %v", err)
	}

	approved, err := svc.Approve(ctx, revisor, q.ID, map[string]string{firstItem: optionID}, nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != StatusApproved || len(approved.Rows) != 1 || approved.Rows[0].ID != optionID {
		t.Fatalf("unexpected approved quote: %+v", approved)
	}
	nearly(t, "approved totalGeneral", approved.TotalGeneral, 450000)
	if approved.CotizacionID != q.CotizacionID || !approved.CreatedAt.Equal(q.CreatedAt) {
		t.Fatalf("identity not preserved")
	}

	entry, saved, err := svc.RecordFinalPrice(ctx, comprador, q.ID, 0, 400000)
	if err != nil {
		t.Fatalf("record price: %v", err)
	}
	if entry.UpdatedBy != comprador.Email || saved.PurchaseData[0].FinalPurchasePrice != 400000 {
		t.Fatalf("purchase not stored: %+v", saved.PurchaseData)
	}
	last := repo.updates[len(repo.updates)-1]
	if _, ok := last["rows"]; ok || len(last) != 2 {
		t.Fatalf("purchase patch should only carry purchaseData and updatedAt: %v", last)
	}
}

func TestServiceFailedTransitionDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo)

	q, err := svc.Create(ctx, vendedor, "", 4000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Submit(ctx, vendedor, q.ID)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("failed submit reached the repository")
	}
	stored, _ := svc.Get(ctx, vendedor, q.ID)
	if stored.Status != StatusDraft {
		t.Fatalf("status = %s", stored.Status)
	}
}

func TestServiceIncompleteApprovalKeepsPending(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo)

	q, _ := svc.Create(ctx, vendedor, "Cliente", 4000)
	q, _ = svc.Edit(ctx, vendedor, q.ID, func(q *Quote) error {
		_, err := q.AddItem("Segundo", "")
		return err
	})
	if _, err := svc.Submit(ctx, vendedor, q.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := svc.Approve(ctx, revisor, q.ID, map[string]string{ItemKey(q.Rows[0]): q.Rows[0].ID}, nil)
	if !errors.Is(err, ErrIncompleteSelection) {
		t.Fatalf("expected ErrIncompleteSelection, got %v", err)
	}

	stored, _ := svc.Get(ctx, revisor, q.ID)
	if stored.Status != StatusPendingApproval || len(stored.Rows) != 2 {
		t.Fatalf("quote changed: status=%s rows=%d", stored.Status, len(stored.Rows))
	}
}

func TestServiceEditRejectsReadOnly(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemRepo())

	q, _ := svc.Create(ctx, vendedor, "Cliente", 4000)
	if _, err := svc.Submit(ctx, vendedor, q.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	called := false
	_, err := svc.Edit(ctx, vendedor, q.ID, func(q *Quote) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrReadOnly) || called {
		t.Fatalf("expected ErrReadOnly before edit runs, got %v (called=%v)", err, called)
	}
}

func TestServiceWrapsPersistenceErrors(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo)
	q, _ := svc.Create(ctx, vendedor, "Cliente", 4000)

	repo.failWrite = errors.New("disk full")
	_, err := svc.Edit(ctx, vendedor, q.ID, func(q *Quote) error { return q.SetClienteName("Otro") })

	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if perr.Op != "update" || perr.ID != "1" {
		t.Fatalf("unexpected error identity: %+v", perr)
	}
}

func TestServiceNotFound(t *testing.T) {
	svc := newTestService(newMemRepo())

	_, err := svc.Get(context.Background(), vendedor, 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var perr *PersistenceError
	if errors.As(err, &perr) {
		t.Fatalf("not found should not be a persistence failure")
	}
}

func TestServiceOpenForReviewRequiresPending(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemRepo())
	q, _ := svc.Create(ctx, vendedor, "Cliente", 4000)

	if _, err := svc.OpenForReview(ctx, revisor, PendingApproval{QuoteID: q.ID}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.OpenForReview(ctx, vendedor, PendingApproval{QuoteID: q.ID}); !errors.Is(err, access.ErrPermission) {
		t.Fatalf("expected ErrPermission, got %v", err)
	}
}

func TestServiceApproveAfterRevisionDropsRevisionComments(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo)

	q, err := svc.Create(ctx, vendedor, "Cliente", 4000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	item := ItemKey(q.Rows[0])

	if _, err := svc.Submit(ctx, vendedor, q.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.RequestRevision(ctx, revisor, q.ID, map[string]string{item: "cambiar proveedor"}); err != nil {
		t.Fatalf("request revision: %v", err)
	}
	if _, err := svc.Submit(ctx, vendedor, q.ID); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	approved, err := svc.Approve(ctx, revisor, q.ID, map[string]string{item: q.Rows[0].ID}, nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(approved.ItemComments) != 0 {
		t.Fatalf("approved quote kept revision comments: %v", approved.ItemComments)
	}

	stored, err := svc.Get(ctx, revisor, q.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusApproved || len(stored.ItemComments) != 0 {
		t.Fatalf("stored quote: status=%s itemComments=%v", stored.Status, stored.ItemComments)
	}
}

func TestServiceRecordFinalPriceChecksPermissionFirst(t *testing.T) {
	svc := newTestService(newMemRepo())

	_, _, err := svc.RecordFinalPrice(context.Background(), vendedor, 42, 0, 100)
	if !errors.Is(err, access.ErrPermission) {
		t.Fatalf("expected ErrPermission for a missing quote, got %v", err)
	}
}
