package quote

import (
	"testing"

	"github.com/Simplici0/cotizaciones/internal/pricing"
)

func twoItemRows() []pricing.Row {
	return []pricing.Row{
		{ID: "a-100", ItemID: "A", PvpTotal: 100},
		{ID: "b-200", ItemID: "B", PvpTotal: 200},
		{ID: "a-150", ItemID: "A", PvpTotal: 150},
	}
}

func TestResolveApprovalKeepsSelectedOptions(t *testing.T) {
	res := ResolveApproval(twoItemRows(), map[string]string{"A": "a-150", "B": "b-200"})

	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if res.Rows[0].ID != "a-150" || res.Rows[1].ID != "b-200" {
		t.Fatalf("unexpected rows: %s, %s", res.Rows[0].ID, res.Rows[1].ID)
	}
	if res.Total != 350 {
		t.Fatalf("total = %v, want 350", res.Total)
	}
}

func TestResolveApprovalSkipsUnmatchedGroups(t *testing.T) {
	res := ResolveApproval(twoItemRows(), map[string]string{"A": "does-not-exist", "B": "b-200"})

	if len(res.Rows) != 1 || res.Rows[0].ID != "b-200" {
		t.Fatalf("unexpected rows: %+v", res.Rows)
	}
	if res.Total != 200 {
		t.Fatalf("total = %v, want 200", res.Total)
	}
}

func TestResolveApprovalIgnoresOptionFromOtherItem(t *testing.T) {
	res := ResolveApproval(twoItemRows(), map[string]string{"A": "b-200"})

	if len(res.Rows) != 0 {
		t.Fatalf("expected no rows, got %+v", res.Rows)
	}
}

func TestResolveApprovalCollapseInvariant(t *testing.T) {
	rows := []pricing.Row{
		{ID: "1", ItemName: "Switch", PvpTotal: 10},
		{ID: "2", ItemName: "switch", PvpTotal: 12},
		{ID: "3", Marca: "Dell", Referencia: "P2422H", PvpTotal: 30},
		{ID: "4", PvpTotal: 7},
	}
	selected := map[string]string{
		"name-switch":     "2",
		"ref-dell-p2422h": "3",
		"row-4":           "4",
	}

	res := ResolveApproval(rows, selected)

	if len(res.Rows) != len(GroupByItem(rows)) {
		t.Fatalf("expected one row per item, got %d", len(res.Rows))
	}
	for _, row := range res.Rows {
		if selected[ItemKey(row)] != row.ID {
			t.Fatalf("row %s is not the selection for %s", row.ID, ItemKey(row))
		}
	}
	if res.Total != pricing.Total(res.Rows) {
		t.Fatalf("total %v does not match rows", res.Total)
	}
}
