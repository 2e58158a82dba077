package quote

import "github.com/Simplici0/cotizaciones/internal/pricing"

// Resolution is the collapsed row set a quote keeps after approval.
type Resolution struct {
	Rows  []pricing.Row `json:"rows"`
	Total float64       `json:"total"`
}

// ResolveApproval keeps, for each item, the option named in selected.
// Items without a matching option are omitted rather than reported.
// Result rows follow item encounter order.
func ResolveApproval(rows []pricing.Row, selected map[string]string) Resolution {
	kept := make([]pricing.Row, 0)
	for _, g := range GroupByItem(rows) {
		chosen, ok := selected[g.Item.ID]
		if !ok {
			continue
		}
		for _, opt := range g.Options {
			if opt.ID == chosen {
				kept = append(kept, opt.Clone())
				break
			}
		}
	}
	return Resolution{Rows: kept, Total: pricing.Total(kept)}
}
