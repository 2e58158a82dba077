package quote

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Simplici0/cotizaciones/internal/pricing"
)

// Item identifies a logical product offered through one or more options.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Group is an item and its competing options in first-seen order.
type Group struct {
	Item    Item          `json:"item"`
	Options []pricing.Row `json:"options"`
}

// ItemKey derives the grouping key of a row. Priority:
// itemId, then the item name slug, then the marca+referencia slug, then the row id.
// Grouping, selection and approval all go through this function.
func ItemKey(row pricing.Row) string {
	if id := strings.TrimSpace(row.ItemID); id != "" {
		return id
	}
	if s := slugify(row.ItemName); s != "" {
		return "name-" + s
	}
	if s := slugify(row.Marca + " " + row.Referencia); s != "" {
		return "ref-" + s
	}
	return "row-" + row.ID
}

func slugify(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// GroupByItem groups rows by ItemKey, preserving first-seen order of items
// and of options within each item. Every row lands in exactly one group.
func GroupByItem(rows []pricing.Row) []Group {
	groups := make([]Group, 0)
	index := make(map[string]int)

	for _, row := range rows {
		key := ItemKey(row)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Item: Item{ID: key}})
		}
		g := &groups[i]
		if g.Item.Name == "" {
			g.Item.Name = row.ItemName
		}
		if g.Item.Description == "" {
			g.Item.Description = row.ItemDescription
		}
		g.Options = append(g.Options, row)
	}

	return groups
}
