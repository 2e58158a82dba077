package quote

import (
	"encoding/json"
	"fmt"
)

// Patch is a partial quote document keyed by JSON field name. Applying it
// merges the listed top-level fields onto the stored document; fields it
// does not mention keep their stored values.
type Patch map[string]any

// Identity fields are never written unless the patch carries a non-empty value.
var identityFields = []string{"cotizacion_id", "date", "createdAt"}

// PatchOf returns the full document of q as a patch, minus the store id and
// any identity field that is empty on q.
func PatchOf(q *Quote) (Patch, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode quote: %w", err)
	}
	var p Patch
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode quote document: %w", err)
	}
	delete(p, "id")
	if q.CotizacionID == "" {
		delete(p, "cotizacion_id")
	}
	if q.Date == "" {
		delete(p, "date")
	}
	if q.CreatedAt.IsZero() {
		delete(p, "createdAt")
	}
	return p, nil
}

// ReplacePatch returns the patch that turns current into next: next's full
// document, plus a nil entry for every field set on current and empty on next.
func ReplacePatch(current, next *Quote) (Patch, error) {
	p, err := PatchOf(next)
	if err != nil {
		return nil, err
	}
	existing, err := PatchOf(current)
	if err != nil {
		return nil, err
	}
	for k := range existing {
		if _, ok := p[k]; !ok {
			p[k] = nil
		}
	}
	return p, nil
}

// PatchFields is PatchOf restricted to the named fields.
func PatchFields(q *Quote, fields ...string) (Patch, error) {
	full, err := PatchOf(q)
	if err != nil {
		return nil, err
	}
	p := make(Patch, len(fields))
	for _, f := range fields {
		if v, ok := full[f]; ok {
			p[f] = v
		}
	}
	return p, nil
}

// Apply merges p onto base and returns the resulting quote. base is not modified
// and the result keeps base's store id.
func (p Patch) Apply(base *Quote) (*Quote, error) {
	raw, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encode base quote: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode base document: %w", err)
	}

	for k, v := range p {
		if k == "id" {
			continue
		}
		if isIdentityField(k) && isEmptyValue(v) {
			continue
		}
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode merged document: %w", err)
	}
	var out Quote
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, fmt.Errorf("decode merged document: %w", err)
	}
	out.ID = base.ID
	return &out, nil
}

func isIdentityField(k string) bool {
	for _, f := range identityFields {
		if f == k {
			return true
		}
	}
	return false
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == "" || x == "0001-01-01T00:00:00Z"
	}
	return false
}
