package pricing

import "github.com/google/uuid"

// DefaultMargin is the markup percent assigned to new rows.
const DefaultMargin = 30.0

// Row is one concrete provider offer ("option") for a logical product.
// Raw inputs are edited by the seller; derived fields are only ever written by CalculateRow.
type Row struct {
	ID              string `json:"id"`
	ItemID          string `json:"itemId,omitempty"`
	ItemName        string `json:"itemName,omitempty"`
	ItemDescription string `json:"itemDescription,omitempty"`

	Cantidad        int              `json:"cantidad"`
	Mayorista       string           `json:"mayorista"`
	Marca           string           `json:"marca"`
	Referencia      string           `json:"referencia"`
	Configuracion   string           `json:"configuracion"`
	CostoUSD        float64          `json:"costoUSD"`
	TRM             float64          `json:"trm"`
	IvaPercentCosto float64          `json:"ivaPercentCosto"`
	Margen          float64          `json:"margen"`
	IvaPercentPVP   float64          `json:"ivaPercentPVP"`
	AdditionalCosts []AdditionalCost `json:"additionalCosts"`

	AdditionalCostUSD float64 `json:"additionalCostUSD"`
	CostoCOP          float64 `json:"costoCOP"`
	ValorIvaCosto     float64 `json:"valorIvaCosto"`
	CostoConIva       float64 `json:"costoConIva"`
	CostoTotal        float64 `json:"costoTotal"`
	PvpUnitario       float64 `json:"pvpUnitario"`
	ValorIvaPVP       float64 `json:"valorIvaPVP"`
	PvpMasIva         float64 `json:"pvpMasIva"`
	PvpTotal          float64 `json:"pvpTotal"`
}

// NewRow returns a calculated row with a fresh id, quantity 1, the default margin
// and the given exchange rate.
func NewRow(itemID, itemName, itemDescription string, trm float64) Row {
	row := Row{
		ID:              uuid.NewString(),
		ItemID:          itemID,
		ItemName:        itemName,
		ItemDescription: itemDescription,
		Cantidad:        1,
		TRM:             trm,
		Margen:          DefaultMargin,
		AdditionalCosts: []AdditionalCost{},
	}
	return CalculateRow(row, trm)
}

// Clone returns a copy of the row that shares no slices with the receiver.
func (r Row) Clone() Row {
	out := r
	if r.AdditionalCosts != nil {
		out.AdditionalCosts = make([]AdditionalCost, len(r.AdditionalCosts))
		copy(out.AdditionalCosts, r.AdditionalCosts)
	}
	return out
}

// CalculateRow recomputes every derived field of row from its raw inputs.
// A zero TRM on the row falls back to fallbackTRM. The input is not modified.
func CalculateRow(row Row, fallbackTRM float64) Row {
	out := row.Clone()

	if out.Cantidad < 1 {
		out.Cantidad = 1
	}
	out.CostoUSD = nonNegative(out.CostoUSD)
	if out.TRM == 0 {
		out.TRM = fallbackTRM
	}
	out.TRM = nonNegative(out.TRM)
	out.IvaPercentCosto = nonNegative(out.IvaPercentCosto)
	out.Margen = nonNegative(out.Margen)
	out.IvaPercentPVP = nonNegative(out.IvaPercentPVP)

	out.AdditionalCostUSD = SumAdditionalCostsUSD(out.AdditionalCosts, out.TRM)
	totalCostoUSD := out.CostoUSD + out.AdditionalCostUSD

	// Without a USD cost the stored local-currency cost is kept as entered.
	if totalCostoUSD > 0 && out.TRM > 0 {
		out.CostoCOP = totalCostoUSD * out.TRM
	}
	out.CostoCOP = nonNegative(out.CostoCOP)

	quantity := float64(out.Cantidad)
	out.ValorIvaCosto = out.CostoCOP * out.IvaPercentCosto / 100.0
	out.CostoConIva = out.CostoCOP + out.ValorIvaCosto
	out.CostoTotal = out.CostoConIva * quantity

	out.PvpUnitario = SalePrice(out.CostoCOP, out.Margen)
	out.ValorIvaPVP = out.PvpUnitario * out.IvaPercentPVP / 100.0
	out.PvpMasIva = out.PvpUnitario + out.ValorIvaPVP
	out.PvpTotal = out.PvpMasIva * quantity

	return out
}

// SalePrice applies a margin-on-price markup to cost.
// A margin of 100% or more has no finite price, so the cost itself is returned.
func SalePrice(cost, margen float64) float64 {
	if margen >= 100 {
		return cost
	}
	return cost / (1.0 - margen/100.0)
}

// Total sums pvpTotal over rows.
func Total(rows []Row) float64 {
	total := 0.0
	for _, row := range rows {
		total += row.PvpTotal
	}
	return total
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
