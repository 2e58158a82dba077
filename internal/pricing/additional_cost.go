package pricing

import (
	"strings"

	"github.com/google/uuid"
)

// Currency identifies the denomination of an additional cost entry.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCOP Currency = "COP"
)

// AdditionalCost is an extra cost (freight, import duties, installation...) attached to a row.
type AdditionalCost struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Currency    Currency `json:"currency"`
	ValueUSD    float64  `json:"valueUSD"`
	ValueCOP    float64  `json:"valueCOP"`
	IncludeIVA  bool     `json:"includeIVA"`
}

// NewAdditionalCost returns an empty USD entry with a fresh id.
func NewAdditionalCost(description string) AdditionalCost {
	return AdditionalCost{
		ID:          uuid.NewString(),
		Description: description,
		Currency:    CurrencyUSD,
	}
}

// SetValueUSD switches the entry to USD and clears the COP value.
func (c *AdditionalCost) SetValueUSD(v float64) {
	c.Currency = CurrencyUSD
	c.ValueUSD = v
	c.ValueCOP = 0
}

// SetValueCOP switches the entry to COP and clears the USD value.
func (c *AdditionalCost) SetValueCOP(v float64) {
	c.Currency = CurrencyCOP
	c.ValueCOP = v
	c.ValueUSD = 0
}

// Counts reports whether the entry contributes to totals at the given rate.
func (c AdditionalCost) Counts(trm float64) bool {
	if strings.TrimSpace(c.Description) == "" {
		return false
	}
	switch c.Currency {
	case CurrencyUSD:
		return c.ValueUSD > 0
	case CurrencyCOP:
		return c.ValueCOP > 0 && trm > 0
	}
	return false
}

// SumAdditionalCostsUSD folds cost entries into a single USD amount.
// COP entries are converted with trm; entries without a description or a
// positive value in their currency are ignored. No rounding is applied.
func SumAdditionalCostsUSD(costs []AdditionalCost, trm float64) float64 {
	total := 0.0
	for _, c := range costs {
		if !c.Counts(trm) {
			continue
		}
		if c.Currency == CurrencyUSD {
			total += c.ValueUSD
		} else {
			total += c.ValueCOP / trm
		}
	}
	return total
}
