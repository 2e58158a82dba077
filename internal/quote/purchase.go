package quote

import (
	"math"
	"strconv"
	"time"

	"github.com/Simplici0/cotizaciones/internal/access"
)

// PurchaseEntry is the final purchase price a buyer recorded for a row.
type PurchaseEntry struct {
	FinalPurchasePrice float64   `json:"finalPurchasePrice"`
	UpdatedBy          string    `json:"updatedBy"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// RecordFinalPrice stores the buyer's final price for the row at rowIndex.
// Rows, status and total are never modified.
func (q *Quote) RecordFinalPrice(rowIndex int, finalPrice float64, buyer access.Actor, now time.Time) (PurchaseEntry, error) {
	if err := buyer.Require(access.PermQuotePurchase); err != nil {
		return PurchaseEntry{}, err
	}
	if q.Status != StatusApproved {
		return PurchaseEntry{}, ErrNotApproved
	}
	if rowIndex < 0 || rowIndex >= len(q.Rows) {
		return PurchaseEntry{}, invalid(ErrValidation, "rowIndex", "no row at index "+strconv.Itoa(rowIndex))
	}
	if math.IsNaN(finalPrice) || math.IsInf(finalPrice, 0) || finalPrice < 0 {
		return PurchaseEntry{}, invalid(ErrValidation, "finalPurchasePrice", "price must be a number >= 0")
	}

	entry := PurchaseEntry{
		FinalPurchasePrice: finalPrice,
		UpdatedBy:          buyer.Email,
		UpdatedAt:          now,
	}
	if q.PurchaseData == nil {
		q.PurchaseData = make(map[int]PurchaseEntry)
	}
	q.PurchaseData[rowIndex] = entry
	return entry, nil
}

// MarginAnalysis compares a final purchase price with the quoted price.
// It is computed for display and never stored.
type MarginAnalysis struct {
	OriginalPrice    float64 `json:"originalPrice"`
	OriginalMargin   float64 `json:"originalMargin"`
	OriginalCost     float64 `json:"originalCost"`
	FinalPrice       float64 `json:"finalPrice"`
	NewMargin        float64 `json:"newMargin"`
	MarginDifference float64 `json:"marginDifference"`
	PriceDifference  float64 `json:"priceDifference"`
}

// AnalyzeMargin returns false when an input is missing or unusable;
// callers treat that as "no analysis available".
func AnalyzeMargin(originalPrice, originalMargin, finalPrice float64) (MarginAnalysis, bool) {
	for _, v := range []float64{originalPrice, originalMargin, finalPrice} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return MarginAnalysis{}, false
		}
	}
	if originalPrice <= 0 || finalPrice <= 0 || originalMargin <= -100 {
		return MarginAnalysis{}, false
	}

	originalCost := originalPrice / (1 + originalMargin/100)
	newMargin := (finalPrice - originalCost) / originalCost * 100
	return MarginAnalysis{
		OriginalPrice:    originalPrice,
		OriginalMargin:   originalMargin,
		OriginalCost:     originalCost,
		FinalPrice:       finalPrice,
		NewMargin:        newMargin,
		MarginDifference: newMargin - originalMargin,
		PriceDifference:  finalPrice - originalPrice,
	}, true
}

// AnalyzeRowPurchase runs AnalyzeMargin for a row using its unit sale price
// and margin against the recorded final price.
func (q *Quote) AnalyzeRowPurchase(rowIndex int) (MarginAnalysis, bool) {
	if rowIndex < 0 || rowIndex >= len(q.Rows) {
		return MarginAnalysis{}, false
	}
	entry, ok := q.PurchaseData[rowIndex]
	if !ok {
		return MarginAnalysis{}, false
	}
	row := q.Rows[rowIndex]
	return AnalyzeMargin(row.PvpUnitario, row.Margen, entry.FinalPurchasePrice)
}
