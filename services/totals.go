package services

import (
	"github.com/shopspring/decimal"
)

// Totals is the reduced subtotal of one actuals tree.
type Totals struct {
	// Total is the subtotal formatted for display ("33,511.16").
	Total         string          `json:"total"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	IsChangeOrder bool            `json:"isChangeOrder"`
}

// CalculateTotals sums the leaf actuals of a tree. The profit/taxes/liability
// bucket is excluded since bill totals derive it from this subtotal; the
// unbudgeted bucket is included.
func CalculateTotals(tree ActualsTree, isChangeOrder bool) Totals {
	sum := decimal.Zero
	for _, leaf := range tree.Leaves() {
		if leaf.Role == RoleProfitTaxesLiability {
			continue
		}
		sum = sum.Add(leaf.Actual)
	}
	sum = sum.Round(2)
	return Totals{
		Total:         FormatCurrency(sum),
		Subtotal:      sum,
		IsChangeOrder: isChangeOrder,
	}
}
