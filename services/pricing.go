package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrIncompleteInput is returned when a calculation is missing the context
// it needs (e.g. no project summary); a zero bill would be misleading.
var ErrIncompleteInput = errors.New("incomplete billing input")

// BillTotals is the financial summary of one billing track.
type BillTotals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Profit    decimal.Decimal `json:"profit"`
	Liability decimal.Decimal `json:"liability"`
	BOTax     decimal.Decimal `json:"boTax"`
	SalesTax  decimal.Decimal `json:"salesTax"`
	Total     decimal.Decimal `json:"total"`
}

// CalculateBillTotal derives profit, liability insurance, B&O tax and sales
// tax from a subtotal. Each charge applies to the running base (subtotal plus
// the charges before it). Every reported figure is rounded to cents on its
// own and the total is the rounded running base, so the total can differ by
// a cent from the sum of the rounded parts.
func CalculateBillTotal(summary *ProjectSummary, subtotal decimal.Decimal) (BillTotals, error) {
	if summary == nil {
		return BillTotals{}, fmt.Errorf("calculate bill total: %w: missing project summary", ErrIncompleteInput)
	}
	if err := validateRates(summary); err != nil {
		return BillTotals{}, fmt.Errorf("calculate bill total: %w", err)
	}

	base := subtotal
	charge := func(rate decimal.Decimal) decimal.Decimal {
		c := base.Mul(rate)
		base = base.Add(c)
		return c
	}

	profit := charge(summary.ProfitRate)
	liability := charge(summary.LiabilityRate)
	boTax := charge(summary.BOTaxRate)
	salesTax := charge(summary.SalesTaxRate)

	return BillTotals{
		Subtotal:  subtotal.Round(2),
		Profit:    profit.Round(2),
		Liability: liability.Round(2),
		BOTax:     boTax.Round(2),
		SalesTax:  salesTax.Round(2),
		Total:     base.Round(2),
	}, nil
}

func validateRates(s *ProjectSummary) error {
	rates := []struct {
		name string
		rate decimal.Decimal
	}{
		{"profit", s.ProfitRate},
		{"liability", s.LiabilityRate},
		{"b&o tax", s.BOTaxRate},
		{"sales tax", s.SalesTaxRate},
	}
	for _, r := range rates {
		if r.rate.IsNegative() {
			return fmt.Errorf("%w: negative %s rate %s", ErrIncompleteInput, r.name, r.rate)
		}
	}
	return nil
}
