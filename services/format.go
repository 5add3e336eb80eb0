package services

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatCurrency formats an amount with thousands separators and exactly
// 2 decimal places (e.g. 33511.16 -> "33,511.16"). Half-cent values are
// rounded away from zero.
func FormatCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	negative := rounded.IsNegative()

	raw := rounded.Abs().StringFixed(2)
	parts := strings.SplitN(raw, ".", 2)

	whole := humanize.Comma(rounded.Abs().Truncate(0).IntPart())
	result := whole + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// FormatMoney prefixes FormatCurrency with a currency symbol, keeping the sign
// in front of the symbol (-$1,250.00).
func FormatMoney(symbol string, amount decimal.Decimal) string {
	formatted := FormatCurrency(amount)
	if strings.HasPrefix(formatted, "-") {
		return "-" + symbol + formatted[1:]
	}
	return symbol + formatted
}

// FormatPercent renders a report percentage with one decimal place, or "—"
// when the percentage is undefined.
func FormatPercent(p PercentValue) string {
	if !p.Valid {
		return "—"
	}
	return p.Value.StringFixed(1) + "%"
}
