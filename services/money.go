package services

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Money is a currency (or hours / rate) value decoded from a loosely typed
// source record. Malformed input decodes to zero with Malformed set so the
// caller can flag the record without aborting the bill run.
type Money struct {
	Value     decimal.Decimal
	Raw       string
	Malformed bool
}

// ParseMoney coerces a JSON number, numeric string ("$1,250.00", "1250") or
// decimal into Money. nil and empty strings are zero and not malformed.
func ParseMoney(v any) Money {
	switch t := v.(type) {
	case nil:
		return Money{Value: decimal.Zero}
	case decimal.Decimal:
		return Money{Value: t, Raw: t.String()}
	case Money:
		return t
	}

	raw, err := cast.ToStringE(v)
	if err != nil {
		return Money{Value: decimal.Zero, Malformed: true}
	}

	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return Money{Value: decimal.Zero, Raw: raw}
	}

	// Accounting-style negatives: (125.00)
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + strings.TrimSuffix(strings.TrimPrefix(cleaned, "("), ")")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Money{Value: decimal.Zero, Raw: raw, Malformed: true}
	}
	return Money{Value: d, Raw: raw}
}

// Amount is shorthand for a well-formed Money value.
func Amount(s string) Money {
	return ParseMoney(s)
}

// MarshalJSON writes the numeric value; malformed input round-trips as its raw text.
func (m Money) MarshalJSON() ([]byte, error) {
	if m.Malformed {
		return json.Marshal(m.Raw)
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts anything and never fails on a bad number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = ParseMoney(v)
	return nil
}
