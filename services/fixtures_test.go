package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// loadBillingInput reads a BillingInput fixture from testdata/.
func loadBillingInput(t *testing.T, name string) BillingInput {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err, "read fixture %s", name)

	var in BillingInput
	require.NoError(t, json.Unmarshal(raw, &in), "decode fixture %s", name)
	return in
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// requireMoney compares decimals at cent precision with a readable message.
func requireMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	require.Equal(t, dec(want).StringFixed(2), got.StringFixed(2), field)
}
