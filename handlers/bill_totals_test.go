package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientbilling/testhelpers"
)

func TestHandleClientBillTotals(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	fx := newBillingFixture(t, app, true)

	handler := HandleClientBillTotals(app, testConfig)

	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, billRequest(fx.project.Id, fx.second.Id, "/totals"), rec)

	require.NoError(t, handler(e))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BillTotalsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "Client Bill #2", resp.BillTitle)
	assert.Equal(t, 1, resp.NumInvoices)
	assert.Equal(t, 1, resp.NumChangeOrders)

	// this bill only: $300 + $100 labor + $25 unbudgeted
	assert.Equal(t, "425.00", resp.Current.Subtotal)
	assert.Equal(t, "42.50", resp.Current.Profit)
	assert.Equal(t, "0.00", resp.Current.SalesTax)
	assert.Equal(t, "467.50", resp.Current.Total)
	assert.Empty(t, resp.Current.Error)

	assert.Equal(t, "100.00", resp.ChangeOrders.Subtotal)
	assert.Equal(t, "110.00", resp.ChangeOrders.Total)

	require.Len(t, resp.Diagnostics, 1)
	assert.EqualValues(t, "unbudgeted", resp.Diagnostics[0].Kind)
}

func TestHandleClientBillTotals_MissingSummary(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	fx := newBillingFixture(t, app, false)

	handler := HandleClientBillTotals(app, testConfig)

	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, billRequest(fx.project.Id, fx.second.Id, "/totals"), rec)

	require.NoError(t, handler(e))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BillTotalsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "425.00", resp.Current.Subtotal)
	assert.Empty(t, resp.Current.Total)
	assert.Contains(t, resp.Current.Error, "missing project summary")
	assert.Contains(t, resp.ChangeOrders.Error, "missing project summary")
}

func TestHandleClientBillTotals_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	handler := HandleClientBillTotals(app, testConfig)

	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, billRequest("proj1", "nonexistent", "/totals"), rec)

	require.NoError(t, handler(e))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
