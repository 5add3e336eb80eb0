package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"clientbilling/config"
	"clientbilling/observability"
	"clientbilling/services"
)

// TrackTotalsResponse is the bill totals of one track. Amounts are fixed to
// cents.
type TrackTotalsResponse struct {
	Label     string `json:"label"`
	Subtotal  string `json:"subtotal"`
	Profit    string `json:"profit,omitempty"`
	Liability string `json:"liability,omitempty"`
	BOTax     string `json:"boTax,omitempty"`
	SalesTax  string `json:"salesTax,omitempty"`
	Total     string `json:"total,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BillTotalsResponse is the JSON summary of a client bill.
type BillTotalsResponse struct {
	BillTitle       string                `json:"billTitle"`
	NumInvoices     int                   `json:"numInvoices"`
	NumChangeOrders int                   `json:"numChangeOrders"`
	Current         TrackTotalsResponse   `json:"current"`
	ChangeOrders    TrackTotalsResponse   `json:"changeOrders"`
	Diagnostics     []services.Diagnostic `json:"diagnostics,omitempty"`
}

// HandleClientBillTotals returns the current-bill and change-order totals of a
// client bill as JSON.
// Route: GET /projects/{projectId}/bills/{billId}/totals
func HandleClientBillTotals(app *pocketbase.PocketBase, cfg config.Config) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		billID := e.Request.PathValue("billId")
		logger := observability.FromContext(e.Request.Context())

		_, data, err := buildBillingReport(app, cfg, logger, projectID, billID)
		if err != nil {
			logger.Error("client bill totals", zap.String("bill_id", billID), zap.Error(err))
			status := reportStatus(err)
			return e.JSON(status, map[string]string{"error": http.StatusText(status)})
		}

		return e.JSON(http.StatusOK, BillTotalsResponse{
			BillTitle:       data.BillTitle,
			NumInvoices:     data.NumInvoices,
			NumChangeOrders: data.NumChangeOrders,
			Current:         trackTotals(data.Current),
			ChangeOrders:    trackTotals(data.ChangeOrders),
			Diagnostics:     data.Diagnostics,
		})
	}
}

func trackTotals(tr services.TrackReport) TrackTotalsResponse {
	resp := TrackTotalsResponse{
		Label:    tr.Label,
		Subtotal: tr.Totals.Subtotal.StringFixed(2),
	}
	if tr.Err != nil {
		resp.Error = tr.Err.Error()
		return resp
	}
	bt := tr.BillTotals
	resp.Profit = bt.Profit.StringFixed(2)
	resp.Liability = bt.Liability.StringFixed(2)
	resp.BOTax = bt.BOTax.StringFixed(2)
	resp.SalesTax = bt.SalesTax.StringFixed(2)
	resp.Total = bt.Total.StringFixed(2)
	return resp
}
