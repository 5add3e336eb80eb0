package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/a-h/templ"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"clientbilling/config"
	"clientbilling/observability"
	"clientbilling/services"
	"clientbilling/templates"
)

// buildBillingReport loads a client bill and runs it through the aggregator,
// totals and flattener. Aggregation diagnostics are logged at warn level.
func buildBillingReport(app *pocketbase.PocketBase, cfg config.Config, logger *zap.Logger, projectID, billID string) (*BillContext, services.BillingReportData, error) {
	bc, err := LoadClientBill(app, projectID, billID, services.IndexOptions{
		ProfitTaxesLiabilityCodes: cfg.ProfitTaxesLiabilityCodes,
	})
	if err != nil {
		return nil, services.BillingReportData{}, err
	}

	result := services.CreateBudgetActuals(bc.Input)
	logDiagnostics(logger, billID, result.Diagnostics)

	createdDate := "—"
	if dt := bc.Bill.GetDateTime("created"); !dt.IsZero() {
		createdDate = dt.Time().Format("Jan 2, 2006")
	}

	data := services.BuildBillingReport(result, bc.Input.Summary, services.ReportMeta{
		CompanyName:    cfg.CompanyName,
		ProjectName:    bc.Project.GetString("name"),
		CreatedDate:    createdDate,
		CurrencySymbol: cfg.CurrencySymbol,
	}, services.ReportOptions{SkipEmpty: cfg.SkipEmptyRows})

	for _, tr := range []services.TrackReport{data.Current, data.ChangeOrders} {
		if tr.Err != nil {
			logger.Warn("bill totals unavailable",
				zap.String("bill_id", billID),
				zap.String("track", tr.Label),
				zap.Error(tr.Err),
			)
		}
	}

	return bc, data, nil
}

func logDiagnostics(logger *zap.Logger, billID string, diags []services.Diagnostic) {
	for _, d := range diags {
		logger.Warn("billing line skipped or flagged",
			zap.String("bill_id", billID),
			zap.String("kind", string(d.Kind)),
			zap.String("source", d.Source),
			zap.String("record_id", d.RecordID),
			zap.Int("line", d.Line),
			zap.String("detail", d.Detail),
		)
	}
}

// reportStatus maps a loader error to an HTTP status.
func reportStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// HandleClientBillView renders the budget-to-actuals screen of a client bill.
// Route: GET /projects/{projectId}/bills/{billId}
func HandleClientBillView(app *pocketbase.PocketBase, cfg config.Config) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		billID := e.Request.PathValue("billId")
		logger := observability.FromContext(e.Request.Context())

		_, data, err := buildBillingReport(app, cfg, logger, projectID, billID)
		if err != nil {
			logger.Error("client bill view", zap.String("bill_id", billID), zap.Error(err))
			status := reportStatus(err)
			if status == http.StatusNotFound {
				return e.String(status, "Client bill not found")
			}
			return e.String(status, "Failed to load client bill")
		}

		view := clientBillView(projectID, billID, data)

		var component templ.Component
		if e.Request.Header.Get("HX-Request") == "true" {
			component = templates.ClientBillContent(view)
		} else {
			component = templates.ClientBillPage(view)
		}
		return component.Render(e.Request.Context(), e.Response)
	}
}

func clientBillView(projectID, billID string, data services.BillingReportData) templates.ClientBillViewData {
	view := templates.ClientBillViewData{
		ProjectID:       projectID,
		ProjectName:     data.ProjectName,
		BillID:          billID,
		BillTitle:       data.BillTitle,
		CompanyName:     data.CompanyName,
		CreatedDate:     data.CreatedDate,
		NumInvoices:     data.NumInvoices,
		NumChangeOrders: data.NumChangeOrders,
		Tracks: []templates.TrackView{
			trackView(data.Current, data.CurrencySymbol),
			trackView(data.ChangeOrders, data.CurrencySymbol),
		},
	}
	for _, d := range data.Diagnostics {
		view.Diagnostics = append(view.Diagnostics, templates.DiagnosticView{
			Kind:   string(d.Kind),
			Source: fmt.Sprintf("%s %s line %d", d.Source, d.RecordID, d.Line),
			Detail: d.Detail,
		})
	}
	return view
}

func trackView(tr services.TrackReport, symbol string) templates.TrackView {
	tv := templates.TrackView{Label: tr.Label}
	for _, r := range tr.Rows {
		tv.Rows = append(tv.Rows, templates.BillRowView{
			Title:      r.Title,
			Depth:      r.Depth,
			Budget:     services.FormatMoney(symbol, r.Budget),
			Actual:     services.FormatMoney(symbol, r.Actual),
			Difference: services.FormatMoney(symbol, r.Difference),
			Percent:    services.FormatPercent(r.Percent),
			Unbudgeted: r.Role == services.RoleUnbudgeted,
			OverBudget: r.Difference.IsNegative(),
		})
	}

	if tr.Err != nil {
		tv.Error = tr.Err.Error()
		return tv
	}

	bt := tr.BillTotals
	tv.Summary = []templates.SummaryLine{
		{Label: "Subtotal", Value: services.FormatMoney(symbol, bt.Subtotal)},
		{Label: "Profit", Value: services.FormatMoney(symbol, bt.Profit)},
		{Label: "Liability Insurance", Value: services.FormatMoney(symbol, bt.Liability)},
		{Label: "B&O Tax", Value: services.FormatMoney(symbol, bt.BOTax)},
		{Label: "Sales Tax", Value: services.FormatMoney(symbol, bt.SalesTax)},
		{Label: "Total", Value: services.FormatMoney(symbol, bt.Total), Bold: true},
	}
	return tv
}

// HandleBillList lists the client bills of a project in billing order.
// Route: GET /projects/{projectId}/bills
func HandleBillList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		logger := observability.FromContext(e.Request.Context())

		project, err := app.FindRecordById("projects", projectID)
		if err != nil {
			return e.String(http.StatusNotFound, "Project not found")
		}

		records, err := app.FindRecordsByFilter(
			"client_bills",
			"project = {:projectId}",
			"sort_order",
			0, 0,
			map[string]any{"projectId": projectID},
		)
		if err != nil {
			logger.Error("bill list: query bills", zap.String("project_id", projectID), zap.Error(err))
			return e.String(http.StatusInternalServerError, "Failed to load client bills")
		}

		data := templates.BillListData{
			ProjectID:   projectID,
			ProjectName: project.GetString("name"),
		}
		for _, r := range records {
			data.Bills = append(data.Bills, templates.BillListItem{
				ID:        r.Id,
				Title:     r.GetString("title"),
				Status:    r.GetString("status"),
				SortOrder: r.GetInt("sort_order"),
			})
		}

		var component templ.Component
		if e.Request.Header.Get("HX-Request") == "true" {
			component = templates.BillListContent(data)
		} else {
			component = templates.BillListPage(data)
		}
		return component.Render(e.Request.Context(), e.Response)
	}
}
