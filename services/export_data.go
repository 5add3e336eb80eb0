package services

import (
	"fmt"
)

// TrackReport is the table and totals of one billing track.
type TrackReport struct {
	Label      string
	Rows       []ReportRow
	Totals     Totals
	BillTotals BillTotals
	// Err is set when bill totals could not be computed for this track.
	Err error
}

// BillingReportData holds everything the HTML, PDF and Excel renderers need.
type BillingReportData struct {
	CompanyName     string
	ProjectName     string
	BillTitle       string
	CreatedDate     string
	CurrencySymbol  string
	NumInvoices     int
	NumChangeOrders int
	Current         TrackReport
	ChangeOrders    TrackReport
	Diagnostics     []Diagnostic
}

// ReportMeta names the bill for rendering.
type ReportMeta struct {
	CompanyName    string
	ProjectName    string
	CreatedDate    string
	CurrencySymbol string
}

// BuildBillingReport reduces an aggregation result into renderable data.
// Bill totals are computed per track; a failure on one track is recorded on
// that track and does not stop the other.
func BuildBillingReport(result BudgetActualsResult, summary *ProjectSummary, meta ReportMeta, opts ReportOptions) BillingReportData {
	symbol := meta.CurrencySymbol
	if symbol == "" {
		symbol = "$"
	}

	data := BillingReportData{
		CompanyName:     meta.CompanyName,
		ProjectName:     meta.ProjectName,
		BillTitle:       result.BillTitle,
		CreatedDate:     meta.CreatedDate,
		CurrencySymbol:  symbol,
		NumInvoices:     result.NumInvoices,
		NumChangeOrders: result.NumChangeOrders,
		Diagnostics:     result.Diagnostics,
	}

	data.Current = buildTrack("Current Bill", result.BudgetActuals, result.InvoiceBudgetActuals, false, summary, opts)
	data.ChangeOrders = buildTrack("Change Orders", result.BudgetActualsChangeOrders, result.InvoiceBudgetActualsChangeOrders, true, summary, opts)
	return data
}

// buildTrack lists the cumulative tree and bills this bill's subtotal.
func buildTrack(label string, cumulative, bill ActualsTree, isChangeOrder bool, summary *ProjectSummary, opts ReportOptions) TrackReport {
	tr := TrackReport{
		Label:  label,
		Rows:   FlattenReport(cumulative, opts),
		Totals: CalculateTotals(bill, isChangeOrder),
	}
	bt, err := CalculateBillTotal(summary, tr.Totals.Subtotal)
	if err != nil {
		tr.Err = fmt.Errorf("%s: %w", label, err)
		return tr
	}
	tr.BillTotals = bt
	return tr
}
