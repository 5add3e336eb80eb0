package handlers

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"clientbilling/services"
)

// ErrNotFound is returned when a project, bill or budget record is missing or
// the bill does not belong to the project in the URL.
var ErrNotFound = errors.New("not found")

// BillContext is a client bill with everything needed to bill it.
type BillContext struct {
	Project *core.Record
	Bill    *core.Record
	Input   services.BillingInput
}

// LoadClientBill reads a client bill, its project's budget and summary, the
// bill's invoices and labor, and the invoices and labor of every earlier bill
// of the project, into a BillingInput.
func LoadClientBill(app *pocketbase.PocketBase, projectID, billID string, opts services.IndexOptions) (*BillContext, error) {
	bill, err := app.FindRecordById("client_bills", billID)
	if err != nil {
		return nil, fmt.Errorf("client bill %s: %w", billID, ErrNotFound)
	}
	if bill.GetString("project") != projectID {
		return nil, fmt.Errorf("client bill %s in project %s: %w", billID, projectID, ErrNotFound)
	}

	project, err := app.FindRecordById("projects", projectID)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	in := services.BillingInput{
		BillTitle: bill.GetString("title"),
		Index:     opts,
	}

	budget, err := app.FindFirstRecordByFilter("budgets", "project = {:projectId}", map[string]any{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("budget of project %s: %w", projectID, ErrNotFound)
	}
	if err := budget.UnmarshalJSONField("cost_code_tree", &in.Tree); err != nil {
		return nil, fmt.Errorf("decode cost code tree: %w", err)
	}
	if err := unmarshalOptionalJSON(budget, "cost_code_names", &in.CostCodeNames); err != nil {
		return nil, fmt.Errorf("decode cost code names: %w", err)
	}

	// A missing summary is not fatal here; bill totals report it per track.
	summary, err := app.FindFirstRecordByFilter("project_summaries", "project = {:projectId}", map[string]any{"projectId": projectID})
	switch {
	case err == nil:
		in.Summary = summaryFromRecord(summary)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("summary of project %s: %w", projectID, err)
	}

	in.Invoices, in.Labor, err = loadBillLines(app, bill.Id)
	if err != nil {
		return nil, err
	}

	earlier, err := app.FindRecordsByFilter(
		"client_bills",
		"project = {:projectId} && sort_order < {:sortOrder}",
		"sort_order",
		0, 0,
		map[string]any{"projectId": projectID, "sortOrder": bill.GetInt("sort_order")},
	)
	if err != nil {
		return nil, fmt.Errorf("query earlier bills: %w", err)
	}
	for _, prev := range earlier {
		invoices, labor, err := loadBillLines(app, prev.Id)
		if err != nil {
			return nil, err
		}
		in.PriorInvoices = append(in.PriorInvoices, invoices...)
		in.PriorLabor = append(in.PriorLabor, labor...)
	}

	return &BillContext{Project: project, Bill: bill, Input: in}, nil
}

// loadBillLines reads the invoices and labor entries attached to one bill, in
// creation order.
func loadBillLines(app *pocketbase.PocketBase, billID string) ([]services.Invoice, []services.LaborEntry, error) {
	invoiceRecords, err := app.FindRecordsByFilter("invoices", "client_bill = {:billId}", "created", 0, 0, map[string]any{"billId": billID})
	if err != nil {
		return nil, nil, fmt.Errorf("query invoices of bill %s: %w", billID, err)
	}
	invoices := make([]services.Invoice, 0, len(invoiceRecords))
	for _, r := range invoiceRecords {
		inv := services.Invoice{ID: r.Id, Vendor: r.GetString("vendor")}
		if err := unmarshalOptionalJSON(r, "line_items", &inv.LineItems); err != nil {
			return nil, nil, fmt.Errorf("decode line items of invoice %s: %w", r.Id, err)
		}
		invoices = append(invoices, inv)
	}

	laborRecords, err := app.FindRecordsByFilter("labor_entries", "client_bill = {:billId}", "created", 0, 0, map[string]any{"billId": billID})
	if err != nil {
		return nil, nil, fmt.Errorf("query labor of bill %s: %w", billID, err)
	}
	labor := make([]services.LaborEntry, 0, len(laborRecords))
	for _, r := range laborRecords {
		le := services.LaborEntry{ID: r.Id, Name: r.GetString("name")}
		if err := unmarshalOptionalJSON(r, "line_items", &le.LineItems); err != nil {
			return nil, nil, fmt.Errorf("decode line items of labor entry %s: %w", r.Id, err)
		}
		labor = append(labor, le)
	}

	return invoices, labor, nil
}

func summaryFromRecord(r *core.Record) *services.ProjectSummary {
	return &services.ProjectSummary{
		ProfitRate:    decimal.NewFromFloat(r.GetFloat("profit_rate")),
		LiabilityRate: decimal.NewFromFloat(r.GetFloat("liability_rate")),
		BOTaxRate:     decimal.NewFromFloat(r.GetFloat("bo_tax_rate")),
		SalesTaxRate:  decimal.NewFromFloat(r.GetFloat("sales_tax_rate")),
	}
}

// unmarshalOptionalJSON decodes a json field, leaving dst untouched when the
// field was never set.
func unmarshalOptionalJSON(r *core.Record, key string, dst any) error {
	if raw := r.GetString(key); raw == "" || raw == "null" {
		return nil
	}
	return r.UnmarshalJSONField(key, dst)
}
