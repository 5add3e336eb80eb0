package collections

import (
	"fmt"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"clientbilling/services"
)

// ── Definition structs ───────────────────────────────────────────────────

type invoiceDef struct {
	vendor        string
	invoiceNumber string
	lineItems     []services.LineItem
}

type laborDef struct {
	name      string
	lineItems []services.LaborLineItem
}

type billDef struct {
	title    string
	status   string
	invoices []invoiceDef
	labor    []laborDef
}

// ── Seed data ────────────────────────────────────────────────────────────

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedCostCodeTree() services.CostCodeTree {
	return services.CostCodeTree{Divisions: []services.Division{
		{Number: "01", Name: "General Requirements", Subdivisions: []services.Subdivision{
			{Number: "01.1", Name: "Project Management", CostCodes: []services.CostCode{
				{ID: "01.100", Name: "Supervision", Budget: d("40000")},
				{ID: "01.110", Name: "Permits", Budget: d("3500")},
			}},
			{Number: "01.2", Name: "Temporary Facilities", CostCodes: []services.CostCode{
				{ID: "01.200", Name: "Temp Power", Budget: d("2500")},
				{ID: "01.210", Name: "Portable Toilets", Budget: d("1200")},
			}},
		}},
		{Number: "02", Name: "Site Work", CostCodes: []services.CostCode{
			{ID: "02.100", Name: "Demolition", Budget: d("8000")},
			{ID: "02.200", Name: "Excavation", Budget: d("15000")},
		}},
		{Number: "03", Name: "Concrete", Subdivisions: []services.Subdivision{
			{Number: "03.1", Name: "Foundations", CostCodes: []services.CostCode{
				{ID: "03.110", Name: "Footings", Budget: d("12500")},
				{ID: "03.120", Name: "Slab on Grade", Budget: d("9800")},
			}},
		}},
		{Number: "06", Name: "Wood & Plastics", Subdivisions: []services.Subdivision{
			{Number: "06.1", Name: "Rough Carpentry", CostCodes: []services.CostCode{
				{ID: "06.100", Name: "Framing Labor", Budget: d("18000")},
				{ID: "06.110", Name: "Framing Material", Budget: d("22000")},
			}},
		}},
		{Number: "09", Name: "Finishes", Subdivisions: []services.Subdivision{
			{Number: "09.2", Name: "Drywall", CostCodes: []services.CostCode{
				{ID: "09.250", Name: "Gypsum Board", Budget: d("13000")},
			}},
			{Number: "09.9", Name: "Painting", CostCodes: []services.CostCode{
				{ID: "09.900", Name: "Paint", Budget: d("7500")},
			}},
		}},
		{Number: "15", Name: "Mechanical", CostCodes: []services.CostCode{
			{ID: "15.400", Name: "Plumbing", Budget: d("21000")},
			{ID: "15.700", Name: "HVAC", Budget: d("24000")},
		}},
		{Number: "20", Name: "Profit, Taxes, and Liability", CostCodes: []services.CostCode{
			{ID: "20.000", Name: "Profit, Taxes, and Liability"},
		}},
	}}
}

func seedBills() []billDef {
	amt := services.Amount
	bonusRoom := &services.ChangeOrderRef{ID: "co-1", Name: "CO #1 Add bonus room"}

	return []billDef{
		{
			title:  "Client Bill #1",
			status: "paid",
			invoices: []invoiceDef{
				{vendor: "Cascade Supply", invoiceNumber: "CS-1042", lineItems: []services.LineItem{
					{CostCode: "01.110", Description: "Building permit", Amount: amt("1,250.00")},
					{CostCode: "02.100", Description: "Interior demo", Amount: amt("4,875.50")},
				}},
			},
			labor: []laborDef{
				{name: "J. Rivera", lineItems: []services.LaborLineItem{
					{CostCode: "01.100", Description: "Site supervision", Hours: amt("30"), Rate: amt("85")},
				}},
			},
		},
		{
			title:  "Client Bill #2",
			status: "draft",
			invoices: []invoiceDef{
				{vendor: "Northwest Lumber", invoiceNumber: "NWL-88213", lineItems: []services.LineItem{
					{CostCode: "06.110", Description: "Framing package", SubItems: []services.LineItem{
						{Description: "Studs and plates", Amount: amt("6,120.40")},
						{Description: "Sheathing", Amount: amt("1,045.60")},
					}},
					{CostCode: "09.250", Description: "Bonus room drywall", Amount: amt("4,850.00"), ChangeOrder: bonusRoom},
				}},
				{vendor: "Evergreen Plumbing", invoiceNumber: "EP-311", lineItems: []services.LineItem{
					{CostCode: "15.400", Description: "Rough-in", Amount: amt("12,870.55")},
					{CostCode: "Gutters", Description: "Seamless gutters", Amount: amt("1,180.00")},
				}},
			},
			labor: []laborDef{
				{name: "J. Rivera", lineItems: []services.LaborLineItem{
					{CostCode: "06.100", Description: "Framing", Hours: amt("32"), Rate: amt("62.35")},
					{CostCode: "09.250", Description: "Bonus room hang", Hours: amt("18.5"), Rate: amt("62.35"), ChangeOrder: bonusRoom},
				}},
			},
		},
	}
}

// Seed populates the collections with a demo project, its budget and two
// client bills. It is safe to call on every startup because it returns early
// if any project records already exist.
func Seed(app *pocketbase.PocketBase) error {
	// ── idempotency: skip if projects already exist ──────────────────
	projectsCol, err := app.FindCollectionByNameOrId("projects")
	if err != nil {
		return fmt.Errorf("seed: could not find projects collection: %w", err)
	}
	existing, err := app.FindAllRecords(projectsCol)
	if err != nil {
		return fmt.Errorf("seed: could not query projects: %w", err)
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	zap.L().Info("seed: projects collection is empty, inserting seed data")

	// ── lookup helper collections ────────────────────────────────────
	cols := make(map[string]*core.Collection)
	for _, name := range []string{"project_summaries", "budgets", "client_bills", "invoices", "labor_entries"} {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			return fmt.Errorf("seed: could not find %s collection: %w", name, err)
		}
		cols[name] = col
	}

	project := core.NewRecord(projectsCol)
	project.Set("name", "Lakeview Remodel")
	project.Set("client_name", "Dana & Chris Whitford")
	project.Set("reference_number", "LV-2026-014")
	project.Set("status", "active")
	if err := app.Save(project); err != nil {
		return fmt.Errorf("seed: save project: %w", err)
	}

	summary := core.NewRecord(cols["project_summaries"])
	summary.Set("project", project.Id)
	summary.Set("profit_rate", 0.12)
	summary.Set("liability_rate", 0.00986)
	summary.Set("bo_tax_rate", 0.005)
	summary.Set("sales_tax_rate", 0.101)
	if err := app.Save(summary); err != nil {
		return fmt.Errorf("seed: save project summary: %w", err)
	}

	budget := core.NewRecord(cols["budgets"])
	budget.Set("project", project.Id)
	budget.Set("cost_code_tree", seedCostCodeTree())
	budget.Set("cost_code_names", []services.CostCodeName{
		{ID: "09.900", Label: "Painting - Interior & Exterior"},
	})
	if err := app.Save(budget); err != nil {
		return fmt.Errorf("seed: save budget: %w", err)
	}

	for i, bd := range seedBills() {
		bill := core.NewRecord(cols["client_bills"])
		bill.Set("project", project.Id)
		bill.Set("title", bd.title)
		bill.Set("sort_order", i+1)
		bill.Set("status", bd.status)
		if err := app.Save(bill); err != nil {
			return fmt.Errorf("seed: save bill %q: %w", bd.title, err)
		}

		for _, inv := range bd.invoices {
			r := core.NewRecord(cols["invoices"])
			r.Set("client_bill", bill.Id)
			r.Set("vendor", inv.vendor)
			r.Set("invoice_number", inv.invoiceNumber)
			r.Set("line_items", inv.lineItems)
			if err := app.Save(r); err != nil {
				return fmt.Errorf("seed: save invoice %s: %w", inv.invoiceNumber, err)
			}
		}

		for _, le := range bd.labor {
			r := core.NewRecord(cols["labor_entries"])
			r.Set("client_bill", bill.Id)
			r.Set("name", le.name)
			r.Set("line_items", le.lineItems)
			if err := app.Save(r); err != nil {
				return fmt.Errorf("seed: save labor for %s: %w", le.name, err)
			}
		}
	}

	zap.L().Info("seed: done", zap.String("project", project.Id))
	return nil
}
