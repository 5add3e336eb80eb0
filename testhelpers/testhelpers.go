// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"clientbilling/collections"
	"clientbilling/services"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	if err := collections.Setup(app); err != nil {
		t.Fatalf("failed to set up collections: %v", err)
	}

	return app
}

func saveRecord(t *testing.T, app *pocketbase.PocketBase, collection string, fields map[string]any) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId(collection)
	if err != nil {
		t.Fatalf("failed to find %s collection: %v", collection, err)
	}

	record := core.NewRecord(col)
	for k, v := range fields {
		record.Set(k, v)
	}
	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save %s record: %v", collection, err)
	}
	return record
}

// CreateTestProject creates a project record with the given name and returns it.
func CreateTestProject(t *testing.T, app *pocketbase.PocketBase, name string) *core.Record {
	t.Helper()
	return saveRecord(t, app, "projects", map[string]any{
		"name":   name,
		"status": "active",
	})
}

// CreateTestSummary stores the billing rates of a project.
func CreateTestSummary(t *testing.T, app *pocketbase.PocketBase, projectID string, profit, liability, boTax, salesTax float64) *core.Record {
	t.Helper()
	return saveRecord(t, app, "project_summaries", map[string]any{
		"project":        projectID,
		"profit_rate":    profit,
		"liability_rate": liability,
		"bo_tax_rate":    boTax,
		"sales_tax_rate": salesTax,
	})
}

// CreateTestBudget stores a cost-code tree as the budget of a project.
func CreateTestBudget(t *testing.T, app *pocketbase.PocketBase, projectID string, tree services.CostCodeTree) *core.Record {
	t.Helper()
	return saveRecord(t, app, "budgets", map[string]any{
		"project":        projectID,
		"cost_code_tree": tree,
	})
}

// CreateTestBill creates a draft client bill at the given position.
func CreateTestBill(t *testing.T, app *pocketbase.PocketBase, projectID, title string, sortOrder int) *core.Record {
	t.Helper()
	return saveRecord(t, app, "client_bills", map[string]any{
		"project":    projectID,
		"title":      title,
		"sort_order": sortOrder,
		"status":     "draft",
	})
}

// CreateTestInvoice attaches a vendor invoice to a client bill.
func CreateTestInvoice(t *testing.T, app *pocketbase.PocketBase, billID, vendor string, items []services.LineItem) *core.Record {
	t.Helper()
	return saveRecord(t, app, "invoices", map[string]any{
		"client_bill": billID,
		"vendor":      vendor,
		"line_items":  items,
	})
}

// CreateTestLabor attaches a labor entry to a client bill.
func CreateTestLabor(t *testing.T, app *pocketbase.PocketBase, billID, name string, items []services.LaborLineItem) *core.Record {
	t.Helper()
	return saveRecord(t, app, "labor_entries", map[string]any{
		"client_bill": billID,
		"name":        name,
		"line_items":  items,
	})
}

// AssertHTMLContains checks that body contains all specified fragments.
func AssertHTMLContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected HTML to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
