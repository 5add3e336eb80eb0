package handlers

import (
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"clientbilling/config"
	"clientbilling/services"
	"clientbilling/testhelpers"
)

var testConfig = config.Config{
	CompanyName:    "Acme Builders",
	CurrencySymbol: "$",
}

type billingFixture struct {
	project *core.Record
	first   *core.Record
	second  *core.Record
}

func testTree() services.CostCodeTree {
	return services.CostCodeTree{Divisions: []services.Division{
		{
			Number: "01", Name: "General Requirements",
			CostCodes: []services.CostCode{
				{ID: "01.100", Name: "Supervision", Budget: decimal.RequireFromString("1000")},
			},
		},
		{
			Number: "02", Name: "Site Work",
			CostCodes: []services.CostCode{
				{ID: "02.100", Name: "Demolition", Budget: decimal.RequireFromString("500")},
			},
		},
	}}
}

// newBillingFixture stores a project with a two-bill history:
//
//	bill 1: 01.100 $200
//	bill 2: 01.100 $300 + 2h @ $50, 02.100 $100 on change order co-1,
//	        99.999 $25 (not in the budget)
func newBillingFixture(t *testing.T, app *pocketbase.PocketBase, withSummary bool) billingFixture {
	t.Helper()

	project := testhelpers.CreateTestProject(t, app, "Lakeview Remodel")
	if withSummary {
		testhelpers.CreateTestSummary(t, app, project.Id, 0.10, 0, 0, 0)
	}
	testhelpers.CreateTestBudget(t, app, project.Id, testTree())

	first := testhelpers.CreateTestBill(t, app, project.Id, "Client Bill #1", 1)
	testhelpers.CreateTestInvoice(t, app, first.Id, "Harbor Permits", []services.LineItem{
		{CostCode: "01.100", Amount: services.Amount("200")},
	})

	second := testhelpers.CreateTestBill(t, app, project.Id, "Client Bill #2", 2)
	testhelpers.CreateTestInvoice(t, app, second.Id, "Northside Lumber", []services.LineItem{
		{CostCode: "01.100", Amount: services.Amount("300")},
		{CostCode: "02.100", Amount: services.Amount("100"), ChangeOrder: &services.ChangeOrderRef{ID: "co-1", Name: "Deck"}},
		{CostCode: "99.999", Amount: services.Amount("25")},
	})
	testhelpers.CreateTestLabor(t, app, second.Id, "J. Ortiz", []services.LaborLineItem{
		{CostCode: "01.100", Hours: services.Amount("2"), Rate: services.Amount("50")},
	})

	return billingFixture{project: project, first: first, second: second}
}
