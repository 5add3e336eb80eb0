package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBudgetActuals_FixtureA(t *testing.T) {
	in := loadBillingInput(t, "bill_a.json")
	res := CreateBudgetActuals(in)

	assert.Equal(t, "Client Bill #3", res.BillTitle)
	assert.Equal(t, 6, res.NumInvoices)
	assert.Equal(t, 0, res.NumChangeOrders)

	assert.Equal(t, 13, res.InvoiceBudgetActuals.Len(), "current bucket count")
	assert.Equal(t, 0, res.InvoiceBudgetActualsChangeOrders.Len(), "change order bucket count")

	totals := CalculateTotals(res.InvoiceBudgetActuals, false)
	assert.Equal(t, "33,511.16", totals.Total)
	requireMoney(t, "33511.16", totals.Subtotal, "subtotal")

	co := CalculateTotals(res.InvoiceBudgetActualsChangeOrders, true)
	assert.Equal(t, "0.00", co.Total)
	assert.True(t, co.Subtotal.IsZero())
}

func TestCreateBudgetActuals_FixtureB(t *testing.T) {
	in := loadBillingInput(t, "bill_b.json")
	res := CreateBudgetActuals(in)

	assert.Equal(t, 11, res.NumInvoices)
	assert.Equal(t, 3, res.NumChangeOrders)
	assert.Equal(t, 12, res.InvoiceBudgetActuals.Len())
	assert.Equal(t, 1, res.InvoiceBudgetActualsChangeOrders.Len())

	current := CalculateTotals(res.InvoiceBudgetActuals, false)
	assert.Equal(t, "94,715.70", current.Total)

	co := CalculateTotals(res.InvoiceBudgetActualsChangeOrders, true)
	assert.Equal(t, "16,281.31", co.Total)

	div, ok := res.InvoiceBudgetActualsChangeOrders.Division("09")
	require.True(t, ok)
	requireMoney(t, "16281.31", div.Actual, "change order division 09")
}

func TestCreateBudgetActuals_FirstEncounteredOrder(t *testing.T) {
	in := loadBillingInput(t, "bill_a.json")
	res := CreateBudgetActuals(in)

	var got []string
	for _, d := range res.InvoiceBudgetActuals.Divisions {
		got = append(got, d.Number)
	}
	want := []string{"01", "02", "03", "06", "05", "04", "07", "08", "09", "16", "20", "15", UnbudgetedNumber}
	assert.Equal(t, want, got)
}

func TestCreateBudgetActuals_Idempotent(t *testing.T) {
	in := loadBillingInput(t, "bill_b.json")
	first := CreateBudgetActuals(in)
	second := CreateBudgetActuals(in)
	assert.Equal(t, first, second)
}

func TestCreateBudgetActuals_DivisionSumsMatchLeaves(t *testing.T) {
	for _, name := range []string{"bill_a.json", "bill_b.json"} {
		t.Run(name, func(t *testing.T) {
			res := CreateBudgetActuals(loadBillingInput(t, name))
			trees := []ActualsTree{
				res.BudgetActuals, res.BudgetActualsChangeOrders,
				res.InvoiceBudgetActuals, res.InvoiceBudgetActualsChangeOrders,
			}
			for _, tree := range trees {
				for _, d := range tree.Divisions {
					sum := decimal.Zero
					for _, cc := range d.CostCodes {
						sum = sum.Add(cc.Actual)
					}
					for _, s := range d.Subdivisions {
						subSum := decimal.Zero
						for _, cc := range s.CostCodes {
							subSum = subSum.Add(cc.Actual)
						}
						assert.True(t, subSum.Equal(s.Actual), "subdivision %s: leaves %s != %s", s.Number, subSum, s.Actual)
						sum = sum.Add(subSum)
					}
					assert.True(t, sum.Equal(d.Actual), "division %s: leaves %s != %s", d.Number, sum, d.Actual)
				}
			}
		})
	}
}

func TestCreateBudgetActuals_CumulativeTreeHasAllBudgetLines(t *testing.T) {
	in := loadBillingInput(t, "bill_a.json")
	res := CreateBudgetActuals(in)

	idx := BuildCostCodeIndex(in.Tree, in.CostCodeNames, in.Index)
	leaves := make(map[string]ActualsCostCode)
	for _, cc := range res.BudgetActuals.Leaves() {
		leaves[cc.ID] = cc
	}
	for _, e := range idx.Entries() {
		if e.Budget.IsZero() {
			continue
		}
		_, ok := leaves[e.ID]
		assert.True(t, ok, "budgeted cost code %s missing from cumulative tree", e.ID)
	}

	// Untouched budget line stays at zero.
	toilets, ok := leaves["01.210"]
	require.True(t, ok)
	assert.True(t, toilets.Actual.IsZero())

	// Prior bill amounts are folded into the cumulative tree only.
	div01, ok := res.BudgetActuals.Division("01")
	require.True(t, ok)
	requireMoney(t, "5720.00", div01.Actual, "cumulative division 01")
	requireMoney(t, "47200.00", div01.Budget, "division 01 budget")

	bill01, ok := res.InvoiceBudgetActuals.Division("01")
	require.True(t, ok)
	requireMoney(t, "4820.00", bill01.Actual, "bill division 01")
}

func TestCreateBudgetActuals_Diagnostics(t *testing.T) {
	res := CreateBudgetActuals(loadBillingInput(t, "bill_a.json"))

	counts := make(map[DiagnosticKind]int)
	for _, d := range res.Diagnostics {
		counts[d.Kind]++
	}
	// "TBD" invoice amount + "abc" labor hours.
	assert.Equal(t, 2, counts[DiagMalformedAmount])
	// 98.000 and a line with no cost code.
	assert.Equal(t, 2, counts[DiagUnbudgeted])
	assert.Equal(t, 1, counts[DiagNonBillable])
}

func TestCreateBudgetActuals_Unbudgeted(t *testing.T) {
	in := BillingInput{
		Tree: CostCodeTree{Divisions: []Division{
			{Number: "03", Name: "Concrete", CostCodes: []CostCode{{ID: "03.100", Name: "Footings", Budget: dec("1000")}}},
		}},
		Invoices: []Invoice{{
			ID: "inv-1",
			LineItems: []LineItem{
				{CostCode: "03.100", Amount: Amount("200")},
				{CostCode: "99.000", Amount: Amount("75.25")},
				{CostCode: "99.000", Amount: Amount("24.75")},
				{Amount: Amount("10")},
			},
		}},
	}
	res := CreateBudgetActuals(in)

	unb, ok := res.InvoiceBudgetActuals.Division(UnbudgetedNumber)
	require.True(t, ok)
	requireMoney(t, "110.00", unb.Actual, "unbudgeted total")
	require.Len(t, unb.CostCodes, 2)
	assert.Equal(t, "99.000", unb.CostCodes[0].Name)
	requireMoney(t, "100.00", unb.CostCodes[0].Actual, "99.000")
	assert.Equal(t, RoleUnbudgeted, unb.CostCodes[0].Role)

	// Unbudgeted money is part of the subtotal.
	requireMoney(t, "310.00", CalculateTotals(res.InvoiceBudgetActuals, false).Subtotal, "subtotal")
}

func TestCreateBudgetActuals_CreditsNet(t *testing.T) {
	in := BillingInput{
		Tree: CostCodeTree{Divisions: []Division{
			{Number: "07", Name: "Roofing", CostCodes: []CostCode{{ID: "07.500", Name: "Roofing", Budget: dec("500")}}},
		}},
		Invoices: []Invoice{{ID: "inv-1", LineItems: []LineItem{
			{CostCode: "07.500", Amount: Amount("100")},
			{CostCode: "07.500", Amount: Amount("(250.00)")},
		}}},
	}
	res := CreateBudgetActuals(in)
	div, ok := res.InvoiceBudgetActuals.Division("07")
	require.True(t, ok)
	requireMoney(t, "-150.00", div.Actual, "net credit")
}

func TestCreateBudgetActuals_LaborRoundsPerPersonBucket(t *testing.T) {
	in := BillingInput{
		Tree: CostCodeTree{Divisions: []Division{
			{Number: "06", Name: "Carpentry", CostCodes: []CostCode{{ID: "06.100", Name: "Framing", Budget: dec("1000")}}},
		}},
		Labor: []LaborEntry{
			{ID: "lab-1", Name: "A", LineItems: []LaborLineItem{
				{CostCode: "06.100", Hours: Amount("1"), Rate: Amount("0.005")},
				{CostCode: "06.100", Hours: Amount("1"), Rate: Amount("0.005")},
			}},
		},
	}
	res := CreateBudgetActuals(in)
	div, ok := res.InvoiceBudgetActuals.Division("06")
	require.True(t, ok)
	// 0.010 rounded once; per-line rounding would give 0.02.
	requireMoney(t, "0.01", div.Actual, "labor")

	in.Labor = append(in.Labor, LaborEntry{ID: "lab-2", Name: "B", LineItems: []LaborLineItem{
		{CostCode: "06.100", Hours: Amount("1"), Rate: Amount("0.005")},
	}})
	res = CreateBudgetActuals(in)
	div, _ = res.InvoiceBudgetActuals.Division("06")
	requireMoney(t, "0.02", div.Actual, "second person rounds separately")
}

func TestCreateBudgetActuals_ChangeOrderTrack(t *testing.T) {
	tree := CostCodeTree{Divisions: []Division{
		{Number: "09", Name: "Finishes", CostCodes: []CostCode{{ID: "09.900", Name: "Paint", Budget: dec("1000")}}},
	}}
	in := BillingInput{
		Tree: tree,
		Invoices: []Invoice{{ID: "inv-1", LineItems: []LineItem{
			{CostCode: "09.900", Amount: Amount("300")},
			{CostCode: "09.900", Amount: Amount("0"), ChangeOrder: &ChangeOrderRef{ID: "co-9"}},
			{CostCode: "09.900", Amount: Amount("50"), ChangeOrder: &ChangeOrderRef{Name: "Extra coat"}},
			{CostCode: "09.900", Amount: Amount("20"), ChangeOrder: &ChangeOrderRef{}},
		}}},
	}
	res := CreateBudgetActuals(in)

	// Zero-amount change orders still count.
	assert.Equal(t, 2, res.NumChangeOrders)
	requireMoney(t, "320.00", CalculateTotals(res.InvoiceBudgetActuals, false).Subtotal, "current")
	requireMoney(t, "50.00", CalculateTotals(res.InvoiceBudgetActualsChangeOrders, true).Subtotal, "change orders")
}

func TestCreateBudgetActuals_NonBillableChangeOrderCounts(t *testing.T) {
	in := BillingInput{
		Tree: CostCodeTree{Divisions: []Division{
			{Number: "09", Name: "Finishes", CostCodes: []CostCode{{ID: "09.900", Name: "Paint", Budget: dec("1000")}}},
		}},
		Invoices: []Invoice{{ID: "inv-1", LineItems: []LineItem{
			{CostCode: "09.900", Amount: Amount("80"), ChangeOrder: &ChangeOrderRef{ID: "co-1"}, NonBillable: true},
		}}},
		Labor: []LaborEntry{{ID: "lab-1", Name: "A", LineItems: []LaborLineItem{
			{CostCode: "09.900", Hours: Amount("2"), Rate: Amount("40"), ChangeOrder: &ChangeOrderRef{ID: "co-2"}, NonBillable: true},
		}}},
		PriorInvoices: []Invoice{{ID: "inv-0", LineItems: []LineItem{
			{CostCode: "09.900", Amount: Amount("10"), ChangeOrder: &ChangeOrderRef{ID: "co-0"}},
		}}},
	}
	res := CreateBudgetActuals(in)

	assert.Equal(t, 2, res.NumChangeOrders)
	assert.Equal(t, 0, res.InvoiceBudgetActualsChangeOrders.Len())
	requireMoney(t, "0.00", CalculateTotals(res.InvoiceBudgetActualsChangeOrders, true).Subtotal, "non-billable spend")
}

func TestCreateBudgetActuals_CumulativeTreeKeepsTreeOrder(t *testing.T) {
	in := BillingInput{
		Tree: CostCodeTree{Divisions: []Division{
			{Number: "01", Name: "Allowances", CostCodes: []CostCode{{ID: "01.100", Name: "Allowance", Budget: dec("0")}}},
			{Number: "02", Name: "Site", Subdivisions: []Subdivision{
				{Number: "02.0", Name: "Prep", CostCodes: []CostCode{
					{ID: "02.050", Name: "Survey", Budget: dec("0")},
					{ID: "02.100", Name: "Demo", Budget: dec("100")},
				}},
			}},
			{Number: "03", Name: "Unused", CostCodes: []CostCode{{ID: "03.100", Name: "Spare", Budget: dec("0")}}},
		}},
		Invoices: []Invoice{{ID: "inv-1", LineItems: []LineItem{
			{CostCode: "02.050", Amount: Amount("40")},
			{CostCode: "01.100", Amount: Amount("25")},
		}}},
	}
	res := CreateBudgetActuals(in)

	var titles []string
	for _, row := range FlattenReport(res.BudgetActuals, ReportOptions{}) {
		titles = append(titles, row.Title)
	}
	assert.Equal(t, []string{
		"01 Allowances", "01.100 Allowance",
		"02 Site", "02.0 Prep", "02.050 Survey", "02.100 Demo",
	}, titles)

	// The bill-only tree keeps first-encountered order.
	var bill []string
	for _, d := range res.InvoiceBudgetActuals.Divisions {
		bill = append(bill, d.Number)
	}
	assert.Equal(t, []string{"02", "01"}, bill)
}

func TestCreateBudgetActuals_SubItemsInheritParent(t *testing.T) {
	in := BillingInput{
		Tree: CostCodeTree{Divisions: []Division{
			{Number: "05", Name: "Metals", CostCodes: []CostCode{
				{ID: "05.100", Name: "Steel", Budget: dec("1000")},
				{ID: "05.500", Name: "Misc", Budget: dec("1000")},
			}},
		}},
		Invoices: []Invoice{{ID: "inv-1", LineItems: []LineItem{
			{CostCode: "05.100", Amount: Amount("999"), SubItems: []LineItem{
				{Amount: Amount("10")},
				{CostCode: "05.500", Amount: Amount("5")},
			}},
		}}},
	}
	res := CreateBudgetActuals(in)
	leaves := res.InvoiceBudgetActuals.Leaves()
	require.Len(t, leaves, 2)
	requireMoney(t, "10.00", leaves[0].Actual, "05.100")
	requireMoney(t, "5.00", leaves[1].Actual, "05.500")
}

func TestCreateBudgetActuals_EmptyInput(t *testing.T) {
	res := CreateBudgetActuals(BillingInput{})
	assert.Equal(t, 0, res.InvoiceBudgetActuals.Len())
	assert.Equal(t, 0, res.BudgetActuals.Len())
	assert.Equal(t, "0.00", CalculateTotals(res.InvoiceBudgetActuals, false).Total)
}
