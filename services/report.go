package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Row depths of a flattened report.
const (
	DepthDivision    = 0
	DepthSubdivision = 1
	DepthCostCode    = 2
)

var hundred = decimal.NewFromInt(100)

// PercentValue is actual/budget in percent. Valid is false when spend exists
// against a zero budget and the ratio is undefined.
type PercentValue struct {
	Value decimal.Decimal `json:"value"`
	Valid bool            `json:"valid"`
}

// ReportRow is one line of a budget-to-actuals table.
type ReportRow struct {
	Title      string          `json:"title"`
	Depth      int             `json:"depth"`
	Budget     decimal.Decimal `json:"budgetAmount"`
	Actual     decimal.Decimal `json:"actualAmount"`
	Difference decimal.Decimal `json:"difference"`
	Percent    PercentValue    `json:"percent"`
	Role       CostCodeRole    `json:"role"`
}

// ReportOptions controls flattening.
type ReportOptions struct {
	// SkipEmpty drops rows where both budget and actual are zero.
	SkipEmpty bool
}

// FlattenReport walks an actuals tree depth-first and emits parent rows before
// their children, siblings in tree order. Direct cost codes of a division come
// before its subdivisions.
func FlattenReport(tree ActualsTree, opts ReportOptions) []ReportRow {
	rows := make([]ReportRow, 0, len(tree.Divisions)*4)

	emit := func(title string, depth int, budget, actual decimal.Decimal, role CostCodeRole) {
		if opts.SkipEmpty && budget.IsZero() && actual.IsZero() {
			return
		}
		rows = append(rows, ReportRow{
			Title:      title,
			Depth:      depth,
			Budget:     budget,
			Actual:     actual,
			Difference: budget.Sub(actual),
			Percent:    percentSpent(budget, actual),
			Role:       role,
		})
	}

	for _, div := range tree.Divisions {
		divRole := RoleStandard
		if div.IsUnbudgeted() {
			divRole = RoleUnbudgeted
		}
		emit(rowTitle(div.Number, div.Name, div.IsUnbudgeted()), DepthDivision, div.Budget, div.Actual, divRole)

		for _, cc := range div.CostCodes {
			emit(costCodeTitle(cc), DepthCostCode, cc.Budget, cc.Actual, cc.Role)
		}
		for _, sub := range div.Subdivisions {
			emit(rowTitle(sub.Number, sub.Name, false), DepthSubdivision, sub.Budget, sub.Actual, RoleStandard)
			for _, cc := range sub.CostCodes {
				emit(costCodeTitle(cc), DepthCostCode, cc.Budget, cc.Actual, cc.Role)
			}
		}
	}
	return rows
}

// percentSpent returns round(actual / budget * 100, 1); 0 when nothing is
// budgeted or spent; invalid when spend exists without budget.
func percentSpent(budget, actual decimal.Decimal) PercentValue {
	if budget.IsZero() {
		if actual.IsZero() {
			return PercentValue{Value: decimal.Zero, Valid: true}
		}
		return PercentValue{}
	}
	return PercentValue{
		Value: actual.Mul(hundred).DivRound(budget, 1),
		Valid: true,
	}
}

func rowTitle(number, name string, synthetic bool) string {
	if synthetic {
		return name
	}
	return strings.TrimSpace(number + " " + name)
}

func costCodeTitle(cc ActualsCostCode) string {
	if cc.Role == RoleUnbudgeted {
		return cc.Name
	}
	return strings.TrimSpace(cc.ID + " " + cc.Name)
}
