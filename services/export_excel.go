package services

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// GenerateBillingExcel writes the budget-to-actuals report of a client bill
// to an xlsx workbook, one sheet per track, and returns the file contents.
func GenerateBillingExcel(data BillingReportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newBillingStyles(f)
	if err != nil {
		return nil, err
	}

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, "Current Bill"); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	if err := writeTrackSheet(f, "Current Bill", data, data.Current, styles); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet("Change Orders"); err != nil {
		return nil, fmt.Errorf("create change order sheet: %w", err)
	}
	if err := writeTrackSheet(f, "Change Orders", data, data.ChangeOrders, styles); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}

	return buf.Bytes(), nil
}

type billingStyles struct {
	title, subtitle, header     int
	division, subdivision, code int
	unbudgeted                  int
	summaryLabel, summaryValue  int
}

func newBillingStyles(f *excelize.File) (billingStyles, error) {
	var s billingStyles
	moneyFmt := `#,##0.00;-#,##0.00`

	defs := []struct {
		target *int
		name   string
		style  *excelize.Style
	}{
		{&s.title, "title", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}},
		{&s.subtitle, "subtitle", &excelize.Style{Font: &excelize.Font{Size: 11}}},
		{&s.header, "header", &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    thinBorders(),
		}},
		{&s.division, "division", &excelize.Style{
			Font:         &excelize.Font{Bold: true, Size: 10},
			Fill:         excelize.Fill{Type: "pattern", Color: []string{"#EBEBEB"}, Pattern: 1},
			Border:       thinBorders(),
			CustomNumFmt: &moneyFmt,
		}},
		{&s.subdivision, "subdivision", &excelize.Style{
			Font:         &excelize.Font{Bold: true, Size: 10},
			Border:       thinBorders(),
			CustomNumFmt: &moneyFmt,
		}},
		{&s.code, "cost code", &excelize.Style{
			Font:         &excelize.Font{Size: 10},
			Border:       thinBorders(),
			CustomNumFmt: &moneyFmt,
		}},
		{&s.unbudgeted, "unbudgeted", &excelize.Style{
			Font:         &excelize.Font{Size: 10, Color: "#B02020"},
			Border:       thinBorders(),
			CustomNumFmt: &moneyFmt,
		}},
		{&s.summaryLabel, "summary label", &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 11},
			Alignment: &excelize.Alignment{Horizontal: "right"},
		}},
		{&s.summaryValue, "summary value", &excelize.Style{
			Font:         &excelize.Font{Bold: true, Size: 11},
			CustomNumFmt: &moneyFmt,
		}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return s, fmt.Errorf("create %s style: %w", d.name, err)
		}
		*d.target = id
	}
	return s, nil
}

func writeTrackSheet(f *excelize.File, sheet string, data BillingReportData, tr TrackReport, st billingStyles) error {
	columns := []string{"A", "B", "C", "D", "E"}
	lastCol := columns[len(columns)-1]

	widths := []float64{48, 16, 16, 16, 10}
	for i, c := range columns {
		if err := f.SetColWidth(sheet, c, c, widths[i]); err != nil {
			return fmt.Errorf("set col width %s: %w", c, err)
		}
	}

	// ── Header Rows (1-3) ───────────────────────────────────────────────

	if err := f.MergeCell(sheet, "A1", lastCol+"1"); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheet, "A1", sanitizeExcelCell(data.BillTitle+" - "+tr.Label))
	f.SetCellStyle(sheet, "A1", lastCol+"1", st.title)

	if err := f.MergeCell(sheet, "A2", lastCol+"2"); err != nil {
		return fmt.Errorf("merge project: %w", err)
	}
	f.SetCellValue(sheet, "A2", sanitizeExcelCell(data.ProjectName))
	f.SetCellStyle(sheet, "A2", lastCol+"2", st.subtitle)

	if err := f.MergeCell(sheet, "A3", lastCol+"3"); err != nil {
		return fmt.Errorf("merge date: %w", err)
	}
	f.SetCellValue(sheet, "A3", "Date: "+data.CreatedDate)
	f.SetCellStyle(sheet, "A3", lastCol+"3", st.subtitle)

	// ── Row 5: Column Headers ───────────────────────────────────────────

	headers := []string{"Cost Code", "Budget", "Actual", "Difference", "% Spent"}
	for i, h := range headers {
		f.SetCellValue(sheet, fmt.Sprintf("%s5", columns[i]), h)
	}
	f.SetCellStyle(sheet, "A5", lastCol+"5", st.header)

	// ── Data Rows (starting row 6) ──────────────────────────────────────

	row := 6
	for _, r := range tr.Rows {
		rowStr := fmt.Sprintf("%d", row)

		title := r.Title
		switch r.Depth {
		case DepthSubdivision:
			title = "  " + title
		case DepthCostCode:
			title = "    " + title
		}
		f.SetCellValue(sheet, "A"+rowStr, sanitizeExcelCell(title))
		f.SetCellValue(sheet, "B"+rowStr, r.Budget.InexactFloat64())
		f.SetCellValue(sheet, "C"+rowStr, r.Actual.InexactFloat64())
		f.SetCellValue(sheet, "D"+rowStr, r.Difference.InexactFloat64())
		f.SetCellValue(sheet, "E"+rowStr, FormatPercent(r.Percent))

		style := st.code
		switch {
		case r.Role == RoleUnbudgeted:
			style = st.unbudgeted
		case r.Depth == DepthDivision:
			style = st.division
		case r.Depth == DepthSubdivision:
			style = st.subdivision
		}
		f.SetCellStyle(sheet, "A"+rowStr, lastCol+rowStr, style)

		row++
	}

	// ── Summary Rows ────────────────────────────────────────────────────

	row++

	if tr.Err != nil {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Totals unavailable: "+tr.Err.Error())
		return nil
	}

	lines := []struct {
		label string
		value decimal.Decimal
	}{
		{"Subtotal:", tr.BillTotals.Subtotal},
		{"Profit:", tr.BillTotals.Profit},
		{"Liability Insurance:", tr.BillTotals.Liability},
		{"B&O Tax:", tr.BillTotals.BOTax},
		{"Sales Tax:", tr.BillTotals.SalesTax},
		{"Total:", tr.BillTotals.Total},
	}
	for _, l := range lines {
		summaryRow := fmt.Sprintf("%d", row)
		f.SetCellValue(sheet, "C"+summaryRow, l.label)
		f.SetCellStyle(sheet, "C"+summaryRow, "C"+summaryRow, st.summaryLabel)
		f.SetCellValue(sheet, "D"+summaryRow, l.value.InexactFloat64())
		f.SetCellStyle(sheet, "D"+summaryRow, "D"+summaryRow, st.summaryValue)
		row++
	}
	return nil
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Excel interprets cells starting with =, +, -,
// @, \t or \r as formulas, which can be abused for code execution or data theft.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1, // thin
		}
	}
	return borders
}
