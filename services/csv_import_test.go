package services

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseCSV_Valid(t *testing.T) {
	input := "Division,Division Name,Cost Code\n01,General,01.100\n02,Site,02.100\n"
	headers, rows, err := parseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseCSV() error = %v", err)
	}
	if len(headers) != 3 {
		t.Errorf("expected 3 headers, got %d", len(headers))
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 data rows, got %d", len(rows))
	}
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	input := "Division,Division Name\n"
	_, _, err := parseCSV(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for header-only file")
	}
	if !strings.Contains(err.Error(), "at least one data row") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	_, _, err := parseCSV(strings.NewReader(""))
	if err == nil {
		t.Error("expected error for empty file")
	}
}

func TestMapHeadersToColumns(t *testing.T) {
	cols := BudgetColumns()

	t.Run("labels", func(t *testing.T) {
		mapped := mapHeadersToColumns([]string{"Division", "Cost Code", "Budget"}, cols)
		if mapped[0] != colDivision || mapped[1] != colCostCode || mapped[2] != colBudget {
			t.Errorf("unexpected mapping: %v", mapped)
		}
	})

	t.Run("case insensitive with required asterisk", func(t *testing.T) {
		mapped := mapHeadersToColumns([]string{"DIVISION NAME *", " name "}, cols)
		if mapped[0] != colDivisionName || mapped[1] != colCostCodeName {
			t.Errorf("unexpected mapping: %v", mapped)
		}
	})

	t.Run("keys and unknown headers", func(t *testing.T) {
		mapped := mapHeadersToColumns([]string{"cost_code", "Notes"}, cols)
		if mapped[0] != colCostCode {
			t.Errorf("expected cost_code, got %q", mapped[0])
		}
		if mapped[1] != "" {
			t.Errorf("expected unknown header to map to empty key, got %q", mapped[1])
		}
	})
}

const budgetCSV = `Division,Division Name,Subdivision,Subdivision Name,Cost Code,Name,Budget
01,General Requirements,01.1,Project Management,01.100,Supervision,"40,000.00"
01,General Requirements,01.1,Project Management,01.110,Permits,3500
02,Site Work,,,02.100,Demolition,8000
,,,,,,
01,General Requirements,01.2,Temporary Facilities,01.200,Temp Power,2500
20,"Profit, Taxes, and Liability",,,20.000,"Profit, Taxes, and Liability",0
`

func TestImportBudget_CSV(t *testing.T) {
	result, err := ImportBudget(strings.NewReader(budgetCSV), "budget.csv")
	if err != nil {
		t.Fatalf("ImportBudget() error = %v", err)
	}
	if result.TotalRows != 5 {
		t.Errorf("expected 5 rows (blank skipped), got %d", result.TotalRows)
	}
	if result.ErrorRows != 0 {
		t.Fatalf("expected no errors, got %+v", result.Errors)
	}
	if result.ValidRows != 5 {
		t.Errorf("expected 5 valid rows, got %d", result.ValidRows)
	}

	tree := result.Tree
	if len(tree.Divisions) != 3 {
		t.Fatalf("expected 3 divisions, got %d", len(tree.Divisions))
	}
	div01 := tree.Divisions[0]
	if div01.Number != "01" || len(div01.Subdivisions) != 2 {
		t.Fatalf("unexpected division 01: %+v", div01)
	}
	if len(div01.Subdivisions[0].CostCodes) != 2 {
		t.Errorf("expected 2 cost codes under 01.1, got %d", len(div01.Subdivisions[0].CostCodes))
	}
	if got := div01.Subdivisions[0].CostCodes[0].Budget.StringFixed(2); got != "40000.00" {
		t.Errorf("expected budget 40000.00, got %s", got)
	}
	if len(tree.Divisions[1].CostCodes) != 1 || len(tree.Divisions[1].Subdivisions) != 0 {
		t.Errorf("expected division 02 to hold one direct cost code, got %+v", tree.Divisions[1])
	}

	if err := ValidateCostCodeTree(tree); err != nil {
		t.Errorf("imported tree does not validate: %v", err)
	}
	idx := BuildCostCodeIndex(tree, nil, IndexOptions{})
	if e, ok := idx.Lookup("20.000"); !ok || e.Role != RoleProfitTaxesLiability {
		t.Errorf("expected 20.000 to be the profit/taxes/liability bucket, got %+v", e)
	}
}

func TestImportBudget_RowErrors(t *testing.T) {
	input := `Division,Division Name,Subdivision,Subdivision Name,Cost Code,Name,Budget
01,General,,,01.100,Supervision,1000
01,General,,,01.100,Duplicate,500
01,General,01.1,,01.110,Permits,100
02,Site,,,02.100,Demolition,lots
,Site,,,02.200,Excavation,100
`
	result, err := ImportBudget(strings.NewReader(input), "budget.csv")
	if err != nil {
		t.Fatalf("ImportBudget() error = %v", err)
	}
	if result.TotalRows != 5 {
		t.Errorf("expected 5 rows, got %d", result.TotalRows)
	}
	if result.ErrorRows != 4 {
		t.Errorf("expected 4 error rows, got %d: %+v", result.ErrorRows, result.Errors)
	}
	if result.ValidRows != 1 {
		t.Errorf("expected 1 valid row, got %d", result.ValidRows)
	}

	fields := make(map[string]int)
	for _, e := range result.Errors {
		fields[e.Field] = e.Row
	}
	tests := []struct {
		field string
		row   int
	}{
		{"Cost Code", 3},
		{"Subdivision", 4},
		{"Budget", 5},
		{"Division", 6},
	}
	for _, tt := range tests {
		if fields[tt.field] != tt.row {
			t.Errorf("expected %s error on row %d, got row %d", tt.field, tt.row, fields[tt.field])
		}
	}

	if len(result.Tree.Divisions) != 1 || len(result.Tree.Divisions[0].CostCodes) != 1 {
		t.Errorf("expected only the valid row in the tree, got %+v", result.Tree)
	}
}

func TestImportBudget_Excel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Division *", "Division Name *", "Cost Code *", "Name *", "Budget *"},
		{"03", "Concrete", "03.110", "Footings", 12500},
		{"03", "Concrete", "03.120", "Slab on Grade", "9,800.00"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	f.Close()

	result, err := ImportBudget(&buf, "Budget.XLSX")
	if err != nil {
		t.Fatalf("ImportBudget() error = %v", err)
	}
	if result.ValidRows != 2 {
		t.Fatalf("expected 2 valid rows, got %d: %+v", result.ValidRows, result.Errors)
	}
	div := result.Tree.Divisions[0]
	if div.Number != "03" || len(div.CostCodes) != 2 {
		t.Errorf("unexpected division: %+v", div)
	}
}

func TestImportBudget_UnsupportedFormat(t *testing.T) {
	_, err := ImportBudget(strings.NewReader("x"), "budget.pdf")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported file format") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGenerateErrorReport_WithErrors(t *testing.T) {
	errs := []ValidationError{
		{Row: 2, Field: "Budget", Message: `Budget "lots" is not a number`},
		{Row: 3, Field: "Cost Code", Message: "=cmd injection"},
	}

	result, err := GenerateErrorReport(errs)
	if err != nil {
		t.Fatalf("GenerateErrorReport() error = %v", err)
	}

	f, err := excelize.OpenReader(bytesReader(result))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	defer f.Close()

	header, _ := f.GetCellValue("Errors", "A1")
	if header != "Row #" {
		t.Errorf("expected 'Row #', got %q", header)
	}
	field, _ := f.GetCellValue("Errors", "B2")
	if field != "Budget" {
		t.Errorf("expected 'Budget', got %q", field)
	}
	msg, _ := f.GetCellValue("Errors", "C3")
	if msg != "'=cmd injection" {
		t.Errorf("expected sanitized message, got %q", msg)
	}
}

func TestGenerateBudgetTemplate(t *testing.T) {
	result, err := GenerateBudgetTemplate()
	if err != nil {
		t.Fatalf("GenerateBudgetTemplate() error = %v", err)
	}

	f, err := excelize.OpenReader(bytesReader(result))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	defer f.Close()

	headers, _ := f.GetRows("Budget")
	if len(headers) < 2 {
		t.Fatalf("expected header and sample rows, got %d rows", len(headers))
	}
	if headers[0][0] != "Division *" || headers[0][2] != "Subdivision" {
		t.Errorf("unexpected headers: %v", headers[0])
	}

	// The template round-trips through the importer.
	imported, err := ImportBudget(bytes.NewReader(result), "template.xlsx")
	if err != nil {
		t.Fatalf("ImportBudget(template) error = %v", err)
	}
	if imported.ValidRows != 1 || imported.ErrorRows != 0 {
		t.Errorf("expected sample row to import cleanly, got %+v", imported)
	}
}
