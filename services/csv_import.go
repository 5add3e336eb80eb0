package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ValidationError represents a single field-level error on one row.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// BudgetImportResult is returned after parsing and validating an uploaded budget.
type BudgetImportResult struct {
	TotalRows int               `json:"total_rows"`
	ValidRows int               `json:"valid_rows"`
	ErrorRows int               `json:"error_rows"`
	Errors    []ValidationError `json:"errors"`
	Tree      CostCodeTree      `json:"-"`
	FileName  string            `json:"-"`
}

// Budget import columns, in template order.
const (
	colDivision        = "division"
	colDivisionName    = "division_name"
	colSubdivision     = "subdivision"
	colSubdivisionName = "subdivision_name"
	colCostCode        = "cost_code"
	colCostCodeName    = "name"
	colBudget          = "budget"
)

// BudgetColumn describes one column of the budget import template.
type BudgetColumn struct {
	Key      string
	Label    string
	Required bool
}

// BudgetColumns returns the columns of the budget import template.
func BudgetColumns() []BudgetColumn {
	return []BudgetColumn{
		{colDivision, "Division", true},
		{colDivisionName, "Division Name", true},
		{colSubdivision, "Subdivision", false},
		{colSubdivisionName, "Subdivision Name", false},
		{colCostCode, "Cost Code", true},
		{colCostCodeName, "Name", true},
		{colBudget, "Budget", true},
	}
}

// parseCSV reads a CSV file and returns headers + data rows.
func parseCSV(file io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(allRows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	return allRows[0], allRows[1:], nil
}

// parseExcel reads an xlsx file and returns headers + data rows from the first sheet.
func parseExcel(file io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	return rows[0], rows[1:], nil
}

// mapHeadersToColumns maps uploaded column headers to column keys.
// Returns ordered list of keys (one per column, "" when unrecognized).
func mapHeadersToColumns(headers []string, cols []BudgetColumn) []string {
	labelToKey := make(map[string]string, len(cols)*2)
	for _, c := range cols {
		labelToKey[strings.ToLower(c.Label)] = c.Key
		labelToKey[c.Key] = c.Key
	}

	mapped := make([]string, len(headers))
	for i, h := range headers {
		norm := strings.ToLower(strings.TrimSpace(h))
		norm = strings.TrimSpace(strings.TrimSuffix(norm, " *"))
		mapped[i] = labelToKey[norm]
	}
	return mapped
}

// ImportBudget parses a .csv or .xlsx budget sheet into a cost-code tree.
// Rows sharing a division (and subdivision) number are grouped under it in
// first-seen order. Rows with errors are reported and left out of the tree.
func ImportBudget(file io.Reader, fileName string) (*BudgetImportResult, error) {
	var headers []string
	var dataRows [][]string
	var err error

	lowerName := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lowerName, ".csv"):
		headers, dataRows, err = parseCSV(file)
	case strings.HasSuffix(lowerName, ".xlsx"):
		headers, dataRows, err = parseExcel(file)
	default:
		return nil, fmt.Errorf("unsupported file format: must be .csv or .xlsx")
	}
	if err != nil {
		return nil, err
	}

	cols := BudgetColumns()
	columnKeys := mapHeadersToColumns(headers, cols)

	result := &BudgetImportResult{
		TotalRows: len(dataRows),
		FileName:  fileName,
	}

	tb := newTreeBuilder()
	seenIDs := make(map[string]int)

	for rowIdx, row := range dataRows {
		rowNum := rowIdx + 2 // 1-indexed, +1 for header row
		rowData := make(map[string]string)
		var rowErrors []ValidationError

		for colIdx, key := range columnKeys {
			if key == "" {
				continue
			}
			if colIdx < len(row) {
				rowData[key] = strings.TrimSpace(row[colIdx])
			}
		}

		if isBlankRow(rowData) {
			result.TotalRows--
			continue
		}

		for _, c := range cols {
			if c.Required && rowData[c.Key] == "" {
				rowErrors = append(rowErrors, ValidationError{
					Row:     rowNum,
					Field:   c.Label,
					Message: fmt.Sprintf("%s is required", c.Label),
				})
			}
		}

		if (rowData[colSubdivision] == "") != (rowData[colSubdivisionName] == "") {
			rowErrors = append(rowErrors, ValidationError{
				Row:     rowNum,
				Field:   "Subdivision",
				Message: "Subdivision and Subdivision Name must be given together",
			})
		}

		budget := ParseMoney(rowData[colBudget])
		if budget.Malformed {
			rowErrors = append(rowErrors, ValidationError{
				Row:     rowNum,
				Field:   "Budget",
				Message: fmt.Sprintf("Budget %q is not a number", rowData[colBudget]),
			})
		}

		if id := rowData[colCostCode]; id != "" {
			if first, dup := seenIDs[id]; dup {
				rowErrors = append(rowErrors, ValidationError{
					Row:     rowNum,
					Field:   "Cost Code",
					Message: fmt.Sprintf("Cost code %s already used on row %d", id, first),
				})
			} else {
				seenIDs[id] = rowNum
			}
		}

		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			continue
		}

		tb.add(rowData, CostCode{
			ID:     rowData[colCostCode],
			Name:   rowData[colCostCodeName],
			Budget: budget.Value,
		})
	}

	errorRowSet := make(map[int]bool)
	for _, e := range result.Errors {
		errorRowSet[e.Row] = true
	}
	result.ErrorRows = len(errorRowSet)
	result.ValidRows = result.TotalRows - result.ErrorRows
	result.Tree = tb.tree()

	return result, nil
}

func isBlankRow(data map[string]string) bool {
	for _, v := range data {
		if v != "" {
			return false
		}
	}
	return true
}

// treeBuilder groups imported rows by division and subdivision number.
type treeBuilder struct {
	divisions []*Division
	divByNum  map[string]*Division
	subByKey  map[string]int
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{
		divByNum: make(map[string]*Division),
		subByKey: make(map[string]int),
	}
}

func (tb *treeBuilder) add(row map[string]string, cc CostCode) {
	divNum := row[colDivision]
	div, ok := tb.divByNum[divNum]
	if !ok {
		div = &Division{Number: divNum, Name: row[colDivisionName]}
		tb.divByNum[divNum] = div
		tb.divisions = append(tb.divisions, div)
	}

	subNum := row[colSubdivision]
	if subNum == "" {
		div.CostCodes = append(div.CostCodes, cc)
		return
	}

	key := subdivisionKey(divNum, subNum, "")
	i, ok := tb.subByKey[key]
	if !ok {
		div.Subdivisions = append(div.Subdivisions, Subdivision{Number: subNum, Name: row[colSubdivisionName]})
		i = len(div.Subdivisions) - 1
		tb.subByKey[key] = i
	}
	div.Subdivisions[i].CostCodes = append(div.Subdivisions[i].CostCodes, cc)
}

func (tb *treeBuilder) tree() CostCodeTree {
	out := CostCodeTree{Divisions: make([]Division, 0, len(tb.divisions))}
	for _, d := range tb.divisions {
		out.Divisions = append(out.Divisions, *d)
	}
	return out
}

// GenerateErrorReport creates a downloadable .xlsx file from validation errors.
func GenerateErrorReport(errors []ValidationError) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Errors"
	defaultSheet := f.GetSheetName(0)
	f.SetSheetName(defaultSheet, sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DC2626"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorders(),
	})

	f.SetCellValue(sheet, "A1", "Row #")
	f.SetCellValue(sheet, "B1", "Field")
	f.SetCellValue(sheet, "C1", "Error")
	f.SetCellStyle(sheet, "A1", "C1", headerStyle)
	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "C", "C", 55)

	for i, e := range errors {
		row := fmt.Sprintf("%d", i+2)
		f.SetCellValue(sheet, "A"+row, e.Row)
		f.SetCellValue(sheet, "B"+row, e.Field)
		f.SetCellValue(sheet, "C"+row, sanitizeExcelCell(e.Message))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write error report: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateBudgetTemplate creates a downloadable .xlsx budget template.
func GenerateBudgetTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Budget"
	f.SetSheetName(f.GetSheetName(0), sheet)

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1D4ED8"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorders(),
	})
	optionalStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#6B7280"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorders(),
	})

	letters := []string{"A", "B", "C", "D", "E", "F", "G"}
	for i, c := range BudgetColumns() {
		cell := letters[i] + "1"
		label := c.Label
		style := optionalStyle
		if c.Required {
			label += " *"
			style = requiredStyle
		}
		f.SetCellValue(sheet, cell, label)
		f.SetCellStyle(sheet, cell, cell, style)
		f.SetColWidth(sheet, letters[i], letters[i], 20)
	}

	sample := []any{"03", "Concrete", "03.1", "Foundations", "03.110", "Footings", 12500}
	for i, v := range sample {
		f.SetCellValue(sheet, fmt.Sprintf("%s2", letters[i]), v)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write budget template: %w", err)
	}
	return buf.Bytes(), nil
}
