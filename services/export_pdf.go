package services

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

var (
	pdfMuted      = &props.Color{Red: 80, Green: 80, Blue: 80}
	pdfUnbudgeted = &props.Color{Red: 176, Green: 32, Blue: 32}
)

// GenerateBillingPDF renders the budget-to-actuals report of a client bill
// using maroto/v2. It returns the raw PDF bytes.
func GenerateBillingPDF(data BillingReportData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.Letter).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addHeader(m, data)

	for _, tr := range []TrackReport{data.Current, data.ChangeOrders} {
		if len(tr.Rows) == 0 && tr.Totals.Subtotal.IsZero() {
			continue
		}
		addSectionTitle(m, tr.Label)
		addTableHeader(m)
		for _, r := range tr.Rows {
			addTableRow(m, r, data.CurrencySymbol)
		}
		addSummary(m, tr, data.CurrencySymbol)
	}

	addFooter(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return doc.GetBytes(), nil
}

// addHeader adds company, project and bill title.
func addHeader(m core.Maroto, data BillingReportData) {
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(data.BillTitle, props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
	)

	m.AddRows(
		row.New(8).Add(
			col.New(6).Add(
				text.New(fmt.Sprintf("%s  %s", data.CompanyName, data.ProjectName), props.Text{
					Size:  9,
					Align: align.Left,
					Color: pdfMuted,
				}),
			),
			col.New(6).Add(
				text.New(fmt.Sprintf("Invoices: %d   Change orders: %d", data.NumInvoices, data.NumChangeOrders), props.Text{
					Size:  9,
					Align: align.Right,
					Color: pdfMuted,
				}),
			),
		),
	)

	m.AddRows(row.New(4))
}

func addSectionTitle(m core.Maroto, title string) {
	m.AddRows(
		row.New(9).Add(
			col.New(12).Add(
				text.New(title, props.Text{
					Size:  11,
					Style: fontstyle.Bold,
					Align: align.Left,
					Top:   2,
				}),
			),
		),
	)
}

// addTableHeader adds the column header row of a budget-to-actuals table.
func addTableHeader(m core.Maroto) {
	headerBg := &props.Color{Red: 33, Green: 37, Blue: 41}
	headerText := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headerTextLeft := headerText
	headerTextLeft.Align = align.Left

	headerCell := props.Cell{BackgroundColor: headerBg}

	m.AddRows(
		row.New(8).Add(
			col.New(5).Add(text.New("Cost Code", headerTextLeft)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Budget", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Actual", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Difference", headerText)).WithStyle(&headerCell),
			col.New(1).Add(text.New("% Spent", headerText)).WithStyle(&headerCell),
		),
	)
}

// addTableRow adds a single report row, styled by depth.
func addTableRow(m core.Maroto, r ReportRow, symbol string) {
	var cellStyle *props.Cell
	var textSize float64 = 7
	var textStyle fontstyle.Type = fontstyle.Normal
	titlePrefix := ""

	switch r.Depth {
	case DepthDivision:
		textStyle = fontstyle.Bold
		textSize = 8
		bg := &props.Color{Red: 235, Green: 235, Blue: 235}
		cellStyle = &props.Cell{BackgroundColor: bg}
	case DepthSubdivision:
		titlePrefix = "  "
		textStyle = fontstyle.Bold
		bg := &props.Color{Red: 245, Green: 245, Blue: 245}
		cellStyle = &props.Cell{BackgroundColor: bg}
	case DepthCostCode:
		titlePrefix = "    "
	}

	baseText := props.Text{
		Size:  textSize,
		Style: textStyle,
		Align: align.Center,
	}
	if r.Role == RoleUnbudgeted {
		baseText.Color = pdfUnbudgeted
	}
	leftText := baseText
	leftText.Align = align.Left
	rightText := baseText
	rightText.Align = align.Right

	cols := []core.Col{
		col.New(5).Add(text.New(titlePrefix+r.Title, leftText)),
		col.New(2).Add(text.New(FormatMoney(symbol, r.Budget), rightText)),
		col.New(2).Add(text.New(FormatMoney(symbol, r.Actual), rightText)),
		col.New(2).Add(text.New(FormatMoney(symbol, r.Difference), rightText)),
		col.New(1).Add(text.New(FormatPercent(r.Percent), rightText)),
	}
	if cellStyle != nil {
		for i := range cols {
			cols[i] = cols[i].WithStyle(cellStyle)
		}
	}

	m.AddRows(row.New(6).Add(cols...))
}

// addSummary adds the bill totals of one track.
func addSummary(m core.Maroto, tr TrackReport, symbol string) {
	m.AddRows(row.New(4))

	summaryBg := &props.Color{Red: 240, Green: 240, Blue: 240}
	summaryCell := &props.Cell{BackgroundColor: summaryBg}

	labelStyle := props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Align: align.Right,
	}
	valueStyle := labelStyle

	if tr.Err != nil {
		m.AddRows(
			row.New(8).Add(
				col.New(12).Add(
					text.New("Totals unavailable: "+tr.Err.Error(), props.Text{Size: 9, Color: pdfUnbudgeted}),
				),
			),
		)
		return
	}

	lines := []struct {
		label string
		value decimal.Decimal
	}{
		{"Subtotal", tr.BillTotals.Subtotal},
		{"Profit", tr.BillTotals.Profit},
		{"Liability Insurance", tr.BillTotals.Liability},
		{"B&O Tax", tr.BillTotals.BOTax},
		{"Sales Tax", tr.BillTotals.SalesTax},
		{"Total", tr.BillTotals.Total},
	}
	for _, l := range lines {
		m.AddRows(
			row.New(7).Add(
				col.New(9).Add(text.New(l.label, labelStyle)).WithStyle(summaryCell),
				col.New(3).Add(text.New(FormatMoney(symbol, l.value), valueStyle)).WithStyle(summaryCell),
			),
		)
	}
	m.AddRows(row.New(4))
}

// addFooter adds the generated-date line at the bottom.
func addFooter(m core.Maroto, data BillingReportData) {
	m.AddRows(row.New(6))
	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(
				text.New(
					fmt.Sprintf("Generated on %s", data.CreatedDate),
					props.Text{
						Size:  7,
						Align: align.Left,
						Color: &props.Color{Red: 140, Green: 140, Blue: 140},
					},
				),
			),
		),
	)
}
