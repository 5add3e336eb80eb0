package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// BillRowView is one rendered line of a budget-to-actuals table.
type BillRowView struct {
	Title      string
	Depth      int
	Budget     string
	Actual     string
	Difference string
	Percent    string
	Unbudgeted bool
	OverBudget bool
}

// SummaryLine is a label/value pair of the bill totals block.
type SummaryLine struct {
	Label string
	Value string
	Bold  bool
}

// TrackView is the table and totals of one billing track.
type TrackView struct {
	Label   string
	Rows    []BillRowView
	Summary []SummaryLine
	// Error replaces the totals block when they could not be computed.
	Error string
}

// DiagnosticView is a source line flagged during aggregation.
type DiagnosticView struct {
	Kind   string
	Source string
	Detail string
}

// ClientBillViewData holds everything the client bill screen renders.
type ClientBillViewData struct {
	ProjectID       string
	ProjectName     string
	BillID          string
	BillTitle       string
	CompanyName     string
	CreatedDate     string
	NumInvoices     int
	NumChangeOrders int
	Tracks          []TrackView
	Diagnostics     []DiagnosticView
}

// ClientBillPage renders the full client bill document.
func ClientBillPage(data ClientBillViewData) templ.Component {
	return Layout(data.BillTitle+" | "+data.ProjectName, ClientBillContent(data))
}

// ClientBillContent renders the bill body without the document shell, for
// HTMX swaps.
func ClientBillContent(data ClientBillViewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		base := fmt.Sprintf("/projects/%s/bills/%s", data.ProjectID, data.BillID)

		if err := writeEscaped(w, `<section class="client-bill"><header class="bill-header"><h1>%s</h1><p class="bill-meta">%s &middot; %s &middot; %s</p>`,
			data.BillTitle, data.CompanyName, data.ProjectName, data.CreatedDate); err != nil {
			return err
		}
		if err := writeEscaped(w, `<p class="bill-counts">Invoices: %s &middot; Change orders: %s</p>`,
			fmt.Sprint(data.NumInvoices), fmt.Sprint(data.NumChangeOrders)); err != nil {
			return err
		}
		if err := writeEscaped(w, `<nav class="bill-actions"><a href="%s">Download PDF</a> <a href="%s">Download Excel</a></nav></header>`,
			string(templ.URL(base+"/export/pdf")), string(templ.URL(base+"/export/excel"))); err != nil {
			return err
		}

		for _, tr := range data.Tracks {
			if err := renderTrack(w, tr); err != nil {
				return err
			}
		}

		if len(data.Diagnostics) > 0 {
			if _, err := io.WriteString(w, `<section class="bill-diagnostics"><h2>Needs attention</h2><ul>`); err != nil {
				return err
			}
			for _, d := range data.Diagnostics {
				if err := writeEscaped(w, `<li class="diagnostic diagnostic-%s"><strong>%s</strong> %s</li>`, d.Kind, d.Source, d.Detail); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</ul></section>`); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, `</section>`)
		return err
	})
}

func renderTrack(w io.Writer, tr TrackView) error {
	if err := writeEscaped(w, `<section class="bill-track"><h2>%s</h2>`, tr.Label); err != nil {
		return err
	}
	if _, err := io.WriteString(w, `<table class="bill-table"><thead><tr><th>Cost Code</th><th>Budget</th><th>Actual</th><th>Difference</th><th>% Spent</th></tr></thead><tbody>`); err != nil {
		return err
	}
	for _, r := range tr.Rows {
		if err := writeEscaped(w, `<tr class="%s"><td>%s</td><td class="num">%s</td><td class="num">%s</td><td class="num">%s</td><td class="num">%s</td></tr>`,
			rowClass(r), r.Title, r.Budget, r.Actual, r.Difference, r.Percent); err != nil {
			return err
		}
	}
	if len(tr.Rows) == 0 {
		if _, err := io.WriteString(w, `<tr class="empty"><td colspan="5">No activity</td></tr>`); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, `</tbody></table>`); err != nil {
		return err
	}

	if tr.Error != "" {
		if err := writeEscaped(w, `<p class="bill-error">Totals unavailable: %s</p></section>`, tr.Error); err != nil {
			return err
		}
		return nil
	}

	if _, err := io.WriteString(w, `<dl class="bill-summary">`); err != nil {
		return err
	}
	for _, s := range tr.Summary {
		class := ""
		if s.Bold {
			class = "total"
		}
		if err := writeEscaped(w, `<div class="%s"><dt>%s</dt><dd>%s</dd></div>`, class, s.Label, s.Value); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</dl></section>`)
	return err
}

func rowClass(r BillRowView) string {
	class := fmt.Sprintf("depth-%d", r.Depth)
	if r.Unbudgeted {
		class += " unbudgeted"
	}
	if r.OverBudget {
		class += " over-budget"
	}
	return class
}
