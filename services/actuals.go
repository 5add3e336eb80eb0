package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Track separates ordinary spend from change-order spend.
type Track int

const (
	TrackCurrent Track = iota
	TrackChangeOrder
)

func (t Track) String() string {
	if t == TrackChangeOrder {
		return "change_order"
	}
	return "current"
}

// ActualsCostCode is a leaf of an actuals tree.
type ActualsCostCode struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Budget decimal.Decimal `json:"budgetAmount"`
	Actual decimal.Decimal `json:"actualAmount"`
	Role   CostCodeRole    `json:"role"`
}

// ActualsSubdivision accumulates the actuals of its cost codes.
type ActualsSubdivision struct {
	Number    string            `json:"number"`
	Name      string            `json:"name"`
	Budget    decimal.Decimal   `json:"budgetAmount"`
	Actual    decimal.Decimal   `json:"actualAmount"`
	CostCodes []ActualsCostCode `json:"costCodes"`
}

// ActualsDivision accumulates the actuals of everything below it.
type ActualsDivision struct {
	Number       string               `json:"number"`
	Name         string               `json:"name"`
	Budget       decimal.Decimal      `json:"budgetAmount"`
	Actual       decimal.Decimal      `json:"actualAmount"`
	Subdivisions []ActualsSubdivision `json:"subdivisions,omitempty"`
	CostCodes    []ActualsCostCode    `json:"costCodes,omitempty"`
}

// IsUnbudgeted reports whether this is the synthetic unbudgeted bucket.
func (d ActualsDivision) IsUnbudgeted() bool {
	return d.Number == UnbudgetedNumber
}

// ActualsTree mirrors the budget tree with accumulated actuals. Divisions are
// keyed by number and kept in insertion order.
type ActualsTree struct {
	Divisions []ActualsDivision `json:"divisions"`
}

// Len returns the number of top-level buckets.
func (t ActualsTree) Len() int {
	return len(t.Divisions)
}

// Division finds a top-level bucket by number.
func (t ActualsTree) Division(number string) (ActualsDivision, bool) {
	for _, d := range t.Divisions {
		if d.Number == number {
			return d, true
		}
	}
	return ActualsDivision{}, false
}

// Leaves returns every cost code of the tree in traversal order.
func (t ActualsTree) Leaves() []ActualsCostCode {
	var out []ActualsCostCode
	for _, d := range t.Divisions {
		out = append(out, d.CostCodes...)
		for _, s := range d.Subdivisions {
			out = append(out, s.CostCodes...)
		}
	}
	return out
}

// ProjectSummary carries the billing rates of a project, as decimal fractions.
type ProjectSummary struct {
	ProfitRate    decimal.Decimal `json:"profitRate"`
	LiabilityRate decimal.Decimal `json:"liabilityRate"`
	BOTaxRate     decimal.Decimal `json:"boTaxRate"`
	SalesTaxRate  decimal.Decimal `json:"salesTaxRate"`
}

// BillingInput is everything the aggregator reads for one client bill.
type BillingInput struct {
	BillTitle     string          `json:"billTitle"`
	Tree          CostCodeTree    `json:"costCodeTree"`
	CostCodeNames []CostCodeName  `json:"costCodeNames,omitempty"`
	Invoices      []Invoice       `json:"invoices"`
	Labor         []LaborEntry    `json:"labor"`
	Summary       *ProjectSummary `json:"projectSummary,omitempty"`
	// PriorInvoices and PriorLabor belong to earlier bills of the project and
	// only feed the cumulative trees.
	PriorInvoices []Invoice    `json:"priorInvoices,omitempty"`
	PriorLabor    []LaborEntry `json:"priorLabor,omitempty"`
	Index         IndexOptions `json:"-"`
}

// DiagnosticKind classifies a non-fatal aggregation finding.
type DiagnosticKind string

const (
	DiagMalformedAmount DiagnosticKind = "malformed_amount"
	DiagUnbudgeted      DiagnosticKind = "unbudgeted"
	DiagNonBillable     DiagnosticKind = "non_billable"
)

// Diagnostic points at a source line the caller should flag.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	Source   string         `json:"source"`
	RecordID string         `json:"recordId"`
	Line     int            `json:"line"`
	Detail   string         `json:"detail"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s[%s] line %d: %s", d.Kind, d.Source, d.RecordID, d.Line, d.Detail)
}

// BudgetActualsResult is the aggregator output for one client bill.
type BudgetActualsResult struct {
	// BudgetActuals is cumulative to date and lists every budgeted cost code.
	BudgetActuals             ActualsTree `json:"budgetActuals"`
	BudgetActualsChangeOrders ActualsTree `json:"budgetActualsChangeOrders"`
	// InvoiceBudgetActuals only holds buckets touched by this bill.
	InvoiceBudgetActuals             ActualsTree  `json:"invoiceBudgetActuals"`
	InvoiceBudgetActualsChangeOrders ActualsTree  `json:"invoiceBudgetActualsChangeOrders"`
	NumInvoices                      int          `json:"numInvoices"`
	NumChangeOrders                  int          `json:"numChangeOrders"`
	BillTitle                        string       `json:"billTitle"`
	Diagnostics                      []Diagnostic `json:"diagnostics,omitempty"`
}

// CreateBudgetActuals buckets the invoice and labor lines of a bill against
// the cost-code index. A bad line never aborts the run: malformed amounts
// count as zero and unknown cost codes land in the unbudgeted bucket, both
// reported in Diagnostics.
func CreateBudgetActuals(input BillingInput) BudgetActualsResult {
	idx := BuildCostCodeIndex(input.Tree, input.CostCodeNames, input.Index)

	agg := &aggregator{
		idx:          idx,
		billCurrent:  newActualsBuilder(idx),
		billCO:       newActualsBuilder(idx),
		cumCurrent:   newActualsBuilder(idx),
		cumCO:        newActualsBuilder(idx),
		changeOrders: make(map[string]bool),
	}
	agg.cumCurrent.seedSkeleton()
	agg.cumCO.seedSkeleton()

	for _, inv := range input.PriorInvoices {
		agg.invoice(inv, false)
	}
	for _, le := range input.PriorLabor {
		agg.labor(le, false)
	}
	for _, inv := range input.Invoices {
		agg.invoice(inv, true)
	}
	for _, le := range input.Labor {
		agg.labor(le, true)
	}

	return BudgetActualsResult{
		BudgetActuals:                    agg.cumCurrent.build(),
		BudgetActualsChangeOrders:        agg.cumCO.build(),
		InvoiceBudgetActuals:             agg.billCurrent.build(),
		InvoiceBudgetActualsChangeOrders: agg.billCO.build(),
		NumInvoices:                      len(input.Invoices),
		NumChangeOrders:                  len(agg.changeOrders),
		BillTitle:                        input.BillTitle,
		Diagnostics:                      agg.diags,
	}
}

type aggregator struct {
	idx          CostCodeIndex
	billCurrent  *actualsBuilder
	billCO       *actualsBuilder
	cumCurrent   *actualsBuilder
	cumCO        *actualsBuilder
	changeOrders map[string]bool
	diags        []Diagnostic
}

// posting is one resolved amount headed for a track.
type posting struct {
	ref    string
	co     *ChangeOrderRef
	amount decimal.Decimal
	source string
	record string
	line   int
}

func (a *aggregator) invoice(inv Invoice, currentBill bool) {
	line := 0
	var walk func(items []LineItem, parentRef string, parentCO *ChangeOrderRef)
	walk = func(items []LineItem, parentRef string, parentCO *ChangeOrderRef) {
		for _, li := range items {
			line++
			ref := li.CostCode
			if strings.TrimSpace(ref) == "" {
				ref = parentRef
			}
			co := li.ChangeOrder
			if co.IsZero() {
				co = parentCO
			}
			if len(li.SubItems) > 0 {
				walk(li.SubItems, ref, co)
				continue
			}
			a.noteChangeOrder(co, currentBill)
			if li.NonBillable {
				a.flag(currentBill, DiagNonBillable, "invoice", inv.ID, line, ref)
				continue
			}
			if li.Amount.Malformed {
				a.flag(currentBill, DiagMalformedAmount, "invoice", inv.ID, line, fmt.Sprintf("amount %q", li.Amount.Raw))
			}
			a.post(posting{
				ref:    ref,
				co:     co,
				amount: li.Amount.Value,
				source: "invoice",
				record: inv.ID,
				line:   line,
			}, currentBill)
		}
	}
	walk(inv.LineItems, "", nil)
}

// labor sums hours x rate per cost code and track without intermediate
// rounding; each person's bucket total is rounded to cents once.
func (a *aggregator) labor(le LaborEntry, currentBill bool) {
	type bucketKey struct {
		ref string
		co  string
	}
	totals := make(map[bucketKey]*posting)
	var order []bucketKey

	for i, li := range le.LineItems {
		line := i + 1
		a.noteChangeOrder(li.ChangeOrder, currentBill)
		if li.NonBillable {
			a.flag(currentBill, DiagNonBillable, "labor", le.ID, line, li.CostCode)
			continue
		}
		if li.Hours.Malformed {
			a.flag(currentBill, DiagMalformedAmount, "labor", le.ID, line, fmt.Sprintf("hours %q", li.Hours.Raw))
		}
		if li.Rate.Malformed {
			a.flag(currentBill, DiagMalformedAmount, "labor", le.ID, line, fmt.Sprintf("rate %q", li.Rate.Raw))
		}

		key := bucketKey{ref: strings.TrimSpace(li.CostCode), co: li.ChangeOrder.Key()}
		p, ok := totals[key]
		if !ok {
			p = &posting{ref: li.CostCode, co: li.ChangeOrder, amount: decimal.Zero, source: "labor", record: le.ID, line: line}
			totals[key] = p
			order = append(order, key)
		}
		p.amount = p.amount.Add(li.Hours.Value.Mul(li.Rate.Value))
	}

	for _, key := range order {
		p := totals[key]
		p.amount = p.amount.Round(2)
		a.post(*p, currentBill)
	}
}

func (a *aggregator) post(p posting, currentBill bool) {
	track := TrackCurrent
	if !p.co.IsZero() {
		track = TrackChangeOrder
	}

	entry, ok := a.idx.Resolve(p.ref)
	if !ok {
		entry = UnbudgetedEntry(p.ref)
		detail := "no cost code"
		if strings.TrimSpace(p.ref) != "" {
			detail = fmt.Sprintf("unknown cost code %q", p.ref)
		}
		a.flag(currentBill, DiagUnbudgeted, p.source, p.record, p.line, detail)
	}

	if track == TrackChangeOrder {
		a.cumCO.add(entry, p.amount)
		if currentBill {
			a.billCO.add(entry, p.amount)
		}
		return
	}
	a.cumCurrent.add(entry, p.amount)
	if currentBill {
		a.billCurrent.add(entry, p.amount)
	}
}

// noteChangeOrder counts a change order referenced by the current bill,
// whatever the amount or billable flag of the line.
func (a *aggregator) noteChangeOrder(co *ChangeOrderRef, currentBill bool) {
	if currentBill && !co.IsZero() {
		a.changeOrders[co.Key()] = true
	}
}

// flag records a diagnostic. Prior-bill lines were flagged when their own
// bill ran, so only the current bill reports.
func (a *aggregator) flag(currentBill bool, kind DiagnosticKind, source, record string, line int, detail string) {
	if !currentBill {
		return
	}
	a.diags = append(a.diags, Diagnostic{Kind: kind, Source: source, RecordID: record, Line: line, Detail: detail})
}

// actualsBuilder accumulates postings in first-seen order and produces an
// immutable ActualsTree.
type actualsBuilder struct {
	idx       CostCodeIndex
	divisions []*divisionAcc
	byNumber  map[string]*divisionAcc
	seeding   bool
	prune     bool
}

type divisionAcc struct {
	number, name string
	budget       decimal.Decimal
	actual       decimal.Decimal
	touched      bool
	subs         []*subdivisionAcc
	subByKey     map[string]*subdivisionAcc
	codes        []*costCodeAcc
	codeByID     map[string]*costCodeAcc
}

type subdivisionAcc struct {
	number, name string
	budget       decimal.Decimal
	actual       decimal.Decimal
	touched      bool
	codes        []*costCodeAcc
	codeByID     map[string]*costCodeAcc
}

type costCodeAcc struct {
	entry   CostCodeEntry
	actual  decimal.Decimal
	touched bool
}

func newActualsBuilder(idx CostCodeIndex) *actualsBuilder {
	return &actualsBuilder{idx: idx, byNumber: make(map[string]*divisionAcc)}
}

// seedSkeleton lays out every division, subdivision and cost code of the
// index in tree order, so later postings land in tree position. Nodes
// that carry no budget and never received a posting are pruned by build.
func (b *actualsBuilder) seedSkeleton() {
	b.seeding = true
	for _, e := range b.idx.Entries() {
		b.add(e, decimal.Zero)
	}
	b.seeding = false
	b.prune = true
}

func (b *actualsBuilder) add(e CostCodeEntry, amount decimal.Decimal) {
	div, ok := b.byNumber[e.DivisionNumber]
	if !ok {
		div = &divisionAcc{
			number:   e.DivisionNumber,
			name:     e.DivisionName,
			budget:   b.idx.DivisionBudget(e.DivisionNumber),
			subByKey: make(map[string]*subdivisionAcc),
			codeByID: make(map[string]*costCodeAcc),
		}
		b.byNumber[e.DivisionNumber] = div
		b.divisions = append(b.divisions, div)
	}
	div.actual = div.actual.Add(amount)
	div.touched = div.touched || !b.seeding

	codes, codeByID := &div.codes, div.codeByID
	if e.HasSubdivision() {
		key := subdivisionKey(e.DivisionNumber, e.SubdivisionNumber, e.SubdivisionName)
		sub, ok := div.subByKey[key]
		if !ok {
			sub = &subdivisionAcc{
				number:   e.SubdivisionNumber,
				name:     e.SubdivisionName,
				budget:   b.idx.SubdivisionBudget(e.DivisionNumber, e.SubdivisionNumber, e.SubdivisionName),
				codeByID: make(map[string]*costCodeAcc),
			}
			div.subByKey[key] = sub
			div.subs = append(div.subs, sub)
		}
		sub.actual = sub.actual.Add(amount)
		sub.touched = sub.touched || !b.seeding
		codes, codeByID = &sub.codes, sub.codeByID
	}

	cc, ok := codeByID[e.ID]
	if !ok {
		cc = &costCodeAcc{entry: e}
		codeByID[e.ID] = cc
		*codes = append(*codes, cc)
	}
	cc.actual = cc.actual.Add(amount)
	cc.touched = cc.touched || !b.seeding
}

func (b *actualsBuilder) build() ActualsTree {
	tree := ActualsTree{Divisions: make([]ActualsDivision, 0, len(b.divisions))}
	var unbudgeted *ActualsDivision

	for _, div := range b.divisions {
		out := ActualsDivision{
			Number: div.number,
			Name:   div.name,
			Budget: div.budget,
			Actual: div.actual,
		}
		for _, sub := range div.subs {
			codes := b.buildCodes(sub.codes)
			if b.prune && len(codes) == 0 && !sub.touched && sub.budget.IsZero() {
				continue
			}
			out.Subdivisions = append(out.Subdivisions, ActualsSubdivision{
				Number:    sub.number,
				Name:      sub.name,
				Budget:    sub.budget,
				Actual:    sub.actual,
				CostCodes: codes,
			})
		}
		out.CostCodes = b.buildCodes(div.codes)
		if b.prune && len(out.CostCodes) == 0 && len(out.Subdivisions) == 0 && !div.touched && div.budget.IsZero() {
			continue
		}

		if out.IsUnbudgeted() {
			unbudgeted = &out
			continue
		}
		tree.Divisions = append(tree.Divisions, out)
	}

	// The unbudgeted bucket always reports last.
	if unbudgeted != nil {
		tree.Divisions = append(tree.Divisions, *unbudgeted)
	}
	return tree
}

func (b *actualsBuilder) buildCodes(accs []*costCodeAcc) []ActualsCostCode {
	var out []ActualsCostCode
	for _, cc := range accs {
		if b.prune && !cc.touched && cc.entry.Budget.IsZero() {
			continue
		}
		out = append(out, ActualsCostCode{
			ID:     cc.entry.ID,
			Name:   cc.entry.Name,
			Budget: cc.entry.Budget,
			Actual: cc.actual,
			Role:   cc.entry.Role,
		})
	}
	return out
}
