// Package services holds the client-billing engine: cost-code indexing,
// budget-to-actuals aggregation, bill totals, report rows and their exports.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateCostCode is returned when a cost-code id appears twice in a tree.
	ErrDuplicateCostCode = errors.New("duplicate cost code")
	// ErrEmptyCostCode is returned when a cost code has no id.
	ErrEmptyCostCode = errors.New("cost code without id")
)

// UnbudgetedNumber is the division number of the synthetic bucket holding
// actuals whose cost code could not be resolved against the budget.
const UnbudgetedNumber = "UNBUDGETED"

// CostCode is a leaf budget category.
type CostCode struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Budget decimal.Decimal `json:"budget"`
}

// Subdivision groups cost codes within a division.
type Subdivision struct {
	Number    string     `json:"number"`
	Name      string     `json:"name"`
	CostCodes []CostCode `json:"costCodes"`
}

// Division is the top level of the budget hierarchy. A division holds either
// subdivisions or direct cost codes (or both).
type Division struct {
	Number       string        `json:"number"`
	Name         string        `json:"name"`
	Subdivisions []Subdivision `json:"subdivisions,omitempty"`
	CostCodes    []CostCode    `json:"costCodes,omitempty"`
}

// CostCodeTree is the ordered budget definition for one project.
type CostCodeTree struct {
	Divisions []Division `json:"divisions"`
}

// CostCodeName is an entry of the company-wide id -> label list used when
// source records refer to a cost code by label.
type CostCodeName struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// CostCodeRole classifies a cost code once, at index time.
type CostCodeRole int

const (
	RoleStandard CostCodeRole = iota
	// RoleProfitTaxesLiability marks the derived bucket excluded from subtotals.
	RoleProfitTaxesLiability
	// RoleUnbudgeted marks synthetic entries for unresolved references.
	RoleUnbudgeted
)

func (r CostCodeRole) String() string {
	switch r {
	case RoleProfitTaxesLiability:
		return "profit_taxes_liability"
	case RoleUnbudgeted:
		return "unbudgeted"
	default:
		return "standard"
	}
}

// CostCodeEntry is one row of the normalized index.
type CostCodeEntry struct {
	ID                string
	Name              string
	Budget            decimal.Decimal
	DivisionNumber    string
	DivisionName      string
	SubdivisionNumber string
	SubdivisionName   string
	// Depth is 1 for a cost code directly under its division, 2 under a subdivision.
	Depth int
	Role  CostCodeRole
}

// HasSubdivision reports whether the entry sits under a subdivision.
func (e CostCodeEntry) HasSubdivision() bool {
	return e.Depth == 2
}

// IndexOptions tunes cost-code classification.
type IndexOptions struct {
	// ProfitTaxesLiabilityCodes lists ids of the derived profit/taxes/liability
	// bucket. When empty, the bucket is recognized by its name.
	ProfitTaxesLiabilityCodes []string
}

// CostCodeIndex is a flat, ordered lookup of every cost code in a tree.
type CostCodeIndex struct {
	entries    map[string]CostCodeEntry
	order      []string
	labels     map[string]string
	divBudgets map[string]decimal.Decimal
	subBudgets map[string]decimal.Decimal
}

// ValidateCostCodeTree checks the invariants the index relies on: every cost
// code has an id and ids are unique across the whole tree.
func ValidateCostCodeTree(tree CostCodeTree) error {
	seen := make(map[string]string)
	var errs []error

	check := func(cc CostCode, where string) {
		id := strings.TrimSpace(cc.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("%w: %q in %s", ErrEmptyCostCode, cc.Name, where))
			return
		}
		if prev, ok := seen[id]; ok {
			errs = append(errs, fmt.Errorf("%w: %s in %s (first seen in %s)", ErrDuplicateCostCode, id, where, prev))
			return
		}
		seen[id] = where
	}

	for _, div := range tree.Divisions {
		where := "division " + div.Number
		for _, cc := range div.CostCodes {
			check(cc, where)
		}
		for _, sub := range div.Subdivisions {
			subWhere := where + " / subdivision " + sub.Number
			for _, cc := range sub.CostCodes {
				check(cc, subWhere)
			}
		}
	}
	return errors.Join(errs...)
}

// BuildCostCodeIndex flattens a cost-code tree into an id-keyed index.
// Name-list entries whose id is absent from the tree are ignored. If the tree
// repeats an id, the first occurrence wins; run ValidateCostCodeTree at the
// ingestion boundary to reject such trees.
func BuildCostCodeIndex(tree CostCodeTree, names []CostCodeName, opts IndexOptions) CostCodeIndex {
	idx := CostCodeIndex{
		entries:    make(map[string]CostCodeEntry),
		labels:     make(map[string]string),
		divBudgets: make(map[string]decimal.Decimal),
		subBudgets: make(map[string]decimal.Decimal),
	}

	ptl := make(map[string]bool, len(opts.ProfitTaxesLiabilityCodes))
	for _, id := range opts.ProfitTaxesLiabilityCodes {
		ptl[strings.TrimSpace(id)] = true
	}

	add := func(cc CostCode, div Division, sub *Subdivision) {
		id := strings.TrimSpace(cc.ID)
		if id == "" {
			return
		}
		if _, dup := idx.entries[id]; dup {
			return
		}

		entry := CostCodeEntry{
			ID:             id,
			Name:           cc.Name,
			Budget:         cc.Budget,
			DivisionNumber: div.Number,
			DivisionName:   div.Name,
			Depth:          1,
			Role:           classifyCostCode(id, cc.Name, ptl),
		}
		if sub != nil {
			entry.SubdivisionNumber = sub.Number
			entry.SubdivisionName = sub.Name
			entry.Depth = 2
			key := subdivisionKey(div.Number, sub.Number, sub.Name)
			idx.subBudgets[key] = idx.subBudgets[key].Add(cc.Budget)
		}
		idx.divBudgets[div.Number] = idx.divBudgets[div.Number].Add(cc.Budget)

		idx.entries[id] = entry
		idx.order = append(idx.order, id)
		if label := normalizeLabel(cc.Name); label != "" {
			if _, taken := idx.labels[label]; !taken {
				idx.labels[label] = id
			}
		}
	}

	for _, div := range tree.Divisions {
		for _, cc := range div.CostCodes {
			add(cc, div, nil)
		}
		for i := range div.Subdivisions {
			sub := div.Subdivisions[i]
			for _, cc := range sub.CostCodes {
				add(cc, div, &sub)
			}
		}
	}

	// Company labels take precedence over tree names for label lookups.
	for _, n := range names {
		id := strings.TrimSpace(n.ID)
		if _, ok := idx.entries[id]; !ok {
			continue
		}
		if label := normalizeLabel(n.Label); label != "" {
			idx.labels[label] = id
		}
	}

	return idx
}

// Len returns the number of distinct cost codes.
func (idx CostCodeIndex) Len() int {
	return len(idx.order)
}

// IDs returns cost-code ids in tree order.
func (idx CostCodeIndex) IDs() []string {
	out := make([]string, len(idx.order))
	copy(out, idx.order)
	return out
}

// Lookup finds an entry by exact id.
func (idx CostCodeIndex) Lookup(id string) (CostCodeEntry, bool) {
	e, ok := idx.entries[strings.TrimSpace(id)]
	return e, ok
}

// Resolve finds an entry by id, falling back to its label.
func (idx CostCodeIndex) Resolve(ref string) (CostCodeEntry, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return CostCodeEntry{}, false
	}
	if e, ok := idx.entries[ref]; ok {
		return e, true
	}
	if id, ok := idx.labels[normalizeLabel(ref)]; ok {
		return idx.entries[id], true
	}
	// "01.100 Concrete" style references: leading token is the id.
	if head, _, found := strings.Cut(ref, " "); found {
		if e, ok := idx.entries[head]; ok {
			return e, true
		}
	}
	return CostCodeEntry{}, false
}

// DivisionBudget returns the full budget of a division.
func (idx CostCodeIndex) DivisionBudget(number string) decimal.Decimal {
	return idx.divBudgets[number]
}

// SubdivisionBudget returns the full budget of a subdivision.
func (idx CostCodeIndex) SubdivisionBudget(divNumber, subNumber, subName string) decimal.Decimal {
	return idx.subBudgets[subdivisionKey(divNumber, subNumber, subName)]
}

// Entries returns every entry in tree order.
func (idx CostCodeIndex) Entries() []CostCodeEntry {
	out := make([]CostCodeEntry, 0, len(idx.order))
	for _, id := range idx.order {
		out = append(out, idx.entries[id])
	}
	return out
}

// UnbudgetedEntry builds the synthetic index entry for an unresolved reference.
func UnbudgetedEntry(ref string) CostCodeEntry {
	ref = strings.TrimSpace(ref)
	name := ref
	if name == "" {
		name = "No cost code"
	}
	return CostCodeEntry{
		ID:             UnbudgetedNumber + ":" + ref,
		Name:           name,
		Budget:         decimal.Zero,
		DivisionNumber: UnbudgetedNumber,
		DivisionName:   "Unbudgeted",
		Depth:          1,
		Role:           RoleUnbudgeted,
	}
}

func classifyCostCode(id, name string, ptl map[string]bool) CostCodeRole {
	if len(ptl) > 0 {
		if ptl[id] {
			return RoleProfitTaxesLiability
		}
		return RoleStandard
	}
	n := strings.ToLower(name)
	if strings.Contains(n, "profit") && strings.Contains(n, "tax") && strings.Contains(n, "liability") {
		return RoleProfitTaxesLiability
	}
	return RoleStandard
}

func subdivisionKey(divNumber, subNumber, subName string) string {
	if subNumber == "" {
		subNumber = subName
	}
	return divNumber + "\x00" + subNumber
}

func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
