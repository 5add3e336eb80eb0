package services

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"

	"github.com/spf13/cast"
)

// ChangeOrderRef links a line item to a contract change order.
type ChangeOrderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IsZero reports whether the reference carries neither an id nor a name.
func (c *ChangeOrderRef) IsZero() bool {
	return c == nil || (strings.TrimSpace(c.ID) == "" && strings.TrimSpace(c.Name) == "")
}

// Key identifies the change order for counting.
func (c *ChangeOrderRef) Key() string {
	if c.IsZero() {
		return ""
	}
	if id := strings.TrimSpace(c.ID); id != "" {
		return id
	}
	return "name:" + strings.ToLower(strings.TrimSpace(c.Name))
}

// LineItem is one invoice line. When SubItems is non-empty the line is a
// grouping row: its sub-items are bucketed individually and inherit the
// parent's cost code and change order when they carry none.
type LineItem struct {
	CostCode    string          `json:"costCode"`
	Description string          `json:"description,omitempty"`
	Amount      Money           `json:"amount"`
	ChangeOrder *ChangeOrderRef `json:"changeOrder,omitempty"`
	NonBillable bool            `json:"nonBillable,omitempty"`
	SubItems    []LineItem      `json:"subItems,omitempty"`
}

// Invoice is a vendor invoice attached to a client bill.
type Invoice struct {
	ID        string     `json:"id"`
	Vendor    string     `json:"vendor"`
	LineItems []LineItem `json:"lineItems"`
}

// LaborLineItem is one work line of a labor entry; its amount is Hours x Rate.
type LaborLineItem struct {
	CostCode    string          `json:"costCode"`
	Description string          `json:"description,omitempty"`
	Hours       Money           `json:"hours"`
	Rate        Money           `json:"rate"`
	ChangeOrder *ChangeOrderRef `json:"changeOrder,omitempty"`
	NonBillable bool            `json:"nonBillable,omitempty"`
}

// LaborEntry is one person's labor on a client bill.
type LaborEntry struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	LineItems []LaborLineItem `json:"lineItems"`
}

// FieldRole is the meaning of a key in a stored line-item record. Keys are
// classified once while decoding instead of being string-matched at use.
type FieldRole int

const (
	FieldUnknown FieldRole = iota
	FieldCostCode
	FieldDescription
	FieldAmount
	FieldHours
	FieldRate
	FieldChangeOrder
	FieldChangeOrderID
	FieldChangeOrderName
	FieldBillable
	FieldNonBillable
	FieldSubItems
)

// fieldAliases lists the accepted record keys per role. When a record carries
// several keys for the same field, the alias listed first wins.
var fieldAliases = []struct {
	alias string
	role  FieldRole
}{
	{"costcode", FieldCostCode},
	{"costcodeid", FieldCostCode},
	{"code", FieldCostCode},
	{"description", FieldDescription},
	{"workdescription", FieldDescription},
	{"work", FieldDescription},
	{"amount", FieldAmount},
	{"total", FieldAmount},
	{"hours", FieldHours},
	{"rate", FieldRate},
	{"hourlyrate", FieldRate},
	{"changeorder", FieldChangeOrder},
	{"changeorderid", FieldChangeOrderID},
	{"changeordername", FieldChangeOrderName},
	{"nonbillable", FieldNonBillable},
	{"billable", FieldBillable},
	{"subitems", FieldSubItems},
	{"lineitems", FieldSubItems},
}

var (
	fieldRoles = make(map[string]FieldRole, len(fieldAliases))
	aliasRank  = make(map[string]int, len(fieldAliases))
)

func init() {
	for i, a := range fieldAliases {
		fieldRoles[a.alias] = a.role
		aliasRank[a.alias] = i
	}
}

// ClassifyField maps a record key ("cost_code", "Work Description", ...) to its role.
func ClassifyField(key string) FieldRole {
	return fieldRoles[normalizeKey(key)]
}

func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// orderedKeys returns the keys of a record by alias precedence, unknown keys
// last, ties broken by the raw key.
func orderedKeys(raw map[string]any, rank func(string) int) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return keys
}

func fieldRank(key string) int {
	if r, ok := aliasRank[normalizeKey(key)]; ok {
		return r
	}
	return len(fieldAliases)
}

// fieldClaims records which fields a record has already set.
type fieldClaims map[FieldRole]bool

// claim reports whether role is still unset and marks it set. Billable and
// non-billable flags share one field.
func (c fieldClaims) claim(role FieldRole) bool {
	if role == FieldBillable {
		role = FieldNonBillable
	}
	if c[role] {
		return false
	}
	c[role] = true
	return true
}

// UnmarshalJSON decodes a loosely keyed line-item record.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*li = decodeLineItem(raw)
	return nil
}

// UnmarshalJSON decodes a loosely keyed labor line record.
func (li *LaborLineItem) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*li = decodeLaborLineItem(raw)
	return nil
}

func decodeLineItem(raw map[string]any) LineItem {
	item := LineItem{Amount: ParseMoney(nil)}
	co := &ChangeOrderRef{}
	claims := make(fieldClaims)
	for _, key := range orderedKeys(raw, fieldRank) {
		v := raw[key]
		if v == nil {
			continue
		}
		role := ClassifyField(key)
		if role == FieldChangeOrder {
			mergeChangeOrder(co, v, claims)
			continue
		}
		if role == FieldUnknown || !claims.claim(role) {
			continue
		}
		switch role {
		case FieldCostCode:
			item.CostCode = cast.ToString(v)
		case FieldDescription:
			item.Description = cast.ToString(v)
		case FieldAmount:
			item.Amount = ParseMoney(v)
		case FieldChangeOrderID:
			co.ID = cast.ToString(v)
		case FieldChangeOrderName:
			co.Name = cast.ToString(v)
		case FieldBillable:
			item.NonBillable = !decodeBillable(v, true)
		case FieldNonBillable:
			item.NonBillable = decodeBillable(v, false)
		case FieldSubItems:
			if list, ok := v.([]any); ok {
				for _, sub := range list {
					if m, ok := sub.(map[string]any); ok {
						item.SubItems = append(item.SubItems, decodeLineItem(m))
					}
				}
			}
		}
	}
	if !co.IsZero() {
		item.ChangeOrder = co
	}
	return item
}

func decodeLaborLineItem(raw map[string]any) LaborLineItem {
	item := LaborLineItem{Hours: ParseMoney(nil), Rate: ParseMoney(nil)}
	co := &ChangeOrderRef{}
	claims := make(fieldClaims)
	for _, key := range orderedKeys(raw, fieldRank) {
		v := raw[key]
		if v == nil {
			continue
		}
		role := ClassifyField(key)
		if role == FieldChangeOrder {
			mergeChangeOrder(co, v, claims)
			continue
		}
		if role == FieldUnknown || !claims.claim(role) {
			continue
		}
		switch role {
		case FieldCostCode:
			item.CostCode = cast.ToString(v)
		case FieldDescription:
			item.Description = cast.ToString(v)
		case FieldHours:
			item.Hours = ParseMoney(v)
		case FieldRate:
			item.Rate = ParseMoney(v)
		case FieldChangeOrderID:
			co.ID = cast.ToString(v)
		case FieldChangeOrderName:
			co.Name = cast.ToString(v)
		case FieldBillable:
			item.NonBillable = !decodeBillable(v, true)
		case FieldNonBillable:
			item.NonBillable = decodeBillable(v, false)
		}
	}
	if !co.IsZero() {
		item.ChangeOrder = co
	}
	return item
}

var changeOrderKeyRank = map[string]int{"id": 0, "value": 1, "name": 2, "label": 3}

// mergeChangeOrder accepts either {"id": .., "name": ..} or a bare string.
// It claims the change-order id and name so the flat keys cannot override it.
func mergeChangeOrder(co *ChangeOrderRef, v any, claims fieldClaims) {
	switch t := v.(type) {
	case nil:
	case map[string]any:
		rank := func(k string) int {
			if r, ok := changeOrderKeyRank[strings.ToLower(k)]; ok {
				return r
			}
			return len(changeOrderKeyRank)
		}
		for _, k := range orderedKeys(t, rank) {
			switch strings.ToLower(k) {
			case "id", "value":
				if claims.claim(FieldChangeOrderID) {
					co.ID = cast.ToString(t[k])
				}
			case "name", "label":
				if claims.claim(FieldChangeOrderName) {
					co.Name = cast.ToString(t[k])
				}
			}
		}
	default:
		if claims.claim(FieldChangeOrderID) {
			co.ID = cast.ToString(t)
		}
	}
}

func decodeBillable(v any, fallback bool) bool {
	if v == nil {
		return fallback
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return fallback
	}
	return b
}
