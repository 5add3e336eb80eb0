package collections

import (
	"fmt"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"
)

// Setup programmatically creates/ensures the projects, project_summaries,
// budgets, client_bills, invoices and labor_entries collections exist.
func Setup(app *pocketbase.PocketBase) error {
	projects, err := ensureCollection(app, "projects", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "client_name"})
		c.Fields.Add(&core.TextField{Name: "reference_number"})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    []string{"active", "completed", "on_hold"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})
	if err != nil {
		return err
	}

	// Rates are decimal fractions (0.12 = 12%).
	if _, err := ensureCollection(app, "project_summaries", func(c *core.Collection) {
		c.Fields.Add(projectRelation(projects))
		c.Fields.Add(&core.NumberField{Name: "profit_rate"})
		c.Fields.Add(&core.NumberField{Name: "liability_rate"})
		c.Fields.Add(&core.NumberField{Name: "bo_tax_rate"})
		c.Fields.Add(&core.NumberField{Name: "sales_tax_rate"})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	}); err != nil {
		return err
	}

	if _, err := ensureCollection(app, "budgets", func(c *core.Collection) {
		c.Fields.Add(projectRelation(projects))
		c.Fields.Add(&core.JSONField{Name: "cost_code_tree", Required: true})
		c.Fields.Add(&core.JSONField{Name: "cost_code_names"})
		c.Fields.Add(&core.TextField{Name: "source_file"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	}); err != nil {
		return err
	}

	bills, err := ensureCollection(app, "client_bills", func(c *core.Collection) {
		c.Fields.Add(projectRelation(projects))
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
		c.Fields.Add(&core.NumberField{Name: "sort_order"})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    []string{"draft", "submitted", "paid"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})
	if err != nil {
		return err
	}

	if _, err := ensureCollection(app, "invoices", func(c *core.Collection) {
		c.Fields.Add(billRelation(bills))
		c.Fields.Add(&core.TextField{Name: "vendor", Required: true})
		c.Fields.Add(&core.TextField{Name: "invoice_number"})
		c.Fields.Add(&core.JSONField{Name: "line_items"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
	}); err != nil {
		return err
	}

	if _, err := ensureCollection(app, "labor_entries", func(c *core.Collection) {
		c.Fields.Add(billRelation(bills))
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.JSONField{Name: "line_items"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
	}); err != nil {
		return err
	}

	return nil
}

func projectRelation(projects *core.Collection) *core.RelationField {
	return &core.RelationField{
		Name:          "project",
		Required:      true,
		CollectionId:  projects.Id,
		CascadeDelete: true,
		MaxSelect:     1,
	}
}

func billRelation(bills *core.Collection) *core.RelationField {
	return &core.RelationField{
		Name:          "client_bill",
		Required:      true,
		CollectionId:  bills.Id,
		CascadeDelete: true,
		MaxSelect:     1,
	}
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app *pocketbase.PocketBase, name string, addFields func(*core.Collection)) (*core.Collection, error) {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		zap.L().Debug("collection already exists", zap.String("collection", name))
		return existing, nil
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		return nil, fmt.Errorf("create collection %q: %w", name, err)
	}

	zap.L().Info("created collection", zap.String("collection", name), zap.String("id", collection.Id))
	return collection, nil
}
