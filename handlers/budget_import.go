package handlers

import (
	"fmt"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"clientbilling/observability"
	"clientbilling/services"
)

// HandleBudgetImport validates an uploaded CSV or XLSX budget and, when every
// row is valid, stores it as the project's cost-code tree. A project has one
// budget; a new upload replaces it.
// Route: POST /projects/{projectId}/budget/import
func HandleBudgetImport(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		logger := observability.FromContext(e.Request.Context())

		if _, err := app.FindRecordById("projects", projectID); err != nil {
			return ErrorToast(e, http.StatusNotFound, "Project not found")
		}

		// Parse multipart form (max 10MB)
		if err := e.Request.ParseMultipartForm(10 << 20); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "File too large or invalid form data")
		}

		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Please select a file to upload")
		}
		defer file.Close()

		result, err := services.ImportBudget(file, header.Filename)
		if err != nil {
			logger.Info("budget import rejected", zap.String("project_id", projectID), zap.Error(err))
			return ErrorToast(e, http.StatusBadRequest, err.Error())
		}

		if result.ErrorRows > 0 {
			SetToast(e, toastError, fmt.Sprintf("%d of %d rows have errors", result.ErrorRows, result.TotalRows))
			return e.JSON(http.StatusUnprocessableEntity, result)
		}

		if err := services.ValidateCostCodeTree(result.Tree); err != nil {
			return ErrorToast(e, http.StatusUnprocessableEntity, err.Error())
		}

		if err := saveBudget(app, projectID, result); err != nil {
			logger.Error("budget import: save", zap.String("project_id", projectID), zap.Error(err))
			return ErrorToast(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}

		logger.Info("budget imported",
			zap.String("project_id", projectID),
			zap.String("file", header.Filename),
			zap.Int("rows", result.ValidRows),
		)
		SetToast(e, toastSuccess, fmt.Sprintf("Budget imported: %d cost codes", result.ValidRows))
		return e.JSON(http.StatusOK, result)
	}
}

// saveBudget creates or replaces the budget record of a project.
func saveBudget(app *pocketbase.PocketBase, projectID string, result *services.BudgetImportResult) error {
	record, err := app.FindFirstRecordByFilter("budgets", "project = {:projectId}", map[string]any{"projectId": projectID})
	if err != nil {
		col, err := app.FindCollectionByNameOrId("budgets")
		if err != nil {
			return fmt.Errorf("budgets collection: %w", err)
		}
		record = core.NewRecord(col)
		record.Set("project", projectID)
	}

	record.Set("cost_code_tree", result.Tree)
	record.Set("source_file", result.FileName)
	if err := app.Save(record); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

// HandleBudgetTemplateDownload serves an empty budget workbook with the
// expected columns and one sample row.
// Route: GET /projects/{projectId}/budget/template
func HandleBudgetTemplateDownload(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		xlsxBytes, err := services.GenerateBudgetTemplate()
		if err != nil {
			observability.FromContext(e.Request.Context()).Error("budget template", zap.Error(err))
			return e.String(http.StatusInternalServerError, "Failed to generate template")
		}

		e.Response.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition", `attachment; filename="Budget_Template.xlsx"`)
		e.Response.Write(xlsxBytes)
		return nil
	}
}
