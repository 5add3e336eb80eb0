package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"clientbilling/config"
	"clientbilling/observability"
	"clientbilling/services"
)

// sanitizeFilename removes characters that are unsafe for filenames.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, "#", "")
	s = strings.ReplaceAll(s, `"`, "")
	return s
}

// exportFilename builds the download name of a bill export.
func exportFilename(data services.BillingReportData, ext string) string {
	name := sanitizeFilename(data.BillTitle)
	if project := sanitizeFilename(data.ProjectName); project != "" {
		name = project + "_" + name
	}
	return fmt.Sprintf("%s.%s", name, ext)
}

// HandleClientBillExportExcel downloads a client bill as an Excel workbook.
// Route: GET /projects/{projectId}/bills/{billId}/export/excel
func HandleClientBillExportExcel(app *pocketbase.PocketBase, cfg config.Config) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		billID := e.Request.PathValue("billId")
		logger := observability.FromContext(e.Request.Context())

		_, data, err := buildBillingReport(app, cfg, logger, projectID, billID)
		if err != nil {
			logger.Error("export excel", zap.String("bill_id", billID), zap.Error(err))
			return e.String(reportStatus(err), "Client bill not available")
		}

		xlsxBytes, err := services.GenerateBillingExcel(data)
		if err != nil {
			logger.Error("export excel: generate", zap.String("bill_id", billID), zap.Error(err))
			return e.String(http.StatusInternalServerError, "Failed to generate Excel file")
		}

		e.Response.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(data, "xlsx")))
		e.Response.Write(xlsxBytes)
		return nil
	}
}

// HandleClientBillExportPDF downloads a client bill as a PDF.
// Route: GET /projects/{projectId}/bills/{billId}/export/pdf
func HandleClientBillExportPDF(app *pocketbase.PocketBase, cfg config.Config) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		billID := e.Request.PathValue("billId")
		logger := observability.FromContext(e.Request.Context())

		_, data, err := buildBillingReport(app, cfg, logger, projectID, billID)
		if err != nil {
			logger.Error("export pdf", zap.String("bill_id", billID), zap.Error(err))
			return e.String(reportStatus(err), "Client bill not available")
		}

		pdfBytes, err := services.GenerateBillingPDF(data)
		if err != nil {
			logger.Error("export pdf: generate", zap.String("bill_id", billID), zap.Error(err))
			return e.String(http.StatusInternalServerError, "Failed to generate PDF file")
		}

		e.Response.Header().Set("Content-Type", "application/pdf")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(data, "pdf")))
		e.Response.Write(pdfBytes)
		return nil
	}
}
