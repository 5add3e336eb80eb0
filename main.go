package main

import (
	"log"
	"net/http"
	"os"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"clientbilling/collections"
	"clientbilling/commands"
	"clientbilling/config"
	"clientbilling/handlers"
	"clientbilling/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	app := pocketbase.New()
	app.RootCmd.AddCommand(commands.NewBillCommand(cfg, logger))

	// Create collections and seed data on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		if err := collections.Setup(app); err != nil {
			return err
		}
		if err := collections.Seed(app); err != nil {
			logger.Warn("seed data failed", zap.Error(err))
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		se.Router.GET("/static/{path...}", apis.Static(os.DirFS("./static"), false))

		se.Router.BindFunc(handlers.RequestLogger(logger))

		// ── Client bills ─────────────────────────────────────────
		se.Router.GET("/projects/{projectId}/bills", handlers.HandleBillList(app))
		se.Router.GET("/projects/{projectId}/bills/{billId}/totals", handlers.HandleClientBillTotals(app, cfg))
		se.Router.GET("/projects/{projectId}/bills/{billId}/export/pdf", handlers.HandleClientBillExportPDF(app, cfg))
		se.Router.GET("/projects/{projectId}/bills/{billId}/export/excel", handlers.HandleClientBillExportExcel(app, cfg))
		se.Router.GET("/projects/{projectId}/bills/{billId}", handlers.HandleClientBillView(app, cfg))

		// ── Budget ───────────────────────────────────────────────
		se.Router.POST("/projects/{projectId}/budget/import", handlers.HandleBudgetImport(app))
		se.Router.GET("/projects/{projectId}/budget/template", handlers.HandleBudgetTemplateDownload(app))

		se.Router.GET("/", func(e *core.RequestEvent) error {
			return e.String(http.StatusOK, cfg.CompanyName)
		})

		return se.Next()
	})

	if err := app.Start(); err != nil {
		logger.Fatal("pocketbase exited", zap.Error(err))
	}
}
