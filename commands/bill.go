// Package commands holds the command-line entry points registered on the
// PocketBase root command.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clientbilling/config"
	"clientbilling/observability"
	"clientbilling/services"
)

type billOptions struct {
	input   string
	project string
	pdf     string
	xlsx    string
	asJSON  bool
}

// NewBillCommand computes a client bill from a BillingInput JSON file without
// touching the database, prints its totals and optionally writes the PDF and
// Excel reports.
func NewBillCommand(cfg config.Config, logger *zap.Logger) *cobra.Command {
	opts := &billOptions{}
	logger = observability.OrNop(logger)

	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Compute a client bill from a JSON billing input file",
		Args:  cobra.NoArgs,

		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBill(cmd.OutOrStdout(), cfg, logger, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "billing input JSON file")
	cmd.Flags().StringVar(&opts.project, "project", "", "project name printed on the reports")
	cmd.Flags().StringVar(&opts.pdf, "pdf", "", "write the PDF report to this path")
	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "write the Excel report to this path")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the totals as JSON")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runBill(out io.Writer, cfg config.Config, logger *zap.Logger, opts *billOptions) error {
	in, err := readBillingInput(opts.input)
	if err != nil {
		return err
	}
	in.Index = services.IndexOptions{ProfitTaxesLiabilityCodes: cfg.ProfitTaxesLiabilityCodes}

	result := services.CreateBudgetActuals(in)
	for _, d := range result.Diagnostics {
		logger.Warn("billing line skipped or flagged", zap.String("diagnostic", d.String()))
	}

	data := services.BuildBillingReport(result, in.Summary, services.ReportMeta{
		CompanyName:    cfg.CompanyName,
		ProjectName:    opts.project,
		CreatedDate:    time.Now().Format("Jan 2, 2006"),
		CurrencySymbol: cfg.CurrencySymbol,
	}, services.ReportOptions{SkipEmpty: cfg.SkipEmptyRows})

	if opts.asJSON {
		if err := printJSON(out, data); err != nil {
			return err
		}
	} else {
		printSummary(out, data)
	}

	if opts.pdf != "" {
		b, err := services.GenerateBillingPDF(data)
		if err != nil {
			return fmt.Errorf("generate pdf: %w", err)
		}
		if err := os.WriteFile(opts.pdf, b, 0o644); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		logger.Info("pdf written", zap.String("path", opts.pdf))
	}
	if opts.xlsx != "" {
		b, err := services.GenerateBillingExcel(data)
		if err != nil {
			return fmt.Errorf("generate excel: %w", err)
		}
		if err := os.WriteFile(opts.xlsx, b, 0o644); err != nil {
			return fmt.Errorf("write excel: %w", err)
		}
		logger.Info("excel written", zap.String("path", opts.xlsx))
	}
	return nil
}

func readBillingInput(path string) (services.BillingInput, error) {
	var in services.BillingInput
	raw, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("read billing input: %w", err)
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("decode billing input %s: %w", path, err)
	}
	if err := services.ValidateCostCodeTree(in.Tree); err != nil {
		return in, fmt.Errorf("billing input %s: %w", path, err)
	}
	return in, nil
}

func printSummary(out io.Writer, data services.BillingReportData) {
	fmt.Fprintf(out, "%s\n", data.BillTitle)
	fmt.Fprintf(out, "Invoices: %d  Change orders: %d\n", data.NumInvoices, data.NumChangeOrders)
	for _, tr := range []services.TrackReport{data.Current, data.ChangeOrders} {
		fmt.Fprintf(out, "\n%s\n", tr.Label)
		fmt.Fprintf(out, "  %-20s %s\n", "Subtotal", services.FormatMoney(data.CurrencySymbol, tr.Totals.Subtotal))
		if tr.Err != nil {
			fmt.Fprintf(out, "  Totals unavailable: %v\n", tr.Err)
			continue
		}
		bt := tr.BillTotals
		for _, line := range []struct {
			label  string
			amount string
		}{
			{"Profit", services.FormatMoney(data.CurrencySymbol, bt.Profit)},
			{"Liability Insurance", services.FormatMoney(data.CurrencySymbol, bt.Liability)},
			{"B&O Tax", services.FormatMoney(data.CurrencySymbol, bt.BOTax)},
			{"Sales Tax", services.FormatMoney(data.CurrencySymbol, bt.SalesTax)},
			{"Total", services.FormatMoney(data.CurrencySymbol, bt.Total)},
		} {
			fmt.Fprintf(out, "  %-20s %s\n", line.label, line.amount)
		}
	}
	if len(data.Diagnostics) > 0 {
		fmt.Fprintf(out, "\n%d line(s) need attention\n", len(data.Diagnostics))
	}
}

type trackJSON struct {
	Label      string              `json:"label"`
	Totals     services.Totals     `json:"totals"`
	BillTotals services.BillTotals `json:"billTotals"`
	Error      string              `json:"error,omitempty"`
}

func printJSON(out io.Writer, data services.BillingReportData) error {
	tracks := make([]trackJSON, 0, 2)
	for _, tr := range []services.TrackReport{data.Current, data.ChangeOrders} {
		tj := trackJSON{Label: tr.Label, Totals: tr.Totals, BillTotals: tr.BillTotals}
		if tr.Err != nil {
			tj.Error = tr.Err.Error()
		}
		tracks = append(tracks, tj)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{
		"billTitle":       data.BillTitle,
		"numInvoices":     data.NumInvoices,
		"numChangeOrders": data.NumChangeOrders,
		"tracks":          tracks,
		"diagnostics":     data.Diagnostics,
	}); err != nil {
		return fmt.Errorf("encode totals: %w", err)
	}
	return nil
}
