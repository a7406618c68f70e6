package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"solana-presale/internal/analytics"
	"solana-presale/internal/clock"
	"solana-presale/internal/reporting"
)

var (
	reportOutputDir string
	reportAggregate bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the settlement report (REPORT.md, PARTICIPANTS.csv)",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportOutputDir, "output-dir", "output", "Output directory for generated files")
	reportCmd.Flags().BoolVar(&reportAggregate, "aggregate", true, "Store raise timeseries before rendering")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, cleanup, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	saleCfg, vault, err := saleIdentity(cfg)
	if err != nil {
		return err
	}

	if reportAggregate {
		points, err := analytics.NewRunner(st.events, st.timeseries).AggregateSale(ctx, vault)
		if err != nil {
			return fmt.Errorf("aggregate raise timeseries: %w", err)
		}
		logger.Info().Str("sale", vault).Int("points", len(points)).Msg("stored raise timeseries")
	}

	report, err := reporting.NewGenerator(st.events, st.timeseries, clock.System{}).
		Generate(ctx, saleCfg, vault, cfg.Sale.Owner)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if err := os.MkdirAll(reportOutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := []struct{ name, body string }{
		{"REPORT.md", reporting.RenderMarkdown(report)},
		{"PARTICIPANTS.csv", reporting.RenderCSV(report.Participants)},
	}
	for _, f := range files {
		path := filepath.Join(reportOutputDir, f.name)
		if err := os.WriteFile(path, []byte(f.body), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("  - %s\n", path)
	}

	if len(report.IntegrityErrors) > 0 {
		logger.Warn().Strs("errors", report.IntegrityErrors).Msg("report contains integrity errors")
	}
	return nil
}
