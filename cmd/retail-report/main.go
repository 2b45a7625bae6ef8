// Command retail-report loads a transactions CSV, runs the full
// analytics suite, and writes the report as CSV files and an Excel
// workbook.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"retailpulse/internal/config"
	"retailpulse/internal/exporter"
	"retailpulse/internal/infrastructure"
	"retailpulse/internal/ingest"
	"retailpulse/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "retail-report: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile = flag.String("config", "", "path to YAML config file")
		inputCSV   = flag.String("input", "", "transactions CSV file (overrides config)")
		outputDir  = flag.String("output", "", "reports directory (overrides config)")
		xlsxName   = flag.String("xlsx", "retail_report.xlsx", "Excel workbook file name")
		refDate    = flag.String("reference-date", "", "RFM reference date (YYYY-MM-DD, default: latest transaction)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	if *inputCSV != "" {
		cfg.Paths.InputCSV = *inputCSV
	}
	if *outputDir != "" {
		cfg.Paths.ReportsDir = *outputDir
	}
	if *refDate != "" {
		cfg.Analytics.ReferenceDate = *refDate
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	loaded, err := ingest.LoadCSV(cfg.Paths.InputCSV)
	if err != nil {
		return err
	}
	for _, rowErr := range loaded.RowErrors {
		logger.Warn("skipped unparseable row",
			slog.Int("row", rowErr.Row),
			slog.String("reason", rowErr.Reason))
	}

	svc, err := services.NewAnalyticsService(loaded.Transactions, cfg.Analytics, logger)
	if err != nil {
		return err
	}

	report, err := svc.GenerateFullReport(context.Background())
	if err != nil {
		return err
	}

	csvWriter := exporter.NewCSVWriter(cfg.Paths.ReportsDir)
	if err := csvWriter.WriteFullReport(report); err != nil {
		return fmt.Errorf("write csv reports: %w", err)
	}

	excelWriter := exporter.NewExcelWriter(cfg.Paths.ReportsDir)
	if err := excelWriter.WriteFullReport(report, *xlsxName); err != nil {
		return fmt.Errorf("write excel report: %w", err)
	}

	logger.Info("report complete",
		slog.String("run_id", report.RunID),
		slog.String("reports_dir", cfg.Paths.ReportsDir),
		slog.Int("customers", len(report.CustomerValues)),
		slog.Int("outliers", len(report.Outliers.Outliers)))
	return nil
}
