package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"retailpulse/internal/retail"
	"retailpulse/internal/services"
)

// ExcelWriter writes the full report as a single multi-sheet workbook.
type ExcelWriter struct {
	dir string
}

// NewExcelWriter creates an Excel writer rooted at the given directory.
func NewExcelWriter(dir string) *ExcelWriter {
	return &ExcelWriter{dir: dir}
}

// WriteFullReport writes one sheet per view to the named workbook file.
func (w *ExcelWriter) WriteFullReport(report *services.FullReport, fileName string) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create reports directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeSummarySheet(f, report); err != nil {
		return err
	}
	if err := w.writeAggregateSheet(f, "Category Sales", "Category", report.CategorySales); err != nil {
		return err
	}
	if err := w.writeAggregateSheet(f, "Gender Sales", "Gender", report.GenderSales); err != nil {
		return err
	}
	if err := w.writeCustomerSheet(f, report.CustomerValues); err != nil {
		return err
	}
	if err := w.writeRFMSheet(f, report.RFMProfiles); err != nil {
		return err
	}
	if err := w.writeTrendSheet(f, report.MonthlyTrend); err != nil {
		return err
	}

	// The default sheet was replaced by Summary.
	if idx, err := f.GetSheetIndex("Summary"); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	fullPath := filepath.Join(w.dir, fileName)
	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	slog.Info("wrote excel report", slog.String("file", fullPath))
	return nil
}

func (w *ExcelWriter) writeSummarySheet(f *excelize.File, report *services.FullReport) error {
	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Run ID", report.RunID},
		{"Generated At", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Reference Date", report.ReferenceDate.Format("2006-01-02")},
		{},
		{"Input Records", report.Quality.TotalInput},
		{"Retained", report.Quality.Retained},
		{"Dropped", report.Quality.Dropped},
		{"Repaired COGS", report.Quality.RepairedCOGS},
		{"Flagged Age", report.Quality.FlaggedAge},
		{"Flagged Arithmetic", report.Quality.FlaggedArithmetic},
		{},
		{"Outliers Flagged", len(report.Outliers.Outliers)},
	}
	return writeRows(f, sheet, rows)
}

func (w *ExcelWriter) writeAggregateSheet(f *excelize.File, sheet, keyHeader string, aggregates []retail.AggregateRow) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	var metricNames []string
	if len(aggregates) > 0 {
		for name := range aggregates[0].Metrics {
			metricNames = append(metricNames, name)
		}
		sort.Strings(metricNames)
	}

	header := []interface{}{keyHeader, "Count"}
	for _, name := range metricNames {
		header = append(header, name)
	}
	rows := [][]interface{}{header}
	for _, agg := range aggregates {
		row := []interface{}{joinKey(agg.Key), agg.Count}
		for _, name := range metricNames {
			row = append(row, agg.Metrics[name])
		}
		rows = append(rows, row)
	}
	return writeRows(f, sheet, rows)
}

func (w *ExcelWriter) writeCustomerSheet(f *excelize.File, values []retail.CustomerValue) error {
	const sheet = "Customer Values"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	rows := [][]interface{}{
		{"Customer", "Transactions", "Total Spent", "Avg Sale", "Tier", "Rank", "Percent Rank", "Spend Bucket"},
	}
	for _, v := range values {
		rows = append(rows, []interface{}{
			v.CustomerID, v.Transactions, v.TotalSpent, v.AvgSale,
			string(v.Tier), v.Rank, v.PercentRank, v.SpendBucket,
		})
	}
	return writeRows(f, sheet, rows)
}

func (w *ExcelWriter) writeRFMSheet(f *excelize.File, profiles []retail.RFMProfile) error {
	const sheet = "RFM Segments"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	rows := [][]interface{}{
		{"Customer", "Recency (days)", "Frequency", "Monetary", "R", "F", "M", "Segment"},
	}
	for _, p := range profiles {
		rows = append(rows, []interface{}{
			p.CustomerID, p.RecencyDays, p.Frequency, p.MonetaryValue,
			p.RecencyScore, p.FrequencyScore, p.MonetaryScore, string(p.Segment),
		})
	}
	return writeRows(f, sheet, rows)
}

func (w *ExcelWriter) writeTrendSheet(f *excelize.File, trend []retail.TrendRow) error {
	const sheet = "Monthly Trend"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	rows := [][]interface{}{
		{"Month", "Transactions", "Revenue", "Prior Revenue", "Delta", "Moving Avg"},
	}
	for _, t := range trend {
		var prior interface{}
		if t.PriorRevenue.Valid {
			prior = t.PriorRevenue.Value
		}
		rows = append(rows, []interface{}{
			t.Month.Format("2006-01"), t.Transactions, t.Revenue, prior, t.RevenueDelta, t.WindowAverage,
		})
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d on %s: %w", i+1, sheet, err)
		}
	}
	return nil
}
