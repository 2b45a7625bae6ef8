// Package exporter writes report views to CSV files and to a multi-sheet
// Excel workbook.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"retailpulse/internal/retail"
	"retailpulse/internal/services"
)

// CSVWriter writes report views as CSV files under a reports directory.
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates a CSV writer rooted at the given directory.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

// writeFile writes one CSV file with a header row. A UTF-8 BOM is
// prefixed so Excel opens the file correctly.
func (w *CSVWriter) writeFile(name string, headers []string, records [][]string) error {
	fullPath := filepath.Join(w.dir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create reports directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", fullPath, err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	if err := writer.Error(); err != nil {
		return err
	}

	slog.Info("wrote csv report",
		slog.String("file", fullPath),
		slog.Int("rows", len(records)))
	return nil
}

// WriteFullReport writes every view of the report as its own CSV file.
func (w *CSVWriter) WriteFullReport(report *services.FullReport) error {
	writers := []struct {
		name string
		fn   func() error
	}{
		{"category_sales.csv", func() error { return w.writeAggregates("category_sales.csv", "category", report.CategorySales) }},
		{"gender_sales.csv", func() error { return w.writeAggregates("gender_sales.csv", "gender", report.GenderSales) }},
		{"customer_values.csv", func() error { return w.writeCustomerValues(report.CustomerValues) }},
		{"rfm_profiles.csv", func() error { return w.writeRFMProfiles(report.RFMProfiles) }},
		{"cohorts.csv", func() error { return w.writeCohorts(report.Cohorts) }},
		{"outliers.csv", func() error { return w.writeOutliers(report.Outliers) }},
		{"monthly_trend.csv", func() error { return w.writeTrend(report.MonthlyTrend) }},
	}
	for _, v := range writers {
		if err := v.fn(); err != nil {
			return fmt.Errorf("export %s: %w", v.name, err)
		}
	}
	return nil
}

func (w *CSVWriter) writeAggregates(name, keyHeader string, rows []retail.AggregateRow) error {
	if len(rows) == 0 {
		return w.writeFile(name, []string{keyHeader}, nil)
	}

	// Metric columns sorted by name so the layout is stable run to run.
	var metricNames []string
	for metricName := range rows[0].Metrics {
		metricNames = append(metricNames, metricName)
	}
	sort.Strings(metricNames)

	headers := append([]string{keyHeader, "count"}, metricNames...)
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := []string{joinKey(row.Key), strconv.Itoa(row.Count)}
		for _, metricName := range metricNames {
			record = append(record, formatFloat(row.Metrics[metricName]))
		}
		records = append(records, record)
	}
	return w.writeFile(name, headers, records)
}

func (w *CSVWriter) writeCustomerValues(values []retail.CustomerValue) error {
	headers := []string{"customer_id", "transactions", "total_spent", "avg_sale", "tier", "rank", "percent_rank", "spend_bucket"}
	records := make([][]string, 0, len(values))
	for _, v := range values {
		records = append(records, []string{
			v.CustomerID,
			strconv.Itoa(v.Transactions),
			formatFloat(v.TotalSpent),
			formatFloat(v.AvgSale),
			string(v.Tier),
			strconv.Itoa(v.Rank),
			formatFloat(v.PercentRank),
			strconv.Itoa(v.SpendBucket),
		})
	}
	return w.writeFile("customer_values.csv", headers, records)
}

func (w *CSVWriter) writeRFMProfiles(profiles []retail.RFMProfile) error {
	headers := []string{"customer_id", "recency_days", "frequency", "monetary_value", "r_score", "f_score", "m_score", "segment"}
	records := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		records = append(records, []string{
			p.CustomerID,
			strconv.Itoa(p.RecencyDays),
			strconv.Itoa(p.Frequency),
			formatFloat(p.MonetaryValue),
			strconv.Itoa(p.RecencyScore),
			strconv.Itoa(p.FrequencyScore),
			strconv.Itoa(p.MonetaryScore),
			string(p.Segment),
		})
	}
	return w.writeFile("rfm_profiles.csv", headers, records)
}

func (w *CSVWriter) writeCohorts(cohorts []retail.Cohort) error {
	headers := []string{"cohort", "size", "offset", "active", "retention_pct"}
	var records [][]string
	for _, c := range cohorts {
		offsets := make([]int, 0, len(c.ActiveByOffset))
		for offset := range c.ActiveByOffset {
			offsets = append(offsets, offset)
		}
		sort.Ints(offsets)
		for _, offset := range offsets {
			records = append(records, []string{
				c.Period.Format("2006-01"),
				strconv.Itoa(c.Size),
				strconv.Itoa(offset),
				strconv.Itoa(c.ActiveByOffset[offset]),
				formatFloat(c.RetentionByOffset[offset]),
			})
		}
	}
	return w.writeFile("cohorts.csv", headers, records)
}

func (w *CSVWriter) writeOutliers(report retail.OutlierReport) error {
	headers := []string{"transaction_id", "customer_id", "field", "value", "z_score", "severity"}
	records := make([][]string, 0, len(report.Outliers))
	for _, o := range report.Outliers {
		records = append(records, []string{
			strconv.FormatInt(o.Record.ID, 10),
			o.Record.CustomerID,
			string(o.Field),
			formatFloat(o.Value),
			formatFloat(o.ZScore),
			string(o.Severity),
		})
	}
	return w.writeFile("outliers.csv", headers, records)
}

func (w *CSVWriter) writeTrend(rows []retail.TrendRow) error {
	headers := []string{"month", "transactions", "revenue", "prior_revenue", "revenue_delta", "window_average"}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		prior := ""
		if row.PriorRevenue.Valid {
			prior = formatFloat(row.PriorRevenue.Value)
		}
		records = append(records, []string{
			row.Month.Format("2006-01"),
			strconv.Itoa(row.Transactions),
			formatFloat(row.Revenue),
			prior,
			formatFloat(row.RevenueDelta),
			formatFloat(row.WindowAverage),
		})
	}
	return w.writeFile("monthly_trend.csv", headers, records)
}

func joinKey(key []string) string {
	if len(key) == 1 {
		return key[0]
	}
	joined := ""
	for i, part := range key {
		if i > 0 {
			joined += "/"
		}
		joined += part
	}
	return joined
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
