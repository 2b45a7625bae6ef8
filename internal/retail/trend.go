package retail

import (
	"fmt"
	"sort"
	"time"
)

// TrendRow is one calendar month of revenue with lag-based and
// moving-window annotations. Delta fields are unset (PriorRevenue.Valid
// false) for the first month, where no prior value exists.
type TrendRow struct {
	Month         time.Time `json:"month"`
	Transactions  int       `json:"transactions"`
	Revenue       float64   `json:"revenue"`
	PriorRevenue  LagValue  `json:"prior_revenue"`
	RevenueDelta  float64   `json:"revenue_delta"`
	WindowAverage float64   `json:"window_average"`
}

// MonthlyTrend aggregates revenue per calendar month, orders the months
// chronologically, and annotates each with the prior month's revenue, the
// month-over-month delta, and a moving average over the trailing window.
// The moving window truncates at the start of the series.
func MonthlyTrend(records []Transaction, window int) ([]TrendRow, error) {
	if window <= 0 {
		return nil, fmt.Errorf("monthly trend: window must be positive, got %d", window)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows, err := Aggregate(records,
		[]GroupField{GroupMonth},
		[]MetricSpec{{Op: OpCount}, {Op: OpSum, Field: FieldTotalSale}},
	)
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	sort.Slice(rows, func(a, b int) bool { return rows[a].Key[0] < rows[b].Key[0] })

	revenue := make([]float64, len(rows))
	for i, row := range rows {
		revenue[i] = row.Metrics["sum_total_sale"]
	}
	prior, err := Lag(revenue, 1)
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	avg, err := MovingAverage(revenue, window)
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}

	out := make([]TrendRow, len(rows))
	for i, row := range rows {
		month, err := time.Parse("2006-01", row.Key[0])
		if err != nil {
			return nil, fmt.Errorf("monthly trend: parse month %q: %w", row.Key[0], err)
		}
		tr := TrendRow{
			Month:         month,
			Transactions:  row.Count,
			Revenue:       revenue[i],
			PriorRevenue:  prior[i],
			WindowAverage: avg[i],
		}
		if prior[i].Valid {
			tr.RevenueDelta = revenue[i] - prior[i].Value
		}
		out[i] = tr
	}
	return out, nil
}
