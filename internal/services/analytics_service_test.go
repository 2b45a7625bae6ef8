package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpulse/internal/config"
	"retailpulse/internal/retail"
)

func testAnalyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		TierVIP:      2000,
		TierHigh:     1000,
		TierMedium:   500,
		OutlierSigma: 2,
		TrendWindow:  3,
	}
}

func sale(id int64, customer, category string, date time.Time, total float64) retail.Transaction {
	return retail.Transaction{
		ID:         id,
		Date:       date,
		CustomerID: customer,
		Gender:     retail.GenderFemale,
		Age:        30,
		Category:   category,
		Quantity:   1,
		UnitPrice:  total,
		COGS:       total * 0.5,
		TotalSale:  total,
	}
}

func testRecords() []retail.Transaction {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	return []retail.Transaction{
		sale(1, "alice", "Beauty", jan, 1500),
		sale(2, "alice", "Beauty", jan.AddDate(0, 1, 0), 1500),
		sale(3, "bob", "Clothing", jan, 1200),
		sale(4, "carol", "Beauty", jan.AddDate(0, 2, 0), 600),
		sale(5, "dave", "Electronics", jan.AddDate(0, 2, 5), 100),
	}
}

func TestNewAnalyticsServiceValidates(t *testing.T) {
	records := testRecords()
	// A row that the validator must drop.
	bad := sale(6, "eve", "Beauty", records[0].Date, 100)
	bad.Quantity = 0

	svc, err := NewAnalyticsService(append(records, bad), testAnalyticsConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, 5, svc.DatasetSize())
	assert.Equal(t, 6, svc.Quality().TotalInput)
	assert.Equal(t, 1, svc.Quality().Dropped)
}

func TestAggregateAddsShareOfTotal(t *testing.T) {
	svc, err := NewAnalyticsService(testRecords(), testAnalyticsConfig(), nil)
	require.NoError(t, err)

	rows, err := svc.Aggregate(context.Background(),
		[]retail.GroupField{retail.GroupCategory},
		[]retail.MetricSpec{{Op: retail.OpSum, Field: retail.FieldTotalSale}})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	var shareTotal float64
	for _, row := range rows {
		shareTotal += row.Metrics["share_sum_total_sale"]
	}
	assert.InDelta(t, 100, shareTotal, 1e-9, "shares sum to 100")
}

func TestReferenceDateDerivedFromLatestTransaction(t *testing.T) {
	svc, err := NewAnalyticsService(testRecords(), testAnalyticsConfig(), nil)
	require.NoError(t, err)

	ref, err := svc.ReferenceDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), ref)
}

func TestReferenceDateConfigured(t *testing.T) {
	cfg := testAnalyticsConfig()
	cfg.ReferenceDate = "2024-07-01"

	svc, err := NewAnalyticsService(testRecords(), cfg, nil)
	require.NoError(t, err)

	ref, err := svc.ReferenceDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), ref)
}

func TestGenerateFullReport(t *testing.T) {
	svc, err := NewAnalyticsService(testRecords(), testAnalyticsConfig(), nil)
	require.NoError(t, err)

	report, err := svc.GenerateFullReport(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.GeneratedAt.IsZero())
	assert.Len(t, report.CategorySales, 3)
	assert.Len(t, report.CustomerValues, 4)
	assert.Len(t, report.RFMProfiles, 4)
	assert.Len(t, report.Cohorts, 2)
	assert.Len(t, report.MonthlyTrend, 3)
	assert.Equal(t, retail.FieldTotalSale, report.Outliers.Field)

	// The ranked customer list leads with the top spender.
	assert.Equal(t, "alice", report.CustomerValues[0].CustomerID)
	assert.Equal(t, retail.TierVIP, report.CustomerValues[0].Tier)
}

func TestRFMUsesDerivedReferenceDate(t *testing.T) {
	svc, err := NewAnalyticsService(testRecords(), testAnalyticsConfig(), nil)
	require.NoError(t, err)

	profiles, err := svc.RFM(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 4)

	for _, p := range profiles {
		assert.GreaterOrEqual(t, p.RecencyDays, 0)
	}
}
