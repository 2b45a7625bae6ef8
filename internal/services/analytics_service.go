// Package services orchestrates the analytical core over a loaded
// dataset: it owns validation policy, derives the RFM reference date,
// and fans report computation out across goroutines.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"retailpulse/internal/config"
	"retailpulse/internal/infrastructure"
	"retailpulse/internal/retail"
)

// AnalyticsService exposes the analytical views over a validated,
// immutable dataset. Construct once per loaded dataset; all methods are
// safe for concurrent use because the dataset never changes.
type AnalyticsService struct {
	dataset *retail.Dataset
	quality retail.QualityReport
	cfg     config.AnalyticsConfig
	logger  *slog.Logger
}

// NewAnalyticsService validates the raw records under the configured
// policy and freezes the clean set.
func NewAnalyticsService(raw []retail.Transaction, cfg config.AnalyticsConfig, logger *slog.Logger) (*AnalyticsService, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	clean, report := retail.Validate(raw, retail.QualityOptions{ExcludeFlagged: cfg.ExcludeFlagged})
	logger.Info("dataset validated",
		slog.Int("total_input", report.TotalInput),
		slog.Int("retained", report.Retained),
		slog.Int("dropped", report.Dropped),
		slog.Int("repaired_cogs", report.RepairedCOGS))

	return &AnalyticsService{
		dataset: retail.NewDataset(clean),
		quality: report,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Quality returns the validation report for the loaded dataset.
func (s *AnalyticsService) Quality() retail.QualityReport {
	return s.quality
}

// DatasetSize returns the number of clean records.
func (s *AnalyticsService) DatasetSize() int {
	return s.dataset.Len()
}

// Aggregate groups the dataset and computes the requested metrics, with
// share-of-total columns added for every sum metric.
func (s *AnalyticsService) Aggregate(ctx context.Context, groupBy []retail.GroupField, metrics []retail.MetricSpec) ([]retail.AggregateRow, error) {
	rows, err := retail.Aggregate(s.dataset.Records(), groupBy, metrics)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	for _, m := range metrics {
		if m.Op == retail.OpSum {
			if err := retail.WithShareOfTotal(rows, m); err != nil {
				return nil, fmt.Errorf("aggregate: %w", err)
			}
		}
	}
	infrastructure.LoggerFromContext(ctx).Debug("aggregate computed",
		slog.Int("groups", len(rows)))
	return rows, nil
}

// CustomerValues ranks customers by lifetime spend using the configured
// tier thresholds.
func (s *AnalyticsService) CustomerValues(ctx context.Context) ([]retail.CustomerValue, error) {
	values, err := retail.CustomerValues(s.dataset.Records(), s.thresholds())
	if err != nil {
		return nil, fmt.Errorf("customer values: %w", err)
	}
	return values, nil
}

// RFM scores every customer against the reference date. When no date is
// configured, the latest transaction date in the dataset is used, so the
// result depends only on the data.
func (s *AnalyticsService) RFM(ctx context.Context) ([]retail.RFMProfile, error) {
	ref, err := s.ReferenceDate()
	if err != nil {
		return nil, err
	}
	profiles, err := retail.RFMProfiles(s.dataset.Records(), ref)
	if err != nil {
		return nil, fmt.Errorf("rfm profiles: %w", err)
	}
	return profiles, nil
}

// Cohorts builds the monthly cohort retention matrix.
func (s *AnalyticsService) Cohorts(ctx context.Context) []retail.Cohort {
	return retail.Cohorts(s.dataset.Records())
}

// Outliers flags records whose field value deviates beyond the sigma
// threshold. A zero sigma means the configured default.
func (s *AnalyticsService) Outliers(ctx context.Context, field retail.NumericField, sigma float64) (retail.OutlierReport, error) {
	if sigma == 0 {
		sigma = s.cfg.OutlierSigma
	}
	report, err := retail.DetectOutliers(s.dataset.Records(), field, sigma)
	if err != nil {
		return retail.OutlierReport{}, fmt.Errorf("outliers: %w", err)
	}
	return report, nil
}

// MonthlyTrend computes the month-by-month revenue series with the
// configured moving-average window.
func (s *AnalyticsService) MonthlyTrend(ctx context.Context) ([]retail.TrendRow, error) {
	rows, err := retail.MonthlyTrend(s.dataset.Records(), s.cfg.TrendWindow)
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	return rows, nil
}

// ReferenceDate resolves the RFM reference date: the configured date when
// set, otherwise the latest transaction date in the dataset.
func (s *AnalyticsService) ReferenceDate() (time.Time, error) {
	if ref, ok, err := s.cfg.ParsedReferenceDate(); err != nil {
		return time.Time{}, err
	} else if ok {
		return ref, nil
	}

	var latest time.Time
	for _, rec := range s.dataset.Records() {
		if rec.Date.After(latest) {
			latest = rec.Date
		}
	}
	if latest.IsZero() {
		return time.Time{}, fmt.Errorf("reference date: dataset is empty and no date configured")
	}
	return latest, nil
}

func (s *AnalyticsService) thresholds() retail.TierThresholds {
	return retail.TierThresholds{
		VIP:    s.cfg.TierVIP,
		High:   s.cfg.TierHigh,
		Medium: s.cfg.TierMedium,
	}
}

// FullReport is every analytical view computed over the same dataset,
// stamped with a run ID and generation time.
type FullReport struct {
	RunID          string                 `json:"run_id"`
	GeneratedAt    time.Time              `json:"generated_at"`
	ReferenceDate  time.Time              `json:"reference_date"`
	Quality        retail.QualityReport   `json:"quality"`
	CategorySales  []retail.AggregateRow  `json:"category_sales"`
	GenderSales    []retail.AggregateRow  `json:"gender_sales"`
	CustomerValues []retail.CustomerValue `json:"customer_values"`
	RFMProfiles    []retail.RFMProfile    `json:"rfm_profiles"`
	Cohorts        []retail.Cohort        `json:"cohorts"`
	Outliers       retail.OutlierReport   `json:"outliers"`
	MonthlyTrend   []retail.TrendRow      `json:"monthly_trend"`
}

// GenerateFullReport computes all views in parallel. Any failing view
// fails the whole report.
func (s *AnalyticsService) GenerateFullReport(ctx context.Context) (*FullReport, error) {
	start := time.Now()
	report := &FullReport{
		RunID:       uuid.New().String(),
		GeneratedAt: start.UTC(),
		Quality:     s.quality,
	}

	ref, err := s.ReferenceDate()
	if err != nil {
		return nil, err
	}
	report.ReferenceDate = ref

	salesMetrics := []retail.MetricSpec{
		{Op: retail.OpCount},
		{Op: retail.OpSum, Field: retail.FieldTotalSale},
		{Op: retail.OpAvg, Field: retail.FieldTotalSale},
		{Op: retail.OpStdDev, Field: retail.FieldTotalSale},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.Aggregate(gctx, []retail.GroupField{retail.GroupCategory}, salesMetrics)
		report.CategorySales = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.Aggregate(gctx, []retail.GroupField{retail.GroupGender}, salesMetrics)
		report.GenderSales = rows
		return err
	})
	g.Go(func() error {
		values, err := s.CustomerValues(gctx)
		report.CustomerValues = values
		return err
	})
	g.Go(func() error {
		profiles, err := retail.RFMProfiles(s.dataset.Records(), ref)
		if err != nil {
			return fmt.Errorf("rfm profiles: %w", err)
		}
		report.RFMProfiles = profiles
		return nil
	})
	g.Go(func() error {
		report.Cohorts = s.Cohorts(gctx)
		return nil
	})
	g.Go(func() error {
		outliers, err := s.Outliers(gctx, retail.FieldTotalSale, 0)
		report.Outliers = outliers
		return err
	})
	g.Go(func() error {
		trend, err := s.MonthlyTrend(gctx)
		report.MonthlyTrend = trend
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generate full report: %w", err)
	}

	s.logger.InfoContext(ctx, "full report generated",
		slog.String("run_id", report.RunID),
		slog.Int("records", s.dataset.Len()),
		slog.Duration("elapsed", time.Since(start)))

	return report, nil
}
