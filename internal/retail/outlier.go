package retail

import (
	"fmt"
	"math"
)

// Severity labels how far an outlier deviates from the dataset mean.
type Severity string

const (
	SeverityModerate Severity = "Moderate"
	SeverityExtreme  Severity = "Extreme"
)

// severityFor classifies an absolute z-score.
func severityFor(absZ float64) Severity {
	if absZ > 3 {
		return SeverityExtreme
	}
	return SeverityModerate
}

// Outlier is a record whose field value deviates from the dataset mean by
// more than the requested number of standard deviations.
type Outlier struct {
	Record   Transaction  `json:"record"`
	Field    NumericField `json:"field"`
	Value    float64      `json:"value"`
	ZScore   float64      `json:"z_score"`
	Severity Severity     `json:"severity"`
}

// OutlierReport carries the flagged records together with the dataset
// statistics they were measured against.
type OutlierReport struct {
	Field          NumericField `json:"field"`
	ThresholdSigma float64      `json:"threshold_sigma"`
	Mean           float64      `json:"mean"`
	StdDev         float64      `json:"std_dev"`
	Outliers       []Outlier    `json:"outliers"`
}

// DetectOutliers flags records whose field value has |z| > thresholdSigma
// against the population mean and standard deviation of the full dataset.
// The population formula (divide by N) is deliberate: this is a statistic
// of the whole set, unlike the per-group sample stddev in aggregation.
// A zero dataset stddev means every value is identical; detection then
// returns an empty report rather than dividing by zero.
func DetectOutliers(records []Transaction, field NumericField, thresholdSigma float64) (OutlierReport, error) {
	if thresholdSigma <= 0 {
		return OutlierReport{}, fmt.Errorf("detect outliers: threshold sigma must be positive, got %g", thresholdSigma)
	}
	if _, err := field.Value(Transaction{}); err != nil {
		return OutlierReport{}, fmt.Errorf("detect outliers: %w", err)
	}

	report := OutlierReport{Field: field, ThresholdSigma: thresholdSigma}
	if len(records) == 0 {
		return report, nil
	}

	values := make([]float64, len(records))
	for i, rec := range records {
		v, err := field.Value(rec)
		if err != nil {
			return OutlierReport{}, fmt.Errorf("detect outliers: %w", err)
		}
		values[i] = v
	}

	report.Mean = mean(values)
	report.StdDev = populationStdDev(values)
	if report.StdDev == 0 {
		return report, nil
	}

	for i, rec := range records {
		z := (values[i] - report.Mean) / report.StdDev
		if math.Abs(z) > thresholdSigma {
			report.Outliers = append(report.Outliers, Outlier{
				Record:   rec,
				Field:    field,
				Value:    values[i],
				ZScore:   z,
				Severity: severityFor(math.Abs(z)),
			})
		}
	}
	return report, nil
}
