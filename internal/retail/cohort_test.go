package retail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCohorts(t *testing.T) {
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	records := []Transaction{
		// January cohort: a and b. a returns in Feb and Mar, b never.
		saleOn(1, "a", "Beauty", jan, 100),
		saleOn(2, "b", "Beauty", jan, 100),
		saleOn(3, "a", "Beauty", feb, 100),
		saleOn(4, "a", "Beauty", mar, 100),
		// February cohort: c, returns in March.
		saleOn(5, "c", "Beauty", feb, 100),
		saleOn(6, "c", "Beauty", mar, 100),
	}

	cohorts := Cohorts(records)
	require.Len(t, cohorts, 2)

	janCohort := cohorts[0]
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), janCohort.Period)
	assert.Equal(t, 2, janCohort.Size)
	assert.Equal(t, 2, janCohort.ActiveByOffset[0], "offset 0 count equals cohort size")
	assert.Equal(t, 1, janCohort.ActiveByOffset[1])
	assert.Equal(t, 1, janCohort.ActiveByOffset[2])
	assert.InDelta(t, 100, janCohort.RetentionByOffset[0], 1e-9)
	assert.InDelta(t, 50, janCohort.RetentionByOffset[1], 1e-9)

	febCohort := cohorts[1]
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), febCohort.Period)
	assert.Equal(t, 1, febCohort.Size)
	assert.Equal(t, 1, febCohort.ActiveByOffset[0])
	assert.Equal(t, 1, febCohort.ActiveByOffset[1])
	assert.InDelta(t, 100, febCohort.RetentionByOffset[1], 1e-9)
}

func TestCohortsOffsetsNonNegative(t *testing.T) {
	// Out-of-order input: later rows appear before the customer's first
	// transaction in the slice. The cohort month is still the earliest.
	dec := time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []Transaction{
		saleOn(1, "x", "Beauty", jun, 100),
		saleOn(2, "x", "Beauty", dec, 100),
	}

	cohorts := Cohorts(records)
	require.Len(t, cohorts, 1)
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), cohorts[0].Period)
	for offset := range cohorts[0].ActiveByOffset {
		assert.GreaterOrEqual(t, offset, 0)
	}
	// December 2023 to June 2024 crosses the year boundary: offset 6.
	assert.Equal(t, 1, cohorts[0].ActiveByOffset[6])
}

func TestCohortsMultipleActiveMonthsCountDistinct(t *testing.T) {
	jan := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	records := []Transaction{
		saleOn(1, "a", "Beauty", jan, 100),
		saleOn(2, "a", "Beauty", jan.AddDate(0, 0, 5), 100), // same month, same customer
	}

	cohorts := Cohorts(records)
	require.Len(t, cohorts, 1)
	assert.Equal(t, 1, cohorts[0].Size)
	assert.Equal(t, 1, cohorts[0].ActiveByOffset[0], "distinct customers, not transactions")
}

func TestCohortsEmpty(t *testing.T) {
	assert.Nil(t, Cohorts(nil))
}

func TestPeriodOffset(t *testing.T) {
	tests := []struct {
		name   string
		cohort time.Time
		month  time.Time
		want   int
	}{
		{
			name:   "same month",
			cohort: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			month:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			want:   0,
		},
		{
			name:   "next month",
			cohort: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			month:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			want:   1,
		},
		{
			name:   "across year boundary",
			cohort: time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
			month:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			want:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, periodOffset(tt.cohort, tt.month))
		})
	}
}
