package retail

import (
	"sort"
	"time"
)

// Cohort groups the customers whose first transaction fell in Period
// (first day of the calendar month, UTC), with distinct-active counts and
// retention percentages per month offset from that period.
type Cohort struct {
	Period            time.Time       `json:"period"`
	Size              int             `json:"size"`
	ActiveByOffset    map[int]int     `json:"active_by_offset"`
	RetentionByOffset map[int]float64 `json:"retention_by_offset"`
}

// periodOffset is the whole-month distance between a cohort month and a
// transaction month. Always >= 0 by construction, because the cohort month
// is the customer's earliest.
func periodOffset(cohort, month time.Time) int {
	return (month.Year()-cohort.Year())*12 + int(month.Month()-cohort.Month())
}

// Cohorts derives the monthly cohort retention matrix: per cohort month,
// the cohort size and the count of distinct customers active at each
// period offset. Cohorts are returned in chronological order. The offset-0
// count always equals the cohort size, since every member is active in
// their first month.
func Cohorts(records []Transaction) []Cohort {
	if len(records) == 0 {
		return nil
	}

	// First pass: earliest transaction month per customer.
	firstPeriod := make(map[string]time.Time)
	for _, rec := range records {
		month := rec.Month()
		if cur, ok := firstPeriod[rec.CustomerID]; !ok || month.Before(cur) {
			firstPeriod[rec.CustomerID] = month
		}
	}

	// Second pass: distinct customers active per (cohort, offset).
	type cohortKey struct {
		period time.Time
		offset int
	}
	active := make(map[cohortKey]map[string]bool)
	for _, rec := range records {
		cohort := firstPeriod[rec.CustomerID]
		key := cohortKey{period: cohort, offset: periodOffset(cohort, rec.Month())}
		if active[key] == nil {
			active[key] = make(map[string]bool)
		}
		active[key][rec.CustomerID] = true
	}

	sizes := make(map[time.Time]int)
	for _, period := range firstPeriod {
		sizes[period]++
	}

	byPeriod := make(map[time.Time]*Cohort)
	for key, customers := range active {
		c, ok := byPeriod[key.period]
		if !ok {
			c = &Cohort{
				Period:            key.period,
				Size:              sizes[key.period],
				ActiveByOffset:    make(map[int]int),
				RetentionByOffset: make(map[int]float64),
			}
			byPeriod[key.period] = c
		}
		count := len(customers)
		c.ActiveByOffset[key.offset] = count
		// Size cannot be zero for a cohort derived from records, but the
		// division is guarded all the same.
		if c.Size > 0 {
			c.RetentionByOffset[key.offset] = float64(count) / float64(c.Size) * 100
		}
	}

	out := make([]Cohort, 0, len(byPeriod))
	for _, c := range byPeriod {
		out = append(out, *c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Period.Before(out[b].Period) })
	return out
}
