package retail

import (
	"fmt"
	"sort"
	"time"
)

// ValueTier classifies a customer by lifetime spend.
type ValueTier string

const (
	TierVIP    ValueTier = "VIP"
	TierHigh   ValueTier = "High"
	TierMedium ValueTier = "Medium"
	TierLow    ValueTier = "Low"
)

// TierThresholds holds the spend cutoffs for value tiers. Thresholds are a
// business policy, so callers configure them rather than relying on
// hardcoded constants.
type TierThresholds struct {
	VIP    float64 `yaml:"vip" json:"vip"`
	High   float64 `yaml:"high" json:"high"`
	Medium float64 `yaml:"medium" json:"medium"`
}

// DefaultTierThresholds returns the standard policy: >=2000 VIP, >=1000
// High, >=500 Medium, else Low.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{VIP: 2000, High: 1000, Medium: 500}
}

// Validate checks that the cutoffs are positive and strictly descending.
func (t TierThresholds) Validate() error {
	if t.Medium <= 0 || t.High <= t.Medium || t.VIP <= t.High {
		return fmt.Errorf("tier thresholds must satisfy 0 < medium < high < vip, got vip=%.2f high=%.2f medium=%.2f",
			t.VIP, t.High, t.Medium)
	}
	return nil
}

// Tier classifies a total spend amount.
func (t TierThresholds) Tier(totalSpent float64) ValueTier {
	switch {
	case totalSpent >= t.VIP:
		return TierVIP
	case totalSpent >= t.High:
		return TierHigh
	case totalSpent >= t.Medium:
		return TierMedium
	default:
		return TierLow
	}
}

// CustomerValue is one customer's spend summary with ranking annotations.
// Rank 1 is the highest spender; PercentRank follows the ascending-order
// percentile contract, so the top spender carries the highest percentile.
type CustomerValue struct {
	CustomerID   string    `json:"customer_id"`
	Transactions int       `json:"transactions"`
	TotalSpent   float64   `json:"total_spent"`
	AvgSale      float64   `json:"avg_sale"`
	Tier         ValueTier `json:"tier"`
	Rank         int       `json:"rank"`
	PercentRank  float64   `json:"percent_rank"`
	SpendBucket  int       `json:"spend_bucket"` // decile, 10 = top spenders
}

// CustomerValues aggregates spend per customer and classifies each into a
// value tier, with spend rank, percentile, and decile bucket. Output is
// sorted by rank, tie-broken by customer id for a stable report.
func CustomerValues(records []Transaction, thresholds TierThresholds) ([]CustomerValue, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("customer values: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows, err := Aggregate(records,
		[]GroupField{GroupCustomer},
		[]MetricSpec{
			{Op: OpCount},
			{Op: OpSum, Field: FieldTotalSale},
			{Op: OpAvg, Field: FieldTotalSale},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("customer values: %w", err)
	}

	spend := make([]float64, len(rows))
	for i, row := range rows {
		spend[i] = row.Metrics["sum_total_sale"]
	}
	ranks := Rank(spend, Descending)
	percents := PercentRank(spend)
	deciles, err := NTile(10, spend, Ascending)
	if err != nil {
		return nil, fmt.Errorf("customer values: %w", err)
	}

	out := make([]CustomerValue, len(rows))
	for i, row := range rows {
		out[i] = CustomerValue{
			CustomerID:   row.Key[0],
			Transactions: row.Count,
			TotalSpent:   spend[i],
			AvgSale:      row.Metrics["avg_total_sale"],
			Tier:         thresholds.Tier(spend[i]),
			Rank:         ranks[i],
			PercentRank:  percents[i],
			SpendBucket:  deciles[i],
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Rank != out[b].Rank {
			return out[a].Rank < out[b].Rank
		}
		return out[a].CustomerID < out[b].CustomerID
	})
	return out, nil
}

// SegmentLabel is an RFM marketing segment.
type SegmentLabel string

const (
	SegmentChampions          SegmentLabel = "Champions"
	SegmentLoyalCustomers     SegmentLabel = "LoyalCustomers"
	SegmentNewCustomers       SegmentLabel = "NewCustomers"
	SegmentAtRisk             SegmentLabel = "AtRisk"
	SegmentLostCustomers      SegmentLabel = "LostCustomers"
	SegmentPotentialLoyalists SegmentLabel = "PotentialLoyalists"
)

// RFMProfile is one customer's recency/frequency/monetary measures with
// 1-5 quintile scores and the derived segment.
type RFMProfile struct {
	CustomerID     string       `json:"customer_id"`
	RecencyDays    int          `json:"recency_days"`
	Frequency      int          `json:"frequency"`
	MonetaryValue  float64      `json:"monetary_value"`
	RecencyScore   int          `json:"recency_score"`
	FrequencyScore int          `json:"frequency_score"`
	MonetaryScore  int          `json:"monetary_score"`
	Segment        SegmentLabel `json:"segment"`
}

// segmentFor evaluates the fixed decision table top to bottom; the first
// matching row wins.
func segmentFor(r, f, m int) SegmentLabel {
	switch {
	case r >= 4 && f >= 4 && m >= 4:
		return SegmentChampions
	case r >= 3 && f >= 3 && m >= 3:
		return SegmentLoyalCustomers
	case r >= 4 && f <= 2:
		return SegmentNewCustomers
	case r <= 2 && f >= 3:
		return SegmentAtRisk
	case r <= 2 && f <= 2:
		return SegmentLostCustomers
	default:
		return SegmentPotentialLoyalists
	}
}

// RFMProfiles scores every customer on recency, frequency, and monetary
// value against the given reference date. The reference date is an
// explicit input, never an implicit now, so the computation is
// deterministic and reproducible.
//
// Each measure is independently bucketed into quintiles: recency is
// bucketed descending so the most recent customers score 5; frequency and
// monetary ascending so the heaviest buyers score 5. Output is sorted by
// customer id.
func RFMProfiles(records []Transaction, referenceDate time.Time) ([]RFMProfile, error) {
	if referenceDate.IsZero() {
		return nil, fmt.Errorf("rfm: reference date is required")
	}
	if len(records) == 0 {
		return nil, nil
	}

	type rfmBase struct {
		customerID   string
		lastPurchase time.Time
		frequency    int
		monetary     float64
	}

	var order []string
	byCustomer := make(map[string]*rfmBase)
	for _, rec := range records {
		b, ok := byCustomer[rec.CustomerID]
		if !ok {
			b = &rfmBase{customerID: rec.CustomerID, lastPurchase: rec.Date}
			byCustomer[rec.CustomerID] = b
			order = append(order, rec.CustomerID)
		}
		if rec.Date.After(b.lastPurchase) {
			b.lastPurchase = rec.Date
		}
		b.frequency++
		b.monetary += rec.TotalSale
	}

	recency := make([]float64, len(order))
	frequency := make([]float64, len(order))
	monetary := make([]float64, len(order))
	for i, id := range order {
		b := byCustomer[id]
		days := int(referenceDate.Sub(b.lastPurchase).Hours() / 24)
		if days < 0 {
			days = 0
		}
		recency[i] = float64(days)
		frequency[i] = float64(b.frequency)
		monetary[i] = b.monetary
	}

	recencyScores, err := NTile(5, recency, Descending)
	if err != nil {
		return nil, fmt.Errorf("rfm: %w", err)
	}
	frequencyScores, err := NTile(5, frequency, Ascending)
	if err != nil {
		return nil, fmt.Errorf("rfm: %w", err)
	}
	monetaryScores, err := NTile(5, monetary, Ascending)
	if err != nil {
		return nil, fmt.Errorf("rfm: %w", err)
	}

	out := make([]RFMProfile, len(order))
	for i, id := range order {
		b := byCustomer[id]
		r, f, m := recencyScores[i], frequencyScores[i], monetaryScores[i]
		out[i] = RFMProfile{
			CustomerID:     id,
			RecencyDays:    int(recency[i]),
			Frequency:      b.frequency,
			MonetaryValue:  b.monetary,
			RecencyScore:   r,
			FrequencyScore: f,
			MonetaryScore:  m,
			Segment:        segmentFor(r, f, m),
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CustomerID < out[b].CustomerID })
	return out, nil
}
