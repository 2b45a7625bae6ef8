package retail

import (
	"fmt"
	"math"
	"strings"
)

// MetricOp is an aggregation operator.
type MetricOp string

const (
	OpCount  MetricOp = "count"
	OpSum    MetricOp = "sum"
	OpAvg    MetricOp = "avg"
	OpMin    MetricOp = "min"
	OpMax    MetricOp = "max"
	OpStdDev MetricOp = "stddev"
)

// MetricSpec names one requested metric: an operator applied to a numeric
// field. OpCount ignores the field.
type MetricSpec struct {
	Op    MetricOp     `json:"op"`
	Field NumericField `json:"field,omitempty"`
}

// Name returns the output column name for the metric, e.g. "sum_total_sale".
func (m MetricSpec) Name() string {
	if m.Op == OpCount {
		return string(OpCount)
	}
	return fmt.Sprintf("%s_%s", m.Op, m.Field)
}

// validate checks the spec against the known operators and fields.
func (m MetricSpec) validate() error {
	switch m.Op {
	case OpCount:
		return nil
	case OpSum, OpAvg, OpMin, OpMax, OpStdDev:
		if _, err := m.Field.Value(Transaction{}); err != nil {
			return fmt.Errorf("metric %s: %w", m.Op, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown metric operator %q", string(m.Op))
	}
}

// ParseMetricSpec parses "op" or "op:field" request syntax.
func ParseMetricSpec(s string) (MetricSpec, error) {
	op, field, ok := strings.Cut(s, ":")
	spec := MetricSpec{Op: MetricOp(op)}
	if ok {
		spec.Field = NumericField(field)
	}
	if err := spec.validate(); err != nil {
		return MetricSpec{}, err
	}
	return spec, nil
}

// AggregateRow is one group's output: the key tuple plus the requested
// metrics keyed by MetricSpec.Name. Rows are ephemeral, recomputed per
// request.
type AggregateRow struct {
	Key     []string           `json:"key"`
	Count   int                `json:"count"`
	Metrics map[string]float64 `json:"metrics"`
}

// groupAccumulator collects raw values per group so that stddev can be
// computed with the sample formula after the group is complete.
type groupAccumulator struct {
	key    []string
	count  int
	values map[NumericField][]float64
}

// Aggregate groups records by the ordered key tuple and computes the
// requested metrics per group. Group order is first occurrence of the key
// tuple in the input. Standard deviation uses the sample formula (N-1); a
// single-row group yields stddev 0, not NaN.
func Aggregate(records []Transaction, groupBy []GroupField, metrics []MetricSpec) ([]AggregateRow, error) {
	if len(groupBy) == 0 {
		return nil, fmt.Errorf("aggregate: at least one group field required")
	}
	for _, g := range groupBy {
		if _, err := g.Key(Transaction{}); err != nil {
			return nil, fmt.Errorf("aggregate: %w", err)
		}
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("aggregate: at least one metric required")
	}
	fields := make([]NumericField, 0, len(metrics))
	seen := make(map[NumericField]bool)
	for _, m := range metrics {
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("aggregate: %w", err)
		}
		if m.Op != OpCount && !seen[m.Field] {
			seen[m.Field] = true
			fields = append(fields, m.Field)
		}
	}

	var order []string
	groups := make(map[string]*groupAccumulator)

	for _, rec := range records {
		key := make([]string, len(groupBy))
		for i, g := range groupBy {
			k, err := g.Key(rec)
			if err != nil {
				return nil, fmt.Errorf("aggregate: %w", err)
			}
			key[i] = k
		}
		composite := strings.Join(key, "\x1f")

		acc, ok := groups[composite]
		if !ok {
			acc = &groupAccumulator{key: key, values: make(map[NumericField][]float64, len(fields))}
			groups[composite] = acc
			order = append(order, composite)
		}
		acc.count++
		for _, f := range fields {
			v, err := f.Value(rec)
			if err != nil {
				return nil, fmt.Errorf("aggregate: %w", err)
			}
			acc.values[f] = append(acc.values[f], v)
		}
	}

	rows := make([]AggregateRow, 0, len(order))
	for _, composite := range order {
		acc := groups[composite]
		row := AggregateRow{
			Key:     acc.key,
			Count:   acc.count,
			Metrics: make(map[string]float64, len(metrics)),
		}
		for _, m := range metrics {
			row.Metrics[m.Name()] = computeMetric(m, acc)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func computeMetric(m MetricSpec, acc *groupAccumulator) float64 {
	if m.Op == OpCount {
		return float64(acc.count)
	}
	values := acc.values[m.Field]
	if len(values) == 0 {
		return 0
	}
	switch m.Op {
	case OpSum:
		return sum(values)
	case OpAvg:
		return mean(values)
	case OpMin:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case OpMax:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max
	case OpStdDev:
		return sampleStdDev(values)
	}
	return 0
}

// WithShareOfTotal annotates each row with the group's percentage share of
// the given metric across all groups, under the column "share_<metric>".
// This is necessarily a second pass: per-group shares cannot be known until
// every group's total is available.
func WithShareOfTotal(rows []AggregateRow, metric MetricSpec) error {
	if err := metric.validate(); err != nil {
		return fmt.Errorf("share of total: %w", err)
	}
	name := metric.Name()

	// First pass over the complete group set: the grand total.
	var total float64
	for _, row := range rows {
		v, ok := row.Metrics[name]
		if !ok {
			return fmt.Errorf("share of total: metric %q not present in rows", name)
		}
		total += v
	}

	// Second pass: per-group share.
	shareName := "share_" + name
	for i := range rows {
		if total == 0 {
			rows[i].Metrics[shareName] = 0
			continue
		}
		rows[i].Metrics[shareName] = rows[i].Metrics[name] / total * 100
	}
	return nil
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// sampleStdDev divides by N-1. A single observation yields 0 by policy;
// it must never surface as NaN.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// populationStdDev divides by N. Used for whole-dataset statistics such as
// outlier z-scores; not interchangeable with sampleStdDev.
func populationStdDev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}
