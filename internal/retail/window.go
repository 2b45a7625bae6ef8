package retail

import (
	"fmt"
	"sort"
)

// SortOrder selects the direction of an ordering key.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// String returns the string representation of the order.
func (o SortOrder) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// sortedIndexes returns the row indexes of keys ordered by (key, original
// position). The stable positional tie-break makes every window operation
// deterministic for identical input.
func sortedIndexes(keys []float64, order SortOrder) []int {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka == kb {
			return idx[a] < idx[b]
		}
		if order == Descending {
			return ka > kb
		}
		return ka < kb
	})
	return idx
}

// Rank assigns 1-based competition ranks over the partition: tied keys
// share the lowest rank of their tie group, and the next distinct key's
// rank skips the tied count. Results align with the input indexes. An
// empty partition returns an empty result.
func Rank(keys []float64, order SortOrder) []int {
	ranks := make([]int, len(keys))
	if len(keys) == 0 {
		return ranks
	}
	idx := sortedIndexes(keys, order)
	ranks[idx[0]] = 1
	for pos := 1; pos < len(idx); pos++ {
		if keys[idx[pos]] == keys[idx[pos-1]] {
			ranks[idx[pos]] = ranks[idx[pos-1]]
		} else {
			ranks[idx[pos]] = pos + 1
		}
	}
	return ranks
}

// PercentRank returns, per row, the share of partition rows strictly
// before it in ascending key order, as a 0-100 percentage. Tied keys get
// equal percentiles. A single-row partition yields 0 by definition.
func PercentRank(keys []float64) []float64 {
	out := make([]float64, len(keys))
	n := len(keys)
	if n < 2 {
		return out
	}
	ranks := Rank(keys, Ascending)
	for i, r := range ranks {
		out[i] = float64(r-1) / float64(n-1) * 100
	}
	return out
}

// NTile splits the partition, sorted by key in the given order, into n
// buckets numbered 1..n as evenly as possible. When the row count is not
// divisible by n, the earlier buckets in sort order receive one extra row
// each. Results align with the input indexes.
func NTile(n int, keys []float64, order SortOrder) ([]int, error) {
	if n <= 0 {
		return nil, fmt.Errorf("ntile: bucket count must be positive, got %d", n)
	}
	buckets := make([]int, len(keys))
	if len(keys) == 0 {
		return buckets, nil
	}
	idx := sortedIndexes(keys, order)

	rows := len(idx)
	base := rows / n
	extra := rows % n

	pos := 0
	for b := 1; b <= n && pos < rows; b++ {
		size := base
		if b <= extra {
			size++
		}
		for i := 0; i < size; i++ {
			buckets[idx[pos]] = b
			pos++
		}
	}
	return buckets, nil
}

// LagValue is the result of a lag lookup. Valid is false at the start of
// the sequence where no prior value exists; the zero Value must not be
// interpreted as data.
type LagValue struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Lag returns, for each position of an already-ordered sequence, the value
// k positions back. The first k positions have no prior value.
func Lag(values []float64, k int) ([]LagValue, error) {
	if k <= 0 {
		return nil, fmt.Errorf("lag: offset must be positive, got %d", k)
	}
	out := make([]LagValue, len(values))
	for i := range values {
		if i >= k {
			out[i] = LagValue{Value: values[i-k], Valid: true}
		}
	}
	return out, nil
}

// MovingSum returns, for each position of an already-ordered sequence, the
// sum over the window [i-w+1, i]. The window truncates at the sequence
// start rather than padding with zeros.
func MovingSum(values []float64, w int) ([]float64, error) {
	if w <= 0 {
		return nil, fmt.Errorf("moving sum: window must be positive, got %d", w)
	}
	out := make([]float64, len(values))
	var running float64
	for i, v := range values {
		running += v
		if i >= w {
			running -= values[i-w]
		}
		out[i] = running
	}
	return out, nil
}

// MovingAverage returns, for each position of an already-ordered sequence,
// the mean over the window [i-w+1, i]. Partial windows at the start divide
// by the actual number of rows present.
func MovingAverage(values []float64, w int) ([]float64, error) {
	sums, err := MovingSum(values, w)
	if err != nil {
		return nil, fmt.Errorf("moving average: window must be positive, got %d", w)
	}
	out := make([]float64, len(values))
	for i, s := range sums {
		span := w
		if i+1 < w {
			span = i + 1
		}
		out[i] = s / float64(span)
	}
	return out, nil
}

// RankedRow annotates one partition row with the full set of ranking
// measures. Index refers to the row's position in the caller's partition.
type RankedRow struct {
	Index       int     `json:"index"`
	Key         float64 `json:"key"`
	Rank        int     `json:"rank"`
	PercentRank float64 `json:"percent_rank"`
	Bucket      int     `json:"bucket"`
}

// RankAll computes rank, percentile rank, and n-tile bucket for every row
// of a partition in one call. A single-row partition yields rank 1,
// percent rank 0, and bucket 1 for every n.
func RankAll(keys []float64, order SortOrder, buckets int) ([]RankedRow, error) {
	tiles, err := NTile(buckets, keys, order)
	if err != nil {
		return nil, err
	}
	ranks := Rank(keys, order)
	percents := PercentRank(keys)

	rows := make([]RankedRow, len(keys))
	for i := range keys {
		rows[i] = RankedRow{
			Index:       i,
			Key:         keys[i],
			Rank:        ranks[i],
			PercentRank: percents[i],
			Bucket:      tiles[i],
		}
	}
	return rows, nil
}
