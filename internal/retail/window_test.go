package retail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name     string
		keys     []float64
		order    SortOrder
		expected []int
	}{
		{
			name:     "empty partition",
			keys:     nil,
			order:    Descending,
			expected: []int{},
		},
		{
			name:     "single row",
			keys:     []float64{42},
			order:    Descending,
			expected: []int{1},
		},
		{
			name:     "distinct keys descending",
			keys:     []float64{10, 40, 20, 30},
			order:    Descending,
			expected: []int{4, 1, 3, 2},
		},
		{
			name:     "competition ranking skips after ties",
			keys:     []float64{50, 30, 50, 20},
			order:    Descending,
			expected: []int{1, 3, 1, 4},
		},
		{
			name:     "all tied",
			keys:     []float64{5, 5, 5},
			order:    Ascending,
			expected: []int{1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(tt.keys, tt.order)
			assert.Equal(t, tt.expected, got, "ranks should align with input indexes")
		})
	}
}

func TestRankEqualKeysEqualRank(t *testing.T) {
	keys := []float64{3, 1, 3, 2, 1, 3}
	ranks := Rank(keys, Ascending)
	for i := range keys {
		for j := range keys {
			if keys[i] == keys[j] {
				assert.Equal(t, ranks[i], ranks[j],
					"rows %d and %d share key %v but got ranks %d and %d", i, j, keys[i], ranks[i], ranks[j])
			}
			if keys[i] < keys[j] {
				assert.Less(t, ranks[i], ranks[j], "ascending rank must be non-decreasing in the key")
			}
		}
	}
}

func TestPercentRank(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, PercentRank(nil))
	})

	t.Run("single row is zero", func(t *testing.T) {
		assert.Equal(t, []float64{0}, PercentRank([]float64{99}))
	})

	t.Run("evenly spread", func(t *testing.T) {
		got := PercentRank([]float64{10, 20, 30, 40})
		require.Len(t, got, 4)
		assert.InDelta(t, 0, got[0], 1e-9)
		assert.InDelta(t, 100.0/3, got[1], 1e-9)
		assert.InDelta(t, 200.0/3, got[2], 1e-9)
		assert.InDelta(t, 100, got[3], 1e-9)
	})

	t.Run("ties share percentile", func(t *testing.T) {
		got := PercentRank([]float64{10, 20, 20, 30})
		assert.InDelta(t, got[1], got[2], 1e-9)
	})
}

func TestNTile(t *testing.T) {
	t.Run("invalid bucket count", func(t *testing.T) {
		_, err := NTile(0, []float64{1, 2}, Ascending)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket count")
	})

	t.Run("empty partition", func(t *testing.T) {
		got, err := NTile(4, nil, Ascending)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("single row lands in bucket 1 for every n", func(t *testing.T) {
		for _, n := range []int{1, 2, 5, 10} {
			got, err := NTile(n, []float64{7}, Ascending)
			require.NoError(t, err)
			assert.Equal(t, []int{1}, got, "n=%d", n)
		}
	})

	t.Run("even split", func(t *testing.T) {
		got, err := NTile(2, []float64{4, 1, 3, 2}, Ascending)
		require.NoError(t, err)
		// Sorted ascending: 1,2 -> bucket 1; 3,4 -> bucket 2.
		assert.Equal(t, []int{2, 1, 2, 1}, got)
	})

	t.Run("remainder goes to earlier buckets", func(t *testing.T) {
		// 7 rows into 3 buckets: sizes 3,2,2 in sort order.
		keys := []float64{1, 2, 3, 4, 5, 6, 7}
		got, err := NTile(3, keys, Ascending)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 1, 1, 2, 2, 3, 3}, got)
	})

	t.Run("descending order inverts bucket assignment", func(t *testing.T) {
		got, err := NTile(2, []float64{1, 2, 3, 4}, Descending)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2, 1, 1}, got)
	})

	t.Run("deterministic under ties", func(t *testing.T) {
		keys := []float64{5, 5, 5, 5, 5}
		first, err := NTile(2, keys, Ascending)
		require.NoError(t, err)
		second, err := NTile(2, keys, Ascending)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		// Stable positional tie-break: earlier rows fill earlier buckets.
		assert.Equal(t, []int{1, 1, 1, 2, 2}, first)
	})
}

// Bucket sizes must differ by at most one, and bucket means must be
// non-decreasing in the ordering key.
func TestNTileBalanceProperty(t *testing.T) {
	keys := []float64{13, 2, 8, 55, 21, 3, 34, 1, 5, 89, 44, 17, 26}
	const n = 4

	buckets, err := NTile(n, keys, Ascending)
	require.NoError(t, err)

	sizes := make(map[int]int)
	sums := make(map[int]float64)
	for i, b := range buckets {
		require.GreaterOrEqual(t, b, 1)
		require.LessOrEqual(t, b, n)
		sizes[b]++
		sums[b] += keys[i]
	}

	minSize, maxSize := len(keys), 0
	for b := 1; b <= n; b++ {
		if sizes[b] < minSize {
			minSize = sizes[b]
		}
		if sizes[b] > maxSize {
			maxSize = sizes[b]
		}
	}
	assert.LessOrEqual(t, maxSize-minSize, 1, "bucket sizes must differ by at most 1")

	prevMean := -1.0
	for b := 1; b <= n; b++ {
		bucketMean := sums[b] / float64(sizes[b])
		assert.GreaterOrEqual(t, bucketMean, prevMean, "bucket %d mean must not decrease", b)
		prevMean = bucketMean
	}
}

func TestLag(t *testing.T) {
	t.Run("invalid offset", func(t *testing.T) {
		_, err := Lag([]float64{1}, 0)
		require.Error(t, err)
	})

	t.Run("no prior value at sequence start", func(t *testing.T) {
		got, err := Lag([]float64{10, 20, 30}, 1)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.False(t, got[0].Valid, "first position must report no prior value, not zero")
		assert.Equal(t, LagValue{Value: 10, Valid: true}, got[1])
		assert.Equal(t, LagValue{Value: 20, Valid: true}, got[2])
	})

	t.Run("offset beyond length", func(t *testing.T) {
		got, err := Lag([]float64{10, 20}, 5)
		require.NoError(t, err)
		for _, lv := range got {
			assert.False(t, lv.Valid)
		}
	})
}

func TestMovingAggregates(t *testing.T) {
	t.Run("invalid window", func(t *testing.T) {
		_, err := MovingAverage([]float64{1}, 0)
		require.Error(t, err)
		_, err = MovingSum([]float64{1}, -3)
		require.Error(t, err)
	})

	t.Run("partial window truncates at start", func(t *testing.T) {
		got, err := MovingAverage([]float64{100, 200, 300, 3000}, 2)
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.InDelta(t, 100, got[0], 1e-9)
		assert.InDelta(t, 150, got[1], 1e-9)
		assert.InDelta(t, 250, got[2], 1e-9)
		assert.InDelta(t, 1650, got[3], 1e-9)
	})

	t.Run("moving sum", func(t *testing.T) {
		got, err := MovingSum([]float64{1, 2, 3, 4}, 3)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 3, 6, 9}, got)
	})

	t.Run("empty sequence", func(t *testing.T) {
		got, err := MovingAverage(nil, 3)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestRankAll(t *testing.T) {
	t.Run("propagates bucket count error", func(t *testing.T) {
		_, err := RankAll([]float64{1}, Ascending, -1)
		require.Error(t, err)
	})

	t.Run("single row", func(t *testing.T) {
		rows, err := RankAll([]float64{7}, Descending, 5)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 1, rows[0].Rank)
		assert.InDelta(t, 0, rows[0].PercentRank, 1e-9)
		assert.Equal(t, 1, rows[0].Bucket)
	})

	t.Run("annotations align per row", func(t *testing.T) {
		keys := []float64{300, 100, 200}
		rows, err := RankAll(keys, Descending, 3)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, 1, rows[0].Rank)
		assert.Equal(t, 3, rows[1].Rank)
		assert.Equal(t, 2, rows[2].Rank)
		assert.Equal(t, 1, rows[0].Bucket)
		assert.Equal(t, 3, rows[1].Bucket)
		assert.Equal(t, 2, rows[2].Bucket)
	})
}
