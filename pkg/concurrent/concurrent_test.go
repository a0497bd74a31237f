package concurrent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		n, parts int
		want     []Range
	}{
		{n: 0, parts: 4, want: nil},
		{n: 5, parts: 0, want: []Range{{0, 5}}},
		{n: 3, parts: 8, want: []Range{{0, 1}, {1, 2}, {2, 3}}},
		{n: 10, parts: 3, want: []Range{{0, 4}, {4, 7}, {7, 10}}},
		{n: 8, parts: 4, want: []Range{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Partition(tt.n, tt.parts), "n=%d parts=%d", tt.n, tt.parts)
	}
}

func TestPartition_Covers(t *testing.T) {
	for n := 1; n <= 50; n++ {
		for parts := 1; parts <= 12; parts++ {
			ranges := Partition(n, parts)
			require.LessOrEqual(t, len(ranges), parts)
			next, lo, hi := 0, n, 0
			for _, r := range ranges {
				require.Equal(t, next, r.Start)
				require.Positive(t, r.Len())
				lo, hi = min(lo, r.Len()), max(hi, r.Len())
				next = r.End
			}
			require.Equal(t, n, next)
			require.LessOrEqual(t, hi-lo, 1)
		}
	}
}

func TestMapReduce_ConcatenatesInRangeOrder(t *testing.T) {
	got, err := MapReduce(Partition(10, 4), func(r Range) ([]int, error) {
		var out []int
		for i := r.Start; i < r.End; i++ {
			out = append(out, i*i)
		}
		return out, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, got)
}

func TestMapReduce_Error(t *testing.T) {
	boom := errors.New("boom")
	got, err := MapReduce(Partition(6, 3), func(r Range) ([]int, error) {
		if r.Start == 2 {
			return nil, boom
		}
		return []int{r.Start}, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

func TestParallelMap(t *testing.T) {
	in := []string{"a", "bb", "ccc", "dddd"}
	for _, workers := range []int{0, 1, 3, 16} {
		got := ParallelMap(in, workers, func(s string) int { return len(s) })
		assert.Equal(t, []int{1, 2, 3, 4}, got)
	}
}
