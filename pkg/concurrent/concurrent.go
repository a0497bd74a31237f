package concurrent

import (
	"golang.org/x/sync/errgroup"
)

// Range is a half-open index interval [Start, End).
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

// Partition splits [0, n) into at most parts contiguous, non-overlapping
// ranges whose lengths differ by at most one. Empty ranges are never returned.
func Partition(n, parts int) []Range {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}

	out := make([]Range, 0, parts)
	size, extra := n/parts, n%parts
	start := 0
	for i := 0; i < parts; i++ {
		end := start + size
		if i < extra {
			end++
		}
		out = append(out, Range{Start: start, End: end})
		start = end
	}
	return out
}

// MapReduce runs mapFn for each range in its own goroutine. Every call writes
// into a private buffer; buffers are concatenated in range order once all
// goroutines have returned. The first error wins and discards the results.
func MapReduce[R any](ranges []Range, mapFn func(Range) ([]R, error)) ([]R, error) {
	buffers := make([][]R, len(ranges))
	g := errgroup.Group{}

	for i, r := range ranges {
		g.Go(func() error {
			res, err := mapFn(r)
			if err != nil {
				return err
			}
			buffers[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, b := range buffers {
		total += len(b)
	}
	out := make([]R, 0, total)
	for _, b := range buffers {
		out = append(out, b...)
	}
	return out, nil
}

// ParallelMap applies mapFn to every element with at most workers goroutines,
// preserving order.
func ParallelMap[T any, R any](in []T, workers int, mapFn func(T) R) []R {
	out := make([]R, len(in))
	g := errgroup.Group{}
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, v := range in {
		g.Go(func() error {
			out[i] = mapFn(v)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
