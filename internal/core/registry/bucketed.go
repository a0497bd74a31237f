package registry

import (
	"fmt"

	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
	"github.com/zeusync/scenewalk/internal/core/scene"
	"github.com/zeusync/scenewalk/pkg/concurrent"
)

// bucketTable is a validated bucketed registry header.
type bucketTable struct {
	base  memory.Address
	count int
}

// readBucketTable reads and validates the header. A count beyond the sanity
// ceiling is corruption and fails before any bucket is touched.
func (w *Walker) readBucketTable(base memory.Address) (bucketTable, error) {
	if base.IsNull() {
		return bucketTable{}, fmt.Errorf("bucketed registry: %w", memory.ErrNullPointer)
	}
	reg := w.layout.Registry

	table, err := memory.ReadPointer(w.mem, base.Add(reg.BucketTable))
	if err != nil {
		return bucketTable{}, fmt.Errorf("bucket table pointer: %w", err)
	}
	count, err := memory.ReadInt32(w.mem, base.Add(reg.BucketCount))
	if err != nil {
		return bucketTable{}, fmt.Errorf("bucket count: %w", err)
	}
	if err := memory.CheckBounds("bucket count", int64(count), int64(w.layout.Limits.MaxBuckets)); err != nil {
		w.log.Warn("bucket count rejected", log.Hex("registry", uint64(base)), log.Int32("count", count))
		return bucketTable{}, err
	}
	if count > 0 && table.IsNull() {
		return bucketTable{}, fmt.Errorf("bucket table: %w", memory.ErrNullPointer)
	}
	return bucketTable{base: table, count: int(count)}, nil
}

func (w *Walker) bucketedEntities(base memory.Address) ([]scene.Entity, error) {
	t, err := w.readBucketTable(base)
	if err != nil {
		return nil, err
	}
	return w.scanBuckets(t, concurrent.Range{Start: 0, End: t.count}), nil
}

// scanBuckets walks the buckets in r and returns their entities. It owns its
// result slice and shares nothing with other scans.
func (w *Walker) scanBuckets(t bucketTable, r concurrent.Range) []scene.Entity {
	reg := w.layout.Registry
	var out []scene.Entity

	for i := r.Start; i < r.End; i++ {
		bucket := t.base.Add(uint64(i) * reg.BucketStride)
		head, err := memory.ReadPointer(w.mem, bucket.Add(reg.BucketListHead))
		if err != nil {
			w.log.Debug("bucket skipped", log.Int("bucket", i), log.Error(err))
			continue
		}
		if head.IsNull() {
			continue
		}
		if w.filter != nil && !w.acceptBucket(head) {
			continue
		}
		w.walkList(head, func(payload memory.Address) {
			out = append(out, scene.Entity{Address: payload})
		})
	}
	return out
}

func (w *Walker) acceptBucket(head memory.Address) bool {
	payload, err := memory.ReadPointer(w.mem, head.Add(w.layout.List.Payload))
	if err != nil || payload.IsNull() {
		return false
	}
	return w.filter(payload)
}

// EnumerateEntitiesParallel scans a bucketed registry with up to
// min(GOMAXPROCS, maxWorkers, bucketCount) workers over contiguous,
// disjoint bucket ranges. For memory that does not change in between, the
// result holds the same entities as EnumerateEntities, in unspecified order.
func (w *Walker) EnumerateEntitiesParallel(base memory.Address, maxWorkers int) ([]scene.Entity, error) {
	schema, err := w.SchemaOf(base)
	if err != nil {
		return nil, err
	}
	if schema != SchemaBucketed {
		return nil, fmt.Errorf("parallel scan of %s registry: %w", schema, ErrUnsupportedSchema)
	}

	t, err := w.readBucketTable(base)
	if err != nil {
		return nil, err
	}
	if t.count == 0 {
		return nil, nil
	}

	workers := min(w.procs(), maxWorkers, t.count)
	if workers < 1 {
		workers = 1
	}
	return concurrent.MapReduce(concurrent.Partition(t.count, workers), func(r concurrent.Range) ([]scene.Entity, error) {
		return w.scanBuckets(t, r), nil
	})
}
