package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/scenetest"
)

func bucketedScene(t *testing.T, entities, buckets int, seed uint64) (*scenetest.Builder, memory.Address, []memory.Address) {
	t.Helper()
	b := scenetest.New(layout.Default())
	addrs := scenetest.Addresses(b.Entities(namedSpecs(entities)...))
	base := b.Bucketed(scenetest.Distribute(addrs, buckets, seed))
	return b, base, addrs
}

func TestEnumerateEntities_Bucketed(t *testing.T) {
	b, base, addrs := bucketedScene(t, 40, 16, 7)

	got, err := New(b.Image, b.Layout, WithSchema(SchemaBucketed)).EnumerateEntities(base)
	require.NoError(t, err)
	assert.ElementsMatch(t, addrs, entityAddresses(got))
}

func TestEnumerateEntities_BucketedNoBuckets(t *testing.T) {
	b := scenetest.New(layout.Default())
	base := b.Bucketed(nil)

	got, err := New(b.Image, b.Layout, WithSchema(SchemaBucketed)).EnumerateEntities(base)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEnumerateEntities_BucketedNullTable(t *testing.T) {
	b, base, _ := bucketedScene(t, 4, 4, 1)
	b.Image.PutPointer(base.Add(b.Layout.Registry.BucketTable), 0)

	_, err := New(b.Image, b.Layout, WithSchema(SchemaBucketed)).EnumerateEntities(base)
	require.ErrorIs(t, err, memory.ErrNullPointer)
}

func TestEnumerateEntities_CorruptBucketCountTouchesNoBucket(t *testing.T) {
	for _, schema := range []Schema{SchemaBucketed, SchemaAuto} {
		for _, count := range []int32{-1, 1<<20 + 1, 0x7fffffff} {
			t.Run(fmt.Sprintf("%s/%d", schema, count), func(t *testing.T) {
				b, base, addrs := bucketedScene(t, 8, 4, 3)
				reg := b.Layout.Registry
				table, err := memory.ReadPointer(b.Image, base.Add(reg.BucketTable))
				require.NoError(t, err)
				b.Image.PutInt32(base.Add(reg.BucketCount), count)
				// A plausible legacy list head must not rescue a corrupt bucketed header.
				b.Image.PutPointer(base.Add(reg.LegacyListHead), b.List(addrs[:3])[0])

				b.Image.Trace()
				w := New(b.Image, b.Layout, WithSchema(schema))
				got, err := w.EnumerateEntities(base)
				require.ErrorIs(t, err, memory.ErrBoundsExceeded)
				assert.Empty(t, got)
				_, err = w.EnumerateEntitiesParallel(base, 4)
				require.ErrorIs(t, err, memory.ErrBoundsExceeded)

				assert.False(t, b.Image.Touched(table, table.Add(4*reg.BucketStride)),
					"bucket table must not be read when the count is rejected")
			})
		}
	}
}

func TestEnumerateEntitiesParallel_MatchesSerial(t *testing.T) {
	b, base, addrs := bucketedScene(t, 200, 64, 42)
	serialWalker := New(b.Image, b.Layout, WithSchema(SchemaBucketed))
	serial, err := serialWalker.EnumerateEntities(base)
	require.NoError(t, err)
	require.ElementsMatch(t, addrs, entityAddresses(serial))

	for workers := 1; workers <= 12; workers++ {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			w := New(b.Image, b.Layout,
				WithSchema(SchemaBucketed),
				WithHardwareConcurrency(func() int { return 16 }))
			got, err := w.EnumerateEntitiesParallel(base, workers)
			require.NoError(t, err)
			assert.ElementsMatch(t, entityAddresses(serial), entityAddresses(got))
		})
	}
}

func TestEnumerateEntitiesParallel_MoreWorkersThanBuckets(t *testing.T) {
	b, base, addrs := bucketedScene(t, 5, 2, 9)

	got, err := New(b.Image, b.Layout, WithSchema(SchemaBucketed)).EnumerateEntitiesParallel(base, 64)
	require.NoError(t, err)
	assert.ElementsMatch(t, addrs, entityAddresses(got))
}

func TestEnumerateEntitiesParallel_AutoDetects(t *testing.T) {
	b, base, addrs := bucketedScene(t, 12, 8, 5)

	got, err := New(b.Image, b.Layout).EnumerateEntitiesParallel(base, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, addrs, entityAddresses(got))
}

func TestEnumerateEntitiesParallel_LegacyUnsupported(t *testing.T) {
	b := scenetest.New(layout.Default())
	base := b.Legacy(scenetest.Addresses(b.Entities(namedSpecs(2)...))...)

	_, err := New(b.Image, b.Layout, WithSchema(SchemaLegacy)).EnumerateEntitiesParallel(base, 4)
	require.ErrorIs(t, err, ErrUnsupportedSchema)
}

func TestBucketFilter(t *testing.T) {
	b := scenetest.New(layout.Default())
	players := b.Entities(
		scenetest.EntitySpec{Name: "p1", ManagedType: "Player"},
		scenetest.EntitySpec{Name: "p2", ManagedType: "Player"},
	)
	props := b.Entities(scenetest.EntitySpec{Name: "crate", ManagedType: "Prop"})
	base := b.Bucketed([][]memory.Address{
		scenetest.Addresses(players),
		nil,
		scenetest.Addresses(props),
	})

	wanted := players[0].Address
	filter := func(payload memory.Address) bool { return payload == wanted }
	w := New(b.Image, b.Layout, WithSchema(SchemaBucketed), WithBucketFilter(filter))

	got, err := w.EnumerateEntities(base)
	require.NoError(t, err)
	assert.Equal(t, scenetest.Addresses(players), entityAddresses(got),
		"the filter classifies whole buckets by their first entity")

	parallel, err := w.EnumerateEntitiesParallel(base, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, scenetest.Addresses(players), entityAddresses(parallel))
}

func TestBucketed_UnreadableBucketSkipped(t *testing.T) {
	b := scenetest.New(layout.Default())
	first := b.Entities(namedSpecs(2)...)
	second := b.Entities(namedSpecs(2)...)
	base := b.Bucketed([][]memory.Address{scenetest.Addresses(first), scenetest.Addresses(second)})

	reg := b.Layout.Registry
	table, err := memory.ReadPointer(b.Image, base.Add(reg.BucketTable))
	require.NoError(t, err)
	bad := b.Image.AllocPage()
	b.Image.Protect(bad, 1)
	b.Image.PutPointer(table.Add(reg.BucketListHead), bad)

	got, err := New(b.Image, b.Layout, WithSchema(SchemaBucketed)).EnumerateEntities(base)
	require.NoError(t, err)
	assert.Equal(t, scenetest.Addresses(second), entityAddresses(got))
}
