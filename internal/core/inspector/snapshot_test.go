package inspector

import (
	"cmp"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/scenetest"
)

func TestSnapshot(t *testing.T) {
	demo, s := demoSession(t, Options{Workers: 3})

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, s.ID(), snap.Session)
	assert.Equal(t, demo.Registry, snap.Registry)
	assert.Equal(t, "bucketed", snap.Schema)
	require.Len(t, snap.Entities, len(demo.Entities))
	assert.True(t, slices.IsSortedFunc(snap.Entities, func(x, y EntityInfo) int {
		return cmp.Compare(x.Address, y.Address)
	}))

	byName := make(map[string]EntityInfo)
	for _, e := range snap.Entities {
		byName[e.Name] = e
	}
	player := byName["Player"]
	assert.Equal(t, uint16(6), player.Tag)
	require.Len(t, player.Components, 3)
	assert.Equal(t, "Transform", player.Components[0].TypeName)
	assert.Empty(t, player.Components[2].TypeName)
	assert.True(t, player.Components[2].EnabledKnown)

	crate := byName["Crate"]
	require.Len(t, crate.Components, 2)
	assert.False(t, crate.Components[1].Enabled)
	assert.True(t, crate.Components[1].EnabledKnown)
}

func TestSnapshot_FingerprintTracksChanges(t *testing.T) {
	demo, s := demoSession(t, Options{})

	first, err := s.Snapshot()
	require.NoError(t, err)
	assert.True(t, first.Changed(nil))

	again, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, again.Fingerprint)
	assert.False(t, again.Changed(first))

	// Disable the crate's transform.
	crate := demo.Entities[4]
	demo.Image.PutUint8(crate.Components[0].Add(demo.Layout.Component.Enabled), 0)
	changed, err := s.Snapshot()
	require.NoError(t, err)
	assert.True(t, changed.Changed(again))
}

func TestSnapshot_SameSceneSameFingerprint(t *testing.T) {
	a := scenetest.NewDemo(layout.Default())
	b := scenetest.NewDemo(layout.Default())

	sa, err := New(a.Image, a.Layout, Target{Registry: a.Registry}, Options{Workers: 1})
	require.NoError(t, err)
	sb, err := New(b.Image, b.Layout, Target{Registry: b.Registry}, Options{Workers: 6})
	require.NoError(t, err)

	snapA, err := sa.Snapshot()
	require.NoError(t, err)
	snapB, err := sb.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, snapA.Fingerprint, snapB.Fingerprint)
}
