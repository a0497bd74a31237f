package scenetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/memory"
)

func TestBuilder_Entity(t *testing.T) {
	b := New(layout.Default())
	e := b.Entity(EntitySpec{Name: "Player", Tag: 6, Components: []ComponentSpec{
		{TypeName: "Transform", TypeID: 4, Enabled: true},
	}})
	el := b.Layout.Entity

	tag, err := memory.ReadUint16(b.Image, e.Address.Add(el.Tag))
	require.NoError(t, err)
	assert.Equal(t, uint16(6), tag)

	name, err := memory.ReadStringAt(b.Image, e.Address.Add(el.Name), memory.CString)
	require.NoError(t, err)
	assert.Equal(t, "Player", name)

	count, err := memory.ReadInt32(b.Image, e.Address.Add(el.ComponentCount))
	require.NoError(t, err)
	assert.Equal(t, int32(1), count)

	owner, err := memory.ReadPointer(b.Image, e.Components[0].Add(b.Layout.Component.Entity))
	require.NoError(t, err)
	assert.Equal(t, e.Address, owner)
}

func TestBuilder_VTableShared(t *testing.T) {
	b := New(layout.Default())
	assert.Equal(t, b.VTable("Camera"), b.VTable("Camera"))
	assert.NotEqual(t, b.VTable("Camera"), b.VTable("Light"))
}

func TestBuilder_ListRecordsTail(t *testing.T) {
	b := New(layout.Default())
	nodes := b.List([]memory.Address{0x100, 0x200, 0x300})
	l := b.Layout.List

	tail, err := memory.ReadPointer(b.Image, nodes[0].Add(l.Prev))
	require.NoError(t, err)
	assert.Equal(t, nodes[2], tail)

	next, err := memory.ReadPointer(b.Image, nodes[2].Add(l.Next))
	require.NoError(t, err)
	assert.True(t, next.IsNull())
}

func TestDistribute(t *testing.T) {
	addrs := []memory.Address{1, 2, 3, 4, 5, 6, 7, 8, 9}
	a := Distribute(addrs, 4, 11)
	assert.Equal(t, a, Distribute(addrs, 4, 11), "same seed, same spread")

	var total int
	for _, bucket := range a {
		total += len(bucket)
	}
	assert.Equal(t, len(addrs), total)
}
