package identity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/scenetest"
)

func TestTypeName_Chase(t *testing.T) {
	b := scenetest.New(layout.Default())
	obj := b.Managed("Camera")

	name, err := NewResolver(b.Image, b.Layout).TypeName(obj)
	require.NoError(t, err)
	assert.Equal(t, "Camera", name)
}

func TestTypeName_ManagedClassNames(t *testing.T) {
	lay := layout.Default()
	lay.Strings.ClassName = memory.ManagedString
	b := scenetest.New(lay)
	obj := b.Managed("PlayerController")

	name, err := NewResolver(b.Image, lay).TypeName(obj)
	require.NoError(t, err)
	assert.Equal(t, "PlayerController", name)
}

func TestTypeName_Failures(t *testing.T) {
	b := scenetest.New(layout.Default())
	r := NewResolver(b.Image, b.Layout)

	_, err := r.TypeName(0)
	require.ErrorIs(t, err, memory.ErrNullPointer)

	noVTable := b.Image.Alloc(0x20)
	_, err = r.TypeName(noVTable)
	require.ErrorIs(t, err, memory.ErrNullPointer)

	obj := b.Managed("Light")
	vt, err := memory.ReadPointer(b.Image, obj)
	require.NoError(t, err)
	b.Image.Protect(vt, 1)
	_, err = r.TypeName(obj)
	require.ErrorIs(t, err, memory.ErrReadFailed)
}

func TestTypeName_BridgeFallback(t *testing.T) {
	b := scenetest.New(layout.Default())
	opaque := b.Image.Alloc(0x20)

	var calls int
	bridge := BridgeFunc(func(kind RuntimeKind, r memory.Reader, managed memory.Address) (TypeInfo, error) {
		calls++
		assert.Equal(t, RuntimeIL2CPP, kind)
		assert.Equal(t, opaque, managed)
		return TypeInfo{Name: "Camera", Namespace: "UnityEngine"}, nil
	})
	r := NewResolver(b.Image, b.Layout, WithBridge(RuntimeIL2CPP, bridge))

	name, err := r.TypeName(opaque)
	require.NoError(t, err)
	assert.Equal(t, "Camera", name)
	assert.Equal(t, 1, calls)

	// The chase wins when it succeeds.
	name, err = r.TypeName(b.Managed("Light"))
	require.NoError(t, err)
	assert.Equal(t, "Light", name)
	assert.Equal(t, 1, calls)
}

func TestTypeName_BridgeFailureJoined(t *testing.T) {
	b := scenetest.New(layout.Default())
	boom := errors.New("runtime detached")
	r := NewResolver(b.Image, b.Layout, WithBridge(RuntimeMono,
		BridgeFunc(func(RuntimeKind, memory.Reader, memory.Address) (TypeInfo, error) {
			return TypeInfo{}, boom
		})))

	_, err := r.TypeName(b.Image.Alloc(0x20))
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, memory.ErrNullPointer)
}

func TestIs(t *testing.T) {
	b := scenetest.New(layout.Default())
	r := NewResolver(b.Image, b.Layout)
	obj := b.Managed("Camera")

	assert.True(t, r.Is(obj, "Camera"))
	assert.False(t, r.Is(obj, "camera"))
	assert.False(t, r.Is(0, "Camera"))
}

func TestEntityFilter(t *testing.T) {
	b := scenetest.New(layout.Default())
	player := b.Entity(scenetest.EntitySpec{ManagedType: "Player"})
	prop := b.Entity(scenetest.EntitySpec{ManagedType: "Prop"})
	enemy := b.Entity(scenetest.EntitySpec{ManagedType: "Enemy"})

	accept := NewResolver(b.Image, b.Layout).EntityFilter("Player", "Enemy")
	assert.True(t, accept(player.Address))
	assert.False(t, accept(prop.Address))
	assert.True(t, accept(enemy.Address))
	assert.False(t, accept(b.Image.Alloc(0x40)))
}
