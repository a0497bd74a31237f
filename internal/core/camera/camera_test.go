package camera

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenewalk/internal/core/identity"
	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/lookup"
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/registry"
	"github.com/zeusync/scenewalk/internal/core/scene"
	"github.com/zeusync/scenewalk/internal/core/scenetest"
)

func cameraEntity(name string, tag uint16, enabled bool) scenetest.EntitySpec {
	return scenetest.EntitySpec{Name: name, Tag: tag, Components: []scenetest.ComponentSpec{
		{TypeName: "Transform", Enabled: true},
		{TypeName: "Camera", Enabled: enabled},
	}}
}

func newResolver(b *scenetest.Builder, schema registry.Schema, opts ...Option) *Resolver {
	w := registry.New(b.Image, b.Layout, registry.WithSchema(schema))
	f := lookup.NewFinder(w, identity.NewResolver(b.Image, b.Layout))
	return New(f, opts...)
}

func TestFindMainCamera_TaggedWinsRegardlessOfOrder(t *testing.T) {
	orders := [][]uint16{{1, 5, 2}, {5, 1, 2}, {1, 2, 5}, {2, 5, 1}}
	for _, tags := range orders {
		t.Run(fmt.Sprint(tags), func(t *testing.T) {
			b := scenetest.New(layout.Default())
			var want scenetest.Entity
			var addrs []memory.Address
			for _, tag := range tags {
				e := b.Entity(cameraEntity(fmt.Sprintf("cam %d", tag), tag, true))
				if tag == 5 {
					want = e
				}
				addrs = append(addrs, e.Address)
			}
			base := b.Legacy(addrs...)

			e, c, err := newResolver(b, registry.SchemaLegacy).FindMainCamera(base)
			require.NoError(t, err)
			assert.Equal(t, want.Address, e.Address)
			assert.Equal(t, want.Components[1], c.Address)
		})
	}
}

func TestFindMainCamera_TaggedButDisabled(t *testing.T) {
	b := scenetest.New(layout.Default())
	base := b.Legacy(scenetest.Addresses(b.Entities(
		cameraEntity("Main Camera", 5, false),
		cameraEntity("Other", 1, true),
	))...)

	_, _, err := newResolver(b, registry.SchemaLegacy).FindMainCamera(base)
	require.ErrorIs(t, err, memory.ErrNotFound)
}

func TestFindMainCamera_TaggedWithoutCamera(t *testing.T) {
	b := scenetest.New(layout.Default())
	base := b.Legacy(scenetest.Addresses(b.Entities(
		scenetest.EntitySpec{Name: "Main", Tag: 5, Components: []scenetest.ComponentSpec{{TypeName: "Transform", Enabled: true}}},
	))...)

	_, _, err := newResolver(b, registry.SchemaLegacy).FindMainCamera(base)
	require.ErrorIs(t, err, memory.ErrNotFound)
}

func TestFindMainCamera_UnreadableEnabledByte(t *testing.T) {
	build := func() (*scenetest.Builder, memory.Address, scenetest.Entity) {
		b := scenetest.New(layout.Default())
		e := b.Entity(scenetest.EntitySpec{Name: "Main Camera", Tag: 5, Components: []scenetest.ComponentSpec{
			{TypeName: "Camera", EnabledUnreadable: true},
		}})
		return b, b.Legacy(e.Address), e
	}

	b, base, want := build()
	r := newResolver(b, registry.SchemaLegacy)
	_, err := r.view.Enabled(scene.Component{Address: want.Components[0]})
	require.ErrorIs(t, err, memory.ErrReadFailed)

	e, c, err := r.FindMainCamera(base)
	require.NoError(t, err)
	assert.Equal(t, want.Address, e.Address)
	assert.Equal(t, want.Components[0], c.Address)

	b, base, _ = build()
	_, _, err = newResolver(b, registry.SchemaLegacy, WithEnabledPolicy(FailClosed)).FindMainCamera(base)
	require.ErrorIs(t, err, memory.ErrNotFound)
}

func TestFindMainCamera_FallbackRanking(t *testing.T) {
	tests := []struct {
		name  string
		specs []scenetest.EntitySpec
		want  int
	}{
		{
			name: "main camera beats camera top",
			specs: []scenetest.EntitySpec{
				cameraEntity("Scene Camera", 0, true),
				cameraEntity("Camera Top", 0, true),
				cameraEntity("Main Camera", 0, true),
			},
			want: 2,
		},
		{
			name: "camera top beats unnamed",
			specs: []scenetest.EntitySpec{
				cameraEntity("Scene Camera", 0, true),
				cameraEntity("Camera Top", 0, true),
			},
			want: 1,
		},
		{
			name: "disabled main camera is passed over",
			specs: []scenetest.EntitySpec{
				cameraEntity("Main Camera", 0, false),
				cameraEntity("Scene Camera", 0, true),
			},
			want: 1,
		},
		{
			name: "first enabled camera",
			specs: []scenetest.EntitySpec{
				{Name: "Player", Components: []scenetest.ComponentSpec{{TypeName: "Transform", Enabled: true}}},
				cameraEntity("Minimap", 0, false),
				cameraEntity("Scene Camera", 0, true),
				cameraEntity("Other Camera", 0, true),
			},
			want: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := scenetest.New(layout.Default())
			entities := b.Entities(tt.specs...)
			base := b.Bucketed([][]memory.Address{scenetest.Addresses(entities)})

			e, _, err := newResolver(b, registry.SchemaBucketed).FindMainCamera(base)
			require.NoError(t, err)
			assert.Equal(t, entities[tt.want].Address, e.Address)
		})
	}
}

func TestFindMainCamera_FallbackNoCamera(t *testing.T) {
	b := scenetest.New(layout.Default())
	base := b.Bucketed([][]memory.Address{scenetest.Addresses(b.Entities(
		cameraEntity("Main Camera", 0, false),
		scenetest.EntitySpec{Name: "Player"},
	))})

	_, _, err := newResolver(b, registry.SchemaBucketed).FindMainCamera(base)
	require.ErrorIs(t, err, memory.ErrNotFound)
}

func TestFindMainCamera_CustomFallbackNames(t *testing.T) {
	b := scenetest.New(layout.Default())
	entities := b.Entities(
		cameraEntity("Main Camera", 0, true),
		cameraEntity("Overview", 0, true),
	)
	base := b.Bucketed([][]memory.Address{scenetest.Addresses(entities)})

	e, _, err := newResolver(b, registry.SchemaBucketed, WithFallbackNames("Overview")).FindMainCamera(base)
	require.NoError(t, err)
	assert.Equal(t, entities[1].Address, e.Address)
}

func TestViewMatrix_RoundTrip(t *testing.T) {
	values := make([]float32, 16)
	for i := range values {
		values[i] = float32(i) + 0.25
	}
	values[3] = float32(math.Copysign(0, -1))
	values[7] = math.SmallestNonzeroFloat32
	values[11] = math.MaxFloat32
	values[12] = -123.456

	b := scenetest.New(layout.Default())
	e := b.Entity(scenetest.EntitySpec{Name: "Main Camera", Tag: 5, Components: []scenetest.ComponentSpec{
		{TypeName: "Camera", Enabled: true, Matrix: values},
	}})
	base := b.Legacy(e.Address)
	r := newResolver(b, registry.SchemaLegacy)

	m, err := r.MainCameraMatrix(base)
	require.NoError(t, err)
	for i, v := range values {
		assert.Equal(t, math.Float32bits(v), math.Float32bits(m[i]), "element %d", i)
	}
	assert.Equal(t, values[12], m.At(0, 3), "translation lives in the last column")
	assert.Equal(t, values[1], m.At(1, 0))
	assert.Equal(t, [4]float32{values[4], values[5], values[6], values[7]}, m.Column(1))
}

func TestViewMatrix_FailureReturnsIdentity(t *testing.T) {
	b := scenetest.New(layout.Default())
	r := newResolver(b, registry.SchemaLegacy)

	m, err := r.ViewMatrix(scene.Component{})
	require.ErrorIs(t, err, memory.ErrNullPointer)
	assert.Equal(t, Identity(), m)

	page := b.Image.AllocPage()
	b.Image.Protect(page, 1)
	m, err = r.ViewMatrix(scene.Component{Address: page})
	require.ErrorIs(t, err, memory.ErrReadFailed)
	assert.Equal(t, Identity(), m)
}

func TestMatrix_Transform(t *testing.T) {
	m := Identity()
	m[12], m[13], m[14] = 1, 2, 3
	assert.Equal(t, [4]float32{2, 3, 4, 1}, m.Transform(1, 1, 1))
}

func TestParseEnabledPolicy(t *testing.T) {
	p, err := ParseEnabledPolicy("closed")
	require.NoError(t, err)
	assert.Equal(t, FailClosed, p)

	p, err = ParseEnabledPolicy("")
	require.NoError(t, err)
	assert.Equal(t, FailOpen, p)

	_, err = ParseEnabledPolicy("ajar")
	require.Error(t, err)
}
