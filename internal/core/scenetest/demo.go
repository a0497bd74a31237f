package scenetest

import (
	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/memory"
)

// Demo is a small self-contained scene.
type Demo struct {
	*Builder
	Registry  memory.Address
	Bootstrap memory.Address
	Entities  []Entity
}

// DemoMatrix is the view matrix written to the demo's main camera.
var DemoMatrix = []float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, -1, -1,
	0, -1.5, -10, 1,
}

// NewDemo lays out a bucketed scene with a player, a light, two cameras and
// some props spread over eight buckets.
func NewDemo(lay *layout.Layout) *Demo {
	b := New(lay)
	entities := b.Entities(
		EntitySpec{Name: "Directional Light", Tag: 0, Components: []ComponentSpec{
			{TypeName: "Transform", TypeID: 4, Enabled: true},
			{TypeName: "Light", TypeID: 108, Enabled: true},
		}},
		EntitySpec{Name: "Player", Tag: 6, Components: []ComponentSpec{
			{TypeName: "Transform", TypeID: 4, Enabled: true},
			{TypeName: "Rigidbody", TypeID: 54, Enabled: true},
			{TypeID: 33, Enabled: true},
		}},
		EntitySpec{Name: "Camera Top", Tag: 0, Components: []ComponentSpec{
			{TypeName: "Transform", TypeID: 4, Enabled: true},
			{TypeName: "Camera", TypeID: 20, Enabled: true},
		}},
		EntitySpec{Name: "Main Camera", Tag: lay.Camera.MainTag, Components: []ComponentSpec{
			{TypeName: "Transform", TypeID: 4, Enabled: true},
			{TypeName: "Camera", TypeID: 20, Enabled: true, Matrix: DemoMatrix},
			{TypeName: "AudioListener", TypeID: 81, Enabled: true},
		}},
		EntitySpec{Name: "Crate", Components: []ComponentSpec{
			{TypeName: "Transform", TypeID: 4, Enabled: true},
			{TypeName: "BoxCollider", TypeID: 65, Enabled: false},
		}},
		EntitySpec{Name: "Crate (1)", Components: []ComponentSpec{
			{TypeName: "Transform", TypeID: 4, Enabled: true},
		}},
	)
	base := b.Bucketed(Distribute(Addresses(entities), 8, 7))
	return &Demo{
		Builder:   b,
		Registry:  base,
		Bootstrap: b.Bootstrap(base),
		Entities:  entities,
	}
}
