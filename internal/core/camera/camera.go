// Package camera selects the target's main camera and reads its view matrix.
//
// Selection is an engine-specific heuristic. When the registry schema carries
// entity tags, the entity tagged with the main marker wins. Otherwise entities
// are ranked by name ("Main Camera", then "Camera Top"), and finally the first
// entity with an enabled camera component in walker order is taken.
package camera

import (
	"errors"
	"fmt"

	"github.com/zeusync/scenewalk/internal/core/lookup"
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
	"github.com/zeusync/scenewalk/internal/core/registry"
	"github.com/zeusync/scenewalk/internal/core/scene"
)

// EnabledPolicy decides how an unreadable enabled byte is treated.
type EnabledPolicy uint8

const (
	// FailOpen treats an unreadable enabled byte as enabled.
	FailOpen EnabledPolicy = iota
	// FailClosed treats an unreadable enabled byte as disabled.
	FailClosed
)

func ParseEnabledPolicy(s string) (EnabledPolicy, error) {
	switch s {
	case "", "open", "fail-open":
		return FailOpen, nil
	case "closed", "fail-closed":
		return FailClosed, nil
	default:
		return FailOpen, fmt.Errorf("unknown enabled policy %q", s)
	}
}

// DefaultFallbackNames are the entity names ranked by the fallback policy.
var DefaultFallbackNames = []string{"Main Camera", "Camera Top"}

type Resolver struct {
	finder *lookup.Finder
	view   *scene.View
	policy EnabledPolicy
	names  []string
	log    log.Log
}

type Option func(*Resolver)

func WithEnabledPolicy(p EnabledPolicy) Option {
	return func(r *Resolver) { r.policy = p }
}

// WithFallbackNames replaces the ranked entity names of the fallback policy.
func WithFallbackNames(names ...string) Option {
	return func(r *Resolver) { r.names = append([]string(nil), names...) }
}

func WithLogger(l log.Log) Option {
	return func(r *Resolver) { r.log = l }
}

func New(f *lookup.Finder, opts ...Option) *Resolver {
	r := &Resolver{
		finder: f,
		view:   f.Walker().View(),
		names:  DefaultFallbackNames,
		log:    log.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindMainCamera returns the main camera entity and its enabled camera
// component, or memory.ErrNotFound when no candidate satisfies the chain.
func (r *Resolver) FindMainCamera(base memory.Address) (scene.Entity, scene.Component, error) {
	lay := r.view.Layout()

	e, err := r.finder.FindByTag(base, lay.Camera.MainTag)
	switch {
	case err == nil:
		if c, ok := r.enabledCamera(e); ok {
			return e, c, nil
		}
		return scene.Entity{}, scene.Component{}, fmt.Errorf("main camera on tagged entity %s: %w", e.Address, memory.ErrNotFound)
	case errors.Is(err, registry.ErrUnsupportedSchema):
		r.log.Debug("tag lookup unsupported, ranking cameras by name", log.Hex("registry", uint64(base)))
		return r.byName(base)
	default:
		return scene.Entity{}, scene.Component{}, fmt.Errorf("main camera: %w", err)
	}
}

func (r *Resolver) byName(base memory.Address) (scene.Entity, scene.Component, error) {
	entities, err := r.finder.Walker().EnumerateEntities(base)
	if err != nil {
		return scene.Entity{}, scene.Component{}, err
	}

	var (
		bestEntity    scene.Entity
		bestComponent scene.Component
		bestRank      = -1
	)
	for _, e := range entities {
		rank := r.rank(e)
		if bestRank >= 0 && rank >= bestRank {
			continue
		}
		c, ok := r.enabledCamera(e)
		if !ok {
			continue
		}
		if rank == 0 {
			return e, c, nil
		}
		bestEntity, bestComponent, bestRank = e, c, rank
	}
	if bestRank < 0 {
		return scene.Entity{}, scene.Component{}, fmt.Errorf("main camera: %w", memory.ErrNotFound)
	}
	return bestEntity, bestComponent, nil
}

// rank is the entity's position in the fallback name list, or len(names)
// for any other entity.
func (r *Resolver) rank(e scene.Entity) int {
	name, err := r.view.Name(e)
	if err != nil {
		return len(r.names)
	}
	for i, n := range r.names {
		if n == name {
			return i
		}
	}
	return len(r.names)
}

func (r *Resolver) enabledCamera(e scene.Entity) (scene.Component, bool) {
	cams, err := r.finder.ComponentsByTypeName(e, r.view.Layout().Camera.TypeName)
	if err != nil {
		return scene.Component{}, false
	}
	for _, c := range cams {
		if r.Enabled(c) {
			return c, true
		}
	}
	return scene.Component{}, false
}

// Enabled applies the policy to the component's enabled byte.
func (r *Resolver) Enabled(c scene.Component) bool {
	on, err := r.view.Enabled(c)
	if err != nil {
		r.log.Debug("enabled flag unreadable",
			log.Hex("component", uint64(c.Address)), log.Bool("fail_open", r.policy == FailOpen), log.Error(err))
		return r.policy == FailOpen
	}
	return on
}

// ViewMatrix reads the camera's 4x4 matrix. On failure it returns the
// identity matrix together with the error; the matrix value alone never
// signals validity.
func (r *Resolver) ViewMatrix(c scene.Component) (Matrix, error) {
	if c.Address.IsNull() {
		return Identity(), fmt.Errorf("view matrix: %w", memory.ErrNullPointer)
	}
	m, err := memory.ReadValue[Matrix](r.view.Reader(), c.Address.Add(r.view.Layout().Camera.ViewMatrix))
	if err != nil {
		return Identity(), fmt.Errorf("view matrix of %s: %w", c.Address, err)
	}
	return m, nil
}

// MainCameraMatrix combines FindMainCamera and ViewMatrix.
func (r *Resolver) MainCameraMatrix(base memory.Address) (Matrix, error) {
	_, c, err := r.FindMainCamera(base)
	if err != nil {
		return Identity(), err
	}
	return r.ViewMatrix(c)
}
