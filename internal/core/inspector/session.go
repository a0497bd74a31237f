// Package inspector binds a memory backend and a layout to the walker,
// resolver, finder and camera resolver for one attachment to a target.
//
// The registry root is resolved once per session and cached. In auto mode the
// schema is detected again on every operation, so a registry whose header
// changes layout is followed. Entity and component data is never cached.
package inspector

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/zeusync/scenewalk/internal/core/camera"
	"github.com/zeusync/scenewalk/internal/core/identity"
	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/lookup"
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
	"github.com/zeusync/scenewalk/internal/core/registry"
	"github.com/zeusync/scenewalk/internal/core/scene"
)

var ErrNoTarget = errors.New("neither bootstrap nor registry address configured")

// Target says where the registry lives. Registry wins when both are set.
type Target struct {
	Bootstrap memory.Address
	Registry  memory.Address
}

type Options struct {
	Schema        registry.Schema
	Workers       int
	ManagedPolicy registry.ManagedPolicy
	EnabledPolicy camera.EnabledPolicy
	// BucketTypes, when non-empty, restricts bucketed scans to buckets whose
	// first entity's managed class is one of these names.
	BucketTypes []string
	Runtime     identity.RuntimeKind
	Bridge      identity.Bridge
	Logger      log.Log
}

type Session struct {
	id     uuid.UUID
	mem    memory.Reader
	layout *layout.Layout
	target Target
	opts   Options
	log    log.Log

	resolver *identity.Resolver

	mu       sync.Mutex
	attached bool
	root     memory.Address
	schema   registry.Schema
	walker   *registry.Walker
	finder   *lookup.Finder
	cameras  *camera.Resolver
}

func New(mem memory.Reader, lay *layout.Layout, target Target, opts Options) (*Session, error) {
	if mem == nil {
		return nil, memory.ErrAccessorUnavailable
	}
	if target.Bootstrap.IsNull() && target.Registry.IsNull() {
		return nil, ErrNoTarget
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	id := uuid.New()
	logger := opts.Logger.With(log.String("session", id.String()))

	resolverOpts := []identity.Option{identity.WithLogger(logger)}
	if opts.Bridge != nil {
		resolverOpts = append(resolverOpts, identity.WithBridge(opts.Runtime, opts.Bridge))
	}

	return &Session{
		id:       id,
		mem:      mem,
		layout:   lay,
		target:   target,
		opts:     opts,
		log:      logger,
		resolver: identity.NewResolver(mem, lay, resolverOpts...),
	}, nil
}

func (s *Session) ID() string {
	return s.id.String()
}

func (s *Session) Layout() *layout.Layout {
	return s.layout
}

// Attach resolves and caches the registry root. Later calls are no-ops once
// it has succeeded; a failed attach is retried on the next call.
func (s *Session) Attach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachLocked()
}

func (s *Session) attachLocked() error {
	if s.attached {
		return nil
	}

	root := s.target.Registry
	if root.IsNull() {
		var err error
		root, err = registry.New(s.mem, s.layout).ResolveRegistryRoot(s.target.Bootstrap)
		if err != nil {
			return err
		}
	}
	s.root = root
	s.attached = true
	s.log.Info("attached to registry", log.Hex("registry", uint64(root)))
	return nil
}

// schemaLocked returns the declared schema, or detects it from the cached root.
func (s *Session) schemaLocked() (registry.Schema, error) {
	if s.opts.Schema != registry.SchemaAuto {
		return s.opts.Schema, nil
	}
	return registry.DetectSchema(s.mem, s.layout, s.root)
}

// rebuildLocked binds a walker, finder and camera resolver to schema.
func (s *Session) rebuildLocked(schema registry.Schema) {
	if s.walker != nil && s.schema == schema {
		return
	}
	if s.walker != nil {
		s.log.Warn("registry schema changed",
			log.String("from", s.schema.String()), log.String("to", schema.String()))
	}

	walkerOpts := []registry.Option{
		registry.WithSchema(schema),
		registry.WithManagedPolicy(s.opts.ManagedPolicy),
		registry.WithLogger(s.log),
	}
	if len(s.opts.BucketTypes) > 0 {
		walkerOpts = append(walkerOpts, registry.WithBucketFilter(s.resolver.EntityFilter(s.opts.BucketTypes...)))
	}

	s.schema = schema
	s.walker = registry.New(s.mem, s.layout, walkerOpts...)
	s.finder = lookup.NewFinder(s.walker, s.resolver, lookup.WithLogger(s.log))
	s.cameras = camera.New(s.finder, camera.WithEnabledPolicy(s.opts.EnabledPolicy), camera.WithLogger(s.log))
}

type bound struct {
	root    memory.Address
	schema  registry.Schema
	walker  *registry.Walker
	finder  *lookup.Finder
	cameras *camera.Resolver
}

func (s *Session) bind() (bound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.attachLocked(); err != nil {
		return bound{}, fmt.Errorf("attach: %w", err)
	}
	schema, err := s.schemaLocked()
	if err != nil {
		return bound{}, err
	}
	s.rebuildLocked(schema)
	return bound{root: s.root, schema: s.schema, walker: s.walker, finder: s.finder, cameras: s.cameras}, nil
}

// Root returns the cached registry root.
func (s *Session) Root() (memory.Address, error) {
	b, err := s.bind()
	return b.root, err
}

func (s *Session) Schema() (registry.Schema, error) {
	b, err := s.bind()
	return b.schema, err
}

func (s *Session) Walker() (*registry.Walker, error) {
	b, err := s.bind()
	return b.walker, err
}

func (s *Session) Finder() (*lookup.Finder, error) {
	b, err := s.bind()
	return b.finder, err
}

func (s *Session) Resolver() *identity.Resolver {
	return s.resolver
}

// Entities enumerates live entities, in parallel when the registry is
// bucketed and more than one worker is configured.
func (s *Session) Entities() ([]scene.Entity, error) {
	b, err := s.bind()
	if err != nil {
		return nil, err
	}
	if b.schema == registry.SchemaBucketed && s.opts.Workers > 1 {
		return b.walker.EnumerateEntitiesParallel(b.root, s.opts.Workers)
	}
	return b.walker.EnumerateEntities(b.root)
}

func (s *Session) Components() ([]scene.Component, error) {
	b, err := s.bind()
	if err != nil {
		return nil, err
	}
	return b.walker.EnumerateComponents(b.root)
}

func (s *Session) FindByName(name string) (scene.Entity, error) {
	b, err := s.bind()
	if err != nil {
		return scene.Entity{}, err
	}
	return b.finder.FindByName(b.root, name)
}

func (s *Session) FindByTag(tag uint16) (scene.Entity, error) {
	b, err := s.bind()
	if err != nil {
		return scene.Entity{}, err
	}
	return b.finder.FindByTag(b.root, tag)
}

func (s *Session) FindEntityWithComponent(typeName string) (scene.Entity, scene.Component, error) {
	b, err := s.bind()
	if err != nil {
		return scene.Entity{}, scene.Component{}, err
	}
	return b.finder.FindEntityWithComponent(b.root, typeName)
}

// MainCamera resolves the main camera and reads its view matrix.
func (s *Session) MainCamera() (scene.Entity, scene.Component, camera.Matrix, error) {
	b, err := s.bind()
	if err != nil {
		return scene.Entity{}, scene.Component{}, camera.Identity(), err
	}
	e, c, err := b.cameras.FindMainCamera(b.root)
	if err != nil {
		return scene.Entity{}, scene.Component{}, camera.Identity(), err
	}
	m, err := b.cameras.ViewMatrix(c)
	return e, c, m, err
}

// WorldToScreen projects p through the main camera's view-projection matrix
// onto a width x height viewport.
func (s *Session) WorldToScreen(p camera.Point, width, height float32) (x, y float32, ok bool, err error) {
	_, _, m, err := s.MainCamera()
	if err != nil {
		return 0, 0, false, err
	}
	x, y, ok = camera.WorldToScreen(m, p, width, height)
	return x, y, ok, nil
}
