// Package registry enumerates live entities and components out of a foreign
// scene registry.
//
// Two registry layouts exist across engine builds: a legacy single intrusive
// list and a bucketed hash table. Both are walked by the same bounded list
// walker. Element-level read failures end only the list being walked;
// failures on the registry header end the call.
package registry

import (
	"fmt"
	"runtime"

	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
	"github.com/zeusync/scenewalk/internal/core/scene"
)

// ManagedPolicy decides what happens to components without a managed counterpart.
type ManagedPolicy uint8

const (
	// KeepUnmanaged reports built-in components even when their managed pointer is null.
	KeepUnmanaged ManagedPolicy = iota
	// SkipUnmanaged drops components whose managed pointer is null.
	SkipUnmanaged
)

func ParseManagedPolicy(s string) (ManagedPolicy, error) {
	switch s {
	case "", "keep":
		return KeepUnmanaged, nil
	case "skip":
		return SkipUnmanaged, nil
	default:
		return KeepUnmanaged, fmt.Errorf("unknown managed policy %q", s)
	}
}

// BucketFilter classifies a bucket by the payload of its first node. Buckets
// for which it returns false are skipped; hash tables can be shared between
// several keyed collections.
type BucketFilter func(payload memory.Address) bool

type Walker struct {
	mem     memory.Reader
	layout  *layout.Layout
	view    *scene.View
	schema  Schema
	filter  BucketFilter
	managed ManagedPolicy
	log     log.Log
	procs   func() int
}

type Option func(*Walker)

func WithSchema(s Schema) Option {
	return func(w *Walker) { w.schema = s }
}

func WithBucketFilter(f BucketFilter) Option {
	return func(w *Walker) { w.filter = f }
}

func WithManagedPolicy(p ManagedPolicy) Option {
	return func(w *Walker) { w.managed = p }
}

func WithLogger(l log.Log) Option {
	return func(w *Walker) { w.log = l }
}

// WithHardwareConcurrency overrides the worker ceiling of parallel scans.
func WithHardwareConcurrency(fn func() int) Option {
	return func(w *Walker) { w.procs = fn }
}

func New(mem memory.Reader, lay *layout.Layout, opts ...Option) *Walker {
	w := &Walker{
		mem:    mem,
		layout: lay,
		view:   scene.NewView(mem, lay),
		schema: SchemaAuto,
		log:    log.Nop(),
		procs:  func() int { return runtime.GOMAXPROCS(0) },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Walker) View() *scene.View {
	return w.view
}

func (w *Walker) Layout() *layout.Layout {
	return w.layout
}

// DeclaredSchema returns the schema the walker was configured with, which may be SchemaAuto.
func (w *Walker) DeclaredSchema() Schema {
	return w.schema
}

// SchemaOf returns the declared schema, or detects it at base when it is SchemaAuto.
func (w *Walker) SchemaOf(base memory.Address) (Schema, error) {
	if w.schema != SchemaAuto {
		return w.schema, nil
	}
	return DetectSchema(w.mem, w.layout, base)
}

// ResolveRegistryRoot dereferences the bootstrap address once.
func (w *Walker) ResolveRegistryRoot(bootstrap memory.Address) (memory.Address, error) {
	root, err := memory.FollowPointer(w.mem, bootstrap)
	if err != nil {
		return 0, fmt.Errorf("resolve registry root: %w", err)
	}
	return root, nil
}

// EnumerateEntities returns every entity reachable from the registry at base.
// The order follows the foreign structure and is not stable across calls.
func (w *Walker) EnumerateEntities(base memory.Address) ([]scene.Entity, error) {
	schema, err := w.SchemaOf(base)
	if err != nil {
		return nil, err
	}
	switch schema {
	case SchemaLegacy:
		return w.legacyEntities(base)
	case SchemaBucketed:
		return w.bucketedEntities(base)
	default:
		return nil, fmt.Errorf("enumerate entities: %w", ErrUnknownSchema)
	}
}

func (w *Walker) legacyEntities(base memory.Address) ([]scene.Entity, error) {
	if base.IsNull() {
		return nil, fmt.Errorf("legacy registry: %w", memory.ErrNullPointer)
	}
	head, err := memory.ReadPointer(w.mem, base.Add(w.layout.Registry.LegacyListHead))
	if err != nil {
		return nil, fmt.Errorf("legacy registry head: %w", err)
	}

	var out []scene.Entity
	if head.IsNull() {
		return out, nil
	}
	w.walkList(head, func(payload memory.Address) {
		out = append(out, scene.Entity{Address: payload})
	})
	return out, nil
}
