// Package lookup finds entities and components by tag, name or type.
//
// Every call re-walks the live registry. Nothing is indexed between calls:
// the registry mutates continuously and a stale index would misreport.
package lookup

import (
	"fmt"

	"github.com/zeusync/scenewalk/internal/core/identity"
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
	"github.com/zeusync/scenewalk/internal/core/registry"
	"github.com/zeusync/scenewalk/internal/core/scene"
)

type Finder struct {
	walker   *registry.Walker
	resolver *identity.Resolver
	view     *scene.View
	log      log.Log
}

type Option func(*Finder)

func WithLogger(l log.Log) Option {
	return func(f *Finder) { f.log = l }
}

func NewFinder(w *registry.Walker, r *identity.Resolver, opts ...Option) *Finder {
	f := &Finder{walker: w, resolver: r, view: w.View(), log: log.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Finder) Walker() *registry.Walker {
	return f.walker
}

func (f *Finder) Resolver() *identity.Resolver {
	return f.resolver
}

// FindByTag returns the first entity, in walker order, whose tag equals tag.
// It fails with registry.ErrUnsupportedSchema when the schema carries no tags.
func (f *Finder) FindByTag(base memory.Address, tag uint16) (scene.Entity, error) {
	schema, err := f.walker.SchemaOf(base)
	if err != nil {
		return scene.Entity{}, err
	}
	if !schema.Features(f.walker.Layout()).Tags {
		return scene.Entity{}, fmt.Errorf("find by tag in %s registry: %w", schema, registry.ErrUnsupportedSchema)
	}

	entities, err := f.walker.EnumerateEntities(base)
	if err != nil {
		return scene.Entity{}, err
	}
	for _, e := range entities {
		got, err := f.view.Tag(e)
		if err != nil {
			continue
		}
		if got == tag {
			return e, nil
		}
	}
	return scene.Entity{}, fmt.Errorf("entity with tag %d: %w", tag, memory.ErrNotFound)
}

// FindByName returns the first entity whose name matches exactly (case-sensitive).
func (f *Finder) FindByName(base memory.Address, name string) (scene.Entity, error) {
	entities, err := f.walker.EnumerateEntities(base)
	if err != nil {
		return scene.Entity{}, err
	}
	for _, e := range entities {
		got, err := f.view.Name(e)
		if err != nil {
			continue
		}
		if got == name {
			return e, nil
		}
	}
	return scene.Entity{}, fmt.Errorf("entity named %q: %w", name, memory.ErrNotFound)
}

// ComponentByTypeID scans the entity's pool for a slot whose type id equals
// typeID. Only legacy builds record type ids, so the walker must be declared
// with a legacy schema whose features enable them.
func (f *Finder) ComponentByTypeID(e scene.Entity, typeID int32) (scene.Component, error) {
	schema := f.walker.DeclaredSchema()
	if schema != registry.SchemaLegacy || !schema.Features(f.walker.Layout()).TypeIDs {
		return scene.Component{}, fmt.Errorf("component by type id in %s registry: %w", schema, registry.ErrUnsupportedSchema)
	}

	slots, err := f.walker.Slots(e)
	if err != nil {
		return scene.Component{}, err
	}
	for _, s := range slots {
		id, err := f.view.SlotTypeID(s)
		if err != nil || id != typeID {
			continue
		}
		managed, err := f.view.ComponentManaged(s.Component)
		if err != nil {
			managed = 0
		}
		return scene.Component{Address: s.Component, Entity: e.Address, Managed: managed}, nil
	}
	return scene.Component{}, fmt.Errorf("component type id %d on %s: %w", typeID, e.Address, memory.ErrNotFound)
}

// ComponentByTypeName returns the first component on e whose managed
// counterpart resolves to typeName.
func (f *Finder) ComponentByTypeName(e scene.Entity, typeName string) (scene.Component, error) {
	var found scene.Component
	err := f.eachComponentNamed(e, typeName, func(c scene.Component) bool {
		found = c
		return false
	})
	if err != nil {
		return scene.Component{}, err
	}
	if found.Address.IsNull() {
		return scene.Component{}, fmt.Errorf("component %q on %s: %w", typeName, e.Address, memory.ErrNotFound)
	}
	return found, nil
}

// ComponentsByTypeName returns every component on e whose type is typeName,
// in pool order.
func (f *Finder) ComponentsByTypeName(e scene.Entity, typeName string) ([]scene.Component, error) {
	var out []scene.Component
	err := f.eachComponentNamed(e, typeName, func(c scene.Component) bool {
		out = append(out, c)
		return true
	})
	return out, err
}

func (f *Finder) eachComponentNamed(e scene.Entity, typeName string, yield func(scene.Component) bool) error {
	slots, err := f.walker.Slots(e)
	if err != nil {
		return err
	}
	for _, s := range slots {
		managed, err := f.view.ComponentManaged(s.Component)
		if err != nil || managed.IsNull() {
			continue
		}
		if !f.resolver.Is(managed, typeName) {
			continue
		}
		if !yield(scene.Component{Address: s.Component, Entity: e.Address, Managed: managed}) {
			return nil
		}
	}
	return nil
}

// FindEntityWithComponent returns the first entity carrying a component of
// typeName, together with that component.
func (f *Finder) FindEntityWithComponent(base memory.Address, typeName string) (scene.Entity, scene.Component, error) {
	entities, err := f.walker.EnumerateEntities(base)
	if err != nil {
		return scene.Entity{}, scene.Component{}, err
	}
	for _, e := range entities {
		c, err := f.ComponentByTypeName(e, typeName)
		if err != nil {
			continue
		}
		return e, c, nil
	}
	return scene.Entity{}, scene.Component{}, fmt.Errorf("entity with component %q: %w", typeName, memory.ErrNotFound)
}
