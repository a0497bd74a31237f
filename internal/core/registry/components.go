package registry

import (
	"fmt"

	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
	"github.com/zeusync/scenewalk/internal/core/scene"
)

// Slots returns the populated slots of an entity's component pool. The count
// is validated before any slot is read: a null pool or a count above
// Limits.MaxComponents fails, a count of zero or less yields no slots.
// Unreadable or null slots are skipped.
func (w *Walker) Slots(e scene.Entity) ([]scene.Slot, error) {
	count, err := w.view.ComponentCount(e)
	if err != nil {
		return nil, fmt.Errorf("component count: %w", err)
	}
	if count <= 0 {
		return nil, nil
	}
	if err := memory.CheckBounds("component count", int64(count), int64(w.layout.Limits.MaxComponents)); err != nil {
		return nil, err
	}
	pool, err := w.view.ComponentPool(e)
	if err != nil {
		return nil, fmt.Errorf("component pool: %w", err)
	}
	if pool.IsNull() {
		return nil, fmt.Errorf("component pool: %w", memory.ErrNullPointer)
	}

	slots := make([]scene.Slot, 0, count)
	for i := 0; i < int(count); i++ {
		addr := w.view.SlotAddress(pool, i)
		component, err := memory.ReadPointer(w.mem, addr.Add(w.layout.Pool.SlotComponent))
		if err != nil || component.IsNull() {
			continue
		}
		slots = append(slots, scene.Slot{Index: i, Address: addr, Component: component})
	}
	return slots, nil
}

// Components returns the entity's components, applying the walker's ManagedPolicy.
// A component whose owner back-pointer does not name e is stale or belongs to
// another entity and is skipped.
func (w *Walker) Components(e scene.Entity) ([]scene.Component, error) {
	slots, err := w.Slots(e)
	if err != nil {
		return nil, err
	}

	out := make([]scene.Component, 0, len(slots))
	for _, s := range slots {
		owner, err := w.view.Owner(s.Component)
		if err != nil || owner != e.Address {
			w.log.Debug("component owner mismatch",
				log.Hex("component", uint64(s.Component)),
				log.Hex("entity", uint64(e.Address)),
				log.Hex("owner", uint64(owner)))
			continue
		}
		managed, err := w.view.ComponentManaged(s.Component)
		if err != nil {
			w.log.Debug("component skipped", log.Hex("component", uint64(s.Component)), log.Error(err))
			continue
		}
		if managed.IsNull() && w.managed == SkipUnmanaged {
			continue
		}
		out = append(out, scene.Component{Address: s.Component, Entity: e.Address, Managed: managed})
	}
	return out, nil
}

// EnumerateComponents returns the components of every entity in the registry.
// Entities whose pool is null, empty or fails the count ceiling are skipped.
func (w *Walker) EnumerateComponents(base memory.Address) ([]scene.Component, error) {
	entities, err := w.EnumerateEntities(base)
	if err != nil {
		return nil, err
	}

	var out []scene.Component
	for _, e := range entities {
		components, err := w.Components(e)
		if err != nil {
			w.log.Debug("entity components skipped", log.Hex("entity", uint64(e.Address)), log.Error(err))
			continue
		}
		out = append(out, components...)
	}
	return out, nil
}
