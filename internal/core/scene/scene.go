// Package scene models foreign entities and components as address handles and
// reads their attributes live through a View.
package scene

import (
	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/memory"
)

// Entity is a native scene object. Its identity is its address.
type Entity struct {
	Address memory.Address
}

// Component is a native component attached to one entity. Managed and Entity
// are the values observed when the component was enumerated.
type Component struct {
	Address memory.Address
	Entity  memory.Address
	Managed memory.Address
}

// Slot is one record of an entity's component pool.
type Slot struct {
	Index     int
	Address   memory.Address
	Component memory.Address
}

// View reads entity and component fields. It holds no state besides its
// reader and layout; every call goes to the foreign process.
type View struct {
	mem    memory.Reader
	layout *layout.Layout
}

func NewView(mem memory.Reader, lay *layout.Layout) *View {
	return &View{mem: mem, layout: lay}
}

func (v *View) Reader() memory.Reader {
	return v.mem
}

func (v *View) Layout() *layout.Layout {
	return v.layout
}

func (v *View) Managed(e Entity) (memory.Address, error) {
	return memory.ReadPointer(v.mem, e.Address.Add(v.layout.Entity.Managed))
}

func (v *View) ComponentPool(e Entity) (memory.Address, error) {
	return memory.ReadPointer(v.mem, e.Address.Add(v.layout.Entity.ComponentPool))
}

func (v *View) ComponentCount(e Entity) (int32, error) {
	return memory.ReadInt32(v.mem, e.Address.Add(v.layout.Entity.ComponentCount))
}

func (v *View) Tag(e Entity) (uint16, error) {
	return memory.ReadUint16(v.mem, e.Address.Add(v.layout.Entity.Tag))
}

func (v *View) Name(e Entity) (string, error) {
	return memory.ReadStringAt(v.mem, e.Address.Add(v.layout.Entity.Name), v.layout.Strings.EntityName)
}

func (v *View) ComponentManaged(component memory.Address) (memory.Address, error) {
	return memory.ReadPointer(v.mem, component.Add(v.layout.Component.Managed))
}

// Owner reads the back-pointer from a component to its owning entity.
func (v *View) Owner(component memory.Address) (memory.Address, error) {
	return memory.ReadPointer(v.mem, component.Add(v.layout.Component.Entity))
}

// Enabled reads the component's enabled byte. Any non-zero value is enabled.
func (v *View) Enabled(c Component) (bool, error) {
	b, err := memory.ReadUint8(v.mem, c.Address.Add(v.layout.Component.Enabled))
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// SlotAddress returns the start of slot i in the pool.
func (v *View) SlotAddress(pool memory.Address, i int) memory.Address {
	return pool.Add(v.layout.Pool.SlotBase + uint64(i)*v.layout.Pool.SlotStride)
}

func (v *View) SlotTypeID(s Slot) (int32, error) {
	return memory.ReadInt32(v.mem, s.Address.Add(v.layout.Pool.SlotTypeID))
}
