// Package scenetest lays out synthetic registries, entities and components in
// a simulated address space using a given Layout. It stands in for a live
// target in tests and in the CLI demo.
package scenetest

import (
	"math/rand/v2"

	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/memory/sim"
)

// DefaultEntityType is the managed class given to entities without one.
const DefaultEntityType = "GameObject"

type ComponentSpec struct {
	// TypeName is the managed class name. Empty leaves the managed pointer null.
	TypeName string
	TypeID   int32
	Enabled  bool
	// EnabledUnreadable places the enabled byte on a protected page while the
	// managed pointer stays readable.
	EnabledUnreadable bool
	// Matrix, when set, is written at the camera view matrix offset.
	Matrix []float32
}

type EntitySpec struct {
	Name string
	Tag  uint16
	// ManagedType defaults to DefaultEntityType.
	ManagedType string
	Components  []ComponentSpec
	// ComponentCount overrides the count field written to the entity.
	ComponentCount *int32
}

// Entity is a built entity and the addresses of its parts.
type Entity struct {
	Address    memory.Address
	Managed    memory.Address
	Pool       memory.Address
	Components []memory.Address
}

type Builder struct {
	Image  *sim.Image
	Layout *layout.Layout

	vtables map[string]memory.Address
}

func New(lay *layout.Layout) *Builder {
	return &Builder{
		Image:   sim.New(),
		Layout:  lay,
		vtables: make(map[string]memory.Address),
	}
}

// String allocates s in the given format and returns its address.
func (b *Builder) String(f memory.StringFormat, s string) memory.Address {
	if f.Encoding == memory.EncodingUTF16 {
		addr := b.Image.Alloc(int(f.DataOffset) + 2*len(s) + 2)
		b.Image.PutManagedString(addr, s)
		return addr
	}
	return b.Image.NewCString(s)
}

// VTable returns the vtable of a managed class named typeName, creating the
// class metadata on first use.
func (b *Builder) VTable(typeName string) memory.Address {
	if vt, ok := b.vtables[typeName]; ok {
		return vt
	}
	m := b.Layout.Managed

	class := b.Image.Alloc(int(m.ClassName) + 8)
	b.Image.PutPointer(class.Add(m.ClassName), b.String(b.Layout.Strings.ClassName, typeName))

	vt := b.Image.Alloc(int(m.Class) + 8)
	b.Image.PutPointer(vt.Add(m.Class), class)

	b.vtables[typeName] = vt
	return vt
}

// Managed allocates a managed object of class typeName.
func (b *Builder) Managed(typeName string) memory.Address {
	m := b.Layout.Managed
	obj := b.Image.Alloc(int(m.VTable) + 0x20)
	b.Image.PutPointer(obj.Add(m.VTable), b.VTable(typeName))
	return obj
}

// Component allocates a native component owned by owner.
func (b *Builder) Component(owner memory.Address, spec ComponentSpec) memory.Address {
	c := b.Layout.Component
	size := int(max(c.Enabled+1, b.Layout.Camera.ViewMatrix+64))

	var addr memory.Address
	if spec.EnabledUnreadable {
		first := b.Image.AllocPage()
		b.Image.AllocPage()
		second := first.Add(sim.PageSize)
		// Enabled byte opens the second page; the managed pointer ends before it.
		addr = second - memory.Address(c.Enabled)
	} else {
		addr = b.Image.Alloc(size)
	}

	if spec.TypeName != "" {
		b.Image.PutPointer(addr.Add(c.Managed), b.Managed(spec.TypeName))
	}
	b.Image.PutPointer(addr.Add(c.Entity), owner)
	if spec.Enabled {
		b.Image.PutUint8(addr.Add(c.Enabled), 1)
	}
	if len(spec.Matrix) > 0 {
		b.Image.PutFloat32s(addr.Add(b.Layout.Camera.ViewMatrix), spec.Matrix)
	}

	if spec.EnabledUnreadable {
		b.Image.Protect(addr.Add(c.Enabled), 1)
	}
	return addr
}

// Entity allocates an entity with its managed counterpart, name and pool.
func (b *Builder) Entity(spec EntitySpec) Entity {
	el := b.Layout.Entity
	pl := b.Layout.Pool

	addr := b.Image.Alloc(int(el.Name) + 8)
	out := Entity{Address: addr}

	managedType := spec.ManagedType
	if managedType == "" {
		managedType = DefaultEntityType
	}
	out.Managed = b.Managed(managedType)
	b.Image.PutPointer(addr.Add(el.Managed), out.Managed)
	b.Image.PutUint16(addr.Add(el.Tag), spec.Tag)
	if spec.Name != "" {
		b.Image.PutPointer(addr.Add(el.Name), b.String(b.Layout.Strings.EntityName, spec.Name))
	}

	if n := len(spec.Components); n > 0 {
		out.Pool = b.Image.Alloc(int(pl.SlotBase + uint64(n)*pl.SlotStride))
		for i, cs := range spec.Components {
			c := b.Component(addr, cs)
			slot := out.Pool.Add(pl.SlotBase + uint64(i)*pl.SlotStride)
			b.Image.PutInt32(slot.Add(pl.SlotTypeID), cs.TypeID)
			b.Image.PutPointer(slot.Add(pl.SlotComponent), c)
			out.Components = append(out.Components, c)
		}
		b.Image.PutPointer(addr.Add(el.ComponentPool), out.Pool)
	}

	count := int32(len(spec.Components))
	if spec.ComponentCount != nil {
		count = *spec.ComponentCount
	}
	b.Image.PutInt32(addr.Add(el.ComponentCount), count)
	return out
}

// Entities builds every spec in order.
func (b *Builder) Entities(specs ...EntitySpec) []Entity {
	out := make([]Entity, len(specs))
	for i, s := range specs {
		out[i] = b.Entity(s)
	}
	return out
}

// List links one node per payload. The head's sibling slot records the tail,
// the tail's next pointer is null. It returns the node addresses in order.
func (b *Builder) List(payloads []memory.Address) []memory.Address {
	l := b.Layout.List
	size := int(max(l.Prev, l.Next, l.Payload) + 8)

	nodes := make([]memory.Address, len(payloads))
	for i, p := range payloads {
		nodes[i] = b.Image.Alloc(size)
		b.Image.PutPointer(nodes[i].Add(l.Payload), p)
	}
	for i := 0; i+1 < len(nodes); i++ {
		b.Image.PutPointer(nodes[i].Add(l.Next), nodes[i+1])
	}
	if len(nodes) > 0 {
		b.Image.PutPointer(nodes[0].Add(l.Prev), nodes[len(nodes)-1])
	}
	return nodes
}

// Legacy builds a legacy registry listing entities in order and returns its base.
func (b *Builder) Legacy(entities ...memory.Address) memory.Address {
	reg := b.Layout.Registry
	base := b.Image.Alloc(int(reg.LegacyListHead) + 8)
	if nodes := b.List(entities); len(nodes) > 0 {
		b.Image.PutPointer(base.Add(reg.LegacyListHead), nodes[0])
	}
	return base
}

// Bucketed builds a bucketed registry with one bucket per element of buckets.
func (b *Builder) Bucketed(buckets [][]memory.Address) memory.Address {
	reg := b.Layout.Registry
	base := b.Image.Alloc(int(max(reg.BucketTable, reg.BucketCount) + 8))

	var table memory.Address
	if len(buckets) > 0 {
		table = b.Image.Alloc(len(buckets) * int(reg.BucketStride))
	}
	b.Image.PutPointer(base.Add(reg.BucketTable), table)
	b.Image.PutInt32(base.Add(reg.BucketCount), int32(len(buckets)))

	for i, bucket := range buckets {
		if nodes := b.List(bucket); len(nodes) > 0 {
			rec := table.Add(uint64(i) * reg.BucketStride)
			b.Image.PutPointer(rec.Add(reg.BucketListHead), nodes[0])
		}
	}
	return base
}

// Bootstrap stores base in a fresh pointer cell and returns the cell.
func (b *Builder) Bootstrap(base memory.Address) memory.Address {
	cell := b.Image.Alloc(8)
	b.Image.PutPointer(cell, base)
	return cell
}

// Distribute spreads addrs over k buckets pseudo-randomly; some buckets may stay empty.
func Distribute(addrs []memory.Address, k int, seed uint64) [][]memory.Address {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([][]memory.Address, k)
	for _, a := range addrs {
		i := rng.IntN(k)
		out[i] = append(out[i], a)
	}
	return out
}

// Addresses returns the entity addresses of built entities.
func Addresses(entities []Entity) []memory.Address {
	out := make([]memory.Address, len(entities))
	for i, e := range entities {
		out[i] = e.Address
	}
	return out
}
