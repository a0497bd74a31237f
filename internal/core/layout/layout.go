// Package layout holds the byte offsets scenewalk assumes about the foreign
// runtime's structures. Offsets drift between engine builds, so every one of
// them can be overridden from a YAML file.
package layout

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/scenewalk/internal/core/memory"
)

// Layout is the complete set of foreign structure offsets and traversal limits.
type Layout struct {
	Entity    EntityLayout    `json:"entity" yaml:"entity"`
	Component ComponentLayout `json:"component" yaml:"component"`
	Registry  RegistryLayout  `json:"registry" yaml:"registry"`
	List      ListLayout      `json:"list" yaml:"list"`
	Pool      PoolLayout      `json:"pool" yaml:"pool"`
	Camera    CameraLayout    `json:"camera" yaml:"camera"`
	Managed   ManagedLayout   `json:"managed" yaml:"managed"`
	Strings   StringsLayout   `json:"strings" yaml:"strings"`
	Limits    Limits          `json:"limits" yaml:"limits"`
	Features  Features        `json:"features" yaml:"features"`
}

type EntityLayout struct {
	Managed        uint64 `json:"managed" yaml:"managed"`
	ComponentPool  uint64 `json:"component_pool" yaml:"component_pool"`
	ComponentCount uint64 `json:"component_count" yaml:"component_count"`
	Tag            uint64 `json:"tag" yaml:"tag"`
	Name           uint64 `json:"name" yaml:"name"`
}

type ComponentLayout struct {
	Managed uint64 `json:"managed" yaml:"managed"`
	Entity  uint64 `json:"entity" yaml:"entity"`
	Enabled uint64 `json:"enabled" yaml:"enabled"`
}

type RegistryLayout struct {
	// LegacyListHead is the list head pointer of the legacy registry.
	LegacyListHead uint64 `json:"legacy_list_head" yaml:"legacy_list_head"`
	// BucketTable and BucketCount belong to the bucketed registry header.
	BucketTable    uint64 `json:"bucket_table" yaml:"bucket_table"`
	BucketCount    uint64 `json:"bucket_count" yaml:"bucket_count"`
	BucketStride   uint64 `json:"bucket_stride" yaml:"bucket_stride"`
	BucketListHead uint64 `json:"bucket_list_head" yaml:"bucket_list_head"`
}

// ListLayout describes an intrusive list node.
type ListLayout struct {
	Prev    uint64 `json:"prev" yaml:"prev"`
	Next    uint64 `json:"next" yaml:"next"`
	Payload uint64 `json:"payload" yaml:"payload"`
}

// PoolLayout describes the component slot array. Slot i starts at
// pool + SlotBase + i*SlotStride.
type PoolLayout struct {
	SlotBase      uint64 `json:"slot_base" yaml:"slot_base"`
	SlotStride    uint64 `json:"slot_stride" yaml:"slot_stride"`
	SlotTypeID    uint64 `json:"slot_type_id" yaml:"slot_type_id"`
	SlotComponent uint64 `json:"slot_component" yaml:"slot_component"`
}

type CameraLayout struct {
	ViewMatrix uint64 `json:"view_matrix" yaml:"view_matrix"`
	MainTag    uint16 `json:"main_tag" yaml:"main_tag"`
	TypeName   string `json:"type_name" yaml:"type_name"`
}

// ManagedLayout is the vtable → class → name chain of a managed object.
type ManagedLayout struct {
	VTable    uint64 `json:"vtable" yaml:"vtable"`
	Class     uint64 `json:"class" yaml:"class"`
	ClassName uint64 `json:"class_name" yaml:"class_name"`
}

type StringsLayout struct {
	EntityName memory.StringFormat `json:"entity_name" yaml:"entity_name"`
	ClassName  memory.StringFormat `json:"class_name" yaml:"class_name"`
}

// Limits are corruption guards, not engine limits.
type Limits struct {
	MaxListNodes  int `json:"max_list_nodes" yaml:"max_list_nodes"`
	MaxBuckets    int `json:"max_buckets" yaml:"max_buckets"`
	MaxComponents int `json:"max_components" yaml:"max_components"`
}

// SchemaFeatures lists which optional entity fields a registry schema's
// engine builds populate.
type SchemaFeatures struct {
	Tags    bool `json:"tags" yaml:"tags"`
	TypeIDs bool `json:"type_ids" yaml:"type_ids"`
}

type Features struct {
	Legacy   SchemaFeatures `json:"legacy" yaml:"legacy"`
	Bucketed SchemaFeatures `json:"bucketed" yaml:"bucketed"`
}

// Default returns the offsets of the reference engine build.
func Default() *Layout {
	return &Layout{
		Entity: EntityLayout{
			Managed:        0x28,
			ComponentPool:  0x30,
			ComponentCount: 0x40,
			Tag:            0x54,
			Name:           0x60,
		},
		Component: ComponentLayout{
			Managed: 0x28,
			Entity:  0x30,
			Enabled: 0x38,
		},
		Registry: RegistryLayout{
			LegacyListHead: 0x28,
			BucketTable:    0x00,
			BucketCount:    0x08,
			BucketStride:   24,
			BucketListHead: 0x10,
		},
		List: ListLayout{
			Prev:    0x00,
			Next:    0x08,
			Payload: 0x10,
		},
		Pool: PoolLayout{
			SlotBase:      0x00,
			SlotStride:    16,
			SlotTypeID:    0x00,
			SlotComponent: 0x08,
		},
		Camera: CameraLayout{
			ViewMatrix: 0x100,
			MainTag:    5,
			TypeName:   "Camera",
		},
		Managed: ManagedLayout{
			VTable:    0x00,
			Class:     0x00,
			ClassName: 0x48,
		},
		Strings: StringsLayout{
			EntityName: memory.CString,
			ClassName:  memory.CString,
		},
		Limits: Limits{
			MaxListNodes:  1_000_000,
			MaxBuckets:    1 << 20,
			MaxComponents: 1024,
		},
		Features: Features{
			Legacy:   SchemaFeatures{Tags: true, TypeIDs: true},
			Bucketed: SchemaFeatures{Tags: false, TypeIDs: false},
		},
	}
}

// Load decodes YAML on top of Default, so a file only needs the offsets that
// differ, and validates the result.
func Load(r io.Reader) (*Layout, error) {
	l := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(l); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func LoadFile(path string) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open layout: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate rejects layouts that would make the walkers read overlapping or
// out-of-record fields.
func (l *Layout) Validate() error {
	switch {
	case l.Registry.BucketStride == 0:
		return fmt.Errorf("%w: registry.bucket_stride must be positive", ErrInvalidLayout)
	case l.Registry.BucketListHead+8 > l.Registry.BucketStride:
		return fmt.Errorf("%w: registry.bucket_list_head outside bucket record", ErrInvalidLayout)
	case l.Pool.SlotStride == 0:
		return fmt.Errorf("%w: pool.slot_stride must be positive", ErrInvalidLayout)
	case l.Pool.SlotComponent+8 > l.Pool.SlotStride:
		return fmt.Errorf("%w: pool.slot_component outside slot", ErrInvalidLayout)
	case l.Pool.SlotTypeID+4 > l.Pool.SlotStride:
		return fmt.Errorf("%w: pool.slot_type_id outside slot", ErrInvalidLayout)
	case l.List.Next == l.List.Payload:
		return fmt.Errorf("%w: list.next and list.payload overlap", ErrInvalidLayout)
	case l.Limits.MaxListNodes <= 0, l.Limits.MaxBuckets <= 0, l.Limits.MaxComponents <= 0:
		return fmt.Errorf("%w: limits must be positive", ErrInvalidLayout)
	case l.Camera.TypeName == "":
		return fmt.Errorf("%w: camera.type_name is required", ErrInvalidLayout)
	}
	return nil
}

// Clone returns an independent copy, handy for per-test tweaks.
func (l *Layout) Clone() *Layout {
	c := *l
	return &c
}
