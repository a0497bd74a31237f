package registry

import (
	"fmt"
	"strings"

	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/memory"
)

// Schema selects the registry traversal strategy.
type Schema uint8

const (
	// SchemaAuto inspects the registry header on every call.
	SchemaAuto Schema = iota
	// SchemaLegacy is a single intrusive list with a recorded tail.
	SchemaLegacy
	// SchemaBucketed is a hash table of fixed-stride buckets, each heading a list.
	SchemaBucketed
)

func (s Schema) String() string {
	switch s {
	case SchemaAuto:
		return "auto"
	case SchemaLegacy:
		return "legacy"
	case SchemaBucketed:
		return "bucketed"
	default:
		return fmt.Sprintf("schema(%d)", uint8(s))
	}
}

func ParseSchema(s string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return SchemaAuto, nil
	case "legacy", "list":
		return SchemaLegacy, nil
	case "bucketed", "hash", "buckets":
		return SchemaBucketed, nil
	default:
		return SchemaAuto, fmt.Errorf("unknown registry schema %q", s)
	}
}

func (s Schema) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Schema) UnmarshalText(text []byte) error {
	parsed, err := ParseSchema(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Features returns the optional fields the schema's engine builds populate.
func (s Schema) Features(l *layout.Layout) layout.SchemaFeatures {
	switch s {
	case SchemaLegacy:
		return l.Features.Legacy
	case SchemaBucketed:
		return l.Features.Bucketed
	default:
		return layout.SchemaFeatures{}
	}
}

// DetectSchema inspects the header at base. A non-null, pointer-aligned bucket
// table marks a bucketed header; its count must then lie within
// [0, MaxBuckets] or detection fails with ErrBoundsExceeded rather than
// reinterpreting the header as legacy. A positive count means bucketed.
// Anything else with a non-null legacy list head is treated as legacy.
func DetectSchema(mem memory.Reader, lay *layout.Layout, base memory.Address) (Schema, error) {
	if base.IsNull() {
		return SchemaAuto, fmt.Errorf("detect schema: %w", memory.ErrNullPointer)
	}

	table, tableErr := memory.ReadPointer(mem, base.Add(lay.Registry.BucketTable))
	count, countErr := memory.ReadInt32(mem, base.Add(lay.Registry.BucketCount))
	if tableErr == nil && countErr == nil && !table.IsNull() && table%8 == 0 {
		if err := memory.CheckBounds("bucket count", int64(count), int64(lay.Limits.MaxBuckets)); err != nil {
			return SchemaAuto, fmt.Errorf("detect schema at %s: %w", base, err)
		}
		if count > 0 {
			return SchemaBucketed, nil
		}
	}

	head, err := memory.ReadPointer(mem, base.Add(lay.Registry.LegacyListHead))
	if err != nil {
		return SchemaAuto, fmt.Errorf("detect schema: %w", err)
	}
	if head.IsNull() {
		return SchemaAuto, fmt.Errorf("detect schema at %s: %w", base, ErrUnknownSchema)
	}
	return SchemaLegacy, nil
}
