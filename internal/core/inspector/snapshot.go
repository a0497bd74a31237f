package inspector

import (
	"cmp"
	"encoding/binary"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/registry"
	"github.com/zeusync/scenewalk/internal/core/scene"
	"github.com/zeusync/scenewalk/pkg/concurrent"
)

type ComponentInfo struct {
	Address  memory.Address `json:"address"`
	Managed  memory.Address `json:"managed"`
	TypeName string         `json:"type_name,omitempty"`
	Enabled  bool           `json:"enabled"`
	// EnabledKnown is false when the enabled byte could not be read.
	EnabledKnown bool `json:"enabled_known"`
}

type EntityInfo struct {
	Address    memory.Address  `json:"address"`
	Name       string          `json:"name,omitempty"`
	Tag        uint16          `json:"tag"`
	Components []ComponentInfo `json:"components,omitempty"`
}

// Snapshot is a best-effort picture of the registry. Each field is only as
// current as the moment its bytes were read.
type Snapshot struct {
	Session     string         `json:"session"`
	Taken       time.Time      `json:"taken"`
	Registry    memory.Address `json:"registry"`
	Schema      string         `json:"schema"`
	Entities    []EntityInfo   `json:"entities"`
	Fingerprint uint64         `json:"fingerprint"`
}

// Snapshot enumerates entities and describes each one. Entities are sorted
// by address so fingerprints compare across calls.
func (s *Session) Snapshot() (*Snapshot, error) {
	b, err := s.bind()
	if err != nil {
		return nil, err
	}
	entities, err := s.Entities()
	if err != nil {
		return nil, err
	}

	infos := concurrent.ParallelMap(entities, s.opts.Workers, func(e scene.Entity) EntityInfo {
		return s.describe(b.walker, e)
	})
	slices.SortFunc(infos, func(x, y EntityInfo) int {
		return cmp.Compare(x.Address, y.Address)
	})

	return &Snapshot{
		Session:     s.ID(),
		Taken:       time.Now(),
		Registry:    b.root,
		Schema:      b.schema.String(),
		Entities:    infos,
		Fingerprint: fingerprint(infos),
	}, nil
}

func (s *Session) describe(w *registry.Walker, e scene.Entity) EntityInfo {
	view := w.View()
	info := EntityInfo{Address: e.Address}
	info.Name, _ = view.Name(e)
	info.Tag, _ = view.Tag(e)

	components, err := w.Components(e)
	if err != nil {
		return info
	}
	for _, c := range components {
		ci := ComponentInfo{Address: c.Address, Managed: c.Managed}
		if !c.Managed.IsNull() {
			ci.TypeName, _ = s.resolver.TypeName(c.Managed)
		}
		if on, err := view.Enabled(c); err == nil {
			ci.Enabled, ci.EnabledKnown = on, true
		}
		info.Components = append(info.Components, ci)
	}
	return info
}

// fingerprint hashes the structural content of a snapshot: entity and
// component addresses, names, tags and enabled flags.
func fingerprint(infos []EntityInfo) uint64 {
	d := xxhash.New()
	var buf [8]byte
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}

	for _, e := range infos {
		putU64(uint64(e.Address))
		putU64(uint64(e.Tag))
		_, _ = d.WriteString(e.Name)
		for _, c := range e.Components {
			putU64(uint64(c.Address))
			flag := uint64(0)
			if c.Enabled {
				flag = 1
			}
			putU64(flag)
		}
	}
	return d.Sum64()
}

// Changed reports whether two snapshots differ structurally.
func (s *Snapshot) Changed(prev *Snapshot) bool {
	return prev == nil || prev.Fingerprint != s.Fingerprint
}
