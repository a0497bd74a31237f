// Package identity recovers the runtime type name of a managed object.
package identity

import (
	"errors"
	"fmt"

	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
)

// RuntimeKind names the managed runtime flavour hosted by the target.
type RuntimeKind uint8

const (
	RuntimeUnknown RuntimeKind = iota
	RuntimeMono
	RuntimeIL2CPP
)

func (k RuntimeKind) String() string {
	switch k {
	case RuntimeMono:
		return "mono"
	case RuntimeIL2CPP:
		return "il2cpp"
	default:
		return "unknown"
	}
}

// TypeInfo is what a runtime bridge knows about a managed object's class.
type TypeInfo struct {
	Name      string
	Namespace string
}

// Bridge is the managed-runtime reflection collaborator. It is consulted when
// the fixed vtable chase fails.
type Bridge interface {
	TypeInfo(kind RuntimeKind, r memory.Reader, managed memory.Address) (TypeInfo, error)
}

// BridgeFunc adapts a function to Bridge.
type BridgeFunc func(kind RuntimeKind, r memory.Reader, managed memory.Address) (TypeInfo, error)

func (f BridgeFunc) TypeInfo(kind RuntimeKind, r memory.Reader, managed memory.Address) (TypeInfo, error) {
	return f(kind, r, managed)
}

// Resolver chases managed → vtable → class → name pointer → string.
// It keeps no cache; a name is valid only while the object is alive.
type Resolver struct {
	mem    memory.Reader
	layout *layout.Layout
	bridge Bridge
	kind   RuntimeKind
	log    log.Log
}

type Option func(*Resolver)

func WithBridge(kind RuntimeKind, b Bridge) Option {
	return func(r *Resolver) {
		r.kind = kind
		r.bridge = b
	}
}

func WithLogger(l log.Log) Option {
	return func(r *Resolver) { r.log = l }
}

func NewResolver(mem memory.Reader, lay *layout.Layout, opts ...Option) *Resolver {
	r := &Resolver{mem: mem, layout: lay, log: log.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TypeName resolves the class name of the managed object at managed.
func (r *Resolver) TypeName(managed memory.Address) (string, error) {
	name, err := r.chase(managed)
	if err == nil {
		return name, nil
	}
	if r.bridge == nil || managed.IsNull() {
		return "", err
	}

	info, bridgeErr := r.bridge.TypeInfo(r.kind, r.mem, managed)
	if bridgeErr != nil {
		return "", errors.Join(err, fmt.Errorf("bridge: %w", bridgeErr))
	}
	if info.Name == "" {
		return "", err
	}
	r.log.Debug("type name resolved through bridge",
		log.Hex("managed", uint64(managed)), log.String("runtime", r.kind.String()))
	return info.Name, nil
}

func (r *Resolver) chase(managed memory.Address) (string, error) {
	if managed.IsNull() {
		return "", fmt.Errorf("type name: %w", memory.ErrNullPointer)
	}
	m := r.layout.Managed

	vtable, err := memory.FollowPointer(r.mem, managed.Add(m.VTable))
	if err != nil {
		return "", fmt.Errorf("vtable of %s: %w", managed, err)
	}
	class, err := memory.FollowPointer(r.mem, vtable.Add(m.Class))
	if err != nil {
		return "", fmt.Errorf("class of %s: %w", managed, err)
	}
	name, err := memory.ReadStringAt(r.mem, class.Add(m.ClassName), r.layout.Strings.ClassName)
	if err != nil {
		return "", fmt.Errorf("class name of %s: %w", managed, err)
	}
	return name, nil
}

// Is reports whether managed resolves to exactly typeName. Resolution
// failures count as a mismatch.
func (r *Resolver) Is(managed memory.Address, typeName string) bool {
	name, err := r.TypeName(managed)
	return err == nil && name == typeName
}

// EntityFilter returns a bucket classifier that accepts a payload when the
// managed counterpart of that entity resolves to one of names.
func (r *Resolver) EntityFilter(names ...string) func(payload memory.Address) bool {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(payload memory.Address) bool {
		managed, err := memory.ReadPointer(r.mem, payload.Add(r.layout.Entity.Managed))
		if err != nil || managed.IsNull() {
			return false
		}
		name, err := r.TypeName(managed)
		if err != nil {
			return false
		}
		_, ok := set[name]
		return ok
	}
}
