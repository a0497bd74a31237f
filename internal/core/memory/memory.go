// Package memory provides typed, bounds-checked reads of a foreign process's
// address space through an injected accessor.
//
// Nothing in this package dereferences foreign addresses locally. Every byte is
// fetched through a Reader, and a read only counts when the full requested size
// was transferred.
package memory

import (
	"fmt"
	"strconv"
	"strings"
)

// Address is a location in the foreign process. Zero means absent.
type Address uint64

// IsNull reports whether the address is the absent marker.
func (a Address) IsNull() bool {
	return a == 0
}

// Add offsets the address by off bytes.
func (a Address) Add(off uint64) Address {
	return a + Address(off)
}

func (a Address) String() string {
	return "0x" + strconv.FormatUint(uint64(a), 16)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	v, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAddress accepts decimal or 0x-prefixed hexadecimal.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("parse address %q: %w", s, err)
	}
	return Address(v), nil
}

// Reader transfers bytes out of the foreign process. Implementations return the
// number of bytes copied into buf; anything short of len(buf) is a failure.
type Reader interface {
	Read(addr Address, buf []byte) (int, error)
}

// Writer transfers bytes into the foreign process. The inspection core never
// calls it; it exists so backends can expose the full accessor contract.
type Writer interface {
	Write(addr Address, buf []byte) (int, error)
}

// Accessor is the full read/write backend contract.
type Accessor interface {
	Reader
	Writer
}
