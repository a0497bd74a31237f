// Package sim provides an in-process stand-in for a foreign address space.
//
// An Image is a sparse set of 4 KiB pages. Pages are mapped on first write,
// and can be protected to make reads fail the way an inaccessible page of a
// live target would.
package sim

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"unicode/utf16"

	"github.com/zeusync/scenewalk/internal/core/memory"
)

const PageSize = 0x1000

var (
	ErrUnmapped  = errors.New("page not mapped")
	ErrProtected = errors.New("page protected")
)

var _ memory.Accessor = (*Image)(nil)

// ReadRecord is one traced read.
type ReadRecord struct {
	Addr memory.Address
	Size int
}

type Image struct {
	mu        sync.RWMutex
	pages     map[uint64][]byte
	protected map[uint64]struct{}

	reads atomic.Uint64

	traceMu sync.Mutex
	tracing bool
	trace   []ReadRecord

	next memory.Address
}

func New() *Image {
	return &Image{
		pages:     make(map[uint64][]byte),
		protected: make(map[uint64]struct{}),
		next:      0x10000000,
	}
}

// Read copies from mapped, unprotected pages. The transfer stops at the first
// page that is missing or protected.
func (m *Image) Read(addr memory.Address, buf []byte) (int, error) {
	m.reads.Add(1)
	m.record(addr, len(buf))

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for n < len(buf) {
		cur := uint64(addr) + uint64(n)
		page := cur / PageSize
		if _, ok := m.protected[page]; ok {
			return n, ErrProtected
		}
		data, ok := m.pages[page]
		if !ok {
			return n, ErrUnmapped
		}
		n += copy(buf[n:], data[cur%PageSize:])
	}
	return n, nil
}

// Write maps pages on demand. Protection only affects reads.
func (m *Image) Write(addr memory.Address, buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for n < len(buf) {
		cur := uint64(addr) + uint64(n)
		n += copy(m.pageLocked(cur/PageSize)[cur%PageSize:], buf[n:])
	}
	return n, nil
}

func (m *Image) pageLocked(page uint64) []byte {
	data, ok := m.pages[page]
	if !ok {
		data = make([]byte, PageSize)
		m.pages[page] = data
	}
	return data
}

// Map makes [addr, addr+size) readable, zero-filled where not yet written.
func (m *Image) Map(addr memory.Address, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for page := uint64(addr) / PageSize; page <= (uint64(addr)+uint64(size)-1)/PageSize; page++ {
		m.pageLocked(page)
	}
}

// Protect makes every page overlapping [addr, addr+size) unreadable.
func (m *Image) Protect(addr memory.Address, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for page := uint64(addr) / PageSize; page <= (uint64(addr)+uint64(size)-1)/PageSize; page++ {
		m.protected[page] = struct{}{}
	}
}

func (m *Image) Unprotect(addr memory.Address, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for page := uint64(addr) / PageSize; page <= (uint64(addr)+uint64(size)-1)/PageSize; page++ {
		delete(m.protected, page)
	}
}

// Alloc reserves size bytes aligned to 16 and maps them.
func (m *Image) Alloc(size int) memory.Address {
	m.mu.Lock()
	addr := m.next
	m.next = (addr + memory.Address(size) + 15) &^ 15
	m.mu.Unlock()

	m.Map(addr, max(size, 1))
	return addr
}

// AllocPage reserves a whole page for one object.
func (m *Image) AllocPage() memory.Address {
	m.mu.Lock()
	addr := (m.next + PageSize - 1) &^ (PageSize - 1)
	m.next = addr + PageSize
	m.mu.Unlock()

	m.Map(addr, PageSize)
	return addr
}

// Reads returns how many Read calls the image served.
func (m *Image) Reads() uint64 {
	return m.reads.Load()
}

// Trace starts recording every read. It also clears earlier records.
func (m *Image) Trace() {
	m.traceMu.Lock()
	defer m.traceMu.Unlock()
	m.tracing = true
	m.trace = m.trace[:0]
}

// Traced returns the reads recorded since Trace.
func (m *Image) Traced() []ReadRecord {
	m.traceMu.Lock()
	defer m.traceMu.Unlock()
	return append([]ReadRecord(nil), m.trace...)
}

// Touched reports whether any traced read overlapped [lo, hi).
func (m *Image) Touched(lo, hi memory.Address) bool {
	for _, rec := range m.Traced() {
		end := rec.Addr + memory.Address(rec.Size)
		if rec.Addr < hi && end > lo {
			return true
		}
	}
	return false
}

func (m *Image) record(addr memory.Address, size int) {
	m.traceMu.Lock()
	if m.tracing {
		m.trace = append(m.trace, ReadRecord{Addr: addr, Size: size})
	}
	m.traceMu.Unlock()
}

func (m *Image) PutBytes(addr memory.Address, b []byte) {
	_, _ = m.Write(addr, b)
}

func (m *Image) PutPointer(addr, value memory.Address) {
	m.PutUint64(addr, uint64(value))
}

func (m *Image) PutUint64(addr memory.Address, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	m.PutBytes(addr, b[:])
}

func (m *Image) PutInt32(addr memory.Address, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	m.PutBytes(addr, b[:])
}

func (m *Image) PutUint16(addr memory.Address, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	m.PutBytes(addr, b[:])
}

func (m *Image) PutUint8(addr memory.Address, v uint8) {
	m.PutBytes(addr, []byte{v})
}

func (m *Image) PutFloat32s(addr memory.Address, vs []float32) {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	m.PutBytes(addr, b)
}

// PutCString stores s followed by a NUL terminator.
func (m *Image) PutCString(addr memory.Address, s string) {
	m.PutBytes(addr, append([]byte(s), 0))
}

// PutManagedString stores s in the ManagedString layout: length at +0x10,
// UTF-16LE characters at +0x14.
func (m *Image) PutManagedString(addr memory.Address, s string) {
	units := utf16.Encode([]rune(s))
	m.PutInt32(addr.Add(memory.ManagedString.LengthOffset), int32(len(units)))
	b := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	m.PutBytes(addr.Add(memory.ManagedString.DataOffset), b)
}

// NewCString allocates and writes a C string, returning its address.
func (m *Image) NewCString(s string) memory.Address {
	addr := m.Alloc(len(s) + 1)
	m.PutCString(addr, s)
	return addr
}
