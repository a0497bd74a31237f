package memory

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ReadInto fills buf from addr. It fails unless exactly len(buf) bytes moved.
func ReadInto(r Reader, addr Address, buf []byte) error {
	if r == nil {
		return ErrAccessorUnavailable
	}
	if addr.IsNull() {
		return fmt.Errorf("read %d bytes: %w", len(buf), ErrNullPointer)
	}
	if len(buf) == 0 {
		return nil
	}
	n, err := r.Read(addr, buf)
	if err != nil || n != len(buf) {
		return &ReadError{Addr: addr, Size: len(buf), Moved: n, Err: err}
	}
	return nil
}

// ReadBytes reads size bytes starting at addr.
func ReadBytes(r Reader, addr Address, size int) ([]byte, error) {
	if size < 0 {
		return nil, &BoundsError{What: "read size", Value: int64(size), Limit: math.MaxInt32}
	}
	buf := make([]byte, size)
	if err := ReadInto(r, addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadValue decodes one little-endian fixed-size value of type T at addr.
// T may be any type encoding/binary can size: scalars, arrays, plain structs.
func ReadValue[T any](r Reader, addr Address) (T, error) {
	var v T
	size := binary.Size(v)
	if size <= 0 {
		return v, fmt.Errorf("read %T: type has no fixed size", v)
	}
	buf := make([]byte, size)
	if err := ReadInto(r, addr, buf); err != nil {
		return v, err
	}
	if _, err := binary.Decode(buf, binary.LittleEndian, &v); err != nil {
		return v, fmt.Errorf("decode %T at %s: %w", v, addr, err)
	}
	return v, nil
}

// ReadPointer reads a 64-bit foreign pointer.
func ReadPointer(r Reader, addr Address) (Address, error) {
	var buf [8]byte
	if err := ReadInto(r, addr, buf[:]); err != nil {
		return 0, err
	}
	return Address(binary.LittleEndian.Uint64(buf[:])), nil
}

// FollowPointer reads a pointer and fails with ErrNullPointer when it is zero.
func FollowPointer(r Reader, addr Address) (Address, error) {
	p, err := ReadPointer(r, addr)
	if err != nil {
		return 0, err
	}
	if p.IsNull() {
		return 0, fmt.Errorf("pointer at %s: %w", addr, ErrNullPointer)
	}
	return p, nil
}

func ReadInt32(r Reader, addr Address) (int32, error) {
	var buf [4]byte
	if err := ReadInto(r, addr, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func ReadUint16(r Reader, addr Address) (uint16, error) {
	var buf [2]byte
	if err := ReadInto(r, addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func ReadUint8(r Reader, addr Address) (uint8, error) {
	var buf [1]byte
	if err := ReadInto(r, addr, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadFloat32s reads n contiguous little-endian float32 values.
func ReadFloat32s(r Reader, addr Address, n int) ([]float32, error) {
	raw, err := ReadBytes(r, addr, n*4)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}
