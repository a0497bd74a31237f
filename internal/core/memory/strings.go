package memory

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// DefaultMaxStringLength caps decoded strings when a format leaves MaxLength unset.
const DefaultMaxStringLength = 1024

const cstringChunk = 64

// StringEncoding selects how a foreign string is laid out.
type StringEncoding uint8

const (
	// EncodingCString is a NUL-terminated byte string.
	EncodingCString StringEncoding = iota
	// EncodingUTF16 is a managed string: an int32 character count followed by
	// little-endian UTF-16 code units.
	EncodingUTF16
)

func (e StringEncoding) String() string {
	switch e {
	case EncodingCString:
		return "cstring"
	case EncodingUTF16:
		return "utf16"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

func (e StringEncoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *StringEncoding) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "cstring", "c", "utf8":
		*e = EncodingCString
	case "utf16", "managed":
		*e = EncodingUTF16
	default:
		return fmt.Errorf("unknown string encoding %q", text)
	}
	return nil
}

// StringFormat describes a foreign string object.
type StringFormat struct {
	Encoding     StringEncoding `yaml:"encoding"`
	LengthOffset uint64         `yaml:"length_offset"`
	DataOffset   uint64         `yaml:"data_offset"`
	MaxLength    int            `yaml:"max_length"`
}

var (
	// CString reads native NUL-terminated names.
	CString = StringFormat{Encoding: EncodingCString, MaxLength: DefaultMaxStringLength}
	// ManagedString reads a runtime string object: length at +0x10, characters at +0x14.
	ManagedString = StringFormat{Encoding: EncodingUTF16, LengthOffset: 0x10, DataOffset: 0x14, MaxLength: DefaultMaxStringLength}
)

// ReadString decodes the string stored at addr. Decoded length is capped at
// f.MaxLength characters (bytes for C strings); longer strings are truncated.
func ReadString(r Reader, addr Address, f StringFormat) (string, error) {
	if r == nil {
		return "", ErrAccessorUnavailable
	}
	if addr.IsNull() {
		return "", fmt.Errorf("read string: %w", ErrNullPointer)
	}
	limit := f.MaxLength
	if limit <= 0 {
		limit = DefaultMaxStringLength
	}
	if f.Encoding == EncodingUTF16 {
		return readUTF16(r, addr, f, limit)
	}
	return readCString(r, addr, limit)
}

// ReadStringAt follows the pointer stored at ptrAddr and decodes the string it references.
func ReadStringAt(r Reader, ptrAddr Address, f StringFormat) (string, error) {
	p, err := FollowPointer(r, ptrAddr)
	if err != nil {
		return "", err
	}
	return ReadString(r, p, f)
}

func readUTF16(r Reader, addr Address, f StringFormat, limit int) (string, error) {
	n, err := ReadInt32(r, addr.Add(f.LengthOffset))
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", &BoundsError{What: "string length", Value: int64(n), Limit: int64(limit)}
	}
	if int(n) > limit {
		n = int32(limit)
	}
	if n == 0 {
		return "", nil
	}

	raw, err := ReadBytes(r, addr.Add(f.DataOffset), int(n)*2)
	if err != nil {
		return "", err
	}
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode utf16 at %s: %w", addr, err)
	}
	return string(decoded), nil
}

func readCString(r Reader, addr Address, limit int) (string, error) {
	out := make([]byte, 0, 32)
	chunk := make([]byte, cstringChunk)
	for len(out) < limit {
		buf := chunk[:min(cstringChunk, limit-len(out))]
		cur := addr.Add(uint64(len(out)))
		if err := ReadInto(r, cur, buf); err != nil {
			// A chunk can straddle into an unreadable page even when the
			// terminator sits before it.
			return readCStringSlow(r, cur, out, limit, err)
		}
		if i := bytes.IndexByte(buf, 0); i >= 0 {
			return string(append(out, buf[:i]...)), nil
		}
		out = append(out, buf...)
	}
	return string(out), nil
}

// readCStringSlow reads byte by byte from cur. Reaching an unreadable byte
// before the terminator is an error; the prefix is not a name.
func readCStringSlow(r Reader, cur Address, out []byte, limit int, cause error) (string, error) {
	var b [1]byte
	for len(out) < limit {
		if err := ReadInto(r, cur, b[:]); err != nil {
			if len(out) == 0 {
				return "", cause
			}
			return "", fmt.Errorf("unterminated string after %d bytes: %w", len(out), err)
		}
		if b[0] == 0 {
			break
		}
		out = append(out, b[0])
		cur++
	}
	return string(out), nil
}
