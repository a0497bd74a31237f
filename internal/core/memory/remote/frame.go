// Package remote serves and consumes foreign memory over a websocket or QUIC.
//
// The server side wraps a local memory.Reader (usually a process backend) and
// answers read requests; it never writes. The client side is a memory.Reader
// that turns every Read into one request/response round trip, so a walker on
// one machine can inspect a target running on another.
//
// Frames are binary websocket messages, or the whole payload of one QUIC
// stream direction, little-endian:
//
//	request:  id uint32 | size uint32 | addr uint64
//	response: id uint32 | status uint8 | data [size]byte (status OK only)
package remote

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeusync/scenewalk/internal/core/memory"
)

const (
	requestSize        = 16
	responseHeaderSize = 5

	// DefaultMaxRead bounds a single request.
	DefaultMaxRead = 1 << 20
)

type status uint8

const (
	statusOK status = iota
	statusReadFailed
	statusTooLarge
	statusBadRequest
)

func (s status) String() string {
	switch s {
	case statusOK:
		return "ok"
	case statusReadFailed:
		return "read failed"
	case statusTooLarge:
		return "request too large"
	case statusBadRequest:
		return "bad request"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

var (
	ErrClosed       = errors.New("remote memory connection closed")
	ErrTimeout      = errors.New("remote read timed out")
	ErrBadFrame     = errors.New("malformed remote memory frame")
	ErrRemoteFailed = errors.New("remote side rejected read")
)

type request struct {
	id   uint32
	size uint32
	addr memory.Address
}

func (r request) encode() []byte {
	b := make([]byte, requestSize)
	binary.LittleEndian.PutUint32(b[0:], r.id)
	binary.LittleEndian.PutUint32(b[4:], r.size)
	binary.LittleEndian.PutUint64(b[8:], uint64(r.addr))
	return b
}

func decodeRequest(b []byte) (request, error) {
	if len(b) != requestSize {
		return request{}, fmt.Errorf("%w: request of %d bytes", ErrBadFrame, len(b))
	}
	return request{
		id:   binary.LittleEndian.Uint32(b[0:]),
		size: binary.LittleEndian.Uint32(b[4:]),
		addr: memory.Address(binary.LittleEndian.Uint64(b[8:])),
	}, nil
}

type response struct {
	id     uint32
	status status
	data   []byte
}

func (r response) encode() []byte {
	b := make([]byte, responseHeaderSize+len(r.data))
	binary.LittleEndian.PutUint32(b[0:], r.id)
	b[4] = byte(r.status)
	copy(b[responseHeaderSize:], r.data)
	return b
}

func decodeResponse(b []byte) (response, error) {
	if len(b) < responseHeaderSize {
		return response{}, fmt.Errorf("%w: response of %d bytes", ErrBadFrame, len(b))
	}
	return response{
		id:     binary.LittleEndian.Uint32(b[0:]),
		status: status(b[4]),
		data:   b[responseHeaderSize:],
	}, nil
}
