// Package procmem reads and writes another local process's memory.
package procmem

import (
	"errors"

	"github.com/zeusync/scenewalk/internal/core/memory"
)

var (
	ErrUnsupportedPlatform = errors.New("process memory access unsupported on this platform")
	ErrInvalidPID          = errors.New("invalid process id")
)

var _ memory.Accessor = (*Process)(nil)
