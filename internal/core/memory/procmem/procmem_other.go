//go:build !linux

package procmem

import "github.com/zeusync/scenewalk/internal/core/memory"

type Process struct {
	pid int
}

func Open(pid int) (*Process, error) {
	return nil, ErrUnsupportedPlatform
}

func (p *Process) PID() int {
	return p.pid
}

func (p *Process) Read(memory.Address, []byte) (int, error) {
	return 0, ErrUnsupportedPlatform
}

func (p *Process) Write(memory.Address, []byte) (int, error) {
	return 0, ErrUnsupportedPlatform
}

func (p *Process) Close() error {
	return nil
}
