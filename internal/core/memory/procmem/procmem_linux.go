//go:build linux

package procmem

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/zeusync/scenewalk/internal/core/memory"
)

// Process transfers bytes with process_vm_readv/process_vm_writev. The caller
// needs ptrace access to the target (same uid with a permissive
// yama/ptrace_scope, or CAP_SYS_PTRACE).
type Process struct {
	pid int
}

func Open(pid int) (*Process, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}
	if err := unix.Kill(pid, 0); err != nil && err != unix.EPERM {
		return nil, fmt.Errorf("inspect process %d: %w", pid, err)
	}
	return &Process{pid: pid}, nil
}

func (p *Process) PID() int {
	return p.pid
}

func (p *Process) Read(addr memory.Address, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	local := []unix.Iovec{{Base: &buf[0]}}
	local[0].SetLen(len(buf))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(buf)}}

	n, err := unix.ProcessVMReadv(p.pid, local, remote, 0)
	if err != nil {
		return n, fmt.Errorf("process_vm_readv pid %d at %s: %w", p.pid, addr, err)
	}
	return n, nil
}

func (p *Process) Write(addr memory.Address, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	local := []unix.Iovec{{Base: &buf[0]}}
	local[0].SetLen(len(buf))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(buf)}}

	n, err := unix.ProcessVMWritev(p.pid, local, remote, 0)
	if err != nil {
		return n, fmt.Errorf("process_vm_writev pid %d at %s: %w", p.pid, addr, err)
	}
	return n, nil
}

func (p *Process) Close() error {
	return nil
}
