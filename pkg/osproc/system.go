// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package osproc

import (
	"context"
	"errors"
	"fmt"

	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// System is the Inspector backed by the host operating system.
type System struct {
	terminator *Terminator
}

// NewSystem returns an Inspector for the running host.
func NewSystem() *System {
	return &System{terminator: NewTerminator()}
}

// ListenersOnPort returns the pids listening on TCP port, over both IPv4
// and IPv6. A pid of 0 is reported for a listener whose owner the OS would
// not disclose (for example a socket owned by another user).
func (s *System) ListenersOnPort(ctx context.Context, port int) ([]int, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	seen := make(map[int]bool)
	pids := make([]int, 0)
	for _, c := range conns {
		if c.Status != "LISTEN" || int(c.Laddr.Port) != port {
			continue
		}
		pid := int(c.Pid)
		if seen[pid] {
			continue
		}
		seen[pid] = true
		pids = append(pids, pid)
	}
	return pids, nil
}

// WorkingDirectory returns the current directory of pid.
func (s *System) WorkingDirectory(ctx context.Context, pid int) (string, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return "", fmt.Errorf("%w: pid %d", ErrNotFound, pid)
		}
		return "", err
	}
	cwd, err := p.CwdWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return cwd, nil
}

// Terminate kills pid, see Terminator.
func (s *System) Terminate(ctx context.Context, pid int) error {
	return s.terminator.Terminate(ctx, pid)
}
