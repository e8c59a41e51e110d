// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package osproctest provides an in-memory osproc.Inspector for tests.
package osproctest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cactus/hopen/pkg/osproc"
)

// Table is a fake process and port table. The zero value is empty and
// ready to use.
type Table struct {
	mu        sync.Mutex
	listeners map[int][]int
	cwds      map[int]string
	// Unavailable makes ListenersOnPort fail with osproc.ErrUnavailable.
	Unavailable bool
	// TerminateErr, when set, is returned by Terminate instead of killing.
	TerminateErr error
	// KeepPortsOnTerminate leaves a killed process's ports bound, to model
	// a kill that was delivered but not yet acted upon.
	KeepPortsOnTerminate bool

	terminated []int
	queries    int
}

var _ osproc.Inspector = (*Table)(nil)

// Listen records pid as listening on port, with cwd as its directory.
func (t *Table) Listen(pid, port int, cwd string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listeners == nil {
		t.listeners = make(map[int][]int)
		t.cwds = make(map[int]string)
	}
	t.listeners[port] = append(t.listeners[port], pid)
	if cwd != "" {
		t.cwds[pid] = cwd
	}
}

// Release removes every listener on port.
func (t *Table) Release(port int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.listeners, port)
}

// Terminated returns the pids Terminate was called with, in call order.
func (t *Table) Terminated() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.terminated...)
}

// Queries returns how many times ListenersOnPort was called.
func (t *Table) Queries() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queries
}

// Ports returns the bound ports in ascending order.
func (t *Table) Ports() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	ports := make([]int, 0, len(t.listeners))
	for p := range t.listeners {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}

func (t *Table) ListenersOnPort(ctx context.Context, port int) ([]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queries++
	if t.Unavailable {
		return nil, osproc.ErrUnavailable
	}
	return append([]int(nil), t.listeners[port]...), nil
}

func (t *Table) WorkingDirectory(ctx context.Context, pid int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cwd, ok := t.cwds[pid]
	if !ok {
		return "", fmt.Errorf("%w: pid %d", osproc.ErrNotFound, pid)
	}
	return cwd, nil
}

func (t *Table) Terminate(ctx context.Context, pid int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.terminated = append(t.terminated, pid)
	if t.TerminateErr != nil {
		return t.TerminateErr
	}
	if t.KeepPortsOnTerminate {
		return nil
	}
	for port, pids := range t.listeners {
		kept := pids[:0]
		for _, p := range pids {
			if p != pid {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(t.listeners, port)
		} else {
			t.listeners[port] = kept
		}
	}
	delete(t.cwds, pid)
	return nil
}
