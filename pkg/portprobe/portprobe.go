// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package portprobe finds free ports and running servers in a port range.
package portprobe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/cactus/hopen/pkg/osproc"

	"github.com/cactus/mlog"
)

// ErrNoPortAvailable is returned when every port in a range is in use.
var ErrNoPortAvailable = errors.New("no available port")

// DefaultRange is the port range scanned when none is configured.
var DefaultRange = PortRange{Start: 8000, End: 8100}

// PortRange is an inclusive range of TCP ports, scanned in ascending order.
type PortRange struct {
	Start int
	End   int
}

// Validate checks that the range is non-empty and within 1-65535.
func (r PortRange) Validate() error {
	if r.Start < 1 || r.End > 65535 {
		return fmt.Errorf("port range %s out of bounds", r)
	}
	if r.Start > r.End {
		return fmt.Errorf("port range %s is empty", r)
	}
	return nil
}

func (r PortRange) String() string {
	return strconv.Itoa(r.Start) + "-" + strconv.Itoa(r.End)
}

// ServerHandle identifies a process listening on a port. It refers to
// external OS state and is only valid at the time it was observed.
type ServerHandle struct {
	PID  int
	Port int
}

// BindFunc reports whether binding port fails. It is the fallback used
// when the Inspector can not answer.
type BindFunc func(port int) bool

// Prober answers port questions using an osproc.Inspector, falling back to
// a bind attempt on loopback when the inspector is unavailable.
type Prober struct {
	inspector osproc.Inspector
	bindFails BindFunc
}

// New returns a Prober over inspector.
func New(inspector osproc.Inspector) *Prober {
	return &Prober{
		inspector: inspector,
		bindFails: bindFails,
	}
}

// SetBindFunc replaces the bind fallback.
func (p *Prober) SetBindFunc(f BindFunc) {
	p.bindFails = f
}

// IsPortBound reports whether a TCP listener exists on port.
func (p *Prober) IsPortBound(ctx context.Context, port int) bool {
	pids, err := p.inspector.ListenersOnPort(ctx, port)
	if err != nil {
		if mlog.HasDebug() {
			mlog.Debugm("listener lookup failed, trying bind", mlog.Map{"port": port, "err": err})
		}
		return p.bindFails(port)
	}
	return len(pids) > 0
}

// FindFreePort returns the lowest port in r that is not bound.
func (p *Prober) FindFreePort(ctx context.Context, r PortRange) (int, error) {
	for port := r.Start; port <= r.End; port++ {
		if !p.IsPortBound(ctx, port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("%w in range %s", ErrNoPortAvailable, r)
}

// FindExistingServer returns the lowest bound port in r whose owning
// process is known. Any listener counts: the owner need not be hopen.
func (p *Prober) FindExistingServer(ctx context.Context, r PortRange) (ServerHandle, bool) {
	for port := r.Start; port <= r.End; port++ {
		pids, err := p.inspector.ListenersOnPort(ctx, port)
		if err != nil {
			// without an inspector there is no way to learn the owner
			if mlog.HasDebug() {
				mlog.Debugm("listener lookup failed", mlog.Map{"port": port, "err": err})
			}
			continue
		}
		for _, pid := range pids {
			if pid > 0 {
				return ServerHandle{PID: pid, Port: port}, true
			}
		}
	}
	return ServerHandle{}, false
}

// ProcessWorkingDirectory returns the directory pid is running in, if the
// OS will say. A process exiting mid-query is reported as not found.
func (p *Prober) ProcessWorkingDirectory(ctx context.Context, pid int) (string, bool) {
	cwd, err := p.inspector.WorkingDirectory(ctx, pid)
	if err != nil {
		if mlog.HasDebug() {
			mlog.Debugm("working directory lookup failed", mlog.Map{"pid": pid, "err": err})
		}
		return "", false
	}
	return cwd, cwd != ""
}

func bindFails(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return true
	}
	// #nosec G104
	ln.Close()
	return false
}
