// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package osproc provides access to the operating system's view of
// listening sockets and running processes.
package osproc

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned when the platform can not enumerate
	// sockets or processes. Callers are expected to degrade gracefully.
	ErrUnavailable = errors.New("process inspection unavailable")
	// ErrNotFound is returned when a pid does not refer to a live process.
	ErrNotFound = errors.New("process not found")
	// ErrTerminateFailed is returned when every termination method failed.
	ErrTerminateFailed = errors.New("terminate failed")
)

// An Inspector answers questions about OS process and port state.
//
// Implementations must not cache: every call reflects live state.
type Inspector interface {
	// ListenersOnPort returns the pids owning a listening TCP socket on
	// port, in the order reported by the OS. An empty result means the
	// port has no listener.
	ListenersOnPort(ctx context.Context, port int) ([]int, error)
	// WorkingDirectory returns the current directory of pid.
	WorkingDirectory(ctx context.Context, pid int) (string, error)
	// Terminate delivers a termination request to pid. It does not wait
	// for the process to exit.
	Terminate(ctx context.Context, pid int) error
}
