// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package osproc

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/cactus/mlog"
	"github.com/shirou/gopsutil/v4/process"
)

// KillFunc delivers a kill to pid.
type KillFunc func(ctx context.Context, pid int) error

// Terminator kills a process, first through the process table and then,
// if that fails, through the platform's external kill command.
type Terminator struct {
	Direct  KillFunc
	Command KillFunc
}

// NewTerminator returns a Terminator using gopsutil for the direct kill
// and the platform kill command as the fallback.
func NewTerminator() *Terminator {
	return &Terminator{
		Direct:  directKill,
		Command: commandKill,
	}
}

// Terminate kills pid. It is fire-and-forget: success means the kill was
// delivered, not that the process is gone.
func (t *Terminator) Terminate(ctx context.Context, pid int) error {
	if pid <= 0 {
		return fmt.Errorf("%w: invalid pid %d", ErrTerminateFailed, pid)
	}

	var derr error
	if t.Direct != nil {
		derr = t.Direct(ctx, pid)
		if derr == nil {
			return nil
		}
		if mlog.HasDebug() {
			mlog.Debugm("direct kill failed, falling back", mlog.Map{"pid": pid, "err": derr})
		}
	}

	if t.Command == nil {
		return fmt.Errorf("%w: pid %d: %w", ErrTerminateFailed, pid, derr)
	}

	cerr := t.Command(ctx, pid)
	if cerr == nil {
		return nil
	}
	return fmt.Errorf("%w: pid %d: %w", ErrTerminateFailed, pid, errors.Join(derr, cerr))
}

func directKill(ctx context.Context, pid int) error {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return fmt.Errorf("%w: pid %d", ErrNotFound, pid)
		}
		return err
	}
	return p.KillWithContext(ctx)
}

func commandKill(ctx context.Context, pid int) error {
	name, args := killCommand(strconv.Itoa(pid))
	// #nosec G204 -- command name is fixed per platform, pid is an int
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w (%s)", name, args, err, out)
	}
	return nil
}
