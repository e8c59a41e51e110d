// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package osproc

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func countingKill(calls *int, err error) KillFunc {
	return func(ctx context.Context, pid int) error {
		*calls++
		return err
	}
}

func TestTerminateDirectSucceeds(t *testing.T) {
	t.Parallel()
	var direct, command int
	term := &Terminator{
		Direct:  countingKill(&direct, nil),
		Command: countingKill(&command, nil),
	}

	err := term.Terminate(context.Background(), 4242)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(1, direct))
	assert.Check(t, is.Equal(0, command), "fallback should not run")
}

func TestTerminateFallsBackToCommand(t *testing.T) {
	t.Parallel()
	var direct, command int
	term := &Terminator{
		Direct:  countingKill(&direct, ErrNotFound),
		Command: countingKill(&command, nil),
	}

	err := term.Terminate(context.Background(), 4242)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(1, direct))
	assert.Check(t, is.Equal(1, command))
}

func TestTerminateBothFail(t *testing.T) {
	t.Parallel()
	cmdErr := errors.New("kill: no such process")
	var direct, command int
	term := &Terminator{
		Direct:  countingKill(&direct, ErrNotFound),
		Command: countingKill(&command, cmdErr),
	}

	err := term.Terminate(context.Background(), 4242)
	assert.Check(t, is.ErrorIs(err, ErrTerminateFailed))
	assert.Check(t, is.ErrorIs(err, ErrNotFound))
	assert.Check(t, is.ErrorIs(err, cmdErr))
}

func TestTerminateInvalidPid(t *testing.T) {
	t.Parallel()
	var direct int
	term := &Terminator{Direct: countingKill(&direct, nil)}

	err := term.Terminate(context.Background(), 0)
	assert.Check(t, is.ErrorIs(err, ErrTerminateFailed))
	assert.Check(t, is.Equal(0, direct))
}

func TestKillCommandUsesForcefulSignal(t *testing.T) {
	t.Parallel()
	name, args := killCommand("99")
	assert.Check(t, name != "")
	assert.Check(t, is.Contains(args, "99"))
}
