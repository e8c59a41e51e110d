// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build !windows

package server

import (
	"os/exec"
	"syscall"
)

// detach starts cmd in a new session, away from the terminal's process
// group and its signals.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
