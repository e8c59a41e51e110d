// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cactus/mlog"
)

// Flags understood by the serve mode of the hopen binary. A daemon child
// is started with exactly these; see ServeArgs.
const (
	FlagServe = "--internal-serve"
	FlagPort  = "--internal-port"
	FlagDir   = "--internal-dir"
)

// DefaultSettleDelay is how long a freshly spawned server is given to bind
// its port before startup is verified.
const DefaultSettleDelay = 500 * time.Millisecond

// ErrStartupFailed is returned when a background server did not bind its
// port in time.
var ErrStartupFailed = errors.New("server failed to start")

// StartupError reports a failed background start along with the log file
// holding the child's output.
type StartupError struct {
	PID     int
	Port    int
	LogPath string
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("server (pid %d) did not bind port %d, see %s", e.PID, e.Port, e.LogPath)
}

func (e *StartupError) Unwrap() error {
	return ErrStartupFailed
}

// LaunchSpec describes a background server to start.
type LaunchSpec struct {
	Dir  string
	Port int
}

// Handle identifies a launched background server.
type Handle struct {
	PID     int
	Port    int
	LogPath string
}

// ServeArgs returns the command line arguments that make the hopen binary
// serve spec in the foreground.
func ServeArgs(spec LaunchSpec) []string {
	return []string{
		FlagServe,
		FlagPort, strconv.Itoa(spec.Port),
		FlagDir, spec.Dir,
	}
}

// LogPath returns the log file path used for the daemon with pid.
func LogPath(dir string, pid int) string {
	return filepath.Join(dir, "hopen-server-"+strconv.Itoa(pid)+".log")
}

// Launcher starts detached copies of an executable in serve mode.
//
// The child gets ServeArgs, a null stdin, and stdout/stderr redirected to
// a log file named after its own pid. It runs in its own session so it
// outlives the launching process.
type Launcher struct {
	// Executable to run. Defaults to os.Executable().
	Executable string
	// LogDir holds the per-pid log files. Defaults to os.TempDir().
	LogDir string
	// SettleDelay before checking the port. Defaults to DefaultSettleDelay.
	SettleDelay time.Duration
	// IsBound reports whether the child has bound its port.
	IsBound func(ctx context.Context, port int) bool
}

// Launch starts a background server for spec and verifies that it bound
// its port after the settle delay.
func (l *Launcher) Launch(ctx context.Context, spec LaunchSpec) (*Handle, error) {
	exe := l.Executable
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating executable: %w", err)
		}
	}
	logDir := l.LogDir
	if logDir == "" {
		logDir = os.TempDir()
	}

	// the final name needs the child's pid, so start under a temp name
	logFile, err := os.CreateTemp(logDir, "hopen-server-*.log")
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	tmpPath := logFile.Name()

	// #nosec G204 -- exe is our own binary
	cmd := exec.Command(exe, ServeArgs(spec)...)
	cmd.Dir = spec.Dir
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	detach(cmd)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("starting background server: %w", err)
	}
	// the child holds its own descriptor
	logFile.Close()

	h := &Handle{
		PID:     cmd.Process.Pid,
		Port:    spec.Port,
		LogPath: LogPath(logDir, cmd.Process.Pid),
	}
	if err := os.Rename(tmpPath, h.LogPath); err != nil {
		mlog.Printm("could not rename log file", mlog.Map{"from": tmpPath, "err": err})
		h.LogPath = tmpPath
	}

	// #nosec G104
	cmd.Process.Release()

	if mlog.HasDebug() {
		mlog.Debugm("spawned background server", mlog.Map{
			"pid": h.PID, "port": h.Port, "dir": spec.Dir, "log": h.LogPath,
		})
	}

	delay := l.SettleDelay
	if delay == 0 {
		delay = DefaultSettleDelay
	}
	select {
	case <-ctx.Done():
		return h, ctx.Err()
	case <-time.After(delay):
	}

	if l.IsBound == nil || !l.IsBound(ctx, spec.Port) {
		return h, &StartupError{PID: h.PID, Port: h.Port, LogPath: h.LogPath}
	}
	return h, nil
}
