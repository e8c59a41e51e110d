// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/cactus/hopen/pkg/sitepath"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

// TestMain lets the test binary stand in for the hopen binary when it is
// launched in serve mode by Launcher.
func TestMain(m *testing.M) {
	if len(os.Args) == 6 && os.Args[1] == FlagServe {
		port, err := strconv.Atoi(os.Args[3])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		err = RunForeground(context.Background(), Config{Dir: os.Args[5], Port: port, ServerName: "hopen-test"})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func makeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	assert.NilError(t, os.MkdirAll(filepath.Join(dir, "blog"), 0o755))
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("home"), 0o644))
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "blog", "post.html"), []byte("post"), 0o644))
	return dir
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	assert.NilError(t, ln.Close())
	return port
}

func dialable(ctx context.Context, port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(LoopbackHost, strconv.Itoa(port)), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	assert.NilError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	assert.NilError(t, err)
	return resp.StatusCode, string(body)
}

func TestServeArgs(t *testing.T) {
	t.Parallel()
	args := ServeArgs(LaunchSpec{Dir: "/srv/site", Port: 8042})
	assert.Check(t, is.DeepEqual(
		[]string{"--internal-serve", "--internal-port", "8042", "--internal-dir", "/srv/site"},
		args,
	))
}

func TestLogPath(t *testing.T) {
	t.Parallel()
	assert.Check(t, is.Equal(filepath.Join("/tmp", "hopen-server-77.log"), LogPath("/tmp", 77)))
}

func TestRunServesUntilCancelled(t *testing.T) {
	t.Parallel()
	dir := makeSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Dir:        dir,
			ServerName: "hopen",
			MaxConns:   8,
			listening:  func(a net.Addr) { addrCh <- a },
		})
	}()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("server exited early: %s", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	code, body := get(t, "http://"+addr.String()+"/blog/post.html")
	assert.Check(t, is.Equal(http.StatusOK, code))
	assert.Check(t, is.Equal("post", body))

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestRunMissingDir(t *testing.T) {
	t.Parallel()
	err := Run(context.Background(), Config{Dir: filepath.Join(t.TempDir(), "missing")})
	assert.Check(t, is.ErrorContains(err, "missing"))
}

func TestRunPortInUse(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	defer ln.Close()

	err = Run(context.Background(), Config{Dir: makeSite(t), Port: ln.Addr().(*net.TCPAddr).Port})
	assert.Check(t, err != nil)
}

func killPid(pid int) {
	if p, err := os.FindProcess(pid); err == nil {
		p.Kill()
	}
}

func TestLaunchBackgroundRoundTrip(t *testing.T) {
	t.Parallel()
	dir := makeSite(t)
	port := freePort(t)
	logDir := t.TempDir()

	exe, err := os.Executable()
	assert.NilError(t, err)
	l := &Launcher{
		Executable:  exe,
		LogDir:      logDir,
		SettleDelay: 200 * time.Millisecond,
		IsBound: func(ctx context.Context, port int) bool {
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				if dialable(ctx, port) {
					return true
				}
				time.Sleep(50 * time.Millisecond)
			}
			return false
		},
	}

	m, err := sitepath.Resolve(dir, filepath.Join(dir, "blog"), "post.html")
	assert.NilError(t, err)

	h, err := l.Launch(context.Background(), LaunchSpec{Dir: m.ServedDir, Port: port})
	assert.NilError(t, err)
	defer killPid(h.PID)

	assert.Check(t, is.Equal(port, h.Port))
	assert.Check(t, is.Equal(LogPath(logDir, h.PID), h.LogPath))
	_, err = os.Stat(h.LogPath)
	assert.Check(t, err)

	code, body := get(t, m.URL(port))
	assert.Check(t, is.Equal(http.StatusOK, code))
	assert.Check(t, is.Equal("post", body))
}

func TestLaunchReportsStartupFailure(t *testing.T) {
	t.Parallel()
	exe, err := os.Executable()
	assert.NilError(t, err)
	l := &Launcher{
		Executable:  exe,
		LogDir:      t.TempDir(),
		SettleDelay: 10 * time.Millisecond,
		IsBound:     func(context.Context, int) bool { return false },
	}

	h, err := l.Launch(context.Background(), LaunchSpec{Dir: makeSite(t), Port: freePort(t)})
	assert.Assert(t, h != nil)
	defer killPid(h.PID)

	assert.Check(t, is.ErrorIs(err, ErrStartupFailed))
	var se *StartupError
	assert.Assert(t, is.ErrorType(err, se))
	assert.Check(t, is.ErrorContains(err, h.LogPath))
}

func TestLaunchMissingExecutable(t *testing.T) {
	t.Parallel()
	logDir := t.TempDir()
	l := &Launcher{
		Executable: filepath.Join(logDir, "no-such-binary"),
		LogDir:     logDir,
	}

	_, err := l.Launch(context.Background(), LaunchSpec{Dir: logDir, Port: 1})
	assert.Check(t, is.ErrorContains(err, "starting background server"))

	entries, err := os.ReadDir(logDir)
	assert.NilError(t, err)
	assert.Check(t, is.Len(entries, 0), "temporary log file should be removed")
}
