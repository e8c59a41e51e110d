// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package lifecycle decides, on each invocation, whether to reuse, stop,
// replace or start a local HTML server.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cactus/hopen/pkg/console"
	"github.com/cactus/hopen/pkg/menu"
	"github.com/cactus/hopen/pkg/portprobe"
	"github.com/cactus/hopen/pkg/server"
	"github.com/cactus/hopen/pkg/sitepath"

	"github.com/cactus/mlog"
)

// DefaultBrowserDelay is how long a foreground run waits before opening the
// browser, giving the server time to bind.
const DefaultBrowserDelay = 300 * time.Millisecond

// releaseChecks bounds how many settle periods a restart waits for the old
// server's port to be released.
const releaseChecks = 4

// Menu choices for an existing server.
const (
	choiceOpen = iota
	choiceQuit
	choiceRestart
	choiceCancel
)

// Menu choices when no server is running.
const (
	choiceBackground = iota
	choiceForeground
	choiceCancelStart
)

var (
	existingChoices = []string{
		"Open in browser",
		"Quit the existing server",
		"Quit and restart here",
		"Cancel",
	}
	startChoices = []string{
		"Start server in background",
		"Start server in foreground",
		"Cancel",
	}
)

// Prober answers questions about ports in use.
type Prober interface {
	IsPortBound(ctx context.Context, port int) bool
	FindFreePort(ctx context.Context, r portprobe.PortRange) (int, error)
	FindExistingServer(ctx context.Context, r portprobe.PortRange) (portprobe.ServerHandle, bool)
	ProcessWorkingDirectory(ctx context.Context, pid int) (string, bool)
}

// Terminator forcefully stops a process.
type Terminator interface {
	Terminate(ctx context.Context, pid int) error
}

// Launcher starts a detached background server.
type Launcher interface {
	Launch(ctx context.Context, spec server.LaunchSpec) (*server.Handle, error)
}

// Chooser asks the user to pick one of options.
type Chooser interface {
	Choose(title string, options []string) (int, error)
}

// Browser opens a URL in the user's browser.
type Browser interface {
	Open(url string) error
}

// BrowserFunc adapts a function to Browser.
type BrowserFunc func(url string) error

// Open calls f(url).
func (f BrowserFunc) Open(url string) error {
	return f(url)
}

// ForegroundFunc serves dir on port until interrupted.
type ForegroundFunc func(ctx context.Context, dir string, port int) error

// Options are the per-invocation settings.
type Options struct {
	// Filename to open, relative to CurrentDir. Needs SiteRoot.
	Filename string
	// SiteRoot, if set, is served instead of CurrentDir.
	SiteRoot string
	// CurrentDir is the caller's working directory.
	CurrentDir string

	Exit       bool
	Foreground bool
	Menu       bool
	Prompt     bool
	Verbose    bool

	// Ports to scan. Defaults to portprobe.DefaultRange.
	Ports portprobe.PortRange
	// SettleDelay between stopping a server and probing its port.
	// Defaults to server.DefaultSettleDelay.
	SettleDelay time.Duration
	// BrowserDelay before a foreground run opens the browser.
	// Defaults to DefaultBrowserDelay.
	BrowserDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.Ports == (portprobe.PortRange{}) {
		o.Ports = portprobe.DefaultRange
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = server.DefaultSettleDelay
	}
	if o.BrowserDelay <= 0 {
		o.BrowserDelay = DefaultBrowserDelay
	}
}

// Controller runs one invocation of the lifecycle state machine.
type Controller struct {
	Prober     Prober
	Terminator Terminator
	Launcher   Launcher
	Foreground ForegroundFunc
	Browser    Browser
	Menu       Chooser
	Console    *console.Console

	// OnTransition, if set, is called on every state change.
	OnTransition func(from, to State)
	// AfterFunc schedules f after d. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func())

	state State
}

// Run drives the invocation to a terminal state. Every error returned has
// already been reported on the console.
func (c *Controller) Run(ctx context.Context, o Options) (State, error) {
	o.setDefaults()
	c.state = NoServer
	if err := o.Ports.Validate(); err != nil {
		c.report(err, o)
		return c.state, err
	}

	err := c.run(ctx, o)
	if err != nil {
		c.report(err, o)
	}
	return c.state, err
}

func (c *Controller) run(ctx context.Context, o Options) error {
	if o.Exit {
		return c.stopExisting(ctx, o)
	}

	m, err := sitepath.Resolve(o.SiteRoot, o.CurrentDir, o.Filename)
	if err != nil {
		c.enter(Exited)
		return err
	}
	if err := c.requireHTML(o); err != nil {
		c.enter(Exited)
		return err
	}

	h, found := c.Prober.FindExistingServer(ctx, o.Ports)
	switch {
	case found && o.Menu:
		return c.existingMenu(ctx, o, m, h)
	case found:
		c.enter(ServerRunningReuse)
		c.Console.Alert("Reusing existing server (PID: %d, port: %d)", h.PID, h.Port)
		c.openBrowser(m.URL(h.Port))
		return nil
	case o.Menu:
		return c.startMenu(ctx, o, m)
	}

	port, err := c.Prober.FindFreePort(ctx, o.Ports)
	if err != nil {
		return err
	}
	return c.start(ctx, o, m, port, o.Foreground)
}

// stopExisting terminates the first server in the range.
func (c *Controller) stopExisting(ctx context.Context, o Options) error {
	h, found := c.Prober.FindExistingServer(ctx, o.Ports)
	if !found {
		c.enter(Exited)
		c.Console.Warn("No server running on ports %s", o.Ports)
		return nil
	}
	if err := c.Terminator.Terminate(ctx, h.PID); err != nil {
		c.enter(Exited)
		return err
	}
	c.enter(Exited)
	c.Console.Success("Server stopped (PID: %d, port: %d)", h.PID, h.Port)
	return nil
}

func (c *Controller) existingMenu(ctx context.Context, o Options, m sitepath.Mapping, h portprobe.ServerHandle) error {
	c.enter(ServerRunningMenu)
	url := m.URL(h.Port)

	c.Console.Alert("An HTTP server is already running!")
	if dir, ok := c.Prober.ProcessWorkingDirectory(ctx, h.PID); ok {
		c.Console.Field("Directory:", dir)
	}
	c.Console.Field("PID:", h.PID)
	c.Console.Field("Port:", h.Port)
	c.Console.URL("URL:", url)
	c.Console.Blank()

	choice, err := c.choose(existingChoices)
	if err != nil {
		return err
	}

	switch choice {
	case choiceOpen:
		c.enter(Exited)
		c.openBrowser(url)
		return nil
	case choiceQuit:
		c.enter(Exited)
		if err := c.Terminator.Terminate(ctx, h.PID); err != nil {
			return err
		}
		c.Console.Success("Server stopped (PID: %d)", h.PID)
		return nil
	case choiceRestart:
		return c.restart(ctx, o, m, h)
	}
	c.enter(Cancelled)
	c.Console.Info("Cancelled")
	return nil
}

func (c *Controller) restart(ctx context.Context, o Options, m sitepath.Mapping, h portprobe.ServerHandle) error {
	if err := c.Terminator.Terminate(ctx, h.PID); err != nil {
		c.enter(Exited)
		return fmt.Errorf("restart aborted: %w", err)
	}
	c.Console.Success("Server stopped (PID: %d)", h.PID)
	c.Console.Blank()

	if err := c.awaitRelease(ctx, h.Port, o.SettleDelay); err != nil {
		c.enter(Exited)
		return err
	}
	c.enter(Restarting)

	c.Console.Banner("Checking for HTML files in:", o.CurrentDir)
	if err := c.requireHTML(o); err != nil {
		c.enter(Exited)
		return err
	}
	c.Console.Success("Found HTML files")
	c.Console.Blank()

	port, err := c.Prober.FindFreePort(ctx, o.Ports)
	if err != nil {
		c.enter(Exited)
		return err
	}
	return c.start(ctx, o, m, port, o.Foreground)
}

// awaitRelease waits for port to stop being bound, checking once per
// settle period. A port still bound afterwards is only warned about.
func (c *Controller) awaitRelease(ctx context.Context, port int, settle time.Duration) error {
	for i := 0; i < releaseChecks; i++ {
		if err := sleep(ctx, settle); err != nil {
			return err
		}
		if !c.Prober.IsPortBound(ctx, port) {
			return nil
		}
	}
	if mlog.HasDebug() {
		mlog.Debugm("port still bound after stop", mlog.Map{"port": port})
	}
	c.Console.Warn("Port %d is still in use, picking another", port)
	return nil
}

func (c *Controller) startMenu(ctx context.Context, o Options, m sitepath.Mapping) error {
	port, err := c.Prober.FindFreePort(ctx, o.Ports)
	if err != nil {
		c.enter(Exited)
		return err
	}

	c.Console.Info("No server currently running.")
	c.Console.Field("Directory:", m.ServedDir)
	c.Console.Field("Port:", port)
	c.Console.URL("URL:", m.URL(port))
	c.Console.Blank()

	choice, err := c.choose(startChoices)
	if err != nil {
		return err
	}
	switch choice {
	case choiceBackground:
		return c.start(ctx, o, m, port, false)
	case choiceForeground:
		return c.start(ctx, o, m, port, true)
	}
	c.enter(Cancelled)
	c.Console.Info("Cancelled")
	return nil
}

func (c *Controller) choose(options []string) (int, error) {
	choice, err := c.Menu.Choose("What would you like to do?", options)
	if errors.Is(err, menu.ErrAborted) {
		return len(options) - 1, nil
	}
	if err != nil {
		c.enter(Exited)
		return -1, err
	}
	return choice, nil
}

func (c *Controller) start(ctx context.Context, o Options, m sitepath.Mapping, port int, foreground bool) error {
	c.enter(StartingNew)
	url := m.URL(port)

	c.Console.Headline("All checks passed!")
	c.Console.Field("Starting HTTP server in:", m.ServedDir)
	c.Console.Field("Port:", port)
	c.Console.URL("Access at:", url)
	c.Console.Blank()
	if o.Verbose {
		if names, err := sitepath.HTMLFiles(o.CurrentDir); err == nil {
			c.Console.Files(o.CurrentDir, names)
			c.Console.Blank()
		}
	}

	if foreground {
		if o.Prompt {
			c.promptOpen(url)
		} else {
			c.after(o.BrowserDelay, func() { c.openBrowser(url) })
		}
		c.Console.Info("Server running, press Ctrl+C to stop")
		return c.Foreground(ctx, m.ServedDir, port)
	}

	h, err := c.Launcher.Launch(ctx, server.LaunchSpec{Dir: m.ServedDir, Port: port})
	if err != nil {
		return err
	}
	c.Console.Headline("Server started successfully! (PID: %d)", h.PID)
	c.Console.Command("To stop the server, run:", fmt.Sprintf("kill %d", h.PID))
	c.Console.Field("Logs:", h.LogPath)
	c.Console.Blank()

	if o.Prompt {
		c.promptOpen(url)
	} else {
		c.openBrowser(url)
	}
	return nil
}

func (c *Controller) promptOpen(url string) {
	ok, err := c.Console.Confirm("Open browser?")
	if err != nil {
		mlog.Printm("reading answer failed", mlog.Map{"err": err})
		return
	}
	if ok {
		c.openBrowser(url)
	}
}

func (c *Controller) openBrowser(url string) {
	if err := c.Browser.Open(url); err != nil {
		mlog.Printm("opening browser failed", mlog.Map{"url": url, "err": err})
		c.Console.Warn("Could not open a browser, visit %s", url)
		return
	}
	c.Console.Success("Browser opened at %s", url)
}

func (c *Controller) after(d time.Duration, f func()) {
	if c.AfterFunc != nil {
		c.AfterFunc(d, f)
		return
	}
	time.AfterFunc(d, f)
}

func (c *Controller) enter(s State) {
	from := c.state
	c.state = s
	if mlog.HasDebug() {
		mlog.Debugm("state", mlog.Map{"from": from, "to": s})
	}
	if c.OnTransition != nil {
		c.OnTransition(from, s)
	}
}

func (c *Controller) requireHTML(o Options) error {
	return sitepath.RequireHTMLFiles(o.CurrentDir)
}

// report prints err with whatever context helps the user act on it.
func (c *Controller) report(err error, o Options) {
	var startup *server.StartupError
	switch {
	case errors.Is(err, sitepath.ErrNoHTMLFiles):
		c.Console.Error("No HTML files found in current directory")
		c.Console.Hint("hopen needs at least one HTML file (*.htm or *.html)")
		c.Console.ErrField("Current directory:", o.CurrentDir)
	case errors.Is(err, sitepath.ErrNotUnderRoot):
		c.Console.Error("Current directory is not under the site root")
		c.Console.ErrField("Site root:", o.SiteRoot)
		c.Console.ErrField("Current directory:", o.CurrentDir)
	case errors.Is(err, sitepath.ErrFilenameRequiresRoot):
		c.Console.Error("A filename can only be given with a site root")
		c.Console.Hint("Set --root or HOPEN_SITE_HOME")
	case errors.Is(err, portprobe.ErrNoPortAvailable):
		c.Console.Error("No available port in range %s", o.Ports)
	case errors.As(err, &startup):
		c.Console.Error("Failed to start server")
		c.Console.Hint("Check logs: %s", startup.LogPath)
	default:
		c.Console.Failure(err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
