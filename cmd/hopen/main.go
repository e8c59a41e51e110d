// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// hopen serves the current directory of HTML files on localhost and opens
// it in a browser, reusing a running server when there is one.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/cactus/hopen/pkg/config"
	"github.com/cactus/hopen/pkg/console"
	"github.com/cactus/hopen/pkg/lifecycle"
	"github.com/cactus/hopen/pkg/menu"
	"github.com/cactus/hopen/pkg/osproc"
	"github.com/cactus/hopen/pkg/portprobe"
	"github.com/cactus/hopen/pkg/server"

	"github.com/alecthomas/kong"
	"github.com/cactus/mlog"
	"github.com/pkg/browser"
	"github.com/prometheus/common/version"
	"go.uber.org/automaxprocs/maxprocs"
)

var (
	// ServerName holds the server name string
	ServerName = "hopen"
	// ServerVersion holds the server version string
	ServerVersion = "no-version"
)

// CLI holds the command line options
type CLI struct {
	Filename   string `arg:"" optional:"" name:"filename" help:"HTML file to open, relative to the current directory (needs a site root)"`
	Root       string `name:"root" short:"r" env:"HOPEN_SITE_HOME" help:"Site root to serve instead of the current directory"`
	Exit       bool   `name:"exit" short:"e" help:"Stop the running server and exit"`
	Foreground bool   `name:"foreground" short:"f" help:"Run the server in the foreground"`
	Menu       bool   `name:"menu" short:"m" help:"Show an interactive menu"`
	Prompt     bool   `name:"prompt" short:"p" help:"Ask before opening the browser"`
	Config     string `name:"config" short:"c" env:"HOPEN_CONFIG" type:"path" help:"Config file (default ${config_path})"`
	Verbose    bool   `name:"verbose" short:"v" help:"Show verbose (debug) log level output"`
	Version    int    `name:"version" short:"V" type:"counter" help:"Print version and exit; specify twice to show license information"`

	InternalServe bool   `name:"internal-serve" hidden:""`
	InternalPort  int    `name:"internal-port" hidden:""`
	InternalDir   string `name:"internal-dir" hidden:""`
}

func printVersion(level int) {
	fmt.Printf("%s %s (%s,%s-%s)\n", ServerName, ServerVersion, runtime.Version(), runtime.Compiler, runtime.GOARCH)
	if level > 1 {
		fmt.Printf("\n%s\n", strings.TrimSpace(licenseText))
	}
}

// serveConfig builds the serve mode config from the hidden flags. A missing
// port or directory falls back to the first port of the default range and
// the current directory.
func (cli *CLI) serveConfig(cfg config.Config) (server.Config, error) {
	c := server.Config{
		Dir:        cli.InternalDir,
		Port:       cli.InternalPort,
		ServerName: ServerName,
		MaxConns:   cfg.MaxConns,
	}
	if c.Port == 0 {
		c.Port = portprobe.DefaultRange.Start
	}
	if c.Dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return c, fmt.Errorf("reading current directory: %w", err)
		}
		c.Dir = cwd
	}
	return c, nil
}

// serve is the detached child's entry point.
func (cli *CLI) serve(cfg config.Config) error {
	mlog.SetFlags(mlog.Lstd)
	if cli.Verbose {
		mlog.SetFlags(mlog.Flags() | mlog.Ldebug)
	}
	setMaxProcs()

	c, err := cli.serveConfig(cfg)
	if err != nil {
		return err
	}
	if mlog.HasDebug() {
		mlog.Debugm("serve mode", mlog.Map{"args": os.Args[1:]})
	}
	return server.RunForeground(context.Background(), c)
}

// setMaxProcs matches GOMAXPROCS to the container CPU quota, logging only
// at debug level.
func setMaxProcs() {
	if _, err := maxprocs.Set(maxprocs.Logger(mlog.Debugf)); err != nil {
		mlog.Debugm("could not set GOMAXPROCS", mlog.Map{"err": err})
	}
}

// Run executes one hopen invocation.
func (cli *CLI) Run() error {
	cfgPath := cli.Config
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if cli.InternalServe {
		return cli.serve(cfg)
	}

	// start out with a very bare logger that only prints
	// the message (no special format or log elements)
	mlog.SetFlags(0)
	if cli.Verbose {
		mlog.SetFlags(mlog.Lstd | mlog.Ldebug)
		mlog.Debug("debug logging enabled")
	}
	setMaxProcs()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("reading current directory: %w", err)
	}

	// flags and env override the config file
	opts := lifecycle.Options{
		Filename:    cli.Filename,
		SiteRoot:    cli.Root,
		CurrentDir:  cwd,
		Exit:        cli.Exit,
		Foreground:  cli.Foreground,
		Menu:        cli.Menu,
		Prompt:      cli.Prompt,
		Verbose:     cli.Verbose,
		Ports:       portprobe.DefaultRange,
		SettleDelay: cfg.SettleDelay.Duration,
	}
	if opts.SiteRoot == "" {
		opts.SiteRoot = cfg.SiteRoot
	}
	if cfg.PortStart != 0 {
		opts.Ports.Start = cfg.PortStart
	}
	if cfg.PortEnd != 0 {
		opts.Ports.End = cfg.PortEnd
	}

	inspector := osproc.NewSystem()
	prober := portprobe.New(inspector)

	// xdg-open and friends chatter on the terminal
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard

	ctrl := &lifecycle.Controller{
		Prober:     prober,
		Terminator: inspector,
		Launcher: &server.Launcher{
			LogDir:      cfg.LogDir,
			SettleDelay: cfg.SettleDelay.Duration,
			IsBound:     prober.IsPortBound,
		},
		Foreground: func(ctx context.Context, dir string, port int) error {
			return server.RunForeground(ctx, server.Config{
				Dir:        dir,
				Port:       port,
				ServerName: ServerName,
				MaxConns:   cfg.MaxConns,
			})
		},
		Browser: lifecycle.BrowserFunc(browser.OpenURL),
		Menu:    &menu.Terminal{},
		Console: console.Std(),
	}

	start := time.Now()
	state, err := ctrl.Run(context.Background(), opts)
	if mlog.HasDebug() {
		mlog.Debugm("done", mlog.Map{"state": state, "elapsed": time.Since(start)})
	}
	if err != nil {
		return reportedError{err}
	}
	return nil
}

// reportedError marks an error the console has already shown.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

func main() {
	version.Version = ServerVersion

	cli := CLI{}
	kong.Parse(&cli,
		kong.Name("hopen"),
		kong.Description("Serve a directory of HTML files on localhost and open it in a browser"),
		kong.UsageOnError(),
		kong.Vars{
			"version":     ServerVersion,
			"config_path": config.DefaultPath(),
		},
	)

	if cli.Version > 0 {
		printVersion(cli.Version)
		os.Exit(0)
	}

	if err := cli.Run(); err != nil {
		if _, ok := err.(reportedError); !ok {
			console.Std().Failure(err)
		}
		os.Exit(1)
	}
}
