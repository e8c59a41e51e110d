// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package server runs the hopen static file server, either in the
// foreground or as a detached background daemon.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cactus/hopen/pkg/router"

	"github.com/cactus/mlog"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

// LoopbackHost is the only address hopen binds to.
const LoopbackHost = "127.0.0.1"

// Config holds configuration data used by Run.
type Config struct {
	// Dir is the directory tree to serve.
	Dir string
	// Port to listen on, on the loopback interface.
	Port int
	// ServerName is sent in the Server header.
	ServerName string
	// MaxConns caps concurrent connections. Zero means unlimited.
	MaxConns int
	// listening, if set, is called with the bound address once the
	// listener is open.
	listening func(net.Addr)
}

// Addr returns the loopback listen address for c.
func (c Config) Addr() string {
	return net.JoinHostPort(LoopbackHost, strconv.Itoa(c.Port))
}

// Run serves c.Dir on the loopback interface until ctx is cancelled, at
// which point the server is closed without draining connections. It
// returns nil after cancellation, or the error that stopped serving.
func Run(ctx context.Context, c Config) error {
	fi, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("root path %s: %w", c.Dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("root path %s is not a directory", c.Dir)
	}

	ln, err := net.Listen("tcp", c.Addr())
	if err != nil {
		return err
	}
	if c.MaxConns > 0 {
		ln = netutil.LimitListener(ln, c.MaxConns)
	}
	if c.listening != nil {
		c.listening(ln.Addr())
	}

	srv := &http.Server{
		Handler:           router.New(c.ServerName, c.Dir),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
	}

	mlog.Printm("serving", mlog.Map{"dir": c.Dir, "addr": ln.Addr().String(), "pid": os.Getpid()})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		// static files hold no client state worth draining
		// #nosec G104
		srv.Close()
		return nil
	})

	err = g.Wait()
	if ctx.Err() != nil {
		mlog.Printm("server stopped", mlog.Map{"addr": ln.Addr().String()})
	}
	return err
}

// RunForeground runs the server until it fails, ctx is cancelled, or the
// process receives an interrupt or termination signal.
func RunForeground(ctx context.Context, c Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, c)
}
