// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package router provides the HTTP handler used by the hopen file server.
package router

import (
	"net/http"
	"strings"

	"github.com/cactus/hopen/pkg/stats"

	"github.com/cactus/mlog"
)

// ControlPrefix is the path prefix reserved for server endpoints. Site
// files below it are not reachable.
const ControlPrefix = "/__hopen/"

// StaticRouter is a special purpose http router serving a directory tree
// plus a few control endpoints.
type StaticRouter struct {
	ServerName  string
	FileHandler http.Handler
	Stats       *stats.ServeStats
	Dir         string
}

// New returns a StaticRouter serving dir.
func New(serverName, dir string) *StaticRouter {
	return &StaticRouter{
		ServerName:  serverName,
		FileHandler: http.FileServer(http.Dir(dir)),
		Stats:       stats.New(),
		Dir:         dir,
	}
}

// SetHeaders sets the headers on the response
func (sr *StaticRouter) SetHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Date", formattedDate.String())
	h.Set("Server", sr.ServerName)
	// local preview: always revalidate edited files
	h.Set("Cache-Control", "no-cache")
}

// HealthCheckHandler is HTTP handler for confirming the server is up.
func (sr *StaticRouter) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ServeHTTP fulfills the http server interface
func (sr *StaticRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sr.SetHeaders(w)
	if mlog.HasDebug() {
		mlog.Debugm("client request", requestToMlogMap(r))
	}

	rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
	defer sr.logRequest(rw, r)

	if r.Method != http.MethodHead && r.Method != http.MethodGet {
		http.Error(rw, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if strings.HasPrefix(r.URL.Path, ControlPrefix) {
		sr.serveControl(rw, r)
		return
	}

	sr.FileHandler.ServeHTTP(rw, r)
}

func (sr *StaticRouter) serveControl(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimPrefix(r.URL.Path, ControlPrefix) {
	case "health":
		sr.HealthCheckHandler(w, r)
	case "status":
		stats.Handler(sr.Stats, sr.Dir)(w, r)
	case "metrics":
		stats.MetricsHandler().ServeHTTP(w, r)
	default:
		http.Error(w, "404 Not Found", http.StatusNotFound)
	}
}

func (sr *StaticRouter) logRequest(rw *recordingWriter, r *http.Request) {
	if sr.Stats != nil {
		sr.Stats.AddServed(rw.status, rw.bytes)
	}
	if mlog.HasDebug() {
		mlog.Debugm("response", responseToMlogMap(rw))
	}
	mlog.Printm("request", mlog.Map{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": rw.status,
		"bytes":  rw.bytes,
	})
}

type recordingWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}
