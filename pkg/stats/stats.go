// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// ServeStats holds running totals for a static file server
type ServeStats struct {
	started  time.Time
	requests atomic.Uint64
	notFound atomic.Uint64
	bytes    atomic.Uint64
}

// New returns a ServeStats with the start time set to now
func New() *ServeStats {
	return &ServeStats{started: time.Now()}
}

// AddServed records a finished request with its status and body size
func (ss *ServeStats) AddServed(status int, bc int64) {
	ss.requests.Add(1)
	if status == http.StatusNotFound {
		ss.notFound.Add(1)
	}
	if bc > 0 {
		ss.bytes.Add(uint64(bc))
	}
	observe(status, bc)
}

// GetStats returns the stats: requests, not found, bytes
func (ss *ServeStats) GetStats() (uint64, uint64, uint64) {
	return ss.requests.Load(), ss.notFound.Load(), ss.bytes.Load()
}

// Uptime returns the time since the stats were created
func (ss *ServeStats) Uptime() time.Duration {
	if ss.started.IsZero() {
		return 0
	}
	return time.Since(ss.started)
}

type statusReport struct {
	Directory      string
	Uptime         string
	RequestsServed uint64
	NotFound       uint64
	BytesServed    uint64
}

// Handler returns an http.HandlerFunc that reports running totals for the
// server and the directory it serves.
func Handler(ss *ServeStats, dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, nf, b := ss.GetStats()
		up := ss.Uptime().Truncate(time.Second)
		if r.URL.Query().Get("format") == "json" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			// #nosec G104
			json.NewEncoder(w).Encode(statusReport{
				Directory:      dir,
				Uptime:         up.String(),
				RequestsServed: req,
				NotFound:       nf,
				BytesServed:    b,
			})
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprintf(w, "Directory, Uptime, RequestsServed, NotFound, BytesServed\n%s, %s, %d, %d, %d\n",
				dir, up, req, nf, b)
		}
	}
}
