// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package router

import (
	"net/http"
	"sync/atomic"
	"time"
)

type stamp struct {
	unix int64
	text string
}

// httpDate caches the formatted Date header, reformatting at most once
// per second and only when a request asks for it.
type httpDate struct {
	now     func() time.Time
	current atomic.Pointer[stamp]
}

func newHTTPDate(now func() time.Time) *httpDate {
	return &httpDate{now: now}
}

func (h *httpDate) String() string {
	t := h.now().UTC()
	sec := t.Unix()
	if s := h.current.Load(); s != nil && s.unix == sec {
		return s.text
	}
	s := &stamp{unix: sec, text: t.Format(http.TimeFormat)}
	h.current.Store(s)
	return s.text
}

var formattedDate = newHTTPDate(time.Now)
