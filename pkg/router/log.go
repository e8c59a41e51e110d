// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package router

import (
	"net/http"

	"github.com/cactus/mlog"
)

func requestToMlogMap(r *http.Request) mlog.Map {
	return mlog.Map{
		"method":      r.Method,
		"path":        r.RequestURI,
		"proto":       r.Proto,
		"header":      r.Header,
		"host":        r.Host,
		"remote_addr": r.RemoteAddr,
	}
}

func responseToMlogMap(rw *recordingWriter) mlog.Map {
	return mlog.Map{
		"status": rw.status,
		"bytes":  rw.bytes,
		"header": rw.Header(),
	}
}
