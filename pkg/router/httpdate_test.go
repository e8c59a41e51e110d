// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package router

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestHTTPDateFormat(t *testing.T) {
	t.Parallel()
	fixed := time.Date(2024, 3, 9, 14, 5, 6, 0, time.FixedZone("X", 3600))
	d := newHTTPDate(func() time.Time { return fixed })
	assert.Check(t, is.Equal("Sat, 09 Mar 2024 13:05:06 GMT", d.String()))
}

func TestHTTPDateUpdatesEachSecond(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 9, 13, 5, 6, 0, time.UTC)
	d := newHTTPDate(func() time.Time { return now })

	first := d.String()
	now = now.Add(400 * time.Millisecond)
	assert.Check(t, is.Equal(first, d.String()), "same second should reuse stamp")

	now = now.Add(time.Second)
	assert.Check(t, first != d.String(), "date did not update: %s", first)
}

func BenchmarkDateString(b *testing.B) {
	d := newHTTPDate(time.Now)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = d.String()
		}
	})
}
