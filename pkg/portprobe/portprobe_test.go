// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package portprobe

import (
	"context"
	"net"
	"testing"

	"github.com/cactus/hopen/pkg/osproc/osproctest"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestPortRangeValidate(t *testing.T) {
	t.Parallel()
	assert.Check(t, DefaultRange.Validate())
	assert.Check(t, PortRange{Start: 10, End: 10}.Validate())
	assert.Check(t, is.ErrorContains(PortRange{Start: 20, End: 10}.Validate(), "empty"))
	assert.Check(t, is.ErrorContains(PortRange{Start: 0, End: 10}.Validate(), "out of bounds"))
	assert.Check(t, is.ErrorContains(PortRange{Start: 1, End: 70000}.Validate(), "out of bounds"))
	assert.Check(t, is.Equal("8000-8100", DefaultRange.String()))
}

func TestFindFreePortReturnsSmallestUnbound(t *testing.T) {
	t.Parallel()
	r := PortRange{Start: 9000, End: 9005}

	for busy := 0; busy <= 5; busy++ {
		table := &osproctest.Table{}
		for port := r.Start; port < r.Start+busy; port++ {
			table.Listen(100+port, port, "")
		}
		p := New(table)

		port, err := p.FindFreePort(context.Background(), r)
		assert.NilError(t, err)
		assert.Check(t, is.Equal(r.Start+busy, port))
	}
}

func TestFindFreePortSkipsGaps(t *testing.T) {
	t.Parallel()
	table := &osproctest.Table{}
	table.Listen(1, 9000, "")
	table.Listen(2, 9002, "")
	p := New(table)

	port, err := p.FindFreePort(context.Background(), PortRange{Start: 9000, End: 9003})
	assert.NilError(t, err)
	assert.Check(t, is.Equal(9001, port))
}

func TestFindFreePortExhausted(t *testing.T) {
	t.Parallel()
	r := PortRange{Start: 9000, End: 9003}
	table := &osproctest.Table{}
	for port := r.Start; port <= r.End; port++ {
		table.Listen(port, port, "")
	}
	p := New(table)

	_, err := p.FindFreePort(context.Background(), r)
	assert.Check(t, is.ErrorIs(err, ErrNoPortAvailable))
	assert.Check(t, is.ErrorContains(err, "9000-9003"))
}

func TestIsPortBoundFallsBackToBind(t *testing.T) {
	t.Parallel()
	table := &osproctest.Table{Unavailable: true}
	p := New(table)
	var tried []int
	p.SetBindFunc(func(port int) bool {
		tried = append(tried, port)
		return port == 9000
	})

	assert.Check(t, p.IsPortBound(context.Background(), 9000))
	assert.Check(t, !p.IsPortBound(context.Background(), 9001))
	assert.Check(t, is.DeepEqual([]int{9000, 9001}, tried))
}

func TestBindFallbackAgainstRealListener(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	p := New(&osproctest.Table{Unavailable: true})
	assert.Check(t, p.IsPortBound(context.Background(), port))
}

func TestFindExistingServer(t *testing.T) {
	t.Parallel()
	table := &osproctest.Table{}
	// owner unknown, must be skipped
	table.Listen(0, 9001, "")
	table.Listen(321, 9003, "/srv/site")
	table.Listen(654, 9004, "")
	p := New(table)

	h, ok := p.FindExistingServer(context.Background(), PortRange{Start: 9000, End: 9010})
	assert.Assert(t, ok)
	assert.Check(t, is.DeepEqual(ServerHandle{PID: 321, Port: 9003}, h))

	cwd, ok := p.ProcessWorkingDirectory(context.Background(), h.PID)
	assert.Check(t, ok)
	assert.Check(t, is.Equal("/srv/site", cwd))
}

func TestFindExistingServerNone(t *testing.T) {
	t.Parallel()
	p := New(&osproctest.Table{})
	_, ok := p.FindExistingServer(context.Background(), PortRange{Start: 9000, End: 9010})
	assert.Check(t, !ok)
}

func TestProcessWorkingDirectoryMissing(t *testing.T) {
	t.Parallel()
	p := New(&osproctest.Table{})
	_, ok := p.ProcessWorkingDirectory(context.Background(), 12345)
	assert.Check(t, !ok)
}
