// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.toml")
	assert.NilError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	t.Parallel()
	p := writeConfig(t, `
site_root = "/Users/me/www.example.com"
port_start = 9000
port_end = 9010
log_dir = "/var/tmp"
settle_delay = "750ms"
max_conns = 64
`)
	c, err := Load(p)
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(Config{
		SiteRoot:    "/Users/me/www.example.com",
		PortStart:   9000,
		PortEnd:     9010,
		LogDir:      "/var/tmp",
		SettleDelay: Duration{750 * time.Millisecond},
		MaxConns:    64,
	}, c))
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(Config{}, c))

	c, err = Load("")
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(Config{}, c))
}

func TestLoadMalformed(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, "port_start = \"eight thousand\"\n"))
	assert.Check(t, is.ErrorContains(err, "reading config"))

	_, err = Load(writeConfig(t, "settle_delay = \"soon\"\n"))
	assert.Check(t, is.ErrorContains(err, "reading config"))
}

func TestLoadUnknownKey(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, "site_home = \"/x\"\n"))
	assert.Check(t, is.ErrorContains(err, "site_home"))
}

func TestDefaultPath(t *testing.T) {
	t.Parallel()
	p := DefaultPath()
	if p == "" {
		t.Skip("no user config dir")
	}
	assert.Check(t, is.Equal("config.toml", filepath.Base(p)))
	assert.Check(t, is.Equal("hopen", filepath.Base(filepath.Dir(p))))
}
