// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config loads hopen's optional TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds settings read from the config file. Zero values mean
// "not set"; command line flags and environment variables win over any
// value here.
type Config struct {
	// SiteRoot is the default site root.
	SiteRoot string `toml:"site_root"`
	// PortStart and PortEnd bound the scanned port range.
	PortStart int `toml:"port_start"`
	PortEnd   int `toml:"port_end"`
	// LogDir holds background server logs.
	LogDir string `toml:"log_dir"`
	// SettleDelay is how long to wait for a server to bind or release a
	// port, e.g. "500ms".
	SettleDelay Duration `toml:"settle_delay"`
	// MaxConns caps concurrent connections per server.
	MaxConns int `toml:"max_conns"`
}

// Duration is a time.Duration decoded from a TOML string.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string such as "750ms".
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/hopen/config.toml, or the platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "hopen", "config.toml")
}

// Load reads the config file at path. A missing file yields an empty
// Config and no error; a malformed one is an error.
func Load(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, nil
	}
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("reading config %s: unknown key %q", path, undecoded[0].String())
	}
	return c, nil
}
