// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package sitepath maps a caller's directory onto a served site root and
// the URL path that addresses it.
package sitepath

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const indexPage = "index.html"

var (
	// ErrNotUnderRoot is returned when the current directory is outside
	// the site root.
	ErrNotUnderRoot = errors.New("current directory is not under site root")
	// ErrFilenameRequiresRoot is returned when a filename is given without
	// a site root.
	ErrFilenameRequiresRoot = errors.New("filename argument requires a site root")
	// ErrNoHTMLFiles is returned when a directory holds no .htm/.html files.
	ErrNoHTMLFiles = errors.New("no HTML files found")
)

// Mapping is the result of Resolve.
type Mapping struct {
	// SiteRoot is the canonical site root, or empty if none was given.
	SiteRoot string
	// ServedDir is the directory the server serves.
	ServedDir string
	// URLPath is the slash separated path, relative to ServedDir, of the
	// caller's location plus the optional filename. Empty means the root.
	URLPath string
}

// URL returns the loopback URL addressing the mapping on port.
func (m Mapping) URL(port int) string {
	u := url.URL{
		Scheme: "http",
		Host:   "localhost:" + strconv.Itoa(port),
	}
	if m.URLPath != "" {
		u.Path = "/" + m.URLPath
		// the file server redirects index.html to its directory
		if path.Base(u.Path) == indexPage {
			u.Path = strings.TrimSuffix(u.Path, indexPage)
		}
	}
	return u.String()
}

// Resolve computes the served directory and URL path. siteRoot and
// filename are optional; pass "" when absent.
//
// Without a site root the current directory is served and a filename is
// rejected. With one, the whole site root is served so that relative links
// resolve, and currentDir must be the root or below it.
func Resolve(siteRoot, currentDir, filename string) (Mapping, error) {
	cur, err := Canonical(currentDir)
	if err != nil {
		return Mapping{}, err
	}

	if siteRoot == "" {
		if filename != "" {
			return Mapping{}, ErrFilenameRequiresRoot
		}
		return Mapping{ServedDir: cur}, nil
	}

	root, err := Canonical(siteRoot)
	if err != nil {
		return Mapping{}, err
	}

	rel, err := filepath.Rel(root, cur)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Mapping{}, fmt.Errorf("%w: %s is outside %s", ErrNotUnderRoot, cur, root)
	}

	urlPath := ""
	if rel != "." {
		urlPath = filepath.ToSlash(rel)
	}
	if filename != "" {
		urlPath = strings.TrimPrefix(path.Join(urlPath, filepath.ToSlash(filename)), "/")
		if urlPath == ".." || strings.HasPrefix(urlPath, "../") {
			return Mapping{}, fmt.Errorf("%w: %s escapes %s", ErrNotUnderRoot, filename, root)
		}
	}

	return Mapping{
		SiteRoot:  root,
		ServedDir: root,
		URLPath:   urlPath,
	}, nil
}

// Canonical returns p as a cleaned absolute path with symlinks resolved.
// Paths that do not exist are returned cleaned and absolute.
func Canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", p, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// IsHTMLName reports whether name has a .htm or .html extension, ignoring
// case.
func IsHTMLName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".htm", ".html":
		return true
	}
	return false
}

// HTMLFiles returns the sorted names of the .htm/.html entries directly in
// dir. Directories are ignored even if their name matches.
func HTMLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() || !IsHTMLName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// HasHTMLFiles reports whether dir directly holds at least one HTML file.
// An unreadable directory holds none.
func HasHTMLFiles(dir string) bool {
	names, err := HTMLFiles(dir)
	return err == nil && len(names) > 0
}

// RequireHTMLFiles returns ErrNoHTMLFiles, naming dir, when dir has no
// HTML files.
func RequireHTMLFiles(dir string) error {
	if !HasHTMLFiles(dir) {
		return fmt.Errorf("%w in %s", ErrNoHTMLFiles, dir)
	}
	return nil
}
