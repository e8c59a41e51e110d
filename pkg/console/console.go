// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package console writes hopen's colored, human facing output and reads
// simple answers from the terminal.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/xlab/treeprint"
)

var (
	green   = color.New(color.FgGreen)
	greenB  = color.New(color.FgGreen, color.Bold)
	yellow  = color.New(color.FgYellow)
	yellowB = color.New(color.FgYellow, color.Bold)
	red     = color.New(color.FgRed)
	redB    = color.New(color.FgRed, color.Bold)
	cyan    = color.New(color.FgCyan)
	magenta = color.New(color.FgMagenta)
	blueB   = color.New(color.FgBlue, color.Bold)
	bold    = color.New(color.Bold)
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// Console is a pair of output streams plus an input stream.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer
	in  *bufio.Reader
}

// New returns a Console over the given streams.
func New(in io.Reader, out, errOut io.Writer) *Console {
	return &Console{
		out: out,
		err: errOut,
		in:  bufio.NewReader(in),
	}
}

// Std returns a Console on the process's standard streams.
func Std() *Console {
	return New(os.Stdin, color.Output, color.Error)
}

// Success prints a green check line.
func (c *Console) Success(format string, a ...any) {
	c.line(c.out, green, "✓ "+format, a...)
}

// Headline prints a bold green check line.
func (c *Console) Headline(format string, a ...any) {
	c.line(c.out, greenB, "✓ "+format, a...)
}

// Warn prints a yellow warning line.
func (c *Console) Warn(format string, a ...any) {
	c.line(c.out, yellow, format, a...)
}

// Alert prints a bold yellow warning line.
func (c *Console) Alert(format string, a ...any) {
	c.line(c.out, yellowB, "⚠ "+format, a...)
}

// Info prints a cyan line.
func (c *Console) Info(format string, a ...any) {
	c.line(c.out, cyan, format, a...)
}

// Error prints a bold red failure line on the error stream.
func (c *Console) Error(format string, a ...any) {
	c.line(c.err, redB, "✗ "+format, a...)
}

// Hint prints a yellow line on the error stream.
func (c *Console) Hint(format string, a ...any) {
	c.line(c.err, yellow, format, a...)
}

// Field prints a cyan label and magenta value.
func (c *Console) Field(label string, value any) {
	c.field(c.out, label, magenta.Sprint(value))
}

// ErrField is Field on the error stream.
func (c *Console) ErrField(label string, value any) {
	c.field(c.err, label, magenta.Sprint(value))
}

// URL prints a cyan label and a bold blue URL.
func (c *Console) URL(label, url string) {
	c.field(c.out, label, blueB.Sprint(url))
}

// Command prints a yellow label and a cyan command to run.
func (c *Console) Command(label, cmd string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, yellow.Sprint(label), cyan.Sprint(cmd))
}

// Title prints a bold line.
func (c *Console) Title(s string) {
	c.line(c.out, bold, "%s", s)
}

// Banner prints a label and value between two horizontal rules.
func (c *Console) Banner(label string, value any) {
	c.line(c.out, color.New(color.FgCyan, color.Bold), rule)
	c.Field(label, value)
	c.line(c.out, color.New(color.FgCyan, color.Bold), rule)
	c.Blank()
}

// Blank prints an empty line.
func (c *Console) Blank() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out)
}

// Failure prints err in red, using the error stream.
func (c *Console) Failure(err error) {
	c.line(c.err, red, "Error: %s", err)
}

// Files prints names as a tree rooted at dir.
func (c *Console) Files(dir string, names []string) {
	tree := treeprint.NewWithRoot(magenta.Sprint(filepath.Base(dir)))
	for _, n := range names {
		tree.AddNode(n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, tree.String())
}

// Confirm asks a yes/no question, defaulting to no. Only "y" or "yes"
// (any case) count as yes. A closed input answers no.
func (c *Console) Confirm(question string) (bool, error) {
	c.mu.Lock()
	fmt.Fprint(c.out, bold.Sprint(question+" [y/N]: "))
	c.mu.Unlock()

	answer, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (c *Console) field(w io.Writer, label, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(w, cyan.Sprint(label), value)
}

func (c *Console) line(w io.Writer, col *color.Color, format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(w, col.Sprintf(format, a...))
}
