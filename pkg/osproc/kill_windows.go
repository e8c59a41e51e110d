// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build windows

package osproc

func killCommand(pid string) (string, []string) {
	return "taskkill", []string{"/F", "/PID", pid}
}
