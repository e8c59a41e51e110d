// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package lifecycle

import "strconv"

// State is a step of a lifecycle run.
type State int

const (
	// NoServer: nothing is listening in the port range.
	NoServer State = iota
	// ServerRunningReuse: an existing server is reused as is.
	ServerRunningReuse
	// ServerRunningMenu: an existing server was found and the menu shown.
	ServerRunningMenu
	// StartingNew: a new server is being started.
	StartingNew
	// Restarting: the old server was stopped and a new one will start.
	Restarting
	// Cancelled: the user backed out; nothing changed.
	Cancelled
	// Exited: the run finished without starting a server.
	Exited
)

var stateNames = [...]string{
	NoServer:           "NoServer",
	ServerRunningReuse: "ServerRunningReuse",
	ServerRunningMenu:  "ServerRunningMenu",
	StartingNew:        "StartingNew",
	Restarting:         "Restarting",
	Cancelled:          "Cancelled",
	Exited:             "Exited",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}
