// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

const licenseText = `
This software is available under the MIT License at:
https://github.com/cactus/hopen

Portions of this software utilize third party libraries:
*   Runtime dependencies:
    ├── github.com/BurntSushi/toml (MIT license)
    ├── github.com/alecthomas/kong (MIT license)
    ├── github.com/cactus/mlog (MIT license)
    ├── github.com/charmbracelet/bubbletea (MIT license)
    ├── github.com/charmbracelet/lipgloss (MIT license)
    ├── github.com/fatih/color (MIT license)
    ├── github.com/pkg/browser (BSD license)
    ├── github.com/prometheus/client_golang (Apache 2.0 license)
    ├── github.com/prometheus/common (Apache 2.0 license)
    ├── github.com/shirou/gopsutil (BSD license)
    ├── github.com/xlab/treeprint (MIT license)
    ├── go.uber.org/automaxprocs (MIT license)
    ├── golang.org/x/net (BSD license)
    └── golang.org/x/sync (BSD license)

*   Test/Build only dependencies:
    └── gotest.tools/v3 (Apache 2.0 license)
`
