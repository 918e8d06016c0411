// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command hosttrace repairs and inspects trace files produced by the
// go.chromium.org/luci/hosttrace library.
package main

import (
	"os"

	"github.com/maruel/subcommands"
)

var application = &subcommands.DefaultApplication{
	Name:  "hosttrace",
	Title: "Inspects and repairs Chrome Trace Event files written by hosttrace.",
	Commands: []*subcommands.Command{
		cmdRepair,
		cmdInfo,
		subcommands.CmdHelp,
	},
}

func main() {
	os.Exit(subcommands.Run(application, nil))
}
