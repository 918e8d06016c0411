// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/maruel/subcommands"
)

const epilogue = "\n]\n}\n"

var cmdRepair = &subcommands.Command{
	UsageLine: "repair <trace.json>",
	ShortDesc: "appends the closing brackets to a truncated trace file",
	LongDesc: "A process that crashed or was killed mid-trace leaves the output file " +
		"missing its epilogue. Consumers are expected to repair it by appending \"]}\". " +
		"This subcommand does exactly that, using the full \"\\n]\\n}\\n\" epilogue the " +
		"controller itself writes on a clean shutdown.",
	CommandRun: func() subcommands.CommandRun {
		c := &repairRun{}
		c.Flags.Init("repair", flag.ExitOnError)
		return c
	},
}

type repairRun struct {
	subcommands.CommandRunBase
}

func (c *repairRun) Run(a subcommands.Application, args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(a.GetErr(), "%s: exactly one trace file argument is required\n", a.GetName())
		return 1
	}
	if err := repair(args[0]); err != nil {
		fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), err)
		return 1
	}
	return 0
}

// repair reads path, checks whether it already ends with the epilogue, and
// appends it if not. A file that doesn't even contain the prologue's
// "traceEvents":[ substring is rejected rather than silently patched.
func repair(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if !strings.Contains(string(data), `"traceEvents":[`) {
		return errors.New("not a hosttrace file: missing \"traceEvents\":[ prologue")
	}
	if strings.HasSuffix(string(data), epilogue) {
		return nil // already well-formed
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening %s for repair: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(epilogue); err != nil {
		return fmt.Errorf("appending epilogue to %s: %w", path, err)
	}
	return nil
}
