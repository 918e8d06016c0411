// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/maruel/subcommands"
)

var cmdInfo = &subcommands.Command{
	UsageLine: "info <trace.json>",
	ShortDesc: "reports record count and well-formedness of a trace file",
	LongDesc:  "Counts the top-level records in a trace file and reports whether it is well-formed: exactly one prologue occurrence and a file that ends with the epilogue. A file without the trailing epilogue is reported as truncated.",
	CommandRun: func() subcommands.CommandRun {
		c := &infoRun{}
		c.Flags.Init("info", flag.ExitOnError)
		return c
	},
}

type infoRun struct {
	subcommands.CommandRunBase
}

func (c *infoRun) Run(a subcommands.Application, args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(a.GetErr(), "%s: exactly one trace file argument is required\n", a.GetName())
		return 1
	}
	info, err := inspect(args[0])
	if err != nil {
		fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), err)
		return 1
	}
	fmt.Printf("records:      %d\n", info.records)
	fmt.Printf("well-formed:  %v\n", info.wellFormed)
	fmt.Printf("truncated:    %v\n", info.truncated)
	return 0
}

type traceInfo struct {
	records    int
	wellFormed bool
	truncated  bool
}

// inspect reports the number of top-level records in path (counted as
// occurrences of the ",\n{" record separator the serializer emits, plus
// the always-present prologue metadata record) and whether the file is
// well-formed. A file without exactly one prologue occurrence is rejected
// with an error; otherwise it is well-formed if it ends with the epilogue,
// and flagged as truncated if it does not.
func inspect(path string) (traceInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return traceInfo{}, fmt.Errorf("reading %s: %w", path, err)
	}
	content := string(data)

	prologues := strings.Count(content, `"traceEvents":[`)
	if prologues != 1 {
		return traceInfo{}, fmt.Errorf("not a hosttrace file: found %d \"traceEvents\":[ occurrences, want 1", prologues)
	}

	records := 1 + strings.Count(content, ",\n{") // the prologue record plus each ",\n{"-prefixed record
	hasEpilogue := strings.HasSuffix(content, "\n]\n}\n")

	return traceInfo{
		records:    records,
		wellFormed: hasEpilogue,
		truncated:  !hasEpilogue,
	}, nil
}
