// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package procinfo resolves the current process's name, the basis for the
// derived trace output filename.
package procinfo

import (
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/process"
)

// CurrentName returns the current process's command name, read through
// gopsutil's process accounting rather than trusting os.Args[0] (which a
// launcher can rewrite, e.g. argv[0] spoofing or a re-exec wrapper).
// Falls back to the base name of os.Args[0] if gopsutil cannot resolve it.
func CurrentName() string {
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if name, err := p.Name(); err == nil && name != "" {
			return name
		}
	}
	if len(os.Args) > 0 {
		return filepath.Base(os.Args[0])
	}
	return "unknown"
}

// Hostname returns the local hostname for the process_name metadata label,
// falling back to "unknown" rather than failing the whole trace.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
