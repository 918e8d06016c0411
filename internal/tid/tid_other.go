// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !linux

package tid

import (
	"bytes"
	"runtime"
	"strconv"
)

// current falls back to parsing the goroutine id out of runtime.Stack on
// platforms with no cheap OS-thread-id syscall wired up. This is only an
// approximation of a real OS thread id -- two goroutines that happen to
// share an OS thread would be reported as distinct producers -- but it keeps
// the library functional off Linux without a per-platform cgo shim.
func current() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, _ := strconv.ParseUint(string(fields[1]), 10, 64)
	return id
}
