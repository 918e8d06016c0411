// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package tid resolves the OS thread id a producer is currently running on.
//
// The instrumented process is expected to call into this library from
// callbacks invoked by cgo-bridged native code (GPU kernel callbacks,
// instrumentation callbacks, runtime API callbacks): a goroutine executing
// inside a cgo call is pinned to its OS thread for the duration of that
// call, so reading the OS thread id at the top of each entry point is a
// faithful substitute for a pthread-TLS-keyed ThreadBuffer lookup.
package tid

// Current returns the calling OS thread's id.
func Current() uint64 {
	return current()
}
