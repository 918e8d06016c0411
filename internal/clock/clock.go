// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package clock implements Timebase: a monotonic host tick source and its
// one-time mapping to wall-clock microseconds.
package clock

import "time"

// Timebase maps host-monotonic ticks (nanoseconds since its own
// construction) to absolute microseconds since the Unix epoch. The mapping
// is computed once, at construction, and never re-synchronized for the
// lifetime of the Timebase.
type Timebase struct {
	startMono        time.Time
	startWallUnixMic int64
}

// New captures the current instant as tick zero.
func New() *Timebase {
	now := time.Now()
	return &Timebase{
		startMono:        now,
		startWallUnixMic: now.UnixMicro(),
	}
}

// HostTicks returns nanoseconds elapsed since the Timebase was constructed.
// time.Since reads the runtime's monotonic clock reading, so this is immune
// to wall-clock adjustments.
func (t *Timebase) HostTicks() uint64 {
	return uint64(time.Since(t.startMono))
}

// TicksToUS converts a tick delta (nanoseconds) to microseconds, the unit
// Chrome Trace Event "dur" fields use. Truncates toward zero (1000ns ->
// 1us).
func TicksToUS(deltaTicks uint64) uint64 {
	return deltaTicks / 1000
}

// EpochUS maps a tick value (as returned by HostTicks) to microseconds since
// the Unix epoch, using the one-time offset captured at New.
func (t *Timebase) EpochUS(ticks uint64) uint64 {
	return uint64(t.startWallUnixMic) + TicksToUS(ticks)
}
