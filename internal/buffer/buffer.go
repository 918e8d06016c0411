// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package buffer implements ThreadBuffer: one logical staging buffer per
// producer thread, composed of a growable sequence of fixed-size slabs,
// with the reserve/commit pair producers use and the flush/finalize pair
// the controller and the producer's own exit path use.
package buffer

import (
	"bytes"
	"runtime"
	"sync"
	"sync/atomic"

	"go.chromium.org/luci/hosttrace/internal/clock"
	"go.chromium.org/luci/hosttrace/internal/record"
	"go.chromium.org/luci/hosttrace/internal/registry"
	"go.chromium.org/luci/hosttrace/internal/serialize"
	"go.chromium.org/luci/hosttrace/internal/sink"
)

// DefaultUnboundedSlabSize is the slab size used when capacity is unbounded.
const DefaultUnboundedSlabSize = 4096

// Capacity is the resolved outcome of the configured capacity policy.
type Capacity struct {
	Unbounded        bool
	SlabSize         int
	FlushImmediately bool
}

// ResolveCapacity applies the configured capacity policy: negative means
// unbounded, zero is treated as one, and any positive value fixes both the
// slab size and the total capacity to that value (a single slab, reused by
// rewinding on every flush).
func ResolveCapacity(capacityTotal int) Capacity {
	if capacityTotal < 0 {
		return Capacity{Unbounded: true, SlabSize: DefaultUnboundedSlabSize}
	}
	if capacityTotal == 0 {
		capacityTotal = 1
	}
	return Capacity{SlabSize: capacityTotal, FlushImmediately: capacityTotal == 1}
}

// Registry is the subset of registry.Registry a ThreadBuffer needs to
// register and deregister itself. It is expressed in terms of
// registry.Buffer, not a locally-declared anonymous interface, so that
// *registry.Registry satisfies it directly -- an anonymous interface type
// here would be a distinct type from registry.Buffer even with an
// identical method set, and would fail to match at the call site.
type Registry interface {
	Insert(tid uint64, b registry.Buffer)
	Remove(tid uint64)
}

// Metrics is the subset of metrics.Recorder a ThreadBuffer reports to. It is
// defined here, by the consumer, so that buffer never needs to import the
// metrics package; a nil Metrics is always safe to use.
type Metrics interface {
	EventCommitted()
	BytesFlushed(n int)
	FinalizeCalled()
	BufferRegistered()
	BufferDeregistered()
}

// IOErrorReporter receives at most one call for the lifetime of a
// ThreadBuffer: the first I/O error observed while flushing. Further
// flush failures on the same buffer are best-effort and go unreported.
type IOErrorReporter func(err error)

// ThreadBuffer is owned exclusively by one producer thread for Reserve and
// Commit; Finalize may additionally be called by the controller's shutdown
// sweep, made safe by the atomic compare-and-swap on finalized.
type ThreadBuffer struct {
	logger   *sink.Logger
	registry Registry
	clock    *clock.Timebase
	metrics  Metrics
	reportIO IOErrorReporter
	ioOnce   sync.Once

	cap Capacity
	tid uint64
	pid int32

	slabs       [][]record.Record
	cursorSlab  int
	cursorIndex int

	flushed   atomic.Bool
	finalized atomic.Bool
}

// New constructs a ThreadBuffer and registers it in reg under tid. The
// registration makes the buffer reachable by the controller's shutdown
// sweep even if the owning goroutine never calls Finalize itself.
//
// A runtime.SetFinalizer is also attached as a backstop: Go has no hook for
// "this OS thread exited" the way the original pthread-TLS design relied on,
// so if every reference to this ThreadBuffer is dropped (the producer truly
// is gone and nothing retains it) the garbage collector will eventually
// drive the same Finalize path. This is best-effort, not a guarantee: the
// authoritative exactly-once flush still comes from the controller's
// shutdown sweep.
func New(logger *sink.Logger, reg Registry, tb *clock.Timebase, cap Capacity, tid uint64, pid int32, m Metrics, reportIO IOErrorReporter) *ThreadBuffer {
	b := &ThreadBuffer{
		logger:   logger,
		registry: reg,
		clock:    tb,
		metrics:  m,
		reportIO: reportIO,
		cap:      cap,
		tid:      tid,
		pid:      pid,
		slabs:    [][]record.Record{make([]record.Record, cap.SlabSize)},
	}
	if reg != nil {
		reg.Insert(tid, b)
	}
	if m != nil {
		m.BufferRegistered()
	}
	runtime.SetFinalizer(b, func(fb *ThreadBuffer) { fb.Finalize() })
	return b
}

// TID is the thread id this buffer was constructed for.
func (b *ThreadBuffer) TID() uint64 { return b.tid }

// PID is the process id captured at construction.
func (b *ThreadBuffer) PID() int32 { return b.pid }

// Flushed reports whether this buffer's content is currently known to be on
// disk -- true immediately after FlushAll or Finalize, false again the
// moment a new record is reserved.
func (b *ThreadBuffer) Flushed() bool { return b.flushed.Load() }

// Finalized reports whether Finalize has already run to completion.
func (b *ThreadBuffer) Finalized() bool { return b.finalized.Load() }

// Reserve returns the next free record slot for the calling (owning)
// producer thread, or nil if this buffer has already been finalized --
// callers must silently drop the event in that case.
//
// The returned Record is uninitialized storage from the producer's
// viewpoint; every field the producer cares about must be set before
// Commit.
func (b *ThreadBuffer) Reserve() *record.Record {
	if b.finalized.Load() {
		return nil
	}
	if b.cursorIndex >= len(b.slabs[b.cursorSlab]) {
		if b.cap.Unbounded {
			b.growSlab()
		} else {
			b.FlushAll()
		}
	}
	b.flushed.Store(false)
	return &b.slabs[b.cursorSlab][b.cursorIndex]
}

func (b *ThreadBuffer) growSlab() {
	// A failed make() here is a fatal, unrecoverable allocation failure in
	// the Go runtime itself (it throws, which cannot be recovered) -- slab
	// growth has no retry or fallback path.
	b.slabs = append(b.slabs, make([]record.Record, b.cap.SlabSize))
	b.cursorSlab++
	b.cursorIndex = 0
}

// Commit advances the cursor past the slot last returned by Reserve. When
// capacity is bounded to exactly one (flush_immediately), the just-committed
// record is flushed and released synchronously, under the logger's mutex.
func (b *ThreadBuffer) Commit() {
	b.cursorIndex++
	if b.metrics != nil {
		b.metrics.EventCommitted()
	}
	if b.cap.FlushImmediately {
		b.FlushAll()
	}
}

// FlushAll serializes and appends every fully-written slab plus the prefix
// of the current slab, then rewinds the cursor to the start of a single
// slab. It is idempotent: calling it again with nothing newly committed is
// a no-op beyond re-asserting Flushed.
func (b *ThreadBuffer) FlushAll() {
	defer b.flushed.Store(true)

	if b.cursorSlab == 0 && b.cursorIndex == 0 {
		return
	}

	var out bytes.Buffer
	for s := 0; s < b.cursorSlab; s++ {
		slab := b.slabs[s]
		for i := range slab {
			out.Write(serialize.Record(b.clock, &slab[i]))
		}
	}
	current := b.slabs[b.cursorSlab]
	for i := 0; i < b.cursorIndex; i++ {
		out.Write(serialize.Record(b.clock, &current[i]))
	}

	if out.Len() > 0 {
		err := b.logger.Log(out.Bytes())
		if err != nil {
			if b.reportIO != nil {
				b.ioOnce.Do(func() { b.reportIO(err) })
			}
		} else if b.metrics != nil {
			b.metrics.BytesFlushed(out.Len())
		}
	}

	b.slabs = b.slabs[:1]
	b.cursorSlab = 0
	b.cursorIndex = 0
}

// Finalize performs a one-shot compare-and-swap: the first caller (the
// producer's own exit path, or the controller's shutdown sweep, whichever
// arrives first) flushes and releases the buffer; every other caller, from
// any thread, returns immediately.
func (b *ThreadBuffer) Finalize() {
	if !b.finalized.CompareAndSwap(false, true) {
		return
	}
	b.FlushAll()
	b.slabs = nil
	if b.registry != nil {
		b.registry.Remove(b.tid)
	}
	if b.metrics != nil {
		b.metrics.FinalizeCalled()
		b.metrics.BufferDeregistered()
	}
	runtime.SetFinalizer(b, nil)
}
