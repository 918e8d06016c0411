// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package registry implements the process-wide set of live thread buffers
// used to force-flush every producer during shutdown.
//
// The registry carries its own mutex, distinct from the sink.Logger's, so
// that Controller.Shutdown never needs to hold one mutex while acquiring the
// other transitively through Finalize. A single shared mutex between the two
// would make Finalize, called from inside a Logger-held flush, reacquire a
// mutex the caller already holds.
package registry

import "sync"

// Buffer is the subset of ThreadBuffer's surface the registry needs. It is
// defined here, rather than importing the buffer package directly, so that
// buffer can depend on registry without creating an import cycle.
type Buffer interface {
	// Finalize flushes and releases the buffer exactly once, regardless of
	// how many times or from how many goroutines it is called.
	Finalize()
}

// Registry is a set of live Buffers, keyed by the producer thread id that
// created them.
type Registry struct {
	mu      sync.Mutex
	buffers map[uint64]Buffer
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{buffers: make(map[uint64]Buffer)}
}

// Insert registers a buffer under tid. A second Insert for the same tid
// replaces the first; callers are expected to call this exactly once, from
// the thread that owns the buffer, at lazy-construction time.
func (r *Registry) Insert(tid uint64, b Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffers[tid] = b
}

// Get returns the buffer registered for tid, if any.
func (r *Registry) Get(tid uint64) (Buffer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buffers[tid]
	return b, ok
}

// Remove deregisters the buffer for tid, if present.
func (r *Registry) Remove(tid uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buffers, tid)
}

// Snapshot returns a copy of the currently-registered buffers. Callers drive
// finalization over the returned slice without holding the registry's lock,
// so a buffer finalizing concurrently (and removing itself) never deadlocks
// against the snapshot walk.
func (r *Registry) Snapshot() []Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Buffer, 0, len(r.buffers))
	for _, b := range r.buffers {
		out = append(out, b)
	}
	return out
}

// Len reports the number of currently-registered buffers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}
