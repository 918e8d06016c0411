// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingBuffer struct {
	finalizes int
}

func (c *countingBuffer) Finalize() { c.finalizes++ }

func TestInsertGetRemove(t *testing.T) {
	r := New()
	b := &countingBuffer{}
	r.Insert(1, b)

	got, ok := r.Get(1)
	assert.True(t, ok)
	assert.Same(t, Buffer(b), got)
	assert.Equal(t, 1, r.Len())

	r.Remove(1)
	_, ok = r.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestSnapshotIsIndependentOfConcurrentMutation(t *testing.T) {
	r := New()
	r.Insert(1, &countingBuffer{})
	r.Insert(2, &countingBuffer{})

	snap := r.Snapshot()
	assert.Len(t, snap, 2)

	r.Remove(1)
	r.Remove(2)
	assert.Len(t, snap, 2)
	assert.Equal(t, 0, r.Len())
}
