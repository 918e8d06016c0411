// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buffer

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.chromium.org/luci/hosttrace/internal/clock"
	"go.chromium.org/luci/hosttrace/internal/record"
	"go.chromium.org/luci/hosttrace/internal/registry"
	"go.chromium.org/luci/hosttrace/internal/sink"
)

type noopRegistry struct {
	mu      sync.Mutex
	removed int
}

func (r *noopRegistry) Insert(uint64, registry.Buffer) {}
func (r *noopRegistry) Remove(uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed++
}

func newTestBuffer(t *testing.T, cap Capacity) (*ThreadBuffer, *sink.Logger, string) {
	path := filepath.Join(t.TempDir(), "trace.json")
	l, err := sink.Open(path, true)
	require.NoError(t, err)
	tb := clock.New()
	b := New(l, &noopRegistry{}, tb, cap, 1, 2, nil, nil)
	return b, l, path
}

func TestResolveCapacity(t *testing.T) {
	assert.True(t, ResolveCapacity(-1).Unbounded)
	assert.True(t, ResolveCapacity(-5).Unbounded)

	c0 := ResolveCapacity(0)
	assert.False(t, c0.Unbounded)
	assert.Equal(t, 1, c0.SlabSize)
	assert.True(t, c0.FlushImmediately)

	c1 := ResolveCapacity(1)
	assert.True(t, c1.FlushImmediately)

	c100 := ResolveCapacity(100)
	assert.False(t, c100.FlushImmediately)
	assert.Equal(t, 100, c100.SlabSize)
}

func TestUnboundedGrowsSlabsWithoutLoss(t *testing.T) {
	cap := ResolveCapacity(-1)
	cap.SlabSize = 4 // force growth quickly
	b, l, path := newTestBuffer(t, cap)

	const n = 97
	for i := 0; i < n; i++ {
		r := b.Reserve()
		require.NotNil(t, r)
		r.Kind = record.Mark
		r.CorrelationID = uint64(i)
		b.Commit()
	}
	b.FlushAll()
	require.NoError(t, l.Close())
	assert.True(t, b.Flushed())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, n, countRecords(string(data)))
}

func TestBoundedRewindsOnFull(t *testing.T) {
	cap := ResolveCapacity(4)
	b, l, path := newTestBuffer(t, cap)

	for i := 0; i < 10; i++ {
		r := b.Reserve()
		require.NotNil(t, r)
		r.Kind = record.Mark
		r.CorrelationID = uint64(i)
		b.Commit()
	}
	b.FlushAll()
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10, countRecords(string(data)))
}

func TestFlushImmediatelyWritesEveryCommit(t *testing.T) {
	cap := ResolveCapacity(1)
	assert.True(t, cap.FlushImmediately)
	b, l, path := newTestBuffer(t, cap)

	var sizes []int64
	for i := 0; i < 3; i++ {
		r := b.Reserve()
		require.NotNil(t, r)
		r.Kind = record.Mark
		r.CorrelationID = uint64(i)
		b.Commit()
		info, err := os.Stat(path)
		require.NoError(t, err)
		sizes = append(sizes, info.Size())
	}
	require.NoError(t, l.Close())

	for i := 1; i < len(sizes); i++ {
		assert.Greater(t, sizes[i], sizes[i-1])
	}
}

func TestFinalizeIsExactlyOnceAcrossGoroutines(t *testing.T) {
	cap := ResolveCapacity(-1)
	b, l, _ := newTestBuffer(t, cap)
	r := b.Reserve()
	r.Kind = record.Mark
	b.Commit()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Finalize()
		}()
	}
	wg.Wait()
	require.NoError(t, l.Close())

	assert.True(t, b.Finalized())
	assert.True(t, b.Flushed())
	assert.Nil(t, b.Reserve(), "finalized buffer must refuse new reservations")
}

func TestFlushAllIsIdempotent(t *testing.T) {
	cap := ResolveCapacity(-1)
	b, l, path := newTestBuffer(t, cap)
	r := b.Reserve()
	r.Kind = record.Mark
	b.Commit()
	b.FlushAll()
	info1, err := os.Stat(path)
	require.NoError(t, err)

	b.FlushAll()
	info2, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	assert.Equal(t, info1.Size(), info2.Size())
}

func countRecords(traceBody string) int {
	count := 0
	for i := 0; i < len(traceBody); i++ {
		if traceBody[i] == '{' {
			count++
		}
	}
	return count
}
