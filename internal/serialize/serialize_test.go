// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package serialize

import (
	"testing"

	"github.com/maruel/ut"
	"github.com/stretchr/testify/assert"

	"go.chromium.org/luci/hosttrace/internal/clock"
	"go.chromium.org/luci/hosttrace/internal/record"
)

func fixedTimebase() *clock.Timebase {
	return clock.New()
}

func TestCompleteEventRendersNameCategoryDurationAndReleasesOwnership(t *testing.T) {
	tb := fixedTimebase()
	rec := &record.Record{
		Kind:          record.Complete,
		StartTicks:    0,
		EndTicks:      1000, // 1000ns -> 1us
		Name:          "foo",
		HasName:       true,
		APIID:         42,
		CorrelationID: 7,
		TID:           111,
		PID:           222,
	}
	out := string(Record(tb, rec))
	ut.AssertEqual(t, true, len(out) > 0)
	assert.Contains(t, out, `"ph":"X"`)
	assert.Contains(t, out, `"tid":111`)
	assert.Contains(t, out, `"pid":222`)
	assert.Contains(t, out, `"name":"foo"`)
	assert.Contains(t, out, `"cat":"cpu_op"`)
	assert.Contains(t, out, `"dur":1`)
	assert.Contains(t, out, `"id":7`)
	assert.NotContains(t, out, `"args"`)

	// Ownership is released after emission.
	assert.False(t, rec.HasName)
	assert.Nil(t, rec.Args)
}

func TestFlowSourceAndSinkEmitMatchingCategories(t *testing.T) {
	tb := fixedTimebase()
	source := &record.Record{Kind: record.FlowSource, CorrelationID: 42}
	sink := &record.Record{Kind: record.FlowSink, CorrelationID: 42}

	out1 := string(Record(tb, source))
	out2 := string(Record(tb, sink))

	assert.Contains(t, out1, `"name":"dep","cat":"Flow_H2D_42"`)
	assert.Contains(t, out2, `"name":"dep","cat":"Flow_D2H_42"`)
}

func TestArgsChainRendersAsArgsAndSuppressesID(t *testing.T) {
	tb := fixedTimebase()
	tag := &record.InstrumentationArgs{Key: "tag", Type: record.String, Count: 1, Strings: []string{"x"}}
	bytesArg := &record.InstrumentationArgs{Key: "bytes", Type: record.U64, Count: 1, U64s: []uint64{1024}, Next: tag}
	rec := &record.Record{
		Kind:       record.Complete,
		StartTicks: 0,
		EndTicks:   0,
		Args:       bytesArg,
	}

	out := string(Record(tb, rec))
	assert.Contains(t, out, `"args":{"bytes":[1024],"tag":["x"]}`)
	assert.NotContains(t, out, `"id"`)

	// Chain is released: walking from the original head must show no data.
	assert.Equal(t, 0, bytesArg.Count)
	assert.Nil(t, bytesArg.Next)
}

func TestPreQuotedNameEmittedVerbatim(t *testing.T) {
	tb := fixedTimebase()
	rec := &record.Record{
		Kind:    record.Mark,
		Name:    `"quoted"`,
		HasName: true,
	}
	out := string(Record(tb, rec))
	assert.Contains(t, out, `"name":"quoted"`)
	assert.NotContains(t, out, `"name":"\"quoted\""`)
}

func TestAbsentNameOmitsKey(t *testing.T) {
	tb := fixedTimebase()
	rec := &record.Record{Kind: record.Mark}
	out := string(Record(tb, rec))
	assert.NotContains(t, out, `"name"`)
}

func TestOutputIsPrefixedForArrayConcatenation(t *testing.T) {
	tb := fixedTimebase()
	rec := &record.Record{Kind: record.Mark}
	out := string(Record(tb, rec))
	assert.True(t, len(out) > 2 && out[:2] == ",\n")
}
