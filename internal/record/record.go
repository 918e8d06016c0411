// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package record defines the in-memory event value type staged by a
// ThreadBuffer and consumed by the serializer.
package record

// Kind identifies which Chrome Trace Event phase a Record renders to.
type Kind int

const (
	// DurationStart opens a "B" phase duration event.
	DurationStart Kind = iota
	// DurationEnd closes a "B" phase duration event with an "E" phase event.
	DurationEnd
	// Complete is a self-contained "X" phase event carrying its own duration.
	Complete
	// FlowSource is the "s" phase half of a flow arrow.
	FlowSource
	// FlowSink is the "t" phase half of a flow arrow.
	FlowSink
	// Mark is an "R" phase instantaneous marker.
	Mark
)

func (k Kind) String() string {
	switch k {
	case DurationStart:
		return "DurationStart"
	case DurationEnd:
		return "DurationEnd"
	case Complete:
		return "Complete"
	case FlowSource:
		return "FlowSource"
	case FlowSink:
		return "FlowSink"
	case Mark:
		return "Mark"
	default:
		return "Unknown"
	}
}

// The two reserved api_id sentinels. Downstream tooling treats api_id as
// opaque; the core never branches on these values beyond tagging a
// record's origin.
const (
	APIIDInstrumentation    int64 = -1
	APIIDExternalProfiling  int64 = -2
)

// Record is a plain data aggregate filled in by a producer and read exactly
// once, by the serializer, during flush. It has no behavior of its own.
//
// A Record handed out by ThreadBuffer.Reserve carries whatever bytes were
// left over from the slot's previous occupant; producers must overwrite
// every field they care about before Commit.
type Record struct {
	Kind Kind

	// StartTicks/EndTicks are host-monotonic ticks as returned by
	// clock.Timebase.HostTicks. EndTicks is meaningful only for Complete.
	StartTicks uint64
	EndTicks   uint64

	// Name is optional; HasName distinguishes an explicit empty string from
	// "no name was ever set", since the serializer's omission rule cares
	// about absence, not emptiness.
	Name    string
	HasName bool

	// APIID identifies the call's origin. Two sentinel values are reserved,
	// see above; every other value is opaque to the core.
	APIID int64

	// CorrelationID is used both as the Chrome "id" field and to build the
	// Flow_H2D_<id>/Flow_D2H_<id> categories for flow events.
	CorrelationID uint64

	// Args carries instrumentation metadata. Nil means no instrumentation
	// args were attached.
	Args *InstrumentationArgs

	// TID/PID are set by the controller after Reserve, from the calling
	// thread id and the process id; these are the same values the owning
	// ThreadBuffer was constructed with. Reserve itself does not set them.
	TID uint64
	PID int32
}

// Reset drops every reference the Record owns so that a drained slot cannot
// be mistaken for still carrying live data if it is ever walked again.
// There is nothing to free by hand in Go, but zeroing still makes
// re-emission and double-release impossible to observe.
func (r *Record) Reset() {
	r.Name = ""
	r.HasName = false
	r.Args = nil
}

// ArgType is the wire type of one InstrumentationArgs chain node.
type ArgType int

const (
	U64 ArgType = iota
	S64
	U32
	S32
	U16
	S16
	F32
	F64
	String
)

// InstrumentationArgs is a chain of named, typed argument lists attached to
// an instrumentation event. The head node is normally owned inline by the
// record; every node reached via Next is conceptually heap-owned and is
// released (its Next pointer cleared) by the serializer once the chain has
// been emitted.
type InstrumentationArgs struct {
	Key   string
	Type  ArgType
	Count int

	// Exactly one of these slices is populated, selected by Type: a typed
	// sum of fixed-shape variants in place of an untyped pointer+count pair.
	U64s    []uint64
	S64s    []int64
	U32s    []uint32
	S32s    []int32
	U16s    []uint16
	S16s    []int16
	F32s    []float32
	F64s    []float64
	Strings []string

	Next *InstrumentationArgs
}

// Release clears this node's payload slices and detaches Next, so a node
// already consumed by the serializer cannot be re-walked for live data.
func (a *InstrumentationArgs) Release() {
	a.Count = 0
	a.U64s, a.S64s, a.U32s, a.S32s = nil, nil, nil, nil
	a.U16s, a.S16s, a.F32s, a.F64s, a.Strings = nil, nil, nil, nil, nil
	a.Next = nil
}
