// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package serialize renders a record.Record into one Chrome Trace Event
// JSON object.
package serialize

import (
	"fmt"
	"strconv"
	"strings"

	"go.chromium.org/luci/hosttrace/internal/clock"
	"go.chromium.org/luci/hosttrace/internal/record"
)

// phaseFor is the kind -> "ph" mapping table.
func phaseFor(k record.Kind) byte {
	switch k {
	case record.Complete:
		return 'X'
	case record.DurationStart:
		return 'B'
	case record.DurationEnd:
		return 'E'
	case record.FlowSource:
		return 's'
	case record.FlowSink:
		return 't'
	case record.Mark:
		return 'R'
	default:
		panic(fmt.Sprintf("serialize: unknown record kind %d", k))
	}
}

// Record renders rec to a JSON object prefixed with ",\n", so that
// concatenating the prologue's `"traceEvents":[` with a sequence of these
// outputs yields a valid JSON array. It then releases every reference rec
// owns (Reset, and Args chain Release): ownership of rec and its Args
// chain transfers to the serializer for the duration of this call.
func Record(tb *clock.Timebase, rec *record.Record) []byte {
	var b strings.Builder
	b.Grow(160)

	ph := phaseFor(rec.Kind)
	b.WriteString(",\n{\"ph\":\"")
	b.WriteByte(ph)
	b.WriteString("\",\"tid\":")
	writeUint(&b, rec.TID)
	b.WriteString(",\"pid\":")
	writeInt(&b, int64(rec.PID))

	switch rec.Kind {
	case record.FlowSource:
		b.WriteString(",\"name\":\"dep\",\"cat\":\"Flow_H2D_")
		writeUint(&b, rec.CorrelationID)
		b.WriteByte('"')
	case record.FlowSink:
		b.WriteString(",\"name\":\"dep\",\"cat\":\"Flow_D2H_")
		writeUint(&b, rec.CorrelationID)
		b.WriteByte('"')
	default:
		if rec.HasName {
			b.WriteString(",\"name\":")
			writeNameValue(&b, rec.Name)
		}
		b.WriteString(",\"cat\":\"cpu_op\"")
	}

	b.WriteString(",\"ts\":")
	writeUint(&b, tb.EpochUS(rec.StartTicks))

	if rec.Kind == record.Complete {
		b.WriteString(",\"dur\":")
		writeUint(&b, clock.TicksToUS(rec.EndTicks-rec.StartTicks))
	}

	if rec.Args != nil && rec.Args.Count > 0 {
		b.WriteString(",\"args\":{")
		writeArgsChain(&b, rec.Args)
		b.WriteByte('}')
	} else {
		b.WriteString(",\"id\":")
		writeUint(&b, rec.CorrelationID)
	}
	b.WriteByte('}')

	out := []byte(b.String())

	releaseArgsChain(rec.Args)
	rec.Reset()

	return out
}

// writeNameValue emits name either verbatim (it is already a quoted JSON
// string literal) or wrapped in quotes.
func writeNameValue(b *strings.Builder, name string) {
	if strings.HasPrefix(name, "\"") {
		b.WriteString(name)
		return
	}
	b.WriteByte('"')
	b.WriteString(name)
	b.WriteByte('"')
}

func writeArgsChain(b *strings.Builder, head *record.InstrumentationArgs) {
	first := true
	for node := head; node != nil; node = node.Next {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteByte('"')
		b.WriteString(node.Key)
		b.WriteString("\":[")
		writeArgValues(b, node)
		b.WriteByte(']')
	}
}

func writeArgValues(b *strings.Builder, node *record.InstrumentationArgs) {
	switch node.Type {
	case record.U64:
		writeJoined(b, len(node.U64s), func(i int) { writeUint(b, node.U64s[i]) })
	case record.S64:
		writeJoined(b, len(node.S64s), func(i int) { writeInt(b, node.S64s[i]) })
	case record.U32:
		writeJoined(b, len(node.U32s), func(i int) { writeUint(b, uint64(node.U32s[i])) })
	case record.S32:
		writeJoined(b, len(node.S32s), func(i int) { writeInt(b, int64(node.S32s[i])) })
	case record.U16:
		writeJoined(b, len(node.U16s), func(i int) { writeUint(b, uint64(node.U16s[i])) })
	case record.S16:
		writeJoined(b, len(node.S16s), func(i int) { writeInt(b, int64(node.S16s[i])) })
	case record.F32:
		writeJoined(b, len(node.F32s), func(i int) { writeFloat(b, float64(node.F32s[i]), 32) })
	case record.F64:
		writeJoined(b, len(node.F64s), func(i int) { writeFloat(b, node.F64s[i], 64) })
	case record.String:
		writeJoined(b, len(node.Strings), func(i int) {
			b.WriteByte('"')
			b.WriteString(node.Strings[i])
			b.WriteByte('"')
		})
	}
}

func writeJoined(b *strings.Builder, n int, write func(i int)) {
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		write(i)
	}
}

func writeUint(b *strings.Builder, v uint64) {
	b.WriteString(strconv.FormatUint(v, 10))
}

func writeInt(b *strings.Builder, v int64) {
	b.WriteString(strconv.FormatInt(v, 10))
}

// writeFloat formats v using a dot decimal point and no thousands
// separators, independent of OS locale -- Go's strconv is always
// locale-independent, unlike C's printf family.
func writeFloat(b *strings.Builder, v float64, bitSize int) {
	b.WriteString(strconv.FormatFloat(v, 'g', -1, bitSize))
}

func releaseArgsChain(head *record.InstrumentationArgs) {
	for node := head; node != nil; {
		next := node.Next
		node.Release()
		node = next
	}
}
