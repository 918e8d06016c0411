// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package metrics gives the "metrics-enabled" configuration flag a real
// consumer: an optional Prometheus registry tracking buffer and registry
// health. It is consumed by producers, not the serializer -- Recorder is
// that consumer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder reports ThreadBuffer and registry activity to Prometheus. A nil
// *Recorder is safe to call every method on, so callers never need to
// branch on whether metrics are enabled.
type Recorder struct {
	eventsCommitted prometheus.Counter
	bytesFlushed    prometheus.Counter
	finalizeCalls   prometheus.Counter
	activeBuffers   prometheus.Gauge
}

// New registers the hosttrace metric family on reg and returns a Recorder
// backed by it.
func New(reg *prometheus.Registry) *Recorder {
	r := &Recorder{
		eventsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hosttrace",
			Name:      "events_committed_total",
			Help:      "Number of events committed to a thread buffer.",
		}),
		bytesFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hosttrace",
			Name:      "bytes_flushed_total",
			Help:      "Bytes appended to the trace file.",
		}),
		finalizeCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hosttrace",
			Name:      "buffer_finalize_total",
			Help:      "Number of thread buffers that completed finalization.",
		}),
		activeBuffers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hosttrace",
			Name:      "active_buffers",
			Help:      "Thread buffers currently registered.",
		}),
	}
	reg.MustRegister(r.eventsCommitted, r.bytesFlushed, r.finalizeCalls, r.activeBuffers)
	return r
}

// EventCommitted records one more event committed by a producer.
func (r *Recorder) EventCommitted() {
	if r == nil {
		return
	}
	r.eventsCommitted.Inc()
}

// BytesFlushed records n more bytes appended to the trace file.
func (r *Recorder) BytesFlushed(n int) {
	if r == nil {
		return
	}
	r.bytesFlushed.Add(float64(n))
}

// FinalizeCalled records that a buffer completed finalization.
func (r *Recorder) FinalizeCalled() {
	if r == nil {
		return
	}
	r.finalizeCalls.Inc()
}

// BufferRegistered/BufferDeregistered track the instantaneous count of live
// buffers, mirroring registry.Registry.Len without requiring metrics to
// depend on the registry package.
func (r *Recorder) BufferRegistered() {
	if r == nil {
		return
	}
	r.activeBuffers.Inc()
}

func (r *Recorder) BufferDeregistered() {
	if r == nil {
		return
	}
	r.activeBuffers.Dec()
}
