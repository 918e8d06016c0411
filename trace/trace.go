// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package trace is the public entry point: it wires the Logger, the
// per-thread buffers, the BufferRegistry and the Timebase into a single
// Controller, and exposes the four logging entry points plus the three
// external-callback wrappers host-side instrumentation calls into.
//
// There is at most one active Controller per process: tracing is modeled
// as a single package-level Start plus Controller.Shutdown rather than an object callers
// thread explicitly through their call graph, since the instrumented
// callers here are cgo callbacks, not ordinary Go code, and a package-level
// singleton is the only shape that fits that calling convention.
package trace

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"go.chromium.org/luci/hosttrace/common/logging"
	"go.chromium.org/luci/hosttrace/internal/archive"
	"go.chromium.org/luci/hosttrace/internal/buffer"
	"go.chromium.org/luci/hosttrace/internal/clock"
	"go.chromium.org/luci/hosttrace/internal/config"
	"go.chromium.org/luci/hosttrace/internal/metrics"
	"go.chromium.org/luci/hosttrace/internal/procinfo"
	"go.chromium.org/luci/hosttrace/internal/record"
	"go.chromium.org/luci/hosttrace/internal/registry"
	"go.chromium.org/luci/hosttrace/internal/sink"
	"go.chromium.org/luci/hosttrace/internal/tid"
)

var active atomic.Pointer[Controller]

// Controller owns the Logger, the BufferRegistry, the Timebase and the
// lazily-constructed per-thread buffers for one process's trace.
type Controller struct {
	logger   *sink.Logger
	reg      *registry.Registry
	clock    *clock.Timebase
	cfg      *config.Config
	metrics  *metrics.Recorder
	promReg  *prometheus.Registry
	uploader *archive.Uploader
	log      logging.Logger
	watcher  io.Closer

	filter      atomic.Pointer[config.Filter]
	capacity    buffer.Capacity
	pid         int32
	processName string
	outputPath  string
	dataStartAt int64

	buffersMu sync.Mutex
	buffers   map[uint64]*buffer.ThreadBuffer

	shutdownOnce sync.Once
}

// Current returns the active Controller, or nil if Start has not been
// called (or Shutdown already ran). The four logging entry points and the
// external-callback wrappers all route through this and silently do
// nothing when it is nil -- no error value ever crosses the producer call
// boundary.
func Current() *Controller {
	return active.Load()
}

// Start resolves configuration, opens the trace file, writes the
// prologue, and installs the result as the process-wide active
// Controller. Configuration errors (bad integer, unreadable filter file)
// are returned before any producer can register.
func Start(ctx context.Context) (*Controller, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	httpClient := config.OAuthHTTPClient(ctx)
	filter, err := cfg.BuildFilter(ctx, httpClient)
	if err != nil {
		return nil, err
	}

	processName := procinfo.CurrentName()
	outputPath := processName + ".json"
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("trace: creating output dir %s: %w", cfg.OutputDir, err)
		}
		outputPath = filepath.Join(cfg.OutputDir, outputPath)
	}

	l, err := sink.Open(outputPath, true)
	if err != nil {
		return nil, fmt.Errorf("trace: opening %s: %w", outputPath, err)
	}

	tb := clock.New()
	var promReg *prometheus.Registry
	var rec *metrics.Recorder
	if cfg.MetricsEnabled {
		promReg = prometheus.NewRegistry()
		rec = metrics.New(promReg)
	}

	var uploader *archive.Uploader
	if cfg.ArchiveS3Bucket != "" {
		uploader, err = archive.NewUploader(ctx, cfg.ArchiveS3Bucket)
		if err != nil {
			l.Close()
			return nil, err
		}
	}

	c := &Controller{
		logger:      l,
		reg:         registry.New(),
		clock:       tb,
		cfg:         cfg,
		metrics:     rec,
		promReg:     promReg,
		uploader:    uploader,
		log:         logging.Get(ctx),
		capacity:    buffer.ResolveCapacity(cfg.BufferSize),
		pid:         int32(os.Getpid()),
		processName: processName,
		outputPath:  outputPath,
		buffers:     make(map[uint64]*buffer.ThreadBuffer),
	}
	c.filter.Store(filter)

	if err := c.writePrologue(); err != nil {
		l.Close()
		return nil, fmt.Errorf("trace: writing prologue: %w", err)
	}

	if cfg.FilterFile != "" {
		watcher, err := config.WatchFilterFile(ctx, cfg.FilterFile, cfg.FilterExclude, func(f *config.Filter) {
			c.filter.Store(f)
		}, c.log)
		if err != nil {
			c.log.Warningf("hosttrace: starting filter watcher: %v", err)
		} else {
			c.watcher = watcher
		}
	}

	active.Store(c)
	return c, nil
}

// writePrologue emits the process_name metadata record and records the
// file position reached afterward as the "no payload" baseline.
func (c *Controller) writePrologue() error {
	startUS := int64(c.clock.EpochUS(c.clock.HostTicks()))
	label := "HOST" + procinfo.Hostname()
	if c.cfg.Rank != "" {
		label = "RANK " + c.cfg.Rank + " " + label
	}
	prologue := fmt.Sprintf("{ \"traceEvents\":[\n{\"ph\":\"M\",\"name\":\"process_name\",\"pid\":%d,\"ts\":%d,\"args\":{\"name\":%q}}",
		c.pid, startUS, label)
	if err := c.logger.Log([]byte(prologue)); err != nil {
		return err
	}
	if err := c.logger.Flush(); err != nil {
		return err
	}
	c.dataStartAt = c.logger.Position()
	return nil
}

// MetricsRegistry returns the Prometheus registry backing this
// Controller's metrics, or nil if metrics are not enabled in the resolved
// configuration (HOSTTRACE_METRICS_ENABLED or the YAML overlay's
// metrics-enabled).
// Callers mount it behind their own promhttp.Handler.
func (c *Controller) MetricsRegistry() *prometheus.Registry {
	return c.promReg
}

// OutputPath returns the path the trace is being (or was) written to.
func (c *Controller) OutputPath() string {
	return c.outputPath
}

func (c *Controller) bufferFor(t uint64) *buffer.ThreadBuffer {
	c.buffersMu.Lock()
	defer c.buffersMu.Unlock()
	if b, ok := c.buffers[t]; ok {
		return b
	}
	b := buffer.New(c.logger, c.reg, c.clock, c.capacity, t, c.pid, c.metrics, c.reportIOError)
	c.buffers[t] = b
	return b
}

func (c *Controller) reportIOError(err error) {
	c.log.Errorf("hosttrace: writing trace file: %v", err)
}

// allows applies the kernel-name filter to named events. Unnamed events
// (flow source/sink, and any Complete/Mark with no name) are never
// filtered -- the filter matches on event name, and there is nothing to
// match against.
func (c *Controller) allows(name string) bool {
	if name == "" {
		return true
	}
	return c.filter.Load().Allows(name)
}

func (c *Controller) emit(name string, fill func(r *record.Record)) {
	if !c.allows(name) {
		return
	}
	t := tid.Current()
	b := c.bufferFor(t)
	r := b.Reserve()
	if r == nil {
		// The calling thread's buffer already finalized; silently discard.
		return
	}
	r.TID = t
	r.PID = c.pid
	fill(r)
	b.Commit()
}

// DurationStart emits a "B" phase duration-start event.
func (c *Controller) DurationStart(name string, apiID int64, correlationID uint64) {
	ticks := c.clock.HostTicks()
	c.emit(name, func(r *record.Record) {
		r.Kind = record.DurationStart
		r.StartTicks = ticks
		r.Name, r.HasName = name, name != ""
		r.APIID = apiID
		r.CorrelationID = correlationID
	})
}

// DurationEnd emits an "E" phase duration-end event.
func (c *Controller) DurationEnd(name string, apiID int64, correlationID uint64) {
	ticks := c.clock.HostTicks()
	c.emit(name, func(r *record.Record) {
		r.Kind = record.DurationEnd
		r.StartTicks = ticks
		r.Name, r.HasName = name, name != ""
		r.APIID = apiID
		r.CorrelationID = correlationID
	})
}

// Complete emits a self-contained "X" phase event carrying its own
// duration and, optionally, an instrumentation-args chain. Ownership of
// args transfers to the record; the serializer releases it after
// emission.
func (c *Controller) Complete(name string, apiID int64, correlationID uint64, startTicks, endTicks uint64, args *record.InstrumentationArgs) {
	c.emit(name, func(r *record.Record) {
		r.Kind = record.Complete
		r.StartTicks = startTicks
		r.EndTicks = endTicks
		r.Name, r.HasName = name, name != ""
		r.APIID = apiID
		r.CorrelationID = correlationID
		r.Args = args
	})
}

// Mark emits an "R" phase instantaneous marker.
func (c *Controller) Mark(name string, apiID int64, correlationID uint64) {
	ticks := c.clock.HostTicks()
	c.emit(name, func(r *record.Record) {
		r.Kind = record.Mark
		r.StartTicks = ticks
		r.Name, r.HasName = name, name != ""
		r.APIID = apiID
		r.CorrelationID = correlationID
	})
}

// FlowSource emits the "s" phase half of a flow arrow.
func (c *Controller) FlowSource(correlationID uint64) {
	ticks := c.clock.HostTicks()
	c.emit("", func(r *record.Record) {
		r.Kind = record.FlowSource
		r.StartTicks = ticks
		r.CorrelationID = correlationID
	})
}

// FlowSink emits the "t" phase half of a flow arrow.
func (c *Controller) FlowSink(correlationID uint64) {
	ticks := c.clock.HostTicks()
	c.emit("", func(r *record.Record) {
		r.Kind = record.FlowSink
		r.StartTicks = ticks
		r.CorrelationID = correlationID
	})
}

// OnRuntimeCall is the external-callback surface for a completed runtime
// API call. flowDirection is accepted and ignored: it is reserved for
// future correlation but the core never reflects it in an emitted record.
// Only the first correlation id, if any, is recorded -- Record carries a
// single correlation id, not a list.
func (c *Controller) OnRuntimeCall(correlationIDs []uint64, flowDirection int, apiID int64, startTicks, endTicks uint64) {
	var corr uint64
	if len(correlationIDs) > 0 {
		corr = correlationIDs[0]
	}
	c.Complete("", apiID, corr, startTicks, endTicks, nil)
}

// OnInstrumentationEvent is the external-callback surface for a named
// instrumentation region with optional structured arguments.
func (c *Controller) OnInstrumentationEvent(name string, startTicks, endTicks uint64, args *record.InstrumentationArgs) {
	c.Complete(name, record.APIIDInstrumentation, 0, startTicks, endTicks, args)
}

// OnExternalProfilingEvent is the external-callback surface used by
// profiling sources outside the instrumentation and runtime-call paths.
func (c *Controller) OnExternalProfilingEvent(kind record.Kind, name string, startTicks, endTicks uint64) {
	c.emit(name, func(r *record.Record) {
		r.Kind = kind
		r.StartTicks = startTicks
		r.EndTicks = endTicks
		r.Name, r.HasName = name, name != ""
		r.APIID = record.APIIDExternalProfiling
	})
}

// Shutdown finalizes every registered buffer, then decides between the
// epilogue-and-keep and the delete-the-empty-file outcomes based on
// whether any payload record was ever appended after the prologue. Safe
// to call more than once; only the first call has any effect.
func (c *Controller) Shutdown(ctx context.Context) error {
	var err error
	c.shutdownOnce.Do(func() {
		active.CompareAndSwap(c, nil)
		if c.watcher != nil {
			c.watcher.Close()
		}

		for _, b := range c.reg.Snapshot() {
			b.Finalize()
		}

		if c.logger.Position() == c.dataStartAt {
			c.logger.Close()
			if rmErr := sink.Remove(c.outputPath); rmErr != nil && !os.IsNotExist(rmErr) {
				c.log.Warningf("hosttrace: removing empty trace %s: %v", c.outputPath, rmErr)
			}
			c.log.Infof("hosttrace: no event of interest is logged for pid %d (%s)", c.pid, c.processName)
			return
		}

		if logErr := c.logger.Log([]byte("\n]\n}\n")); logErr != nil {
			c.log.Errorf("hosttrace: writing epilogue: %v", logErr)
		}
		if closeErr := c.logger.Close(); closeErr != nil {
			c.log.Errorf("hosttrace: closing %s: %v", c.outputPath, closeErr)
		}
		c.log.Infof("hosttrace: wrote trace to %s", c.outputPath)

		if c.uploader != nil {
			if upErr := c.uploader.Upload(ctx, c.outputPath, c.processName); upErr != nil {
				c.log.Errorf("hosttrace: archiving %s: %v", c.outputPath, upErr)
				err = upErr
			}
		}
	})
	return err
}

// The package-level entry points below are what the cgo-bridged
// instrumentation, runtime-call, and external-profiling callers actually
// call: they route through Current and silently do nothing when no
// Controller is active, so the call sites never need a nil check of
// their own.

func DurationStart(name string, apiID int64, correlationID uint64) {
	if c := Current(); c != nil {
		c.DurationStart(name, apiID, correlationID)
	}
}

func DurationEnd(name string, apiID int64, correlationID uint64) {
	if c := Current(); c != nil {
		c.DurationEnd(name, apiID, correlationID)
	}
}

func Complete(name string, apiID int64, correlationID uint64, startTicks, endTicks uint64, args *record.InstrumentationArgs) {
	if c := Current(); c != nil {
		c.Complete(name, apiID, correlationID, startTicks, endTicks, args)
	}
}

func Mark(name string, apiID int64, correlationID uint64) {
	if c := Current(); c != nil {
		c.Mark(name, apiID, correlationID)
	}
}

func FlowSource(correlationID uint64) {
	if c := Current(); c != nil {
		c.FlowSource(correlationID)
	}
}

func FlowSink(correlationID uint64) {
	if c := Current(); c != nil {
		c.FlowSink(correlationID)
	}
}

func OnRuntimeCall(correlationIDs []uint64, flowDirection int, apiID int64, startTicks, endTicks uint64) {
	if c := Current(); c != nil {
		c.OnRuntimeCall(correlationIDs, flowDirection, apiID, startTicks, endTicks)
	}
}

func OnInstrumentationEvent(name string, startTicks, endTicks uint64, args *record.InstrumentationArgs) {
	if c := Current(); c != nil {
		c.OnInstrumentationEvent(name, startTicks, endTicks, args)
	}
}

func OnExternalProfilingEvent(kind record.Kind, name string, startTicks, endTicks uint64) {
	if c := Current(); c != nil {
		c.OnExternalProfilingEvent(kind, name, startTicks, endTicks)
	}
}
