// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package zaplogger adapts a *zap.SugaredLogger to the logging.Logger
// interface, so hosttrace's structured logging is backed by
// go.uber.org/zap instead of fmt/log.
package zaplogger

import (
	"context"

	"go.uber.org/zap"

	"go.chromium.org/luci/hosttrace/common/logging"
)

// zapAdapter wraps a sugared zap logger to satisfy logging.Logger.
type zapAdapter struct {
	s *zap.SugaredLogger
}

// New wraps z as a logging.Logger.
func New(z *zap.Logger) logging.Logger {
	return &zapAdapter{s: z.Sugar()}
}

// NewProduction builds a production zap.Logger (JSON encoding, Info level
// and above) and wraps it as a logging.Logger. Callers that want more
// control should build their own *zap.Logger and call New directly.
func NewProduction() (logging.Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(z), nil
}

func (a *zapAdapter) Debugf(format string, args ...interface{})   { a.s.Debugf(format, args...) }
func (a *zapAdapter) Infof(format string, args ...interface{})    { a.s.Infof(format, args...) }
func (a *zapAdapter) Warningf(format string, args ...interface{}) { a.s.Warnf(format, args...) }
func (a *zapAdapter) Errorf(format string, args ...interface{})   { a.s.Errorf(format, args...) }

// WithContext installs l into ctx using logging.Set, for callers that
// thread a context through their call graph the way the rest of this
// package's ambient stack does.
func WithContext(ctx context.Context, l logging.Logger) context.Context {
	return logging.Set(ctx, l)
}
