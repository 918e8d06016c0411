// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

/*
Package logging defines the Logger interface and context.Context helpers to
put/get a logger from context.Context.

The standard library doesn't define any Logger interface, only a concrete
struct, so hosttrace's own components -- Controller, the config loader, the
filter watcher -- accept a Logger (or a context.Context carrying one) rather
than importing a concrete logging package directly. That keeps the core
tracing path free to run with zaplogger in a real process and with Null() in
tests, without either side knowing about the other.
*/
package logging

import (
	"golang.org/x/net/context"
)

// Logger interface is ultimately implemented by underlying logging libraries
// (like go-logging or GAE logging). It is the least common denominator among
// logger implementations.
type Logger interface {
	// Debugf formats its arguments according to the format, analogous to
	// fmt.Printf and records the text as a log message at Debug level.
	Debugf(format string, args ...interface{})

	// Infof is like Debugf, but logs at Info level.
	Infof(format string, args ...interface{})

	// Warningf is like Debugf, but logs at Warning level.
	Warningf(format string, args ...interface{})

	// Errorf is like Debugf, but logs at Error level.
	Errorf(format string, args ...interface{})
}

type key int

var loggerKey key

// SetFactory sets the Logger factory for this context.
//
// The factory will be called each time Get(context) is used.
func SetFactory(c context.Context, f func(context.Context) Logger) context.Context {
	return context.WithValue(c, loggerKey, f)
}

// Set sets the logger for this context.
//
// It can be retrieved with Get(context).
func Set(c context.Context, l Logger) context.Context {
	return SetFactory(c, func(context.Context) Logger { return l })
}

// Get the current Logger, or a logger that ignores all messages if none
// is defined. trace.Start calls this once against the caller-supplied
// context at startup, so a caller that never set up a Logger still gets a
// Controller that runs normally and simply drops its own diagnostics.
func Get(c context.Context) (ret Logger) {
	if f, ok := c.Value(loggerKey).(func(context.Context) Logger); ok {
		ret = f(c)
	}
	if ret == nil {
		ret = Null()
	}
	return
}

// Null returns logger that silently ignores all messages.
func Null() Logger {
	return nullLogger{}
}

// nullLogger silently ignores all messages.
type nullLogger struct{}

func (nullLogger) Debugf(string, ...interface{})   {}
func (nullLogger) Infof(string, ...interface{})    {}
func (nullLogger) Warningf(string, ...interface{}) {}
func (nullLogger) Errorf(string, ...interface{})   {}