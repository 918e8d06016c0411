// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Debugf(format string, args ...interface{})   { r.lines = append(r.lines, format) }
func (r *recordingLogger) Infof(format string, args ...interface{})    { r.lines = append(r.lines, format) }
func (r *recordingLogger) Warningf(format string, args ...interface{}) { r.lines = append(r.lines, format) }
func (r *recordingLogger) Errorf(format string, args ...interface{})   { r.lines = append(r.lines, format) }

func TestGetWithoutSetReturnsNull(t *testing.T) {
	l := Get(context.Background())
	assert.NotNil(t, l)
	assert.NotPanics(t, func() { l.Infof("hello %d", 1) })
}

func TestSetAndGetRoundTrips(t *testing.T) {
	rec := &recordingLogger{}
	c := Set(context.Background(), rec)
	Get(c).Warningf("uh oh")
	assert.Equal(t, []string{"uh oh"}, rec.lines)
}

func TestSetFactoryIsCalledPerGet(t *testing.T) {
	calls := 0
	c := SetFactory(context.Background(), func(context.Context) Logger {
		calls++
		return Null()
	})
	Get(c)
	Get(c)
	assert.Equal(t, 2, calls)
}
