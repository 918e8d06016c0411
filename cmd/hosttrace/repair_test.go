// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairAppendsEpilogueToTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, os.WriteFile(path, []byte(`{ "traceEvents":[
{"ph":"M","name":"process_name","pid":1,"ts":0,"args":{"name":"HOSTtest"}},
{"ph":"R","tid":1,"pid":1,"name":"m","cat":"cpu_op","ts":0,"id":1}`), 0644))

	require.NoError(t, repair(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), epilogue)
}

func TestRepairIsIdempotentOnWellFormedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	content := `{ "traceEvents":[
{"ph":"M","name":"process_name","pid":1,"ts":0,"args":{"name":"HOSTtest"}}` + epilogue
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	require.NoError(t, repair(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestRepairRejectsNonTraceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notatrace.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"foo":"bar"}`), 0644))

	assert.Error(t, repair(path))
}
