// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"HOSTTRACE_CONFIG", "HOSTTRACE_BUFFER_SIZE", "HOSTTRACE_OUTPUT_DIR",
		"HOSTTRACE_KERNEL_NAME_FILTER", "HOSTTRACE_FILTER_FILE",
		"HOSTTRACE_FILTER_EXCLUDE", "HOSTTRACE_METRICS_ENABLED",
		"HOSTTRACE_ARCHIVE_S3_BUCKET", "PMI_RANK", "PMIX_RANK",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.BufferSize)
	assert.Equal(t, "", cfg.OutputDir)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoadBadIntegerFailsFast(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOSTTRACE_BUFFER_SIZE", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}

func TestEnvOverridesYAMLOverlay(t *testing.T) {
	clearEnv(t)
	yamlPath := filepath.Join(t.TempDir(), "hosttrace.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("buffer-size: 64\ntrace-output-dir: /from/yaml\n"), 0644))
	t.Setenv("HOSTTRACE_CONFIG", yamlPath)
	t.Setenv("HOSTTRACE_OUTPUT_DIR", "/from/env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.BufferSize)     // only set in YAML
	assert.Equal(t, "/from/env", cfg.OutputDir) // env wins
}

func TestRankFromPMIEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PMI_RANK", "3")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3", cfg.Rank)
}

func TestFilterAllowsAndExcludes(t *testing.T) {
	f := NewFilter([]string{"kernelA", "kernelB"}, false)
	assert.True(t, f.Allows("kernelA"))
	assert.False(t, f.Allows("kernelC"))

	excl := NewFilter([]string{"kernelA"}, true)
	assert.False(t, excl.Allows("kernelA"))
	assert.True(t, excl.Allows("kernelC"))

	var nilFilter *Filter
	assert.True(t, nilFilter.Allows("anything"))
}

func TestBuildFilterFromInlineList(t *testing.T) {
	cfg := &Config{KernelNameFilter: []string{"a", "b"}}
	f, err := cfg.BuildFilter(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, f.Allows("a"))
	assert.False(t, f.Allows("c"))
}

func TestBuildFilterFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0644))
	cfg := &Config{FilterFile: path}
	f, err := cfg.BuildFilter(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, f.Allows("a"))
	assert.False(t, f.Allows("c"))
}

func TestBuildFilterFromRemoteURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remoteKernel\n"))
	}))
	defer srv.Close()

	cfg := &Config{FilterFile: srv.URL}
	f, err := cfg.BuildFilter(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, f.Allows("remoteKernel"))
}
