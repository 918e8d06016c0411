// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config parses the environment-variable configuration surface,
// plus a YAML overlay and remote/hot-reload filter extensions.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the process-wide configuration resolved once at controller
// start.
type Config struct {
	// BufferSize is the raw "buffer-size" value. Negative means unbounded;
	// zero and one both mean flush-on-every-commit. It is handed to
	// buffer.ResolveCapacity unchanged.
	BufferSize int `yaml:"buffer-size"`

	// OutputDir is prepended to the derived output filename.
	OutputDir string `yaml:"trace-output-dir"`

	// KernelNameFilter is an inline allow/deny list of event names.
	KernelNameFilter []string `yaml:"kernel-name-filter"`
	// FilterFile is a path, or an http(s) URL, to a newline-separated
	// allow/deny list. Mutually exclusive with KernelNameFilter in practice,
	// but if both are set FilterFile wins.
	FilterFile string `yaml:"filter-file"`
	// FilterExclude selects exclude semantics (drop matching names) instead
	// of the default include semantics (keep only matching names).
	FilterExclude bool `yaml:"filter-exclude"`

	// MetricsEnabled is informational: it is consumed by producers, not the
	// serializer. internal/metrics is the consumer.
	MetricsEnabled bool `yaml:"metrics-enabled"`

	// Rank is injected into the process-name metadata label when set. It is
	// never read from the YAML overlay -- it only ever comes from the PMI/
	// PMIX environment, since it identifies a specific running process.
	Rank string `yaml:"-"`

	// ArchiveS3Bucket, when set, causes the controller to upload the
	// finished trace file to S3 after it closes the local file (see
	// internal/archive). This has no effect on the core's own framing
	// guarantees.
	ArchiveS3Bucket string `yaml:"trace-archive-s3-bucket"`
}

func defaults() *Config {
	return &Config{BufferSize: -1}
}

// Load resolves a Config from, in increasing priority: built-in defaults,
// an optional YAML file named by HOSTTRACE_CONFIG, and environment
// variables. A bad integer or an unreadable YAML overlay both fail fast
// with an error, before any producer has a chance to register.
func Load() (*Config, error) {
	cfg := defaults()

	if p := os.Getenv("HOSTTRACE_CONFIG"); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("config: reading overlay %q: %w", p, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing overlay %q: %w", p, err)
		}
	}

	if err := overlayEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlayEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("HOSTTRACE_BUFFER_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: HOSTTRACE_BUFFER_SIZE=%q is not an integer: %w", v, err)
		}
		cfg.BufferSize = n
	}
	if v, ok := os.LookupEnv("HOSTTRACE_OUTPUT_DIR"); ok {
		cfg.OutputDir = v
	}
	if v, ok := os.LookupEnv("HOSTTRACE_KERNEL_NAME_FILTER"); ok {
		cfg.KernelNameFilter = splitNonEmpty(v, ",")
	}
	if v, ok := os.LookupEnv("HOSTTRACE_FILTER_FILE"); ok {
		cfg.FilterFile = v
	}
	if v, ok := os.LookupEnv("HOSTTRACE_FILTER_EXCLUDE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: HOSTTRACE_FILTER_EXCLUDE=%q is not a boolean: %w", v, err)
		}
		cfg.FilterExclude = b
	}
	if v, ok := os.LookupEnv("HOSTTRACE_METRICS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: HOSTTRACE_METRICS_ENABLED=%q is not a boolean: %w", v, err)
		}
		cfg.MetricsEnabled = b
	}
	if v, ok := os.LookupEnv("HOSTTRACE_ARCHIVE_S3_BUCKET"); ok {
		cfg.ArchiveS3Bucket = v
	}
	if v, ok := os.LookupEnv("PMI_RANK"); ok {
		cfg.Rank = v
	} else if v, ok := os.LookupEnv("PMIX_RANK"); ok {
		cfg.Rank = v
	}
	return nil
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
