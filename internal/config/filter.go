// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"go.chromium.org/luci/hosttrace/common/logging"
)

// Filter implements the include/exclude event-name matching for
// kernel-name-filter/filter-file. A nil *Filter allows everything.
type Filter struct {
	names   map[string]struct{}
	exclude bool
}

// NewFilter builds a Filter from an explicit name list.
func NewFilter(names []string, exclude bool) *Filter {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &Filter{names: set, exclude: exclude}
}

// Allows reports whether an event named name should be recorded.
func (f *Filter) Allows(name string) bool {
	if f == nil {
		return true
	}
	_, listed := f.names[name]
	if f.exclude {
		return !listed
	}
	return listed
}

// BuildFilter resolves the effective Filter for cfg: FilterFile (local path
// or http(s) URL) takes priority over the inline KernelNameFilter list; no
// configuration at all means no filtering.
func (cfg *Config) BuildFilter(ctx context.Context, client *http.Client) (*Filter, error) {
	switch {
	case cfg.FilterFile == "" && len(cfg.KernelNameFilter) == 0:
		return nil, nil
	case strings.HasPrefix(cfg.FilterFile, "http://"), strings.HasPrefix(cfg.FilterFile, "https://"):
		return FetchRemoteFilter(ctx, cfg.FilterFile, cfg.FilterExclude, client)
	case cfg.FilterFile != "":
		return LoadFilterFile(cfg.FilterFile, cfg.FilterExclude)
	default:
		return NewFilter(cfg.KernelNameFilter, cfg.FilterExclude), nil
	}
}

// LoadFilterFile reads a newline-separated list of event names from path.
func LoadFilterFile(path string, exclude bool) (*Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading filter file %q: %w", path, err)
	}
	return NewFilter(linesOf(data), exclude), nil
}

// FetchRemoteFilter fetches a newline-separated event-name list over HTTP.
// This is config acquisition, not trace emission: it runs once, before any
// producer registers, and never touches the trace file. client may be an
// OAuth2-authenticated client built by OAuthHTTPClient; nil falls back to
// http.DefaultClient.
func FetchRemoteFilter(ctx context.Context, url string, exclude bool, client *http.Client) (*Filter, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("config: building remote filter request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config: fetching remote filter %q: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config: fetching remote filter %q: status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("config: reading remote filter %q: %w", url, err)
	}
	return NewFilter(linesOf(body), exclude), nil
}

func linesOf(data []byte) []string {
	return splitNonEmpty(string(data), "\n")
}

// WatchFilterFile watches a local filter file for changes and invokes
// onChange with a freshly-parsed Filter whenever it is rewritten, so a
// long-running instrumented process can pick up filter edits without a
// restart. It has no effect (and returns a nil, nil) for remote (http) or
// unset filter files.
func WatchFilterFile(ctx context.Context, path string, exclude bool, onChange func(*Filter), diag logging.Logger) (io.Closer, error) {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return nil, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: starting filter watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("config: watching %q: %w", path, err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				f, err := LoadFilterFile(path, exclude)
				if err != nil {
					diag.Warningf("hosttrace: reloading filter file %q: %v", path, err)
					continue
				}
				onChange(f)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				diag.Warningf("hosttrace: filter watcher: %v", err)
			case <-ctx.Done():
				w.Close()
				return
			}
		}
	}()
	return w, nil
}
