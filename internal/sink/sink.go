// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package sink implements the process-singleton append-only text sink the
// trace controller writes through. It imposes no framing of its own --
// framing is the trace controller's responsibility -- and guarantees that
// each Log call is atomic with respect to every other Log call.
package sink

import (
	"os"
	"sync"
)

// Logger is an append-only byte sink guarded by a single mutex. Unlike the
// original design, this mutex is never recursive: every call site that holds
// it releases it before calling back into Logger, eliminating the need for
// reentrant locking (see the design notes on recursive mutexes).
type Logger struct {
	mu   sync.Mutex
	file *os.File
	pos  int64
}

// Open opens path for writing and returns a Logger ready to accept Log
// calls. With truncate set, any existing content is discarded; otherwise
// the file is opened for append and its existing content is kept. It writes
// nothing by itself.
func Open(path string, truncate bool) (*Logger, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if truncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}
	var pos int64
	if !truncate {
		if info, err := f.Stat(); err == nil {
			pos = info.Size()
		}
	}
	return &Logger{file: f, pos: pos}, nil
}

// Log appends b to the file atomically with respect to other Log calls.
// Bytes are written verbatim; Logger imposes no framing.
func (l *Logger) Log(b []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, err := l.file.Write(b)
	l.pos += int64(n)
	return err
}

// Flush forces an OS-level flush of buffered writes. Since Logger does no
// user-space buffering beyond the OS, this mostly exists to surface fsync
// errors to the caller at a well-defined point.
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Sync()
}

// Position returns the current file offset: the file's size at Open (zero
// when opened with truncate) plus the number of bytes written through Log
// since.
func (l *Logger) Position() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pos
}

// Close releases the file handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Remove deletes path. It is an out-of-band helper used by the controller to
// delete an empty trace; it does not go through any Logger instance.
func Remove(path string) error {
	return os.Remove(path)
}
