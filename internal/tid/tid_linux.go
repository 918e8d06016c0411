// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build linux

package tid

import "golang.org/x/sys/unix"

func current() uint64 {
	return uint64(unix.Gettid())
}
