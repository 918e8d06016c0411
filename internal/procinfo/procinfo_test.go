// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package procinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentNameIsNonEmpty(t *testing.T) {
	name := CurrentName()
	assert.NotEmpty(t, name)
}

func TestHostnameIsNonEmpty(t *testing.T) {
	assert.NotEmpty(t, Hostname())
}
