// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package trace

import (
	"context"
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// TestControllerLifecycle exercises the Controller singleton across its
// full life: Start installs it as Current, producer calls land in the
// file, and Shutdown both tears it down and makes it unreachable again.
func TestControllerLifecycle(t *testing.T) {
	Convey("Given no active controller", t, func() {
		for _, k := range []string{"HOSTTRACE_OUTPUT_DIR", "HOSTTRACE_BUFFER_SIZE"} {
			os.Unsetenv(k)
		}
		dir := t.TempDir()
		os.Setenv("HOSTTRACE_OUTPUT_DIR", dir)
		defer os.Unsetenv("HOSTTRACE_OUTPUT_DIR")

		So(Current(), ShouldBeNil)

		Convey("When Start is called", func() {
			c, err := Start(context.Background())
			So(err, ShouldBeNil)
			Reset(func() {
				if c != nil {
					c.Shutdown(context.Background())
				}
			})

			Convey("Then it becomes the active controller", func() {
				So(Current(), ShouldEqual, c)
			})

			Convey("Then a Mark call is reflected in the output after Shutdown", func() {
				c.Mark("phase-one", 1, 1)
				So(c.Shutdown(context.Background()), ShouldBeNil)

				data, readErr := os.ReadFile(c.OutputPath())
				So(readErr, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "phase-one")
			})

			Convey("Then Shutdown clears the active controller", func() {
				So(c.Shutdown(context.Background()), ShouldBeNil)
				So(Current(), ShouldBeNil)
			})
		})
	})
}
