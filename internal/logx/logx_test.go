// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logx_test

import (
	"bytes"
	"strings"
	"testing"

	"code.hybscloud.com/socksd/internal/logx"
)

func TestInfoWritesToSink(t *testing.T) {
	var buf bytes.Buffer
	l := logx.New(&buf)
	l.Info("hello %s", "world")
	if !strings.Contains(buf.String(), "hello world") {
		t.Fatalf("log output %q missing message", buf.String())
	}
}

func TestExtraErrorEchoesToStdoutSeparateSink(t *testing.T) {
	var buf bytes.Buffer
	l := logx.New(&buf)
	l.ExtraError("boom %d", 42)
	if !strings.Contains(buf.String(), "boom 42") {
		t.Fatalf("log output %q missing message", buf.String())
	}
}
