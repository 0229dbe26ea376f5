// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hexdump_test

import (
	"strings"
	"testing"

	"code.hybscloud.com/socksd/internal/hexdump"
)

func TestStringShort(t *testing.T) {
	got := hexdump.String([]byte{0xab, 0xcd, 0xef})
	want := "ab cd ef"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestStringEmpty(t *testing.T) {
	if got := hexdump.String(nil); got != "" {
		t.Fatalf("String(nil) = %q, want empty", got)
	}
}

func TestStringTruncates(t *testing.T) {
	data := make([]byte, 200)
	got := hexdump.String(data)
	if !strings.HasSuffix(got, "...(truncated)") {
		t.Fatalf("expected truncation marker, got %q", got)
	}
	// 128 bytes rendered as "xx " pairs minus the trailing space, plus the marker.
	wantPrefixLen := 128*3 - 1
	if !strings.HasPrefix(got, strings.Repeat("00 ", 127)+"00") {
		t.Fatalf("expected 128 rendered bytes, got prefix %q", got[:min(len(got), wantPrefixLen)])
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
