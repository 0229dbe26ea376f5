// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hexdump renders a byte slice as a truncated hex string for
// logging payloads that the protocol sniffers did not recognize.
package hexdump

import "strings"

// maxBytes bounds how much of a payload is rendered; anything beyond
// it is summarized with a trailing marker instead of printed.
const maxBytes = 128

// String renders up to the first maxBytes of data as space-separated
// two-digit hex pairs, appending "...(truncated)" when data is longer.
func String(data []byte) string {
	n := len(data)
	if n > maxBytes {
		n = maxBytes
	}
	var b strings.Builder
	b.Grow(n*3 + 16)
	const hexDigits = "0123456789abcdef"
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		c := data[i]
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	if len(data) > maxBytes {
		b.WriteString(" ...(truncated)")
	}
	return b.String()
}
