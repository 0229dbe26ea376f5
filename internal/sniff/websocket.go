// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sniff

import "code.hybscloud.com/socksd/internal/logx"

const opcodeText = 0x1

// WebSocket recognizes an unfragmented, unmasked text frame (opcode
// 0x1) whose payload length fits the one-byte short form (0-125), and
// logs its payload as text. Masked frames, non-text opcodes, and
// extended-length frames all report false — this is a passive
// best-effort recognizer, not a WebSocket implementation.
func WebSocket(log *logx.Logger, data []byte, isClient bool) bool {
	if len(data) < 2 {
		return false
	}

	if data[0]&0x80 == 0 { // FIN clear: fragmented message
		return false
	}
	opcode := data[0] & 0x0f
	if opcode != opcodeText {
		return false
	}

	if data[1]&0x80 != 0 { // masked
		return false
	}
	rawLength := int(data[1] & 0x7f)
	if rawLength > 125 { // 126/127 select an extended length field
		return false
	}
	headerLen := 2

	if len(data) < headerLen+rawLength {
		return false
	}

	payload := data[headerLen : headerLen+rawLength]
	log.Info("WebSocket %s, %d bytes:\n%s", direction(isClient), rawLength, payload)
	return true
}
