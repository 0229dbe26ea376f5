// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package socks5 implements the wire format of RFC 1928 (SOCKS
// Protocol Version 5) and RFC 1929 (username/password sub-negotiation)
// as a set of resumable parsers. Each parser carries its own stage and
// partial-PDU storage and can be fed a buffer.Buffer repeatedly,
// picking up exactly where it left off — the stage-enum-plus-struct
// shape the original's protocol.c approximates with goto labels and a
// shared read_count cursor.
package socks5

import "code.hybscloud.com/socksd/internal/buffer"

// Version is the only SOCKS protocol version this proxy accepts.
const Version = 0x05

// Authentication methods (RFC 1928 §3).
const (
	MethodNoAuth         = 0x00
	MethodUserPass       = 0x02
	MethodNoneAcceptable = 0xff
)

// Request commands (RFC 1928 §4). BIND is not implemented.
const (
	CmdConnect      = 0x01
	CmdBind         = 0x02
	CmdUDPAssociate = 0x03
)

// Address types (RFC 1928 §5).
const (
	ATYPIPv4   = 0x01
	ATYPDomain = 0x03
	ATYPIPv6   = 0x04
)

// MaxCredentialLen bounds both ULEN and PLEN in the RFC 1929
// sub-negotiation: usernames and passwords over 20 bytes are rejected
// rather than accepted and silently truncated.
const MaxCredentialLen = 20

// Outcome reports how far a Step call got.
type Outcome int

const (
	// Incomplete means the buffer held fewer bytes than the current
	// stage needs; the caller should wait for more data and call Step
	// again without discarding what was already consumed.
	Incomplete Outcome = iota
	// Done means the PDU is fully parsed; the parser holds the decoded
	// fields until the caller moves on to the next stage.
	Done
	// Fatal means the PDU violates the protocol; the caller should
	// close the connection. The accompanying error explains why.
	Fatal
)

func readByte(buf *buffer.Buffer) byte {
	var b [1]byte
	buf.Consume(b[:], 1)
	return b[0]
}

func readUint16BE(buf *buffer.Buffer) uint16 {
	var b [2]byte
	buf.Consume(b[:], 2)
	return uint16(b[0])<<8 | uint16(b[1])
}
