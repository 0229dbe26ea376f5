// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package socks5

import "code.hybscloud.com/socksd/internal/buffer"

type authStage int

const (
	authHeader authStage = iota
	authUname
	authPlen
	authPasswd
)

// AuthParser decodes the RFC 1929 sub-negotiation
// VER(1)|ULEN(1)|UNAME(1-255)|PLEN(1)|PASSWD(1-255).
type AuthParser struct {
	stage authStage
	ver   uint8
	ulen  uint8
	uname []byte
	plen  uint8
	passwd []byte
}

// Step consumes as much of buf as the current stage needs.
func (p *AuthParser) Step(buf *buffer.Buffer) (Outcome, error) {
	for {
		switch p.stage {
		case authHeader:
			if buf.Readable() < 2 {
				return Incomplete, nil
			}
			p.ver = readByte(buf) // sub-negotiation version, echoed back in AuthReply, not checked against VER=5
			p.ulen = readByte(buf)
			if p.ulen > MaxCredentialLen {
				return Fatal, ErrCredentialTooLong
			}
			p.uname = make([]byte, p.ulen)
			p.stage = authUname
		case authUname:
			if buf.Readable() < int(p.ulen) {
				return Incomplete, nil
			}
			buf.Consume(p.uname, int(p.ulen))
			p.stage = authPlen
		case authPlen:
			if buf.Readable() < 1 {
				return Incomplete, nil
			}
			p.plen = readByte(buf)
			if p.plen > MaxCredentialLen {
				return Fatal, ErrCredentialTooLong
			}
			p.passwd = make([]byte, p.plen)
			p.stage = authPasswd
		case authPasswd:
			if buf.Readable() < int(p.plen) {
				return Incomplete, nil
			}
			buf.Consume(p.passwd, int(p.plen))
			return Done, nil
		}
	}
}

// Username returns the decoded username. Valid after Step returns Done.
func (p *AuthParser) Username() []byte { return p.uname }

// Password returns the decoded password. Valid after Step returns Done.
func (p *AuthParser) Password() []byte { return p.passwd }

// Version returns the sub-negotiation version byte the client sent,
// which AuthReply must echo back (RFC 1929 uses its own VER=0x01,
// distinct from the SOCKS VER=0x05).
func (p *AuthParser) Version() uint8 { return p.ver }

// Matches reports whether the decoded credentials equal wantUser and
// wantPass byte-for-byte, over their exact lengths — no NUL-terminated
// string comparison, so an embedded NUL byte in either side cannot
// make two different-length credentials compare equal.
func (p *AuthParser) Matches(wantUser, wantPass []byte) bool {
	return bytesEqual(p.uname, wantUser) && bytesEqual(p.passwd, wantPass)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
