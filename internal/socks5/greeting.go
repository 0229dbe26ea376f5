// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package socks5

import "code.hybscloud.com/socksd/internal/buffer"

type greetingStage int

const (
	greetingHeader greetingStage = iota
	greetingMethods
)

// GreetingParser decodes the client's opening
// VER(1)|NMETHODS(1)|METHODS(1-255) message.
type GreetingParser struct {
	stage    greetingStage
	nmethods uint8
	methods  []byte
}

// Step consumes as much of buf as the greeting needs. Call it again
// with more data after an Incomplete result.
func (p *GreetingParser) Step(buf *buffer.Buffer) (Outcome, error) {
	for {
		switch p.stage {
		case greetingHeader:
			if buf.Readable() < 2 {
				return Incomplete, nil
			}
			ver := readByte(buf)
			if ver != Version {
				return Fatal, ErrUnsupportedVersion
			}
			p.nmethods = readByte(buf)
			p.methods = make([]byte, p.nmethods)
			p.stage = greetingMethods
		case greetingMethods:
			if buf.Readable() < int(p.nmethods) {
				return Incomplete, nil
			}
			buf.Consume(p.methods, int(p.nmethods))
			return Done, nil
		}
	}
}

// Methods returns the client's offered authentication methods. Valid
// after Step returns Done.
func (p *GreetingParser) Methods() []byte { return p.methods }

// SupportsUserPass reports whether 0x02 (USERNAME/PASSWORD) is among
// the offered methods.
func (p *GreetingParser) SupportsUserPass() bool {
	for _, m := range p.methods {
		if m == MethodUserPass {
			return true
		}
	}
	return false
}
