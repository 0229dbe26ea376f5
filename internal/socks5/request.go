// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package socks5

import (
	"net"
	"strconv"

	"code.hybscloud.com/socksd/internal/buffer"
)

type requestStage int

const (
	requestHeader requestStage = iota
	requestAddr
	requestDomainLen
	requestDomain
)

// RequestParser decodes the client's
// VER(1)|CMD(1)|RSV(1)|ATYP(1)|DST.ADDR(variable)|DST.PORT(2) request.
//
// Unlike the original's protocol.c, which leaves CMD=0x03
// (UDP_ASSOCIATE) as a TODO, this parser accepts both CmdConnect and
// CmdUDPAssociate; CmdBind is rejected like any other unsupported
// command. ATYPIPv6 is accepted here as well as in the UDP header
// decoder, unlike the original which only implements it in the latter.
type RequestParser struct {
	stage requestStage

	Cmd  uint8
	Atyp uint8
	Port uint16

	domainLen uint8
	addr      []byte
}

// Step consumes as much of buf as the current stage needs.
func (p *RequestParser) Step(buf *buffer.Buffer) (Outcome, error) {
	for {
		switch p.stage {
		case requestHeader:
			if buf.Readable() < 4 {
				return Incomplete, nil
			}
			ver := readByte(buf)
			if ver != Version {
				return Fatal, ErrUnsupportedVersion
			}
			cmd := readByte(buf)
			if cmd != CmdConnect && cmd != CmdUDPAssociate {
				return Fatal, ErrUnsupportedCommand
			}
			p.Cmd = cmd
			_ = readByte(buf) // RSV
			p.Atyp = readByte(buf)
			p.stage = requestAddr
		case requestAddr:
			switch p.Atyp {
			case ATYPIPv4:
				if buf.Readable() < 4+2 {
					return Incomplete, nil
				}
				p.addr = make([]byte, 4)
				buf.Consume(p.addr, 4)
				p.Port = readUint16BE(buf)
				return Done, nil
			case ATYPIPv6:
				if buf.Readable() < 16+2 {
					return Incomplete, nil
				}
				p.addr = make([]byte, 16)
				buf.Consume(p.addr, 16)
				p.Port = readUint16BE(buf)
				return Done, nil
			case ATYPDomain:
				p.stage = requestDomainLen
			default:
				return Fatal, ErrUnsupportedAddress
			}
		case requestDomainLen:
			if buf.Readable() < 1 {
				return Incomplete, nil
			}
			p.domainLen = readByte(buf)
			p.stage = requestDomain
		case requestDomain:
			if buf.Readable() < int(p.domainLen)+2 {
				return Incomplete, nil
			}
			p.addr = make([]byte, p.domainLen)
			buf.Consume(p.addr, int(p.domainLen))
			p.Port = readUint16BE(buf)
			return Done, nil
		}
	}
}

// Host returns the decoded destination as a dialable string: a
// dotted-quad or unbracketed IPv6 literal for ATYPIPv4/ATYPIPv6 (Addr
// adds the brackets), or the raw domain name for ATYPDomain. Valid
// after Step returns Done.
func (p *RequestParser) Host() string {
	switch p.Atyp {
	case ATYPIPv4, ATYPIPv6:
		return net.IP(p.addr).String()
	default:
		return string(p.addr)
	}
}

// PortString returns Port formatted for use with net.JoinHostPort / net.Dial.
func (p *RequestParser) PortString() string {
	return strconv.Itoa(int(p.Port))
}

// Addr returns p.Host() and p.PortString() joined for net.Dial.
func (p *RequestParser) Addr() string {
	return net.JoinHostPort(p.Host(), p.PortString())
}
