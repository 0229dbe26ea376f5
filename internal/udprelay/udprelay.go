// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package udprelay implements the datagram side of SOCKS5
// UDP_ASSOCIATE (RFC 1928 §7): a fresh UDP socket per association,
// framing client→remote and remote→client datagrams with the
// RSV|FRAG|ATYP|DST.ADDR|DST.PORT header. Unlike the TCP tunnel, an
// Association does not run on the shared reactor: it owns a dedicated
// goroutine per spec, cancellable via context instead of the
// original's unbounded for(;;) loop.
package udprelay

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"code.hybscloud.com/socksd/internal/hexdump"
	"code.hybscloud.com/socksd/internal/logx"
	"code.hybscloud.com/socksd/internal/socks5"
)

const maxDatagram = 65536

// pollInterval bounds how long Run blocks in ReadFromUDP before
// rechecking ctx, so cancellation is prompt without busy-waiting.
const pollInterval = 500 * time.Millisecond

// Association relays datagrams for one UDP_ASSOCIATE request. The
// client's address is not known in advance — RFC 1928 allows DST.ADDR
// /DST.PORT in the ASSOCIATE request to be all-zero, meaning "I will
// tell you my address by sending the first datagram" — so Association
// pins it from whichever peer sends first, per spec.md §4.7.
type Association struct {
	conn       *net.UDPConn
	clientAddr *net.UDPAddr
	log        *logx.Logger
}

// Associate binds a fresh UDP socket on an ephemeral port of the given
// family ("udp4" or "udp6", matching the TCP request's address type)
// and returns an Association ready to Run.
func Associate(log *logx.Logger, family string) (*Association, error) {
	conn, err := net.ListenUDP(family, &net.UDPAddr{})
	if err != nil {
		return nil, err
	}
	return &Association{conn: conn, log: log}, nil
}

// LocalAddr is the address the client should send its datagrams to;
// it becomes BND.ADDR/BND.PORT in the CONNECT-style reply on the
// control connection.
func (a *Association) LocalAddr() *net.UDPAddr {
	return a.conn.LocalAddr().(*net.UDPAddr)
}

// Close releases the underlying socket, unblocking any in-flight Run.
func (a *Association) Close() error {
	return a.conn.Close()
}

// Run relays datagrams until ctx is cancelled or the socket errors.
func (a *Association) Run(ctx context.Context) {
	buf := make([]byte, maxDatagram)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = a.conn.SetReadDeadline(time.Now().Add(pollInterval))
		n, src, err := a.conn.ReadFromUDP(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			a.log.Warn("UDP relay read error: %v", err)
			return
		}

		if a.clientAddr == nil {
			a.clientAddr = src
			a.log.Info("UDP relay pinned client address %s", src)
		}

		if src.String() == a.clientAddr.String() {
			a.forwardFromClient(buf[:n])
		} else {
			a.forwardFromRemote(buf[:n], src)
		}
	}
}

// forwardFromClient strips the SOCKS5 UDP header and forwards the
// payload to the requested remote. Malformed headers, fragmentation
// requests, and unresolvable domains are dropped silently, matching
// relay_udp's `continue`-on-malformed-packet behavior.
func (a *Association) forwardFromClient(data []byte) {
	dest, payload, ok := decodeHeader(data)
	if !ok {
		return
	}
	a.log.Info("UDP client → remote, %d bytes: %s", len(payload), hexdump.String(payload))
	if _, err := a.conn.WriteToUDP(payload, dest); err != nil {
		a.log.Warn("UDP relay write to remote failed: %v", err)
	}
}

// forwardFromRemote wraps data with a SOCKS5 UDP header addressed
// from src and sends it back to the pinned client.
func (a *Association) forwardFromRemote(data []byte, src *net.UDPAddr) {
	a.log.Info("UDP remote → client, %d bytes: %s", len(data), hexdump.String(data))
	framed := encodeHeader(src, data)
	if _, err := a.conn.WriteToUDP(framed, a.clientAddr); err != nil {
		a.log.Warn("UDP relay write to client failed: %v", err)
	}
}

func decodeHeader(data []byte) (dest *net.UDPAddr, payload []byte, ok bool) {
	if len(data) < 4 {
		return nil, nil, false
	}
	pos := 2 // RSV
	if data[pos] != 0x00 {
		return nil, nil, false // FRAG must be 0: fragmentation unsupported
	}
	pos++
	atyp := data[pos]
	pos++

	switch atyp {
	case socks5.ATYPIPv4:
		if len(data) < pos+4+2 {
			return nil, nil, false
		}
		ip := net.IP(data[pos : pos+4])
		pos += 4
		port := int(data[pos])<<8 | int(data[pos+1])
		pos += 2
		return &net.UDPAddr{IP: ip, Port: port}, data[pos:], true
	case socks5.ATYPIPv6:
		if len(data) < pos+16+2 {
			return nil, nil, false
		}
		ip := net.IP(data[pos : pos+16])
		pos += 16
		port := int(data[pos])<<8 | int(data[pos+1])
		pos += 2
		return &net.UDPAddr{IP: ip, Port: port}, data[pos:], true
	case socks5.ATYPDomain:
		if len(data) < pos+1 {
			return nil, nil, false
		}
		domainLen := int(data[pos])
		pos++
		if len(data) < pos+domainLen+2 {
			return nil, nil, false
		}
		domain := string(data[pos : pos+domainLen])
		pos += domainLen
		port := int(data[pos])<<8 | int(data[pos+1])
		pos += 2
		resolved, err := net.ResolveUDPAddr("udp", net.JoinHostPort(domain, strconv.Itoa(port)))
		if err != nil {
			return nil, nil, false
		}
		return resolved, data[pos:], true
	default:
		return nil, nil, false
	}
}

func encodeHeader(src *net.UDPAddr, payload []byte) []byte {
	header := []byte{0x00, 0x00, 0x00} // RSV RSV FRAG
	if ip4 := src.IP.To4(); ip4 != nil {
		header = append(header, socks5.ATYPIPv4)
		header = append(header, ip4...)
	} else {
		header = append(header, socks5.ATYPIPv6)
		header = append(header, src.IP.To16()...)
	}
	header = append(header, byte(src.Port>>8), byte(src.Port))
	return append(header, payload...)
}
