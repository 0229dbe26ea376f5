// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package socks5

import "net"

// Reply status codes (RFC 1928 §6).
const (
	ReplySucceeded       = 0x00
	ReplyGeneralFailure  = 0x01
	ReplyCommandNotSupported = 0x07
	ReplyAddressNotSupported = 0x08
)

// GreetingReply builds the VER|METHOD reply to a client greeting.
func GreetingReply(method uint8) []byte {
	return []byte{Version, method}
}

// AuthReply builds the sub-negotiation VER|STATUS reply. ver is the
// sub-negotiation version the client sent (RFC 1929 defines 0x01,
// distinct from the SOCKS VER=0x05 used elsewhere); status is 0 on
// success, nonzero on failure. Mirrors protocol.c's
// "reply[0] = ap->ver;" echo.
func AuthReply(ver, status uint8) []byte {
	return []byte{ver, status}
}

// ConnectReply builds the VER|REP|RSV|ATYP|BND.ADDR|BND.PORT reply to
// a CONNECT request, encoding bound from a *net.TCPAddr or
// *net.UDPAddr family exactly as the original's tunnel_notify_connected
// does from getsockname's sockaddr.
func ConnectReply(status uint8, bound net.Addr) []byte {
	ip, port := splitAddr(bound)
	header := []byte{Version, status, 0x00}
	if ip4 := ip.To4(); ip4 != nil {
		header = append(header, ATYPIPv4)
		header = append(header, ip4...)
	} else {
		header = append(header, ATYPIPv6)
		header = append(header, ip.To16()...)
	}
	header = append(header, byte(port>>8), byte(port))
	return header
}

func splitAddr(addr net.Addr) (net.IP, int) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP, a.Port
	case *net.UDPAddr:
		return a.IP, a.Port
	default:
		host, portStr, err := net.SplitHostPort(addr.String())
		if err != nil {
			return net.IPv4zero, 0
		}
		port := 0
		for _, c := range portStr {
			if c < '0' || c > '9' {
				break
			}
			port = port*10 + int(c-'0')
		}
		return net.ParseIP(host), port
	}
}
