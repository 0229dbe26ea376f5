// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tunnel

import (
	"net"

	"golang.org/x/sys/unix"
)

// getSocketError reads SO_ERROR off fd, the idiomatic way to learn
// whether a nonblocking connect succeeded once epoll reports it
// writable — mirrors tunnel_connecting_handle's getsockopt call.
func getSocketError(fd int) (errno int, err error) {
	return unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
}

// localAddr reads fd's locally bound address via getsockname,
// translated into a net.Addr so socks5.ConnectReply can encode
// BND.ADDR/BND.PORT the way tunnel_notify_connected does.
func localAddr(fd int) (net.Addr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, err
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, a.Addr[:])
		return &net.TCPAddr{IP: ip, Port: a.Port}, nil
	case *unix.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, a.Addr[:])
		return &net.TCPAddr{IP: ip, Port: a.Port}, nil
	default:
		return nil, unix.EAFNOSUPPORT
	}
}
