// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tunnel

import (
	"context"
	"errors"
	"net"

	"golang.org/x/sys/unix"

	"code.hybscloud.com/socksd/internal/sock"
)

// dialNonblocking resolves host and iterates its addresses, trying a
// nonblocking connect against each in turn until one succeeds or is
// left in progress — exactly tunnel_connect_to_remote's getaddrinfo
// loop, rendered over net.DefaultResolver and raw unix sockets instead
// of libc's getaddrinfo/socket/connect.
func dialNonblocking(ctx context.Context, host string, port uint16) (fd int, immediate bool, err error) {
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return -1, false, err
	}

	var lastErr error
	for _, ipAddr := range ips {
		fd, immediate, lastErr = connectOne(ipAddr.IP, port)
		if lastErr == nil {
			return fd, immediate, nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("tunnel: no addresses resolved")
	}
	return -1, false, lastErr
}

func connectOne(ip net.IP, port uint16) (fd int, immediate bool, err error) {
	var family int
	var sa unix.Sockaddr
	if ip4 := ip.To4(); ip4 != nil {
		family = unix.AF_INET
		var addr [4]byte
		copy(addr[:], ip4)
		sa = &unix.SockaddrInet4{Port: int(port), Addr: addr}
	} else {
		family = unix.AF_INET6
		var addr [16]byte
		copy(addr[:], ip.To16())
		sa = &unix.SockaddrInet6{Port: int(port), Addr: addr}
	}

	fd, err = unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, false, err
	}
	if err = sock.ApplyDefaults(fd, sock.KindTCP); err != nil {
		_ = unix.Close(fd)
		return -1, false, err
	}

	err = unix.Connect(fd, sa)
	if err == nil {
		return fd, true, nil
	}
	if errors.Is(err, unix.EINPROGRESS) {
		return fd, false, nil
	}
	_ = unix.Close(fd)
	return -1, false, err
}

// udpFamily maps a request's ATYP to the net package family string
// used to bind the UDP_ASSOCIATE relay socket.
func udpFamily(atyp uint8) string {
	if atyp == 0x04 {
		return "udp6"
	}
	return "udp4"
}
