// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package listener

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// resolvedAddr is one candidate bind address/family pair, standing in
// for a single addrinfo_t node from server_init's getaddrinfo loop.
type resolvedAddr struct {
	family   int
	sockaddr unix.Sockaddr
	ip       net.IP
	port     int
}

func (a resolvedAddr) String() string {
	return net.JoinHostPort(a.ip.String(), strconv.Itoa(a.port))
}

// resolveListenAddrs turns host:port into bindable candidates,
// accepting both IPv4 and IPv6 results the way AF_UNSPEC does. An
// empty host resolves to the wildcard address on both families.
func resolveListenAddrs(host, port string) ([]resolvedAddr, error) {
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("listener: invalid port %q: %w", port, err)
	}

	if host == "" {
		return []resolvedAddr{
			{family: unix.AF_INET, ip: net.IPv4zero, port: p, sockaddr: &unix.SockaddrInet4{Port: p}},
			{family: unix.AF_INET6, ip: net.IPv6zero, port: p, sockaddr: &unix.SockaddrInet6{Port: p}},
		}, nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("listener: resolve %q: %w", host, err)
	}

	addrs := make([]resolvedAddr, 0, len(ips))
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			var raw [4]byte
			copy(raw[:], ip4)
			addrs = append(addrs, resolvedAddr{
				family:   unix.AF_INET,
				ip:       ip4,
				port:     p,
				sockaddr: &unix.SockaddrInet4{Port: p, Addr: raw},
			})
			continue
		}
		var raw [16]byte
		copy(raw[:], ip.To16())
		addrs = append(addrs, resolvedAddr{
			family:   unix.AF_INET6,
			ip:       ip,
			port:     p,
			sockaddr: &unix.SockaddrInet6{Port: p, Addr: raw},
		})
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("listener: %q resolved to no usable addresses", host)
	}
	return addrs, nil
}
