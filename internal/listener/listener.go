// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package listener resolves a host:port pair, binds a nonblocking
// listening socket, and hands every accepted connection to a factory
// function — the Go-native equivalent of server_init/accept_handle's
// getaddrinfo-then-listen setup and EPOLLIN-on-listenfd dispatch.
package listener

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"code.hybscloud.com/socksd/internal/logx"
	"code.hybscloud.com/socksd/internal/reactor"
	"code.hybscloud.com/socksd/internal/sock"
)

const backlog = 1024

// Factory is called once per accepted client fd. It mirrors
// tunnel_create being invoked from accept_handle.
type Factory func(clientFd int) error

// Listener owns the listening socket and is itself a reactor.Handler,
// dispatching every EPOLLIN as a new accept rather than a data read.
type Listener struct {
	fd      int
	reactor *reactor.Reactor
	log     *logx.Logger
	factory Factory
}

// New resolves host:port (accepting both IPv4 and IPv6, same as the
// original's AF_UNSPEC hint), binds, and starts listening. The socket
// is registered with r for EPOLLIN events immediately.
func New(r *reactor.Reactor, log *logx.Logger, host, port string, factory Factory) (*Listener, error) {
	fd, addr, err := bind(host, port)
	if err != nil {
		return nil, err
	}

	if err := unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}
	log.Info("listening socket fd=%d bound to %s", fd, addr)

	l := &Listener{fd: fd, reactor: r, log: log, factory: factory}
	if err := r.Add(fd, reactor.Readable, l); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return l, nil
}

// bind tries every address getaddrinfo-equivalent resolution returns,
// in order, until one socket/bind pair succeeds — mirroring
// server_init's ai_next loop.
func bind(host, port string) (fd int, addr string, err error) {
	addrs, herr := resolveListenAddrs(host, port)
	if herr != nil {
		return -1, "", herr
	}

	var lastErr error
	for _, a := range addrs {
		fd, lastErr = bindOne(a)
		if lastErr == nil {
			return fd, a.String(), nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("listener: no usable address")
	}
	return -1, "", lastErr
}

func bindOne(a resolvedAddr) (int, error) {
	fd, err := unix.Socket(a.family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	if err := sock.SetReuseAddr(fd); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	if err := sock.SetNonblock(fd); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	if err := unix.Bind(fd, a.sockaddr); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// Fd returns the listening socket's file descriptor.
func (l *Listener) Fd() int { return l.fd }

// Close stops monitoring and closes the listening socket.
func (l *Listener) Close() error {
	_ = l.reactor.Del(l.fd)
	return unix.Close(l.fd)
}

// OnReadable satisfies reactor.Handler: the listening socket became
// readable, meaning one or more connections are waiting in the accept
// queue. Mirrors accept_handle, looping to drain the backlog the way
// a level-triggered listenfd naturally re-fires otherwise.
func (l *Listener) OnReadable() {
	for {
		clientFd, _, err := unix.Accept(l.fd)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
				return
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			l.log.Error("accept failed on listenfd=%d: %v", l.fd, err)
			return
		}
		if err := l.factory(clientFd); err != nil {
			l.log.Warn("failed to create tunnel for fd=%d: %v", clientFd, err)
			_ = unix.Close(clientFd)
		}
	}
}

// OnWritable satisfies reactor.Handler; the listening socket never
// registers writable interest.
func (l *Listener) OnWritable() {}
