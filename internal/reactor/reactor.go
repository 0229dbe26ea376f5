// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package reactor is a single-threaded epoll event loop. One goroutine
// calls Run and dispatches every readiness event; handler callbacks
// therefore never run concurrently with each other, which is what lets
// the rest of this module (buffer, sock, tunnel) skip synchronization
// entirely. See internal/freeze for the one piece of state another
// goroutine is allowed to touch.
package reactor

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

const maxEvents = 64

// Event flags passed to Add/Modify. These mirror epoll's EPOLLIN/OUT
// directly so callers never need to import golang.org/x/sys/unix
// themselves. Every fd in this module is level-triggered, matching
// the original's plain epoll_add/epoll_modify calls.
const (
	Readable = unix.EPOLLIN
	Writable = unix.EPOLLOUT
)

// Handler receives readiness callbacks for a registered fd.
type Handler interface {
	OnReadable()
	OnWritable()
}

// Reactor owns one epoll instance and the table of fds registered on
// it. It is not safe for concurrent use; Add/Modify/Del are meant to be
// called from within a Handler callback, i.e. from the same goroutine
// that calls Run.
type Reactor struct {
	epfd    int
	handler map[int]Handler
}

// New creates an epoll instance.
func New() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &Reactor{epfd: epfd, handler: make(map[int]Handler)}, nil
}

// Add registers fd for the given event mask and associates h with it.
func (r *Reactor) Add(fd int, events uint32, h Handler) error {
	r.handler[fd] = h
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		delete(r.handler, fd)
		return fmt.Errorf("reactor: epoll_ctl add fd=%d: %w", fd, err)
	}
	return nil
}

// Modify changes the event mask for an already-registered fd. Tunnels
// use this to arm EPOLLOUT only while a socket's write buffer is
// nonempty, and drop it again once drained.
func (r *Reactor) Modify(fd int, events uint32) error {
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl mod fd=%d: %w", fd, err)
	}
	return nil
}

// Del unregisters fd. Callers still close fd themselves afterward.
func (r *Reactor) Del(fd int) error {
	delete(r.handler, fd)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.EBADF) {
			return nil
		}
		return fmt.Errorf("reactor: epoll_ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Run blocks, dispatching readiness events until epoll_wait returns an
// error other than EINTR, which in practice happens only once epfd has
// been closed (for example by Close); otherwise Run exits only with the
// process.
func (r *Reactor) Run() error {
	events := make([]unix.EpollEvent, maxEvents)
	for {
		n, err := unix.EpollWait(r.epfd, events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("reactor: epoll_wait: %w", err)
		}
		for i := 0; i < n; i++ {
			ev := events[i]
			h, ok := r.handler[int(ev.Fd)]
			if !ok {
				continue
			}
			if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
				h.OnReadable()
			}
			if ev.Events&unix.EPOLLOUT != 0 {
				h.OnWritable()
			}
		}
	}
}

// Close releases the epoll fd. Registered fds are left untouched.
func (r *Reactor) Close() error {
	return unix.Close(r.epfd)
}
