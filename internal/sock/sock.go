// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sock wraps one nonblocking file descriptor with its read and
// write buffers and wires it into a reactor. A Socket never imports
// internal/tunnel; instead a tunnel implements Owner and a Socket calls
// back into it by interface, which is how this module breaks the raw
// bidirectional pointer cycle between a socket and its tunnel that the
// C original uses.
package sock

import (
	"golang.org/x/sys/unix"

	"code.hybscloud.com/socksd/internal/buffer"
	"code.hybscloud.com/socksd/internal/reactor"
)

// State mirrors sock_state_t: a socket moves forward through these
// states and never backward.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateHalfClosed
	StateClosed
)

// Owner is implemented by the tunnel that created a Socket. A Socket
// delegates every event and lifecycle transition to its owner instead
// of holding tunnel-shaped state itself.
type Owner interface {
	// OnReadable is called when s has data to read.
	OnReadable(s *Socket)
	// OnWritable is called when s's write buffer has drained enough to
	// accept more, or a pending nonblocking connect has resolved.
	OnWritable(s *Socket)
	// ForwardHalfClose is called once, when s transitions to
	// StateHalfClosed, so the owner can hand s's unread bytes to the
	// peer socket's write buffer if the tunnel is fully connected.
	ForwardHalfClose(s *Socket)
	// Forgotten is called after s is fully closed and removed from the
	// reactor, so the owner can drop its reference and release the
	// tunnel once both sockets are gone.
	Forgotten(s *Socket)
}

const initialBufferCapacity = 1024

// Socket is one half of a tunnel: a fd plus its read/write buffers.
type Socket struct {
	fd       int
	State    State
	IsClient bool

	ReadBuf  *buffer.Buffer
	WriteBuf *buffer.Buffer

	owner   Owner
	reactor *reactor.Reactor
}

// New wraps fd, registers it on r for read readiness, and returns the
// Socket. state is typically StateConnecting for an outbound connect
// still in flight, or StateConnected for an already-established fd
// such as one just returned by accept.
func New(r *reactor.Reactor, fd int, state State, isClient bool, owner Owner) (*Socket, error) {
	s := &Socket{
		fd:       fd,
		State:    state,
		IsClient: isClient,
		ReadBuf:  buffer.New(initialBufferCapacity),
		WriteBuf: buffer.New(initialBufferCapacity),
		owner:    owner,
		reactor:  r,
	}
	events := uint32(reactor.Readable)
	if state == StateConnecting {
		// Watch both: completion of the nonblocking connect signals
		// through EPOLLOUT, but a chatty remote can also start sending
		// before the connect is even acknowledged.
		events = reactor.Readable | reactor.Writable
	}
	if err := r.Add(fd, events, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Fd returns the underlying file descriptor.
func (s *Socket) Fd() int { return s.fd }

// OnReadable satisfies reactor.Handler.
func (s *Socket) OnReadable() { s.owner.OnReadable(s) }

// OnWritable satisfies reactor.Handler.
func (s *Socket) OnWritable() { s.owner.OnWritable(s) }

// ArmWritable switches the reactor registration to watch for write
// readiness, used whenever WriteBuf goes from empty to nonempty.
func (s *Socket) ArmWritable() error {
	return s.reactor.Modify(s.fd, reactor.Readable|reactor.Writable)
}

// DisarmWritable drops write-readiness watching once WriteBuf has
// fully drained, so epoll does not keep waking this fd up for nothing.
func (s *Socket) DisarmWritable() error {
	return s.reactor.Modify(s.fd, reactor.Readable)
}

// HalfClose marks s half-closed: reading is done, but whatever is
// still queued in WriteBuf gets a chance to drain. It mirrors
// sock_shutdown: the owner forwards s's unread bytes to the peer
// first, then s closes immediately if nothing remains to write, or
// waits for write readiness otherwise.
func (s *Socket) HalfClose() {
	if s.State == StateClosed || s.State == StateHalfClosed {
		return
	}
	s.State = StateHalfClosed
	s.owner.ForwardHalfClose(s)

	if s.WriteBuf.Readable() > 0 {
		_ = s.ArmWritable()
		return
	}
	s.ForceClose()
}

// ForceClose tears s down immediately: it is unregistered from the
// reactor, the fd is closed, and the owner is notified so it can
// release the tunnel once both sockets are gone.
func (s *Socket) ForceClose() {
	if s.State == StateClosed {
		return
	}
	s.State = StateClosed
	_ = s.reactor.Del(s.fd)
	_ = unix.Close(s.fd)
	s.owner.Forgotten(s)
}
