// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sock_test

import (
	"testing"

	"golang.org/x/sys/unix"

	"code.hybscloud.com/socksd/internal/reactor"
	"code.hybscloud.com/socksd/internal/sock"
)

type fakeOwner struct {
	forwarded []*sock.Socket
	forgotten []*sock.Socket
	peer      *sock.Socket
}

func (o *fakeOwner) OnReadable(s *sock.Socket) {}
func (o *fakeOwner) OnWritable(s *sock.Socket) {}
func (o *fakeOwner) ForwardHalfClose(s *sock.Socket) {
	o.forwarded = append(o.forwarded, s)
	if o.peer != nil {
		o.peer.WriteBuf.Concat(s.ReadBuf)
	}
}
func (o *fakeOwner) Forgotten(s *sock.Socket) {
	o.forgotten = append(o.forgotten, s)
}

func newReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestHalfCloseForcesCloseWhenWriteBufEmpty(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(fds[1])

	r := newReactor(t)
	owner := &fakeOwner{}
	s, err := sock.New(r, fds[0], sock.StateConnected, true, owner)
	if err != nil {
		t.Fatalf("sock.New: %v", err)
	}

	s.HalfClose()

	if s.State != sock.StateClosed {
		t.Fatalf("State = %v, want StateClosed", s.State)
	}
	if len(owner.forwarded) != 1 || owner.forwarded[0] != s {
		t.Fatalf("expected ForwardHalfClose called once with s")
	}
	if len(owner.forgotten) != 1 || owner.forgotten[0] != s {
		t.Fatalf("expected Forgotten called once with s")
	}
}

func TestHalfCloseWaitsForDrainWhenWriteBufNonempty(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	r := newReactor(t)
	owner := &fakeOwner{}
	s, err := sock.New(r, fds[0], sock.StateConnected, true, owner)
	if err != nil {
		t.Fatalf("sock.New: %v", err)
	}
	s.WriteBuf.Append([]byte("pending"))

	s.HalfClose()

	if s.State != sock.StateHalfClosed {
		t.Fatalf("State = %v, want StateHalfClosed", s.State)
	}
	if len(owner.forgotten) != 0 {
		t.Fatal("expected Forgotten not yet called while write buffer drains")
	}
}

func TestForwardHalfCloseDeliversUnreadBytesToPeer(t *testing.T) {
	clientFds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(clientFds[1])
	remoteFds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(remoteFds[1])

	r := newReactor(t)
	owner := &fakeOwner{}
	client, err := sock.New(r, clientFds[0], sock.StateConnected, true, owner)
	if err != nil {
		t.Fatalf("sock.New client: %v", err)
	}
	remote, err := sock.New(r, remoteFds[0], sock.StateConnected, false, owner)
	if err != nil {
		t.Fatalf("sock.New remote: %v", err)
	}
	owner.peer = remote

	client.ReadBuf.Append([]byte("leftover"))
	client.HalfClose()

	if got := string(remote.WriteBuf.Bytes()); got != "leftover" {
		t.Fatalf("remote.WriteBuf = %q, want %q", got, "leftover")
	}
}

func TestForceCloseIsIdempotent(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(fds[1])

	r := newReactor(t)
	owner := &fakeOwner{}
	s, err := sock.New(r, fds[0], sock.StateConnected, true, owner)
	if err != nil {
		t.Fatalf("sock.New: %v", err)
	}

	s.ForceClose()
	s.ForceClose()

	if len(owner.forgotten) != 1 {
		t.Fatalf("Forgotten called %d times, want 1", len(owner.forgotten))
	}
}
