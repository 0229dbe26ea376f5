// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tunnel is the per-connection SOCKS5 state machine: greeting,
// optional authentication, request, remote connect, and bidirectional
// forwarding with passive HTTP/WebSocket sniffing. A Tunnel implements
// sock.Owner for both the client and remote sockets it owns, which is
// how this module breaks the raw bidirectional pointer cycle the
// original's sock_t/tunnel_t pair uses.
package tunnel

import (
	"context"
	"errors"
	"io"

	"code.hybscloud.com/socksd/internal/buffer"
	"code.hybscloud.com/socksd/internal/hexdump"
	"code.hybscloud.com/socksd/internal/sniff"
	"code.hybscloud.com/socksd/internal/sock"
	"code.hybscloud.com/socksd/internal/socks5"
	"code.hybscloud.com/socksd/internal/udprelay"
)

// State mirrors tunnel_state_t.
type State int

const (
	StateOpen State = iota
	StateAuth
	StateRequest
	StateConnecting
	StateConnected
)

// Tunnel is one accepted client connection and, once a request is
// resolved, the remote connection it proxies to.
type Tunnel struct {
	cfg *Config

	client *sock.Socket
	remote *sock.Socket
	state  State

	greeting socks5.GreetingParser
	auth     socks5.AuthParser
	request  socks5.RequestParser

	assoc       *udprelay.Association
	assocCancel context.CancelFunc
}

// New wraps an already-accepted client fd in a Tunnel, starting it in
// StateOpen awaiting the client's greeting. It mirrors tunnel_create.
func New(cfg *Config, clientFd int) (*Tunnel, error) {
	if err := sock.ApplyDefaults(clientFd, sock.KindTCP); err != nil {
		return nil, err
	}
	t := &Tunnel{cfg: cfg, state: StateOpen}
	client, err := sock.New(cfg.Reactor, clientFd, sock.StateConnected, true, t)
	if err != nil {
		return nil, err
	}
	t.client = client
	cfg.Log.Info("new client connection accepted: fd=%d", clientFd)
	return t, nil
}

func (t *Tunnel) peerOf(s *sock.Socket) *sock.Socket {
	if s.IsClient {
		return t.remote
	}
	return t.client
}

// --- sock.Owner ---

// OnReadable satisfies sock.Owner; it is the reactor's EPOLLIN
// trampoline for either the client or remote socket of this tunnel.
func (t *Tunnel) OnReadable(s *sock.Socket) {
	n, err := s.ReadBuf.ReadFd(s.Fd())
	if err != nil {
		switch {
		case errors.Is(err, buffer.ErrInterrupted), errors.Is(err, buffer.ErrWouldBlock):
			return
		case errors.Is(err, io.EOF):
			t.cfg.Log.Info("read EOF on fd=%d, half-closing", s.Fd())
			s.HalfClose()
			return
		default:
			t.cfg.Log.Warn("read error on fd=%d: %v, half-closing", s.Fd(), err)
			s.HalfClose()
			return
		}
	}

	t.cfg.Log.Info("read %d bytes from %s (fd=%d), state=%d", n, side(s.IsClient), s.Fd(), t.state)

	switch t.state {
	case StateOpen:
		t.handleGreeting()
	case StateAuth:
		t.handleAuth()
	case StateRequest:
		t.handleRequest()
	case StateConnecting:
		if !t.handleConnecting() {
			t.halfCloseBoth()
		}
	case StateConnected:
		t.handleConnected(s)
	}
}

// OnWritable satisfies sock.Owner; the reactor's EPOLLOUT trampoline.
func (t *Tunnel) OnWritable(s *sock.Socket) {
	if s.WriteBuf.Readable() > 0 {
		_, err := s.WriteBuf.WriteFd(s.Fd())
		if err != nil && !errors.Is(err, buffer.ErrInterrupted) && !errors.Is(err, buffer.ErrWouldBlock) {
			t.cfg.Log.Warn("write error on fd=%d: %v", s.Fd(), err)
			s.ForceClose()
			return
		}
	}
	if s.WriteBuf.Readable() == 0 && s.State == sock.StateHalfClosed {
		s.ForceClose()
		return
	}

	if t.state == StateConnecting && s == t.remote {
		if !t.handleConnecting() {
			t.halfCloseBoth()
			return
		}
	}

	if s.State == sock.StateClosed {
		return
	}
	if s.WriteBuf.Readable() > 0 {
		_ = s.ArmWritable()
	} else {
		_ = s.DisarmWritable()
	}
}

// ForwardHalfClose satisfies sock.Owner: s is transitioning to
// half-closed, so whatever it already read gets one last chance to
// reach its peer, mirroring sock_shutdown's buffer_concat call.
func (t *Tunnel) ForwardHalfClose(s *sock.Socket) {
	if t.state != StateConnected {
		return
	}
	if peer := t.peerOf(s); peer != nil {
		peer.WriteBuf.Concat(s.ReadBuf)
		_ = peer.ArmWritable()
	}
}

// Forgotten satisfies sock.Owner: s is fully closed. In a connected
// tunnel the surviving peer is half-closed, so it drains whatever is
// queued for it and then closes too. Once both sides are gone there is
// nothing left referencing this Tunnel; Go's collector reclaims it
// without the original's explicit tunnel_release call.
func (t *Tunnel) Forgotten(s *sock.Socket) {
	t.cfg.Log.Info("closed and released socket fd=%d", s.Fd())
	if s.IsClient {
		t.client = nil
	} else {
		t.remote = nil
	}
	if t.state == StateConnected {
		if peer := t.peerOf(s); peer != nil {
			peer.HalfClose()
		}
	}
	if t.client == nil && t.remote == nil && t.assoc != nil {
		t.assocCancel()
		_ = t.assoc.Close()
	}
}

func (t *Tunnel) halfCloseBoth() {
	if t.client != nil {
		t.client.HalfClose()
	}
	if t.remote != nil {
		t.remote.HalfClose()
	}
}

func (t *Tunnel) writeToClient(data []byte) {
	if t.client == nil {
		return
	}
	t.client.WriteBuf.Append(data)
	_ = t.client.ArmWritable()
}

func side(isClient bool) string {
	if isClient {
		return "client"
	}
	return "remote"
}

// --- protocol stages ---

func (t *Tunnel) handleGreeting() {
	outcome, err := t.greeting.Step(t.client.ReadBuf)
	switch outcome {
	case socks5.Incomplete:
		return
	case socks5.Fatal:
		t.cfg.Log.Warn("greeting rejected on fd=%d: %v", t.client.Fd(), err)
		t.client.ForceClose()
		return
	}

	method := uint8(socks5.MethodNoAuth)
	if t.cfg.authRequired() {
		method = socks5.MethodUserPass
		t.state = StateAuth
	} else {
		t.state = StateRequest
	}
	t.cfg.Log.Info("SOCKS5 greeting: nmethods=%d, replying method=0x%02x", len(t.greeting.Methods()), method)
	t.writeToClient(socks5.GreetingReply(method))
}

func (t *Tunnel) handleAuth() {
	outcome, err := t.auth.Step(t.client.ReadBuf)
	switch outcome {
	case socks5.Incomplete:
		return
	case socks5.Fatal:
		t.cfg.Log.Warn("auth rejected on fd=%d: %v", t.client.Fd(), err)
		t.client.ForceClose()
		return
	}

	t.cfg.Log.Info("auth attempt: user=%q", t.auth.Username())
	if !t.auth.Matches(t.cfg.Username, t.cfg.Password) {
		// No reply on failure: the original returns -1 without writing
		// the failure status, so the client only observes the close.
		t.cfg.Log.Warn("auth failed on fd=%d", t.client.Fd())
		t.client.ForceClose()
		return
	}

	t.writeToClient(socks5.AuthReply(t.auth.Version(), 0x00))
	t.state = StateRequest
}

func (t *Tunnel) handleRequest() {
	outcome, err := t.request.Step(t.client.ReadBuf)
	switch outcome {
	case socks5.Incomplete:
		return
	case socks5.Fatal:
		t.cfg.Log.Warn("request rejected on fd=%d: %v", t.client.Fd(), err)
		t.client.ForceClose()
		return
	}

	t.cfg.Log.Info("request: cmd=0x%02x, atyp=0x%02x, dst=%q:%d",
		t.request.Cmd, t.request.Atyp, t.request.Host(), t.request.Port)

	if t.request.Cmd == socks5.CmdUDPAssociate {
		t.handleUDPAssociate()
		return
	}
	t.connectToRemote()
}

func (t *Tunnel) connectToRemote() {
	t.cfg.Log.Info("resolving %s:%d", t.request.Host(), t.request.Port)
	fd, immediate, err := dialNonblocking(context.Background(), t.request.Host(), t.request.Port)
	if err != nil {
		t.cfg.Log.Warn("connect failed to %s:%d: %v", t.request.Host(), t.request.Port, err)
		t.client.ForceClose()
		return
	}

	state := sock.StateConnecting
	if immediate {
		state = sock.StateConnected
	}
	remote, err := sock.New(t.cfg.Reactor, fd, state, false, t)
	if err != nil {
		t.cfg.Log.Warn("failed to register remote fd=%d: %v", fd, err)
		t.client.ForceClose()
		return
	}
	t.remote = remote

	if immediate {
		t.state = StateConnected
		t.notifyConnected()
	} else {
		t.state = StateConnecting
	}
}

// handleConnecting checks whether a nonblocking connect finished.
// Returns false on failure, leaving the caller to decide how to tear
// the tunnel down (both sockets are half-closed, mirroring
// tunnel_connecting_handle's failure path).
func (t *Tunnel) handleConnecting() bool {
	if t.remote == nil {
		return false
	}
	errno, err := getSocketError(t.remote.Fd())
	if err != nil || errno != 0 {
		t.cfg.Log.Warn("remote connect failed on fd=%d", t.remote.Fd())
		return false
	}

	t.cfg.Log.Info("remote connection established on fd=%d", t.remote.Fd())
	t.state = StateConnected
	t.remote.State = sock.StateConnected
	t.notifyConnected()
	return true
}

func (t *Tunnel) notifyConnected() {
	bound, err := localAddr(t.remote.Fd())
	if err != nil {
		t.cfg.Log.Warn("getsockname failed on fd=%d: %v", t.remote.Fd(), err)
		t.client.ForceClose()
		return
	}
	t.cfg.Log.Info("sent SOCKS5 CONNECT success to client fd=%d", t.client.Fd())
	t.writeToClient(socks5.ConnectReply(socks5.ReplySucceeded, bound))
}

// handleConnected forwards bytes s just read to its peer, sniffing
// HTTP/WebSocket first and falling back to a hex dump, exactly as
// tunnel_connected_handle does. Forwarding itself is skipped while the
// freeze flag is set.
func (t *Tunnel) handleConnected(s *sock.Socket) {
	peer := t.peerOf(s)
	if peer == nil {
		t.halfCloseBoth()
		return
	}

	data := s.ReadBuf.Bytes()
	label := "forwarded client → remote"
	if !s.IsClient {
		label = "forwarded remote → client"
	}

	recognized := sniff.HTTP(t.cfg.Log, data, s.IsClient) || sniff.WebSocket(t.cfg.Log, data, s.IsClient)
	if !recognized {
		t.cfg.Log.Info("%s hex (%d bytes): %s", label, len(data), hexdump.String(data))
	}

	if t.cfg.Freeze.IsFrozen() {
		return
	}

	peer.WriteBuf.Concat(s.ReadBuf)
	s.ReadBuf.Clear()
	_ = peer.ArmWritable()
}

// handleUDPAssociate binds a UDP relay socket, starts its goroutine,
// and replies to the client over the still-open TCP control
// connection with the bound address/port, per spec.md §4.7. The
// control connection itself stays in StateConnected with no remote
// socket; forwarding never touches the UDP path.
func (t *Tunnel) handleUDPAssociate() {
	family := udpFamily(t.request.Atyp)
	assoc, err := udprelay.Associate(t.cfg.Log, family)
	if err != nil {
		t.cfg.Log.Warn("UDP associate failed: %v", err)
		t.client.ForceClose()
		return
	}
	t.assoc = assoc
	t.state = StateConnected

	ctx, cancel := context.WithCancel(context.Background())
	t.assocCancel = cancel
	go assoc.Run(ctx)

	t.cfg.Log.Info("UDP associate bound at %s for client fd=%d", assoc.LocalAddr(), t.client.Fd())
	t.writeToClient(socks5.ConnectReply(socks5.ReplySucceeded, assoc.LocalAddr()))
}
