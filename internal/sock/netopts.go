// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sock

import "golang.org/x/sys/unix"

// Kind selects which socket options ApplyDefaults turns on. This
// module only ever speaks two transports, unlike the teacher stack's
// seven-transport netopts table, but the kind-keyed-defaults shape is
// kept: one place maps "what is this fd for" to "which options does it
// need".
type Kind uint8

const (
	KindTCP Kind = iota
	KindUDP
)

// ApplyDefaults puts fd in nonblocking mode and layers on the
// transport-appropriate options: TCP sockets get SO_KEEPALIVE so dead
// peers are eventually noticed, UDP sockets get none beyond
// nonblocking since they are connectionless.
func ApplyDefaults(fd int, kind Kind) error {
	if err := SetNonblock(fd); err != nil {
		return err
	}
	switch kind {
	case KindTCP:
		return SetKeepAlive(fd)
	case KindUDP:
		return nil
	default:
		return nil
	}
}

// SetNonblock puts fd in O_NONBLOCK mode.
func SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}

// SetKeepAlive enables SO_KEEPALIVE so a silently dead TCP peer is
// eventually detected instead of leaking the tunnel forever.
func SetKeepAlive(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
}

// SetReuseAddr enables SO_REUSEADDR, letting a listener rebind a port
// still in TIME_WAIT from a previous run.
func SetReuseAddr(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}
