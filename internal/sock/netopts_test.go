// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sock_test

import (
	"testing"

	"golang.org/x/sys/unix"

	"code.hybscloud.com/socksd/internal/sock"
)

func TestApplyDefaultsTCPSetsNonblockAndKeepAlive(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	if err := sock.ApplyDefaults(fds[0], sock.KindTCP); err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}

	flags, err := unix.FcntlInt(uintptr(fds[0]), unix.F_GETFL, 0)
	if err != nil {
		t.Fatalf("FcntlInt: %v", err)
	}
	if flags&unix.O_NONBLOCK == 0 {
		t.Fatal("expected O_NONBLOCK set")
	}
}

func TestApplyDefaultsUDPSetsNonblockOnly(t *testing.T) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		t.Fatalf("Socket: %v", err)
	}
	defer unix.Close(fd)

	if err := sock.ApplyDefaults(fd, sock.KindUDP); err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}

	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		t.Fatalf("FcntlInt: %v", err)
	}
	if flags&unix.O_NONBLOCK == 0 {
		t.Fatal("expected O_NONBLOCK set")
	}
}

func TestSetReuseAddr(t *testing.T) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socket: %v", err)
	}
	defer unix.Close(fd)

	if err := sock.SetReuseAddr(fd); err != nil {
		t.Fatalf("SetReuseAddr: %v", err)
	}
}
