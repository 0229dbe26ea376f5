// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package udprelay_test

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"code.hybscloud.com/socksd/internal/logx"
	"code.hybscloud.com/socksd/internal/udprelay"
)

func TestAssociationRelaysClientToRemoteAndBack(t *testing.T) {
	remote, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		t.Fatalf("ListenUDP remote: %v", err)
	}
	defer remote.Close()

	assoc, err := udprelay.Associate(logx.New(&bytes.Buffer{}), "udp4")
	if err != nil {
		t.Fatalf("Associate: %v", err)
	}
	defer assoc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go assoc.Run(ctx)

	client, err := net.DialUDP("udp4", nil, assoc.LocalAddr())
	if err != nil {
		t.Fatalf("DialUDP client: %v", err)
	}
	defer client.Close()

	remoteAddr := remote.LocalAddr().(*net.UDPAddr)
	header := []byte{0x00, 0x00, 0x00, 0x01}
	header = append(header, remoteAddr.IP.To4()...)
	header = append(header, byte(remoteAddr.Port>>8), byte(remoteAddr.Port))
	payload := append(header, []byte("hello")...)

	if _, err := client.Write(payload); err != nil {
		t.Fatalf("client.Write: %v", err)
	}

	remote.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1024)
	n, from, err := remote.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("remote.ReadFromUDP: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("remote got %q, want %q", buf[:n], "hello")
	}

	if _, err := remote.WriteToUDP([]byte("world"), from); err != nil {
		t.Fatalf("remote.WriteToUDP: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err = client.Read(buf)
	if err != nil {
		t.Fatalf("client.Read: %v", err)
	}
	got := buf[:n]
	if len(got) < 10 || string(got[len(got)-5:]) != "world" {
		t.Fatalf("client got %q, want a SOCKS5 UDP header followed by %q", got, "world")
	}
}
