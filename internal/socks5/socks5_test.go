// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package socks5_test

import (
	"bytes"
	"testing"

	"code.hybscloud.com/socksd/internal/buffer"
	"code.hybscloud.com/socksd/internal/socks5"
)

func feedByteAtATime(t *testing.T, step func(*buffer.Buffer) (socks5.Outcome, error), whole []byte) socks5.Outcome {
	t.Helper()
	buf := buffer.New(4)
	var last socks5.Outcome
	var err error
	for i := 0; i < len(whole); i++ {
		buf.Append(whole[i : i+1])
		last, err = step(buf)
		if err != nil {
			t.Fatalf("step at byte %d: %v", i, err)
		}
		if last == socks5.Done {
			if i != len(whole)-1 {
				t.Fatalf("parser reported Done after %d of %d bytes", i+1, len(whole))
			}
			return last
		}
	}
	return last
}

func TestGreetingParserByteAtATimeMatchesSingleShot(t *testing.T) {
	whole := []byte{0x05, 0x02, 0x00, 0x02}

	singleShot := buffer.New(16)
	singleShot.Append(whole)
	var p1 socks5.GreetingParser
	outcome, err := p1.Step(singleShot)
	if err != nil || outcome != socks5.Done {
		t.Fatalf("single-shot: outcome=%v err=%v", outcome, err)
	}

	var p2 socks5.GreetingParser
	outcome = feedByteAtATime(t, p2.Step, whole)
	if outcome != socks5.Done {
		t.Fatalf("byte-at-a-time: outcome=%v", outcome)
	}
	if !bytes.Equal(p1.Methods(), p2.Methods()) {
		t.Fatalf("Methods mismatch: %v vs %v", p1.Methods(), p2.Methods())
	}
}

func TestGreetingParserRejectsWrongVersion(t *testing.T) {
	buf := buffer.New(16)
	buf.Append([]byte{0x04, 0x01, 0x00})
	var p socks5.GreetingParser
	outcome, err := p.Step(buf)
	if outcome != socks5.Fatal || err != socks5.ErrUnsupportedVersion {
		t.Fatalf("outcome=%v err=%v, want Fatal/ErrUnsupportedVersion", outcome, err)
	}
}

func TestAuthParserByteAtATimeMatchesSingleShot(t *testing.T) {
	whole := append([]byte{0x01, 4}, []byte("user")...)
	whole = append(whole, 4)
	whole = append(whole, []byte("pass")...)

	var p socks5.AuthParser
	outcome := feedByteAtATime(t, p.Step, whole)
	if outcome != socks5.Done {
		t.Fatalf("outcome=%v", outcome)
	}
	if string(p.Username()) != "user" || string(p.Password()) != "pass" {
		t.Fatalf("got user=%q pass=%q", p.Username(), p.Password())
	}
}

func TestAuthParserRejectsOverlongCredential(t *testing.T) {
	buf := buffer.New(16)
	buf.Append([]byte{0x01, 21})
	var p socks5.AuthParser
	outcome, err := p.Step(buf)
	if outcome != socks5.Fatal || err != socks5.ErrCredentialTooLong {
		t.Fatalf("outcome=%v err=%v, want Fatal/ErrCredentialTooLong", outcome, err)
	}
}

func TestAuthParserMatchesIsExactLength(t *testing.T) {
	buf := buffer.New(16)
	buf.Append([]byte{0x01, 3})
	buf.Append([]byte("abc"))
	buf.Append([]byte{3})
	buf.Append([]byte("xyz"))
	var p socks5.AuthParser
	outcome, err := p.Step(buf)
	if outcome != socks5.Done || err != nil {
		t.Fatalf("outcome=%v err=%v", outcome, err)
	}
	if !p.Matches([]byte("abc"), []byte("xyz")) {
		t.Fatal("expected exact match to succeed")
	}
	if p.Matches([]byte("ab"), []byte("xyz")) {
		t.Fatal("expected length mismatch to fail")
	}
}

func TestRequestParserIPv4ByteAtATime(t *testing.T) {
	whole := []byte{0x05, 0x01, 0x00, 0x01, 93, 184, 216, 34, 0x00, 0x50}
	var p socks5.RequestParser
	outcome := feedByteAtATime(t, p.Step, whole)
	if outcome != socks5.Done {
		t.Fatalf("outcome=%v", outcome)
	}
	if p.Host() != "93.184.216.34" || p.Port != 80 {
		t.Fatalf("got host=%q port=%d", p.Host(), p.Port)
	}
}

func TestRequestParserDomainByteAtATime(t *testing.T) {
	domain := "example.com"
	whole := []byte{0x05, 0x01, 0x00, 0x03, byte(len(domain))}
	whole = append(whole, domain...)
	whole = append(whole, 0x01, 0xbb)
	var p socks5.RequestParser
	outcome := feedByteAtATime(t, p.Step, whole)
	if outcome != socks5.Done {
		t.Fatalf("outcome=%v", outcome)
	}
	if p.Host() != domain || p.Port != 443 {
		t.Fatalf("got host=%q port=%d", p.Host(), p.Port)
	}
}

func TestRequestParserIPv6(t *testing.T) {
	ip := make([]byte, 16)
	ip[15] = 1
	whole := append([]byte{0x05, 0x01, 0x00, 0x04}, ip...)
	whole = append(whole, 0x00, 0x50)
	var p socks5.RequestParser
	buf := buffer.New(32)
	buf.Append(whole)
	outcome, err := p.Step(buf)
	if outcome != socks5.Done || err != nil {
		t.Fatalf("outcome=%v err=%v", outcome, err)
	}
	if p.Host() != "::1" {
		t.Fatalf("got host=%q, want ::1", p.Host())
	}
}

func TestRequestParserRejectsBindCommand(t *testing.T) {
	buf := buffer.New(16)
	buf.Append([]byte{0x05, 0x02, 0x00, 0x01})
	var p socks5.RequestParser
	outcome, err := p.Step(buf)
	if outcome != socks5.Fatal || err != socks5.ErrUnsupportedCommand {
		t.Fatalf("outcome=%v err=%v, want Fatal/ErrUnsupportedCommand", outcome, err)
	}
}

func TestRequestParserAcceptsUDPAssociate(t *testing.T) {
	buf := buffer.New(16)
	buf.Append([]byte{0x05, 0x03, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
	var p socks5.RequestParser
	outcome, err := p.Step(buf)
	if outcome != socks5.Done || err != nil {
		t.Fatalf("outcome=%v err=%v", outcome, err)
	}
	if p.Cmd != socks5.CmdUDPAssociate {
		t.Fatalf("Cmd = %d, want CmdUDPAssociate", p.Cmd)
	}
}

func TestRequestParserRejectsUnsupportedAddressType(t *testing.T) {
	buf := buffer.New(16)
	buf.Append([]byte{0x05, 0x01, 0x00, 0x05})
	var p socks5.RequestParser
	outcome, err := p.Step(buf)
	if outcome != socks5.Fatal || err != socks5.ErrUnsupportedAddress {
		t.Fatalf("outcome=%v err=%v, want Fatal/ErrUnsupportedAddress", outcome, err)
	}
}
