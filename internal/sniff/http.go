// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sniff opportunistically recognizes plaintext HTTP and
// unmasked text WebSocket frames inside the bytes a tunnel forwards,
// logging what it recognizes. Both predicates are read-only: they
// never consume or mutate the buffer they inspect.
package sniff

import (
	"bytes"

	"code.hybscloud.com/socksd/internal/logx"
)

// headerSep is the HTTP header/body boundary.
var headerSep = []byte("\r\n\r\n")

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// HTTP reports and logs when data begins with either four ASCII
// letters (a request method) or the literal "HTTP" (a status line),
// logging the header section up to and including the first blank
// line. If the separator has not arrived yet, the whole buffer is
// logged instead and HTTP still reports true: the caller has already
// committed to forwarding this data as a recognized HTTP stream.
func HTTP(log *logx.Logger, data []byte, isClient bool) bool {
	if len(data) < 4 {
		return false
	}

	startsWithLetters := isLetter(data[0]) && isLetter(data[1]) && isLetter(data[2]) && isLetter(data[3])
	startsWithHTTP := bytes.Equal(data[:4], []byte("HTTP"))
	if !startsWithLetters && !startsWithHTTP {
		return false
	}

	toLog := len(data)
	if idx := bytes.Index(data, headerSep); idx >= 0 {
		toLog = idx + len(headerSep)
	}

	log.Info("HTTP %s, %d bytes:\n%s", direction(isClient), toLog, data[:toLog])
	return true
}

func direction(isClient bool) string {
	if isClient {
		return "client → remote"
	}
	return "remote → client"
}
