// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package socks5

import "errors"

var (
	ErrUnsupportedVersion = errors.New("socks5: unsupported protocol version")
	ErrCredentialTooLong  = errors.New("socks5: username or password exceeds 20 bytes")
	ErrAuthFailed         = errors.New("socks5: username or password mismatch")
	ErrUnsupportedCommand = errors.New("socks5: unsupported command")
	ErrUnsupportedAddress = errors.New("socks5: unsupported address type")
)
