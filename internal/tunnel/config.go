// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tunnel

import (
	"code.hybscloud.com/socksd/internal/freeze"
	"code.hybscloud.com/socksd/internal/logx"
	"code.hybscloud.com/socksd/internal/reactor"
)

// Config is the explicit, passed-around replacement for the original's
// process-wide global server_t SERVER: every Tunnel is constructed
// from one Config instead of reaching into package-level state.
type Config struct {
	Reactor *reactor.Reactor
	Log     *logx.Logger
	Freeze  *freeze.Flag

	// Username and Password hold the static credential pair. Auth is
	// only required when both are set; matching the original's
	// strcmp(SERVER.username,"") != 0 && strcmp(SERVER.passwd,"") != 0.
	Username []byte
	Password []byte
}

func (c *Config) authRequired() bool {
	return len(c.Username) != 0 && len(c.Password) != 0
}
