// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package terminal

import (
	"os"
	"os/signal"
	"syscall"

	"code.hybscloud.com/socksd/internal/logx"
)

// IgnoreSIGPIPE ignores SIGPIPE so a write to an already-closed socket
// surfaces as an EPIPE error return instead of killing the process,
// mirroring sigign's SIG_IGN handler for SIGPIPE.
func IgnoreSIGPIPE() {
	signal.Ignore(syscall.SIGPIPE)
}

// WatchSIGINT exits the process cleanly (status 0) on SIGINT, whether
// raised by a terminal Ctrl-C or by "stop" on the control channel —
// mirroring handle_signal's EXTRA_LOG_WARN-then-exit(EXIT_SUCCESS).
func WatchSIGINT(log *logx.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT)
	go func() {
		<-ch
		log.ExtraWarn("The proxy server was forcibly stopped")
		os.Exit(0)
	}()
}
