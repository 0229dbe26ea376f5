// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package terminal is the operator control channel: a line-oriented
// stdin reader running on its own goroutine, mirroring terminal.c's
// detached pthread. "freeze" toggles forwarding, "stop" requests a
// clean shutdown, anything else is logged and ignored.
package terminal

import (
	"bufio"
	"os"
	"strings"
	"syscall"

	"code.hybscloud.com/socksd/internal/freeze"
	"code.hybscloud.com/socksd/internal/logx"
)

// Terminal reads operator commands from os.Stdin.
type Terminal struct {
	log    *logx.Logger
	freeze *freeze.Flag
}

// New builds a Terminal bound to the given log sink and freeze flag.
func New(log *logx.Logger, fz *freeze.Flag) *Terminal {
	return &Terminal{log: log, freeze: fz}
}

// Run reads lines from stdin until EOF or a "stop" command, exactly as
// terminal_thread loops on fgets. Intended to run on its own goroutine.
func (t *Terminal) Run() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "freeze":
			frozen := t.freeze.Toggle()
			state := "OFF"
			if frozen {
				state = "ON"
			}
			t.log.ExtraWarn("Terminal -> freeze %s", state)
		case "stop":
			t.log.ExtraWarn("Terminal -> stop")
			_ = syscall.Kill(os.Getpid(), syscall.SIGINT)
			return
		default:
			t.log.ExtraWarn("Unknown command: %q", line)
		}
	}
}
