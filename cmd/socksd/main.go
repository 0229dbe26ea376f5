// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command socksd is a SOCKS5 intercepting proxy: it accepts client
// connections, negotiates the handshake, and relays traffic to the
// requested remote, logging a hex dump or a recognized HTTP/WebSocket
// summary of everything it forwards.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"code.hybscloud.com/socksd/internal/freeze"
	"code.hybscloud.com/socksd/internal/listener"
	"code.hybscloud.com/socksd/internal/logx"
	"code.hybscloud.com/socksd/internal/reactor"
	"code.hybscloud.com/socksd/internal/terminal"
	"code.hybscloud.com/socksd/internal/tunnel"
)

func main() {
	var host, port, username, password, logfile string
	pflag.StringVarP(&host, "addr", "a", "", "listen address (required)")
	pflag.StringVarP(&port, "port", "p", "", "listen port (required)")
	pflag.StringVarP(&username, "user", "u", "", "required username for client auth (optional)")
	pflag.StringVarP(&password, "pass", "k", "", "required password for client auth (optional)")
	pflag.StringVarP(&logfile, "output", "o", "", "log file path (empty: stdout)")
	pflag.Parse()

	if host == "" || port == "" {
		fmt.Fprintln(os.Stderr, "socksd: -a and -p are required")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	out := os.Stdout
	if logfile != "" {
		f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "socksd: failed to open logfile %q: %v\n", logfile, err)
			os.Exit(1)
		}
		defer f.Close()
		log := logx.New(f)
		run(host, port, username, password, log)
		return
	}
	run(host, port, username, password, logx.New(out))
}

func run(host, port, username, password string, log *logx.Logger) {
	terminal.IgnoreSIGPIPE()
	terminal.WatchSIGINT(log)

	r, err := reactor.New()
	if err != nil {
		log.ExtraError("failed to create reactor: %v", err)
		os.Exit(1)
	}
	defer r.Close()

	fz := &freeze.Flag{}
	cfg := &tunnel.Config{
		Reactor:  r,
		Log:      log,
		Freeze:   fz,
		Username: []byte(username),
		Password: []byte(password),
	}

	factory := func(clientFd int) error {
		_, err := tunnel.New(cfg, clientFd)
		return err
	}

	ln, err := listener.New(r, log, host, port, factory)
	if err != nil {
		log.ExtraError("failed to start listener: %v", err)
		os.Exit(1)
	}
	defer ln.Close()

	log.Info("listening on %s:%s", host, port)

	term := terminal.New(log, fz)
	go term.Run()

	if err := r.Run(); err != nil {
		log.ExtraError("reactor loop exited: %v", err)
		os.Exit(1)
	}
}
