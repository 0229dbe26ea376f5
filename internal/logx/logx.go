// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logx is the log sink used throughout the proxy.
//
// It exposes five severities: Info, Warn, Error, and two "echo to
// stdout" variants (ExtraWarn, ExtraError) used for operator-facing
// events (terminal commands, fatal init failures) that should surface
// on the console even when the primary sink is a logfile. Every
// method is safe to call from any goroutine.
package logx

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the sink every package in this module logs through.
type Logger struct {
	base  *logrus.Logger
	extra *logrus.Logger
}

// New builds a Logger writing to w. When w is os.Stdout, the "extra"
// (echo) methods behave identically to their plain counterparts; when
// w is a file, extra methods additionally write to os.Stdout so
// operator-facing events are never silently buried in a logfile.
func New(w io.Writer) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	l := &Logger{base: base}
	if w == io.Writer(os.Stdout) {
		l.extra = base
		return l
	}

	extra := logrus.New()
	extra.SetOutput(io.MultiWriter(w, os.Stdout))
	extra.SetFormatter(base.Formatter)
	l.extra = extra
	return l
}

// Info logs an informational record.
func (l *Logger) Info(format string, args ...any) { l.base.Infof(format, args...) }

// Warn logs a warning record.
func (l *Logger) Warn(format string, args ...any) { l.base.Warnf(format, args...) }

// Error logs an error record.
func (l *Logger) Error(format string, args ...any) { l.base.Errorf(format, args...) }

// ExtraWarn logs a warning record, echoed to stdout when the primary
// sink is a logfile. Used for operator-initiated events (freeze, stop).
func (l *Logger) ExtraWarn(format string, args ...any) { l.extra.Warnf(format, args...) }

// ExtraError logs an error record, echoed to stdout when the primary
// sink is a logfile. Used for fatal init failures.
func (l *Logger) ExtraError(format string, args ...any) { l.extra.Errorf(format, args...) }
