// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package freeze holds the process-wide forwarding pause toggle.
//
// The tunnel forwarding path consults Flag on every Connected read
// event; the terminal command thread is the only writer. Relaxed
// atomic semantics are sufficient: a stale read delays forwarding by
// at most one event cycle, and the flag carries no other state.
package freeze

import "sync/atomic"

// Flag is a process-wide forwarding pause toggle, safe for concurrent
// use by the terminal goroutine (writer) and the reactor goroutine
// (reader).
type Flag struct {
	frozen atomic.Bool
}

// Toggle flips the flag and returns the new state.
func (f *Flag) Toggle() bool {
	for {
		old := f.frozen.Load()
		if f.frozen.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// IsFrozen reports the current state.
func (f *Flag) IsFrozen() bool {
	return f.frozen.Load()
}
