// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import "time"

// Governor keeps ticks at least Interval apart so logged timestamp deltas
// stay roughly uniform regardless of how long a tick took.
type Governor struct {
	Interval time.Duration
}

// Wait returns how long to pause after a tick that took busy.
func (g Governor) Wait(busy time.Duration) time.Duration {
	if busy >= g.Interval {
		return 0
	}
	return g.Interval - busy
}
