// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package buffer

import (
	"fmt"
	"iter"

	"github.com/relabs-tech/compass_logger/internal/imu"
)

// Sample is one logged reading. It is never modified after Append.
type Sample struct {
	TimestampMS int64    `json:"timestamp_ms"`
	Heading     float64  `json:"heading"`
	Pitch       float64  `json:"pitch"`
	Roll        float64  `json:"roll"`
	Accel       imu.Vec3 `json:"accel"` // g
	Gyro        imu.Vec3 `json:"gyro"`  // °/s
}

// Ring is a fixed-capacity sample store that overwrites the oldest sample
// once full. Storage is allocated once in NewRing and never grows.
//
// cursor is always in [0, capacity) and points at the next slot to write.
// Once full is set it also points at the oldest surviving sample.
type Ring struct {
	samples []Sample
	cursor  int
	full    bool
}

// NewRing allocates a ring holding up to capacity samples.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		panic(fmt.Sprintf("buffer: ring capacity must be positive, got %d", capacity))
	}
	return &Ring{samples: make([]Sample, capacity)}
}

// Reset empties the ring. The backing storage is reused.
func (r *Ring) Reset() {
	r.cursor = 0
	r.full = false
}

// Append stores s, evicting the oldest sample when the ring is full.
func (r *Ring) Append(s Sample) {
	r.samples[r.cursor] = s
	r.cursor++
	if r.cursor == len(r.samples) {
		r.cursor = 0
		r.full = true
	}
}

// Count is the number of samples currently held.
func (r *Ring) Count() int {
	if r.full {
		return len(r.samples)
	}
	return r.cursor
}

// Capacity is the fixed number of slots.
func (r *Ring) Capacity() int { return len(r.samples) }

// Full reports whether the ring has wrapped at least once since Reset.
func (r *Ring) Full() bool { return r.full }

// All yields the held samples oldest first. The sequence can be ranged over
// any number of times and does not modify the ring; it must not be used
// across a concurrent Append.
func (r *Ring) All() iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		start, n := 0, r.cursor
		if r.full {
			start, n = r.cursor, len(r.samples)
		}
		for i := 0; i < n; i++ {
			if !yield(r.samples[(start+i)%len(r.samples)]) {
				return
			}
		}
	}
}

// Last returns the most recently appended sample.
func (r *Ring) Last() (Sample, bool) {
	if r.Count() == 0 {
		return Sample{}, false
	}
	i := r.cursor - 1
	if i < 0 {
		i = len(r.samples) - 1
	}
	return r.samples[i], true
}
