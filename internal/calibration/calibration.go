// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration estimates magnetometer hard-iron offsets with a
// time-boxed min/max sweep: the user rotates the device through all
// orientations while the routine tracks per-axis extremes, and the offset
// of each axis is the midpoint of its extremes.
package calibration

import (
	"errors"
	"log"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/relabs-tech/compass_logger/internal/imu"
	"github.com/relabs-tech/compass_logger/internal/orientation"
)

const (
	DefaultDuration     = 10 * time.Second
	DefaultPollInterval = 20 * time.Millisecond
)

// ErrNoSamples is returned when every read during the sweep failed.
var ErrNoSamples = errors.New("calibration: no magnetometer samples collected")

// Extents tracks running per-axis min/max of a vector stream.
type Extents struct {
	Min imu.Vec3 `json:"min"`
	Max imu.Vec3 `json:"max"`
	N   int      `json:"samples"`
}

// NewExtents returns empty extents ready for Add.
func NewExtents() Extents {
	return Extents{
		Min: imu.Vec3{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64},
		Max: imu.Vec3{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64},
	}
}

// Add widens the extents to include v.
func (e *Extents) Add(v imu.Vec3) {
	e.Min.X = math.Min(e.Min.X, v.X)
	e.Min.Y = math.Min(e.Min.Y, v.Y)
	e.Min.Z = math.Min(e.Min.Z, v.Z)
	e.Max.X = math.Max(e.Max.X, v.X)
	e.Max.Y = math.Max(e.Max.Y, v.Y)
	e.Max.Z = math.Max(e.Max.Z, v.Z)
	e.N++
}

// Center is the per-axis midpoint (min+max)/2.
func (e Extents) Center() orientation.Offsets {
	return orientation.Offsets{
		X: (e.Min.X + e.Max.X) / 2,
		Y: (e.Min.Y + e.Max.Y) / 2,
		Z: (e.Min.Z + e.Max.Z) / 2,
	}
}

// Range is the per-axis max-min.
func (e Extents) Range() imu.Vec3 {
	return e.Max.Sub(e.Min)
}

// Result is the outcome of one sweep.
type Result struct {
	Timestamp time.Time           `json:"timestamp"`
	Offsets   orientation.Offsets `json:"mag_offset"`
	Extents   Extents             `json:"extents"`
	Range     imu.Vec3            `json:"mag_range"`
	// Confidence is the smallest axis range over the largest, as a
	// percentage. A sweep that never rotated an axis scores near zero.
	Confidence float64       `json:"mag_confidence"`
	Duration   time.Duration `json:"duration"`
}

// Calibrator runs the sweep. The zero value is not usable; use New.
type Calibrator struct {
	Duration     time.Duration
	PollInterval time.Duration
	Clock        clockwork.Clock

	// Progress, if set, is called after every poll with the elapsed time.
	Progress func(elapsed, total time.Duration)
}

// New returns a calibrator on the real clock. Non-positive arguments fall
// back to the defaults.
func New(duration, poll time.Duration) *Calibrator {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Calibrator{
		Duration:     duration,
		PollInterval: poll,
		Clock:        clockwork.NewRealClock(),
	}
}

// Run polls src until Duration has elapsed and returns the offsets. It
// blocks for the whole window and cannot be cancelled. Read errors are
// logged and skipped.
func (c *Calibrator) Run(src imu.Source) (Result, error) {
	start := c.Clock.Now()
	ext := NewExtents()
	readErrors := 0

	for {
		elapsed := c.Clock.Since(start)
		if elapsed >= c.Duration {
			break
		}

		r, err := src.Read()
		if err != nil {
			readErrors++
			log.Printf("calibration: read error: %v", err)
		} else {
			ext.Add(r.Mag)
		}

		if c.Progress != nil {
			c.Progress(elapsed, c.Duration)
		}
		c.Clock.Sleep(c.PollInterval)
	}

	if readErrors > 0 {
		log.Printf("calibration: %d of %d reads failed", readErrors, readErrors+ext.N)
	}
	if ext.N == 0 {
		return Result{}, ErrNoSamples
	}

	rng := ext.Range()
	return Result{
		Timestamp:  c.Clock.Now(),
		Offsets:    ext.Center(),
		Extents:    ext,
		Range:      rng,
		Confidence: coverageConfidence(rng),
		Duration:   c.Clock.Since(start),
	}, nil
}

func coverageConfidence(rng imu.Vec3) float64 {
	maxRange := math.Max(rng.X, math.Max(rng.Y, rng.Z))
	if maxRange <= 0 {
		return 0
	}
	minRange := math.Min(rng.X, math.Min(rng.Y, rng.Z))
	return minRange / maxRange * 100
}
