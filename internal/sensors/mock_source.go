// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/westphae/quaternion"

	"github.com/relabs-tech/compass_logger/internal/imu"
)

// MockOptions shapes the simulated device.
type MockOptions struct {
	Rate  float64  // yaw rate in °/s, heading increases with time
	Tilt  float64  // constant roll in degrees, about the Y axis
	Field float64  // horizontal field strength in µT
	Down  float64  // vertical field component in µT
	Bias  imu.Vec3 // hard-iron offset added to every mag reading, µT
	Clock clockwork.Clock
}

// DefaultMockOptions is a level device turning slowly in a mid-latitude
// field with a visible hard-iron bias.
func DefaultMockOptions() MockOptions {
	return MockOptions{
		Rate:  10,
		Field: 20,
		Down:  -40,
		Bias:  imu.Vec3{X: 12, Y: -7, Z: 3},
	}
}

// MockSource synthesizes readings for a device rotating about its vertical
// axis. Readings are exact, so a level mock with zero bias reports its
// simulated heading.
type MockSource struct {
	opts  MockOptions
	clock clockwork.Clock
	start time.Time
}

// NewMockSource starts the simulation at heading 0 on opts.Clock, or on
// the real clock when none is given.
func NewMockSource(opts MockOptions) *MockSource {
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &MockSource{opts: opts, clock: clk, start: clk.Now()}
}

// Heading returns the simulated heading in degrees at the current time.
func (m *MockSource) Heading() float64 {
	h := math.Mod(m.opts.Rate*m.clock.Since(m.start).Seconds(), 360)
	if h < 0 {
		h += 360
	}
	return h
}

var (
	axisY = quaternion.Vec3{Y: 1}
	axisZ = quaternion.Vec3{Z: 1}
)

func rotate(q quaternion.Quaternion, v imu.Vec3) imu.Vec3 {
	r := q.RotateVec3Unit(quaternion.Vec3{X: v.X, Y: v.Y, Z: v.Z})
	return imu.Vec3{X: r.X, Y: r.Y, Z: r.Z}
}

// Read returns the reading for the current simulated attitude. It never
// fails.
func (m *MockSource) Read() (imu.Reading, error) {
	// Body-frame field for heading h is the north field rotated by +h
	// about the vertical, then rolled by the tilt.
	q := quaternion.Prod(
		quaternion.FromAxisAngle(axisY, m.opts.Tilt*math.Pi/180),
		quaternion.FromAxisAngle(axisZ, m.Heading()*math.Pi/180),
	)

	accel := rotate(q, imu.Vec3{Z: 1})
	mag := rotate(q, imu.Vec3{X: m.opts.Field, Z: m.opts.Down})

	return imu.Reading{
		Accel: accel,
		Gyro:  imu.Vec3{Z: m.opts.Rate},
		Mag:   mag.Add(m.opts.Bias),
	}, nil
}
