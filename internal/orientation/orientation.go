// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/relabs-tech/compass_logger/internal/imu"
)

// Pose is the canonical representation of orientation for the logger.
// All angles are in degrees; Heading is always in [0, 360).
type Pose struct {
	Heading float64 `json:"heading"`
	Pitch   float64 `json:"pitch"`
	Roll    float64 `json:"roll"`
}

// Offsets are the magnetometer hard-iron offsets, one per axis, in the
// same unit as imu.Reading.Mag.
type Offsets struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

const radToDeg = 180.0 / math.Pi

// Estimate computes a tilt-compensated heading plus pitch and roll from one
// accelerometer vector and one raw magnetometer vector. The offsets are
// subtracted from mag before use.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ax, az)
//	pitch = atan2(-ay, sqrt(ax² + az²))
//
// Gravity is assumed to dominate the acceleration, so the estimate is only
// valid while the device is static or moving slowly. Degenerate vectors are
// not guarded and yield NaN.
func Estimate(accel, mag imu.Vec3, off Offsets) Pose {
	mx := mag.X - off.X
	my := mag.Y - off.Y
	mz := mag.Z - off.Z

	roll := math.Atan2(accel.X, accel.Z)
	pitch := math.Atan2(-accel.Y, math.Sqrt(accel.X*accel.X+accel.Z*accel.Z))

	sinR, cosR := math.Sincos(roll)
	sinP, cosP := math.Sincos(pitch)

	// Rotate the field into the horizontal plane. The x/y pairing follows
	// the board mounting, see sensors.Mount.
	xh := mx*cosP + mz*sinP
	yh := mx*sinR*sinP + my*cosR - mz*sinR*cosP

	return Pose{
		Heading: normalizeHeading(math.Atan2(yh, xh) * radToDeg),
		Pitch:   pitch*radToDeg + 0, // -0 → 0
		Roll:    roll*radToDeg + 0,
	}
}

// FromReading is Estimate applied to a full sensor reading.
func FromReading(r imu.Reading, off Offsets) Pose {
	return Estimate(r.Accel, r.Mag, off)
}

func normalizeHeading(deg float64) float64 {
	if deg < 0 {
		deg += 360
	}
	// -1e-15 + 360 rounds to 360.
	if deg >= 360 {
		deg -= 360
	}
	return deg + 0 // -0 → 0
}
