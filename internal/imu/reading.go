// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "math"

// Vec3 is a 3-axis sensor vector.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the magnitude of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Reading is one instantaneous accel+gyro+mag sample in physical units.
type Reading struct {
	Accel Vec3 `json:"accel"` // g
	Gyro  Vec3 `json:"gyro"`  // °/s
	Mag   Vec3 `json:"mag"`   // µT
}

// Source is a pull-based sensor: every Read returns the current values.
type Source interface {
	Read() (Reading, error)
}
