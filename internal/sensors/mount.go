// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "github.com/relabs-tech/compass_logger/internal/imu"

// Mount maps the magnetometer axes onto the accelerometer axes for a given
// board layout. On the reference board the magnetometer X and Y axes are
// exchanged relative to the IMU.
type Mount struct {
	SwapXY  bool
	InvertZ bool
}

// Apply returns v in the accelerometer frame.
func (m Mount) Apply(v imu.Vec3) imu.Vec3 {
	if m.SwapXY {
		v.X, v.Y = v.Y, v.X
	}
	if m.InvertZ {
		v.Z = -v.Z
	}
	return v
}

type mounted struct {
	src   imu.Source
	mount Mount
}

// WithMount wraps src so every reading has m applied to its magnetometer
// vector. The zero Mount returns src unchanged.
func WithMount(src imu.Source, m Mount) imu.Source {
	if m == (Mount{}) {
		return src
	}
	return &mounted{src: src, mount: m}
}

func (s *mounted) Read() (imu.Reading, error) {
	r, err := s.src.Read()
	if err != nil {
		return r, err
	}
	r.Mag = s.mount.Apply(r.Mag)
	return r, nil
}
