// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/compass_logger/internal/imu"
)

// HMC5883L/HMC5983 register map.
const (
	hmcRegCRA    = 0x00
	hmcRegCRB    = 0x01
	hmcRegMode   = 0x02
	hmcRegData   = 0x03 // X MSB, X LSB, Z MSB, Z LSB, Y MSB, Y LSB
	hmcRegID     = 0x0A

	hmcModeContinuous = 0x00
)

// DefaultMagAddr is the fixed I2C address of the HMC parts.
const DefaultMagAddr = 0x1E

// LSB per Gauss for each gain code (datasheet typical).
var (
	hmcGainXY = [8]int{1370, 1090, 820, 660, 440, 390, 330, 230}
	hmcGainZ  = [8]int{1330, 980, 660, 600, 400, 355, 295, 205}
)

// Time the part needs after a mode change before data is valid.
var hmcSettle = 10 * time.Millisecond

// MagOpts configures the magnetometer.
type MagOpts struct {
	Addr       uint16 // 0 means DefaultMagAddr
	GainCode   int    // 0..7, out of range falls back to 1 (±1.3 Ga)
	ODRHz      int    // 75, 30, 15, 7 or 3; anything else is 15
	AvgSamples int    // 1, 2, 4 or 8
}

// Magnetometer is an HMC5883L/HMC5983 on I2C.
type Magnetometer struct {
	dev        i2c.Dev
	lsbPerGaXY float64
	lsbPerGaZ  float64
}

// NewMagnetometer writes the configuration registers and waits for the
// part to settle.
func NewMagnetometer(bus i2c.Bus, opts MagOpts) (*Magnetometer, error) {
	addr := opts.Addr
	if addr == 0 {
		addr = DefaultMagAddr
	}
	gc := opts.GainCode
	if gc < 0 || gc > 7 {
		gc = 1
	}
	m := &Magnetometer{
		dev:        i2c.Dev{Addr: addr, Bus: bus},
		lsbPerGaXY: float64(hmcGainXY[gc]),
		lsbPerGaZ:  float64(hmcGainZ[gc]),
	}

	cra := avgBits(opts.AvgSamples)<<5 | odrBits(opts.ODRHz)<<2
	if err := m.writeReg(hmcRegCRA, cra); err != nil {
		return nil, fmt.Errorf("magnetometer: write CRA: %w", err)
	}
	if err := m.writeReg(hmcRegCRB, byte(gc)<<5); err != nil {
		return nil, fmt.Errorf("magnetometer: write CRB: %w", err)
	}
	if err := m.writeReg(hmcRegMode, hmcModeContinuous); err != nil {
		return nil, fmt.Errorf("magnetometer: write MODE: %w", err)
	}
	time.Sleep(hmcSettle)
	return m, nil
}

func avgBits(n int) byte {
	switch n {
	case 8:
		return 0b11
	case 4:
		return 0b10
	case 2:
		return 0b01
	}
	return 0b00
}

func odrBits(hz int) byte {
	switch hz {
	case 75:
		return 0b110
	case 30:
		return 0b100
	case 7:
		return 0b010
	case 3:
		return 0b001
	}
	return 0b011
}

// ID returns the identity bytes, "H43" on a genuine part.
func (m *Magnetometer) ID() (string, error) {
	buf := make([]byte, 3)
	if err := m.readRegs(hmcRegID, buf); err != nil {
		return "", fmt.Errorf("magnetometer: read ID: %w", err)
	}
	return string(buf), nil
}

// SenseRaw returns the raw X, Y, Z counts. The part sends X, Z, Y.
func (m *Magnetometer) SenseRaw() (x, y, z int16, err error) {
	data := make([]byte, 6)
	if err := m.readRegs(hmcRegData, data); err != nil {
		return 0, 0, 0, fmt.Errorf("magnetometer: read data: %w", err)
	}
	x = int16(data[0])<<8 | int16(data[1])
	z = int16(data[2])<<8 | int16(data[3])
	y = int16(data[4])<<8 | int16(data[5])
	return x, y, z, nil
}

// Sense returns the field in µT in the sensor's own frame.
func (m *Magnetometer) Sense() (imu.Vec3, error) {
	x, y, z, err := m.SenseRaw()
	if err != nil {
		return imu.Vec3{}, err
	}
	// counts / (LSB/Ga) = Ga; 1 Ga = 100 µT
	return imu.Vec3{
		X: float64(x) / m.lsbPerGaXY * 100,
		Y: float64(y) / m.lsbPerGaXY * 100,
		Z: float64(z) / m.lsbPerGaZ * 100,
	}, nil
}

func (m *Magnetometer) writeReg(reg, val byte) error {
	return m.dev.Tx([]byte{reg, val}, nil)
}

func (m *Magnetometer) readRegs(reg byte, out []byte) error {
	if len(out) == 0 {
		return errors.New("empty read buffer")
	}
	return m.dev.Tx([]byte{reg}, out)
}
