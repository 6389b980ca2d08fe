// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/compass_logger/internal/config"
	"github.com/relabs-tech/compass_logger/internal/imu"
)

// Accelerometer LSB per g for range codes 0..3 (±2, ±4, ±8, ±16 g).
var accelLSBPerG = [4]float64{16384, 8192, 4096, 2048}

// Gyroscope LSB per °/s for range codes 0..3 (±250, ±500, ±1000, ±2000 °/s).
var gyroLSBPerDPS = [4]float64{131, 65.5, 32.8, 16.4}

// motionSensor is the subset of the MPU9250 driver used for readings.
type motionSensor interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
	GetRotationX() (int16, error)
	GetRotationY() (int16, error)
	GetRotationZ() (int16, error)
}

type fieldSensor interface {
	Sense() (imu.Vec3, error)
}

// IMUSource combines the MPU9250 accelerometer/gyroscope with the external
// HMC magnetometer.
type IMUSource struct {
	motion motionSensor
	mag    fieldSensor
	mount  Mount

	accelScale float64
	gyroScale  float64
}

// NewIMUSource initializes both chips from cfg.
func NewIMUSource(cfg *config.Config) (*IMUSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(cfg.IMUCSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", cfg.IMUCSPin)
	}
	tr, err := mpu9250.NewSpiTransport(cfg.IMUSPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", cfg.IMUSPIDevice, err)
	}
	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(cfg.IMUAccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%dg)", cfg.IMUAccelRange, []int{2, 4, 8, 16}[cfg.IMUAccelRange])
	if err := dev.SetGyroRange(cfg.IMUGyroRange); err != nil {
		return nil, fmt.Errorf("IMU: set gyro range: %w", err)
	}
	log.Printf("IMU: gyroscope range set to %d (±%d°/s)", cfg.IMUGyroRange, []int{250, 500, 1000, 2000}[cfg.IMUGyroRange])

	if _, err := dev.SelfTest(); err != nil {
		log.Printf("Warning: IMU self-test failed: %v", err)
	} else {
		log.Printf("IMU self-test passed")
	}
	if err := dev.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	}

	bus, err := i2creg.Open(cfg.MagI2CBus)
	if err != nil {
		return nil, fmt.Errorf("magnetometer: open I2C bus %q: %w", cfg.MagI2CBus, err)
	}
	mag, err := NewMagnetometer(bus, MagOpts{
		Addr:       cfg.MagI2CAddr,
		GainCode:   cfg.MagGainCode,
		ODRHz:      cfg.MagODRHz,
		AvgSamples: cfg.MagAvgSamples,
	})
	if err != nil {
		bus.Close()
		return nil, err
	}
	if id, err := mag.ID(); err != nil {
		log.Printf("magnetometer: %v", err)
	} else {
		log.Printf("magnetometer: ID %q at 0x%02X", id, cfg.MagI2CAddr)
	}
	// Earth's field is 25-65 µT; far outside that points at gain or wiring.
	if v, err := mag.Sense(); err != nil {
		log.Printf("magnetometer: first read: %v", err)
	} else {
		log.Printf("magnetometer: field magnitude %.1f µT", v.Norm())
	}

	return newIMUSource(dev, mag, Mount{SwapXY: cfg.MagSwapXY, InvertZ: cfg.MagInvertZ},
		cfg.IMUAccelRange, cfg.IMUGyroRange), nil
}

func newIMUSource(motion motionSensor, mag fieldSensor, m Mount, accelRange, gyroRange byte) *IMUSource {
	return &IMUSource{
		motion:     motion,
		mag:        mag,
		mount:      m,
		accelScale: accelLSBPerG[accelRange&3],
		gyroScale:  gyroLSBPerDPS[gyroRange&3],
	}
}

// Read returns one reading in g, °/s and µT, magnetometer in the
// accelerometer frame.
func (s *IMUSource) Read() (imu.Reading, error) {
	var raw [6]int16
	reads := [6]func() (int16, error){
		s.motion.GetAccelerationX, s.motion.GetAccelerationY, s.motion.GetAccelerationZ,
		s.motion.GetRotationX, s.motion.GetRotationY, s.motion.GetRotationZ,
	}
	names := [6]string{"accel X", "accel Y", "accel Z", "gyro X", "gyro Y", "gyro Z"}
	for i, read := range reads {
		v, err := read()
		if err != nil {
			return imu.Reading{}, fmt.Errorf("IMU %s: %w", names[i], err)
		}
		raw[i] = v
	}

	mag, err := s.mag.Sense()
	if err != nil {
		return imu.Reading{}, err
	}

	return imu.Reading{
		Accel: imu.Vec3{
			X: float64(raw[0]) / s.accelScale,
			Y: float64(raw[1]) / s.accelScale,
			Z: float64(raw[2]) / s.accelScale,
		},
		Gyro: imu.Vec3{
			X: float64(raw[3]) / s.gyroScale,
			Y: float64(raw[4]) / s.gyroScale,
			Z: float64(raw[5]) / s.gyroScale,
		},
		Mag: s.mount.Apply(mag),
	}, nil
}
