// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/compass_logger/internal/calibration"
	"github.com/relabs-tech/compass_logger/internal/config"
	"github.com/relabs-tech/compass_logger/internal/display"
	"github.com/relabs-tech/compass_logger/internal/imu"
	"github.com/relabs-tech/compass_logger/internal/input"
	"github.com/relabs-tech/compass_logger/internal/orientation"
	"github.com/relabs-tech/compass_logger/internal/sensors"
)

// OpenSource returns the sensor source selected by SENSOR_SOURCE.
func OpenSource(cfg *config.Config) (imu.Source, error) {
	switch cfg.SensorSource {
	case config.SourceIMU:
		return sensors.NewIMUSource(cfg)
	case config.SourceSerial:
		src, err := sensors.OpenSerial(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			return nil, err
		}
		return &serialSource{
			Source:       sensors.WithMount(src, sensors.Mount{SwapXY: cfg.MagSwapXY, InvertZ: cfg.MagInvertZ}),
			SerialSource: src,
		}, nil
	case config.SourceMock:
		log.Println("sensors: using simulated source")
		return sensors.NewMockSource(sensors.DefaultMockOptions()), nil
	}
	return nil, fmt.Errorf("sensors: unknown source %q", cfg.SensorSource)
}

// serialSource reads mounted readings but keeps the touch queue and Close
// of the underlying link reachable.
type serialSource struct {
	imu.Source
	*sensors.SerialSource
}

func (s *serialSource) Read() (imu.Reading, error) { return s.Source.Read() }

// OpenDisplay returns the OLED mirrored to stdout when DISPLAY_ENABLED is
// set, otherwise the console sink alone. The returned function releases
// the hardware.
func OpenDisplay(cfg *config.Config) (display.Sink, func(), error) {
	if !cfg.DisplayEnabled {
		return display.Console{W: os.Stdout}, func() {}, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("display: periph host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return nil, nil, fmt.Errorf("display: open I2C bus %q: %w", cfg.DisplayI2CBus, err)
	}
	oled, err := display.NewOLED(bus)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	return mirrored(oled, os.Stdout), func() {
		if err := oled.Halt(); err != nil {
			log.Printf("display: halt: %v", err)
		}
		bus.Close()
	}, nil
}

// mirrored shows every frame on primary and as a console line on w.
func mirrored(primary display.Sink, w io.Writer) display.Sink {
	return display.Multi{primary, display.Console{W: w}}
}

// OpenInputs gathers the configured GPIO buttons and, for the serial
// source, the streamed touch events. It returns nil when nothing is wired.
func OpenInputs(cfg *config.Config, src imu.Source) (input.Poller, error) {
	var ps input.Pollers

	pins := map[input.Zone]string{}
	for z, name := range map[input.Zone]string{
		input.ZoneLeft:   cfg.ButtonLeftPin,
		input.ZoneMiddle: cfg.ButtonMiddlePin,
		input.ZoneRight:  cfg.ButtonRightPin,
	} {
		if name != "" {
			pins[z] = name
		}
	}
	if len(pins) > 0 {
		b, err := input.NewButtons(pins)
		if err != nil {
			return nil, err
		}
		log.Printf("input: %d buttons ready", b.Len())
		ps = append(ps, b)
	}
	if p, ok := src.(input.Poller); ok {
		ps = append(ps, p)
	}
	if len(ps) == 0 {
		return nil, nil
	}
	return ps, nil
}

// closeSource releases sources that hold a device handle.
func closeSource(src imu.Source) {
	if c, ok := src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("sensors: close: %v", err)
		}
	}
}

// loadOffsets reads saved magnetometer offsets. A missing file is not an
// error; the device then starts uncalibrated.
func loadOffsets(path string) (orientation.Offsets, bool) {
	if path == "" {
		return orientation.Offsets{}, false
	}
	res, err := calibration.Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("calibration: %v", err)
		}
		return orientation.Offsets{}, false
	}
	log.Printf("calibration: loaded offsets X=%.2f Y=%.2f Z=%.2f from %s",
		res.Offsets.X, res.Offsets.Y, res.Offsets.Z, path)
	return res.Offsets, true
}
