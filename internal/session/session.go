// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session holds the state of one compass logger: the sample ring,
// the magnetometer offsets, and the start/stop/calibrate/save controls.
// It is driven by a single caller; nothing here is safe for concurrent use.
package session

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/compass_logger/internal/buffer"
	"github.com/relabs-tech/compass_logger/internal/calibration"
	"github.com/relabs-tech/compass_logger/internal/config"
	"github.com/relabs-tech/compass_logger/internal/display"
	"github.com/relabs-tech/compass_logger/internal/export"
	"github.com/relabs-tech/compass_logger/internal/imu"
	"github.com/relabs-tech/compass_logger/internal/input"
	"github.com/relabs-tech/compass_logger/internal/orientation"
)

// Options configures a Session.
type Options struct {
	Capacity        int
	TimestampMode   string // config.TimestampDelta or config.TimestampAbsolute
	ExportName      string
	CalibrationFile string // empty keeps offsets in memory only
}

// Session is the explicit replacement for the loop's global state.
type Session struct {
	src  imu.Source
	disp display.Sink
	sink export.Sink
	cal  *calibration.Calibrator
	opts Options

	ring    *buffer.Ring
	offsets orientation.Offsets

	logging     bool
	uptime      time.Duration
	sinceSample time.Duration
	pose        orientation.Pose
	status      string
}

// New creates an idle session.
func New(src imu.Source, disp display.Sink, sink export.Sink, cal *calibration.Calibrator, opts Options) *Session {
	if opts.TimestampMode == "" {
		opts.TimestampMode = config.TimestampDelta
	}
	return &Session{
		src:    src,
		disp:   disp,
		sink:   sink,
		cal:    cal,
		opts:   opts,
		ring:   buffer.NewRing(opts.Capacity),
		status: "Ready",
	}
}

// Ring is the sample store of the current (or last) logging session.
func (s *Session) Ring() *buffer.Ring { return s.ring }

// Offsets are the magnetometer offsets applied to every reading.
func (s *Session) Offsets() orientation.Offsets { return s.offsets }

// Logging reports whether ticks currently append samples.
func (s *Session) Logging() bool { return s.logging }

// Status is the last status message shown on the bottom line.
func (s *Session) Status() string { return s.status }

// SetOffsets replaces the magnetometer offsets, e.g. from a saved file.
func (s *Session) SetOffsets(o orientation.Offsets) {
	s.offsets = o
}

// Start clears the ring and begins a new logging session.
func (s *Session) Start() {
	s.ring.Reset()
	s.logging = true
	s.sinceSample = 0
	s.setStatus("Logging")
	log.Printf("session: logging started (capacity %d)", s.ring.Capacity())
}

// Stop ends logging. Samples stay in the ring until the next Start.
func (s *Session) Stop() {
	s.logging = false
	s.setStatus(fmt.Sprintf("Stopped %d", s.ring.Count()))
	if last, ok := s.ring.Last(); ok {
		log.Printf("session: logging stopped with %d samples, last heading %.1f", s.ring.Count(), last.Heading)
	} else {
		log.Println("session: logging stopped with no samples")
	}
}

// Calibrate runs the magnetometer sweep and installs the new offsets. It
// blocks for the whole calibration window. On failure the previous
// offsets are kept.
func (s *Session) Calibrate() error {
	s.setStatus("Rotate device")
	lastPct := -1
	s.cal.Progress = func(elapsed, total time.Duration) {
		pct := int(100 * elapsed / total)
		if pct/10 != lastPct/10 {
			lastPct = pct
			s.setStatus(fmt.Sprintf("Cal %d%%", pct))
		}
	}
	defer func() { s.cal.Progress = nil }()

	res, err := s.cal.Run(s.src)
	if err != nil {
		s.setStatus("Cal FAILED")
		return fmt.Errorf("session: calibrate: %w", err)
	}
	s.offsets = res.Offsets
	log.Printf("session: mag offsets X=%.2f Y=%.2f Z=%.2f (confidence %.0f%%, %d samples)",
		res.Offsets.X, res.Offsets.Y, res.Offsets.Z, res.Confidence, res.Extents.N)

	if s.opts.CalibrationFile != "" {
		if err := calibration.Save(s.opts.CalibrationFile, res); err != nil {
			log.Printf("session: %v", err)
		}
	}
	s.setStatus(fmt.Sprintf("Cal OK %.0f%%", res.Confidence))
	return nil
}

// Save exports the ring. The ring is left intact either way.
func (s *Session) Save() (int, error) {
	s.setStatus("Saving...")
	n, err := export.Export(s.sink, s.opts.ExportName, s.ring)
	if err != nil {
		if errors.Is(err, export.ErrSinkUnavailable) {
			s.setStatus("No SD card")
		} else {
			s.setStatus("Save FAILED")
		}
		return 0, err
	}
	s.setStatus(fmt.Sprintf("Saved %d", n))
	log.Printf("session: exported %d samples to %s", n, s.opts.ExportName)
	return n, nil
}

// Press performs the action bound to zone. LEFT starts logging when idle
// and stops it when running.
func (s *Session) Press(z input.Zone) error {
	switch input.ActionFor(z) {
	case input.ActionToggleLogging:
		if s.logging {
			s.Stop()
		} else {
			s.Start()
		}
	case input.ActionCalibrate:
		if s.logging {
			s.Stop()
		}
		return s.Calibrate()
	case input.ActionSave:
		_, err := s.Save()
		return err
	}
	return nil
}

// Tick performs one loop iteration: read the sensor, estimate the pose,
// log a sample when logging, and refresh the display. elapsed is the time
// since the previous tick. Start and Press belong right after a tick
// returns: the next elapsed then runs from Start, not from before it.
func (s *Session) Tick(elapsed time.Duration) (orientation.Pose, error) {
	s.uptime += elapsed
	s.sinceSample += elapsed

	r, err := s.src.Read()
	if err != nil {
		s.setStatus("Sensor error")
		return s.pose, fmt.Errorf("session: read sensor: %w", err)
	}
	s.pose = orientation.FromReading(r, s.offsets)

	if s.logging {
		ts := s.sinceSample
		if s.opts.TimestampMode == config.TimestampAbsolute {
			ts = s.uptime
		}
		s.ring.Append(buffer.Sample{
			TimestampMS: ts.Milliseconds(),
			Heading:     s.pose.Heading,
			Pitch:       s.pose.Pitch,
			Roll:        s.pose.Roll,
			Accel:       r.Accel,
			Gyro:        r.Gyro,
		})
		s.sinceSample = 0
	}

	s.show()
	return s.pose, nil
}

func (s *Session) setStatus(msg string) {
	s.status = msg
	s.show()
}

// Frame is the current screen content.
func (s *Session) Frame() display.Frame {
	state := "IDLE"
	if s.logging {
		state = "REC"
	}
	wrap := ""
	if s.ring.Full() {
		wrap = " wrap"
	}
	return display.Frame{Lines: []string{
		fmt.Sprintf("HDG %6.1f", s.pose.Heading),
		fmt.Sprintf("P%6.1f R%6.1f", s.pose.Pitch, s.pose.Roll),
		fmt.Sprintf("%s %d/%d%s", state, s.ring.Count(), s.ring.Capacity(), wrap),
		s.status,
	}}
}

func (s *Session) show() {
	if s.disp == nil {
		return
	}
	if err := s.disp.Show(s.Frame()); err != nil {
		log.Printf("session: display error: %v", err)
	}
}
