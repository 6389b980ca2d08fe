// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relabs-tech/compass_logger/internal/calibration"
	"github.com/relabs-tech/compass_logger/internal/config"
	"github.com/relabs-tech/compass_logger/internal/imu"
)

// DefaultCalibrationFile is used when neither -out nor CALIBRATION_FILE is
// set.
const DefaultCalibrationFile = "./mag_calibration.json"

// RunCalibration runs one magnetometer sweep on the configured source and
// writes the result to outPath.
func RunCalibration(outPath string) error {
	cfg := config.Get()
	if outPath == "" {
		outPath = cfg.CalibrationFile
	}
	if outPath == "" {
		outPath = DefaultCalibrationFile
	}

	src, err := OpenSource(cfg)
	if err != nil {
		return err
	}
	defer closeSource(src)

	cal := calibration.New(
		time.Duration(cfg.CalibrationDuration)*time.Millisecond,
		time.Duration(cfg.CalibrationPollInterval)*time.Millisecond,
	)
	res, err := calibrate(os.Stdout, cal, src)
	if err != nil {
		return err
	}
	if err := calibration.Save(outPath, res); err != nil {
		return err
	}
	fmt.Printf("Saved to %s\n", outPath)
	return nil
}

func calibrate(w io.Writer, cal *calibration.Calibrator, src imu.Source) (calibration.Result, error) {
	fmt.Fprintln(w, "=== Magnetometer hard-iron calibration ===")
	fmt.Fprintf(w, "Rotate the device through all orientations for %v.\n", cal.Duration)
	fmt.Fprintln(w, "Move away from large metal objects and power cables if possible.")
	fmt.Fprintln(w)

	lastSec := -1
	cal.Progress = func(elapsed, total time.Duration) {
		if sec := int(elapsed / time.Second); sec != lastSec {
			lastSec = sec
			fmt.Fprintf(w, "  %2ds / %v\n", sec, total)
		}
	}
	defer func() { cal.Progress = nil }()

	res, err := cal.Run(src)
	if err != nil {
		return calibration.Result{}, err
	}

	fmt.Fprintln(w, "\nCalibration complete.")
	fmt.Fprintf(w, "Mag offset (µT): X=%.2f Y=%.2f Z=%.2f\n", res.Offsets.X, res.Offsets.Y, res.Offsets.Z)
	fmt.Fprintf(w, "Mag range (µT):  X=%.2f Y=%.2f Z=%.2f\n", res.Range.X, res.Range.Y, res.Range.Z)
	fmt.Fprintf(w, "Samples: %d | confidence=%.2f\n", res.Extents.N, res.Confidence)
	if res.Confidence < 30 {
		fmt.Fprintln(w, "Warning: low coverage, rotate about every axis and try again.")
	}
	return res, nil
}
