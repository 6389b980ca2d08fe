// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/compass_logger/internal/config"
	"github.com/relabs-tech/compass_logger/internal/imu"
	"github.com/relabs-tech/compass_logger/internal/orientation"
)

// RunCompassConsole prints heading, pitch and roll at the sample interval.
// Nothing is logged.
func RunCompassConsole() error {
	cfg := config.Get()

	src, err := OpenSource(cfg)
	if err != nil {
		return err
	}
	defer closeSource(src)

	off, _ := loadOffsets(cfg.CalibrationFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return printCompass(ctx, os.Stdout, src, off, time.Duration(cfg.SampleInterval)*time.Millisecond)
}

func printCompass(ctx context.Context, w io.Writer, src imu.Source, off orientation.Offsets, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r, err := src.Read()
		if err != nil {
			return err
		}
		pose := orientation.FromReading(r, off)
		fmt.Fprintf(w, "HDG=%6.2f  PITCH=%6.2f  ROLL=%6.2f\n", pose.Heading, pose.Pitch, pose.Roll)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
