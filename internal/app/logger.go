// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/relabs-tech/compass_logger/internal/calibration"
	"github.com/relabs-tech/compass_logger/internal/config"
	"github.com/relabs-tech/compass_logger/internal/display"
	"github.com/relabs-tech/compass_logger/internal/export"
	"github.com/relabs-tech/compass_logger/internal/input"
	"github.com/relabs-tech/compass_logger/internal/session"
)

// RunLogger runs the compass logger until interrupted. With a positive
// duration it logs from start-up and exports once the duration elapses.
func RunLogger(duration time.Duration) error {
	cfg := config.Get()
	log.Println("starting compass logger")

	disp, closeDisplay, err := OpenDisplay(cfg)
	if err != nil {
		return err
	}
	defer closeDisplay()

	src, err := OpenSource(cfg)
	if err != nil {
		showSensorFailure(disp, err)
		return fmt.Errorf("logger: sensor init: %w", err)
	}
	defer closeSource(src)

	in, err := OpenInputs(cfg, src)
	if err != nil {
		return err
	}

	cal := calibration.New(
		time.Duration(cfg.CalibrationDuration)*time.Millisecond,
		time.Duration(cfg.CalibrationPollInterval)*time.Millisecond,
	)
	sess := session.New(src, disp, export.FileSink{Dir: cfg.ExportDir}, cal, session.Options{
		Capacity:        cfg.SampleCapacity,
		TimestampMode:   cfg.TimestampMode,
		ExportName:      cfg.ExportFile,
		CalibrationFile: cfg.CalibrationFile,
	})
	if off, ok := loadOffsets(cfg.CalibrationFile); ok {
		sess.SetOffsets(off)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if duration > 0 {
		log.Printf("logger: headless run for %v", duration)
		sess.Start()
	}
	gov := session.Governor{Interval: time.Duration(cfg.SampleInterval) * time.Millisecond}
	loopErr := runLoop(ctx, sess, in, clockwork.NewRealClock(), gov, duration)

	if sess.Logging() {
		sess.Stop()
		if _, err := sess.Save(); err != nil {
			log.Printf("logger: export on exit: %v", err)
		}
	}
	log.Printf("compass logger stopped (%s)", sess.Status())
	return loopErr
}

// showSensorFailure leaves the reason on screen; with no sensor there is
// nothing else to do.
func showSensorFailure(disp display.Sink, err error) {
	if showErr := disp.Show(display.Frame{Lines: []string{"SENSOR FAIL", err.Error()}}); showErr != nil {
		log.Printf("logger: display error: %v", showErr)
	}
}

// runLoop ticks the session until ctx is done, the duration elapses, or
// the source runs dry. A zero duration runs forever.
func runLoop(ctx context.Context, sess *session.Session, in input.Poller, clk clockwork.Clock,
	gov session.Governor, duration time.Duration) error {
	var deadline <-chan time.Time
	if duration > 0 {
		deadline = clk.After(duration)
	}

	last := clk.Now()
	for {
		start := clk.Now()
		if _, err := sess.Tick(start.Sub(last)); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("logger: sensor stream closed: %w", err)
			}
			log.Printf("logger: %v", err)
		}
		last = start

		// Presses go after the tick so a fresh Start is timed from here.
		if in != nil {
			for _, z := range in.Poll() {
				log.Printf("logger: %s pressed (%s)", z, input.ActionFor(z))
				if err := sess.Press(z); err != nil {
					log.Printf("logger: %v", err)
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case <-clk.After(gov.Wait(clk.Since(start))):
		}
	}
}
