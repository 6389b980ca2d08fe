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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/compass_logger/internal/config"
	"github.com/relabs-tech/compass_logger/internal/imu"
	"github.com/relabs-tech/compass_logger/internal/input"
)

const buttonPollInterval = 20 * time.Millisecond

// RunButtonTest prints every button press until interrupted. With the
// serial source, touches on the bottom bar are reported too.
func RunButtonTest() error {
	cfg := config.Get()

	var src imu.Source
	if cfg.SensorSource == config.SourceSerial {
		s, err := OpenSource(cfg)
		if err != nil {
			return err
		}
		defer closeSource(s)
		src = s
	}

	in, err := OpenInputs(cfg, src)
	if err != nil {
		return err
	}
	if in == nil {
		return errors.New("buttons: no button pins configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if src != nil {
		// Touch events only arrive while the stream is being read.
		go drain(ctx, src)
	}

	log.Println("buttons: press a button (Ctrl-C to exit)")
	printPresses(ctx, os.Stdout, in, buttonPollInterval)
	return nil
}

func printPresses(ctx context.Context, w io.Writer, in input.Poller, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		for _, z := range in.Poll() {
			fmt.Fprintf(w, "Pressed: %s\n", z)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func drain(ctx context.Context, src imu.Source) {
	for ctx.Err() == nil {
		if _, err := src.Read(); errors.Is(err, io.EOF) {
			return
		}
	}
}
