// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/compass_logger/internal/app"
	"github.com/relabs-tech/compass_logger/internal/config"
)

func main() {
	configPath := flag.String("config", "./compass_config.txt", "path to configuration file")
	out := flag.String("out", "", "calibration result file (default CALIBRATION_FILE or "+app.DefaultCalibrationFile+")")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunCalibration(*out); err != nil {
		log.Fatalf("calibration failed: %v", err)
	}
}
