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
	duration := flag.Duration("duration", 0, "log for this long, export, and exit (0 = run until interrupted)")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunLogger(*duration); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
