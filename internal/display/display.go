// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"io"
	"strings"
)

// Frame is one screenful of text, top line first.
type Frame struct {
	Lines []string
}

// Sink accepts frames for display.
type Sink interface {
	Show(f Frame) error
}

// Console prints every frame as a single line.
type Console struct {
	W io.Writer
}

// Show implements Sink.
func (c Console) Show(f Frame) error {
	_, err := fmt.Fprintf(c.W, "[COMPASS] %s\n", strings.Join(f.Lines, " | "))
	return err
}

// Multi fans a frame out to several sinks and returns the first error.
type Multi []Sink

// Show implements Sink.
func (m Multi) Show(f Frame) error {
	var first error
	for _, s := range m {
		if err := s.Show(f); err != nil && first == nil {
			first = err
		}
	}
	return first
}
