// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	oledW      = 128
	oledH      = 64
	lineHeight = 13
	maxLines   = oledH / lineHeight
)

// OLED drives a 128x64 SSD1306 panel over I2C.
type OLED struct {
	dev *ssd1306.Dev
}

// NewOLED initializes the panel on bus.
func NewOLED(bus i2c.Bus) (*OLED, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	return &OLED{dev: dev}, nil
}

// Show implements Sink. Only the first four lines fit.
func (o *OLED) Show(f Frame) error {
	img := Render(f)
	return o.dev.Draw(o.dev.Bounds(), img, image.Point{})
}

// Halt blanks the panel.
func (o *OLED) Halt() error {
	return o.dev.Halt()
}

// Render draws f with the 7x13 basic font, one line every 13 pixels.
func Render(f Frame) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledW, oledH))

	// Blank image
	for i := range img.Pix {
		img.Pix[i] = 0
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range f.Lines {
		if i == maxLines {
			break
		}
		drawer.Dot = fixed.P(0, lineHeight*(i+1))
		drawer.DrawString(line)
	}
	return img
}
