// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type button struct {
	zone Zone
	pin  gpio.PinIn
	last gpio.Level
}

// Buttons polls active-low push buttons with internal pull-ups. A press is
// reported once, on the high→low transition.
type Buttons struct {
	buttons []*button
}

// NewButtons opens the named GPIO pins. Empty names are skipped.
func NewButtons(pins map[Zone]string) (*Buttons, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("buttons: periph host init: %w", err)
	}

	byZone := make(map[Zone]gpio.PinIn)
	for zone, name := range pins {
		if name == "" {
			continue
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("buttons: %s pin %q not found", zone, name)
		}
		byZone[zone] = p
	}
	return newButtons(byZone)
}

func newButtons(pins map[Zone]gpio.PinIn) (*Buttons, error) {
	b := &Buttons{}
	for _, zone := range []Zone{ZoneLeft, ZoneMiddle, ZoneRight} {
		p, ok := pins[zone]
		if !ok {
			continue
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("buttons: %s pin %s input: %w", zone, p, err)
		}
		b.buttons = append(b.buttons, &button{zone: zone, pin: p, last: p.Read()})
		log.Printf("buttons: %s on %s", zone, p)
	}
	return b, nil
}

// Poll implements Poller.
func (b *Buttons) Poll() []Zone {
	var pressed []Zone
	for _, btn := range b.buttons {
		l := btn.pin.Read()
		if btn.last == gpio.High && l == gpio.Low {
			pressed = append(pressed, btn.zone)
		}
		btn.last = l
	}
	return pressed
}

// Len is the number of configured buttons.
func (b *Buttons) Len() int { return len(b.buttons) }
