// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

// Touch bar geometry on the 320x240 landscape screen: the bar spans the
// bottom 60 rows and is split into three equal-ish zones.
const (
	BarTop      = 180
	MiddleStart = 106
	RightStart  = 212
)

// Zone is one of the three button areas. The same zones name the three
// physical buttons under the screen.
type Zone int

const (
	ZoneNone Zone = iota
	ZoneLeft
	ZoneMiddle
	ZoneRight
)

func (z Zone) String() string {
	switch z {
	case ZoneLeft:
		return "LEFT"
	case ZoneMiddle:
		return "MIDDLE"
	case ZoneRight:
		return "RIGHT"
	default:
		return "NONE"
	}
}

// ZoneAt maps a touch point to a zone. Touches above the bar are ZoneNone.
func ZoneAt(x, y int) Zone {
	if y <= BarTop {
		return ZoneNone
	}
	switch {
	case x < MiddleStart:
		return ZoneLeft
	case x < RightStart:
		return ZoneMiddle
	default:
		return ZoneRight
	}
}

// Action is what a zone press asks the logger to do.
type Action int

const (
	ActionNone Action = iota
	ActionToggleLogging
	ActionCalibrate
	ActionSave
)

func (a Action) String() string {
	switch a {
	case ActionToggleLogging:
		return "start/stop"
	case ActionCalibrate:
		return "calibrate"
	case ActionSave:
		return "save"
	default:
		return "none"
	}
}

// ActionFor is the fixed zone layout: LEFT start/stop, MIDDLE calibrate,
// RIGHT save.
func ActionFor(z Zone) Action {
	switch z {
	case ZoneLeft:
		return ActionToggleLogging
	case ZoneMiddle:
		return ActionCalibrate
	case ZoneRight:
		return ActionSave
	default:
		return ActionNone
	}
}

// Poller reports zones pressed since the previous call. Poll never blocks.
type Poller interface {
	Poll() []Zone
}

// Pollers merges several pollers in order.
type Pollers []Poller

// Poll implements Poller.
func (ps Pollers) Poll() []Zone {
	var out []Zone
	for _, p := range ps {
		out = append(out, p.Poll()...)
	}
	return out
}
