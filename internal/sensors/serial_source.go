// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/adrianmo/go-nmea"
	"github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/compass_logger/internal/imu"
	"github.com/relabs-tech/compass_logger/internal/input"
)

// ErrMalformedLine is returned for a line that is not a valid, correctly
// checksummed IMU or touch sentence.
var ErrMalformedLine = errors.New("serial: malformed line")

// Proprietary sentence types (the part after "$P").
const (
	typeIMU   = "IMU"
	typeTouch = "TCH"
)

// imuSentence is one reading: $PIMU,ax,ay,az,gx,gy,gz,mx,my,mz*CS
// in g, °/s and µT.
type imuSentence struct {
	nmea.BaseSentence
	Reading imu.Reading
}

// touchSentence is one touch: $PTCH,x,y*CS in screen pixels.
type touchSentence struct {
	nmea.BaseSentence
	X, Y int64
}

func init() {
	if err := nmea.RegisterParser(typeIMU, parseIMUSentence); err != nil {
		panic(err)
	}
	if err := nmea.RegisterParser(typeTouch, parseTouchSentence); err != nil {
		panic(err)
	}
}

func parseIMUSentence(s nmea.BaseSentence) (nmea.Sentence, error) {
	if len(s.Fields) != 9 {
		return nil, fmt.Errorf("nmea: %s has %d fields, want 9", s.Prefix(), len(s.Fields))
	}
	p := nmea.NewParser(s)
	return imuSentence{
		BaseSentence: s,
		Reading: imu.Reading{
			Accel: imu.Vec3{X: p.Float64(0, "ax"), Y: p.Float64(1, "ay"), Z: p.Float64(2, "az")},
			Gyro:  imu.Vec3{X: p.Float64(3, "gx"), Y: p.Float64(4, "gy"), Z: p.Float64(5, "gz")},
			Mag:   imu.Vec3{X: p.Float64(6, "mx"), Y: p.Float64(7, "my"), Z: p.Float64(8, "mz")},
		},
	}, p.Err()
}

func parseTouchSentence(s nmea.BaseSentence) (nmea.Sentence, error) {
	if len(s.Fields) != 2 {
		return nil, fmt.Errorf("nmea: %s has %d fields, want 2", s.Prefix(), len(s.Fields))
	}
	p := nmea.NewParser(s)
	return touchSentence{BaseSentence: s, X: p.Int64(0, "x"), Y: p.Int64(1, "y")}, p.Err()
}

// SerialSource reads sentences streamed by a companion microcontroller,
// one per line. Touch sentences are queued and returned by Poll.
type SerialSource struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner

	mu      sync.Mutex
	touches []input.Zone
}

// OpenSerial opens the port at the given baud rate.
func OpenSerial(port string, baud int) (*SerialSource, error) {
	rwc, err := serial.Open(serial.OpenOptions{
		PortName:        port,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", port, err)
	}
	log.Printf("serial: reading from %s at %d baud", port, baud)
	return NewSerialSource(rwc), nil
}

// NewSerialSource reads sentences from rc.
func NewSerialSource(rc io.ReadCloser) *SerialSource {
	return &SerialSource{rc: rc, scanner: bufio.NewScanner(rc)}
}

// Read blocks until the next IMU sentence. A corrupt or unknown sentence
// is returned as ErrMalformedLine so the caller sees a noisy link; touch
// sentences are queued.
func (s *SerialSource) Read() (imu.Reading, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		sentence, err := nmea.Parse(line)
		if err != nil {
			return imu.Reading{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
		}
		switch m := sentence.(type) {
		case imuSentence:
			return m.Reading, nil
		case touchSentence:
			if z := input.ZoneAt(int(m.X), int(m.Y)); z != input.ZoneNone {
				s.mu.Lock()
				s.touches = append(s.touches, z)
				s.mu.Unlock()
			}
		default:
			return imu.Reading{}, fmt.Errorf("%w: unexpected %s sentence", ErrMalformedLine, sentence.Prefix())
		}
	}
	if err := s.scanner.Err(); err != nil {
		return imu.Reading{}, fmt.Errorf("serial: read: %w", err)
	}
	return imu.Reading{}, io.EOF
}

// Poll returns and clears the queued touch zones.
func (s *SerialSource) Poll() []input.Zone {
	s.mu.Lock()
	defer s.mu.Unlock()
	z := s.touches
	s.touches = nil
	return z
}

// Close closes the underlying port.
func (s *SerialSource) Close() error {
	return s.rc.Close()
}
