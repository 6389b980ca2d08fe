// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/relabs-tech/compass_logger/internal/buffer"
	"github.com/relabs-tech/compass_logger/internal/imu"
)

// Header is the first row of every exported file.
var Header = []string{
	"Timestamp_ms", "Heading", "Pitch", "Roll",
	"AccX", "AccY", "AccZ",
	"GyroX", "GyroY", "GyroZ",
}

// ErrBadHeader is returned by ReadCSV when the first row is not Header.
var ErrBadHeader = errors.New("export: unexpected CSV header")

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func row(s buffer.Sample) []string {
	return []string{
		strconv.FormatInt(s.TimestampMS, 10),
		formatFloat(s.Heading),
		formatFloat(s.Pitch),
		formatFloat(s.Roll),
		formatFloat(s.Accel.X),
		formatFloat(s.Accel.Y),
		formatFloat(s.Accel.Z),
		formatFloat(s.Gyro.X),
		formatFloat(s.Gyro.Y),
		formatFloat(s.Gyro.Z),
	}
}

// WriteCSV writes the header and one row per held sample, oldest first.
// It returns the number of data rows written.
func WriteCSV(w io.Writer, r *buffer.Ring) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("csv write header: %w", err)
	}
	rows := 0
	for s := range r.All() {
		if err := cw.Write(row(s)); err != nil {
			return rows, fmt.Errorf("csv write row %d: %w", rows+1, err)
		}
		rows++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("csv flush: %w", err)
	}
	return rows, nil
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]buffer.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csv read header: %w", err)
	}
	for i := range Header {
		if head[i] != Header[i] {
			return nil, fmt.Errorf("%w: column %d is %q", ErrBadHeader, i+1, head[i])
		}
	}

	var out []buffer.Sample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv read line %d: %w", line, err)
		}
		s, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		out = append(out, s)
	}
}

func parseRow(rec []string) (buffer.Sample, error) {
	ts, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return buffer.Sample{}, fmt.Errorf("invalid %s %q: %w", Header[0], rec[0], err)
	}
	var f [9]float64
	for i := range f {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return buffer.Sample{}, fmt.Errorf("invalid %s %q: %w", Header[i+1], rec[i+1], err)
		}
		f[i] = v
	}
	return buffer.Sample{
		TimestampMS: ts,
		Heading:     f[0],
		Pitch:       f[1],
		Roll:        f[2],
		Accel:       imu.Vec3{X: f[3], Y: f[4], Z: f[5]},
		Gyro:        imu.Vec3{X: f[6], Y: f[7], Z: f[8]},
	}, nil
}
