// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package export

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/relabs-tech/compass_logger/internal/buffer"
)

// ErrSinkUnavailable means the storage could not be acquired, e.g. the
// card is not mounted. Nothing was written.
var ErrSinkUnavailable = errors.New("export: storage sink unavailable")

// Sink is persistent storage for whole named files. WriteFile replaces the
// named file with whatever fill writes; if fill fails the previous file
// (or its absence) is left as it was.
type Sink interface {
	WriteFile(name string, fill func(io.Writer) error) error
}

// FileSink stores files in a directory, typically an SD card mount point.
// Files are written to a temporary name and renamed into place.
type FileSink struct {
	Dir string
}

// WriteFile implements Sink.
func (s FileSink) WriteFile(name string, fill func(io.Writer) error) error {
	info, err := os.Stat(s.Dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrSinkUnavailable, s.Dir)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
				log.Printf("export: failed to remove %s: %v", tmpName, err)
			}
		}
	}()

	if err := fill(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.Dir, name)); err != nil {
		return fmt.Errorf("rename into %s: %w", name, err)
	}
	committed = true
	return nil
}

// Export writes the ring to sink as CSV under name and returns the number
// of data rows. The ring is never modified, so a failed export can be
// retried.
func Export(sink Sink, name string, r *buffer.Ring) (int, error) {
	rows := 0
	err := sink.WriteFile(name, func(w io.Writer) error {
		n, err := WriteCSV(w, r)
		rows = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", name, err)
	}
	return rows, nil
}
