// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package csvlog writes beacon records to one CSV file per day and reads them
// back.
//
// Files are named b{beacon}_{YYYY-MM-DD}.csv. The first column is Timestamp,
// the others are the sorted column names of the first record of the day.
package csvlog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/beacon"
)

// TimestampColumn is the name of the first column.
const TimestampColumn = "Timestamp"

// DefaultHistoryDays bounds the search for the previous file on rotation.
const DefaultHistoryDays = 10

const dateLayout = "2006-01-02"

// FileName returns the base name of the file of beacon for day t.
func FileName(beaconID string, t time.Time) string {
	return fmt.Sprintf("b%s_%s.csv", beaconID, t.Format(dateLayout))
}

// Writer appends records to the daily files in Dir. It implements
// beacon.Sink.
type Writer struct {
	Dir    string
	Beacon string
	// HistoryDays is how far back OnRotate looks for the previous file.
	HistoryDays int
	// OnRotate is called with the path of the most recent earlier file when
	// a new daily file is created. It is not called when none exists, nor
	// when the file of the day is recreated after a removal.
	OnRotate func(previous string)

	mu      sync.Mutex
	headers map[string][]string
}

// Path returns the file path for the day of t.
func (w *Writer) Path(t time.Time) string {
	return filepath.Join(w.Dir, FileName(w.Beacon, t))
}

// Write implements beacon.Sink.
func (w *Writer) Write(_ context.Context, rec beacon.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.headers == nil {
		w.headers = map[string][]string{}
	}
	path := w.Path(rec.Time)
	header, seen := w.headers[path]
	ok := seen
	if ok {
		// The file was removed since the last write.
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			delete(w.headers, path)
			ok = false
		}
	}
	created := false
	if !ok {
		var err error
		header, err = readHeader(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			header = append([]string{TimestampColumn}, rec.Columns()...)
			created = true
		case err != nil:
			return err
		}
	}

	flags := os.O_WRONLY | os.O_APPEND | os.O_CREATE
	if created {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("csvlog: %w", err)
	}
	cw := csv.NewWriter(f)
	if created {
		_ = cw.Write(header)
	}
	_ = cw.Write(append([]string{rec.Timestamp()}, rec.Row(header[1:])...))
	cw.Flush()
	err = errors.Join(cw.Error(), f.Close())
	if err != nil {
		return fmt.Errorf("csvlog: write %s: %w", path, err)
	}
	w.headers[path] = header

	if created && !seen && w.OnRotate != nil {
		if prev := w.previous(rec.Time); prev != "" {
			w.OnRotate(prev)
		}
	}
	return nil
}

// previous returns the most recent existing file before the day of t.
func (w *Writer) previous(t time.Time) string {
	days := w.HistoryDays
	if days <= 0 {
		days = DefaultHistoryDays
	}
	for i := 1; i < days; i++ {
		p := w.Path(t.AddDate(0, 0, -i))
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	header, err := csv.NewReader(f).Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csvlog: %s: empty file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("csvlog: %s: %w", path, err)
	}
	if len(header) == 0 || header[0] != TimestampColumn {
		return nil, fmt.Errorf("csvlog: %s: first column is not %s", path, TimestampColumn)
	}
	return header, nil
}
