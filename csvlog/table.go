// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package csvlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/beacon"
)

// ErrEmpty is returned when a file has no data row.
var ErrEmpty = errors.New("csvlog: no data")

// Table is a parsed daily file.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable parses the CSV file at path.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvlog: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	// Rows written before a sensor came back may be shorter.
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvlog: %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csvlog: %s: %w", path, ErrEmpty)
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

func (t *Table) index(name string) int {
	for ix, h := range t.Header {
		if h == name {
			return ix
		}
	}
	return -1
}

// Has returns true if the table has the column.
func (t *Table) Has(name string) bool {
	return t.index(name) >= 0
}

// Column returns the values of a column. Blank or unparsable cells are NaN.
// It returns nil for an unknown column.
func (t *Table) Column(name string) []float64 {
	ix := t.index(name)
	if ix < 0 {
		return nil
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = cell(row, ix)
	}
	return out
}

// Last returns the last row as a record.
func (t *Table) Last() (beacon.Record, error) {
	if len(t.Rows) == 0 {
		return beacon.Record{}, ErrEmpty
	}
	row := t.Rows[len(t.Rows)-1]
	rec := beacon.Record{Values: map[string]float64{}}
	for ix, h := range t.Header {
		if h == TimestampColumn {
			if ix < len(row) {
				ts, err := time.ParseInLocation(beacon.TimeLayout, row[ix], time.Local)
				if err != nil {
					return beacon.Record{}, fmt.Errorf("csvlog: timestamp: %w", err)
				}
				rec.Time = ts
			}
			continue
		}
		rec.Values[h] = cell(row, ix)
	}
	return rec, nil
}

func cell(row []string, ix int) float64 {
	if ix >= len(row) {
		return math.NaN()
	}
	s := strings.TrimSpace(row[ix])
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Latest returns the most recently modified .csv file in dir.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return "", err
	}
	var newest string
	var newestTime time.Time
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		if newest == "" || fi.ModTime().After(newestTime) {
			newest, newestTime = m, fi.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("csvlog: no csv file in %s: %w", dir, os.ErrNotExist)
	}
	return newest, nil
}

var beaconRE = regexp.MustCompile(`^b(\d+)_`)

// BeaconFromFilename extracts the beacon number from a daily file name.
func BeaconFromFilename(name string) (int, error) {
	m := beaconRE.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, fmt.Errorf("csvlog: %q is not a beacon file name", name)
	}
	return strconv.Atoi(m[1])
}
