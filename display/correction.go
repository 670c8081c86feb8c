// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package display

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Correction is a linear calibration.
type Correction struct {
	Constant    float64
	Coefficient float64
}

// Identity leaves values unchanged.
var Identity = Correction{Coefficient: 1}

// Apply returns the corrected value.
func (c Correction) Apply(v float64) float64 {
	return v*c.Coefficient + c.Constant
}

// Corrections maps a short name and a beacon number to a correction.
type Corrections map[string]map[int]Correction

// Lookup returns the correction for short and beaconID, or Identity.
func (c Corrections) Lookup(short string, beaconID int) Correction {
	if corr, ok := c[short][beaconID]; ok {
		return corr
	}
	return Identity
}

// LoadCorrections reads every correction file of dir. The first file in
// lexical order wins when a short name has several. A missing dir is not an
// error.
func LoadCorrections(dir string) (Corrections, error) {
	out := Corrections{}
	if dir == "" {
		return out, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*-*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	for _, m := range matches {
		short, _, _ := strings.Cut(filepath.Base(m), "-")
		if _, ok := out[short]; ok {
			continue
		}
		c, err := readCorrection(m)
		if err != nil {
			return nil, err
		}
		out[short] = c
	}
	return out, nil
}

func readCorrection(path string) (map[int]Correction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("display: %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("display: %s: empty correction file", path)
	}
	ix := map[string]int{}
	for i, h := range rows[0] {
		ix[strings.TrimSpace(h)] = i
	}
	for _, h := range []string{"beacon", "constant", "coefficient"} {
		if _, ok := ix[h]; !ok {
			return nil, fmt.Errorf("display: %s: missing column %q", path, h)
		}
	}
	out := make(map[int]Correction, len(rows)-1)
	for n, row := range rows[1:] {
		var vals [3]float64
		for i, h := range []string{"beacon", "constant", "coefficient"} {
			if ix[h] >= len(row) {
				return nil, fmt.Errorf("display: %s:%d: short row", path, n+2)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[ix[h]]), 64)
			if err != nil {
				return nil, fmt.Errorf("display: %s:%d: %w", path, n+2, err)
			}
			vals[i] = v
		}
		out[int(vals[0])] = Correction{Constant: vals[1], Coefficient: vals[2]}
	}
	return out, nil
}
