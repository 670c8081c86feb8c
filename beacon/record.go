// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package beacon

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// TimeLayout is the timestamp format of the Timestamp column.
const TimeLayout = "2006-01-02 15:04:05"

// Record is the averaged result of one cycle.
type Record struct {
	Time   time.Time
	Values map[string]float64
}

// Columns returns the column names in sorted order.
func (r Record) Columns() []string {
	cols := make([]string, 0, len(r.Values))
	for c := range r.Values {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Row formats the values in the order of columns. Missing and NaN values are
// empty strings.
func (r Record) Row(columns []string) []string {
	row := make([]string, len(columns))
	for ix, c := range columns {
		if v, ok := r.Values[c]; ok {
			row[ix] = FormatFloat(v)
		}
	}
	return row
}

// Timestamp returns the formatted Time.
func (r Record) Timestamp() string {
	return r.Time.Format(TimeLayout)
}

// FormatFloat formats v with the shortest exact representation. NaN is the
// empty string.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
