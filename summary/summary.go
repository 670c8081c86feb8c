// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package summary computes daily indoor air quality statistics from a daily
// CSV file and stores them as JSON.
package summary

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/beacon"
	"github.com/GermanBionicSystems/bevobeacon/csvlog"
	"github.com/GermanBionicSystems/bevobeacon/stats"
	"github.com/sirupsen/logrus"
)

// Thresholds maps a column to the value above which the air quality is poor.
type Thresholds map[string]float64

// DefaultThresholds are the parameters summarized by default.
var DefaultThresholds = Thresholds{
	beacon.ColCO2:       1100,
	beacon.ColPM2p5Mass: 12,
	beacon.ColCO:        4000,
	beacon.ColTempNO2:   27,
	beacon.ColRHNO2:     60,
}

// Value is a float encoded as null in JSON when NaN.
type Value float64

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Value(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*v = Value(f)
	return nil
}

// Stats summarizes one parameter.
type Stats struct {
	Min    Value `json:"min"`
	Mean   Value `json:"mean"`
	Median Value `json:"median"`
	Max    Value `json:"max"`
	// TimeAboveThreshold is the number of rows above the threshold. Rows are
	// one minute apart.
	TimeAboveThreshold int `json:"time_above_threshold"`
}

// Compute summarizes every column of thresholds present in t. Missing
// columns are logged and skipped.
func Compute(t *csvlog.Table, thresholds Thresholds, log logrus.FieldLogger) map[string]Stats {
	names := make([]string, 0, len(thresholds))
	for name := range thresholds {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(map[string]Stats, len(names))
	for _, name := range names {
		values := t.Column(name)
		if values == nil {
			log.WithField("parameter", name).Warn("parameter not in data")
			continue
		}
		out[name] = Stats{
			Min:                Value(stats.Min(values)),
			Mean:               Value(stats.Mean(values)),
			Median:             Value(stats.Median(values)),
			Max:                Value(stats.Max(values)),
			TimeAboveThreshold: stats.CountAbove(values, thresholds[name]),
		}
	}
	return out
}

// FileName returns the summary file name for day.
func FileName(day time.Time) string {
	return "iaq_summary-" + day.Format("2006-01-02") + ".json"
}

// Save writes res to dir and returns the path.
func Save(dir string, day time.Time, res map[string]Stats) (string, error) {
	b, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}
	path := filepath.Join(dir, FileName(day))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}
	return path, nil
}

// Run summarizes the file of beaconID for day found in dataDir with the
// default thresholds and saves it to saveDir.
func Run(dataDir, saveDir, beaconID string, day time.Time, log logrus.FieldLogger) (string, error) {
	t, err := csvlog.ReadTable(filepath.Join(dataDir, csvlog.FileName(beaconID, day)))
	if err != nil {
		return "", err
	}
	return Save(saveDir, day, Compute(t, DefaultThresholds, log))
}
