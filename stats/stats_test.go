// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stats

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestAggregates(t *testing.T) {
	nan := math.NaN()
	data := []struct {
		name                   string
		in                     []float64
		mean, median, min, max float64
		count                  int
	}{
		{"empty", nil, nan, nan, nan, nan, 0},
		{"all nan", []float64{nan, nan}, nan, nan, nan, nan, 0},
		{"odd", []float64{3, 1, nan, 2}, 2, 2, 1, 3, 3},
		{"even", []float64{4, 1, 3, 2}, 2.5, 2.5, 1, 4, 4},
		{"single", []float64{nan, 7.5}, 7.5, 7.5, 7.5, 7.5, 1},
	}
	opt := cmpopts.EquateNaNs()
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			got := []float64{Mean(line.in), Median(line.in), Min(line.in), Max(line.in)}
			want := []float64{line.mean, line.median, line.min, line.max}
			if diff := cmp.Diff(want, got, opt); diff != "" {
				t.Errorf("mean/median/min/max mismatch (-want +got):\n%s", diff)
			}
			if c := Count(line.in); c != line.count {
				t.Errorf("Count()=%d, want %d", c, line.count)
			}
		})
	}
}

func TestMedianDoesNotReorder(t *testing.T) {
	in := []float32{3, 1, 2}
	_ = Median(in)
	if diff := cmp.Diff([]float32{3, 1, 2}, in); diff != "" {
		t.Errorf("input modified:\n%s", diff)
	}
}

func TestCountAbove(t *testing.T) {
	in := []float64{1000, 1100, 1100.5, math.NaN(), 1200}
	if n := CountAbove(in, 1100); n != 2 {
		t.Errorf("CountAbove()=%d, want 2", n)
	}
}

func TestClamp(t *testing.T) {
	if v := Clamp(5, 0, 3); v != 3 {
		t.Errorf("Clamp(5, 0, 3)=%d", v)
	}
	if v := Clamp(-1.5, 0, 3); v != 0 {
		t.Errorf("Clamp(-1.5, 0, 3)=%v", v)
	}
}
