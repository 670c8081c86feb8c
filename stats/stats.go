// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package stats has NaN aware aggregates. NaN marks a missing reading; every
// function ignores it and returns NaN when no valid value is left.
package stats

import (
	"math"
	"slices"

	"golang.org/x/exp/constraints"
)

func isNaN[T constraints.Float](v T) bool {
	return v != v
}

func nan[T constraints.Float]() T {
	return T(math.NaN())
}

// Valid returns the values that are not NaN, in order.
func Valid[T constraints.Float](values []T) []T {
	out := make([]T, 0, len(values))
	for _, v := range values {
		if !isNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Count returns the number of values that are not NaN.
func Count[T constraints.Float](values []T) int {
	n := 0
	for _, v := range values {
		if !isNaN(v) {
			n++
		}
	}
	return n
}

// Mean returns the arithmetic mean.
func Mean[T constraints.Float](values []T) T {
	var sum T
	n := 0
	for _, v := range values {
		if !isNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return nan[T]()
	}
	return sum / T(n)
}

// Median returns the middle value, or the mean of the two middle values.
func Median[T constraints.Float](values []T) T {
	v := Valid(values)
	if len(v) == 0 {
		return nan[T]()
	}
	slices.Sort(v)
	mid := len(v) / 2
	if len(v)%2 == 1 {
		return v[mid]
	}
	return (v[mid-1] + v[mid]) / 2
}

// Min returns the smallest value.
func Min[T constraints.Float](values []T) T {
	out := nan[T]()
	for _, v := range values {
		if !isNaN(v) && (isNaN(out) || v < out) {
			out = v
		}
	}
	return out
}

// Max returns the largest value.
func Max[T constraints.Float](values []T) T {
	out := nan[T]()
	for _, v := range values {
		if !isNaN(v) && (isNaN(out) || v > out) {
			out = v
		}
	}
	return out
}

// CountAbove returns the number of values strictly above threshold.
func CountAbove[T constraints.Float](values []T, threshold T) int {
	n := 0
	for _, v := range values {
		if v > threshold {
			n++
		}
	}
	return n
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
