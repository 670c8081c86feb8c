// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package beacon polls the air quality sensors of a beacon and turns each
// polling cycle into one Record.
//
// A cycle powers up the switchable sensors, scans every sensor several times
// (sensors run concurrently, the scans of one sensor run in sequence),
// averages each column ignoring NaN and powers the switchable sensors down
// again. The Runner repeats cycles on a fixed interval and hands each Record
// to its sinks.
package beacon
