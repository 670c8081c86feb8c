// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sgp30 controls a Sensirion SGP30 TVOC and eCO2 gas sensor over I²C.
//
// The sensor runs a dynamic baseline compensation algorithm which requires a
// measurement every second, so the driver polls it from a background goroutine
// and caches the result. For the first 15 seconds after initialization the
// sensor returns fixed values of 400 ppm eCO2 and 0 ppb TVOC.
//
// # Datasheet
//
// https://sensirion.com/media/documents/984E0DD5/61644B8B/Sensirion_Gas_Sensors_Datasheet_SGP30.pdf
package sgp30
