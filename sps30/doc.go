// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sps30 provides a driver for the Sensirion SPS30 particulate matter
// sensor using the I²C interface.
//
// The sensor reports mass concentration (µg/m³) for the PM1.0, PM2.5, PM4 and
// PM10 size classes, number concentration (#/cm³) for PM0.5, PM1.0, PM2.5, PM4
// and PM10, and the typical particle size in µm. Values are read in the IEEE-754
// float output format; every 16 bit word on the bus is followed by a CRC8.
//
// The SELECT pin must be tied to GND for the device to come up in I²C mode.
//
// # Datasheet
//
// https://sensirion.com/media/documents/8600FF88/616A3B9E/Sensirion_PM_Sensors_Datasheet_SPS30.pdf
package sps30
