// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bevobeacon is a container for the BEVO Beacon indoor air-quality
// logger.
//
// The sensor drivers are sps30, scd30, sgp30, tsl2591 and dgs. Package beacon
// schedules the scans, csvlog writes the daily files and upload, archive and
// live forward each record. summary computes the daily statistics, display
// and screen2d render the latest values, i2cscan and netled help with the
// hardware setup.
//
// The binaries live under cmd/.
package bevobeacon
