// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scd30 provides a driver for the Sensirion SCD30 NDIR CO2,
// temperature and humidity module over I²C.
//
// The SCD30 measures continuously once started, at an interval between 2 and
// 1800 seconds. Readings are IEEE-754 floats spread over CRC protected words.
// The module does not support repeated start conditions, so every read is a
// pointer write, a pause of at least 3 ms and a separate read transaction.
//
// Automatic self calibration (ASC) needs at least one hour of fresh air per day
// over a week to converge. Forced recalibration (FRC) sets the reference
// against a known CO2 concentration instead.
//
// # Datasheet
//
// https://sensirion.com/media/documents/D7CEEF4A/6165372F/Sensirion_CO2_Sensors_SCD30_Interface_Description.pdf
package scd30
