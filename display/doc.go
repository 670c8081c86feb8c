// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package display shows the latest beacon measurements on a small
// monochrome screen, one parameter at a time.
//
// Values are read from the newest daily CSV file, corrected with per beacon
// calibration files and rendered into a 128x64 frame. Any display.Drawer can
// show the frames; on the beacon it is an SSD1306 OLED, while screen2d prints
// them to a terminal.
//
// # Correction files
//
// A correction file is named after the short name of a parameter followed by
// a dash, for example "co2-2023.csv", and has the columns beacon, constant
// and coefficient. The displayed value is value*coefficient+constant.
package display
