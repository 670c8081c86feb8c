// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package display

import (
	"math"
	"strconv"
	"strings"

	"github.com/GermanBionicSystems/bevobeacon/beacon"
)

// DefaultColumns are the parameters shown in turn.
var DefaultColumns = []string{
	beacon.ColCO2,
	beacon.ColPM2p5Mass,
	beacon.ColCO,
	beacon.ColTempNO2,
}

// Split splits a "quantity-unit" column name.
func Split(column string) (param, unit string) {
	if i := strings.LastIndexByte(column, '-'); i >= 0 {
		return column[:i], column[i+1:]
	}
	return column, ""
}

// ShortName returns the name used by correction files.
func ShortName(param string) string {
	switch param {
	case "carbon_dioxide", "co2":
		return "co2"
	case "carbon_monoxide", "co":
		return "co"
	case "t_from_no2", "t_from_co2", "t_from_co":
		return "temperature_c"
	default:
		return param
	}
}

// DisplayName returns the human readable name of a parameter.
func DisplayName(param string) string {
	switch param {
	case "carbon_dioxide", "co2":
		return "Carbon Dioxide"
	case "carbon_monoxide", "co":
		return "Carbon Monoxide"
	case "pm1_mass", "pm2p5_mass", "pm10_mass":
		return "Particulate Matter"
	case "t_from_no2", "t_from_co2", "t_from_co":
		return "Temperature"
	default:
		return param
	}
}

// DisplayUnit returns the unit as shown. The cubic exponent of
// microgram_per_m3 is drawn separately.
func DisplayUnit(unit string) string {
	switch unit {
	case "c", "f":
		return strings.ToUpper(unit)
	case "microgram_per_m3":
		return "ug/m"
	default:
		return unit
	}
}

// Reading is a corrected value of one column.
type Reading struct {
	Column string
	Value  float64
}

// Frame is the content of one screen.
type Frame struct {
	Title    string
	Value    string
	Unit     string
	Degree   bool
	Exponent string
	Name     string
}

// FrameFor converts a reading into a frame. Carbon monoxide is shown in ppm
// and temperatures in Fahrenheit when fahrenheit is set.
func FrameFor(title string, r Reading, fahrenheit bool) Frame {
	param, unit := Split(r.Column)
	v := r.Value
	switch {
	case ShortName(param) == "co" && unit == "ppb":
		v, unit = round1(v/1000), "ppm"
	case fahrenheit && unit == "c":
		v, unit = round1(1.8*v+32), "f"
	}
	f := Frame{
		Title: title,
		Value: FormatValue(v),
		Unit:  DisplayUnit(unit),
		Name:  DisplayName(param),
	}
	switch unit {
	case "c", "f":
		f.Degree = true
	case "microgram_per_m3":
		f.Exponent = "3"
	}
	return f
}

// ErrorFrame is shown when no value can be read or drawn.
func ErrorFrame(title string) Frame {
	return Frame{Title: title, Unit: "ERROR"}
}

// FormatValue formats v with one decimal. NaN is shown as "-".
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
