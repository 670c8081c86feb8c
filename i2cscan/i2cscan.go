// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2cscan lists the devices answering on an I²C bus and checks the
// known beacon sensors.
package i2cscan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/common"
	"github.com/GermanBionicSystems/bevobeacon/sgp30"
	"github.com/GermanBionicSystems/bevobeacon/sps30"
	"github.com/GermanBionicSystems/bevobeacon/tsl2591"
	"periph.io/x/conn/v3/i2c"
)

// Valid 7 bit addresses.
const (
	FirstAddress uint16 = 0x03
	LastAddress  uint16 = 0x77
)

// Status of a known sensor.
const (
	Ready      = "Ready"
	NoSensor   = "No Sensor Detected"
	CannotRead = "Cannot Read Data"
	Overflow   = "Overflow"
)

// Checker reports the status of the sensor at addr.
type Checker func(ctx context.Context, b i2c.Bus, addr uint16) string

// Sensor is a known address.
type Sensor struct {
	Name  string
	Check Checker
}

// Known are the beacon devices.
var Known = map[uint16]Sensor{
	0x29: {"TSL2591", CheckTSL2591},
	0x3c: {"SSD1306", func(context.Context, i2c.Bus, uint16) string { return Ready }},
	0x58: {"SGP30", CheckSGP30},
	0x61: {"SCD30", CheckSensirion},
	0x69: {"SPS30", CheckSPS30},
}

// Result is one responding address.
type Result struct {
	Addr   uint16
	Name   string
	Status string
}

func (r Result) String() string {
	return fmt.Sprintf("\t%#x\t%s\t%s", r.Addr, r.Name, r.Status)
}

// Scan probes every address twice, wait apart, with a one byte read and
// returns the addresses that answered at least once, sorted.
func Scan(ctx context.Context, b i2c.Bus, wait time.Duration) ([]uint16, error) {
	seen := map[uint16]bool{}
	for pass := range 2 {
		if pass > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		for addr := FirstAddress; addr <= LastAddress; addr++ {
			var buf [1]byte
			if b.Tx(addr, nil, buf[:]) == nil {
				seen[addr] = true
			}
		}
	}
	out := make([]uint16, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Survey scans the bus and checks the responders found in known.
func Survey(ctx context.Context, b i2c.Bus, known map[uint16]Sensor, wait time.Duration) ([]Result, error) {
	addrs, err := Scan(ctx, b, wait)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(addrs))
	for _, addr := range addrs {
		r := Result{Addr: addr}
		if s, ok := known[addr]; ok {
			r.Name = s.Name
			r.Status = s.Check(ctx, b, addr)
		}
		out = append(out, r)
	}
	return out, nil
}

// CheckSensirion reads the firmware version word shared by the Sensirion
// sensors and verifies its CRC.
func CheckSensirion(_ context.Context, b i2c.Bus, addr uint16) string {
	d := &i2c.Dev{Bus: b, Addr: addr}
	if err := d.Tx([]byte{0xd1, 0x00}, nil); err != nil {
		return NoSensor
	}
	time.Sleep(3 * time.Millisecond)
	var r [3]byte
	if err := d.Tx(nil, r[:]); err != nil {
		return CannotRead
	}
	if _, err := common.Words(r[:]); err != nil {
		return CannotRead
	}
	return Ready
}

// CheckSPS30 reads the firmware version of an SPS30.
func CheckSPS30(_ context.Context, b i2c.Bus, addr uint16) string {
	d, err := sps30.NewI2C(b, addr, nil)
	if err != nil {
		return NoSensor
	}
	if _, _, err := d.FirmwareVersion(); err != nil {
		return CannotRead
	}
	return Ready
}

// CheckSGP30 initializes an SGP30 and takes one measurement.
func CheckSGP30(ctx context.Context, b i2c.Bus, _ uint16) string {
	d, err := sgp30.NewI2C(ctx, b, nil)
	if err != nil {
		return NoSensor
	}
	defer d.Halt()
	if _, err := d.Measure(); err != nil {
		return CannotRead
	}
	return Ready
}

// CheckTSL2591 enables a TSL2591 and reads the light level once.
func CheckTSL2591(ctx context.Context, b i2c.Bus, addr uint16) string {
	d, err := tsl2591.NewI2C(b, addr, nil)
	if err != nil {
		return NoSensor
	}
	if err := d.Enable(); err != nil {
		return CannotRead
	}
	defer d.Disable()
	var env tsl2591.Env
	if err := d.Sense(ctx, &env); err != nil {
		if errors.Is(err, tsl2591.ErrOverflow) {
			return Overflow
		}
		return CannotRead
	}
	return Ready
}
