// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tsl2591 controls an AMS TSL2591 high dynamic range light sensor
// over I²C.
//
// Channel 0 measures full spectrum light, channel 1 infrared only. Lux is
// derived from both channels with the empirical formula of the datasheet.
//
// # Datasheet
//
// https://ams.com/documents/20143/36005/TSL2591_DS000338_6-00.pdf
package tsl2591

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/stats"
	"periph.io/x/conn/v3/i2c"
)

// DefaultAddress is the fixed address of the TSL2591.
const DefaultAddress uint16 = 0x29

const (
	commandBit byte = 0xa0

	regEnable  byte = 0x00
	regControl byte = 0x01
	regID      byte = 0x12
	regStatus  byte = 0x13
	regC0DataL byte = 0x14

	enablePowerOn byte = 0x01
	enableADC     byte = 0x02
	statusAValid  byte = 0x01

	deviceID byte = 0x50

	// Lux coefficients.
	luxDF    = 408.0
	luxCoefB = 1.64
	luxCoefC = 0.59
	luxCoefD = 0.86

	pollInterval = 10 * time.Millisecond
)

// Gain is the analog gain of both channels.
type Gain byte

const (
	GainLow    Gain = 0x00 // 1x
	GainMedium Gain = 0x10 // 25x
	GainHigh   Gain = 0x20 // 428x
	GainMax    Gain = 0x30 // 9876x
)

func (g Gain) factor() float64 {
	switch g {
	case GainMedium:
		return 25
	case GainHigh:
		return 428
	case GainMax:
		return 9876
	default:
		return 1
	}
}

// IntegrationTime is the ADC integration time, from 100 to 600 ms.
type IntegrationTime byte

const (
	Integration100ms IntegrationTime = iota
	Integration200ms
	Integration300ms
	Integration400ms
	Integration500ms
	Integration600ms
)

// Duration returns the integration time as a time.Duration.
func (i IntegrationTime) Duration() time.Duration {
	return time.Duration(i+1) * 100 * time.Millisecond
}

// Env holds one reading.
type Env struct {
	// Full is the raw channel 0 count, visible and infrared.
	Full uint16
	// Infrared is the raw channel 1 count.
	Infrared uint16
	// Visible is Full minus Infrared.
	Visible uint16
	// Lux is the computed illuminance.
	Lux float64
}

func (e *Env) String() string {
	return fmt.Sprintf("Lux: %.3f Visible: %d Infrared: %d Full: %d", e.Lux, e.Visible, e.Infrared, e.Full)
}

// Opts holds the configuration options.
type Opts struct {
	Gain        Gain
	Integration IntegrationTime
}

// DefaultOpts is 1x gain with 100 ms integration.
var DefaultOpts = Opts{Gain: GainLow, Integration: Integration100ms}

// Dev is a handle to a TSL2591.
type Dev struct {
	d       *i2c.Dev
	opts    Opts
	mu      sync.Mutex
	enabled bool
}

// NewI2C verifies the device identification, programs gain and integration
// time and leaves the device powered off. The Opts can be nil.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Integration > Integration600ms {
		return nil, fmt.Errorf("tsl2591: invalid integration time %d", opts.Integration)
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, opts: *opts}
	id, err := d.readReg(regID)
	if err != nil {
		return nil, err
	}
	if id != deviceID {
		return nil, &IDError{ID: id}
	}
	if err := d.writeReg(regControl, byte(opts.Gain)|byte(opts.Integration)); err != nil {
		return nil, err
	}
	if err := d.writeReg(regEnable, 0); err != nil {
		return nil, err
	}
	return d, nil
}

// Enable powers the device on and starts the ADCs. The first conversion
// completes after one integration time.
func (d *Dev) Enable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeReg(regEnable, enablePowerOn|enableADC); err != nil {
		return err
	}
	d.enabled = true
	return nil
}

// Disable powers the device off.
func (d *Dev) Disable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = false
	return d.writeReg(regEnable, 0)
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return d.Disable()
}

// Sense waits for a valid conversion and reads both channels.
func (d *Dev) Sense(ctx context.Context, env *Env) error {
	*env = Env{Lux: math.NaN()}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.enabled {
		return ErrDisabled
	}
	deadline := time.Now().Add(2 * d.opts.Integration.Duration())
	for {
		status, err := d.readReg(regStatus)
		if err != nil {
			return err
		}
		if status&statusAValid != 0 {
			break
		}
		if time.Now().After(deadline) {
			return &ReadTimeoutError{}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	r := make([]byte, 4)
	if err := d.d.Tx([]byte{commandBit | regC0DataL}, r); err != nil {
		return fmt.Errorf("tsl2591: read channels: %w", err)
	}
	ch0 := uint16(r[0]) | uint16(r[1])<<8
	ch1 := uint16(r[2]) | uint16(r[3])<<8
	env.Full = ch0
	env.Infrared = ch1
	env.Visible = uint16(stats.Clamp(int(ch0)-int(ch1), 0, math.MaxUint16))
	lux, err := d.lux(ch0, ch1)
	if err != nil {
		return err
	}
	env.Lux = lux
	return nil
}

// lux converts the channel counts to illuminance.
func (d *Dev) lux(ch0, ch1 uint16) (float64, error) {
	if ch0 == math.MaxUint16 || ch1 == math.MaxUint16 {
		return math.NaN(), ErrOverflow
	}
	if ch0 == 0 {
		return 0, nil
	}
	atime := float64(d.opts.Integration.Duration() / time.Millisecond)
	cpl := atime * d.opts.Gain.factor() / luxDF
	c0, c1 := float64(ch0), float64(ch1)
	lux1 := (c0 - luxCoefB*c1) / cpl
	lux2 := (luxCoefC*c0 - luxCoefD*c1) / cpl
	return max(lux1, lux2, 0), nil
}

// Precision returns the resolution of the raw channels.
func (d *Dev) Precision(env *Env) {
	*env = Env{Full: 1, Infrared: 1, Visible: 1, Lux: luxDF / (float64(d.opts.Integration.Duration()/time.Millisecond) * d.opts.Gain.factor())}
}

func (d *Dev) String() string {
	return fmt.Sprintf("tsl2591: %s", d.d.String())
}

func (d *Dev) readReg(reg byte) (byte, error) {
	r := []byte{0}
	if err := d.d.Tx([]byte{commandBit | reg}, r); err != nil {
		return 0, fmt.Errorf("tsl2591: read register %#02x: %w", reg, err)
	}
	return r[0], nil
}

func (d *Dev) writeReg(reg, value byte) error {
	if err := d.d.Tx([]byte{commandBit | reg, value}, nil); err != nil {
		return fmt.Errorf("tsl2591: write register %#02x: %w", reg, err)
	}
	return nil
}
