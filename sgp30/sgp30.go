// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sgp30

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/common"
	"periph.io/x/conn/v3/i2c"
)

// DefaultAddress is the fixed address of the SGP30.
const DefaultAddress uint16 = 0x58

const (
	initAirQuality       uint16 = 0x2003
	measureAirQuality    uint16 = 0x2008
	getIAQBaseline       uint16 = 0x2015
	setIAQBaseline       uint16 = 0x201e
	getFeatureSetVersion uint16 = 0x202f
)

// commandDuration maps the maximum execution time of each command.
var commandDuration = map[uint16]time.Duration{
	initAirQuality:       10 * time.Millisecond,
	measureAirQuality:    12 * time.Millisecond,
	getIAQBaseline:       10 * time.Millisecond,
	setIAQBaseline:       10 * time.Millisecond,
	getFeatureSetVersion: 10 * time.Millisecond,
}

// commandResponseLength maps the response length including the CRCs.
var commandResponseLength = map[uint16]int{
	measureAirQuality:    6,
	getIAQBaseline:       6,
	getFeatureSetVersion: 3,
}

// ErrWarmingUp is reported by LastError until the warm up period is over.
var ErrWarmingUp = errors.New("sgp30: warming up")

// CO2 represents the equivalent carbon dioxide value in ppm.
type CO2 uint16

func (c CO2) String() string {
	return strconv.Itoa(int(c)) + "ppm"
}

// TVOC represents the total volatile organic compounds value in ppb.
type TVOC uint16

func (t TVOC) String() string {
	return strconv.Itoa(int(t)) + "ppb"
}

// Env represents measurements from the sensor.
type Env struct {
	CO2  CO2
	TVOC TVOC
}

func (e Env) String() string {
	return "eCO2: " + e.CO2.String() + " TVOC: " + e.TVOC.String()
}

// Baseline is the state of the compensation algorithm. Saving it and restoring
// it after a restart avoids a new 12 hour calibration.
type Baseline struct {
	CO2  uint16
	TVOC uint16
}

// Opts holds the configuration options.
type Opts struct {
	// WarmUp is the time after initialization during which readings are
	// reported as not valid.
	WarmUp time.Duration
	// Interval between background measurements. The baseline algorithm is
	// tuned for 1 second.
	Interval time.Duration
}

// DefaultOpts holds the default configuration options.
var DefaultOpts = Opts{
	WarmUp:   15 * time.Second,
	Interval: time.Second,
}

// Dev is a handle to an initialized SGP30 device.
type Dev struct {
	d       *i2c.Dev
	opts    Opts
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}

	mu      sync.Mutex
	env     Env
	lastErr error

	// busMu keeps a command write and its read together.
	busMu sync.Mutex
}

// NewI2C initializes the air quality algorithm of the SGP30 on the bus and
// starts measuring in the background until ctx is canceled or Halt is called.
// The Opts can be nil.
func NewI2C(ctx context.Context, b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Interval <= 0 {
		o.Interval = DefaultOpts.Interval
	}
	d := &Dev{
		d:    &i2c.Dev{Bus: b, Addr: DefaultAddress},
		opts: o,
		env:  Env{CO2: 400},
		done: make(chan struct{}),
	}
	if err := d.writeCommand(initAirQuality); err != nil {
		return nil, fmt.Errorf("sgp30: init air quality: %w", err)
	}
	d.started = time.Now()
	d.update()

	ctx, d.cancel = context.WithCancel(ctx)
	go d.loop(ctx)
	return d, nil
}

func (d *Dev) loop(ctx context.Context) {
	defer close(d.done)
	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.update()
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dev) update() {
	env, err := d.Measure()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastErr = err
	if err == nil {
		d.env = env
	}
}

// AirQuality returns the last background measurement.
func (d *Dev) AirQuality() Env {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.env
}

// LastError returns the error of the last background measurement, or
// ErrWarmingUp while the sensor still reports its fixed start values.
func (d *Dev) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastErr != nil {
		return d.lastErr
	}
	if time.Since(d.started) < d.opts.WarmUp {
		return ErrWarmingUp
	}
	return nil
}

// Measure reads a measurement directly. Calling it in addition to the
// background loop disturbs the baseline algorithm.
func (d *Dev) Measure() (Env, error) {
	words, err := d.readCommand(measureAirQuality)
	if err != nil {
		return Env{}, err
	}
	return Env{CO2: CO2(words[0]), TVOC: TVOC(words[1])}, nil
}

// Baseline returns the current baseline of the compensation algorithm.
func (d *Dev) Baseline() (Baseline, error) {
	words, err := d.readCommand(getIAQBaseline)
	if err != nil {
		return Baseline{}, err
	}
	return Baseline{CO2: words[0], TVOC: words[1]}, nil
}

// SetBaseline restores a baseline previously returned by Baseline.
func (d *Dev) SetBaseline(b Baseline) error {
	// The words are sent in the reverse order of getIAQBaseline.
	return d.writeCommand(setIAQBaseline, b.TVOC, b.CO2)
}

// FeatureSet returns the product type and the feature set version.
func (d *Dev) FeatureSet() (product, version byte, err error) {
	words, err := d.readCommand(getFeatureSetVersion)
	if err != nil {
		return 0, 0, err
	}
	return byte(words[0] >> 12), byte(words[0]), nil
}

// Halt stops the background measurements.
func (d *Dev) Halt() error {
	d.cancel()
	<-d.done
	return nil
}

func (d *Dev) String() string {
	return "sgp30: " + d.d.String()
}

func (d *Dev) readCommand(cmd uint16) ([]uint16, error) {
	d.busMu.Lock()
	defer d.busMu.Unlock()
	if err := d.write(cmd); err != nil {
		return nil, err
	}
	b := make([]byte, commandResponseLength[cmd])
	if err := d.d.Tx(nil, b); err != nil {
		return nil, fmt.Errorf("sgp30 cmd 0x%04x read: %w", cmd, err)
	}
	words, err := common.Words(b)
	if err != nil {
		return nil, fmt.Errorf("sgp30 cmd 0x%04x: %w", cmd, err)
	}
	return words, nil
}

func (d *Dev) writeCommand(cmd uint16, args ...uint16) error {
	d.busMu.Lock()
	defer d.busMu.Unlock()
	return d.write(cmd, args...)
}

func (d *Dev) write(cmd uint16, args ...uint16) error {
	w := append([]byte{byte(cmd >> 8), byte(cmd)}, common.PackWords(args...)...)
	if err := d.d.Tx(w, nil); err != nil {
		return fmt.Errorf("sgp30 cmd 0x%04x: %w", cmd, err)
	}
	time.Sleep(commandDuration[cmd])
	return nil
}
