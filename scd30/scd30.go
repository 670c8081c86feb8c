// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/common"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress is the I²C address of the SCD30.
const DefaultAddress uint16 = 0x61

// PPM is a CO2 concentration in parts per million.
type PPM float32

func (p PPM) String() string {
	return fmt.Sprintf("%.1f PPM", float32(p))
}

// Env is one reading of the sensor. Pressure is not measured.
type Env struct {
	physic.Env
	CO2 PPM
}

func (e *Env) String() string {
	return fmt.Sprintf("Temperature: %s Humidity: %s CO2: %s", e.Temperature, e.Humidity, e.CO2)
}

// DevConfig is the persistent configuration of the sensor.
type DevConfig struct {
	// Interval is the continuous measurement interval.
	Interval time.Duration
	// ASCEnabled is true if automatic self calibration is on.
	ASCEnabled bool
	// TemperatureOffset is subtracted from the measured temperature to
	// compensate self heating. Resolution is 0.01K.
	TemperatureOffset physic.Temperature
	// Altitude of the sensor above sea level, used for pressure compensation
	// when no ambient pressure is given to Start.
	Altitude physic.Distance
	// FRC is the last forced recalibration reference. Read only, use
	// ForceRecalibration to change it.
	FRC PPM
}

// Opts holds the configuration options for the device.
type Opts struct {
	// Retries is the number of write/read attempts for a single command.
	Retries int
	// DataReadyAttempts is the number of data-ready polls in Sense.
	DataReadyAttempts int
	// DataReadyInterval is the time between data-ready polls.
	DataReadyInterval time.Duration
	// Interval is the measurement interval programmed by NewI2C.
	Interval time.Duration
	// AmbientPressure is passed to the sensor by Start. 0 disables pressure
	// compensation. Valid values are 700 to 1400 mbar.
	AmbientPressure physic.Pressure
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	Retries:           3,
	DataReadyAttempts: 4,
	DataReadyInterval: 100 * time.Millisecond,
	Interval:          2 * time.Second,
}

var (
	// ErrNotMeasuring is returned by Sense before Start.
	ErrNotMeasuring = errors.New("scd30: measurement not started")
	// ErrInvalidValue is returned when a setting is outside of the range
	// accepted by the sensor. No bus transaction takes place.
	ErrInvalidValue = errors.New("scd30: invalid value")
)

const (
	minInterval = 2 * time.Second
	maxInterval = 1800 * time.Second
	minFRC      = 400
	maxFRC      = 2000
	mbar        = 100 * physic.Pascal
	minPressure = 700 * mbar
	maxPressure = 1400 * mbar
	// The sensor needs a pause between the pointer write and the read.
	readDelay = 3 * time.Millisecond
)

type cmd uint16

const (
	cmdStartContinuous cmd = 0x0010
	cmdStopContinuous  cmd = 0x0104
	cmdInterval        cmd = 0x4600
	cmdDataReady       cmd = 0x0202
	cmdReadMeasurement cmd = 0x0300
	cmdASC             cmd = 0x5306
	cmdFRC             cmd = 0x5204
	cmdTempOffset      cmd = 0x5403
	cmdAltitude        cmd = 0x5102
	cmdFirmware        cmd = 0xd100
	cmdSoftReset       cmd = 0xd304
)

// Dev is a handle to an SCD30 sensor.
type Dev struct {
	d         *i2c.Dev
	opts      Opts
	mu        sync.Mutex
	measuring bool
}

// NewI2C returns a handle to an SCD30. The Opts can be nil.
//
// The measurement interval is read back and only programmed when it differs
// from Opts.Interval, as every write wears the sensor's flash.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Retries <= 0 {
		o.Retries = DefaultOpts.Retries
	}
	if o.DataReadyAttempts <= 0 {
		o.DataReadyAttempts = DefaultOpts.DataReadyAttempts
	}
	if o.DataReadyInterval <= 0 {
		o.DataReadyInterval = DefaultOpts.DataReadyInterval
	}
	if o.Interval == 0 {
		o.Interval = DefaultOpts.Interval
	}
	if err := checkInterval(o.Interval); err != nil {
		return nil, err
	}
	if err := checkPressure(o.AmbientPressure); err != nil {
		return nil, err
	}
	dev := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, opts: o}
	current, err := dev.Interval()
	if err != nil {
		return nil, err
	}
	if current != o.Interval {
		if err := dev.SetInterval(o.Interval); err != nil {
			return nil, err
		}
	}
	return dev, nil
}

func checkInterval(interval time.Duration) error {
	if interval < minInterval || interval > maxInterval || interval%time.Second != 0 {
		return fmt.Errorf("%w: measurement interval %s not in 2s..1800s", ErrInvalidValue, interval)
	}
	return nil
}

func checkPressure(p physic.Pressure) error {
	if p != 0 && (p < minPressure || p > maxPressure) {
		return fmt.Errorf("%w: ambient pressure %s not in 700..1400 mbar", ErrInvalidValue, p)
	}
	return nil
}

// Start triggers continuous measurement with the configured ambient pressure.
func (d *Dev) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.write(cmdStartContinuous, uint16(d.opts.AmbientPressure/mbar)); err != nil {
		return fmt.Errorf("scd30: start measurement: %w", err)
	}
	d.measuring = true
	return nil
}

// Stop stops continuous measurement.
func (d *Dev) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.measuring = false
	return d.write(cmdStopContinuous)
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return d.Stop()
}

// DataReady returns true when a measurement can be read.
func (d *Dev) DataReady() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dataReady()
}

func (d *Dev) dataReady() (bool, error) {
	w, err := d.readWord(cmdDataReady)
	return w == 1, err
}

// Sense polls the data-ready status and reads the measurement. If the status
// never reports ready the read is attempted anyway, returning the previous
// measurement. On error CO2 is NaN and the other fields are zero.
func (d *Dev) Sense(ctx context.Context, env *Env) error {
	*env = Env{CO2: PPM(math.NaN())}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.measuring {
		return ErrNotMeasuring
	}
	for attempt := 0; attempt < d.opts.DataReadyAttempts; attempt++ {
		ready, err := d.dataReady()
		if err != nil {
			return err
		}
		if ready {
			break
		}
		if attempt+1 < d.opts.DataReadyAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.opts.DataReadyInterval):
			}
		}
	}
	r, err := d.read(cmdReadMeasurement, 18)
	if err != nil {
		return err
	}
	values, err := common.Float32s(r)
	if err != nil {
		return fmt.Errorf("scd30: measurement: %w", err)
	}
	env.CO2 = PPM(values[0])
	env.Temperature = physic.ZeroCelsius + physic.Temperature(float64(values[1])*float64(physic.Celsius))
	env.Humidity = physic.RelativeHumidity(float64(values[2]) * float64(physic.PercentRH))
	return nil
}

// Interval returns the continuous measurement interval.
func (d *Dev) Interval() (time.Duration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.readWord(cmdInterval)
	if err != nil {
		return 0, err
	}
	return time.Duration(w) * time.Second, nil
}

// SetInterval programs the continuous measurement interval, 2s to 1800s in
// whole seconds.
func (d *Dev) SetInterval(interval time.Duration) error {
	if err := checkInterval(interval); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(cmdInterval, uint16(interval/time.Second))
}

// GetConfiguration reads the persistent settings of the sensor.
func (d *Dev) GetConfiguration() (*DevConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var words [5]uint16
	for ix, c := range []cmd{cmdInterval, cmdASC, cmdTempOffset, cmdAltitude, cmdFRC} {
		w, err := d.readWord(c)
		if err != nil {
			return nil, err
		}
		words[ix] = w
	}
	return &DevConfig{
		Interval:          time.Duration(words[0]) * time.Second,
		ASCEnabled:        words[1] == 1,
		TemperatureOffset: physic.Temperature(words[2]) * 10 * physic.MilliKelvin,
		Altitude:          physic.Distance(words[3]) * physic.Metre,
		FRC:               PPM(words[4]),
	}, nil
}

// SetConfiguration writes the fields of cfg that differ from the current
// configuration. FRC is ignored.
func (d *Dev) SetConfiguration(cfg *DevConfig) error {
	if err := checkInterval(cfg.Interval); err != nil {
		return err
	}
	if cfg.TemperatureOffset < 0 || cfg.TemperatureOffset > math.MaxUint16*10*physic.MilliKelvin {
		return fmt.Errorf("%w: temperature offset %s", ErrInvalidValue, cfg.TemperatureOffset)
	}
	if cfg.Altitude < 0 || cfg.Altitude > math.MaxUint16*physic.Metre {
		return fmt.Errorf("%w: altitude %s", ErrInvalidValue, cfg.Altitude)
	}
	current, err := d.GetConfiguration()
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if cfg.Interval != current.Interval {
		if err := d.write(cmdInterval, uint16(cfg.Interval/time.Second)); err != nil {
			return err
		}
	}
	if cfg.ASCEnabled != current.ASCEnabled {
		var v uint16
		if cfg.ASCEnabled {
			v = 1
		}
		if err := d.write(cmdASC, v); err != nil {
			return err
		}
	}
	if cfg.TemperatureOffset != current.TemperatureOffset {
		if err := d.write(cmdTempOffset, uint16(cfg.TemperatureOffset/(10*physic.MilliKelvin))); err != nil {
			return err
		}
	}
	if cfg.Altitude != current.Altitude {
		if err := d.write(cmdAltitude, uint16(cfg.Altitude/physic.Metre)); err != nil {
			return err
		}
	}
	return nil
}

// ForceRecalibration sets the CO2 reference to ref, which must be between 400
// and 2000 ppm. The sensor must have been measuring in a stable environment
// for at least two minutes.
func (d *Dev) ForceRecalibration(ref PPM) error {
	if ref < minFRC || ref > maxFRC {
		return fmt.Errorf("%w: recalibration reference %s not in 400..2000", ErrInvalidValue, ref)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(cmdFRC, uint16(ref))
}

// FirmwareVersion returns the firmware major and minor version.
func (d *Dev) FirmwareVersion() (major, minor byte, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.readWord(cmdFirmware)
	return byte(w >> 8), byte(w), err
}

// Reset performs a soft reset. The sensor keeps its persistent settings and
// restarts measuring if it was measuring before.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.write(cmdSoftReset); err != nil {
		return err
	}
	time.Sleep(2 * time.Second)
	return nil
}

// Precision returns the resolution of the readings.
func (d *Dev) Precision(env *Env) {
	env.CO2 = 1
	env.Temperature = 10 * physic.MilliKelvin
	env.Humidity = 10 * physic.MilliRH
}

func (d *Dev) String() string {
	return fmt.Sprintf("scd30: %s", d.d.String())
}

func (d *Dev) write(c cmd, args ...uint16) error {
	w := append([]byte{byte(c >> 8), byte(c)}, common.PackWords(args...)...)
	if err := d.d.Tx(w, nil); err != nil {
		return fmt.Errorf("scd30 cmd 0x%04x: %w", uint16(c), err)
	}
	return nil
}

// read writes the pointer c and reads n bytes, checking the CRCs. Failures
// are retried Opts.Retries times.
func (d *Dev) read(c cmd, n int) ([]byte, error) {
	var err error
	for range d.opts.Retries {
		if err = d.write(c); err != nil {
			continue
		}
		time.Sleep(readDelay)
		r := make([]byte, n)
		if err = d.d.Tx(nil, r); err != nil {
			err = fmt.Errorf("scd30 cmd 0x%04x read: %w", uint16(c), err)
			continue
		}
		if _, err = common.Words(r); err != nil {
			err = fmt.Errorf("scd30 cmd 0x%04x: %w", uint16(c), err)
			continue
		}
		return r, nil
	}
	return nil, fmt.Errorf("scd30: %d tries exceeded: %w", d.opts.Retries, err)
}

func (d *Dev) readWord(c cmd) (uint16, error) {
	r, err := d.read(c, 3)
	if err != nil {
		return 0, err
	}
	words, err := common.Words(r)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}
