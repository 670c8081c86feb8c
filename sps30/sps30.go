// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sps30

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/common"
	"periph.io/x/conn/v3/i2c"
)

const (
	// DefaultAddress is the only address the SPS30 responds to.
	DefaultAddress uint16 = 0x69
)

// ErrNotMeasuring is returned by Sense when the device was never started.
var ErrNotMeasuring = errors.New("sps30: measurement not started")

type cmd uint16

// command describes one entry of the SPS30 I²C command set.
type command struct {
	word cmd
	// Expected number of response bytes including CRCs. 0 for write only
	// commands.
	responseSize int
	// Execution time before the sensor accepts the next transaction.
	delay time.Duration
}

var (
	cmdStartMeasurement  = command{word: 0x0010, delay: 20 * time.Millisecond}
	cmdStopMeasurement   = command{word: 0x0104, delay: 20 * time.Millisecond}
	cmdReadDataReady     = command{word: 0x0202, responseSize: 3}
	cmdReadMeasured      = command{word: 0x0300, responseSize: 60}
	cmdSleep             = command{word: 0x1001, delay: 5 * time.Millisecond}
	cmdWakeUp            = command{word: 0x1103, delay: 5 * time.Millisecond}
	cmdStartFanCleaning  = command{word: 0x5607, delay: 5 * time.Millisecond}
	cmdReadAutoClean     = command{word: 0x8004, responseSize: 6}
	cmdWriteAutoClean    = command{word: 0x8004, delay: 20 * time.Millisecond}
	cmdReadProductType   = command{word: 0xd002, responseSize: 12}
	cmdReadSerialNumber  = command{word: 0xd033, responseSize: 48}
	cmdReadVersion       = command{word: 0xd100, responseSize: 3}
	cmdReadStatus        = command{word: 0xd206, responseSize: 6}
	cmdClearStatus       = command{word: 0xd210, delay: 5 * time.Millisecond}
	cmdReset             = command{word: 0xd304, delay: 100 * time.Millisecond}
	floatOutputFormat    = uint16(0x0300)
	resetAttempts        = 2
	resetBackoff         = 200 * time.Millisecond
	startAttempts        = 2
	measuredValuesFloats = 10
)

// Status register bits.
const (
	StatusSpeedWarning uint32 = 1 << 21
	StatusLaserError   uint32 = 1 << 5
	StatusFanError     uint32 = 1 << 4
)

// Env is one reading of the sensor.
type Env struct {
	// Mass concentration in µg/m³.
	MassPM1   float32
	MassPM2_5 float32
	MassPM4   float32
	MassPM10  float32
	// Number concentration in #/cm³.
	NumberPM0_5 float32
	NumberPM1   float32
	NumberPM2_5 float32
	NumberPM4   float32
	NumberPM10  float32
	// Typical particle size in µm.
	TypicalSize float32
}

func (e *Env) String() string {
	return fmt.Sprintf("PM1: %.3f µg/m³ PM2.5: %.3f µg/m³ PM4: %.3f µg/m³ PM10: %.3f µg/m³ "+
		"NC0.5: %.3f #/cm³ NC1: %.3f #/cm³ NC2.5: %.3f #/cm³ NC4: %.3f #/cm³ NC10: %.3f #/cm³ "+
		"Size: %.3f µm",
		e.MassPM1, e.MassPM2_5, e.MassPM4, e.MassPM10,
		e.NumberPM0_5, e.NumberPM1, e.NumberPM2_5, e.NumberPM4, e.NumberPM10,
		e.TypicalSize)
}

func (e *Env) setNaN() {
	nan := float32(math.NaN())
	*e = Env{nan, nan, nan, nan, nan, nan, nan, nan, nan, nan}
}

// Opts holds the configuration options for the device.
type Opts struct {
	// Retries is the number of write/read attempts for a single command before
	// giving up.
	Retries int
	// DataReadyAttempts is the number of times Sense polls the data-ready flag
	// before reading the measured values anyway.
	DataReadyAttempts int
	// DataReadyInterval is the time between data-ready polls.
	DataReadyInterval time.Duration
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	Retries:           3,
	DataReadyAttempts: 4,
	DataReadyInterval: 100 * time.Millisecond,
}

// Dev is a handle to an SPS30 sensor.
type Dev struct {
	d    *i2c.Dev
	opts Opts
	mu   sync.Mutex
	// True once Start() succeeded and until Stop() or Reset().
	measuring bool
}

// NewI2C returns a handle to an SPS30 at addr on the bus. Use DefaultAddress
// for addr. The Opts can be nil.
//
// The device is left idle, call Start() to begin measuring.
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
	return &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, opts: o}, nil
}

// Start puts the sensor in measurement mode. If the command is not accepted
// the device is reset and the command is sent again.
func (d *Dev) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.start()
}

func (d *Dev) start() error {
	var errs []error
	for attempt := range startAttempts {
		_, err := d.tx(cmdStartMeasurement, floatOutputFormat)
		if err == nil {
			d.measuring = true
			return nil
		}
		errs = append(errs, err)
		if attempt+1 < startAttempts {
			if err := d.reset(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return fmt.Errorf("sps30: start measurement failed: %w", errors.Join(errs...))
}

// Stop leaves measurement mode. The fan and laser are switched off.
func (d *Dev) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.measuring = false
	_, err := d.tx(cmdStopMeasurement)
	return err
}

// Halt implements conn.Resource. It stops measuring.
func (d *Dev) Halt() error {
	return d.Stop()
}

// DataReady returns true if a new measurement can be read.
func (d *Dev) DataReady() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dataReady()
}

func (d *Dev) dataReady() (bool, error) {
	words, err := d.readFromAddr(cmdReadDataReady)
	if err != nil {
		return false, err
	}
	return words[0]&0xff != 0, nil
}

// Sense waits for the data-ready flag and reads the measured values. If the
// flag can't be read the device is reset and restarted before polling
// continues. On error every field of env is NaN.
func (d *Dev) Sense(ctx context.Context, env *Env) error {
	env.setNaN()
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.measuring {
		return ErrNotMeasuring
	}

	recovered := false
	for attempt := 0; attempt < d.opts.DataReadyAttempts; attempt++ {
		ready, err := d.dataReady()
		if err != nil {
			if recovered {
				return err
			}
			recovered = true
			if rerr := d.recover(); rerr != nil {
				return errors.Join(err, rerr)
			}
		} else if ready {
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

	r, err := d.read(cmdReadMeasured)
	if err != nil {
		return err
	}
	values, err := common.Float32s(r)
	if err != nil {
		return fmt.Errorf("sps30: measured values: %w", err)
	}
	if len(values) != measuredValuesFloats {
		return fmt.Errorf("sps30: expected %d values, got %d", measuredValuesFloats, len(values))
	}
	*env = Env{
		MassPM1:     values[0],
		MassPM2_5:   values[1],
		MassPM4:     values[2],
		MassPM10:    values[3],
		NumberPM0_5: values[4],
		NumberPM1:   values[5],
		NumberPM2_5: values[6],
		NumberPM4:   values[7],
		NumberPM10:  values[8],
		TypicalSize: values[9],
	}
	return nil
}

// recover resets the device and, if it was measuring, starts it again.
func (d *Dev) recover() error {
	wasMeasuring := d.measuring
	if err := d.reset(); err != nil {
		return err
	}
	if wasMeasuring {
		return d.start()
	}
	return nil
}

// Reset performs a soft reset. The device comes back in idle mode. A failed
// attempt is retried after an increasing pause, the first one immediately.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reset()
}

func (d *Dev) reset() error {
	d.measuring = false
	var err error
	for attempt := range resetAttempts {
		if _, err = d.tx(cmdReset); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt) * resetBackoff)
	}
	return fmt.Errorf("sps30: reset failed: %w", err)
}

// Clean starts the fan cleaning procedure. It runs for 10 seconds, during
// which measured values are not updated. The device must be measuring.
func (d *Dev) Clean() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.tx(cmdStartFanCleaning)
	return err
}

// AutoCleanInterval returns the automatic fan cleaning interval.
func (d *Dev) AutoCleanInterval() (time.Duration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.readFromAddr(cmdReadAutoClean)
	if err != nil {
		return 0, err
	}
	return time.Duration(uint32(words[0])<<16|uint32(words[1])) * time.Second, nil
}

// SetAutoCleanInterval changes the automatic fan cleaning interval. 0
// disables automatic cleaning. The value is persisted by the sensor.
func (d *Dev) SetAutoCleanInterval(interval time.Duration) error {
	if interval < 0 || interval/time.Second > math.MaxUint32 {
		return fmt.Errorf("sps30: invalid auto cleaning interval %s", interval)
	}
	secs := uint32(interval / time.Second)
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.tx(cmdWriteAutoClean, uint16(secs>>16), uint16(secs))
	return err
}

// Sleep puts the device in its low power mode. It must be idle.
func (d *Dev) Sleep() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.tx(cmdSleep)
	return err
}

// WakeUp leaves sleep mode. The first command only wakes the interface and is
// not acknowledged, so it is sent twice.
func (d *Dev) WakeUp() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _ = d.tx(cmdWakeUp)
	_, err := d.tx(cmdWakeUp)
	return err
}

// SerialNumber returns the serial number string of the device.
func (d *Dev) SerialNumber() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readString(cmdReadSerialNumber)
}

// ProductType returns the product type string. It is "00080000" for the
// SPS30.
func (d *Dev) ProductType() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readString(cmdReadProductType)
}

// FirmwareVersion returns the firmware major and minor version.
func (d *Dev) FirmwareVersion() (major, minor byte, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.readFromAddr(cmdReadVersion)
	if err != nil {
		return 0, 0, err
	}
	return byte(words[0] >> 8), byte(words[0]), nil
}

// Status returns the device status register. See the Status* constants.
func (d *Dev) Status() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.readFromAddr(cmdReadStatus)
	if err != nil {
		return 0, err
	}
	return uint32(words[0])<<16 | uint32(words[1]), nil
}

// ClearStatus clears the device status register.
func (d *Dev) ClearStatus() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.tx(cmdClearStatus)
	return err
}

// Precision returns the resolution of the float output format.
func (d *Dev) Precision(env *Env) {
	e := float32(math.SmallestNonzeroFloat32)
	*env = Env{e, e, e, e, e, e, e, e, e, e}
}

func (d *Dev) String() string {
	return fmt.Sprintf("sps30: %s", d.d.String())
}

func (d *Dev) readString(c command) (string, error) {
	words, err := d.readFromAddr(c)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, w := range words {
		for _, ch := range []byte{byte(w >> 8), byte(w)} {
			if ch == 0 {
				return sb.String(), nil
			}
			sb.WriteByte(ch)
		}
	}
	return sb.String(), nil
}

// readFromAddr sends the command and reads its CRC checked response, trying
// up to Opts.Retries times.
func (d *Dev) readFromAddr(c command) ([]uint16, error) {
	r, err := d.read(c)
	if err != nil {
		return nil, err
	}
	return common.Words(r)
}

// read is readFromAddr without the word decoding. The CRC is still verified
// so a corrupted transfer is retried.
func (d *Dev) read(c command) ([]byte, error) {
	var err error
	for range d.opts.Retries {
		var r []byte
		if r, err = d.tx(c); err != nil {
			continue
		}
		if _, err = common.Words(r); err != nil {
			err = fmt.Errorf("sps30 cmd 0x%04x: %w", uint16(c.word), err)
			continue
		}
		return r, nil
	}
	return nil, fmt.Errorf("sps30: %d tries exceeded: %w", d.opts.Retries, err)
}

// tx writes the command word and its arguments, waits for the execution time
// and reads the response. The SPS30 needs a stop condition between the
// pointer write and the read, so it's two transactions.
func (d *Dev) tx(c command, args ...uint16) ([]byte, error) {
	w := []byte{byte(c.word >> 8), byte(c.word)}
	w = append(w, common.PackWords(args...)...)
	if err := d.d.Tx(w, nil); err != nil {
		return nil, fmt.Errorf("sps30 cmd 0x%04x: %w", uint16(c.word), err)
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.responseSize == 0 {
		return nil, nil
	}
	r := make([]byte, c.responseSize)
	if err := d.d.Tx(nil, r); err != nil {
		return nil, fmt.Errorf("sps30 cmd 0x%04x read: %w", uint16(c.word), err)
	}
	return r, nil
}
