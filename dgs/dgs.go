// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dgs reads SPEC Sensors digital gas sensor modules (DGS-NO2,
// DGS-CO, ...) over their UART interface.
//
// A carriage return requests a single measurement. The module answers with
// one comma separated line:
//
//	SN, PPB, TEMP, RH, RawSensor, TempDigital, RHDigital, Day, Hour, Minute, Second
//
// # Datasheet
//
// https://www.spec-sensors.com/wp-content/uploads/2017/01/DGS-NO2-968-043.pdf
package dgs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

var (
	// ErrMalformed is returned when the response line can't be parsed.
	ErrMalformed = errors.New("dgs: malformed response")
	// ErrTimeout is returned when no complete line arrived in time.
	ErrTimeout = errors.New("dgs: read timeout")
)

const (
	baudRate     = 9600
	readTimeout  = time.Second
	responseWait = 100 * time.Millisecond
	fieldCount   = 11
	maxLineSize  = 256
)

// Reading is one measurement.
type Reading struct {
	// Serial is the module serial number.
	Serial string
	// PPB is the gas concentration in parts per billion.
	PPB float64
	// Temperature in °C.
	Temperature float64
	// Humidity in %RH.
	Humidity float64
	// Raw ADC counts of the gas sensor, temperature and humidity.
	Raw             int
	TempDigital     int
	HumidityDigital int
	// Uptime of the module.
	Uptime time.Duration
}

func (r Reading) String() string {
	return fmt.Sprintf("%s: %.0f ppb %.1f °C %.1f %%RH", r.Serial, r.PPB, r.Temperature, r.Humidity)
}

// Dev is a handle to a DGS module.
type Dev struct {
	name string
	mu   sync.Mutex
	rw   io.ReadWriter
	wait time.Duration
}

// Open opens the serial port name at 9600 8N1.
func Open(name string) (*Dev, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "dgs: open %s", name)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, errors.Wrapf(err, "dgs: set read timeout on %s", name)
	}
	return New(port, name), nil
}

// New returns a Dev talking over rw. A read returning 0 bytes and no error is
// treated as a timeout, as go.bug.st/serial does.
func New(rw io.ReadWriter, name string) *Dev {
	return &Dev{name: name, rw: rw, wait: responseWait}
}

// Measure requests one measurement and parses the answer.
func (d *Dev) Measure(ctx context.Context) (Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Stale bytes from an earlier timed out request would shift the fields.
	if r, ok := d.rw.(interface{ ResetInputBuffer() error }); ok {
		if err := r.ResetInputBuffer(); err != nil {
			return Reading{}, errors.Wrapf(err, "dgs: %s: reset input", d.name)
		}
	}
	// The module sometimes misses the first character after idling.
	for range 2 {
		if _, err := d.rw.Write([]byte{'\r'}); err != nil {
			return Reading{}, errors.Wrapf(err, "dgs: %s: write", d.name)
		}
	}
	select {
	case <-ctx.Done():
		return Reading{}, ctx.Err()
	case <-time.After(d.wait):
	}
	line, err := d.readLine(ctx)
	if err != nil {
		return Reading{}, errors.Wrapf(err, "dgs: %s", d.name)
	}
	return Parse(line)
}

func (d *Dev) readLine(ctx context.Context) (string, error) {
	var line bytes.Buffer
	b := make([]byte, 1)
	for line.Len() < maxLineSize {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := d.rw.Read(b)
		if n == 1 {
			if b[0] == '\n' {
				return line.String(), nil
			}
			line.WriteByte(b[0])
			continue
		}
		if err == io.EOF || err == nil {
			return "", errors.Wrapf(ErrTimeout, "partial line %q", line.String())
		}
		return "", errors.Wrap(err, "read")
	}
	return "", errors.Wrapf(ErrMalformed, "line longer than %d bytes", maxLineSize)
}

// Parse decodes a response line.
func Parse(line string) (Reading, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, ", ")
	if len(fields) != fieldCount {
		return Reading{}, errors.Wrapf(ErrMalformed, "%d fields in %q", len(fields), line)
	}
	var floats [3]float64
	for ix := range floats {
		f, err := strconv.ParseFloat(strings.TrimSpace(fields[ix+1]), 64)
		if err != nil {
			return Reading{}, errors.Wrapf(ErrMalformed, "field %d of %q: %v", ix+1, line, err)
		}
		floats[ix] = f
	}
	var ints [7]int
	for ix := range ints {
		v, err := strconv.Atoi(strings.TrimSpace(fields[ix+4]))
		if err != nil {
			return Reading{}, errors.Wrapf(ErrMalformed, "field %d of %q: %v", ix+4, line, err)
		}
		ints[ix] = v
	}
	return Reading{
		Serial:          strings.TrimSpace(fields[0]),
		PPB:             floats[0],
		Temperature:     floats[1],
		Humidity:        floats[2],
		Raw:             ints[0],
		TempDigital:     ints[1],
		HumidityDigital: ints[2],
		Uptime: time.Duration(ints[3])*24*time.Hour +
			time.Duration(ints[4])*time.Hour +
			time.Duration(ints[5])*time.Minute +
			time.Duration(ints[6])*time.Second,
	}, nil
}

// Close closes the underlying port if it is closable.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.rw.(io.Closer); ok {
		return errors.Wrapf(c.Close(), "dgs: close %s", d.name)
	}
	return nil
}

func (d *Dev) String() string {
	return "dgs: " + d.name
}
