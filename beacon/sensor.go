// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package beacon

import (
	"context"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

// Sample maps a column name to a value. NaN marks a failed reading.
type Sample map[string]float64

// NaNSample returns a Sample with every column set to NaN.
func NaNSample(columns []string) Sample {
	s := make(Sample, len(columns))
	for _, c := range columns {
		s[c] = math.NaN()
	}
	return s
}

// Sensor is one polled device.
type Sensor interface {
	// Name is the short key of the sensor, like "sps".
	Name() string
	// Columns lists the keys of the samples returned by Scan.
	Columns() []string
	// Scan takes one reading. On error the returned Sample holds NaN for
	// every column.
	Scan(ctx context.Context) (Sample, error)
}

// Switchable is implemented by sensors that are powered up for each cycle
// and down in between.
type Switchable interface {
	Enable() error
	Disable() error
}

// Halter is implemented by sensors holding a device to release on exit.
type Halter interface {
	Halt() error
}

// Factory creates a sensor. It fails if the device is not present.
type Factory func() (Sensor, error)

// Locker serializes access to a shared bus.
type Locker interface {
	Do(ctx context.Context, fn func() error) error
}

type noLock struct{}

func (noLock) Do(_ context.Context, fn func() error) error { return fn() }

// Open creates the sensors of factories. A sensor that can't be created is
// logged and left out, so the beacon runs with whatever is connected. The
// result is sorted by name.
func Open(factories map[string]Factory, log logrus.FieldLogger) []Sensor {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	var sensors []Sensor
	for _, name := range names {
		s, err := factories[name]()
		if err != nil {
			log.WithField("sensor", name).WithError(err).Warn("sensor not available")
			continue
		}
		sensors = append(sensors, s)
	}
	return sensors
}

// Halt releases every sensor implementing Halter.
func Halt(sensors []Sensor, log logrus.FieldLogger) {
	for _, s := range sensors {
		if h, ok := s.(Halter); ok {
			if err := h.Halt(); err != nil {
				log.WithField("sensor", s.Name()).WithError(err).Warn("halt failed")
			}
		}
	}
}
