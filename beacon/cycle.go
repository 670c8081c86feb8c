// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package beacon

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/stats"
	"github.com/sirupsen/logrus"
)

// Cycle defaults.
const (
	DefaultScansPerCycle = 5
	DefaultSettleTime    = 500 * time.Millisecond
)

// Cycle runs one polling cycle over a set of sensors.
type Cycle struct {
	Sensors []Sensor
	// ScansPerCycle is the number of scans averaged per sensor.
	ScansPerCycle int
	// SettleTime is the wait between enabling the switchable sensors and the
	// first scan.
	SettleTime time.Duration
	// Watch receives the result of each sensor. Can be nil.
	Watch *Watch
	Log   logrus.FieldLogger
	// Now returns the record time. Defaults to time.Now.
	Now func() time.Time
}

// Run performs one cycle. The Record has every column of every sensor, NaN
// where all scans failed. The error is ctx.Err() if the cycle was
// interrupted.
func (c *Cycle) Run(ctx context.Context) (Record, error) {
	scans := c.ScansPerCycle
	if scans <= 0 {
		scans = DefaultScansPerCycle
	}
	log := c.logger()

	for _, s := range c.Sensors {
		if sw, ok := s.(Switchable); ok {
			if err := sw.Enable(); err != nil {
				log.WithField("sensor", s.Name()).WithError(err).Warn("sensor not enabled")
			}
		}
	}
	defer func() {
		for _, s := range c.Sensors {
			if sw, ok := s.(Switchable); ok {
				if err := sw.Disable(); err != nil {
					log.WithField("sensor", s.Name()).WithError(err).Warn("sensor not disabled")
				}
			}
		}
	}()

	settle := c.SettleTime
	if settle == 0 {
		settle = DefaultSettleTime
	}
	select {
	case <-ctx.Done():
		return Record{}, ctx.Err()
	case <-time.After(settle):
	}

	results := make([]map[string]float64, len(c.Sensors))
	var wg sync.WaitGroup
	for ix, s := range c.Sensors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[ix] = c.scan(ctx, s, scans, log)
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	rec := Record{Time: now(), Values: map[string]float64{}}
	for _, r := range results {
		for k, v := range r {
			rec.Values[k] = v
		}
	}
	return rec, nil
}

// scan scans s n times in sequence and averages each column.
func (c *Cycle) scan(ctx context.Context, s Sensor, n int, log logrus.FieldLogger) map[string]float64 {
	log = log.WithField("sensor", s.Name())
	columns := s.Columns()
	values := make(map[string][]float64, len(columns))
	failures := 0
	var lastErr error
	for range n {
		if ctx.Err() != nil {
			break
		}
		sample, err := s.Scan(ctx)
		if err != nil {
			failures++
			lastErr = err
			log.WithError(err).Debug("scan failed")
		}
		for _, col := range columns {
			v, ok := sample[col]
			if !ok {
				v = math.NaN()
			}
			values[col] = append(values[col], v)
		}
	}
	if c.Watch != nil {
		c.Watch.Observe(s.Name(), failures == n, lastErr)
	}
	out := make(map[string]float64, len(columns))
	for _, col := range columns {
		out[col] = stats.Mean(values[col])
	}
	log.WithField("failures", failures).Debugf("scan results %v", out)
	return out
}

func (c *Cycle) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}
