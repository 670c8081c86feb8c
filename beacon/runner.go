// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package beacon

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is the time between the start of two cycles.
const DefaultInterval = time.Minute

// Sink consumes records.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, rec Record) error

// Write implements Sink.
func (f SinkFunc) Write(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

// Runner repeats cycles.
type Runner struct {
	Cycle    *Cycle
	Sinks    []Sink
	Interval time.Duration
	Log      logrus.FieldLogger
}

// Loop runs cycles until ctx is done. Cycles start on multiples of Interval
// after the first one, so slow cycles don't accumulate drift. A failing sink
// is logged and doesn't stop the loop.
func (r *Runner) Loop(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	start := time.Now()
	for {
		cycleStart := time.Now()
		rec, err := r.Cycle.Run(ctx)
		if err != nil {
			return err
		}
		for _, s := range r.Sinks {
			if err := s.Write(ctx, rec); err != nil {
				log.WithError(err).Warnf("sink %T failed", s)
			}
		}
		log.WithField("cycle_time", time.Since(cycleStart)).Info("cycle complete")

		wait := interval - time.Since(start)%interval
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
