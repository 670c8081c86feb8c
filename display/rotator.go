// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package display

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/beacon"
	"github.com/GermanBionicSystems/bevobeacon/csvlog"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
)

// DefaultTitle is shown on top of every frame.
const DefaultTitle = "WCWH BEVO Beacon"

// DefaultHold is how long a value stays on screen.
const DefaultHold = 3 * time.Second

// Latest returns the corrected last values of columns from the newest CSV
// file of dir. An unknown column reads as NaN. A nil log uses the standard
// logger.
func Latest(dir string, columns []string, corr Corrections, log logrus.FieldLogger) ([]Reading, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	path, err := csvlog.Latest(dir)
	if err != nil {
		return nil, err
	}
	log = log.WithField("file", path)
	id, err := csvlog.BeaconFromFilename(path)
	if err != nil {
		return nil, err
	}
	t, err := csvlog.ReadTable(path)
	if err != nil {
		return nil, err
	}
	rec, err := t.Last()
	if err != nil {
		return nil, err
	}
	out := make([]Reading, 0, len(columns))
	for _, col := range columns {
		v, ok := rec.Values[col]
		if !ok {
			log.WithField("column", col).Error("check parameter name")
			v = math.NaN()
		} else {
			param, _ := Split(col)
			v = round1(corr.Lookup(ShortName(param), id).Apply(v))
		}
		out = append(out, Reading{Column: col, Value: v})
	}
	return out, nil
}

// Rotator shows the latest values in turn.
type Rotator struct {
	Screen      display.Drawer
	Renderer    *Renderer
	DataDir     string
	Columns     []string
	Corrections Corrections
	Fahrenheit  bool
	Title       string
	Hold        time.Duration
	// Lock guards the bus of Screen when not nil.
	Lock beacon.Locker
	Log  logrus.FieldLogger
}

// Run loops until ctx is done. Read and draw errors show an error frame.
func (r *Rotator) Run(ctx context.Context) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for {
		if err := r.round(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger().WithError(err).Error("display")
			if err := r.show(ctx, ErrorFrame(r.title())); err != nil {
				r.logger().WithError(err).Error("display error frame")
			}
			if err := r.wait(ctx); err != nil {
				return err
			}
		}
	}
}

func (r *Rotator) round(ctx context.Context) error {
	columns := r.Columns
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	readings, err := Latest(r.DataDir, columns, r.Corrections, r.logger())
	if err != nil {
		return err
	}
	for _, rd := range readings {
		f := FrameFor(r.title(), rd, r.Fahrenheit)
		r.logger().WithField("column", rd.Column).Debugf("showing %s %s", f.Value, f.Unit)
		if err := r.show(ctx, f); err != nil {
			return err
		}
		if err := r.wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rotator) show(ctx context.Context, f Frame) error {
	img := r.Renderer.Render(f)
	draw := func() error { return Show(r.Screen, img) }
	if r.Lock == nil {
		return draw()
	}
	return r.Lock.Do(ctx, draw)
}

func (r *Rotator) wait(ctx context.Context) error {
	hold := r.Hold
	if hold <= 0 {
		hold = DefaultHold
	}
	t := time.NewTimer(hold)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Rotator) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

func (r *Rotator) title() string {
	if r.Title == "" {
		return DefaultTitle
	}
	return r.Title
}

var errNoScreen = errors.New("display: no screen")

// Validate reports a Rotator that can't run.
func (r *Rotator) Validate() error {
	if r.Screen == nil || r.Renderer == nil {
		return errNoScreen
	}
	return nil
}
