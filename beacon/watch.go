// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package beacon

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Watch tracks which sensors are down. A sensor is down when every scan of a
// cycle failed. Going down is logged once at Error level, coming back at Info.
type Watch struct {
	Log logrus.FieldLogger

	mu   sync.Mutex
	down map[string]bool
}

// NewWatch returns a Watch logging to log.
func NewWatch(log logrus.FieldLogger) *Watch {
	return &Watch{Log: log, down: map[string]bool{}}
}

// Observe records the outcome of a cycle for sensor name.
func (w *Watch) Observe(name string, failed bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.down == nil {
		w.down = map[string]bool{}
	}
	was := w.down[name]
	w.down[name] = failed
	log := w.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	switch {
	case failed && !was:
		log.WithField("sensor", name).WithError(err).Error("sensor down")
	case !failed && was:
		log.WithField("sensor", name).Info("sensor back up")
	}
}

// Down returns the sensors currently down, sorted.
func (w *Watch) Down() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for name, d := range w.down {
		if d {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
