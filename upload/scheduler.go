// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package upload

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/beacon"
	"github.com/sirupsen/logrus"
)

// DefaultEvery is the minimum time between uploads of the current file.
const DefaultEvery = 24 * time.Hour

const rotateTimeout = 5 * time.Minute

// Scheduler uploads the file of the current day at most once per Every. It
// implements beacon.Sink and must come after the sink writing the file.
// Failures are logged.
type Scheduler struct {
	Uploader Uploader
	// Path returns the local file holding the record of time t.
	Path func(t time.Time) string
	// Prefix is prepended to the base name to build the key.
	Prefix string
	Every  time.Duration
	Log    logrus.FieldLogger

	mu      sync.Mutex
	last    time.Time
	pending sync.WaitGroup
}

// Write implements beacon.Sink. It never returns an error.
func (s *Scheduler) Write(ctx context.Context, rec beacon.Record) error {
	every := s.Every
	if every <= 0 {
		every = DefaultEvery
	}
	s.mu.Lock()
	due := s.last.IsZero() || rec.Time.Sub(s.last) >= every
	if due {
		s.last = rec.Time
	}
	s.mu.Unlock()
	if due {
		s.upload(ctx, s.Path(rec.Time))
	} else {
		s.logger().Debug("upload delayed")
	}
	return nil
}

// Rotated uploads the final version of the previous daily file in the
// background. It has the signature of csvlog.Writer.OnRotate.
func (s *Scheduler) Rotated(previous string) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), rotateTimeout)
		defer cancel()
		s.upload(ctx, previous)
	}()
}

// Wait blocks until the uploads started by Rotated are done.
func (s *Scheduler) Wait() {
	s.pending.Wait()
}

func (s *Scheduler) upload(ctx context.Context, path string) {
	log := s.logger().WithField("file", path)
	key := s.Prefix + filepath.Base(path)
	if err := s.Uploader.Upload(ctx, path, key); err != nil {
		log.WithError(err).Warn("upload failed")
		return
	}
	log.WithField("key", key).Info("uploaded")
}

func (s *Scheduler) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
