// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package buslock serializes access to a shared bus between goroutines and
// between processes, using an advisory lock file.
//
// The logger and the display run as separate processes on the same I²C bus.
package buslock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// DefaultPath is the lock file used by the beacon commands.
const DefaultPath = "/var/lock/bevobeacon-i2c.lock"

const retryDelay = 50 * time.Millisecond

// Lock is a bus lock. The zero value is not usable, use New.
type Lock struct {
	// flock.Flock is reentrant within a process, mu orders goroutines.
	mu sync.Mutex
	f  *flock.Flock
}

// New returns a Lock backed by the file at path. An empty path returns a
// Lock that only serializes goroutines.
func New(path string) *Lock {
	l := &Lock{}
	if path != "" {
		l.f = flock.New(path)
	}
	return l
}

// Do runs fn while holding the lock. It returns ctx.Err() if the lock could
// not be acquired before ctx is done.
func (l *Lock) Do(ctx context.Context, fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f != nil {
		locked, err := l.f.TryLockContext(ctx, retryDelay)
		if err != nil {
			return fmt.Errorf("buslock: %s: %w", l.f.Path(), err)
		}
		if !locked {
			return fmt.Errorf("buslock: %s: not acquired", l.f.Path())
		}
		defer func() { _ = l.f.Unlock() }()
	}
	return fn()
}

func (l *Lock) String() string {
	if l.f == nil {
		return "buslock: in process"
	}
	return "buslock: " + l.f.Path()
}
