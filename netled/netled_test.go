// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package netled

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus/hooks/test"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestUpdate(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO4"}
	up := true
	var checkErr error
	l := &LED{Pin: pin, Connected: func() (bool, error) { return up, checkErr }}
	if got, err := l.Update(); !got || err != nil {
		t.Fatal(got, err)
	}
	if pin.Read() != gpio.High {
		t.Error("LED off while connected")
	}
	up = false
	if _, err := l.Update(); err != nil {
		t.Fatal(err)
	}
	if pin.Read() != gpio.Low {
		t.Error("LED on while disconnected")
	}
	up, checkErr = true, errors.New("boom")
	if got, err := l.Update(); got || err == nil {
		t.Fatal(got, err)
	}
	if pin.Read() != gpio.Low {
		t.Error("LED on after a failed check")
	}
}

func TestRun(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO4"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var states []bool
	l := &LED{
		Pin: pin,
		Connected: func() (bool, error) {
			states = append(states, len(states)%2 == 0)
			if len(states) == 4 {
				cancel()
			}
			return states[len(states)-1], nil
		},
		Every: time.Millisecond,
	}
	logger, hook := test.NewNullLogger()
	l.Log = logger
	if err := l.Run(ctx); err != context.Canceled {
		t.Fatalf("Run()=%v", err)
	}
	if diff := cmp.Diff([]bool{true, false, true, false}, states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
	if pin.Read() != gpio.Low {
		t.Error("LED left on")
	}
	if n := len(hook.AllEntries()); n != 4 {
		t.Errorf("got %d log entries", n)
	}
}

func TestRunNoLogger(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO4"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &LED{Pin: pin, Connected: func() (bool, error) { return true, errors.New("boom") }}
	if err := l.Run(ctx); err != context.Canceled {
		t.Fatalf("Run()=%v", err)
	}
	if pin.Read() != gpio.Low {
		t.Error("LED left on")
	}
}
