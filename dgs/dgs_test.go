// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dgs

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakePort answers every request with the next queued line.
type fakePort struct {
	written bytes.Buffer
	pending bytes.Buffer
	resets  int
}

func (f *fakePort) Write(b []byte) (int, error) { return f.written.Write(b) }

func (f *fakePort) Read(b []byte) (int, error) {
	if f.pending.Len() == 0 {
		// go.bug.st/serial reports a timeout as 0 bytes and no error.
		return 0, nil
	}
	return f.pending.Read(b)
}

func (f *fakePort) ResetInputBuffer() error {
	f.resets++
	return nil
}

func newTestDev(response string) (*Dev, *fakePort) {
	p := &fakePort{}
	p.pending.WriteString(response)
	d := New(p, "test")
	d.wait = time.Millisecond
	return d, p
}

func TestMeasure(t *testing.T) {
	d, p := newTestDev("021119020143, 23, 24.5, 41.2, 31589, 26247, 26669, 00, 01, 02, 03\r\n")
	r, err := d.Measure(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := Reading{
		Serial:          "021119020143",
		PPB:             23,
		Temperature:     24.5,
		Humidity:        41.2,
		Raw:             31589,
		TempDigital:     26247,
		HumidityDigital: 26669,
		Uptime:          time.Hour + 2*time.Minute + 3*time.Second,
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("Measure() mismatch (-want +got):\n%s", diff)
	}
	if got := p.written.String(); got != "\r\r" {
		t.Errorf("wrote %q, want two carriage returns", got)
	}
	if p.resets != 1 {
		t.Errorf("input buffer reset %d times", p.resets)
	}
	if s := r.String(); s != "021119020143: 23 ppb 24.5 °C 41.2 %RH" {
		t.Errorf("Reading.String()=%q", s)
	}
}

func TestMeasureTimeout(t *testing.T) {
	d, _ := newTestDev("0211190201")
	if _, err := d.Measure(context.Background()); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestMeasureCanceled(t *testing.T) {
	d, _ := newTestDev("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.wait = time.Hour
	if _, err := d.Measure(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	data := []string{
		"",
		"021119020143, 23, 24.5, 41.2",
		"021119020143, x, 24.5, 41.2, 31589, 26247, 26669, 00, 01, 02, 03",
		"021119020143, 23, 24.5, 41.2, 31589, 26247, 26669, 00, 01, 02, 3.5",
	}
	for _, line := range data {
		if _, err := Parse(line); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) expected ErrMalformed, got %v", line, err)
		}
	}
}

func TestClose(t *testing.T) {
	d, _ := newTestDev("")
	if err := d.Close(); err != nil {
		t.Errorf("Close() on a non closer: %v", err)
	}
}
