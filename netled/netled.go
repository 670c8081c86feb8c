// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package netled lights a LED while the wireless network is up.
package netled

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
)

// DefaultEvery is the check period.
const DefaultEvery = 5 * time.Second

// Wireless reports whether a wireless interface ("wl*") is up with an
// address.
func Wireless() (bool, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false, err
	}
	for _, ifc := range ifaces {
		if !strings.HasPrefix(ifc.Name, "wl") || ifc.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}
		if len(addrs) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// LED drives Pin from Connected.
type LED struct {
	Pin       gpio.PinOut
	Connected func() (bool, error)
	Every     time.Duration
	Log       logrus.FieldLogger
}

func (l *LED) logger() logrus.FieldLogger {
	if l.Log == nil {
		return logrus.StandardLogger()
	}
	return l.Log
}

// Update checks the network once and sets the pin.
func (l *LED) Update() (bool, error) {
	check := l.Connected
	if check == nil {
		check = Wireless
	}
	up, err := check()
	if err != nil {
		up = false
	}
	level := gpio.Low
	if up {
		level = gpio.High
	}
	if perr := l.Pin.Out(level); perr != nil {
		return up, perr
	}
	return up, err
}

// Run updates the LED until ctx is done, then turns it off.
func (l *LED) Run(ctx context.Context) error {
	every := l.Every
	if every <= 0 {
		every = DefaultEvery
	}
	log := l.logger()
	t := time.NewTicker(every)
	defer t.Stop()
	last := -1
	for {
		up, err := l.Update()
		if err != nil {
			log.WithError(err).Warn("network check")
		}
		state := 0
		if up {
			state = 1
		}
		if state != last {
			log.WithField("connected", up).Info("network status")
			last = state
		}
		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case <-t.C:
				continue
			}
		}
		_ = l.Pin.Out(gpio.Low)
		return ctx.Err()
	}
}
