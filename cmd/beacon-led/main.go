// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// beacon-led lights a LED while the beacon is connected to Wi-Fi.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GermanBionicSystems/bevobeacon/internal/logs"
	"github.com/GermanBionicSystems/bevobeacon/netled"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

func mainImpl() error {
	pinName := flag.String("pin", "GPIO4", "LED pin")
	every := flag.Duration("every", netled.DefaultEvery, "check period")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	log, closer := logs.New("", *verbose)
	defer closer.Close()

	if _, err := host.Init(); err != nil {
		return err
	}
	pin := gpioreg.ByName(*pinName)
	if pin == nil {
		return fmt.Errorf("no pin %q", *pinName)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	l := &netled.LED{Pin: pin, Every: *every, Log: log}
	if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "beacon-led: %s.\n", err)
		os.Exit(1)
	}
}
