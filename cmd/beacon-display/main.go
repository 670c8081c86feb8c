// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// beacon-display shows the latest beacon values on the OLED screen, or on
// the terminal with -terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/buslock"
	"github.com/GermanBionicSystems/bevobeacon/display"
	"github.com/GermanBionicSystems/bevobeacon/internal/logs"
	"github.com/GermanBionicSystems/bevobeacon/screen2d"
	pdisplay "periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

func mainImpl() error {
	hold := flag.Int("t", 3, "number of seconds to display a measurement")
	dataDir := flag.String("data", "/home/pi/DATA", "directory of the daily CSV files")
	corrDir := flag.String("correction", "/home/pi/bevo_iaq/bevobeacon-iaq/correction", "directory of the correction files")
	fontPath := flag.String("font", "", "TrueType font file; Go Regular when empty")
	terminal := flag.Bool("terminal", false, "draw on the terminal instead of the OLED")
	fahrenheit := flag.Bool("fahrenheit", false, "show temperatures in Fahrenheit")
	lockPath := flag.String("lock", buslock.DefaultPath, "I²C bus lock file shared with beacon")
	busName := flag.String("i2c", "", "I²C bus to use")
	logPath := flag.String("log", "", "log file, rotated; empty for stdout only")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	log, closer := logs.New(*logPath, *verbose)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fonts, err := display.LoadFonts(*fontPath)
	if err != nil {
		log.WithError(err).Warn("using the basic font")
		fonts = display.BasicFonts()
	}
	corr, err := display.LoadCorrections(*corrDir)
	if err != nil {
		return err
	}

	var screen pdisplay.Drawer
	lock := buslock.New(*lockPath)
	if *terminal {
		screen = screen2d.New(&screen2d.Opts{W: 128, H: 64})
	} else {
		if _, err := host.Init(); err != nil {
			return err
		}
		bus, err := i2creg.Open(*busName)
		if err != nil {
			return err
		}
		defer bus.Close()
		var dev *ssd1306.Dev
		if err := lock.Do(ctx, func() (err error) {
			dev, err = ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
			return err
		}); err != nil {
			return fmt.Errorf("failed to initialize display: %w", err)
		}
		screen = dev
	}
	defer screen.Halt()

	r := &display.Rotator{
		Screen:      screen,
		Renderer:    display.NewRenderer(fonts),
		DataDir:     *dataDir,
		Corrections: corr,
		Fahrenheit:  *fahrenheit,
		Hold:        time.Duration(*hold) * time.Second,
		Lock:        lock,
		Log:         log,
	}
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "beacon-display: %s.\n", err)
		os.Exit(1)
	}
}
