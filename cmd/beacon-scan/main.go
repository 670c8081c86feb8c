// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// beacon-scan prints the devices found on the I²C bus and the status of the
// known beacon sensors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/buslock"
	"github.com/GermanBionicSystems/bevobeacon/i2cscan"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func mainImpl() error {
	busName := flag.String("i2c", "", "I²C bus to use")
	wait := flag.Duration("wait", time.Second, "time between the two scans")
	lockPath := flag.String("lock", buslock.DefaultPath, "I²C bus lock file")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx := context.Background()
	var results []i2cscan.Result
	if err := buslock.New(*lockPath).Do(ctx, func() (err error) {
		results, err = i2cscan.Survey(ctx, bus, i2cscan.Known, *wait)
		return err
	}); err != nil {
		return err
	}
	for _, r := range results {
		fmt.Println(r)
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "beacon-scan: %s.\n", err)
		os.Exit(1)
	}
}
