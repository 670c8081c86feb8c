// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// beacon-summary summarizes the air quality of one day.
//
// Usage: beacon-summary [beacon] [save_dir]
//
// The beacon defaults to "00" and save_dir to the data directory.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/internal/logs"
	"github.com/GermanBionicSystems/bevobeacon/summary"
)

func mainImpl() error {
	dataDir := flag.String("data", "/home/pi/DATA", "directory of the daily CSV files")
	day := flag.String("date", "", "day to summarize, YYYY-MM-DD; today when empty")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() > 2 {
		return errors.New("usage: beacon-summary [beacon] [save_dir]")
	}
	beaconID, saveDir := "00", *dataDir
	if flag.NArg() > 0 {
		beaconID = flag.Arg(0)
	}
	if flag.NArg() > 1 {
		saveDir = flag.Arg(1)
	}
	when := time.Now()
	if *day != "" {
		var err error
		if when, err = time.ParseInLocation("2006-01-02", *day, time.Local); err != nil {
			return err
		}
	}
	log, closer := logs.New("", *verbose)
	defer closer.Close()
	path, err := summary.Run(*dataDir, saveDir, beaconID, when, log)
	if err != nil {
		return err
	}
	log.WithField("file", path).Info("summary saved")
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "beacon-summary: %s.\n", err)
		os.Exit(1)
	}
}
