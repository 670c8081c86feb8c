// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// beacon reads the air quality sensors once per interval and appends the
// averaged values to a daily CSV file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/archive"
	"github.com/GermanBionicSystems/bevobeacon/beacon"
	"github.com/GermanBionicSystems/bevobeacon/buslock"
	"github.com/GermanBionicSystems/bevobeacon/csvlog"
	"github.com/GermanBionicSystems/bevobeacon/dgs"
	"github.com/GermanBionicSystems/bevobeacon/internal/logs"
	"github.com/GermanBionicSystems/bevobeacon/live"
	"github.com/GermanBionicSystems/bevobeacon/scd30"
	"github.com/GermanBionicSystems/bevobeacon/sgp30"
	"github.com/GermanBionicSystems/bevobeacon/sps30"
	"github.com/GermanBionicSystems/bevobeacon/summary"
	"github.com/GermanBionicSystems/bevobeacon/tsl2591"
	"github.com/GermanBionicSystems/bevobeacon/upload"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// factories returns the constructors of every sensor the beacon may carry.
func factories(ctx context.Context, bus i2c.Bus, lock beacon.Locker, no2Port, coPort string) map[string]beacon.Factory {
	return map[string]beacon.Factory{
		beacon.NameSPS: func() (beacon.Sensor, error) {
			dev, err := sps30.NewI2C(bus, sps30.DefaultAddress, nil)
			if err != nil {
				return nil, err
			}
			// NewI2C doesn't talk to the device.
			err = lock.Do(ctx, func() error {
				_, _, err := dev.FirmwareVersion()
				return err
			})
			if err != nil {
				return nil, fmt.Errorf("sps30: %w", err)
			}
			return beacon.NewSPS30(dev, lock), nil
		},
		beacon.NameSCD: func() (beacon.Sensor, error) {
			var dev *scd30.Dev
			err := lock.Do(ctx, func() (err error) {
				dev, err = scd30.NewI2C(bus, scd30.DefaultAddress, nil)
				return err
			})
			if err != nil {
				return nil, err
			}
			return beacon.NewSCD30(dev, lock), nil
		},
		beacon.NameTSL: func() (beacon.Sensor, error) {
			var dev *tsl2591.Dev
			err := lock.Do(ctx, func() (err error) {
				dev, err = tsl2591.NewI2C(bus, tsl2591.DefaultAddress, nil)
				return err
			})
			if err != nil {
				return nil, err
			}
			return beacon.NewTSL2591(dev, lock), nil
		},
		beacon.NameSGP: func() (beacon.Sensor, error) {
			var dev *sgp30.Dev
			err := lock.Do(ctx, func() (err error) {
				dev, err = sgp30.NewI2C(ctx, bus, nil)
				return err
			})
			if err != nil {
				return nil, err
			}
			return beacon.NewSGP30(dev), nil
		},
		beacon.NameDGSNO2: func() (beacon.Sensor, error) {
			dev, err := dgs.Open(no2Port)
			if err != nil {
				return nil, err
			}
			return beacon.NewDGSNO2(dev), nil
		},
		beacon.NameDGSCO: func() (beacon.Sensor, error) {
			dev, err := dgs.Open(coPort)
			if err != nil {
				return nil, err
			}
			return beacon.NewDGSCO(dev), nil
		},
	}
}

func mainImpl() error {
	beaconID := flag.String("beacon", "00", "beacon number, used in file names")
	dataDir := flag.String("data", "/home/pi/DATA", "directory of the daily CSV files")
	interval := flag.Duration("interval", beacon.DefaultInterval, "time between records")
	scans := flag.Int("scans", beacon.DefaultScansPerCycle, "scans averaged per record")
	logPath := flag.String("log", "sensors.log", "log file, rotated; empty for stdout only")
	s3Prefix := flag.String("s3-prefix", "", "S3 key prefix; defaults to b<beacon>/")
	no2Port := flag.String("no2-port", "/dev/ttyUSB0", "serial port of the NO2 sensor")
	coPort := flag.String("co-port", "/dev/ttyUSB1", "serial port of the CO sensor")
	dbPath := flag.String("db", "", "SQLite archive, disabled when empty")
	liveAddr := flag.String("live", "", "address of the websocket live feed, like :8080")
	summaryCron := flag.String("summary-cron", "0 59 23 * * *", "cron schedule of the daily summary, with seconds; empty to disable")
	summaryDir := flag.String("summary-dir", "", "directory of the summary files; defaults to -data")
	lockPath := flag.String("lock", buslock.DefaultPath, "I²C bus lock file shared with beacon-display")
	busName := flag.String("i2c", "", "I²C bus to use")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	log, closer := logs.New(*logPath, *verbose)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		return err
	}
	defer bus.Close()
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		return err
	}

	lock := buslock.New(*lockPath)
	sensors := beacon.Open(factories(ctx, bus, lock, *no2Port, *coPort), log)
	if len(sensors) == 0 {
		return errors.New("no sensor found")
	}
	defer beacon.Halt(sensors, log)

	writer := &csvlog.Writer{Dir: *dataDir, Beacon: *beaconID}
	sinks := []beacon.Sink{writer}

	prefix := *s3Prefix
	if prefix == "" {
		prefix = "b" + *beaconID + "/"
	}
	if up, err := upload.FromEnv(ctx, prefix); err != nil {
		log.WithError(err).Warn("S3 upload disabled")
	} else {
		sched := &upload.Scheduler{Uploader: up, Path: writer.Path, Prefix: prefix, Log: log.WithField("sink", "s3")}
		writer.OnRotate = sched.Rotated
		defer sched.Wait()
		sinks = append(sinks, sched)
	}

	if *dbPath != "" {
		db, err := archive.Open(*dbPath, *beaconID)
		if err != nil {
			return err
		}
		defer db.Close()
		sinks = append(sinks, db)
	}

	if *liveAddr != "" {
		srv := live.New(*beaconID, log.WithField("sink", "live"))
		go func() {
			if err := srv.ListenAndServe(ctx, *liveAddr); err != nil {
				log.WithError(err).Error("live server stopped")
			}
		}()
		sinks = append(sinks, srv)
	}

	if *summaryCron != "" {
		dir := *summaryDir
		if dir == "" {
			dir = *dataDir
		}
		c := cron.New(cron.WithSeconds())
		sumLog := log.WithField("job", "summary")
		if _, err := c.AddFunc(*summaryCron, func() {
			path, err := summary.Run(*dataDir, dir, *beaconID, time.Now(), sumLog)
			if err != nil {
				sumLog.WithError(err).Error("summary failed")
				return
			}
			sumLog.WithField("file", path).Info("summary saved")
		}); err != nil {
			return fmt.Errorf("-summary-cron: %w", err)
		}
		c.Start()
		defer c.Stop()
	}

	r := &beacon.Runner{
		Cycle: &beacon.Cycle{
			Sensors:       sensors,
			ScansPerCycle: *scans,
			Watch:         beacon.NewWatch(log),
			Log:           log,
		},
		Sinks:    sinks,
		Interval: *interval,
		Log:      log,
	}
	log.WithFields(logrus.Fields{"beacon": *beaconID, "data": filepath.Clean(*dataDir), "sensors": len(sensors)}).Info("beacon started")
	if err := r.Loop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("beacon stopped")
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "beacon: %s.\n", err)
		os.Exit(1)
	}
}
