// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.
//
// Unit tests for the package. Note that this supports running on a live
// sensor, or using playback mode to simulate a live device.
//
// To use a live device, define the environment variable SCD30 and run go test.

package scd30

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/common"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var bus i2c.Bus
var liveDevice bool

func wr(b ...byte) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddress, W: b}
}

func rd(b []byte) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddress, R: b}
}

// Interval already 2 seconds.
var startup = []i2ctest.IO{wr(0x46, 0x00), rd(common.PackWords(2))}

func init() {
	var err error
	if os.Getenv("SCD30") != "" {
		liveDevice = true
	}
	if _, err = host.Init(); err != nil {
		fmt.Println(err)
	}
	if liveDevice {
		bus, err = i2creg.Open("")
		if err != nil {
			fmt.Println(err)
		}
		bus = &i2ctest.Record{Bus: bus}
	} else {
		bus = &i2ctest.Playback{DontPanic: true}
	}
}

func getDev(t *testing.T, ops ...i2ctest.IO) *Dev {
	if liveDevice {
		if recorder, ok := bus.(*i2ctest.Record); ok {
			recorder.Ops = make([]i2ctest.IO, 0, 32)
		}
	} else {
		pb := bus.(*i2ctest.Playback)
		pb.Ops = ops
		pb.Count = 0
	}
	dev, err := NewI2C(bus, DefaultAddress, &Opts{DataReadyInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	return dev
}

func shutdown(t *testing.T) {
	if recorder, ok := bus.(*i2ctest.Record); ok {
		t.Logf("%#v", recorder.Ops)
	}
}

func consumed(t *testing.T) {
	if pb, ok := bus.(*i2ctest.Playback); ok && pb.Count != len(pb.Ops) {
		t.Errorf("playback: %d of %d operations used", pb.Count, len(pb.Ops))
	}
}

func TestNewI2CSetsInterval(t *testing.T) {
	if liveDevice {
		t.Skip("playback only")
	}
	getDev(t,
		wr(0x46, 0x00), rd(common.PackWords(5)),
		wr(0x46, 0x00, 0x00, 0x02, 0xe3),
	)
	consumed(t)
}

func TestNewI2CInvalid(t *testing.T) {
	pb := &i2ctest.Playback{DontPanic: true}
	if _, err := NewI2C(pb, DefaultAddress, &Opts{Interval: time.Second}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for interval, got %v", err)
	}
	if _, err := NewI2C(pb, DefaultAddress, &Opts{AmbientPressure: 200 * physic.KiloPascal}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for pressure, got %v", err)
	}
	if pb.Count != 0 {
		t.Errorf("bus accessed %d times for invalid options", pb.Count)
	}
}

func TestSense(t *testing.T) {
	ops := append([]i2ctest.IO{}, startup...)
	ops = append(ops,
		wr(0x00, 0x10, 0x00, 0x00, 0x81),
		wr(0x02, 0x02), rd(common.PackWords(0)),
		wr(0x02, 0x02), rd(common.PackWords(1)),
		wr(0x03, 0x00), rd(common.PackFloat32(612.5, 22.5, 41.25)),
		wr(0x01, 0x04),
	)
	dev := getDev(t, ops...)
	defer shutdown(t)
	if err := dev.Start(); err != nil {
		t.Fatal(err)
	}
	env := Env{}
	if err := dev.Sense(context.Background(), &env); err != nil {
		t.Fatal(err)
	}
	t.Log(env.String())
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
	if liveDevice {
		return
	}
	want := Env{CO2: 612.5}
	want.Temperature = physic.ZeroCelsius + 22500*physic.MilliKelvin
	want.Humidity = 4125 * physic.PercentRH / 100
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("Sense() mismatch (-want +got):\n%s", diff)
	}
	consumed(t)
}

func TestSenseErrors(t *testing.T) {
	if liveDevice {
		t.Skip("playback only")
	}
	dev := getDev(t, startup...)
	env := Env{}
	if err := dev.Sense(context.Background(), &env); !errors.Is(err, ErrNotMeasuring) {
		t.Errorf("expected ErrNotMeasuring, got %v", err)
	}
	if !math.IsNaN(float64(env.CO2)) {
		t.Errorf("expected NaN CO2, got %v", env.CO2)
	}

	bad := []byte{0x00, 0x01, 0x00}
	ops := append([]i2ctest.IO{}, startup...)
	ops = append(ops,
		wr(0x00, 0x10, 0x00, 0x00, 0x81),
		wr(0x02, 0x02), rd(bad),
		wr(0x02, 0x02), rd(bad),
		wr(0x02, 0x02), rd(bad),
	)
	dev = getDev(t, ops...)
	if err := dev.Start(); err != nil {
		t.Fatal(err)
	}
	if err := dev.Sense(context.Background(), &env); !errors.Is(err, common.ErrCRC) {
		t.Errorf("expected ErrCRC, got %v", err)
	}
	if !math.IsNaN(float64(env.CO2)) {
		t.Errorf("expected NaN CO2, got %v", env.CO2)
	}
	consumed(t)
}

func TestStartWithPressure(t *testing.T) {
	if liveDevice {
		t.Skip("playback only")
	}
	pb := bus.(*i2ctest.Playback)
	pb.Ops = append(append([]i2ctest.IO{}, startup...),
		// 1013 mbar = 0x03f5
		wr(0x00, 0x10, 0x03, 0xf5, common.CRC8([]byte{0x03, 0xf5})))
	pb.Count = 0
	dev, err := NewI2C(bus, DefaultAddress, &Opts{AmbientPressure: 101300 * physic.Pascal})
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.Start(); err != nil {
		t.Fatal(err)
	}
	consumed(t)
}

func TestGetSetConfiguration(t *testing.T) {
	if liveDevice {
		t.Skip("playback only")
	}
	current := []i2ctest.IO{
		wr(0x46, 0x00), rd(common.PackWords(2)),
		wr(0x53, 0x06), rd(common.PackWords(1)),
		wr(0x54, 0x03), rd(common.PackWords(150)),
		wr(0x51, 0x02), rd(common.PackWords(0)),
		wr(0x52, 0x04), rd(common.PackWords(400)),
	}
	ops := append(append([]i2ctest.IO{}, startup...), current...)
	ops = append(ops, current...)
	ops = append(ops,
		wr(append([]byte{0x53, 0x06}, common.PackWords(0)...)...),
		wr(append([]byte{0x51, 0x02}, common.PackWords(150)...)...),
	)
	dev := getDev(t, ops...)
	cfg, err := dev.GetConfiguration()
	if err != nil {
		t.Fatal(err)
	}
	want := &DevConfig{
		Interval:          2 * time.Second,
		ASCEnabled:        true,
		TemperatureOffset: 1500 * physic.MilliKelvin,
		FRC:               400,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("GetConfiguration() mismatch (-want +got):\n%s", diff)
	}
	cfg.ASCEnabled = false
	cfg.Altitude = 150 * physic.Metre
	if err := dev.SetConfiguration(cfg); err != nil {
		t.Fatal(err)
	}
	consumed(t)
}

func TestInvalidSettings(t *testing.T) {
	if liveDevice {
		t.Skip("playback only")
	}
	dev := getDev(t, startup...)
	if err := dev.SetInterval(1801 * time.Second); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
	if err := dev.ForceRecalibration(399); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
	if err := dev.ForceRecalibration(2001); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
	if err := dev.SetConfiguration(&DevConfig{Interval: 2 * time.Second, Altitude: -physic.Metre}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
	consumed(t)
}

func TestFirmwareAndFRC(t *testing.T) {
	ops := append(append([]i2ctest.IO{}, startup...),
		wr(0xd1, 0x00), rd(common.PackWords(0x0342)),
		wr(append([]byte{0x52, 0x04}, common.PackWords(450)...)...),
	)
	dev := getDev(t, ops...)
	defer shutdown(t)
	major, minor, err := dev.FirmwareVersion()
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("firmware %d.%d", major, minor)
	if liveDevice {
		return
	}
	if major != 3 || minor != 0x42 {
		t.Errorf("unexpected firmware %d.%d", major, minor)
	}
	if err := dev.ForceRecalibration(450); err != nil {
		t.Error(err)
	}
	consumed(t)
}

func TestPrecisionString(t *testing.T) {
	dev := getDev(t, startup...)
	env := Env{}
	dev.Precision(&env)
	if env.CO2 != 1 || env.Temperature != 10*physic.MilliKelvin {
		t.Errorf("unexpected precision %#v", env)
	}
	if len(dev.String()) == 0 {
		t.Error("Dev.String() returned empty value.")
	}
	if s := PPM(400).String(); s != "400.0 PPM" {
		t.Errorf("PPM.String()=%q", s)
	}
}
