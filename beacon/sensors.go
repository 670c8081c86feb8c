// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package beacon

import (
	"context"

	"github.com/GermanBionicSystems/bevobeacon/dgs"
	"github.com/GermanBionicSystems/bevobeacon/scd30"
	"github.com/GermanBionicSystems/bevobeacon/sgp30"
	"github.com/GermanBionicSystems/bevobeacon/sps30"
	"github.com/GermanBionicSystems/bevobeacon/tsl2591"
	"periph.io/x/conn/v3/physic"
)

// Sensor keys.
const (
	NameSGP    = "sgp"
	NameTSL    = "tsl"
	NameSPS    = "sps"
	NameSCD    = "scd"
	NameDGSNO2 = "dgs_no2"
	NameDGSCO  = "dgs_co"
)

// Column names, "quantity-unit".
const (
	ColTVOC        = "tvoc-ppb"
	ColECO2        = "eco2-ppm"
	ColVisible     = "visible-unitless"
	ColInfrared    = "infrared-unitless"
	ColLux         = "light-lux"
	ColPM0p5Number = "pm0p5_number-per_cm3"
	ColPM1Number   = "pm1_number-per_cm3"
	ColPM2p5Number = "pm2p5_number-per_cm3"
	ColPM4Number   = "pm4_number-per_cm3"
	ColPM10Number  = "pm10_number-per_cm3"
	ColPM1Mass     = "pm1_mass-microgram_per_m3"
	ColPM2p5Mass   = "pm2p5_mass-microgram_per_m3"
	ColPM4Mass     = "pm4_mass-microgram_per_m3"
	ColPM10Mass    = "pm10_mass-microgram_per_m3"
	ColCO2         = "carbon_dioxide-ppm"
	ColTemperature = "temperature-c"
	ColHumidity    = "relative_humidity-percent"
	ColNO2         = "nitrogen_dioxide-ppb"
	ColTempNO2     = "t_from_no2-c"
	ColRHNO2       = "rh_from_no2-percent"
	ColCO          = "carbon_monoxide-ppb"
	ColTempCO      = "t_from_co-c"
	ColRHCO        = "rh_from_co-percent"
)

// SPS30Device is the part of *sps30.Dev used by the beacon.
type SPS30Device interface {
	Start() error
	Stop() error
	Sense(ctx context.Context, env *sps30.Env) error
	Halt() error
}

type spsSensor struct {
	dev  SPS30Device
	lock Locker
}

// NewSPS30 wraps a particulate matter sensor. Access goes through lock,
// which can be nil.
func NewSPS30(dev SPS30Device, lock Locker) Sensor {
	return &spsSensor{dev: dev, lock: orNoLock(lock)}
}

func (s *spsSensor) Name() string { return NameSPS }

func (s *spsSensor) Columns() []string {
	return []string{
		ColPM0p5Number, ColPM1Number, ColPM2p5Number, ColPM4Number, ColPM10Number,
		ColPM1Mass, ColPM2p5Mass, ColPM4Mass, ColPM10Mass,
	}
}

func (s *spsSensor) Enable() error {
	return s.lock.Do(context.Background(), s.dev.Start)
}

func (s *spsSensor) Disable() error {
	return s.lock.Do(context.Background(), s.dev.Stop)
}

func (s *spsSensor) Halt() error { return s.dev.Halt() }

func (s *spsSensor) Scan(ctx context.Context) (Sample, error) {
	var env sps30.Env
	if err := s.lock.Do(ctx, func() error { return s.dev.Sense(ctx, &env) }); err != nil {
		return NaNSample(s.Columns()), err
	}
	return Sample{
		ColPM0p5Number: float64(env.NumberPM0_5),
		ColPM1Number:   float64(env.NumberPM1),
		ColPM2p5Number: float64(env.NumberPM2_5),
		ColPM4Number:   float64(env.NumberPM4),
		ColPM10Number:  float64(env.NumberPM10),
		ColPM1Mass:     float64(env.MassPM1),
		ColPM2p5Mass:   float64(env.MassPM2_5),
		ColPM4Mass:     float64(env.MassPM4),
		ColPM10Mass:    float64(env.MassPM10),
	}, nil
}

// SCD30Device is the part of *scd30.Dev used by the beacon.
type SCD30Device interface {
	Start() error
	Stop() error
	Sense(ctx context.Context, env *scd30.Env) error
	Halt() error
}

type scdSensor struct {
	dev  SCD30Device
	lock Locker
}

// NewSCD30 wraps a CO2 sensor.
func NewSCD30(dev SCD30Device, lock Locker) Sensor {
	return &scdSensor{dev: dev, lock: orNoLock(lock)}
}

func (s *scdSensor) Name() string { return NameSCD }

func (s *scdSensor) Columns() []string {
	return []string{ColCO2, ColTemperature, ColHumidity}
}

func (s *scdSensor) Enable() error {
	return s.lock.Do(context.Background(), s.dev.Start)
}

func (s *scdSensor) Disable() error {
	return s.lock.Do(context.Background(), s.dev.Stop)
}

func (s *scdSensor) Halt() error { return s.dev.Halt() }

func (s *scdSensor) Scan(ctx context.Context) (Sample, error) {
	var env scd30.Env
	if err := s.lock.Do(ctx, func() error { return s.dev.Sense(ctx, &env) }); err != nil {
		return NaNSample(s.Columns()), err
	}
	return Sample{
		ColCO2:         float64(env.CO2),
		ColTemperature: env.Temperature.Celsius(),
		ColHumidity:    float64(env.Humidity) / float64(physic.PercentRH),
	}, nil
}

// TSL2591Device is the part of *tsl2591.Dev used by the beacon.
type TSL2591Device interface {
	Enable() error
	Disable() error
	Sense(ctx context.Context, env *tsl2591.Env) error
	Halt() error
}

type tslSensor struct {
	dev  TSL2591Device
	lock Locker
}

// NewTSL2591 wraps a light sensor.
func NewTSL2591(dev TSL2591Device, lock Locker) Sensor {
	return &tslSensor{dev: dev, lock: orNoLock(lock)}
}

func (s *tslSensor) Name() string { return NameTSL }

func (s *tslSensor) Columns() []string {
	return []string{ColVisible, ColInfrared, ColLux}
}

func (s *tslSensor) Enable() error {
	return s.lock.Do(context.Background(), s.dev.Enable)
}

func (s *tslSensor) Disable() error {
	return s.lock.Do(context.Background(), s.dev.Disable)
}

func (s *tslSensor) Halt() error { return s.dev.Halt() }

func (s *tslSensor) Scan(ctx context.Context) (Sample, error) {
	var env tsl2591.Env
	// The sensor must integrate once after Enable. Sense waits for it.
	if err := s.lock.Do(ctx, func() error { return s.dev.Sense(ctx, &env) }); err != nil {
		return NaNSample(s.Columns()), err
	}
	return Sample{
		ColVisible:  float64(env.Visible),
		ColInfrared: float64(env.Infrared),
		ColLux:      env.Lux,
	}, nil
}

// SGP30Device is the part of *sgp30.Dev used by the beacon.
type SGP30Device interface {
	AirQuality() sgp30.Env
	LastError() error
	Halt() error
}

type sgpSensor struct {
	dev SGP30Device
}

// NewSGP30 wraps a VOC sensor. The device measures in the background, Scan
// returns the cached value and needs no bus access.
func NewSGP30(dev SGP30Device) Sensor {
	return &sgpSensor{dev: dev}
}

func (s *sgpSensor) Name() string { return NameSGP }

func (s *sgpSensor) Columns() []string {
	return []string{ColTVOC, ColECO2}
}

func (s *sgpSensor) Halt() error { return s.dev.Halt() }

func (s *sgpSensor) Scan(ctx context.Context) (Sample, error) {
	if err := s.dev.LastError(); err != nil {
		return NaNSample(s.Columns()), err
	}
	env := s.dev.AirQuality()
	return Sample{
		ColTVOC: float64(env.TVOC),
		ColECO2: float64(env.CO2),
	}, nil
}

// DGSDevice is the part of *dgs.Dev used by the beacon.
type DGSDevice interface {
	Measure(ctx context.Context) (dgs.Reading, error)
	Close() error
}

type dgsSensor struct {
	dev     DGSDevice
	name    string
	columns []string
}

// NewDGSNO2 wraps a NO2 digital gas sensor.
func NewDGSNO2(dev DGSDevice) Sensor {
	return &dgsSensor{dev: dev, name: NameDGSNO2, columns: []string{ColNO2, ColTempNO2, ColRHNO2}}
}

// NewDGSCO wraps a CO digital gas sensor.
func NewDGSCO(dev DGSDevice) Sensor {
	return &dgsSensor{dev: dev, name: NameDGSCO, columns: []string{ColCO, ColTempCO, ColRHCO}}
}

func (s *dgsSensor) Name() string { return s.name }

func (s *dgsSensor) Columns() []string { return s.columns }

func (s *dgsSensor) Halt() error { return s.dev.Close() }

func (s *dgsSensor) Scan(ctx context.Context) (Sample, error) {
	r, err := s.dev.Measure(ctx)
	if err != nil {
		return NaNSample(s.columns), err
	}
	return Sample{
		s.columns[0]: r.PPB,
		s.columns[1]: r.Temperature,
		s.columns[2]: r.Humidity,
	}, nil
}

func orNoLock(l Locker) Locker {
	if l == nil {
		return noLock{}
	}
	return l
}
