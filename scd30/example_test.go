//go:build examples
// +build examples

// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/scd30"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()
	dev, err := scd30.NewI2C(bus, scd30.DefaultAddress, nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := dev.Start(); err != nil {
		log.Fatal(err)
	}
	defer dev.Halt()
	time.Sleep(2 * time.Second)

	env := scd30.Env{}
	if err := dev.Sense(context.Background(), &env); err != nil {
		log.Fatal(err)
	}
	fmt.Println(env.String())

	cfg, err := dev.GetConfiguration()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Configuration: %#v\n", cfg)
}
