// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tsl2591

import (
	"errors"
	"fmt"
)

// ErrOverflow is returned when a channel saturated. Lower the gain or the
// integration time.
var ErrOverflow = errors.New("tsl2591: channel overflow")

// ErrDisabled is returned by Sense when the ADCs are not enabled.
var ErrDisabled = errors.New("tsl2591: device disabled")

// IDError is returned when the device identification register does not hold
// the TSL2591 value.
type IDError struct {
	ID byte
}

func (e *IDError) Error() string {
	return fmt.Sprintf("tsl2591: unexpected device id %#02x, want %#02x", e.ID, deviceID)
}

// ReadTimeoutError is returned when no valid conversion was signalled in time.
type ReadTimeoutError struct{}

func (e *ReadTimeoutError) Error() string {
	return "tsl2591: no valid conversion within twice the integration time"
}
