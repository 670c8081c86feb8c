// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains the Sensirion word framing shared by the sps30,
// scd30 and sgp30 drivers: CRC8 calculation, CRC-checked 16 bit words and
// big-endian IEEE-754 floats split across two words.
package common

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrCRC is returned when a word received from the sensor does not match
	// its trailing CRC byte.
	ErrCRC = errors.New("crc mismatch")
	// ErrLength is returned when a response is not made of whole 3 byte
	// (word + CRC) groups.
	ErrLength = errors.New("invalid response length")
)

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. CRC bytes are used in sensors from TI and Sensirion.
//
// Polynomial 0x31, initialization 0xff, no reflection, no final xor.
func CRC8(bytes []byte) byte {
	var crc byte = 0xff
	for _, val := range bytes {
		crc ^= val
		for range 8 {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (byte)((crc << 1) ^ 0x31)
			}
		}
	}
	return crc
}

// PackWords converts the word values into the on the wire representation, each
// word MSB first and followed by its CRC.
func PackWords(words ...uint16) []byte {
	b := make([]byte, 0, len(words)*3)
	for _, w := range words {
		hi, lo := byte(w>>8), byte(w)
		b = append(b, hi, lo, CRC8([]byte{hi, lo}))
	}
	return b
}

// Words verifies the CRC of each 3 byte group in b and returns the decoded
// words.
func Words(b []byte) ([]uint16, error) {
	if len(b)%3 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrLength, len(b))
	}
	words := make([]uint16, len(b)/3)
	for ix := range words {
		grp := b[ix*3 : ix*3+3]
		if CRC8(grp[:2]) != grp[2] {
			return nil, fmt.Errorf("%w: word %d (%#02x %#02x crc %#02x)", ErrCRC, ix, grp[0], grp[1], grp[2])
		}
		words[ix] = uint16(grp[0])<<8 | uint16(grp[1])
	}
	return words, nil
}

// Float32s decodes b as a sequence of big-endian IEEE-754 floats, each spread
// over two CRC protected words: [b0 b1 crc b3 b4 crc].
func Float32s(b []byte) ([]float32, error) {
	if len(b)%6 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a float sequence", ErrLength, len(b))
	}
	words, err := Words(b)
	if err != nil {
		return nil, err
	}
	f := make([]float32, len(words)/2)
	for ix := range f {
		f[ix] = math.Float32frombits(uint32(words[ix*2])<<16 | uint32(words[ix*2+1]))
	}
	return f, nil
}

// Float32 decodes a single 6 byte float group.
func Float32(b []byte) (float32, error) {
	if len(b) != 6 {
		return 0, fmt.Errorf("%w: %d bytes, want 6", ErrLength, len(b))
	}
	f, err := Float32s(b)
	if err != nil {
		return 0, err
	}
	return f[0], nil
}

// PackFloat32 is the inverse of Float32s. It's mostly useful to build test
// recordings.
func PackFloat32(values ...float32) []byte {
	words := make([]uint16, 0, len(values)*2)
	for _, v := range values {
		bits := math.Float32bits(v)
		words = append(words, uint16(bits>>16), uint16(bits))
	}
	return PackWords(words...)
}
