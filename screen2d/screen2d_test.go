// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package screen2d

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func TestDraw(t *testing.T) {
	var out bytes.Buffer
	d := NewWriter(&out, &Opts{W: 4, H: 3})
	if s := d.String(); s != "Screen2D{4x3}" {
		t.Fatal(s)
	}
	img := image1bit.NewVerticalLSB(d.Bounds())
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	first := out.String()
	if n := strings.Count(first, "\n"); n != 3 {
		t.Fatalf("got %d lines", n)
	}
	draw.Draw(img, image.Rect(0, 0, 2, 1), &image.Uniform{image1bit.On}, image.Point{}, draw.Src)
	out.Reset()
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	second := out.String()
	if !strings.HasPrefix(second, "\033[3A") {
		t.Errorf("second frame does not rewind: %q", second)
	}
	if strings.TrimPrefix(second, "\033[3A") == first {
		t.Error("frame did not change")
	}
	if c := d.frame.NRGBAAt(0, 0); c.R != 255 {
		t.Errorf("pixel 0,0 is %v", c)
	}
	if c := d.frame.NRGBAAt(2, 0); c.R != 0 {
		t.Errorf("pixel 2,0 is %v", c)
	}
}

func TestWrite(t *testing.T) {
	var out bytes.Buffer
	d := NewWriter(&out, &Opts{W: 2, H: 1})
	if _, err := d.Write([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected length error")
	}
	if n, err := d.Write([]byte{255, 0, 0, 0, 0, 255}); err != nil || n != 6 {
		t.Fatal(n, err)
	}
	if c := d.frame.NRGBAAt(1, 0); c != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("pixel 1,0 is %v", c)
	}
	if d.ColorModel() != color.NRGBAModel {
		t.Fatal("unexpected color model")
	}
	out.Reset()
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "\033[0m\n" {
		t.Fatalf("%q", out.String())
	}
}
