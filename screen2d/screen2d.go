// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen2d implements a 2D display.Drawer that prints frames to the
// terminal using ANSI 256 color blocks.
//
// It stands in for the beacon OLED on a development machine.
package screen2d

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Opts is the size and palette of the emulated screen.
type Opts struct {
	W, H int
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
}

// Dev keeps the last frame and reprints it in place on every Draw.
type Dev struct {
	out     io.Writer
	palette *ansi256.Palette
	frame   *image.NRGBA
	buf     bytes.Buffer
	printed bool
}

// New prints to stdout, translating the escape codes on Windows.
func New(opts *Opts) *Dev {
	return NewWriter(colorable.NewColorableStdout(), opts)
}

// NewWriter prints to out.
func NewWriter(out io.Writer, opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	return &Dev{out: out, palette: p, frame: image.NewNRGBA(image.Rect(0, 0, opts.W, opts.H))}
}

func (d *Dev) String() string {
	b := d.frame.Bounds()
	return fmt.Sprintf("Screen2D{%dx%d}", b.Dx(), b.Dy())
}

// Halt implements conn.Resource. It restores the terminal colors.
func (d *Dev) Halt() error {
	_, err := io.WriteString(d.out, "\033[0m\n")
	return err
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.frame.Bounds()
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	draw.Draw(d.frame, r.Intersect(d.frame.Bounds()), src, sp, draw.Src)
	return d.print()
}

// Write accepts W*H RGB triplets, row by row.
func (d *Dev) Write(pixels []byte) (int, error) {
	b := d.frame.Bounds()
	if len(pixels) != 3*b.Dx()*b.Dy() {
		return 0, fmt.Errorf("screen2d: got %d bytes, want %d", len(pixels), 3*b.Dx()*b.Dy())
	}
	for i := 0; i < len(pixels)/3; i++ {
		d.frame.SetNRGBA(i%b.Dx(), i/b.Dx(), color.NRGBA{pixels[3*i], pixels[3*i+1], pixels[3*i+2], 255})
	}
	return len(pixels), d.print()
}

func (d *Dev) print() error {
	b := d.frame.Bounds()
	d.buf.Reset()
	if d.printed {
		fmt.Fprintf(&d.buf, "\033[%dA", b.Dy())
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		d.buf.WriteString("\r\033[0m")
		for x := b.Min.X; x < b.Max.X; x++ {
			d.buf.WriteString(d.palette.Block(d.frame.NRGBAAt(x, y)))
		}
		d.buf.WriteString("\033[0m\n")
	}
	d.printed = true
	_, err := d.buf.WriteTo(d.out)
	return err
}

var _ display.Drawer = &Dev{}
