// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package display

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Fonts are the faces of the frame lines.
type Fonts struct {
	Title font.Face
	Value font.Face
	Unit  font.Face
	Small font.Face
}

// BasicFonts uses the built in 7x13 bitmap face for every line.
func BasicFonts() Fonts {
	f := basicfont.Face7x13
	return Fonts{Title: f, Value: f, Unit: f, Small: f}
}

// LoadFonts parses a TrueType font file. An empty path selects Go Regular.
func LoadFonts(path string) (Fonts, error) {
	data := goregular.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Fonts{}, err
		}
		data = b
	}
	ttf, err := truetype.Parse(data)
	if err != nil {
		return Fonts{}, fmt.Errorf("display: %s: %w", path, err)
	}
	face := func(size float64) font.Face {
		return truetype.NewFace(ttf, &truetype.Options{Size: size, Hinting: font.HintingFull})
	}
	return Fonts{Title: face(12), Value: face(24), Unit: face(18), Small: face(8)}, nil
}

// Renderer draws frames.
type Renderer struct {
	W, H  int
	Fonts Fonts
}

// NewRenderer returns a 128x64 renderer.
func NewRenderer(f Fonts) *Renderer {
	return &Renderer{W: 128, H: 64, Fonts: f}
}

// Render draws f as white on black.
func (r *Renderer) Render(f Frame) image.Image {
	dc := gg.NewContext(r.W, r.H)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	text := func(face font.Face, s string, x, y float64) {
		if s == "" {
			return
		}
		dc.SetFontFace(face)
		dc.DrawStringAnchored(s, x, y, 0, 1)
	}
	text(r.Fonts.Title, f.Title, 2, 4)
	if f.Value == "" {
		text(r.Fonts.Unit, f.Unit, 40, 24)
	} else {
		text(r.Fonts.Value, f.Value, 5, 20)
		text(r.Fonts.Unit, f.Unit, 80, 24)
	}
	if f.Degree {
		dc.DrawCircle(76, 24, 2)
		dc.Stroke()
	}
	text(r.Fonts.Small, f.Exponent, 120, 20)
	text(r.Fonts.Title, f.Name, 2, 50)
	return dc.Image()
}

// Show converts img to one bit per pixel and draws it on dst.
func Show(dst display.Drawer, img image.Image) error {
	b := dst.Bounds()
	mono := image1bit.NewVerticalLSB(b)
	draw.Draw(mono, b, img, img.Bounds().Min, draw.Src)
	return dst.Draw(b, mono, image.Point{})
}
