// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package display

import (
	"context"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const data = "Timestamp,carbon_dioxide-ppm,pm2p5_mass-microgram_per_m3,carbon_monoxide-ppb,t_from_no2-c\n" +
	"2024-01-02 10:00:00,500,3,1000,20\n" +
	"2024-01-02 10:01:00,612.34,5.56,2460,21.5\n"

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFrameFor(t *testing.T) {
	data := []struct {
		r          Reading
		fahrenheit bool
		want       Frame
	}{
		{Reading{"carbon_dioxide-ppm", 612.3}, false, Frame{Title: "t", Value: "612.3", Unit: "ppm", Name: "Carbon Dioxide"}},
		{Reading{"carbon_monoxide-ppb", 2460}, false, Frame{Title: "t", Value: "2.5", Unit: "ppm", Name: "Carbon Monoxide"}},
		{Reading{"pm2p5_mass-microgram_per_m3", 5.6}, false, Frame{Title: "t", Value: "5.6", Unit: "ug/m", Exponent: "3", Name: "Particulate Matter"}},
		{Reading{"t_from_no2-c", 21.5}, false, Frame{Title: "t", Value: "21.5", Unit: "C", Degree: true, Name: "Temperature"}},
		{Reading{"t_from_no2-c", 20}, true, Frame{Title: "t", Value: "68.0", Unit: "F", Degree: true, Name: "Temperature"}},
		{Reading{"tvoc-ppb", math.NaN()}, false, Frame{Title: "t", Value: "-", Unit: "ppb", Name: "tvoc"}},
	}
	for i, line := range data {
		if diff := cmp.Diff(line.want, FrameFor("t", line.r, line.fahrenheit)); diff != "" {
			t.Errorf("#%d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestNames(t *testing.T) {
	for in, want := range map[string]string{"carbon_dioxide": "co2", "co": "co", "t_from_co": "temperature_c", "pm1_mass": "pm1_mass"} {
		if got := ShortName(in); got != want {
			t.Errorf("ShortName(%q)=%q want %q", in, got, want)
		}
	}
	if p, u := Split("pm2p5_mass-microgram_per_m3"); p != "pm2p5_mass" || u != "microgram_per_m3" {
		t.Errorf("Split()=%q, %q", p, u)
	}
}

func TestLoadCorrections(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "co2-2023.csv", "beacon,constant,coefficient\n7,10,2\n8,0,1\n")
	writeFile(t, dir, "co2-2024.csv", "beacon,constant,coefficient\n7,0,3\n")
	writeFile(t, dir, "notes.txt", "ignored")
	c, err := LoadCorrections(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Lookup("co2", 7).Apply(100); got != 210 {
		t.Errorf("Apply()=%g", got)
	}
	if got := c.Lookup("co", 7); got != Identity {
		t.Errorf("Lookup()=%v", got)
	}
	if got := c.Lookup("co2", 9); got != Identity {
		t.Errorf("Lookup()=%v", got)
	}
	writeFile(t, dir, "co-bad.csv", "beacon,constant\n7,1\n")
	if _, err := LoadCorrections(dir); err == nil {
		t.Error("expected error for a missing column")
	}
	if c, err := LoadCorrections(""); err != nil || len(c) != 0 {
		t.Errorf("LoadCorrections(\"\")=%v, %v", c, err)
	}
}

func TestLatest(t *testing.T) {
	dir, corrDir := t.TempDir(), t.TempDir()
	writeFile(t, dir, "b07_2024-01-02.csv", data)
	writeFile(t, corrDir, "co2-x.csv", "beacon,constant,coefficient\n7,-12.34,1\n")
	corr, err := LoadCorrections(corrDir)
	if err != nil {
		t.Fatal(err)
	}
	logger, hook := test.NewNullLogger()
	got, err := Latest(dir, append(DefaultColumns, "missing-x"), corr, logger)
	if err != nil {
		t.Fatal(err)
	}
	want := []Reading{
		{"carbon_dioxide-ppm", 600},
		{"pm2p5_mass-microgram_per_m3", 5.6},
		{"carbon_monoxide-ppb", 2460},
		{"t_from_no2-c", 21.5},
		{"missing-x", math.NaN()},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs(), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Latest() mismatch (-want +got):\n%s", diff)
	}
	if e := hook.LastEntry(); e == nil || e.Level != logrus.ErrorLevel || e.Data["column"] != "missing-x" {
		t.Errorf("unexpected log entry %v", e)
	}
}

func lit(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r >= 0x8000 {
				n++
			}
		}
	}
	return n
}

func TestRender(t *testing.T) {
	r := NewRenderer(BasicFonts())
	blank := r.Render(Frame{})
	if n := lit(blank); n != 0 {
		t.Fatalf("blank frame has %d lit pixels", n)
	}
	img := r.Render(FrameFor(DefaultTitle, Reading{"t_from_no2-c", 21.5}, false))
	if b := img.Bounds(); b.Dx() != 128 || b.Dy() != 64 {
		t.Fatalf("unexpected bounds %v", b)
	}
	if lit(img) == 0 {
		t.Fatal("nothing drawn")
	}
	s := &fakeScreen{}
	if err := Show(s, img); err != nil {
		t.Fatal(err)
	}
	if lit(s.frames[0]) == 0 {
		t.Error("converted frame is blank")
	}
}

func TestLoadFonts(t *testing.T) {
	f, err := LoadFonts("")
	if err != nil {
		t.Fatal(err)
	}
	if lit(NewRenderer(f).Render(ErrorFrame(DefaultTitle))) == 0 {
		t.Fatal("nothing drawn")
	}
	if _, err := LoadFonts(filepath.Join(t.TempDir(), "missing.ttf")); err == nil {
		t.Error("expected error")
	}
}

func TestRotator(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b07_2024-01-02.csv", data)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &fakeScreen{after: 6, cancel: cancel}
	logger, _ := test.NewNullLogger()
	r := &Rotator{
		Screen:   s,
		Renderer: NewRenderer(BasicFonts()),
		DataDir:  dir,
		Hold:     time.Millisecond,
		Log:      logger,
	}
	if err := r.Run(ctx); err != context.Canceled {
		t.Fatalf("Run()=%v", err)
	}
	if len(s.frames) != 6 {
		t.Fatalf("got %d frames", len(s.frames))
	}
}

func TestRotatorError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &fakeScreen{after: 2, cancel: cancel}
	logger, hook := test.NewNullLogger()
	r := &Rotator{
		Screen:   s,
		Renderer: NewRenderer(BasicFonts()),
		DataDir:  t.TempDir(),
		Hold:     time.Millisecond,
		Log:      logger,
	}
	if err := r.Run(ctx); err != context.Canceled {
		t.Fatalf("Run()=%v", err)
	}
	if len(s.frames) != 2 {
		t.Fatalf("got %d frames", len(s.frames))
	}
	if n := len(hook.AllEntries()); n == 0 {
		t.Error("expected errors to be logged")
	}
	if err := (&Rotator{}).Run(ctx); err != errNoScreen {
		t.Errorf("Run()=%v", err)
	}
}

func TestRotatorNoLogger(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b07_2024-01-02.csv", data)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &fakeScreen{after: 2, cancel: cancel}
	r := &Rotator{
		Screen:   s,
		Renderer: NewRenderer(BasicFonts()),
		DataDir:  dir,
		Columns:  []string{"carbon_dioxide-ppm", "unknown"},
		Hold:     time.Millisecond,
	}
	if err := r.Run(ctx); err != context.Canceled {
		t.Fatalf("Run()=%v", err)
	}
	if _, err := Latest(t.TempDir(), DefaultColumns, nil, nil); err == nil {
		t.Error("expected an error for an empty directory")
	}
}

type fakeScreen struct {
	frames []image.Image
	after  int
	cancel func()
}

func (f *fakeScreen) String() string          { return "fake" }
func (f *fakeScreen) Halt() error             { return nil }
func (f *fakeScreen) ColorModel() color.Model { return image1bit.BitModel }
func (f *fakeScreen) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 64) }

func (f *fakeScreen) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	img := image1bit.NewVerticalLSB(r)
	copy(img.Pix, src.(*image1bit.VerticalLSB).Pix)
	f.frames = append(f.frames, img)
	if len(f.frames) == f.after {
		f.cancel()
	}
	return nil
}
