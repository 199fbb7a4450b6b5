package main

import (
	"image/color"
	"testing"
	"time"
)

func TestIndicatorBounds(t *testing.T) {
	s := NewIndicators()
	clr := color.RGBA{0, 255, 0, 255}
	if err := s.Set(0, IndicatorSolid, clr, 0, 0); err != ErrBadIndicator {
		t.Errorf("id 0 should be rejected, got %v", err)
	}
	if err := s.Set(NUM_INDICATORS+1, IndicatorSolid, clr, 0, 0); err != ErrBadIndicator {
		t.Errorf("id %d should be rejected, got %v", NUM_INDICATORS+1, err)
	}
	if err := s.Clear(0); err != ErrBadIndicator {
		t.Errorf("clear of id 0 should be rejected, got %v", err)
	}
	for id := 1; id <= NUM_INDICATORS; id++ {
		if err := s.Set(id, IndicatorSolid, clr, 0, 0); err != nil {
			t.Errorf("id %d: %v", id, err)
		}
	}
}

func TestIndicatorPositions(t *testing.T) {
	s := NewIndicators()
	clr := color.RGBA{255, 0, 0, 255}
	for id := 1; id <= NUM_INDICATORS; id++ {
		if err := s.Set(id, IndicatorSolid, clr, 0, 0); err != nil {
			t.Fatal(err)
		}
	}
	frame := testFrame()
	s.Render(frame, time.Now())

	// Core pixels: top-left, top-right, bottom-right. Bottom-left stays free.
	checks := []struct {
		x, y int
		lit  bool
	}{
		{1, 1, true},
		{PANEL_WIDTH - 3, 1, true},
		{PANEL_WIDTH - 3, PANEL_HEIGHT - 3, true},
		{1, PANEL_HEIGHT - 3, false},
	}
	for _, c := range checks {
		px := frame.RGBAAt(c.x, c.y)
		lit := px.R != 0 || px.G != 0 || px.B != 0
		if lit != c.lit {
			t.Errorf("pixel (%d,%d): lit=%v, want %v", c.x, c.y, lit, c.lit)
		}
	}
}

func TestIndicatorBlinkToggles(t *testing.T) {
	s := NewIndicators()
	if err := s.Set(1, IndicatorBlink, color.RGBA{255, 0, 0, 255}, 100*time.Millisecond, 0); err != nil {
		t.Fatal(err)
	}
	if !s.Animated() {
		t.Fatal("blinking indicator must report animated")
	}

	t0 := time.Now()
	frame := testFrame()
	s.Render(frame, t0)
	onFirst := countLitPixels(frame, frame.Bounds()) > 0

	frame2 := testFrame()
	s.Render(frame2, t0.Add(150*time.Millisecond))
	onSecond := countLitPixels(frame2, frame2.Bounds()) > 0

	if onFirst == onSecond {
		t.Error("blink state should differ across the interval")
	}
}

func TestIndicatorFadeLevels(t *testing.T) {
	s := NewIndicators()
	if err := s.Set(1, IndicatorFade, color.RGBA{200, 200, 200, 255}, 0, time.Second); err != nil {
		t.Fatal(err)
	}
	t0 := time.Now()

	// Cycle start: cosine at zero, the core is dark.
	frame := testFrame()
	s.Render(frame, t0)
	dark := frame.RGBAAt(1, 1)

	// Half period: the fade peaks.
	frame2 := testFrame()
	s.Render(frame2, t0.Add(500*time.Millisecond))
	bright := frame2.RGBAAt(1, 1)

	if bright.R <= dark.R {
		t.Errorf("fade should peak mid-cycle: start %v, mid %v", dark, bright)
	}
}

func TestIndicatorClear(t *testing.T) {
	s := NewIndicators()
	if err := s.Set(2, IndicatorSolid, color.RGBA{0, 0, 255, 255}, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(2); err != nil {
		t.Fatal(err)
	}
	frame := testFrame()
	if s.Render(frame, time.Now()) {
		t.Error("cleared indicators should not animate")
	}
	if countLitPixels(frame, frame.Bounds()) != 0 {
		t.Error("cleared indicators should not draw")
	}
}
