package main

import (
	"image"
	"image/color"
	"math"
	"time"
)

const (
	NUM_INDICATORS        = 3
	INDICATOR_CORE_SIZE   = 3
	INDICATOR_BORDER_SIZE = 1
	INDICATOR_FOOTPRINT   = INDICATOR_CORE_SIZE + 2*INDICATOR_BORDER_SIZE

	INDICATOR_BLINK_INTERVAL = 500 * time.Millisecond
	INDICATOR_FADE_PERIOD    = 2000 * time.Millisecond
)

type IndicatorMode int

const (
	IndicatorOff IndicatorMode = iota
	IndicatorSolid
	IndicatorBlink
	IndicatorFade
)

// Indicator is one corner marker. Positions: 1 top-left, 2 top-right,
// 3 bottom-right.
type Indicator struct {
	Mode          IndicatorMode
	Color         color.RGBA
	BlinkInterval time.Duration
	FadePeriod    time.Duration

	toggled    bool
	lastToggle time.Time
	cycleStart time.Time
}

// Indicators holds the three corner overlays. They are presentation state
// only and are composited onto every frame after the content render.
type Indicators struct {
	ind [NUM_INDICATORS]Indicator
}

func NewIndicators() *Indicators {
	return &Indicators{}
}

// Set configures indicator id (1-based) with the given mode and timing.
// Zero timings fall back to the defaults.
func (s *Indicators) Set(id int, mode IndicatorMode, clr color.RGBA, blink, fade time.Duration) error {
	if id < 1 || id > NUM_INDICATORS {
		return ErrBadIndicator
	}
	if blink <= 0 {
		blink = INDICATOR_BLINK_INTERVAL
	}
	if fade <= 0 {
		fade = INDICATOR_FADE_PERIOD
	}
	s.ind[id-1] = Indicator{
		Mode:          mode,
		Color:         clr,
		BlinkInterval: blink,
		FadePeriod:    fade,
	}
	return nil
}

// Clear turns indicator id off.
func (s *Indicators) Clear(id int) error {
	if id < 1 || id > NUM_INDICATORS {
		return ErrBadIndicator
	}
	s.ind[id-1] = Indicator{}
	return nil
}

// Animated reports whether any indicator changes between frames, which
// forces re-rendering of otherwise static content.
func (s *Indicators) Animated() bool {
	for i := range s.ind {
		if s.ind[i].Mode == IndicatorBlink || s.ind[i].Mode == IndicatorFade {
			return true
		}
	}
	return false
}

// Render composites the active indicators onto the frame and reports
// whether any of them animates.
func (s *Indicators) Render(frame *image.RGBA, now time.Time) bool {
	w := frame.Bounds().Dx()
	h := frame.Bounds().Dy()
	positions := [NUM_INDICATORS]image.Point{
		{0, 0},
		{w - INDICATOR_FOOTPRINT, 0},
		{w - INDICATOR_FOOTPRINT, h - INDICATOR_FOOTPRINT},
	}

	animated := false
	for i := range s.ind {
		ind := &s.ind[i]
		if ind.Mode == IndicatorOff {
			continue
		}
		clr := ind.Color
		switch ind.Mode {
		case IndicatorBlink:
			animated = true
			if ind.lastToggle.IsZero() || now.Sub(ind.lastToggle) >= ind.BlinkInterval {
				ind.toggled = !ind.toggled
				ind.lastToggle = now
			}
			if !ind.toggled {
				continue
			}
		case IndicatorFade:
			animated = true
			if ind.cycleStart.IsZero() {
				ind.cycleStart = now
			}
			t := float64(now.Sub(ind.cycleStart)%ind.FadePeriod) / float64(ind.FadePeriod)
			level := 0.5 * (1 - math.Cos(2*math.Pi*t))
			clr = scaleColor(ind.Color, level)
		}
		drawIndicator(frame, positions[i], clr)
	}
	return animated
}

// drawIndicator paints the 1px black contour and the 3x3 core.
func drawIndicator(frame *image.RGBA, at image.Point, clr color.RGBA) {
	black := color.RGBA{0, 0, 0, 255}
	drawRect(frame, at.X, at.Y, INDICATOR_FOOTPRINT, INDICATOR_FOOTPRINT, black)
	drawRect(frame,
		at.X+INDICATOR_BORDER_SIZE, at.Y+INDICATOR_BORDER_SIZE,
		INDICATOR_CORE_SIZE, INDICATOR_CORE_SIZE, clr)
}

func scaleColor(c color.RGBA, level float64) color.RGBA {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	return color.RGBA{
		R: uint8(float64(c.R) * level),
		G: uint8(float64(c.G) * level),
		B: uint8(float64(c.B) * level),
		A: 255,
	}
}
