package main

import "time"

// Scrolling constants. One pixel per SCROLL_SPEED while the scrolling phase
// is active, with a fixed pause at both ends of the travel.
const (
	SCROLL_SPEED  = 50 * time.Millisecond
	SCROLL_PAUSE  = 2000 * time.Millisecond
	SCROLL_MARGIN = 8
)

type scrollPhase int

const (
	scrollPauseStart scrollPhase = iota
	scrollScrolling
	scrollPauseEnd
)

// ScrollState drives the horizontal offset of one text surface. The app view
// and the notification view each own an instance; zones reuse the compact
// font instead of scrolling.
type ScrollState struct {
	offset     int
	phase      scrollPhase
	phaseAt    time.Time
	textWidth  int
	availWidth int
}

// Reset puts the surface back at the start of the cycle. The cached widths
// are cleared so the next Update re-measures unconditionally.
func (s *ScrollState) Reset() {
	s.offset = 0
	s.phase = scrollPauseStart
	s.phaseAt = time.Time{}
	s.textWidth = 0
	s.availWidth = 0
}

// NeedsScroll reports whether the last measured text exceeds its surface.
func (s *ScrollState) NeedsScroll() bool {
	return s.textWidth > s.availWidth
}

// Offset returns the current horizontal shift in pixels.
func (s *ScrollState) Offset() int {
	return s.offset
}

// Update advances the state machine and returns the offset to render with.
// Any change in text width or available width restarts the cycle at
// pause-start with offset zero.
func (s *ScrollState) Update(textWidth, availWidth int, now time.Time) int {
	if textWidth != s.textWidth || availWidth != s.availWidth {
		s.offset = 0
		s.phase = scrollPauseStart
		s.phaseAt = now
		s.textWidth = textWidth
		s.availWidth = availWidth
	}
	if s.phaseAt.IsZero() {
		s.phaseAt = now
	}
	if !s.NeedsScroll() {
		s.offset = 0
		return 0
	}

	limit := s.textWidth - s.availWidth + SCROLL_MARGIN

	switch s.phase {
	case scrollPauseStart:
		if now.Sub(s.phaseAt) >= SCROLL_PAUSE {
			s.phase = scrollScrolling
			s.phaseAt = now
		}
	case scrollScrolling:
		steps := int(now.Sub(s.phaseAt) / SCROLL_SPEED)
		if steps >= limit {
			s.offset = limit
			s.phase = scrollPauseEnd
			s.phaseAt = now
		} else {
			s.offset = steps
		}
	case scrollPauseEnd:
		if now.Sub(s.phaseAt) >= SCROLL_PAUSE {
			s.offset = 0
			s.phase = scrollPauseStart
			s.phaseAt = now
		}
	}
	return s.offset
}

// Animated reports whether the surface will move on upcoming ticks, which
// keeps the render loop from treating the frame as static.
func (s *ScrollState) Animated() bool {
	return s.NeedsScroll()
}
