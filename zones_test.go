package main

import (
	"image"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/font/basicfont"
)

func TestSplitZones(t *testing.T) {
	tests := []struct {
		count int
		want  []image.Rectangle
	}{
		{1, []image.Rectangle{image.Rect(0, 0, 64, 64)}},
		{2, []image.Rectangle{
			image.Rect(0, 0, 64, 32),
			image.Rect(0, 32, 64, 64),
		}},
		{3, []image.Rectangle{
			image.Rect(0, 0, 64, 32),
			image.Rect(0, 32, 32, 64),
			image.Rect(32, 32, 64, 64),
		}},
		{4, []image.Rectangle{
			image.Rect(0, 0, 32, 32),
			image.Rect(32, 0, 64, 32),
			image.Rect(0, 32, 32, 64),
			image.Rect(32, 32, 64, 64),
		}},
		{7, []image.Rectangle{image.Rect(0, 0, 64, 64)}},
	}
	for _, tt := range tests {
		got := splitZones(64, 64, tt.count)
		if len(got) != len(tt.want) {
			t.Fatalf("count %d: got %d rects, want %d", tt.count, len(got), len(tt.want))
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("count %d rect %d: got %v, want %v", tt.count, i, got[i], tt.want[i])
			}
		}
	}
}

func TestSplitZonesCoverCanvas(t *testing.T) {
	for count := 2; count <= 4; count++ {
		area := 0
		for _, r := range splitZones(64, 64, count) {
			area += r.Dx() * r.Dy()
		}
		if area != 64*64 {
			t.Errorf("count %d: zones cover %d pixels, want %d", count, area, 64*64)
		}
	}
}

func TestRenderZonesTwoStacked(t *testing.T) {
	cp := testCompositor(nil)
	frame := testFrame()
	app := &AppItem{
		ID:        "multi",
		Text:      "TOP",
		Color:     COLOR_WHITE,
		ZoneCount: 2,
		Mode:      ModeCustom,
	}
	app.Zones[0] = Zone{Text: "BOT", Color: COLOR_GREEN}

	if cp.RenderApp(frame, app, time.Now()) {
		t.Error("zone layout should be static")
	}
	top := image.Rect(0, 0, PANEL_WIDTH, PANEL_HEIGHT/2)
	bottom := image.Rect(0, PANEL_HEIGHT/2, PANEL_WIDTH, PANEL_HEIGHT)
	if countLitPixels(frame, top) == 0 {
		t.Error("expected pixels in the top zone")
	}
	if countLitPixels(frame, bottom) == 0 {
		t.Error("expected pixels in the bottom zone")
	}
}

func TestRenderZonesQuadrants(t *testing.T) {
	cp := testCompositor(nil)
	frame := testFrame()
	app := &AppItem{
		ID:        "quad",
		Text:      "A",
		Color:     COLOR_WHITE,
		ZoneCount: 4,
		Mode:      ModeCustom,
	}
	app.Zones[0] = Zone{Text: "B", Color: COLOR_WHITE}
	app.Zones[1] = Zone{Text: "C", Color: COLOR_WHITE}
	app.Zones[2] = Zone{Text: "D", Color: COLOR_WHITE}

	cp.RenderApp(frame, app, time.Now())
	quads := splitZones(PANEL_WIDTH, PANEL_HEIGHT, 4)
	for i, q := range quads {
		if countLitPixels(frame, q) == 0 {
			t.Errorf("quadrant %d is empty", i)
		}
	}
}

func TestZoneFaceOverflowFallback(t *testing.T) {
	// Distinct face values so the pick is observable.
	compact := *basicfont.Face7x13
	settings := defaultSettings()
	faces := testFaces()
	faces.Compact = &compact
	cp := NewCompositor(PANEL_WIDTH, PANEL_HEIGHT, nil, faces, &settings)

	if cp.zoneFace("ok", 60) != cp.faces.Default {
		t.Error("short text should use the default face")
	}
	long := strings.Repeat("overflowing", 3)
	if cp.zoneFace(long, 30) != cp.faces.Compact {
		t.Error("overflowing text should drop to the compact face")
	}
}
