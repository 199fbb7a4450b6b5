package main

import (
	"image"
	"image/color"
	"strconv"
	"time"

	"github.com/llgcode/draw2d/draw2dimg"
)

const MAX_SPARKLINE_POINTS = 24

// TrackerData is the payload of tracker_* apps: the latest value plus a
// short numeric history rendered as a sparkline. Trackers that stop
// receiving updates go stale and are expired by the scheduler sweep.
type TrackerData struct {
	Value     string    `json:"value"`
	History   []float64 `json:"history"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecordSample appends the numeric reading of value to the history,
// trimming it to the sparkline window, and refreshes the staleness clock.
func (t *TrackerData) RecordSample(value string, now time.Time) {
	t.Value = value
	t.UpdatedAt = now
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		t.History = append(t.History, v)
		if len(t.History) > MAX_SPARKLINE_POINTS {
			t.History = t.History[len(t.History)-MAX_SPARKLINE_POINTS:]
		}
	}
}

// renderTracker draws a tracker app: icon and current value on the upper
// half, sparkline across the lower half, optional label at the bottom.
func (cp *Compositor) renderTracker(frame *image.RGBA, app *AppItem, now time.Time) bool {
	value := app.Text
	var history []float64
	if app.Tracker != nil {
		if app.Tracker.Value != "" {
			value = app.Tracker.Value
		}
		history = app.Tracker.History
	}

	textX := 2
	if icon := cp.resolveIcon(app.Icon); icon != nil {
		icon = upscaleSmallIcon(icon)
		copyImageToImageAt(frame, icon, 2, 2)
		textX = 2 + icon.Bounds().Dx() + 2
	}
	drawText(frame, transliterate(value), textX, 4, cp.faces.Default, app.Color, false)

	graph := image.Rect(2, cp.height/2, cp.width-2, cp.height-2)
	if app.Label != "" {
		lh := faceHeight(cp.faces.Label)
		graph.Max.Y = cp.height - lh - 3
		cp.drawLabel(frame, frame.Bounds(), app.Label, app.LabelSegments, app.Color)
	}
	drawSparkline(frame, graph, history, app.Color)
	return false
}

// drawSparkline strokes the history as a polyline scaled into rect. Fewer
// than two samples render a flat midline placeholder.
func drawSparkline(frame *image.RGBA, rect image.Rectangle, history []float64, clr color.RGBA) {
	if rect.Dx() < 4 || rect.Dy() < 4 {
		return
	}
	if len(history) < 2 {
		mid := rect.Min.Y + rect.Dy()/2
		drawLine(frame, rect.Min.X, mid, rect.Max.X-1, mid, dimColor(clr))
		return
	}

	lo, hi := history[0], history[0]
	for _, v := range history {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	gc := draw2dimg.NewGraphicContext(frame)
	gc.SetStrokeColor(clr)
	gc.SetLineWidth(1)
	gc.BeginPath()
	step := float64(rect.Dx()-1) / float64(len(history)-1)
	for i, v := range history {
		x := float64(rect.Min.X) + float64(i)*step
		y := float64(rect.Max.Y-1) - (v-lo)/span*float64(rect.Dy()-1)
		if i == 0 {
			gc.MoveTo(x, y)
		} else {
			gc.LineTo(x, y)
		}
	}
	gc.Stroke()
}
