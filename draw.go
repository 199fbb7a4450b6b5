package main

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"time"

	"github.com/llgcode/draw2d/draw2dimg"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Faces bundles the fonts the compositor draws with. Injected so tests can
// run on basicfont without TTF assets on disk.
type Faces struct {
	Default font.Face
	Compact font.Face
	Label   font.Face
	Clock   font.Face
}

// Compositor lays out one content item (or notification) inside a target
// rectangle and emits pixels into the frame. It owns the two scroll
// surfaces and consults the icon cache for bitmaps.
type Compositor struct {
	width  int
	height int
	faces  Faces
	icons  *IconCache

	appScroll   ScrollState
	notifScroll ScrollState

	settings *Settings
}

func NewCompositor(width, height int, icons *IconCache, faces Faces, settings *Settings) *Compositor {
	return &Compositor{
		width:    width,
		height:   height,
		faces:    faces,
		icons:    icons,
		settings: settings,
	}
}

// ResetAppScroll restarts the app surface at the beginning of its cycle,
// used when rotation resumes after a notification.
func (cp *Compositor) ResetAppScroll() {
	cp.appScroll.Reset()
}

// itemContent is the face-agnostic payload both app zones and notifications
// reduce to before layout.
type itemContent struct {
	Text          string
	Segments      []Segment
	Icon          string
	Label         string
	LabelSegments []Segment
	Color         color.RGBA
}

// RenderApp draws the current app into the frame and reports whether the
// result animates (scrolling text, ticking clock).
func (cp *Compositor) RenderApp(frame *image.RGBA, app *AppItem, now time.Time) bool {
	switch app.Mode {
	case ModeClock:
		return cp.renderClock(frame, now)
	case ModeDate:
		cp.renderDate(frame, now)
		return false
	case ModeWeather:
		return cp.renderWeather(frame, app, now)
	case ModeTracker:
		return cp.renderTracker(frame, app, now)
	}

	if app.ZoneCount >= 2 {
		return cp.renderZones(frame, app, now)
	}
	return cp.renderItem(frame, frame.Bounds(), itemContent{
		Text:          app.Text,
		Segments:      app.Segments,
		Icon:          app.Icon,
		Label:         app.Label,
		LabelSegments: app.LabelSegments,
		Color:         app.Color,
	}, &cp.appScroll, now)
}

// RenderNotification draws the overlay: optional background wash, then the
// standard icon/text layout on the notification scroll surface.
func (cp *Compositor) RenderNotification(frame *image.RGBA, n *Notification, now time.Time) bool {
	if n.Background.A > 0 {
		drawRect(frame, 0, 0, cp.width, cp.height, n.Background)
	}
	return cp.renderItem(frame, frame.Bounds(), itemContent{
		Text:  n.Text,
		Icon:  n.Icon,
		Color: n.Color,
	}, &cp.notifScroll, now)
}

// renderItem is the shared single-region layout: icon centered on top (2x
// upscaled when 8x8 or smaller), text below it or vertically centered, and
// a dimmed label line at the bottom.
func (cp *Compositor) renderItem(frame *image.RGBA, rect image.Rectangle, it itemContent, scroll *ScrollState, now time.Time) bool {
	region := frame.SubImage(rect).(*image.RGBA)
	w := rect.Dx()
	h := rect.Dy()

	textTop := rect.Min.Y
	textHeight := h

	if icon := cp.resolveIcon(it.Icon); icon != nil {
		icon = upscaleSmallIcon(icon)
		iw := icon.Bounds().Dx()
		ih := icon.Bounds().Dy()
		copyImageToImageAt(region, icon, rect.Min.X+(w-iw)/2, rect.Min.Y+2)
		textTop = rect.Min.Y + 2 + ih
		textHeight = h - (2 + ih)
	}

	labelH := 0
	if it.Label != "" {
		labelH = faceHeight(cp.faces.Label) + 1
		cp.drawLabel(region, rect, it.Label, it.LabelSegments, it.Color)
		textHeight -= labelH
	}

	text := transliterate(it.Text)
	fh := faceHeight(cp.faces.Default)
	textY := textTop + (textHeight-fh)/2
	if textY < textTop {
		textY = textTop
	}

	avail := w - 4
	tw := measureText(cp.faces.Default, text)
	offset := 0
	if scroll != nil {
		offset = scroll.Update(tw, avail, now)
	}

	x := rect.Min.X + 2 - offset
	if tw <= avail {
		x = rect.Min.X + (w-tw)/2
	}
	cp.drawSegmentedText(region, text, it.Segments, it.Color, x, textY, cp.faces.Default)

	return scroll != nil && scroll.Animated()
}

// drawLabel draws the secondary line at the bottom of the region, dimmed
// unless explicit segment colors are supplied.
func (cp *Compositor) drawLabel(region *image.RGBA, rect image.Rectangle, label string, segs []Segment, base color.RGBA) {
	label = transliterate(label)
	clr := dimColor(base)
	if len(segs) > 0 {
		clr = base
	}
	lh := faceHeight(cp.faces.Label)
	lw := measureText(cp.faces.Label, label)
	x := rect.Min.X + (rect.Dx()-lw)/2
	if x < rect.Min.X+1 {
		x = rect.Min.X + 1
	}
	y := rect.Max.Y - lh - 1
	cp.drawSegmentedText(region, label, segs, clr, x, y, cp.faces.Label)
}

// drawSegmentedText draws text switching color at each segment's byte
// offset. Offset zero implicitly starts the first segment; text before the
// first recorded offset uses the base color.
func (cp *Compositor) drawSegmentedText(img *image.RGBA, text string, segs []Segment, base color.RGBA, x, y int, face font.Face) {
	type run struct {
		start int
		clr   color.RGBA
	}
	runs := []run{{0, base}}
	if len(segs) > 0 {
		ordered := make([]Segment, len(segs))
		copy(ordered, segs)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Offset < ordered[j].Offset })
		if ordered[0].Offset == 0 {
			runs = runs[:0]
		}
		for _, seg := range ordered {
			if seg.Offset < 0 || seg.Offset >= len(text) {
				continue
			}
			runs = append(runs, run{seg.Offset, seg.Color})
		}
		if len(runs) == 0 {
			runs = []run{{0, base}}
		}
	}

	d := &font.Drawer{Dst: img, Face: face}
	d.Dot = fixed.P(x, y+face.Metrics().Ascent.Round())
	for i, r := range runs {
		end := len(text)
		if i+1 < len(runs) {
			end = runs[i+1].start
		}
		if r.start >= end {
			continue
		}
		d.Src = image.NewUniform(r.clr)
		d.DrawString(text[r.start:end])
	}
}

// drawText draws a plain string and returns the finishing coordinates.
func drawText(img *image.RGBA, text string, posX, posY int, face font.Face, clr color.Color, center bool) (finishX, finishY int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: face,
	}
	metrics := face.Metrics()
	x := posX
	if center {
		x = posX - d.MeasureString(text).Round()/2
	}
	y := posY + metrics.Ascent.Round()
	d.Dot = fixed.P(x, y)
	d.DrawString(text)

	finishX = x + d.MeasureString(text).Round()
	finishY = posY + metrics.Ascent.Round() + metrics.Descent.Round()
	return
}

// renderClock draws the digital clock app per the clock settings.
func (cp *Compositor) renderClock(frame *image.RGBA, now time.Time) bool {
	st := cp.settings.Clock
	hours := now.Hour()
	suffix := ""
	if !st.Format24h {
		suffix = "AM"
		if hours >= 12 {
			suffix = "PM"
		}
		hours = hours % 12
		if hours == 0 {
			hours = 12
		}
	}
	var timeStr string
	if st.ShowSeconds {
		timeStr = fmt.Sprintf("%02d:%02d:%02d", hours, now.Minute(), now.Second())
	} else {
		timeStr = fmt.Sprintf("%02d:%02d", hours, now.Minute())
	}

	clr := st.color()
	fh := faceHeight(cp.faces.Clock)
	y := (cp.height - fh) / 2
	drawText(frame, timeStr, cp.width/2, y, cp.faces.Clock, clr, true)
	if suffix != "" {
		drawText(frame, suffix, cp.width/2, y+fh+1, cp.faces.Label, dimColor(clr), true)
	}
	return true
}

// renderDate draws the date app per the date settings.
func (cp *Compositor) renderDate(frame *image.RGBA, now time.Time) {
	st := cp.settings.Date
	var dateStr string
	switch st.Format {
	case "MM/DD/YYYY":
		dateStr = fmt.Sprintf("%02d/%02d/%04d", now.Month(), now.Day(), now.Year())
	case "YYYY-MM-DD":
		dateStr = now.Format("2006-01-02")
	default:
		dateStr = fmt.Sprintf("%02d/%02d/%04d", now.Day(), now.Month(), now.Year())
	}
	fh := faceHeight(cp.faces.Default)
	drawText(frame, dateStr, cp.width/2, (cp.height-fh)/2, cp.faces.Default, st.color(), true)
}

// renderWeather draws the weather app: built-in 8x8 art upscaled 2x, the
// temperature text below, and the optional condition label.
func (cp *Compositor) renderWeather(frame *image.RGBA, app *AppItem, now time.Time) bool {
	textTop := 2
	if icon := weatherIcon(app.Icon); icon != nil {
		scaled := scaleNearest(icon, 2)
		iw := scaled.Bounds().Dx()
		copyImageToImageAt(frame, scaled, (cp.width-iw)/2, 4)
		textTop = 4 + scaled.Bounds().Dy() + 2
	}
	text := transliterate(app.Text)
	drawText(frame, text, cp.width/2, textTop+2, cp.faces.Default, app.Color, true)
	if app.Label != "" {
		cp.drawLabel(frame, frame.Bounds(), app.Label, app.LabelSegments, app.Color)
	}
	return false
}

// RenderFallback draws the safe default when nothing is schedulable: an
// analog face with a digital readout underneath.
func (cp *Compositor) RenderFallback(frame *image.RGBA, now time.Time) bool {
	cx := float64(cp.width) / 2
	cy := float64(cp.height)/2 - 6
	r := cy - 2

	gc := draw2dimg.NewGraphicContext(frame)
	gc.SetStrokeColor(color.RGBA{90, 90, 90, 255})
	gc.SetLineWidth(1)
	gc.BeginPath()
	gc.ArcTo(cx, cy, r, r, 0, 2*math.Pi)
	gc.Stroke()

	drawClockHand(gc, cx, cy, r*0.5, hourAngle(now), color.RGBA{255, 255, 255, 255})
	drawClockHand(gc, cx, cy, r*0.75, minuteAngle(now), color.RGBA{255, 255, 255, 255})
	drawClockHand(gc, cx, cy, r*0.85, secondAngle(now), color.RGBA{226, 72, 38, 255})

	timeStr := fmt.Sprintf("%02d:%02d", now.Hour(), now.Minute())
	fh := faceHeight(cp.faces.Default)
	drawText(frame, timeStr, cp.width/2, cp.height-fh-1, cp.faces.Default, color.RGBA{255, 255, 255, 255}, true)
	return true
}

func drawClockHand(gc *draw2dimg.GraphicContext, cx, cy, length, angle float64, clr color.RGBA) {
	gc.SetStrokeColor(clr)
	gc.SetLineWidth(1)
	gc.BeginPath()
	gc.MoveTo(cx, cy)
	gc.LineTo(cx+length*math.Sin(angle), cy-length*math.Cos(angle))
	gc.Stroke()
}

func hourAngle(now time.Time) float64 {
	h := float64(now.Hour()%12) + float64(now.Minute())/60
	return h / 12 * 2 * math.Pi
}

func minuteAngle(now time.Time) float64 {
	m := float64(now.Minute()) + float64(now.Second())/60
	return m / 60 * 2 * math.Pi
}

func secondAngle(now time.Time) float64 {
	return float64(now.Second()) / 60 * 2 * math.Pi
}

// resolveIcon looks up an icon by name: built-in weather art first, then
// the cache (store + remote). A nil result falls back to text-only layout.
func (cp *Compositor) resolveIcon(name string) *image.RGBA {
	if name == "" {
		return nil
	}
	if img := weatherIcon(name); img != nil {
		return img
	}
	if cp.icons == nil {
		return nil
	}
	return cp.icons.Get(name)
}

// upscaleSmallIcon doubles tiny glyphs so 8x8 gallery art stays legible on
// the panel; larger bitmaps keep their native size.
func upscaleSmallIcon(icon *image.RGBA) *image.RGBA {
	b := icon.Bounds()
	if b.Dx() > 8 || b.Dy() > 8 {
		return icon
	}
	return scaleNearest(icon, 2)
}

// scaleNearest performs integer nearest-neighbor upscaling.
func scaleNearest(src *image.RGBA, factor int) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			px := src.RGBAAt(b.Min.X+x, b.Min.Y+y)
			if px.A == 0 {
				continue
			}
			for dy := 0; dy < factor; dy++ {
				for dx := 0; dx < factor; dx++ {
					out.SetRGBA(x*factor+dx, y*factor+dy, px)
				}
			}
		}
	}
	return out
}

func faceHeight(face font.Face) int {
	m := face.Metrics()
	return m.Ascent.Round() + m.Descent.Round()
}

func dimColor(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.R / 2, G: c.G / 2, B: c.B / 2, A: 255}
}
