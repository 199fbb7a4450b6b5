package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"strconv"
	"time"

	svg "github.com/ajstarks/svgo"
	"github.com/gofiber/fiber/v2"
)

// colorValue accepts either "#RRGGBB" (hash optional) or [r,g,b] in JSON
// payloads, matching the wire formats the companion apps send.
type colorValue struct {
	c   color.RGBA
	set bool
}

func (v *colorValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if len(s) > 0 && s[0] == '#' {
			s = s[1:]
		}
		if len(s) != 6 {
			return fmt.Errorf("bad color string %q", s)
		}
		n, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return fmt.Errorf("bad color string %q", s)
		}
		v.c = color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}
		v.set = true
		return nil
	}
	var arr [3]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("color must be hex string or [r,g,b]")
	}
	v.c = rgbFromArray(arr)
	v.set = true
	return nil
}

func (v colorValue) or(def color.RGBA) color.RGBA {
	if v.set {
		return v.c
	}
	return def
}

type segmentPayload struct {
	Offset int        `json:"offset"`
	Color  colorValue `json:"color"`
}

func segmentsFromPayload(ps []segmentPayload) []Segment {
	if len(ps) == 0 {
		return nil
	}
	out := make([]Segment, 0, len(ps))
	for _, p := range ps {
		out = append(out, Segment{Offset: p.Offset, Color: p.Color.or(COLOR_WHITE)})
	}
	return out
}

type zonePayload struct {
	Text          string           `json:"text"`
	Segments      []segmentPayload `json:"segments"`
	Icon          string           `json:"icon"`
	Label         string           `json:"label"`
	LabelSegments []segmentPayload `json:"labelSegments"`
	Color         colorValue       `json:"color"`
}

type customPayload struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"` // legacy alias for id
	Text          string           `json:"text"`
	Segments      []segmentPayload `json:"segments"`
	Icon          string           `json:"icon"`
	Label         string           `json:"label"`
	LabelSegments []segmentPayload `json:"labelSegments"`
	Color         colorValue       `json:"color"`
	Duration      int              `json:"duration"` // ms
	Lifetime      int              `json:"lifetime"` // ms, 0 = permanent
	Priority      int              `json:"priority"`
	Value         string           `json:"value"` // tracker sample
	Zones         []zonePayload    `json:"zones"`
}

type notifyPayload struct {
	Text       string     `json:"text"`
	Icon       string     `json:"icon"`
	Color      colorValue `json:"color"`
	Background colorValue `json:"background"`
	Duration   int        `json:"duration"` // ms, 0 = hold
	Hold       bool       `json:"hold"`
	Urgent     bool       `json:"urgent"`
	Stack      bool       `json:"stack"`
}

type indicatorPayload struct {
	Color colorValue `json:"color"`
	Blink int        `json:"blink"` // ms
	Fade  int        `json:"fade"`  // ms
}

// httpServer runs the management API until the listener fails.
func httpServer(e *Engine, addr string) {
	app := newHTTPApp(e)
	log.Printf("[HTTP] management API listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Printf("[HTTP] server stopped: %v", err)
	}
}

// newHTTPApp builds the fiber app with all management routes. It never
// touches engine internals directly; every route goes through the locked
// Engine methods.
func newHTTPApp(e *Engine) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "pixelcast-matrix-display",
	})

	app.Get("/", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/html; charset=utf-8")
		return c.SendString(indexPage)
	})

	app.Get("/api/stats", func(c *fiber.Ctx) error {
		host, rtt, ok := e.stats.Ping()
		return c.JSON(fiber.Map{
			"uptime":        e.stats.Uptime(),
			"apps":          len(e.Apps()),
			"notifications": len(e.Notifications()),
			"brightness":    e.GetSettings().Brightness,
			"pingHost":      host,
			"pingMs":        rtt.Milliseconds(),
			"pingOk":        ok,
		})
	})

	app.Get("/api/settings", func(c *fiber.Ctx) error {
		return c.JSON(e.GetSettings())
	})

	app.Post("/api/settings", func(c *fiber.Ctx) error {
		s := e.GetSettings()
		if err := json.Unmarshal(c.Body(), &s); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		e.ApplySettings(s, time.Now())
		return c.JSON(e.GetSettings())
	})

	app.Post("/api/brightness", func(c *fiber.Ctx) error {
		var body struct {
			Brightness int `json:"brightness"`
		}
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		e.SetBrightness(body.Brightness)
		return c.JSON(fiber.Map{"brightness": e.GetSettings().Brightness})
	})

	app.Get("/api/apps", func(c *fiber.Ctx) error {
		items := e.Apps()
		records := make([]appRecord, 0, len(items))
		for _, item := range items {
			records = append(records, recordFromItem(item))
		}
		return c.JSON(records)
	})

	app.Post("/api/custom", func(c *fiber.Ctx) error {
		var p customPayload
		if err := json.Unmarshal(c.Body(), &p); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		id := p.ID
		if id == "" {
			id = p.Name
		}
		if id == "" {
			return fiber.NewError(fiber.StatusBadRequest, "id is required")
		}
		item := AppItem{
			ID:            id,
			Text:          transliterate(p.Text),
			Segments:      segmentsFromPayload(p.Segments),
			Icon:          p.Icon,
			Label:         p.Label,
			LabelSegments: segmentsFromPayload(p.LabelSegments),
			Color:         p.Color.or(COLOR_WHITE),
			Duration:      time.Duration(p.Duration) * time.Millisecond,
			Lifetime:      time.Duration(p.Lifetime) * time.Millisecond,
			Priority:      p.Priority,
		}
		if len(p.Zones) > 1 {
			item.ZoneCount = len(p.Zones)
			item.Text = transliterate(p.Zones[0].Text)
			item.Segments = segmentsFromPayload(p.Zones[0].Segments)
			item.Icon = p.Zones[0].Icon
			item.Label = p.Zones[0].Label
			item.LabelSegments = segmentsFromPayload(p.Zones[0].LabelSegments)
			item.Color = p.Zones[0].Color.or(item.Color)
			for i := 1; i < len(p.Zones) && i <= MAX_ZONES; i++ {
				z := p.Zones[i]
				item.Zones[i-1] = Zone{
					Text:          transliterate(z.Text),
					Segments:      segmentsFromPayload(z.Segments),
					Icon:          z.Icon,
					Label:         z.Label,
					LabelSegments: segmentsFromPayload(z.LabelSegments),
					Color:         z.Color.or(COLOR_WHITE),
				}
			}
		}
		if err := e.UpsertApp(item, p.Value, time.Now()); err != nil {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return c.JSON(fiber.Map{"id": id})
	})

	app.Delete("/api/custom", func(c *fiber.Ctx) error {
		name := c.Query("name")
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		if err := e.RemoveApp(name); err != nil {
			status := fiber.StatusNotFound
			if err == ErrSystemApp {
				status = fiber.StatusForbidden
			}
			return fiber.NewError(status, err.Error())
		}
		return c.JSON(fiber.Map{"removed": name})
	})

	app.Post("/api/notify", func(c *fiber.Ctx) error {
		var p notifyPayload
		if err := json.Unmarshal(c.Body(), &p); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		id, err := e.Notify(Notification{
			Text:       transliterate(p.Text),
			Icon:       p.Icon,
			Color:      p.Color.or(COLOR_WHITE),
			Background: p.Background.or(COLOR_BLACK),
			Duration:   time.Duration(p.Duration) * time.Millisecond,
			Hold:       p.Hold,
			Urgent:     p.Urgent,
			Stack:      p.Stack,
		})
		if err != nil {
			return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
		}
		return c.JSON(fiber.Map{"id": id})
	})

	app.Post("/api/dismiss", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"dismissed": e.DismissNotification()})
	})

	app.Get("/api/notifications", func(c *fiber.Ctx) error {
		list := e.Notifications()
		out := make([]fiber.Map, 0, len(list))
		for _, n := range list {
			out = append(out, fiber.Map{
				"id":     n.ID,
				"text":   n.Text,
				"urgent": n.Urgent,
				"hold":   n.Hold,
				"shown":  !n.ShownAt.IsZero(),
			})
		}
		return c.JSON(out)
	})

	app.Post("/api/indicator/:id", func(c *fiber.Ctx) error {
		id, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "bad indicator id")
		}
		var p indicatorPayload
		if err := json.Unmarshal(c.Body(), &p); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		mode := IndicatorSolid
		if p.Blink > 0 {
			mode = IndicatorBlink
		} else if p.Fade > 0 {
			mode = IndicatorFade
		}
		err = e.SetIndicator(id, mode, p.Color.or(COLOR_GREEN),
			time.Duration(p.Blink)*time.Millisecond,
			time.Duration(p.Fade)*time.Millisecond)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"indicator": id})
	})

	app.Delete("/api/indicator/:id", func(c *fiber.Ctx) error {
		id, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "bad indicator id")
		}
		if err := e.ClearIndicator(id); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"indicator": id})
	})

	app.Get("/frame", func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := png.Encode(&buf, e.FrameSnapshot()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set("Content-Type", "image/png")
		return c.Send(buf.Bytes())
	})

	app.Get("/preview.svg", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "image/svg+xml")
		return c.Send(renderPreviewSVG(e.FrameSnapshot()))
	})

	return app
}

// renderPreviewSVG draws the frame as a mosaic of round LEDs, the way the
// panel looks from across the room.
func renderPreviewSVG(frame *image.RGBA) []byte {
	const cell = 8
	b := frame.Bounds()
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(b.Dx()*cell, b.Dy()*cell)
	canvas.Rect(0, 0, b.Dx()*cell, b.Dy()*cell, "fill:#111")
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			px := frame.RGBAAt(b.Min.X+x, b.Min.Y+y)
			if px.R == 0 && px.G == 0 && px.B == 0 {
				continue
			}
			canvas.Circle(x*cell+cell/2, y*cell+cell/2, cell/2-1,
				fmt.Sprintf("fill:#%02x%02x%02x", px.R, px.G, px.B))
		}
	}
	canvas.End()
	return buf.Bytes()
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>pixelcast matrix display</title>
<style>body{background:#111;color:#ddd;font-family:monospace;padding:2em}
a{color:#6cf}</style></head>
<body>
<h2>pixelcast matrix display</h2>
<p><img src="/frame" width="256" height="256" style="image-rendering:pixelated"></p>
<ul>
<li><a href="/api/stats">/api/stats</a></li>
<li><a href="/api/apps">/api/apps</a></li>
<li><a href="/api/notifications">/api/notifications</a></li>
<li><a href="/api/settings">/api/settings</a></li>
<li><a href="/preview.svg">/preview.svg</a></li>
</ul>
<p>POST /api/custom, /api/notify, /api/brightness, /api/indicator/{1..3}</p>
</body>
</html>`
