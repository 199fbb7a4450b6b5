package main

import (
	"encoding/json"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Fixed persistence paths, mirroring the device filesystem layout.
const (
	FS_DATA_PATH     = "data"
	FS_ICONS_PATH    = "data/icons"
	FS_SETTINGS_FILE = "data/settings.json"
	FS_APPS_FILE     = "data/apps.json"
)

// ClockSettings configures the system clock app.
type ClockSettings struct {
	Enabled     bool   `json:"enabled"`
	Format24h   bool   `json:"format24h"`
	ShowSeconds bool   `json:"showSeconds"`
	Color       [3]int `json:"color"`
}

func (c ClockSettings) color() color.RGBA { return rgbFromArray(c.Color) }

// DateSettings configures the system date app.
type DateSettings struct {
	Enabled bool   `json:"enabled"`
	Format  string `json:"format"`
	Color   [3]int `json:"color"`
}

func (d DateSettings) color() color.RGBA { return rgbFromArray(d.Color) }

// Settings is the global configuration blob persisted as settings.json.
type Settings struct {
	Brightness      int           `json:"brightness"`
	AutoRotate      bool          `json:"autoRotate"`
	DefaultDuration int           `json:"defaultDuration"` // ms
	PingHost        string        `json:"pingHost"`
	Clock           ClockSettings `json:"clock"`
	Date            DateSettings  `json:"date"`
}

func defaultSettings() Settings {
	return Settings{
		Brightness:      DEFAULT_BRIGHTNESS,
		AutoRotate:      true,
		DefaultDuration: int(DEFAULT_APP_DURATION / time.Millisecond),
		PingHost:        "1.1.1.1",
		Clock: ClockSettings{
			Enabled:     true,
			Format24h:   true,
			ShowSeconds: true,
			Color:       [3]int{255, 255, 255},
		},
		Date: DateSettings{
			Enabled: true,
			Format:  "DD/MM/YYYY",
			Color:   [3]int{100, 100, 255},
		},
	}
}

// loadSettings reads the settings blob, falling back to defaults on any
// error. Malformed configuration is never fatal.
func loadSettings(path string) Settings {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[SETTINGS] %s not readable, using defaults: %v", path, err)
		return defaultSettings()
	}
	s := defaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		log.Printf("[SETTINGS] %s malformed, using defaults: %v", path, err)
		return defaultSettings()
	}
	if s.Brightness < MIN_BRIGHTNESS || s.Brightness > MAX_BRIGHTNESS {
		s.Brightness = DEFAULT_BRIGHTNESS
	}
	if s.DefaultDuration <= 0 {
		s.DefaultDuration = int(DEFAULT_APP_DURATION / time.Millisecond)
	}
	log.Printf("[SETTINGS] loaded %s (brightness=%d autoRotate=%v)", path, s.Brightness, s.AutoRotate)
	return s
}

// saveSettings writes the settings blob; fire and forget from the caller's
// point of view, errors only logged.
func saveSettings(path string, s Settings) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("[SETTINGS] mkdir failed: %v", err)
		return
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		log.Printf("[SETTINGS] marshal failed: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("[SETTINGS] write failed: %v", err)
	}
}

// Wire/file representation of app items: colors as RGB arrays, durations in
// milliseconds, matching the management API payloads.
type segmentRecord struct {
	Offset int    `json:"offset"`
	Color  [3]int `json:"color"`
}

type zoneRecord struct {
	Text          string          `json:"text,omitempty"`
	Segments      []segmentRecord `json:"segments,omitempty"`
	Icon          string          `json:"icon,omitempty"`
	Label         string          `json:"label,omitempty"`
	LabelSegments []segmentRecord `json:"labelSegments,omitempty"`
	Color         [3]int          `json:"color"`
}

type appRecord struct {
	ID            string          `json:"id"`
	Text          string          `json:"text"`
	Segments      []segmentRecord `json:"segments,omitempty"`
	Icon          string          `json:"icon,omitempty"`
	Label         string          `json:"label,omitempty"`
	LabelSegments []segmentRecord `json:"labelSegments,omitempty"`
	Color         [3]int          `json:"color"`
	Duration      int             `json:"duration"` // ms
	Lifetime      int             `json:"lifetime"` // ms, 0 = permanent
	Priority      int             `json:"priority"`
	ZoneCount     int             `json:"zoneCount,omitempty"`
	Zones         []zoneRecord    `json:"zones,omitempty"`
	Tracker       *TrackerData    `json:"tracker,omitempty"`
}

func (r appRecord) toItem() AppItem {
	item := AppItem{
		ID:            r.ID,
		Text:          r.Text,
		Segments:      segmentsFromRecords(r.Segments),
		Icon:          r.Icon,
		Label:         r.Label,
		LabelSegments: segmentsFromRecords(r.LabelSegments),
		Color:         rgbFromArray(r.Color),
		Duration:      time.Duration(r.Duration) * time.Millisecond,
		Lifetime:      time.Duration(r.Lifetime) * time.Millisecond,
		Priority:      r.Priority,
		ZoneCount:     r.ZoneCount,
		Tracker:       r.Tracker,
	}
	for i := 0; i < len(r.Zones) && i < MAX_ZONES; i++ {
		z := r.Zones[i]
		item.Zones[i] = Zone{
			Text:          z.Text,
			Segments:      segmentsFromRecords(z.Segments),
			Icon:          z.Icon,
			Label:         z.Label,
			LabelSegments: segmentsFromRecords(z.LabelSegments),
			Color:         rgbFromArray(z.Color),
		}
	}
	return item
}

func recordFromItem(item AppItem) appRecord {
	rec := appRecord{
		ID:            item.ID,
		Text:          item.Text,
		Segments:      recordsFromSegments(item.Segments),
		Icon:          item.Icon,
		Label:         item.Label,
		LabelSegments: recordsFromSegments(item.LabelSegments),
		Color:         arrayFromRGB(item.Color),
		Duration:      int(item.Duration / time.Millisecond),
		Lifetime:      int(item.Lifetime / time.Millisecond),
		Priority:      item.Priority,
		ZoneCount:     item.ZoneCount,
		Tracker:       item.Tracker,
	}
	if item.ZoneCount >= 2 {
		for i := 0; i < MAX_ZONES; i++ {
			z := item.Zones[i]
			rec.Zones = append(rec.Zones, zoneRecord{
				Text:          z.Text,
				Segments:      recordsFromSegments(z.Segments),
				Icon:          z.Icon,
				Label:         z.Label,
				LabelSegments: recordsFromSegments(z.LabelSegments),
				Color:         arrayFromRGB(z.Color),
			})
		}
	}
	return rec
}

// loadApps reads the persisted custom app table. Missing or malformed
// files yield an empty table.
func loadApps(path string) []AppItem {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var records []appRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("[APPS] %s malformed, ignoring: %v", path, err)
		return nil
	}
	items := make([]AppItem, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		items = append(items, r.toItem())
	}
	log.Printf("[APPS] restored %d apps from %s", len(items), path)
	return items
}

// saveApps persists the non-system items. Called by the scheduler after
// every mutating operation on custom apps.
func saveApps(path string, items []AppItem) {
	records := make([]appRecord, 0, len(items))
	for _, item := range items {
		if item.System {
			continue
		}
		records = append(records, recordFromItem(item))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("[APPS] mkdir failed: %v", err)
		return
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		log.Printf("[APPS] marshal failed: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("[APPS] write failed: %v", err)
	}
}

func segmentsFromRecords(recs []segmentRecord) []Segment {
	if len(recs) == 0 {
		return nil
	}
	out := make([]Segment, 0, len(recs))
	for _, r := range recs {
		out = append(out, Segment{Offset: r.Offset, Color: rgbFromArray(r.Color)})
	}
	return out
}

func recordsFromSegments(segs []Segment) []segmentRecord {
	if len(segs) == 0 {
		return nil
	}
	out := make([]segmentRecord, 0, len(segs))
	for _, s := range segs {
		out = append(out, segmentRecord{Offset: s.Offset, Color: arrayFromRGB(s.Color)})
	}
	return out
}

func rgbFromArray(a [3]int) color.RGBA {
	return color.RGBA{
		R: uint8(clampInt(a[0], 0, 255)),
		G: uint8(clampInt(a[1], 0, 255)),
		B: uint8(clampInt(a[2], 0, 255)),
		A: 255,
	}
}

func arrayFromRGB(c color.RGBA) [3]int {
	return [3]int{int(c.R), int(c.G), int(c.B)}
}
