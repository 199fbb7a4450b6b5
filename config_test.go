package main

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	s := loadSettings(filepath.Join(t.TempDir(), "settings.json"))
	assert.Equal(t, defaultSettings(), s)
}

func TestLoadSettingsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"brightness": not json`), 0o644))
	s := loadSettings(path)
	assert.Equal(t, defaultSettings(), s)
}

func TestLoadSettingsBadValuesReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"brightness": 9000, "defaultDuration": -5}`), 0o644))
	s := loadSettings(path)
	assert.Equal(t, DEFAULT_BRIGHTNESS, s.Brightness)
	assert.Equal(t, int(DEFAULT_APP_DURATION/time.Millisecond), s.DefaultDuration)
}

func TestSettingsRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := defaultSettings()
	s.Brightness = 200
	s.AutoRotate = false
	s.Clock.Format24h = false
	s.Date.Format = "YYYY-MM-DD"
	saveSettings(path, s)

	got := loadSettings(path)
	assert.Equal(t, s, got)
}

func TestAppsRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.json")

	item := AppItem{
		ID:       "news",
		Text:     "headline",
		Segments: []Segment{{Offset: 4, Color: color.RGBA{255, 0, 0, 255}}},
		Icon:     "1234",
		Label:    "world",
		Color:    color.RGBA{0, 255, 0, 255},
		Duration: 8 * time.Second,
		Lifetime: time.Minute,
		Priority: 3,
	}
	multi := AppItem{
		ID:        "split",
		Text:      "top",
		Color:     COLOR_WHITE,
		Duration:  5 * time.Second,
		ZoneCount: 2,
	}
	multi.Zones[0] = Zone{Text: "bottom", Color: COLOR_BLUE}
	system := AppItem{ID: "clock", System: true}

	saveApps(path, []AppItem{item, multi, system})
	restored := loadApps(path)
	require.Len(t, restored, 2, "system apps are not persisted")

	got := restored[0]
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, item.Text, got.Text)
	assert.Equal(t, item.Segments, got.Segments)
	assert.Equal(t, item.Icon, got.Icon)
	assert.Equal(t, item.Color, got.Color)
	assert.Equal(t, item.Duration, got.Duration)
	assert.Equal(t, item.Lifetime, got.Lifetime)
	assert.Equal(t, item.Priority, got.Priority)

	gotMulti := restored[1]
	assert.Equal(t, 2, gotMulti.ZoneCount)
	assert.Equal(t, "bottom", gotMulti.Zones[0].Text)
	assert.Equal(t, COLOR_BLUE, gotMulti.Zones[0].Color)
}

func TestLoadAppsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":`), 0o644))
	assert.Empty(t, loadApps(path))
}

func TestLoadAppsSkipsEmptyIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "", "text": "x"}, {"id": "ok"}]`), 0o644))
	restored := loadApps(path)
	require.Len(t, restored, 1)
	assert.Equal(t, "ok", restored[0].ID)
}

func TestRGBFromArrayClamps(t *testing.T) {
	c := rgbFromArray([3]int{-20, 300, 128})
	assert.Equal(t, color.RGBA{0, 255, 128, 255}, c)
}
