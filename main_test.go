package main

import (
	"image"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEngine builds an engine on an in-memory sink with persistence
// detached, so tests never touch the data directory.
func newTestEngine(t *testing.T) (*Engine, *FrameSink) {
	t.Helper()
	settings := defaultSettings()
	sink := NewFrameSink(PANEL_WIDTH, PANEL_HEIGHT)
	e := NewEngine(sink, &settings, testFaces())
	e.sched.persist = nil
	e.stats = NewStats("127.0.0.1")
	return e, sink
}

// inTempDir points the relative data paths at a throwaway directory for
// tests that exercise persistence.
func inTempDir(t *testing.T) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestEngineTickFallback(t *testing.T) {
	e, sink := newTestEngine(t)
	e.Tick(time.Now())
	snap := sink.Snapshot()
	assert.Greater(t, countLitPixels(snap, snap.Bounds()), 0,
		"fallback clock should reach the presented frame")
}

func TestEngineStaticContentSkipsPresent(t *testing.T) {
	e, sink := newTestEngine(t)
	t0 := time.Now()
	require.NoError(t, e.UpsertApp(AppItem{ID: "a", Text: "Hi"}, "", t0))

	// First tick switches content (full redraw presents twice), second tick
	// renders partially and notes the frame static.
	e.Tick(t0.Add(10 * time.Millisecond))
	e.Tick(t0.Add(20 * time.Millisecond))

	before := sink.back
	e.Tick(t0.Add(30 * time.Millisecond))
	assert.Equal(t, before, sink.back, "static frame should not be re-presented")
}

func TestEngineFullRedrawPresentsTwice(t *testing.T) {
	e, sink := newTestEngine(t)
	t0 := time.Now()
	require.NoError(t, e.UpsertApp(AppItem{ID: "a", Text: "Hi"}, "", t0))

	before := sink.back
	e.Tick(t0.Add(10 * time.Millisecond))
	// Two presents flip the buffer index back to where it started.
	assert.Equal(t, before, sink.back)
	snap := sink.Snapshot()
	assert.Greater(t, countLitPixels(snap, snap.Bounds()), 0)
}

func TestEngineIndicatorInvalidatesStatic(t *testing.T) {
	e, sink := newTestEngine(t)
	t0 := time.Now()
	require.NoError(t, e.UpsertApp(AppItem{ID: "a", Text: "Hi"}, "", t0))
	e.Tick(t0.Add(10 * time.Millisecond))
	e.Tick(t0.Add(20 * time.Millisecond))

	require.NoError(t, e.SetIndicator(1, IndicatorSolid, COLOR_GREEN, 0, 0))
	before := sink.back
	e.Tick(t0.Add(30 * time.Millisecond))
	assert.Equal(t, before, sink.back, "indicator change forces a double present")
	snap := sink.Snapshot()
	assert.Greater(t, countLitPixels(snap, image.Rect(0, 0, INDICATOR_FOOTPRINT, INDICATOR_FOOTPRINT)), 0)
}

func TestEngineButtonPress(t *testing.T) {
	e, _ := newTestEngine(t)
	t0 := time.Now()
	require.NoError(t, e.UpsertApp(AppItem{ID: "a", Text: "one", Duration: time.Minute}, "", t0))
	require.NoError(t, e.UpsertApp(AppItem{ID: "b", Text: "two", Duration: time.Minute}, "", t0))
	e.Tick(t0)

	_, err := e.Notify(Notification{Text: "ping", Hold: true, Stack: true})
	require.NoError(t, err)
	e.Tick(t0.Add(10 * time.Millisecond))
	require.NotNil(t, e.queue.Current())

	// First press dismisses the overlay.
	e.ButtonPress(t0.Add(20 * time.Millisecond))
	assert.Nil(t, e.queue.Current())

	// Next press advances rotation.
	e.Tick(t0.Add(30 * time.Millisecond))
	current := e.sched.Current()
	require.NotNil(t, current)
	first := current.ID
	e.ButtonPress(t0.Add(40 * time.Millisecond))
	assert.NotEqual(t, first, e.sched.Current().ID)
}

func TestEngineTrackerHistoryAccumulates(t *testing.T) {
	e, _ := newTestEngine(t)
	t0 := time.Now()
	require.NoError(t, e.UpsertApp(AppItem{ID: "tracker_temp", Text: "20.5"}, "20.5", t0))
	require.NoError(t, e.UpsertApp(AppItem{ID: "tracker_temp", Text: "21.0"}, "21.0", t0.Add(time.Minute)))

	apps := e.Apps()
	require.Len(t, apps, 1)
	require.NotNil(t, apps[0].Tracker)
	assert.Equal(t, []float64{20.5, 21.0}, apps[0].Tracker.History)
	assert.Equal(t, "21.0", apps[0].Tracker.Value)
}

func TestEngineApplySettingsSystemApps(t *testing.T) {
	inTempDir(t)
	e, _ := newTestEngine(t)
	now := time.Now()

	s := e.GetSettings()
	s.Clock.Enabled = true
	s.Date.Enabled = false
	e.ApplySettings(s, now)

	ids := map[string]bool{}
	for _, app := range e.Apps() {
		ids[app.ID] = true
	}
	assert.True(t, ids["clock"])
	assert.False(t, ids["date"])

	s.Clock.Enabled = false
	e.ApplySettings(s, now)
	assert.Empty(t, e.Apps())
}

func TestEngineSetBrightness(t *testing.T) {
	inTempDir(t)
	e, sink := newTestEngine(t)
	e.SetBrightness(200)
	assert.Equal(t, uint8(200), sink.Brightness())
	assert.Equal(t, 200, e.GetSettings().Brightness)

	// Out-of-range values clamp instead of failing.
	e.SetBrightness(0)
	assert.Equal(t, uint8(MIN_BRIGHTNESS), sink.Brightness())
	e.SetBrightness(9000)
	assert.Equal(t, uint8(MAX_BRIGHTNESS), sink.Brightness())
}

func TestEngineRestore(t *testing.T) {
	inTempDir(t)
	saveApps(FS_APPS_FILE, []AppItem{{ID: "saved", Text: "back", Duration: time.Second}})

	e, _ := newTestEngine(t)
	e.restore(time.Now())

	ids := map[string]bool{}
	for _, app := range e.Apps() {
		ids[app.ID] = true
	}
	assert.True(t, ids["saved"], "persisted app should come back")
	assert.True(t, ids["clock"], "default settings enable the clock app")
	assert.True(t, ids["date"], "default settings enable the date app")
}
