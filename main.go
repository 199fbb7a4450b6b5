package main

import (
	"flag"
	"image"
	"image/color"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/image/font"
)

const (
	PANEL_WIDTH  = 64
	PANEL_HEIGHT = 64

	LOOP_DELAY = 10 * time.Millisecond

	DEFAULT_BRIGHTNESS = 128
	MIN_BRIGHTNESS     = 1
	MAX_BRIGHTNESS     = 255
)

var (
	COLOR_WHITE = color.RGBA{255, 255, 255, 255}
	COLOR_BLACK = color.RGBA{0, 0, 0, 255}
	COLOR_GRAY  = color.RGBA{100, 100, 100, 255}
	COLOR_RED   = color.RGBA{255, 60, 60, 255}
	COLOR_GREEN = color.RGBA{60, 255, 60, 255}
	COLOR_BLUE  = color.RGBA{100, 100, 255, 255}
)

// DisplaySink is what the engine drives: the drawing surface plus the
// brightness and snapshot controls the HTTP layer needs. FrameSink and
// MatrixSink both satisfy it.
type DisplaySink interface {
	PixelSink
	Snapshot() *image.RGBA
	SetBrightness(b uint8)
	Brightness() uint8
}

// Engine ties the scheduler, the compositor, the icon cache, the indicators
// and the sink together under a single mutex. The tick loop and the HTTP
// handlers run on different goroutines and only ever meet here.
type Engine struct {
	mu       sync.Mutex
	sched    *Scheduler
	queue    *NotifyQueue
	icons    *IconCache
	comp     *Compositor
	ind      *Indicators
	sink     DisplaySink
	settings *Settings
	stats    *Stats
}

func NewEngine(sink DisplaySink, settings *Settings, faces Faces) *Engine {
	queue := NewNotifyQueue()
	sched := NewScheduler(queue)
	sched.persist = func(items []AppItem) { saveApps(FS_APPS_FILE, items) }
	sched.SetRotation(settings.AutoRotate)
	sched.SetDefaultDuration(time.Duration(settings.DefaultDuration) * time.Millisecond)
	icons := NewIconCache(FS_ICONS_PATH)
	return &Engine{
		sched:    sched,
		queue:    queue,
		icons:    icons,
		comp:     NewCompositor(PANEL_WIDTH, PANEL_HEIGHT, icons, faces, settings),
		ind:      NewIndicators(),
		sink:     sink,
		settings: settings,
	}
}

// restore installs the system apps per settings and reloads the persisted
// custom apps. Called once at startup before the tick loop runs.
func (e *Engine) restore(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncSystemApps(now)
	for _, item := range loadApps(FS_APPS_FILE) {
		if err := e.sched.AddOrUpdate(item, now); err != nil {
			log.Printf("[APPS] restore skipped %s: %v", item.ID, err)
		}
	}
}

// syncSystemApps reconciles the clock and date apps with the settings.
// Caller holds the lock.
func (e *Engine) syncSystemApps(now time.Time) {
	if e.settings.Clock.Enabled {
		err := e.sched.AddOrUpdate(AppItem{
			ID:     "clock",
			System: true,
			Color:  e.settings.Clock.color(),
		}, now)
		if err != nil {
			log.Printf("[APPS] clock app: %v", err)
		}
	} else {
		e.sched.deactivate("clock")
	}
	if e.settings.Date.Enabled {
		err := e.sched.AddOrUpdate(AppItem{
			ID:     "date",
			System: true,
			Color:  e.settings.Date.color(),
		}, now)
		if err != nil {
			log.Printf("[APPS] date app: %v", err)
		}
	} else {
		e.sched.deactivate("date")
	}
}

// Tick runs one scheduling and render pass. RedrawNone with no animated
// indicator means the presented frame is still valid and nothing is drawn.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	plan := e.sched.Tick(now)
	if plan.Redraw == RedrawNone && !e.ind.Animated() {
		return
	}
	if plan.ScrollReset {
		e.comp.ResetAppScroll()
	}

	animated := e.renderOnce(plan, now)
	if plan.Redraw == RedrawFull {
		// Both buffers must carry the new content, or the next flip would
		// resurrect stale pixels from the previous item.
		animated = e.renderOnce(plan, now)
	}
	if !animated && !e.ind.Animated() {
		e.sched.NoteStatic()
	}
}

func (e *Engine) renderOnce(plan RenderPlan, now time.Time) bool {
	frame := e.sink.Back()
	clearFrame(frame, frame.Bounds().Dx(), frame.Bounds().Dy())

	var animated bool
	switch plan.Kind {
	case RenderApp:
		animated = e.comp.RenderApp(frame, plan.App, now)
	case RenderNotification:
		animated = e.comp.RenderNotification(frame, plan.Notification, now)
	default:
		animated = e.comp.RenderFallback(frame, now)
	}
	if e.ind.Render(frame, now) {
		animated = true
	}
	if err := e.sink.Present(); err != nil {
		log.Printf("[DISPLAY] present failed: %v", err)
	}
	return animated
}

// ButtonPress dismisses the showing notification, or advances rotation when
// none is showing.
func (e *Engine) ButtonPress(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queue.DismissCurrent() {
		log.Printf("[INPUT] button dismissed notification")
		e.sched.pendingFull = true
		e.sched.static = false
		return
	}
	e.sched.Advance(now)
}

// UpsertApp installs or updates a content item. Tracker apps fold the new
// value into the existing sample history instead of replacing it.
func (e *Engine) UpsertApp(item AppItem, trackerValue string, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if renderModeFor(item.ID) == ModeTracker {
		tracker := &TrackerData{}
		if idx := e.sched.find(item.ID); idx >= 0 && e.sched.apps[idx].Tracker != nil {
			tracker = e.sched.apps[idx].Tracker
		}
		tracker.RecordSample(trackerValue, now)
		item.Tracker = tracker
	}
	return e.sched.AddOrUpdate(item, now)
}

func (e *Engine) RemoveApp(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched.Remove(id)
}

func (e *Engine) Apps() []AppItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched.Apps()
}

func (e *Engine) Notify(n Notification) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Enqueue(n)
}

func (e *Engine) DismissNotification() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queue.DismissCurrent() {
		e.sched.pendingFull = true
		e.sched.static = false
		return true
	}
	return false
}

func (e *Engine) Notifications() []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.List()
}

func (e *Engine) SetIndicator(id int, mode IndicatorMode, clr color.RGBA, blink, fade time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ind.Set(id, mode, clr, blink, fade); err != nil {
		return err
	}
	e.sched.pendingFull = true
	e.sched.static = false
	return nil
}

func (e *Engine) ClearIndicator(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ind.Clear(id); err != nil {
		return err
	}
	e.sched.pendingFull = true
	e.sched.static = false
	return nil
}

func (e *Engine) SetBrightness(b int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b = clampInt(b, MIN_BRIGHTNESS, MAX_BRIGHTNESS)
	e.sink.SetBrightness(uint8(b))
	e.settings.Brightness = b
	saveSettings(FS_SETTINGS_FILE, *e.settings)
}

func (e *Engine) GetSettings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.settings
}

// ApplySettings installs a new settings blob, reconciles the system apps,
// and persists it.
func (e *Engine) ApplySettings(s Settings, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s.Brightness = clampInt(s.Brightness, MIN_BRIGHTNESS, MAX_BRIGHTNESS)
	if s.DefaultDuration <= 0 {
		s.DefaultDuration = int(DEFAULT_APP_DURATION / time.Millisecond)
	}
	*e.settings = s
	e.sink.SetBrightness(uint8(s.Brightness))
	e.sched.SetRotation(s.AutoRotate)
	e.sched.SetDefaultDuration(time.Duration(s.DefaultDuration) * time.Millisecond)
	e.syncSystemApps(now)
	e.sched.pendingFull = true
	e.sched.static = false
	saveSettings(FS_SETTINGS_FILE, s)
}

func (e *Engine) FrameSnapshot() *image.RGBA {
	return e.sink.Snapshot()
}

func loadFaces() Faces {
	load := func(name string) font.Face {
		face, _, err := getFontFace(name)
		if err != nil {
			log.Fatalf("[SYSTEM] font %s: %v", name, err)
		}
		return face
	}
	return Faces{
		Default: load("default"),
		Compact: load("compact"),
		Label:   load("label"),
		Clock:   load("clock"),
	}
}

func main() {
	log.Printf("[SYSTEM] pixelcast matrix display starting (panel %dx%d)", PANEL_WIDTH, PANEL_HEIGHT)

	hw := flag.Bool("hw", false, "drive the SPI matrix panel")
	spiDev := flag.String("spi", "SPI0.0", "SPI device for the panel")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	button := flag.String("button", "", "evdev input device name for the front button")
	flag.Parse()

	if err := os.MkdirAll(FS_ICONS_PATH, 0o755); err != nil {
		log.Fatalf("[SYSTEM] cannot create %s: %v", FS_ICONS_PATH, err)
	}

	settings := loadSettings(FS_SETTINGS_FILE)
	faces := loadFaces()

	var sink DisplaySink
	if *hw {
		m, err := NewMatrixSink(PANEL_WIDTH, PANEL_HEIGHT, *spiDev)
		if err != nil {
			log.Fatalf("[DISPLAY] %v", err)
		}
		sink = m
	} else {
		sink = NewFrameSink(PANEL_WIDTH, PANEL_HEIGHT)
	}
	sink.SetBrightness(uint8(settings.Brightness))

	engine := NewEngine(sink, &settings, faces)
	engine.restore(time.Now())

	stats := NewStats(settings.PingHost)
	engine.stats = stats
	go stats.Run()

	go httpServer(engine, *addr)
	if *button != "" {
		go monitorButton(engine, *button)
	}

	ticker := time.NewTicker(LOOP_DELAY)
	defer ticker.Stop()
	for now := range ticker.C {
		engine.Tick(now)
	}
}
