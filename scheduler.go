package main

import (
	"image/color"
	"log"
	"strings"
	"time"
)

const (
	MAX_APPS  = 16
	MAX_ZONES = 3

	MAX_APP_TEXT = 63
	MAX_SEGMENTS = 8

	DEFAULT_APP_DURATION = 10 * time.Second

	TRACKER_ID_PREFIX     = "tracker_"
	TRACKER_STALE_TIMEOUT = time.Hour
)

// Segment marks a color change inside a text string at a byte offset.
// Offset zero implicitly starts the first segment.
type Segment struct {
	Offset int
	Color  color.RGBA
}

// Zone is one sub-region of a multi-zone app, laid out independently.
type Zone struct {
	Text          string
	Segments      []Segment
	Icon          string
	Label         string
	LabelSegments []Segment
	Color         color.RGBA
}

// RenderMode tags how the compositor should draw an item. It is resolved
// once from the id when the item is created, not re-parsed per render.
type RenderMode int

const (
	ModeCustom RenderMode = iota
	ModeClock
	ModeDate
	ModeWeather
	ModeTracker
)

func renderModeFor(id string) RenderMode {
	switch {
	case id == "clock":
		return ModeClock
	case id == "date":
		return ModeDate
	case id == "weather":
		return ModeWeather
	case strings.HasPrefix(id, TRACKER_ID_PREFIX):
		return ModeTracker
	default:
		return ModeCustom
	}
}

// AppItem is one schedulable unit of display content.
type AppItem struct {
	ID            string
	Text          string
	Segments      []Segment
	Icon          string
	Label         string
	LabelSegments []Segment
	Color         color.RGBA
	Duration      time.Duration
	Lifetime      time.Duration // 0 = permanent
	Priority      int           // stored and clamped, not used for ordering
	ZoneCount     int           // 0/1 single layout, 2-4 multi-zone
	Zones         [MAX_ZONES]Zone
	Active        bool
	System        bool
	CreatedAt     time.Time
	Mode          RenderMode
	Tracker       *TrackerData
}

// RedrawMode tells the render loop how much of the frame must be repainted
// this tick.
type RedrawMode int

const (
	RedrawNone RedrawMode = iota
	RedrawPartial
	RedrawFull
)

// RenderKind selects the surface the compositor draws this tick.
type RenderKind int

const (
	RenderFallback RenderKind = iota
	RenderApp
	RenderNotification
)

// RenderPlan is the scheduler's per-tick output, consumed directly by the
// render loop.
type RenderPlan struct {
	Kind         RenderKind
	App          *AppItem
	Notification *Notification
	Redraw       RedrawMode
	ScrollReset  bool
}

// Scheduler owns the app rotation table and the notification queue. All
// state is held in the struct and touched only under the engine lock; there
// are no package-level tables.
type Scheduler struct {
	apps     [MAX_APPS]AppItem
	appCount int

	current    int // slot index, -1 = none
	lastSwitch time.Time

	rotationEnabled bool
	defaultDuration time.Duration

	queue *NotifyQueue

	savedIndex  int  // app slot remembered while a notification preempts
	pendingFull bool // force a full redraw on the next tick
	static      bool // current content rendered and known static

	persist func([]AppItem) // called after mutations of non-system items
}

func NewScheduler(queue *NotifyQueue) *Scheduler {
	return &Scheduler{
		current:         -1,
		savedIndex:      -1,
		rotationEnabled: true,
		defaultDuration: DEFAULT_APP_DURATION,
		queue:           queue,
	}
}

// AddOrUpdate installs item, overwriting the mutable fields of an existing
// active item with the same id, or taking the first free slot. Updated
// items get a fresh creation timestamp so their lifetime clock restarts.
func (s *Scheduler) AddOrUpdate(item AppItem, now time.Time) error {
	item.Text = truncateBytes(item.Text, MAX_APP_TEXT)
	if len(item.Segments) > MAX_SEGMENTS {
		item.Segments = item.Segments[:MAX_SEGMENTS]
	}
	if item.Duration <= 0 {
		item.Duration = s.defaultDuration
	}
	item.Priority = clampInt(item.Priority, -10, 10)
	if item.ZoneCount > MAX_ZONES+1 {
		item.ZoneCount = MAX_ZONES + 1
	}
	item.Mode = renderModeFor(item.ID)

	if idx := s.find(item.ID); idx >= 0 {
		app := &s.apps[idx]
		app.Text = item.Text
		app.Segments = item.Segments
		app.Icon = item.Icon
		app.Label = item.Label
		app.LabelSegments = item.LabelSegments
		app.Color = item.Color
		app.Duration = item.Duration
		app.Lifetime = item.Lifetime
		app.Priority = item.Priority
		app.ZoneCount = item.ZoneCount
		app.Zones = item.Zones
		if item.Tracker != nil {
			app.Tracker = item.Tracker
		}
		app.CreatedAt = now
		if idx == s.current {
			s.pendingFull = true
			s.static = false
		}
		log.Printf("[APPS] updated app: %s", item.ID)
		s.persistApps(app.System)
		return nil
	}

	slot := -1
	for i := range s.apps {
		if !s.apps[i].Active {
			slot = i
			break
		}
	}
	if slot < 0 {
		log.Printf("[APPS] no free slot for app: %s", item.ID)
		return ErrAppTableFull
	}

	item.Active = true
	item.CreatedAt = now
	s.apps[slot] = item
	s.appCount++
	s.static = false
	log.Printf("[APPS] added app: %s (slot %d, total %d)", item.ID, slot, s.appCount)
	s.persistApps(item.System)
	return nil
}

// Remove deactivates the app with the given id. System apps are protected.
func (s *Scheduler) Remove(id string) error {
	idx := s.find(id)
	if idx < 0 {
		return ErrAppNotFound
	}
	if s.apps[idx].System {
		log.Printf("[APPS] refusing to remove system app: %s", id)
		return ErrSystemApp
	}
	s.apps[idx].Active = false
	s.appCount--
	if s.current == idx {
		s.current = -1
		s.pendingFull = true
		s.static = false
	}
	log.Printf("[APPS] removed app: %s", id)
	s.persistApps(false)
	return nil
}

// deactivate drops an item bypassing the system guard. Used when settings
// disable a built-in app; never exposed through the management API.
func (s *Scheduler) deactivate(id string) {
	idx := s.find(id)
	if idx < 0 {
		return
	}
	s.apps[idx].Active = false
	s.appCount--
	if s.current == idx {
		s.current = -1
		s.pendingFull = true
		s.static = false
	}
}

func (s *Scheduler) find(id string) int {
	for i := range s.apps {
		if s.apps[i].Active && s.apps[i].ID == id {
			return i
		}
	}
	return -1
}

// Current returns the app being rotated, or nil.
func (s *Scheduler) Current() *AppItem {
	if s.current >= 0 && s.current < MAX_APPS && s.apps[s.current].Active {
		return &s.apps[s.current]
	}
	return nil
}

// Apps returns the active items in slot order.
func (s *Scheduler) Apps() []AppItem {
	out := make([]AppItem, 0, s.appCount)
	for i := range s.apps {
		if s.apps[i].Active {
			out = append(out, s.apps[i])
		}
	}
	return out
}

// AppCount returns the number of active items.
func (s *Scheduler) AppCount() int { return s.appCount }

// SetRotation enables or disables automatic advancement.
func (s *Scheduler) SetRotation(enabled bool) { s.rotationEnabled = enabled }

// SetDefaultDuration changes the duration applied to items created without
// one.
func (s *Scheduler) SetDefaultDuration(d time.Duration) {
	if d > 0 {
		s.defaultDuration = d
	}
}

// Advance forces rotation to the next active item, as if the current item's
// duration had elapsed. Used by the device button.
func (s *Scheduler) Advance(now time.Time) {
	if s.queue.Current() != nil {
		return // rotation is frozen while a notification shows
	}
	if s.advance(now) {
		s.pendingFull = true
	}
}

// expireStale deactivates items whose lifetime has elapsed and trackers
// that have gone stale. Runs before every rotation decision.
func (s *Scheduler) expireStale(now time.Time) {
	for i := range s.apps {
		app := &s.apps[i]
		if !app.Active {
			continue
		}
		expired := app.Lifetime > 0 && now.Sub(app.CreatedAt) > app.Lifetime
		if !expired && app.Mode == ModeTracker && app.Tracker != nil {
			expired = now.Sub(app.Tracker.UpdatedAt) > TRACKER_STALE_TIMEOUT
		}
		if !expired {
			continue
		}
		app.Active = false
		s.appCount--
		log.Printf("[APPS] app expired: %s", app.ID)
		if s.current == i {
			s.current = -1
			s.pendingFull = true
			s.static = false
		}
	}
}

// advance moves the rotation pointer round-robin: scan slots starting at
// (current+1) mod capacity, wrapping once; the first active slot wins.
// Fairness is independent of the priority field.
func (s *Scheduler) advance(now time.Time) bool {
	if s.appCount == 0 {
		s.current = -1
		return false
	}
	start := (s.current + 1) % MAX_APPS
	if s.current < 0 {
		start = 0
	}
	for i := 0; i < MAX_APPS; i++ {
		idx := (start + i) % MAX_APPS
		if s.apps[idx].Active {
			changed := idx != s.current
			s.current = idx
			s.lastSwitch = now
			return changed
		}
	}
	s.current = -1
	return false
}

// NoteStatic records that the current content was rendered and does not
// animate; subsequent ticks return RedrawNone until something changes.
func (s *Scheduler) NoteStatic() { s.static = true }

// Tick runs one scheduling decision: expiry sweep, then notification
// selection/expiry (which preempts rotation entirely), then rotation
// advancement. It returns the single content item that owns the display
// this tick together with the redraw decision.
func (s *Scheduler) Tick(now time.Time) RenderPlan {
	s.expireStale(now)

	showing := s.queue.Current()
	if showing == nil && s.queue.HasPending() {
		// A notification arrives: remember where rotation was.
		if s.savedIndex < 0 {
			s.savedIndex = s.current
		}
		showing = s.queue.selectNext(now)
		s.pendingFull = true
		s.static = false
	}

	if showing != nil {
		if s.queue.expireCurrent(now) {
			// Dismissed by elapsed time; try the next one immediately.
			// Whatever follows (next notification, restored app or the
			// fallback screen) must repaint over the expired pixels.
			showing = s.queue.selectNext(now)
			s.pendingFull = true
			s.static = false
		}
	}

	if showing != nil {
		plan := RenderPlan{Kind: RenderNotification, Notification: showing, Redraw: s.takeRedraw()}
		return plan
	}

	// Queue drained while an app index was remembered: restore it, reset
	// its scroll state and overwrite the residual notification pixels.
	scrollReset := false
	if s.savedIndex >= 0 {
		if s.apps[s.savedIndex].Active {
			s.current = s.savedIndex
			s.lastSwitch = now
		} else {
			s.current = -1
		}
		s.savedIndex = -1
		s.pendingFull = true
		s.static = false
		scrollReset = true
	}

	if s.Current() == nil {
		if s.advance(now) {
			s.pendingFull = true
			s.static = false
			scrollReset = true
		}
	} else if s.rotationEnabled && now.Sub(s.lastSwitch) >= s.apps[s.current].Duration {
		if s.advance(now) {
			s.pendingFull = true
			s.static = false
			scrollReset = true
		} else {
			// Single active item keeps the display, timer restarts.
			s.lastSwitch = now
		}
	}

	app := s.Current()
	plan := RenderPlan{Redraw: s.takeRedraw(), ScrollReset: scrollReset}
	if app != nil {
		plan.Kind = RenderApp
		plan.App = app
	} else {
		plan.Kind = RenderFallback
	}
	return plan
}

func (s *Scheduler) takeRedraw() RedrawMode {
	if s.pendingFull {
		s.pendingFull = false
		s.static = false
		return RedrawFull
	}
	if s.static {
		return RedrawNone
	}
	return RedrawPartial
}

func (s *Scheduler) persistApps(system bool) {
	if system || s.persist == nil {
		return
	}
	s.persist(s.Apps())
}

func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	b := []byte(s)[:n]
	// Do not cut a UTF-8 sequence in half.
	for len(b) > 0 && b[len(b)-1]&0xC0 == 0x80 {
		b = b[:len(b)-1]
	}
	return string(b)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
