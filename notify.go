package main

import (
	"image/color"
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	MAX_NOTIFICATIONS      = 10
	MAX_NOTIFICATION_TEXT  = 127
	DEFAULT_NOTIF_DURATION = 5 * time.Second
)

// Notification is a transient overlay that preempts app rotation.
type Notification struct {
	ID         string
	Text       string
	Icon       string
	Color      color.RGBA
	Background color.RGBA
	Duration   time.Duration // 0 = hold forever
	Hold       bool
	Urgent     bool
	Stack      bool
	Active     bool
	ShownAt    time.Time // zero until first render; starts the expiry clock
	seq        uint64
}

// NotifyQueue is the bounded notification queue. At most one entry is
// current at a time; selection prefers urgent-and-undisplayed entries, then
// the oldest undisplayed one.
type NotifyQueue struct {
	items   [MAX_NOTIFICATIONS]Notification
	count   int
	current int // slot index, -1 = none showing
	nextSeq uint64
}

func NewNotifyQueue() *NotifyQueue {
	return &NotifyQueue{current: -1}
}

// Enqueue adds a notification and returns its assigned id. With Stack off,
// every queued entry (including one currently showing) is replaced by the
// arrival.
func (q *NotifyQueue) Enqueue(n Notification) (string, error) {
	if !n.Stack {
		for i := range q.items {
			q.items[i].Active = false
		}
		q.count = 0
		q.current = -1
	}

	slot := -1
	for i := range q.items {
		if !q.items[i].Active {
			slot = i
			break
		}
	}
	if slot < 0 {
		log.Printf("[NOTIFY] queue full, rejecting notification")
		return "", ErrNotifyQueueFull
	}

	n.ID = uuid.NewString()
	n.Text = truncateBytes(n.Text, MAX_NOTIFICATION_TEXT)
	if n.Duration < 0 {
		n.Duration = DEFAULT_NOTIF_DURATION
	}
	if n.Duration == 0 {
		n.Hold = true
	}
	n.Active = true
	n.ShownAt = time.Time{}
	n.seq = q.nextSeq
	q.nextSeq++
	q.items[slot] = n
	q.count++
	log.Printf("[NOTIFY] queued notification %s (urgent=%v hold=%v)", n.ID, n.Urgent, n.Hold)
	return n.ID, nil
}

// Current returns the notification that owns the display, or nil.
func (q *NotifyQueue) Current() *Notification {
	if q.current >= 0 && q.items[q.current].Active {
		return &q.items[q.current]
	}
	return nil
}

// HasPending reports whether any entry is waiting for its first display.
func (q *NotifyQueue) HasPending() bool {
	for i := range q.items {
		if q.items[i].Active && q.items[i].ShownAt.IsZero() {
			return true
		}
	}
	return false
}

// List returns the active entries in arrival order.
func (q *NotifyQueue) List() []Notification {
	out := make([]Notification, 0, q.count)
	for i := range q.items {
		if q.items[i].Active {
			out = append(out, q.items[i])
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].seq < out[j-1].seq; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// selectNext marks the next candidate current and stamps its first-display
// time: urgent-and-undisplayed first, else the oldest undisplayed entry.
func (q *NotifyQueue) selectNext(now time.Time) *Notification {
	best := -1
	for i := range q.items {
		n := &q.items[i]
		if !n.Active || !n.ShownAt.IsZero() {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := &q.items[best]
		if n.Urgent != b.Urgent {
			if n.Urgent {
				best = i
			}
			continue
		}
		if n.seq < b.seq {
			best = i
		}
	}
	if best < 0 {
		q.current = -1
		return nil
	}
	q.current = best
	q.items[best].ShownAt = now
	log.Printf("[NOTIFY] showing notification %s", q.items[best].ID)
	return &q.items[best]
}

// expireCurrent dismisses the showing entry once its display time has
// elapsed. Hold entries never expire; dismissal is explicit for them.
func (q *NotifyQueue) expireCurrent(now time.Time) bool {
	n := q.Current()
	if n == nil {
		return false
	}
	if n.Hold || n.Duration <= 0 {
		return false
	}
	if now.Sub(n.ShownAt) < n.Duration {
		return false
	}
	q.dismiss(q.current)
	return true
}

// DismissCurrent removes the showing entry, if any.
func (q *NotifyQueue) DismissCurrent() bool {
	if q.current < 0 || !q.items[q.current].Active {
		return false
	}
	q.dismiss(q.current)
	return true
}

func (q *NotifyQueue) dismiss(idx int) {
	log.Printf("[NOTIFY] dismissed notification %s", q.items[idx].ID)
	q.items[idx].Active = false
	q.count--
	if q.current == idx {
		q.current = -1
	}
}

// Count returns the number of active entries.
func (q *NotifyQueue) Count() int { return q.count }
