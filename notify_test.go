package main

import (
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyEnqueueDefaults(t *testing.T) {
	q := NewNotifyQueue()

	id, err := q.Enqueue(Notification{Text: "hello", Duration: -1, Stack: true})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	list := q.List()
	require.Len(t, list, 1)
	assert.Equal(t, DEFAULT_NOTIF_DURATION, list[0].Duration)
	assert.False(t, list[0].Hold)

	// Zero duration means hold until dismissed.
	_, err = q.Enqueue(Notification{Text: "pinned", Duration: 0, Stack: true})
	require.NoError(t, err)
	list = q.List()
	require.Len(t, list, 2)
	assert.True(t, list[1].Hold)
}

func TestNotifyTextTruncated(t *testing.T) {
	q := NewNotifyQueue()
	long := strings.Repeat("x", 500)
	_, err := q.Enqueue(Notification{Text: long, Stack: true})
	require.NoError(t, err)
	got := q.List()[0].Text
	assert.LessOrEqual(t, len(got), MAX_NOTIFICATION_TEXT)
}

func TestNotifyQueueFull(t *testing.T) {
	q := NewNotifyQueue()
	for i := 0; i < MAX_NOTIFICATIONS; i++ {
		_, err := q.Enqueue(Notification{Text: "n", Stack: true})
		require.NoError(t, err)
	}
	_, err := q.Enqueue(Notification{Text: "overflow", Stack: true})
	assert.ErrorIs(t, err, ErrNotifyQueueFull)
}

func TestNotifyStackReplaces(t *testing.T) {
	q := NewNotifyQueue()
	now := time.Now()
	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(Notification{Text: "old", Stack: true})
		require.NoError(t, err)
	}
	require.NotNil(t, q.selectNext(now))

	// A non-stacking arrival replaces everything, the showing one included.
	_, err := q.Enqueue(Notification{Text: "new", Stack: false})
	require.NoError(t, err)
	list := q.List()
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].Text)
	assert.Nil(t, q.Current())
}

func TestNotifySelectionOrder(t *testing.T) {
	q := NewNotifyQueue()
	now := time.Now()

	_, err := q.Enqueue(Notification{Text: "first", Stack: true})
	require.NoError(t, err)
	_, err = q.Enqueue(Notification{Text: "second", Stack: true})
	require.NoError(t, err)
	_, err = q.Enqueue(Notification{Text: "urgent", Urgent: true, Stack: true})
	require.NoError(t, err)

	// Urgent jumps the line.
	n := q.selectNext(now)
	require.NotNil(t, n)
	assert.Equal(t, "urgent", n.Text)
	assert.False(t, n.ShownAt.IsZero())

	q.DismissCurrent()
	n = q.selectNext(now)
	require.NotNil(t, n)
	assert.Equal(t, "first", n.Text)

	q.DismissCurrent()
	n = q.selectNext(now)
	require.NotNil(t, n)
	assert.Equal(t, "second", n.Text)
}

func TestNotifyExpiry(t *testing.T) {
	q := NewNotifyQueue()
	now := time.Now()

	_, err := q.Enqueue(Notification{Text: "short", Duration: time.Second, Stack: true})
	require.NoError(t, err)
	n := q.selectNext(now)
	require.NotNil(t, n)

	assert.False(t, q.expireCurrent(now.Add(500*time.Millisecond)))
	assert.True(t, q.expireCurrent(now.Add(1100*time.Millisecond)))
	assert.Nil(t, q.Current())
}

func TestNotifyHoldNeverExpires(t *testing.T) {
	q := NewNotifyQueue()
	now := time.Now()
	_, err := q.Enqueue(Notification{Text: "pinned", Hold: true, Duration: time.Second, Stack: true})
	require.NoError(t, err)
	require.NotNil(t, q.selectNext(now))

	assert.False(t, q.expireCurrent(now.Add(time.Hour)))
	assert.True(t, q.DismissCurrent())
	assert.Nil(t, q.Current())
}

func TestNotifyDismissWithoutCurrent(t *testing.T) {
	q := NewNotifyQueue()
	assert.False(t, q.DismissCurrent())
}

func TestNotifyBackgroundColorKept(t *testing.T) {
	q := NewNotifyQueue()
	bg := color.RGBA{20, 0, 0, 255}
	_, err := q.Enqueue(Notification{Text: "alert", Background: bg, Stack: true})
	require.NoError(t, err)
	assert.Equal(t, bg, q.List()[0].Background)
}
