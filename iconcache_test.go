package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestIcon(t *testing.T, dir, name string, size int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestIconCacheGetAndHit(t *testing.T) {
	dir := t.TempDir()
	writeTestIcon(t, dir, "sun.png", 8)
	c := NewIconCache(dir)

	img := c.Get("sun")
	require.NotNil(t, img)
	assert.Equal(t, 8, img.Bounds().Dx())

	// Second lookup hits the slot table, not the filesystem.
	require.NoError(t, os.Remove(filepath.Join(dir, "sun.png")))
	assert.NotNil(t, c.Get("sun"))
}

func TestIconCacheMissingIsNil(t *testing.T) {
	c := NewIconCache(t.TempDir())
	assert.Nil(t, c.Get("nope"))
	assert.Nil(t, c.Get(""))
}

func TestIconCacheRejectsPathTraversal(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "icons")
	require.NoError(t, os.Mkdir(dir, 0o755))
	// A decodable file outside the store must stay unreachable.
	writeTestIcon(t, root, "escape.png", 8)

	c := NewIconCache(dir)
	c.fetch = func(name string) error {
		t.Fatalf("unexpected fetch attempt for %q", name)
		return nil
	}

	for _, name := range []string{
		"../escape",
		"../escape.png",
		"..",
		".",
		"sub/escape",
		`..\escape`,
	} {
		assert.Nil(t, c.Get(name), "name %q must be rejected", name)
	}
}

func TestSafeIconName(t *testing.T) {
	assert.True(t, safeIconName("sun"))
	assert.True(t, safeIconName("1234"))
	assert.True(t, safeIconName("w_rain.png"))
	assert.False(t, safeIconName("../x"))
	assert.False(t, safeIconName("a/b"))
	assert.False(t, safeIconName(`a\b`))
	assert.False(t, safeIconName(".."))
	assert.False(t, safeIconName("."))
}

func TestIconCacheLRUEviction(t *testing.T) {
	dir := t.TempDir()
	c := NewIconCache(dir)
	clock := time.Now()
	c.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	for i := 0; i < MAX_ICON_CACHE; i++ {
		name := fmt.Sprintf("icon%d", i)
		writeTestIcon(t, dir, name+".png", 8)
		require.NotNil(t, c.Get(name))
	}

	// Touch icon0 so icon1 becomes the least recently used.
	require.NotNil(t, c.Get("icon0"))

	writeTestIcon(t, dir, "extra.png", 8)
	require.NotNil(t, c.Get("extra"))

	used := map[string]bool{}
	for i := range c.slots {
		if c.slots[i].valid {
			used[c.slots[i].name] = true
		}
	}
	assert.True(t, used["icon0"], "recently touched entry survived")
	assert.True(t, used["extra"])
	assert.False(t, used["icon1"], "LRU entry should have been evicted")
	assert.Len(t, used, MAX_ICON_CACHE)
}

func TestIconCacheInvalidate(t *testing.T) {
	dir := t.TempDir()
	writeTestIcon(t, dir, "sun.png", 8)
	c := NewIconCache(dir)
	require.NotNil(t, c.Get("sun"))

	c.Invalidate("sun")
	require.NoError(t, os.Remove(filepath.Join(dir, "sun.png")))
	assert.Nil(t, c.Get("sun"))

	// Idempotent for unknown names.
	c.Invalidate("never-cached")
}

func TestIconCacheRemoteFetch(t *testing.T) {
	dir := t.TempDir()
	c := NewIconCache(dir)
	fetches := 0
	c.fetch = func(name string) error {
		fetches++
		writeTestIcon(t, dir, name+".png", 8)
		return nil
	}

	require.NotNil(t, c.Get("1234"))
	assert.Equal(t, 1, fetches)

	// Cached now; no second fetch.
	require.NotNil(t, c.Get("1234"))
	assert.Equal(t, 1, fetches)
}

func TestIconCacheFetchBlacklistCooldown(t *testing.T) {
	c := NewIconCache(t.TempDir())
	clock := time.Now()
	c.now = func() time.Time { return clock }
	fetches := 0
	c.fetch = func(name string) error {
		fetches++
		return fmt.Errorf("gallery unreachable")
	}

	assert.Nil(t, c.Get("404"))
	require.Equal(t, 1, fetches)

	// Inside the cooldown window the name is not retried.
	clock = clock.Add(time.Minute)
	assert.Nil(t, c.Get("404"))
	assert.Equal(t, 1, fetches)

	// After the cooldown one retry is allowed.
	clock = clock.Add(ICON_FETCH_RETRY_DELAY)
	assert.Nil(t, c.Get("404"))
	assert.Equal(t, 2, fetches)
}

func TestIconCacheNonNumericNeverFetched(t *testing.T) {
	c := NewIconCache(t.TempDir())
	c.fetch = func(name string) error {
		t.Fatalf("unexpected fetch of %q", name)
		return nil
	}
	assert.Nil(t, c.Get("custom_icon"))
}

func TestIconCacheBlacklistRingDisplacement(t *testing.T) {
	c := NewIconCache(t.TempDir())
	clock := time.Now()
	c.now = func() time.Time { return clock }
	c.fetch = func(name string) error { return fmt.Errorf("down") }

	// Fill the ring past capacity; the first entry is displaced and becomes
	// fetchable again.
	for i := 0; i <= ICON_BLACKLIST_SIZE; i++ {
		c.Get(fmt.Sprintf("%d", 100+i))
	}
	assert.False(t, c.blacklisted("100"))
	assert.True(t, c.blacklisted(fmt.Sprintf("%d", 100+ICON_BLACKLIST_SIZE)))
}

func TestIconCacheClampsOversized(t *testing.T) {
	dir := t.TempDir()
	writeTestIcon(t, dir, "big.png", 64)
	c := NewIconCache(dir)
	img := c.Get("big")
	require.NotNil(t, img)
	assert.Equal(t, MAX_ICON_DIMENSION, img.Bounds().Dx())
	assert.Equal(t, MAX_ICON_DIMENSION, img.Bounds().Dy())
}

func TestIsRemoteIconName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"1234", true},
		{"7", true},
		{"", false},
		{"12a4", false},
		{"sun", false},
		{"w_rain", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRemoteIconName(tt.name), "name %q", tt.name)
	}
}
