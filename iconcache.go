package main

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	MAX_ICON_CACHE     = 8
	MAX_ICON_DIMENSION = 32
	MAX_ICON_SIZE      = 8192 // bytes per downloaded icon file

	ICON_FETCH_RETRY_DELAY = 5 * time.Minute
	ICON_BLACKLIST_SIZE    = 8

	LAMETRIC_ICON_URL  = "https://developer.lametric.com/content/apps/icon_thumbs/"
	ICON_FETCH_TIMEOUT = 3 * time.Second
)

// CachedIcon is one cache slot. The decoded buffer is owned by the slot and
// dropped on eviction; alpha zero marks transparent pixels.
type CachedIcon struct {
	name     string
	img      *image.RGBA
	valid    bool
	lastUsed time.Time
}

type fetchFailure struct {
	name string
	at   time.Time
}

// IconCache decodes and stores small raster icons by name, with LRU
// eviction over a fixed slot table. Missing icons whose name matches the
// remote naming convention (all digits, LaMetric icon ids) are downloaded
// on demand; failures are blacklisted for a cooldown window so a missing
// icon cannot trigger a per-tick retry storm.
type IconCache struct {
	slots [MAX_ICON_CACHE]CachedIcon

	blacklist [ICON_BLACKLIST_SIZE]fetchFailure
	blackNext int

	dir   string
	fetch func(name string) error // set in tests; defaults to fetchRemoteIcon
	now   func() time.Time
}

func NewIconCache(dir string) *IconCache {
	c := &IconCache{dir: dir, now: time.Now}
	c.fetch = func(name string) error { return fetchRemoteIcon(dir, name) }
	return c
}

// Get returns the decoded bitmap for name, or nil when the icon cannot be
// resolved. A nil result is not an error: the compositor falls back to a
// text-only layout.
func (c *IconCache) Get(name string) *image.RGBA {
	if name == "" || !safeIconName(name) {
		return nil
	}
	for i := range c.slots {
		if c.slots[i].valid && c.slots[i].name == name {
			c.slots[i].lastUsed = c.now()
			return c.slots[i].img
		}
	}

	img, err := c.decodeStored(name)
	if err != nil {
		if !isRemoteIconName(name) {
			return nil
		}
		if c.blacklisted(name) {
			return nil
		}
		if ferr := c.fetch(name); ferr != nil {
			log.Printf("[ICONS] remote fetch of %s failed: %v", name, ferr)
			c.recordFailure(name)
			return nil
		}
		img, err = c.decodeStored(name)
		if err != nil {
			log.Printf("[ICONS] decode of fetched %s failed: %v", name, err)
			c.recordFailure(name)
			return nil
		}
	}

	slot := c.findSlot()
	slot.name = name
	slot.img = img
	slot.valid = true
	slot.lastUsed = c.now()
	return img
}

// Invalidate drops any cache entry for name. Used when the underlying icon
// file is replaced or deleted; idempotent when the name is not cached.
func (c *IconCache) Invalidate(name string) {
	for i := range c.slots {
		if c.slots[i].valid && c.slots[i].name == name {
			c.slots[i].img = nil
			c.slots[i].valid = false
			c.slots[i].name = ""
		}
	}
}

// findSlot returns the first invalid slot, or evicts the entry with the
// oldest last-used timestamp. The evicted buffer is released before reuse.
func (c *IconCache) findSlot() *CachedIcon {
	for i := range c.slots {
		if !c.slots[i].valid {
			return &c.slots[i]
		}
	}
	oldest := 0
	for i := 1; i < len(c.slots); i++ {
		if c.slots[i].lastUsed.Before(c.slots[oldest].lastUsed) {
			oldest = i
		}
	}
	c.slots[oldest].img = nil
	c.slots[oldest].valid = false
	return &c.slots[oldest]
}

func (c *IconCache) blacklisted(name string) bool {
	cutoff := c.now().Add(-ICON_FETCH_RETRY_DELAY)
	for i := range c.blacklist {
		if c.blacklist[i].name == name && c.blacklist[i].at.After(cutoff) {
			return true
		}
	}
	return false
}

// recordFailure appends to the fixed ring, displacing the oldest entry when
// the ring is full.
func (c *IconCache) recordFailure(name string) {
	c.blacklist[c.blackNext] = fetchFailure{name: name, at: c.now()}
	c.blackNext = (c.blackNext + 1) % ICON_BLACKLIST_SIZE
}

// decodeStored looks for name with any supported extension inside the icon
// store directory and decodes it, clamped to MAX_ICON_DIMENSION.
func (c *IconCache) decodeStored(name string) (*image.RGBA, error) {
	exts := []string{".png", ".gif", ".jpg", ".jpeg", ".svg"}
	if filepath.Ext(name) != "" {
		exts = []string{""}
	}
	var lastErr error
	for _, ext := range exts {
		path := filepath.Join(c.dir, name+ext)
		if _, err := os.Stat(path); err != nil {
			lastErr = err
			continue
		}
		img, err := decodeIconFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		return clampIcon(img), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("icon %s not in store", name)
	}
	return nil, lastErr
}

// decodeIconFile decodes one icon file by extension: raster formats via
// image/*, svg via oksvg+rasterx.
func decodeIconFile(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		img, err = png.Decode(f)
	case ".gif":
		img, err = gif.Decode(f)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	case ".svg":
		return decodeSVGIcon(f)
	default:
		return nil, fmt.Errorf("unsupported icon format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba, nil
}

func decodeSVGIcon(f *os.File) (*image.RGBA, error) {
	data := &bytes.Buffer{}
	if _, err := data.ReadFrom(f); err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data.Bytes()))
	if err != nil {
		return nil, err
	}
	w := int(icon.ViewBox.W)
	h := int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg icon has no intrinsic size")
	}
	if w > MAX_ICON_DIMENSION {
		w = MAX_ICON_DIMENSION
	}
	if h > MAX_ICON_DIMENSION {
		h = MAX_ICON_DIMENSION
	}
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)
	return rgba, nil
}

// clampIcon crops oversized bitmaps to the maximum icon dimension so one
// large upload cannot blow the cache memory budget.
func clampIcon(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	if b.Dx() <= MAX_ICON_DIMENSION && b.Dy() <= MAX_ICON_DIMENSION {
		return img
	}
	w := min(b.Dx(), MAX_ICON_DIMENSION)
	h := min(b.Dy(), MAX_ICON_DIMENSION)
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// safeIconName rejects names that would resolve outside the icon store
// directory. Icon names come straight from the management API.
func safeIconName(name string) bool {
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	return name != "." && name != ".."
}

// isRemoteIconName matches the LaMetric icon id convention: purely numeric
// names refer to the public icon gallery and may be fetched on demand.
func isRemoteIconName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// fetchRemoteIcon downloads a gallery icon into the icon store so the next
// decode attempt can open it. Uses the fiber client so the firmware carries
// a single HTTP stack.
func fetchRemoteIcon(dir, name string) error {
	agent := fiber.Get(LAMETRIC_ICON_URL + name)
	agent.Timeout(ICON_FETCH_TIMEOUT)
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return errs[0]
	}
	if status != fiber.StatusOK {
		return fmt.Errorf("icon server returned %d for %s", status, name)
	}
	if len(body) == 0 || len(body) > MAX_ICON_SIZE {
		return fmt.Errorf("icon %s has unusable size %d", name, len(body))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+".png"), body, 0o644)
}
