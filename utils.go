package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// FontConfig holds parameters for a font face.
type FontConfig struct {
	FontPath string
	FontSize float64
}

// Faces used by the compositor. The default face fits roughly six
// characters across the panel; the compact face is the overflow fallback
// for half-width zones.
var fonts = map[string]FontConfig{
	"default": {FontPath: "assets/fonts/pixelmix.ttf", FontSize: 8},
	"compact": {FontPath: "assets/fonts/pixelmix.ttf", FontSize: 6},
	"label":   {FontPath: "assets/fonts/pixelmix.ttf", FontSize: 6},
	"clock":   {FontPath: "assets/fonts/pixelmix_bold.ttf", FontSize: 14},
}

// getFontFace loads a face from the mapping.
func getFontFace(fontName string) (font.Face, int, error) {
	cfg, ok := fonts[fontName]
	if !ok {
		return nil, 0, fmt.Errorf("font %s not found in mapping", fontName)
	}
	fontBytes, err := os.ReadFile(cfg.FontPath)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading font file: %v", err)
	}
	ttfFont, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, 0, fmt.Errorf("error parsing font: %v", err)
	}
	face, err := opentype.NewFace(ttfFont, &opentype.FaceOptions{
		Size:    cfg.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, 0, err
	}
	metrics := face.Metrics()
	fontHeight := metrics.Ascent.Round() + metrics.Descent.Round()
	return face, fontHeight, nil
}

// measureText returns the pixel width of s in the given face.
func measureText(face font.Face, s string) int {
	return font.MeasureString(face, s).Round()
}

// Accented-character substitution. Pixel fonts on the panel carry ASCII
// plus the Latin-1 degree sign; everything else in this fixed table is
// flattened to its ASCII look-alike. This is a rendering convenience, not
// text encoding: unknown runes pass through untouched.
var translitTable = map[rune]string{
	'é': "e", 'è': "e", 'ê': "e", 'ë': "e",
	'à': "a", 'â': "a", 'ä': "a", 'á': "a",
	'ù': "u", 'û': "u", 'ü': "u",
	'ô': "o", 'ö': "o", 'ò': "o", 'ó': "o",
	'î': "i", 'ï': "i", 'í': "i",
	'ç': "c", 'ñ': "n",
	'É': "E", 'È': "E", 'Ê': "E",
	'À': "A", 'Â': "A", 'Ä': "A",
	'Ù': "U", 'Û': "U", 'Ü': "U",
	'Ô': "O", 'Ö': "O",
	'Î': "I", 'Ï': "I",
	'Ç': "C", 'Ñ': "N",
	'’': "'", '‘': "'", '“': "\"", '”': "\"",
	'–': "-", '—': "-",
}

// transliterate applies the substitution table to s.
func transliterate(s string) string {
	var b strings.Builder
	changed := false
	for _, r := range s {
		if sub, ok := translitTable[r]; ok {
			b.WriteString(sub)
			changed = true
		} else {
			b.WriteRune(r)
		}
	}
	if !changed {
		return s
	}
	return b.String()
}

const KEY_DEBOUNCE_TIME = 300 * time.Millisecond

// monitorButton watches the device push button: a press dismisses the
// current notification, or advances rotation when none is showing.
func monitorButton(e *Engine, deviceName string) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		log.Printf("[INPUT] ListDevicePaths error: %v", err)
		return
	}

	var devPath string
	for _, ip := range paths {
		if ip.Name == deviceName {
			devPath = ip.Path
			break
		}
	}
	if devPath == "" {
		log.Printf("[INPUT] no %q input device found, button disabled", deviceName)
		return
	}

	button, err := evdev.Open(devPath)
	if err != nil {
		log.Printf("[INPUT] Open(%s) error: %v", devPath, err)
		return
	}
	defer button.Ungrab()

	if err := button.Grab(); err != nil {
		log.Printf("[INPUT] warning: failed to grab device: %v", err)
	}
	name, _ := button.Name()
	log.Printf("[INPUT] using input device: %s (%s)", devPath, name)

	var lastPress time.Time
	for {
		ev, err := button.ReadOne()
		if err != nil {
			log.Printf("[INPUT] read error: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if ev.Type != evdev.EV_KEY || ev.Value != 1 {
			continue
		}
		now := time.Now()
		if now.Sub(lastPress) < KEY_DEBOUNCE_TIME {
			continue
		}
		lastPress = now
		e.ButtonPress(now)
	}
}
