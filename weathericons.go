package main

import (
	"image"
	"image/color"
)

// Built-in 8x8 weather icon art. Keeping these in the binary means the
// weather app never depends on the icon store or the network. Each glyph is
// eight rows of eight palette keys; '.' is transparent.

var weatherPalette = map[byte]color.RGBA{
	'.': {0, 0, 0, 0},
	'Y': {255, 220, 50, 255},  // sun core
	'A': {255, 180, 50, 255},  // sun rays
	'W': {220, 220, 220, 255}, // cloud highlight
	'L': {170, 170, 170, 255}, // cloud body
	'G': {120, 120, 120, 255}, // cloud shadow
	'D': {80, 80, 80, 255},    // cloud underside
	'B': {50, 100, 220, 255},  // rain drops
	'C': {0, 180, 255, 255},   // heavy rain
	'P': {140, 180, 255, 255}, // moon
	'S': {240, 240, 255, 255}, // snowflakes
	'F': {150, 150, 140, 255}, // fog
	'E': {255, 240, 80, 255},  // lightning
}

var weatherArt = map[string][8]string{
	"w_clear_day": {
		"..A..A..",
		"...YY...",
		"A.YYYY.A",
		".YYYYYY.",
		".YYYYYY.",
		"A.YYYY.A",
		"...YY...",
		"..A..A..",
	},
	"w_clear_night": {
		"...PP...",
		"..PP....",
		".PP.....",
		".PP.....",
		".PP.....",
		".PP.....",
		"..PP....",
		"...PP...",
	},
	"w_partly_day": {
		"....A.A.",
		".....Y..",
		"....YYYA",
		"..WWYYY.",
		".WWWW...",
		"WWLLWW..",
		"LLGGLL..",
		".DDDD...",
	},
	"w_partly_night": {
		".....PP.",
		"....PP..",
		"....PP..",
		"..WW.PP.",
		".WWWW...",
		"WWLLWW..",
		"LLGGLL..",
		".DDDD...",
	},
	"w_cloudy": {
		"........",
		"..WW....",
		".WWWWW..",
		"WWLLWWW.",
		"WLLGLLW.",
		"LLGGGLL.",
		".GDDDG..",
		"........",
	},
	"w_rain": {
		"..WW....",
		".WWWWW..",
		"WWLLWWW.",
		"LLGGLLL.",
		".GDDDG..",
		".B..B...",
		"...B..B.",
		"........",
	},
	"w_heavy_rain": {
		"..WW....",
		".WWWWW..",
		"WWLLWWW.",
		"LLGGLLL.",
		".GDDDG..",
		"C.C.C.C.",
		".C.C.C..",
		"........",
	},
	"w_thunder": {
		"..WW....",
		".WWWWW..",
		"WWLLWWW.",
		"LLGGLLL.",
		".GDEDG..",
		"..EE....",
		"...EE...",
		"...E....",
	},
	"w_snow": {
		"..WW....",
		".WWWWW..",
		"WWLLWWW.",
		"LLGGLLL.",
		".GDDDG..",
		".S..S.S.",
		"..S..S..",
		"...S....",
	},
	"w_fog": {
		"........",
		".FFFFFF.",
		"........",
		"FFFFFF..",
		"........",
		"..FFFFF.",
		"........",
		"FFF.FFF.",
	},
}

// weatherIcon renders a built-in icon by name, or nil if unknown.
func weatherIcon(name string) *image.RGBA {
	art, ok := weatherArt[name]
	if !ok {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y, row := range art {
		for x := 0; x < len(row) && x < 8; x++ {
			clr, ok := weatherPalette[row[x]]
			if !ok || clr.A == 0 {
				continue
			}
			img.SetRGBA(x, y, clr)
		}
	}
	return img
}
