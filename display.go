package main

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// PixelSink is the external display boundary. The compositor draws into the
// back buffer and Present flips it; double buffering is never assumed away,
// so a full redraw after a content switch must draw and present twice.
type PixelSink interface {
	Back() *image.RGBA
	SetPixel(x, y int, c color.RGBA)
	FillRect(x, y, w, h int, c color.RGBA)
	DrawLine(x0, y0, x1, y1 int, c color.RGBA)
	Present() error
}

// FrameSink is the in-memory double-buffered sink backing the panel, the
// HTTP frame endpoints and the tests.
type FrameSink struct {
	mu         sync.RWMutex
	buffers    [2]*image.RGBA
	back       int
	width      int
	height     int
	brightness uint8
}

func NewFrameSink(width, height int) *FrameSink {
	s := &FrameSink{width: width, height: height, brightness: DEFAULT_BRIGHTNESS}
	for i := range s.buffers {
		s.buffers[i] = image.NewRGBA(image.Rect(0, 0, width, height))
		clearFrame(s.buffers[i], width, height)
	}
	return s
}

// Back returns the buffer being drawn this tick.
func (s *FrameSink) Back() *image.RGBA { return s.buffers[s.back] }

func (s *FrameSink) SetPixel(x, y int, c color.RGBA) {
	s.buffers[s.back].SetRGBA(x, y, c)
}

func (s *FrameSink) FillRect(x, y, w, h int, c color.RGBA) {
	drawRect(s.buffers[s.back], x, y, w, h, c)
}

func (s *FrameSink) DrawLine(x0, y0, x1, y1 int, c color.RGBA) {
	drawLine(s.buffers[s.back], x0, y0, x1, y1, c)
}

// Present flips the back buffer to the front.
func (s *FrameSink) Present() error {
	s.mu.Lock()
	s.back = 1 - s.back
	s.mu.Unlock()
	return nil
}

// SetBrightness stores the output brightness (1-255) applied when the frame
// leaves the sink.
func (s *FrameSink) SetBrightness(b uint8) {
	if b < MIN_BRIGHTNESS {
		b = MIN_BRIGHTNESS
	}
	s.mu.Lock()
	s.brightness = b
	s.mu.Unlock()
	log.Printf("[DISPLAY] brightness set to %d", b)
}

func (s *FrameSink) Brightness() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.brightness
}

// Snapshot copies the presented frame with brightness applied; safe to call
// from the HTTP goroutines.
func (s *FrameSink) Snapshot() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	front := s.buffers[1-s.back]
	out := image.NewRGBA(front.Bounds())
	level := float64(s.brightness) / float64(MAX_BRIGHTNESS)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			px := front.RGBAAt(x, y)
			out.SetRGBA(x, y, color.RGBA{
				R: uint8(float64(px.R) * level),
				G: uint8(float64(px.G) * level),
				B: uint8(float64(px.B) * level),
				A: 255,
			})
		}
	}
	return out
}

// MatrixSink pushes presented frames to the physical panel over SPI. The
// engine only ever sees the PixelSink interface; everything hardware lives
// here.
type MatrixSink struct {
	*FrameSink
	conn spi.Conn
	line []byte
}

// NewMatrixSink opens the SPI port and wraps a FrameSink for the panel.
func NewMatrixSink(width, height int, spiDev string) (*MatrixSink, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	port, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("spi open %s: %w", spiDev, err)
	}
	conn, err := port.Connect(20000*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("spi connect: %w", err)
	}
	log.Printf("[DISPLAY] SPI panel on %s (%dx%d)", spiDev, width, height)
	return &MatrixSink{
		FrameSink: NewFrameSink(width, height),
		conn:      conn,
		line:      make([]byte, width*2),
	}, nil
}

// Present flips the buffers and streams the frame to the panel row by row
// as RGB565, brightness already applied.
func (s *MatrixSink) Present() error {
	if err := s.FrameSink.Present(); err != nil {
		return err
	}
	frame := s.Snapshot()
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			px := frame.RGBAAt(x, y)
			v := rgb565(px)
			s.line[x*2] = byte(v >> 8)
			s.line[x*2+1] = byte(v)
		}
		if err := s.conn.Tx(s.line, nil); err != nil {
			return fmt.Errorf("spi tx row %d: %w", y, err)
		}
	}
	return nil
}

func rgb565(c color.RGBA) uint16 {
	return uint16(c.R&0xF8)<<8 | uint16(c.G&0xFC)<<3 | uint16(c.B)>>3
}

// clearFrame resets a framebuffer to opaque black.
func clearFrame(frame *image.RGBA, width, height int) {
	for i := 0; i < width*height*4; i += 4 {
		frame.Pix[i] = 0
		frame.Pix[i+1] = 0
		frame.Pix[i+2] = 0
		frame.Pix[i+3] = 255
	}
}

// drawRect fills an axis-aligned rectangle, clipped to the frame.
func drawRect(img *image.RGBA, x0, y0, width, height int, c color.RGBA) {
	b := img.Bounds()
	for y := y0; y < y0+height; y++ {
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		for x := x0; x < x0+width; x++ {
			if x < b.Min.X || x >= b.Max.X {
				continue
			}
			img.SetRGBA(x, y, c)
		}
	}
}

// drawLine is a Bresenham line, clipped to the frame.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	b := img.Bounds()
	for {
		if x0 >= b.Min.X && x0 < b.Max.X && y0 >= b.Min.Y && y0 < b.Max.Y {
			img.SetRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// copyImageToImageAt composites src onto dst at (x0,y0), skipping fully
// transparent pixels and alpha-blending partial ones.
func copyImageToImageAt(dst, src *image.RGBA, x0, y0 int) {
	if dst == nil || src == nil {
		return
	}
	sb := src.Bounds()
	db := dst.Bounds()
	for y := 0; y < sb.Dy(); y++ {
		for x := 0; x < sb.Dx(); x++ {
			tx, ty := x0+x, y0+y
			if tx < db.Min.X || tx >= db.Max.X || ty < db.Min.Y || ty >= db.Max.Y {
				continue
			}
			sample := src.RGBAAt(sb.Min.X+x, sb.Min.Y+y)
			if sample.A == 0 {
				continue
			}
			if sample.A == 255 {
				dst.SetRGBA(tx, ty, sample)
				continue
			}
			prev := dst.RGBAAt(tx, ty)
			a := uint16(sample.A)
			inv := uint16(255 - sample.A)
			dst.SetRGBA(tx, ty, color.RGBA{
				R: uint8((uint16(sample.R)*a + uint16(prev.R)*inv) / 255),
				G: uint8((uint16(sample.G)*a + uint16(prev.G)*inv) / 255),
				B: uint8((uint16(sample.B)*a + uint16(prev.B)*inv) / 255),
				A: uint8(uint16(sample.A) + uint16(prev.A)*inv/255),
			})
		}
	}
}
