package raster

import (
	"image"
	"image/color"
)

// Target is a minimal pixel target for software rendering.
//
// Implementations clip out-of-bounds coordinates.
type Target interface {
	Size() (w, h int)
	SetPixel(x, y int, c color.RGBA)
	Pixel(x, y int) color.RGBA
	Clear(c color.RGBA)
}

// RGB565Target renders into an RGB565 framebuffer.
//
// Callers provide the backing buffer and its layout (stride).
type RGB565Target struct {
	Buf    []byte
	Stride int // bytes per row
	W      int
	H      int
}

func (t *RGB565Target) Size() (w, h int) { return t.W, t.H }

func (t *RGB565Target) ok() bool {
	return t != nil && t.Buf != nil && t.Stride > 0 && t.W > 0 && t.H > 0
}

func (t *RGB565Target) offset(x, y int) (int, bool) {
	if !t.ok() || x < 0 || y < 0 || x >= t.W || y >= t.H {
		return 0, false
	}
	off := y*t.Stride + x*2
	if off < 0 || off+1 >= len(t.Buf) {
		return 0, false
	}
	return off, true
}

func (t *RGB565Target) Clear(c color.RGBA) {
	if !t.ok() {
		return
	}
	p := RGB565From888(c.R, c.G, c.B)
	lo, hi := byte(p), byte(p>>8)
	for y := 0; y < t.H; y++ {
		for x := 0; x < t.W; x++ {
			if off, ok := t.offset(x, y); ok {
				t.Buf[off] = lo
				t.Buf[off+1] = hi
			}
		}
	}
}

func (t *RGB565Target) SetPixel(x, y int, c color.RGBA) {
	off, ok := t.offset(x, y)
	if !ok {
		return
	}
	p := RGB565From888(c.R, c.G, c.B)
	t.Buf[off] = byte(p)
	t.Buf[off+1] = byte(p >> 8)
}

func (t *RGB565Target) Pixel(x, y int) color.RGBA {
	off, ok := t.offset(x, y)
	if !ok {
		return color.RGBA{}
	}
	r, g, b := RGB888From565(uint16(t.Buf[off]) | uint16(t.Buf[off+1])<<8)
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

// RGB565From888 packs 8-bit channels as rrrrrggggggbbbbb.
func RGB565From888(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

func RGB888From565(p uint16) (r, g, b uint8) {
	rr := (p >> 11) & 0x1F
	gg := (p >> 5) & 0x3F
	bb := p & 0x1F
	return uint8(rr * 255 / 31), uint8(gg * 255 / 63), uint8(bb * 255 / 31)
}

// RGBATarget renders into an *image.RGBA.
type RGBATarget struct {
	Img *image.RGBA
}

func NewRGBATarget(w, h int) *RGBATarget {
	return &RGBATarget{Img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (t *RGBATarget) Size() (w, h int) {
	if t == nil || t.Img == nil {
		return 0, 0
	}
	b := t.Img.Bounds()
	return b.Dx(), b.Dy()
}

func (t *RGBATarget) Clear(c color.RGBA) {
	if t == nil || t.Img == nil {
		return
	}
	p := t.Img.Pix
	for i := 0; i+3 < len(p); i += 4 {
		p[i], p[i+1], p[i+2], p[i+3] = c.R, c.G, c.B, c.A
	}
}

func (t *RGBATarget) SetPixel(x, y int, c color.RGBA) {
	if t == nil || t.Img == nil {
		return
	}
	b := t.Img.Bounds()
	t.Img.SetRGBA(b.Min.X+x, b.Min.Y+y, c)
}

func (t *RGBATarget) Pixel(x, y int) color.RGBA {
	if t == nil || t.Img == nil {
		return color.RGBA{}
	}
	b := t.Img.Bounds()
	return t.Img.RGBAAt(b.Min.X+x, b.Min.Y+y)
}
