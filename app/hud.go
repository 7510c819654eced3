package app

import (
	"fmt"
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"navview/hal"
	"navview/viz/raster"
	"navview/viz/view"
)

var hudColor = color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}

const hudLine = 10

// fbDisplay exposes an RGB565 framebuffer as a drivers.Displayer for
// tinyfont.
type fbDisplay struct {
	fb hal.Framebuffer
}

var _ drivers.Displayer = (*fbDisplay)(nil)

func (d *fbDisplay) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	buf := d.fb.Buffer()
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}
	off := iy*d.fb.StrideBytes() + ix*2
	if off < 0 || off+1 >= len(buf) {
		return
	}
	pixel := raster.RGB565From888(c.R, c.G, c.B)
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *fbDisplay) Display() error { return nil }

type hud struct {
	d    *fbDisplay
	font tinyfont.Fonter
}

func newHUD(fb hal.Framebuffer) *hud {
	return &hud{d: &fbDisplay{fb: fb}, font: &proggy.TinySZ8pt7b}
}

// lines renders the status text for one frame.
func (h *hud) lines(r *view.Renderer, st view.FrameStats) []string {
	lock := "-"
	if f, ok := r.LockedFrame(); ok {
		lock = f
		if !st.Locked {
			lock += " (lost)"
		}
	}
	focal := r.Camera()
	return []string{
		"fixed " + r.FixedFrame(),
		"lock  " + lock,
		fmt.Sprintf("scale %.3f at %.2f,%.2f", r.ScalingFactor(), focal.X(), focal.Y()),
		fmt.Sprintf("layers %d drawn %d degraded %d failed %d", st.Layers, st.Drawn, st.Degraded, st.Failed),
	}
}

func (h *hud) draw(r *view.Renderer, st view.FrameStats) {
	for i, s := range h.lines(r, st) {
		tinyfont.WriteLine(h.d, h.font, 4, int16(hudLine*(i+1)), s, hudColor)
	}
}
