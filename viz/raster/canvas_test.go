package raster

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navview/viz/surface"
	"navview/viz/vertex"
)

var red = surface.RGBA(1, 0, 0, 1)

func mustBuffer(t *testing.T, v ...float32) vertex.Buffer {
	t.Helper()
	b, err := vertex.FromFlat(v)
	require.NoError(t, err)
	return b
}

func TestCanvasTriangleFanSquare(t *testing.T) {
	tgt := NewRGBATarget(20, 20)
	c := NewCanvas(tgt)
	c.Clear(surface.RGBA(0, 0, 0, 1))

	c.DrawArrays(surface.TriangleFan, mustBuffer(t,
		-5, -5, 0,
		5, -5, 0,
		5, 5, 0,
		-5, 5, 0,
	), red)

	assert.Equal(t, color.RGBA{R: 0xFF, A: 0xFF}, tgt.Pixel(10, 10))
	assert.Equal(t, color.RGBA{R: 0xFF, A: 0xFF}, tgt.Pixel(5, 5))
	assert.Equal(t, color.RGBA{R: 0xFF, A: 0xFF}, tgt.Pixel(14, 14))
	assert.Equal(t, color.RGBA{A: 0xFF}, tgt.Pixel(4, 10))
	assert.Equal(t, color.RGBA{A: 0xFF}, tgt.Pixel(15, 10))
}

func TestCanvasScreenYPointsDown(t *testing.T) {
	tgt := NewRGBATarget(20, 20)
	c := NewCanvas(tgt)
	c.Clear(surface.RGBA(0, 0, 0, 1))

	// A point above the origin in world space lands above the screen center.
	c.DrawArrays(surface.Points, mustBuffer(t, 0, 5, 0), red)
	assert.Equal(t, uint8(0xFF), tgt.Pixel(10, 5).R)
	assert.Equal(t, uint8(0), tgt.Pixel(10, 15).R)
}

func TestCanvasPointSize(t *testing.T) {
	tgt := NewRGBATarget(20, 20)
	c := NewCanvas(tgt)
	c.SetPointSize(3)
	c.DrawArrays(surface.Points, mustBuffer(t, 0, 0, 0), red)

	for y := 9; y <= 11; y++ {
		for x := 9; x <= 11; x++ {
			assert.Equal(t, uint8(0xFF), tgt.Pixel(x, y).R, "(%d,%d)", x, y)
		}
	}
	assert.Equal(t, uint8(0), tgt.Pixel(12, 10).R)
}

func TestCanvasCullFace(t *testing.T) {
	ccw := mustBuffer(t, -5, -5, 0, 5, -5, 0, 5, 5, 0)
	cw := mustBuffer(t, -5, -5, 0, 5, 5, 0, 5, -5, 0)

	tgt := NewRGBATarget(20, 20)
	c := NewCanvas(tgt)
	c.SetCullFace(true)
	c.DrawArrays(surface.TriangleFan, cw, red)
	assert.Equal(t, uint8(0), tgt.Pixel(13, 12).R, "back face drawn with culling on")
	c.DrawArrays(surface.TriangleFan, ccw, red)
	assert.Equal(t, uint8(0xFF), tgt.Pixel(13, 12).R)

	tgt2 := NewRGBATarget(20, 20)
	c2 := NewCanvas(tgt2)
	c2.SetCullFace(false)
	c2.DrawArrays(surface.TriangleFan, cw, red)
	assert.Equal(t, uint8(0xFF), tgt2.Pixel(13, 12).R, "two-sided fan not drawn")
}

func TestCanvasBlend(t *testing.T) {
	tgt := NewRGBATarget(4, 4)
	c := NewCanvas(tgt)
	c.Clear(surface.RGBA(0, 0, 0, 1))
	c.DrawArrays(surface.Points, mustBuffer(t, 0, 0, 0), surface.RGBA(1, 1, 1, 0.5))
	assert.Equal(t, uint8(0x80), tgt.Pixel(2, 2).R)

	c.SetBlend(false)
	c.DrawArrays(surface.Points, mustBuffer(t, 0, 0, 0), surface.RGBA(1, 1, 1, 0.5))
	assert.Equal(t, uint8(0xFF), tgt.Pixel(2, 2).R)
}

func TestCanvasTransformAndDepthClip(t *testing.T) {
	tgt := NewRGBATarget(20, 20)
	c := NewCanvas(tgt)
	c.MulTransform(mgl32.Translate3D(5, 0, 0))
	c.DrawArrays(surface.Points, mustBuffer(t, 0, 0, 0), red)
	assert.Equal(t, uint8(0xFF), tgt.Pixel(15, 10).R)

	c.LoadTransform(mgl32.Ident4())
	c.DrawArrays(surface.Points, mustBuffer(t, 0, 2, 50), red)
	assert.Equal(t, uint8(0), tgt.Pixel(10, 8).R, "point beyond far plane drawn")
}

func TestRGB565Target(t *testing.T) {
	tgt := &RGB565Target{Buf: make([]byte, 4*4*2), Stride: 8, W: 4, H: 4}
	c := NewCanvas(tgt)
	c.Clear(surface.RGBA(0, 0, 1, 1))
	assert.Equal(t, color.RGBA{B: 0xFF, A: 0xFF}, tgt.Pixel(0, 0))

	tgt.SetPixel(1, 1, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
	assert.Equal(t, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, tgt.Pixel(1, 1))

	// Out of bounds writes are dropped.
	tgt.SetPixel(9, 9, color.RGBA{R: 0xFF})
	assert.Equal(t, color.RGBA{}, tgt.Pixel(9, 9))
}

func TestCanvasUnitScale(t *testing.T) {
	tgt := NewRGBATarget(20, 20)
	c := NewCanvas(tgt)
	c.SetUnitScale(2)
	c.Resize(20, 20)
	c.Clear(surface.RGBA(0, 0, 0, 1))

	c.DrawArrays(surface.TriangleFan, mustBuffer(t,
		-2.5, -2.5, 0,
		2.5, -2.5, 0,
		2.5, 2.5, 0,
		-2.5, 2.5, 0,
	), red)

	assert.Equal(t, uint8(0xFF), tgt.Pixel(14, 14).R)
	assert.Equal(t, uint8(0), tgt.Pixel(15, 10).R)
}

func TestCanvasUnproject(t *testing.T) {
	c := NewCanvas(nil)
	_, err := c.Unproject(1, 1, mgl32.Ident4())
	require.Error(t, err)

	c.SetUnitScale(2)
	c.Resize(20, 20)
	p, err := c.Unproject(15, 5, mgl32.Ident4())
	require.NoError(t, err)
	assert.InDelta(t, 2.5, p.X(), 1e-4)
	assert.InDelta(t, 2.5, p.Y(), 1e-4)
	assert.InDelta(t, 0, p.Z(), 1e-4)

	// Undo a translated view.
	p, err = c.Unproject(10, 10, mgl32.Translate3D(-3, 1, 0))
	require.NoError(t, err)
	assert.InDelta(t, 3, p.X(), 1e-4)
	assert.InDelta(t, -1, p.Y(), 1e-4)
}
