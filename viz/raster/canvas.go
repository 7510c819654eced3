package raster

import (
	"errors"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"navview/viz/surface"
	"navview/viz/vertex"
)

const (
	zNear = -10
	zFar  = 10
)

var errNoSize = errors.New("raster: canvas has no size")

// Canvas implements surface.Surface over a pixel Target.
//
// Create it once and reuse it; Resize when the target changes size.
type Canvas struct {
	t Target
	w int
	h int

	proj  mgl32.Mat4
	model mgl32.Mat4

	cull      bool
	blend     bool
	pointSize float32
	unit      float32 // pixels per world unit

	fan []screenPoint
}

var _ surface.Surface = (*Canvas)(nil)

// NewCanvas creates a canvas sized to t with blending enabled.
func NewCanvas(t Target) *Canvas {
	c := &Canvas{t: t, blend: true, pointSize: 1, unit: 1, model: mgl32.Ident4()}
	if t != nil {
		w, h := t.Size()
		c.Resize(w, h)
	}
	return c
}

// SetTarget swaps the pixel target without touching projection state.
func (c *Canvas) SetTarget(t Target) { c.t = t }

// Resize sets the projection to [-w/2,w/2]×[-h/2,h/2]×[-10,10] (divided by
// the unit scale) and resets the model-view transform.
func (c *Canvas) Resize(w, h int) {
	c.w, c.h = w, h
	hw, hh := float32(w)/2/c.unit, float32(h)/2/c.unit
	c.proj = mgl32.Ortho(-hw, hw, -hh, hh, zNear, zFar)
	c.model = mgl32.Ident4()
}

// SetUnitScale sets how many pixels one world unit covers at view scale 1.
// The default is 1. It takes effect at the next Resize.
func (c *Canvas) SetUnitScale(px float32) {
	if !(px > 0) {
		px = 1
	}
	c.unit = px
}

// Unproject maps a pixel position back through the projection and the given
// model-view matrix onto the z=0 plane.
func (c *Canvas) Unproject(sx, sy float32, modelView mgl32.Mat4) (mgl32.Vec3, error) {
	if c.w <= 0 || c.h <= 0 {
		return mgl32.Vec3{}, errNoSize
	}
	// Window z 0.5 is eye z 0 for the symmetric depth range.
	win := mgl32.Vec3{sx, float32(c.h) - sy, 0.5}
	return mgl32.UnProject(win, modelView, c.proj, 0, 0, c.w, c.h)
}

// SetBlend toggles src_alpha / one_minus_src_alpha blending.
func (c *Canvas) SetBlend(on bool) { c.blend = on }

func (c *Canvas) Size() (w, h int) { return c.w, c.h }

func (c *Canvas) Clear(col surface.Color) {
	if c.t == nil {
		return
	}
	r, g, b, a := col.RGBA8()
	c.t.Clear(color.RGBA{R: r, G: g, B: b, A: a})
}

func (c *Canvas) Transform() mgl32.Mat4      { return c.model }
func (c *Canvas) LoadTransform(m mgl32.Mat4) { c.model = m }
func (c *Canvas) MulTransform(m mgl32.Mat4)  { c.model = c.model.Mul4(m) }
func (c *Canvas) SetCullFace(enabled bool)   { c.cull = enabled }

func (c *Canvas) SetPointSize(px float32) {
	if px < 1 {
		px = 1
	}
	c.pointSize = px
}

func (c *Canvas) DrawArrays(p surface.Primitive, vertices vertex.Buffer, col surface.Color) {
	if c.t == nil || c.w <= 0 || c.h <= 0 || vertices.Count() == 0 {
		return
	}
	mvp := c.proj.Mul4(c.model)

	c.fan = c.fan[:0]
	for i := 0; i < vertices.Count(); i++ {
		c.fan = append(c.fan, c.project(mvp, vertices.At(i)))
	}

	switch p {
	case surface.Points:
		for _, sp := range c.fan {
			if sp.ok {
				c.fillPoint(sp, col)
			}
		}
	case surface.TriangleFan:
		for i := 1; i+1 < len(c.fan); i++ {
			a, b, d := c.fan[0], c.fan[i], c.fan[i+1]
			if !a.ok || !b.ok || !d.ok {
				continue
			}
			c.fillTriangle(a, b, d, col)
		}
	}
}

type screenPoint struct {
	X, Y float32
	ok   bool
}

func (c *Canvas) project(mvp mgl32.Mat4, v mgl32.Vec3) screenPoint {
	clip := mvp.Mul4x1(v.Vec4(1))
	if clip.W() == 0 {
		return screenPoint{}
	}
	inv := 1 / clip.W()
	x, y, z := clip.X()*inv, clip.Y()*inv, clip.Z()*inv
	if z < -1 || z > 1 {
		return screenPoint{}
	}
	return screenPoint{
		X:  (x*0.5 + 0.5) * float32(c.w),
		Y:  (1 - (y*0.5 + 0.5)) * float32(c.h),
		ok: true,
	}
}

func (c *Canvas) fillPoint(p screenPoint, col surface.Color) {
	half := c.pointSize / 2
	x0 := int(math32.Floor(p.X - half + 0.5))
	y0 := int(math32.Floor(p.Y - half + 0.5))
	n := int(c.pointSize)
	for y := y0; y < y0+n; y++ {
		for x := x0; x < x0+n; x++ {
			c.plot(x, y, col)
		}
	}
}

func (c *Canvas) fillTriangle(a, b, d screenPoint, col surface.Color) {
	area := edgeFn(a, b, d.X, d.Y)
	if area == 0 {
		return
	}
	// Screen y points down, so counter-clockwise front faces have negative area.
	if area > 0 {
		if c.cull {
			return
		}
		b, d = d, b
	}

	minX := clampInt(int(math32.Floor(min3(a.X, b.X, d.X))), 0, c.w-1)
	maxX := clampInt(int(math32.Ceil(max3(a.X, b.X, d.X))), 0, c.w-1)
	minY := clampInt(int(math32.Floor(min3(a.Y, b.Y, d.Y))), 0, c.h-1)
	maxY := clampInt(int(math32.Ceil(max3(a.Y, b.Y, d.Y))), 0, c.h-1)

	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			if edgeFn(a, b, px, py) > 0 || edgeFn(b, d, px, py) > 0 || edgeFn(d, a, px, py) > 0 {
				continue
			}
			c.plot(x, y, col)
		}
	}
}

func (c *Canvas) plot(x, y int, col surface.Color) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	r, g, b, a := col.RGBA8()
	if !c.blend || a == 0xFF {
		c.t.SetPixel(x, y, color.RGBA{R: r, G: g, B: b, A: 0xFF})
		return
	}
	dst := c.t.Pixel(x, y)
	k := uint32(a)
	mix := func(s, d uint8) uint8 {
		return uint8((uint32(s)*k + uint32(d)*(255-k) + 127) / 255)
	}
	c.t.SetPixel(x, y, color.RGBA{R: mix(r, dst.R), G: mix(g, dst.G), B: mix(b, dst.B), A: 0xFF})
}

func edgeFn(a, b screenPoint, x, y float32) float32 {
	return (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
}

func min3(a, b, c float32) float32 { return math32.Min(a, math32.Min(b, c)) }
func max3(a, b, c float32) float32 { return math32.Max(a, math32.Max(b, c)) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
