// Package surface defines the drawing contract layers render against.
//
// A Surface carries one current model-view transform. Callers that need to
// restore it save Transform() and LoadTransform() it back; the view
// package does that for every layer.
package surface

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"navview/viz/vertex"
)

// Primitive selects how a vertex buffer is assembled.
type Primitive uint8

const (
	Points Primitive = iota
	TriangleFan
)

func (p Primitive) String() string {
	switch p {
	case Points:
		return "points"
	case TriangleFan:
		return "triangle_fan"
	default:
		return fmt.Sprintf("primitive(%d)", uint8(p))
	}
}

// Color is an RGBA color with channels in [0,1].
type Color struct {
	R, G, B, A float32
}

func RGBA(r, g, b, a float32) Color { return Color{R: r, G: g, B: b, A: a} }

// Valid reports whether every channel is inside [0,1].
func (c Color) Valid() bool {
	for _, v := range [4]float32{c.R, c.G, c.B, c.A} {
		if !(v >= 0 && v <= 1) {
			return false
		}
	}
	return true
}

// RGBA8 converts to 8-bit channels, clamping out-of-range values.
func (c Color) RGBA8() (r, g, b, a uint8) {
	return to8(c.R), to8(c.G), to8(c.B), to8(c.A)
}

func to8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 0xFF
	}
	return uint8(v*255 + 0.5)
}

// Surface is the render target seen by layers.
type Surface interface {
	Size() (w, h int)
	Clear(c Color)

	Transform() mgl32.Mat4
	LoadTransform(m mgl32.Mat4)
	// MulTransform post-multiplies m into the current transform, so m is
	// applied to vertices before anything already loaded.
	MulTransform(m mgl32.Mat4)

	SetCullFace(enabled bool)
	SetPointSize(px float32)
	DrawArrays(p Primitive, vertices vertex.Buffer, c Color)
}
