// Package layer defines what the view draws: a Layer draws itself against a
// Surface, and a Framed layer also names the frame its geometry lives in.
package layer

import (
	"navview/viz/surface"
)

// Layer draws into the surface's current transform.
type Layer interface {
	Draw(s surface.Surface) error
}

// Framed is implemented by layers whose geometry is expressed in a named
// frame. ok is false when the layer currently has no frame.
type Framed interface {
	Frame() (frame string, ok bool)
}

// FrameOf returns the frame a layer declares, if any.
func FrameOf(l Layer) (string, bool) {
	f, ok := l.(Framed)
	if !ok {
		return "", false
	}
	frame, ok := f.Frame()
	if frame == "" {
		return "", false
	}
	return frame, ok
}

// Drawable is anything with a Draw method, such as *shape.Mesh.
type Drawable interface {
	Draw(s surface.Surface) error
}

// Group draws its items in order, each from the same starting transform.
type Group struct {
	Name  string
	frame string
	items []Drawable
}

var (
	_ Layer  = (*Group)(nil)
	_ Framed = (*Group)(nil)
)

// NewGroup builds a layer over items. An empty frame draws in the camera frame.
func NewGroup(name, frame string, items ...Drawable) *Group {
	return &Group{Name: name, frame: frame, items: items}
}

func (g *Group) Frame() (string, bool) { return g.frame, g.frame != "" }

func (g *Group) Draw(s surface.Surface) error {
	base := s.Transform()
	defer s.LoadTransform(base)
	for _, it := range g.items {
		s.LoadTransform(base)
		if err := it.Draw(s); err != nil {
			return err
		}
	}
	return nil
}

// Func adapts a function into an unframed Layer.
type Func func(s surface.Surface) error

func (f Func) Draw(s surface.Surface) error { return f(s) }

// InFrame attaches a frame to any layer.
func InFrame(frame string, l Layer) Layer {
	return framed{Layer: l, frame: frame}
}

type framed struct {
	Layer
	frame string
}

func (f framed) Frame() (string, bool) { return f.frame, f.frame != "" }
