// Package camera models the planar view camera: viewport, focal point, zoom
// and an optional frame lock.
//
// All state lives in an immutable State snapshot published atomically, so
// the render goroutine and the input goroutine never block each other and
// never observe a half-applied gesture.
package camera

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"navview/viz/frames"
	"navview/viz/geom"
)

const (
	MinScale     = 0.01
	MaxScale     = 1.0
	DefaultScale = 0.1
)

var (
	ErrInvalidScale     = errors.New("invalid scale")
	ErrViewportNotReady = errors.New("viewport not ready")
)

// Viewport is the surface size in pixels. The zero value means no resize
// has happened yet.
type Viewport struct {
	Width, Height int
}

func (v Viewport) Ready() bool { return v.Width > 0 && v.Height > 0 }

// Target is either a free camera or a camera locked to a frame.
type Target struct {
	frame string
}

// Free is the unlocked target.
func Free() Target { return Target{} }

// LockedTo returns a target tracking frame. An empty name is Free.
func LockedTo(frame string) Target { return Target{frame: frame} }

// Frame returns the locked frame and whether the camera is locked.
func (t Target) Frame() (string, bool) { return t.frame, t.frame != "" }

// State is one consistent camera snapshot.
type State struct {
	Viewport Viewport
	Focal    mgl32.Vec3 // z is always 0
	Scale    float32
	Target   Target
}

// Camera is safe for concurrent use.
type Camera struct {
	state atomic.Pointer[State]
}

func New() *Camera {
	c := &Camera{}
	c.state.Store(&State{Scale: DefaultScale})
	return c
}

// Snapshot returns the current state.
func (c *Camera) Snapshot() State { return *c.state.Load() }

func (c *Camera) update(fn func(s *State)) State {
	for {
		old := c.state.Load()
		next := *old
		fn(&next)
		if c.state.CompareAndSwap(old, &next) {
			return next
		}
	}
}

func clampScale(k float32) float32 {
	if k < MinScale {
		return MinScale
	}
	if k > MaxScale {
		return MaxScale
	}
	return k
}

// SetViewport records the surface size.
func (c *Camera) SetViewport(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("camera: viewport %dx%d must be positive", w, h)
	}
	c.update(func(s *State) { s.Viewport = Viewport{Width: w, Height: h} })
	return nil
}

func (c *Camera) Viewport() Viewport { return c.state.Load().Viewport }

// Move unlocks the camera and shifts the focal point by a world delta.
func (c *Camera) Move(dx, dy float32) {
	c.update(func(s *State) {
		s.Target = Free()
		s.Focal = mgl32.Vec3{s.Focal.X() + dx, s.Focal.Y() + dy, 0}
	})
}

// MoveScreen converts a pixel drag into a world delta and moves the camera.
// Screen x drives world y and screen y drives world x.
func (c *Camera) MoveScreen(dxPix, dyPix float32) error {
	var err error
	c.update(func(s *State) {
		if !s.Viewport.Ready() {
			err = ErrViewportNotReady
			return
		}
		err = nil
		dx := dyPix / float32(s.Viewport.Height) / s.Scale
		dy := dxPix / float32(s.Viewport.Width) / s.Scale
		s.Target = Free()
		s.Focal = mgl32.Vec3{s.Focal.X() + dx, s.Focal.Y() + dy, 0}
	})
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	return nil
}

// Set unlocks the camera and places the focal point at p (z is dropped).
func (c *Camera) Set(p mgl32.Vec3) {
	c.update(func(s *State) {
		s.Target = Free()
		s.Focal = mgl32.Vec3{p.X(), p.Y(), 0}
	})
}

func (c *Camera) Focal() mgl32.Vec3 { return c.state.Load().Focal }

// Zoom multiplies the scale by factor and clamps it.
func (c *Camera) Zoom(factor float32) error {
	if !(factor > 0) {
		return fmt.Errorf("camera: %w: zoom factor %v", ErrInvalidScale, factor)
	}
	c.update(func(s *State) { s.Scale = clampScale(s.Scale * factor) })
	return nil
}

// SetScale sets the scale directly, clamped.
func (c *Camera) SetScale(k float32) error {
	if !(k > 0) {
		return fmt.Errorf("camera: %w: scale %v", ErrInvalidScale, k)
	}
	c.update(func(s *State) { s.Scale = clampScale(k) })
	return nil
}

func (c *Camera) Scale() float32 { return c.state.Load().Scale }

func (c *Camera) LockTo(frame string) {
	c.update(func(s *State) { s.Target = LockedTo(frame) })
}

func (c *Camera) ResetLock() {
	c.update(func(s *State) { s.Target = Free() })
}

func (c *Camera) LockedFrame() (string, bool) { return c.state.Load().Target.Frame() }

// Resolve moves a locked camera onto its frame's origin in fixed. It reports
// whether the lock resolved; an unresolved lock keeps the last focal point
// and is retried on the next call.
func (c *Camera) Resolve(g frames.Graph, fixed string) (State, bool) {
	for {
		old := c.state.Load()
		frame, locked := old.Target.Frame()
		if !locked || g == nil || !g.CanTransform(fixed, frame) {
			return *old, false
		}
		tr, err := g.LookupTransform(frame, fixed)
		if err != nil {
			return *old, false
		}
		next := *old
		next.Focal = mgl32.Vec3{tr.Translation.X(), tr.Translation.Y(), 0}
		if c.state.CompareAndSwap(old, &next) {
			return next, true
		}
	}
}

// ViewMatrix is scale(k,k,1) · rotZ(90°) · translate(-focal).
func ViewMatrix(s State) mgl32.Mat4 {
	f := s.Focal
	return mgl32.Scale3D(s.Scale, s.Scale, 1).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(90))).
		Mul4(mgl32.Translate3D(-f.X(), -f.Y(), -f.Z()))
}

// ScreenToWorld maps a pixel position to world coordinates on the z=0 plane.
func (s State) ScreenToWorld(p mgl32.Vec2) (mgl32.Vec3, error) {
	if !s.Viewport.Ready() {
		return mgl32.Vec3{}, fmt.Errorf("camera: %w", ErrViewportNotReady)
	}
	w, h := float32(s.Viewport.Width), float32(s.Viewport.Height)
	x := (0.5-p.Y()/h)/(0.5*s.Scale) + s.Focal.X()
	y := (0.5-p.X()/w)/(0.5*s.Scale) + s.Focal.Y()
	return mgl32.Vec3{x, y, 0}, nil
}

// WorldToScreen is the inverse of ScreenToWorld.
func (s State) WorldToScreen(p mgl32.Vec3) (mgl32.Vec2, error) {
	if !s.Viewport.Ready() {
		return mgl32.Vec2{}, fmt.Errorf("camera: %w", ErrViewportNotReady)
	}
	w, h := float32(s.Viewport.Width), float32(s.Viewport.Height)
	sx := w * (0.5 - 0.5*s.Scale*(p.Y()-s.Focal.Y()))
	sy := h * (0.5 - 0.5*s.Scale*(p.X()-s.Focal.X()))
	return mgl32.Vec2{sx, sy}, nil
}

// ScreenToWorldPose returns a pose at the world point under p, rotated about
// -Z by heading plus the 90° base rotation of the view. Screen y grows
// downward, so a clockwise screen heading is a negative world yaw.
func (s State) ScreenToWorldPose(p mgl32.Vec2, heading float32) (geom.Transform, error) {
	at, err := s.ScreenToWorld(p)
	if err != nil {
		return geom.Transform{}, err
	}
	return geom.FromAxisAngle(at, mgl32.Vec3{0, 0, -1}, heading+mgl32.DegToRad(90)), nil
}

func (c *Camera) ScreenToWorld(p mgl32.Vec2) (mgl32.Vec3, error) {
	return c.Snapshot().ScreenToWorld(p)
}

func (c *Camera) WorldToScreen(p mgl32.Vec3) (mgl32.Vec2, error) {
	return c.Snapshot().WorldToScreen(p)
}

func (c *Camera) ScreenToWorldPose(p mgl32.Vec2, heading float32) (geom.Transform, error) {
	return c.Snapshot().ScreenToWorldPose(p, heading)
}
