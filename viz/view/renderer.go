// Package view drives one rendering frame: it applies the camera transform,
// then draws each layer in order inside its own transform scope, resolving
// the layer's frame against the fixed frame first.
//
// Layers are drawn painter's-style: index 0 first, later layers on top, no
// depth test. A layer whose frame cannot be resolved is still drawn, in the
// camera frame, and a rate-limited warning is logged. Nothing a layer does
// can escape OnDrawFrame.
package view

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"navview/viz/camera"
	"navview/viz/frames"
	"navview/viz/geom"
	"navview/viz/layer"
	"navview/viz/surface"
)

// DefaultFixedFrame is the root frame used when none is set.
const DefaultFixedFrame = "/map"

// Resizer is implemented by surfaces that own a projection and need to
// follow the viewport size.
type Resizer interface {
	Resize(w, h int)
}

// Blender is implemented by surfaces with switchable alpha blending.
type Blender interface {
	SetBlend(on bool)
}

// FrameStats describes one rendered frame.
type FrameStats struct {
	Layers   int
	Drawn    int
	Degraded int // drawn in the camera frame because their frame did not resolve
	Failed   int // draw returned an error or panicked
	Pushes   int
	Pops     int
	Locked   bool // camera lock resolved this frame
}

// Renderer owns the camera, fixed frame and layer list of one view.
type Renderer struct {
	cam   *camera.Camera
	graph frames.Graph

	// sceneMu pairs the fixed frame with the camera recentre that goes with
	// it, so a frame never sees one without the other.
	sceneMu sync.Mutex
	fixed   atomic.Pointer[string]
	layers  atomic.Pointer[[]layer.Layer]

	clear surface.Color
	log   *slog.Logger
	diag  *diagnostics
	stack transformStack
}

type Option func(*Renderer)

func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

func WithClearColor(c surface.Color) Option {
	return func(r *Renderer) { r.clear = c }
}

func WithCamera(c *camera.Camera) Option {
	return func(r *Renderer) {
		if c != nil {
			r.cam = c
		}
	}
}

// WithDiagInterval sets the minimum spacing of repeated per-layer warnings.
func WithDiagInterval(d time.Duration) Option {
	return func(r *Renderer) { r.diag.interval = d }
}

// New creates a renderer reading transforms from graph.
func New(graph frames.Graph, opts ...Option) *Renderer {
	r := &Renderer{
		cam:   camera.New(),
		graph: graph,
		clear: surface.RGBA(0, 0, 0, 0),
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	r.diag = newDiagnostics(r.log, DefaultDiagInterval)
	for _, opt := range opts {
		opt(r)
	}
	r.diag.log = r.log
	fixed := DefaultFixedFrame
	r.fixed.Store(&fixed)
	empty := []layer.Layer{}
	r.layers.Store(&empty)
	return r
}

// CameraModel returns the underlying camera.
func (r *Renderer) CameraModel() *camera.Camera { return r.cam }

// SetFixedFrame changes the frame everything is rendered in and recenters
// the camera on its origin, which also drops any lock.
func (r *Renderer) SetFixedFrame(frame string) {
	if frame == "" {
		frame = DefaultFixedFrame
	}
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	r.cam.Set(mgl32.Vec3{})
	r.fixed.Store(&frame)
}

func (r *Renderer) ResetFixedFrame() { r.SetFixedFrame(DefaultFixedFrame) }

func (r *Renderer) FixedFrame() string { return *r.fixed.Load() }

// SetLayers publishes a new layer list. The slice is copied.
func (r *Renderer) SetLayers(layers []layer.Layer) {
	cp := make([]layer.Layer, 0, len(layers))
	for _, l := range layers {
		if l != nil {
			cp = append(cp, l)
		}
	}
	r.layers.Store(&cp)
}

// Layers returns a copy of the current layer list.
func (r *Renderer) Layers() []layer.Layer {
	cur := *r.layers.Load()
	out := make([]layer.Layer, len(cur))
	copy(out, cur)
	return out
}

func (r *Renderer) MoveCamera(dx, dy float32) { r.cam.Move(dx, dy) }

func (r *Renderer) MoveCameraScreenCoordinates(dxPix, dyPix float32) error {
	return r.cam.MoveScreen(dxPix, dyPix)
}

func (r *Renderer) SetCamera(p mgl32.Vec3)     { r.cam.Set(p) }
func (r *Renderer) Camera() mgl32.Vec3         { return r.cam.Focal() }
func (r *Renderer) ZoomCamera(f float32) error { return r.cam.Zoom(f) }

func (r *Renderer) SetScalingFactor(k float32) error { return r.cam.SetScale(k) }
func (r *Renderer) ScalingFactor() float32           { return r.cam.Scale() }

func (r *Renderer) ToWorldCoordinates(p mgl32.Vec2) (mgl32.Vec3, error) {
	return r.cam.ScreenToWorld(p)
}

func (r *Renderer) ToWorldPose(p mgl32.Vec2, heading float32) (geom.Transform, error) {
	return r.cam.ScreenToWorldPose(p, heading)
}

func (r *Renderer) SetTargetFrame(frame string) { r.cam.LockTo(frame) }
func (r *Renderer) ResetTargetFrame()           { r.cam.ResetLock() }
func (r *Renderer) LockedFrame() (string, bool) { return r.cam.LockedFrame() }

// OnSurfaceCreated is called once when the host surface exists.
func (r *Renderer) OnSurfaceCreated(s surface.Surface) {
	w, h := s.Size()
	r.log.Debug("surface created", "width", w, "height", h)
}

// OnSurfaceChanged records the new viewport and resets the surface's
// projection and blend state.
func (r *Renderer) OnSurfaceChanged(s surface.Surface, w, h int) error {
	if err := r.cam.SetViewport(w, h); err != nil {
		return fmt.Errorf("view: %w", err)
	}
	if rs, ok := s.(Resizer); ok {
		rs.Resize(w, h)
	}
	if b, ok := s.(Blender); ok {
		b.SetBlend(true)
	}
	r.log.Info("surface changed", "width", w, "height", h)
	return nil
}

// OnDrawFrame resolves the camera and renders the current layer list.
func (r *Renderer) OnDrawFrame(s surface.Surface) (stats FrameStats) {
	defer func() {
		if p := recover(); p != nil {
			r.diag.warn("frame", "frame aborted", "panic", p)
		}
	}()
	fixed, state, locked := r.resolve()
	if frame, want := state.Target.Frame(); want && !locked {
		r.diag.warn("lock:"+frame, "camera lock unresolved", "frame", frame, "fixed", fixed)
	}
	stats = r.RenderFrame(s, *r.layers.Load(), state, fixed)
	stats.Locked = locked
	return stats
}

// resolve reads the fixed frame and the camera for one frame.
func (r *Renderer) resolve() (fixed string, state camera.State, locked bool) {
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	fixed = r.FixedFrame()
	state, locked = r.cam.Resolve(r.graph, fixed)
	return fixed, state, locked
}

// RenderFrame clears s, applies the camera view and draws layers in order.
func (r *Renderer) RenderFrame(s surface.Surface, layers []layer.Layer, state camera.State, fixed string) FrameStats {
	stats := FrameStats{Layers: len(layers)}
	r.stack.reset()

	s.Clear(r.clear)
	s.LoadTransform(mgl32.Ident4())
	s.MulTransform(camera.ViewMatrix(state))

	for i, l := range layers {
		r.drawLayer(s, i, l, fixed, &stats)
	}
	stats.Pushes, stats.Pops = r.stack.pushes, r.stack.pops
	return stats
}

func (r *Renderer) drawLayer(s surface.Surface, index int, l layer.Layer, fixed string, stats *FrameStats) {
	r.stack.push(s)
	defer func() {
		if p := recover(); p != nil {
			stats.Failed++
			r.diag.warn(fmt.Sprintf("layer:%d", index), "layer draw panicked", "layer", index, "panic", p)
		}
		r.stack.pop(s)
	}()

	if frame, ok := layer.FrameOf(l); ok {
		if err := r.applyFrame(s, frame, fixed); err != nil {
			stats.Degraded++
			r.diag.warn("frame:"+frame, "drawing layer in camera frame", "layer", index, "err", err)
		}
	}

	if err := l.Draw(s); err != nil {
		stats.Failed++
		r.diag.warn(fmt.Sprintf("layer:%d", index), "layer draw failed", "layer", index, "err", err)
		return
	}
	stats.Drawn++
}

// applyFrame multiplies the frame→fixed chain into the current transform,
// innermost hop applied to vertices first.
func (r *Renderer) applyFrame(s surface.Surface, frame, fixed string) error {
	if r.graph == nil || !r.graph.CanTransform(frame, fixed) {
		return fmt.Errorf("%w: %s -> %s", frames.ErrUnresolvableFrame, frame, fixed)
	}
	hops, err := r.graph.LookupChain(frame, fixed)
	if err != nil {
		return err
	}
	s.MulTransform(geom.ChainMat4(hops))
	return nil
}
