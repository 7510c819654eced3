package view

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navview/viz/camera"
	"navview/viz/frames"
	"navview/viz/geom"
	"navview/viz/layer"
	"navview/viz/raster"
	"navview/viz/surface"
	"navview/viz/vertex"
)

const eps = 1e-4

// recordingSurface tracks transforms and draws without rasterizing.
type recordingSurface struct {
	xf      mgl32.Mat4
	clears  int
	resized [2]int
	blend   bool
}

func newRecordingSurface() *recordingSurface { return &recordingSurface{xf: mgl32.Ident4()} }

func (s *recordingSurface) Size() (int, int)           { return s.resized[0], s.resized[1] }
func (s *recordingSurface) Clear(surface.Color)        { s.clears++ }
func (s *recordingSurface) Transform() mgl32.Mat4      { return s.xf }
func (s *recordingSurface) LoadTransform(m mgl32.Mat4) { s.xf = m }
func (s *recordingSurface) MulTransform(m mgl32.Mat4)  { s.xf = s.xf.Mul4(m) }
func (s *recordingSurface) SetCullFace(bool)           {}
func (s *recordingSurface) SetPointSize(float32)       {}
func (s *recordingSurface) DrawArrays(surface.Primitive, vertex.Buffer, surface.Color) {
}
func (s *recordingSurface) Resize(w, h int)  { s.resized = [2]int{w, h} }
func (s *recordingSurface) SetBlend(on bool) { s.blend = on }

// spyLayer records the transform it was drawn with and then disturbs it.
type spyLayer struct {
	frame string
	err   error
	panic bool
	draws []mgl32.Mat4
}

func (p *spyLayer) Frame() (string, bool) { return p.frame, p.frame != "" }

func (p *spyLayer) Draw(s surface.Surface) error {
	p.draws = append(p.draws, s.Transform())
	s.MulTransform(mgl32.Translate3D(100, 100, 0))
	if p.panic {
		panic("layer blew up")
	}
	return p.err
}

func mapTree(t *testing.T) *frames.Tree {
	t.Helper()
	tree := frames.NewTree()
	require.NoError(t, tree.Set("/map", "/base_link", geom.Planar(2, 0, 0)))
	require.NoError(t, tree.Set("/base_link", "/laser", geom.Planar(1, 0, 0)))
	return tree
}

func TestUnresolvableLayerStillDrawn(t *testing.T) {
	tree := frames.NewTree() // knows nothing about /laser
	r := New(tree)
	a := &spyLayer{frame: "/laser"}
	b := &spyLayer{}
	r.SetLayers([]layer.Layer{a, b})

	s := newRecordingSurface()
	require.NoError(t, r.OnSurfaceChanged(s, 800, 480))
	var stats FrameStats
	require.NotPanics(t, func() { stats = r.OnDrawFrame(s) })

	require.Len(t, a.draws, 1)
	require.Len(t, b.draws, 1)
	view := camera.ViewMatrix(r.CameraModel().Snapshot())
	assert.True(t, a.draws[0].ApproxEqualThreshold(view, eps))
	assert.True(t, b.draws[0].ApproxEqualThreshold(view, eps))
	assert.Equal(t, FrameStats{Layers: 2, Drawn: 2, Degraded: 1, Pushes: 2, Pops: 2}, stats)
}

func TestPushPopBalancedOnEveryPath(t *testing.T) {
	r := New(mapTree(t))
	layers := []layer.Layer{
		&spyLayer{frame: "/laser"},
		&spyLayer{frame: "/unknown"},
		&spyLayer{err: errors.New("draw failed")},
		&spyLayer{panic: true},
		&spyLayer{},
	}
	r.SetLayers(layers)
	s := newRecordingSurface()
	require.NoError(t, r.OnSurfaceChanged(s, 100, 100))

	stats := r.OnDrawFrame(s)
	assert.Equal(t, len(layers), stats.Pushes)
	assert.Equal(t, len(layers), stats.Pops)
	assert.Equal(t, 0, r.stack.depth())
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 1, stats.Degraded)
	assert.Equal(t, 3, stats.Drawn)

	// Every layer starts from the camera transform or its own frame chain,
	// never from a neighbour's leftovers.
	view := camera.ViewMatrix(r.CameraModel().Snapshot())
	for _, l := range layers[1:] {
		assert.True(t, l.(*spyLayer).draws[0].ApproxEqualThreshold(view, eps))
	}
	assert.True(t, s.xf.ApproxEqualThreshold(view, eps))
}

func TestLayerFrameChainApplied(t *testing.T) {
	r := New(mapTree(t))
	p := &spyLayer{frame: "/laser"}
	r.SetLayers([]layer.Layer{p})
	s := newRecordingSurface()
	require.NoError(t, r.OnSurfaceChanged(s, 100, 100))
	require.NoError(t, r.SetScalingFactor(1))

	r.OnDrawFrame(s)
	require.Len(t, p.draws, 1)

	// Laser origin sits at (3,0) in /map.
	want := camera.ViewMatrix(r.CameraModel().Snapshot()).Mul4x1(mgl32.Vec4{3, 0, 0, 1})
	got := p.draws[0].Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.True(t, got.ApproxEqualThreshold(want, eps), "got %v want %v", got, want)
}

func TestLayerOrderIsPainters(t *testing.T) {
	tgt := raster.NewRGBATarget(40, 40)
	canvas := raster.NewCanvas(tgt)
	r := New(nil, WithClearColor(surface.RGBA(0, 0, 0, 1)))
	require.NoError(t, r.OnSurfaceChanged(canvas, 40, 40))
	require.NoError(t, r.SetScalingFactor(1))

	square := func(c surface.Color) layer.Layer {
		return layer.Func(func(s surface.Surface) error {
			b, err := vertex.FromFlat([]float32{-5, -5, 0, 5, -5, 0, 5, 5, 0, -5, 5, 0})
			if err != nil {
				return err
			}
			s.DrawArrays(surface.TriangleFan, b, c)
			return nil
		})
	}
	r.SetLayers([]layer.Layer{square(surface.RGBA(1, 0, 0, 1)), square(surface.RGBA(0, 0, 1, 1))})
	r.OnDrawFrame(canvas)

	px := tgt.Pixel(20, 20)
	assert.Equal(t, uint8(0), px.R)
	assert.Equal(t, uint8(0xFF), px.B)
}

func TestSetFixedFrameClearsLock(t *testing.T) {
	r := New(mapTree(t))
	r.SetTargetFrame("/base_link")
	r.SetCamera(mgl32.Vec3{4, 4, 0})
	r.SetTargetFrame("/base_link")

	r.SetFixedFrame("/base_link")
	_, locked := r.LockedFrame()
	assert.False(t, locked)
	assert.Equal(t, mgl32.Vec3{}, r.Camera())
	assert.Equal(t, "/base_link", r.FixedFrame())

	r.SetFixedFrame("")
	assert.Equal(t, DefaultFixedFrame, r.FixedFrame())

	r.SetFixedFrame("/odom")
	r.ResetFixedFrame()
	assert.Equal(t, DefaultFixedFrame, r.FixedFrame())
}

func TestFixedFrameChangeIsAtomicWithRecentre(t *testing.T) {
	r := New(mapTree(t))
	const rounds = 500

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= rounds; i++ {
			r.SetFixedFrame(fmt.Sprintf("/f%d", i))
			r.SetCamera(mgl32.Vec3{float32(i + 1), 0, 0})
		}
	}()

	// Under /fN the focal is 0 (just recentred) or N+1 (moved after); the
	// focal N of the previous frame must never pair with /fN.
	for {
		select {
		case <-done:
			return
		default:
		}
		fixed, state, _ := r.resolve()
		var n int
		if _, err := fmt.Sscanf(fixed, "/f%d", &n); err != nil {
			continue
		}
		require.NotEqual(t, float32(n), state.Focal.X(), "fixed %s with stale focal", fixed)
	}
}

func TestLockedCameraFollowsFrame(t *testing.T) {
	r := New(mapTree(t))
	s := newRecordingSurface()
	require.NoError(t, r.OnSurfaceChanged(s, 100, 100))
	r.SetTargetFrame("/laser")

	stats := r.OnDrawFrame(s)
	assert.True(t, stats.Locked)
	assert.True(t, r.Camera().ApproxEqualThreshold(mgl32.Vec3{3, 0, 0}, eps))

	r.MoveCamera(1, 0)
	_, locked := r.LockedFrame()
	assert.False(t, locked)
	stats = r.OnDrawFrame(s)
	assert.False(t, stats.Locked)
	assert.True(t, r.Camera().ApproxEqualThreshold(mgl32.Vec3{4, 0, 0}, eps))
}

func TestSurfaceChanged(t *testing.T) {
	r := New(nil)
	s := newRecordingSurface()
	assert.Error(t, r.OnSurfaceChanged(s, 0, 10))

	_, err := r.ToWorldCoordinates(mgl32.Vec2{1, 1})
	assert.ErrorIs(t, err, camera.ErrViewportNotReady)

	require.NoError(t, r.OnSurfaceChanged(s, 800, 480))
	assert.Equal(t, [2]int{800, 480}, s.resized)
	assert.True(t, s.blend)

	got, err := r.ToWorldCoordinates(mgl32.Vec2{0, 0})
	require.NoError(t, err)
	assert.True(t, got.ApproxEqualThreshold(mgl32.Vec3{10, 10, 0}, eps))

	pose, err := r.ToWorldPose(mgl32.Vec2{400, 240}, 0)
	require.NoError(t, err)
	assert.InDelta(t, -mgl32.DegToRad(90), pose.Yaw(), eps)
}

func TestSetLayersCopies(t *testing.T) {
	r := New(nil)
	ls := []layer.Layer{&spyLayer{}, nil, &spyLayer{}}
	r.SetLayers(ls)
	ls[0] = nil
	got := r.Layers()
	assert.Len(t, got, 2)
	assert.NotNil(t, got[0])
}

func TestDiagnosticsRateLimited(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	r := New(frames.NewTree(), WithLogger(log), WithDiagInterval(time.Hour))
	r.SetLayers([]layer.Layer{&spyLayer{frame: "/laser"}})
	s := newRecordingSurface()
	require.NoError(t, r.OnSurfaceChanged(s, 10, 10))

	for i := 0; i < 10; i++ {
		r.OnDrawFrame(s)
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "drawing layer in camera frame"))
}

func TestCameraPassThrough(t *testing.T) {
	r := New(nil)
	assert.ErrorIs(t, r.ZoomCamera(0), camera.ErrInvalidScale)
	require.NoError(t, r.ZoomCamera(2))
	assert.InDelta(t, 0.2, r.ScalingFactor(), eps)

	assert.ErrorIs(t, r.MoveCameraScreenCoordinates(1, 1), camera.ErrViewportNotReady)
	require.NoError(t, r.OnSurfaceChanged(newRecordingSurface(), 100, 100))
	require.NoError(t, r.MoveCameraScreenCoordinates(0, 20))
	assert.True(t, r.Camera().ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, eps))

	r.SetTargetFrame("/x")
	r.ResetTargetFrame()
	_, locked := r.LockedFrame()
	assert.False(t, locked)
}
