package shape

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navview/viz/geom"
	"navview/viz/surface"
	"navview/viz/vertex"
)

type drawCall struct {
	p     surface.Primitive
	count int
	c     surface.Color
	xf    mgl32.Mat4
}

type recorder struct {
	xf    mgl32.Mat4
	cull  bool
	point float32
	calls []drawCall
}

func newRecorder() *recorder { return &recorder{xf: mgl32.Ident4(), cull: true} }

func (r *recorder) Size() (int, int)           { return 100, 100 }
func (r *recorder) Clear(surface.Color)        {}
func (r *recorder) Transform() mgl32.Mat4      { return r.xf }
func (r *recorder) LoadTransform(m mgl32.Mat4) { r.xf = m }
func (r *recorder) MulTransform(m mgl32.Mat4)  { r.xf = r.xf.Mul4(m) }
func (r *recorder) SetCullFace(on bool)        { r.cull = on }
func (r *recorder) SetPointSize(px float32)    { r.point = px }
func (r *recorder) DrawArrays(p surface.Primitive, v vertex.Buffer, c surface.Color) {
	r.calls = append(r.calls, drawCall{p: p, count: v.Count(), c: c, xf: r.xf})
}

var white = surface.RGBA(1, 1, 1, 1)

func TestNewRejectsMalformedGeometry(t *testing.T) {
	m, err := NewTriangleFan([]float32{0, 0, 0, 1}, white)
	assert.ErrorIs(t, err, vertex.ErrInvalidGeometry)
	assert.Nil(t, m)
}

func TestNewRejectsBadColor(t *testing.T) {
	m, err := NewPoints([]float32{0, 0, 0}, surface.RGBA(2, 0, 0, 1))
	assert.ErrorIs(t, err, ErrInvalidColor)
	assert.Nil(t, m)
}

func TestNewDefaults(t *testing.T) {
	m, err := NewTriangleFan([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, white)
	require.NoError(t, err)
	assert.True(t, m.Pose().ApproxEqual(geom.Identity(), 1e-6))
	assert.Equal(t, float32(1), m.Scale())
	assert.Equal(t, white, m.Color())
	assert.Equal(t, 3, m.Buffer().Count())
}

func TestSetters(t *testing.T) {
	m, err := NewPoints([]float32{0, 0, 0}, white)
	require.NoError(t, err)

	assert.ErrorIs(t, m.SetScale(0), ErrInvalidScale)
	assert.ErrorIs(t, m.SetScale(-1), ErrInvalidScale)
	assert.Equal(t, float32(1), m.Scale())
	require.NoError(t, m.SetScale(2))
	assert.Equal(t, float32(2), m.Scale())

	assert.ErrorIs(t, m.SetColor(surface.RGBA(0, 0, -0.5, 1)), ErrInvalidColor)
	assert.Equal(t, white, m.Color())
	blue := surface.RGBA(0, 0, 1, 0.5)
	require.NoError(t, m.SetColor(blue))
	assert.Equal(t, blue, m.Color())
}

func TestDrawComposesPoseRotationScale(t *testing.T) {
	m, err := NewTriangleFan([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, white)
	require.NoError(t, err)
	m.SetPose(geom.Planar(2, 3, math32.Pi/2))
	require.NoError(t, m.SetScale(2))

	r := newRecorder()
	require.NoError(t, m.Draw(r))

	require.Len(t, r.calls, 1)
	call := r.calls[0]
	assert.Equal(t, surface.TriangleFan, call.p)
	assert.Equal(t, 3, call.count)
	assert.False(t, r.cull)

	// (1,0,0) scaled to (2,0,0), rotated to (0,2,0), moved to (2,5,0).
	got := call.xf.Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	assert.True(t, got.ApproxEqualThreshold(mgl32.Vec3{2, 5, 0}, 1e-4), "got %v", got)
}

func TestDrawPointsSetsSize(t *testing.T) {
	m, err := NewPoints([]float32{0, 0, 0, 1, 1, 0}, white)
	require.NoError(t, err)
	m.SetPointSize(5)

	r := newRecorder()
	require.NoError(t, m.Draw(r))
	assert.Equal(t, float32(5), r.point)
	assert.Equal(t, surface.Points, r.calls[0].p)
}
