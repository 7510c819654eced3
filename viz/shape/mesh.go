// Package shape provides posed, scaled, colored drawables built on vertex
// buffers.
package shape

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"navview/viz/geom"
	"navview/viz/surface"
	"navview/viz/vertex"
)

var (
	ErrInvalidColor = errors.New("color channel outside [0,1]")
	ErrInvalidScale = errors.New("scale must be positive")
)

// DefaultPointSize is used by point meshes unless SetPointSize is called.
const DefaultPointSize = 3

// Mesh is a posed, scaled, colored primitive. The vertex buffer is fixed at
// construction; pose, scale and color may be replaced from any goroutine.
type Mesh struct {
	topology surface.Primitive
	buf      vertex.Buffer
	state    atomic.Pointer[meshState]
}

type meshState struct {
	pose      geom.Transform
	scale     float32
	color     surface.Color
	pointSize float32
}

// New builds a mesh over a flat x,y,z vertex array.
func New(topology surface.Primitive, vertices []float32, c surface.Color) (*Mesh, error) {
	switch topology {
	case surface.Points, surface.TriangleFan:
	default:
		return nil, fmt.Errorf("shape: unsupported topology %s", topology)
	}
	if !c.Valid() {
		return nil, fmt.Errorf("shape: %w: %+v", ErrInvalidColor, c)
	}
	buf, err := vertex.FromFlat(vertices)
	if err != nil {
		return nil, fmt.Errorf("shape: %w", err)
	}
	m := &Mesh{topology: topology, buf: buf}
	m.state.Store(&meshState{
		pose:      geom.Identity(),
		scale:     1,
		color:     c,
		pointSize: DefaultPointSize,
	})
	return m, nil
}

// NewTriangleFan builds a filled fan; vertices[0] is the hub.
func NewTriangleFan(vertices []float32, c surface.Color) (*Mesh, error) {
	return New(surface.TriangleFan, vertices, c)
}

func NewPoints(vertices []float32, c surface.Color) (*Mesh, error) {
	return New(surface.Points, vertices, c)
}

func (m *Mesh) Topology() surface.Primitive { return m.topology }
func (m *Mesh) Buffer() vertex.Buffer       { return m.buf }

func (m *Mesh) Pose() geom.Transform { return m.state.Load().pose }
func (m *Mesh) Scale() float32       { return m.state.Load().scale }
func (m *Mesh) Color() surface.Color { return m.state.Load().color }
func (m *Mesh) PointSize() float32   { return m.state.Load().pointSize }

func (m *Mesh) update(fn func(s *meshState)) {
	for {
		old := m.state.Load()
		next := *old
		fn(&next)
		if m.state.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (m *Mesh) SetPose(p geom.Transform) {
	m.update(func(s *meshState) { s.pose = p })
}

func (m *Mesh) SetScale(k float32) error {
	if !(k > 0) {
		return fmt.Errorf("shape: %w: %v", ErrInvalidScale, k)
	}
	m.update(func(s *meshState) { s.scale = k })
	return nil
}

// SetColor rejects colors with any channel outside [0,1].
func (m *Mesh) SetColor(c surface.Color) error {
	if !c.Valid() {
		return fmt.Errorf("shape: %w: %+v", ErrInvalidColor, c)
	}
	m.update(func(s *meshState) { s.color = c })
	return nil
}

func (m *Mesh) SetPointSize(px float32) {
	m.update(func(s *meshState) { s.pointSize = px })
}

// ModelMatrix returns translate(pose) · rotate(angle°, axis) · scale(k).
func (m *Mesh) ModelMatrix() mgl32.Mat4 {
	return modelMatrix(m.state.Load())
}

func modelMatrix(s *meshState) mgl32.Mat4 {
	t := s.pose.Translation
	axis, angle := s.pose.AxisAngle()
	deg := mgl32.RadToDeg(angle)
	return mgl32.Translate3D(t.X(), t.Y(), t.Z()).
		Mul4(mgl32.HomogRotate3D(mgl32.DegToRad(deg), axis)).
		Mul4(mgl32.Scale3D(s.scale, s.scale, s.scale))
}

// Draw multiplies the mesh's model matrix into the current transform and
// issues one draw over the whole buffer. Faces are two-sided.
func (m *Mesh) Draw(sf surface.Surface) error {
	s := m.state.Load()
	sf.MulTransform(modelMatrix(s))
	sf.SetCullFace(false)
	if m.topology == surface.Points {
		sf.SetPointSize(s.pointSize)
	}
	sf.DrawArrays(m.topology, m.buf, s.color)
	return nil
}
