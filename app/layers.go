package app

import (
	"sync/atomic"

	"navview/config"
	"navview/viz/geom"
	"navview/viz/layer"
	"navview/viz/shape"
	"navview/viz/surface"
)

var (
	goalArrow = []float32{
		0, 0, 0,
		0.4, 0, 0,
		-0.2, 0.25, 0,
		-0.1, 0, 0,
		-0.2, -0.25, 0,
		0.4, 0, 0,
	}
	robotHull = []float32{
		0, 0, 0,
		0.3, 0, 0,
		0.15, 0.2, 0,
		-0.2, 0.2, 0,
		-0.2, -0.2, 0,
		0.15, -0.2, 0,
		0.3, 0, 0,
	}
	goalColor = surface.RGBA(0.2, 1, 0.3, 0.8)
)

func markerLayer(m config.Marker) (layer.Layer, error) {
	prim, err := m.Primitive()
	if err != nil {
		return nil, err
	}
	c, err := config.ParseColor(m.Color, m.Alpha)
	if err != nil {
		return nil, err
	}
	mesh, err := shape.New(prim, m.Vertices, c)
	if err != nil {
		return nil, err
	}
	return layer.NewGroup(m.Name, m.Frame, mesh), nil
}

func robotMesh(r config.Robot) (*shape.Mesh, error) {
	c, err := config.ParseColor(r.Color, 1)
	if err != nil {
		return nil, err
	}
	return shape.NewTriangleFan(robotHull, c)
}

// goalLayer draws the last clicked goal in the frame it was picked in. Each
// pick publishes a fresh mesh together with its frame, so a draw never pairs
// one goal's frame with another goal's pose.
type goalLayer struct {
	cur atomic.Pointer[goal]
}

type goal struct {
	frame string
	mesh  *shape.Mesh
}

func newGoalLayer() (*goalLayer, error) {
	// Build once up front so a bad arrow fails at startup, not on first click.
	if _, err := shape.NewTriangleFan(goalArrow, goalColor); err != nil {
		return nil, err
	}
	g := &goalLayer{}
	g.cur.Store(&goal{})
	return g, nil
}

func (g *goalLayer) set(frame string, pose geom.Transform) error {
	m, err := shape.NewTriangleFan(goalArrow, goalColor)
	if err != nil {
		return err
	}
	m.SetPose(pose)
	g.cur.Store(&goal{frame: frame, mesh: m})
	return nil
}

func (g *goalLayer) clear() { g.cur.Store(&goal{}) }

func (g *goalLayer) Frame() (string, bool) {
	f := g.cur.Load().frame
	return f, f != ""
}

// pose is the published goal pose, identity when no goal is set.
func (g *goalLayer) pose() geom.Transform {
	c := g.cur.Load()
	if c.mesh == nil {
		return geom.Identity()
	}
	return c.mesh.Pose()
}

func (g *goalLayer) Draw(s surface.Surface) error {
	c := g.cur.Load()
	if c.frame == "" {
		return nil
	}
	return c.mesh.Draw(s)
}
