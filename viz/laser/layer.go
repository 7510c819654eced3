package laser

import (
	"fmt"
	"sync/atomic"

	"navview/viz/layer"
	"navview/viz/surface"
	"navview/viz/vertex"
)

// Layer draws the most recent scan as points in the scan's frame.
type Layer struct {
	color     surface.Color
	pointSize float32
	latest    atomic.Pointer[published]
}

type published struct {
	frame string
	buf   vertex.Buffer
}

var (
	_ layer.Layer  = (*Layer)(nil)
	_ layer.Framed = (*Layer)(nil)
)

func NewLayer(c surface.Color, pointSize float32) (*Layer, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("laser: invalid color %+v", c)
	}
	return &Layer{color: c, pointSize: pointSize}, nil
}

// Update publishes a scan. Safe to call from any goroutine.
func (l *Layer) Update(s Scan) error {
	buf, err := vertex.FromFlat(s.Points())
	if err != nil {
		return err
	}
	l.latest.Store(&published{frame: s.Frame, buf: buf})
	return nil
}

// Frame is the frame of the latest scan; there is none before the first.
func (l *Layer) Frame() (string, bool) {
	p := l.latest.Load()
	if p == nil || p.frame == "" {
		return "", false
	}
	return p.frame, true
}

func (l *Layer) Draw(s surface.Surface) error {
	p := l.latest.Load()
	if p == nil {
		return nil
	}
	s.SetPointSize(l.pointSize)
	s.DrawArrays(surface.Points, p.buf, l.color)
	return nil
}
