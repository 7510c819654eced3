package view

import (
	"github.com/go-gl/mathgl/mgl32"

	"navview/viz/surface"
)

// transformStack saves and restores the surface transform around each
// layer. It is owned by the render goroutine for the length of a frame.
type transformStack struct {
	saved  []mgl32.Mat4
	pushes int
	pops   int
}

func (st *transformStack) reset() {
	st.saved = st.saved[:0]
	st.pushes, st.pops = 0, 0
}

func (st *transformStack) push(s surface.Surface) {
	st.saved = append(st.saved, s.Transform())
	st.pushes++
}

func (st *transformStack) pop(s surface.Surface) {
	n := len(st.saved)
	if n == 0 {
		return
	}
	s.LoadTransform(st.saved[n-1])
	st.saved = st.saved[:n-1]
	st.pops++
}

func (st *transformStack) depth() int { return len(st.saved) }
