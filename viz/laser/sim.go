package laser

import (
	"github.com/chewxy/math32"
)

// Room simulates a sensor inside an axis-aligned rectangular room centred on
// the origin.
type Room struct {
	HalfWidth  float32 // metres along x
	HalfHeight float32 // metres along y
}

// Sweep returns one raw sweep in millimetres for a sensor at (x, y) facing
// yaw. Blind steps read 0.
func (r Room) Sweep(cfg Configuration, x, y, yaw float32) []int {
	out := make([]int, cfg.TotalSteps)
	inc := cfg.AngleIncrement()
	maxM := float32(cfg.MaxRangeMM) / 1000
	for i := cfg.FirstStep; i < cfg.LastStep && i < len(out); i++ {
		a := yaw + float32(i-cfg.FrontStep)*inc
		d := r.cast(x, y, math32.Cos(a), math32.Sin(a))
		if d > maxM {
			d = maxM + 1
		}
		out[i] = int(d*1000 + 0.5)
	}
	return out
}

func (r Room) cast(x, y, dx, dy float32) float32 {
	best := math32.Inf(1)
	hit := func(t float32) {
		if t > 0 && t < best {
			best = t
		}
	}
	if dx != 0 {
		hit((r.HalfWidth - x) / dx)
		hit((-r.HalfWidth - x) / dx)
	}
	if dy != 0 {
		hit((r.HalfHeight - y) / dy)
		hit((-r.HalfHeight - y) / dy)
	}
	return best
}
