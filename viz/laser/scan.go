// Package laser turns raw range-finder sweeps into scans and draws them as
// point layers.
package laser

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"
)

var ErrInvalidConfiguration = errors.New("invalid laser configuration")

// Configuration is the sensor geometry reported by the device, in device
// steps and millimetres.
type Configuration struct {
	TotalSteps int // steps per full revolution
	FirstStep  int // first step with valid data
	LastStep   int // last step with valid data
	FrontStep  int // step pointing straight ahead
	MotorSpeed int // revolutions per minute
	MinRangeMM int
	MaxRangeMM int
}

// URG04LX is the geometry of a Hokuyo URG-04LX.
var URG04LX = Configuration{
	TotalSteps: 1024,
	FirstStep:  44,
	LastStep:   725,
	FrontStep:  384,
	MotorSpeed: 600,
	MinRangeMM: 20,
	MaxRangeMM: 5600,
}

func (c Configuration) Validate() error {
	switch {
	case c.TotalSteps <= 0:
		return fmt.Errorf("%w: total steps %d", ErrInvalidConfiguration, c.TotalSteps)
	case c.FirstStep < 0 || c.LastStep <= c.FirstStep || c.LastStep > c.TotalSteps:
		return fmt.Errorf("%w: step range [%d,%d) of %d", ErrInvalidConfiguration, c.FirstStep, c.LastStep, c.TotalSteps)
	case c.MotorSpeed <= 0:
		return fmt.Errorf("%w: motor speed %d", ErrInvalidConfiguration, c.MotorSpeed)
	case c.MinRangeMM < 0 || c.MaxRangeMM <= c.MinRangeMM:
		return fmt.Errorf("%w: range [%d,%d] mm", ErrInvalidConfiguration, c.MinRangeMM, c.MaxRangeMM)
	}
	return nil
}

// AngleIncrement is the angle between adjacent steps, in radians.
func (c Configuration) AngleIncrement() float32 {
	return 2 * math32.Pi / float32(c.TotalSteps)
}

// Scan is one sweep in metres and radians, angles measured from the front
// step.
type Scan struct {
	Frame string
	Stamp time.Time

	AngleMin       float32
	AngleMax       float32
	AngleIncrement float32
	TimeIncrement  float32
	ScanTime       float32
	RangeMin       float32
	RangeMax       float32
	Ranges         []float32
}

// NewScan converts a raw sweep indexed by device step. Steps outside
// [FirstStep, LastStep) are blind and ignored.
func NewScan(cfg Configuration, rawMM []int, frame string, stamp time.Time) (Scan, error) {
	if err := cfg.Validate(); err != nil {
		return Scan{}, err
	}
	if len(rawMM) < cfg.LastStep {
		return Scan{}, fmt.Errorf("laser: sweep has %d steps, need %d", len(rawMM), cfg.LastStep)
	}
	inc := cfg.AngleIncrement()
	s := Scan{
		Frame:          frame,
		Stamp:          stamp,
		AngleIncrement: inc,
		AngleMin:       float32(cfg.FirstStep-cfg.FrontStep) * inc,
		AngleMax:       float32(cfg.LastStep-cfg.FrontStep) * inc,
		TimeIncrement:  60 / (float32(cfg.MotorSpeed) * float32(cfg.TotalSteps)),
		ScanTime:       60 / float32(cfg.MotorSpeed),
		RangeMin:       float32(cfg.MinRangeMM) / 1000,
		RangeMax:       float32(cfg.MaxRangeMM) / 1000,
		Ranges:         make([]float32, cfg.LastStep-cfg.FirstStep),
	}
	for i := range s.Ranges {
		s.Ranges[i] = float32(rawMM[i+cfg.FirstStep]) / 1000
	}
	return s, nil
}

// Points returns x,y,z triples for every range inside [RangeMin, RangeMax].
func (s Scan) Points() []float32 {
	out := make([]float32, 0, len(s.Ranges)*3)
	for i, r := range s.Ranges {
		if r < s.RangeMin || r > s.RangeMax {
			continue
		}
		a := s.AngleMin + float32(i)*s.AngleIncrement
		out = append(out, r*math32.Cos(a), r*math32.Sin(a), 0)
	}
	return out
}

// ClockOffset corrects device timestamps against an external wall clock.
type ClockOffset struct {
	d atomic.Int64
}

// Sync records the difference between a wall-clock reading and the local
// time it was received at.
func (c *ClockOffset) Sync(wall, local time.Time) {
	c.d.Store(int64(wall.Sub(local)))
}

func (c *ClockOffset) Offset() time.Duration { return time.Duration(c.d.Load()) }

// Apply shifts a local timestamp onto the wall clock.
func (c *ClockOffset) Apply(t time.Time) time.Time { return t.Add(c.Offset()) }
