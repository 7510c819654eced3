// Package app wires the viewer: frame tree, layers, renderer, HUD, input
// handling and the simulated robot that feeds transforms and laser scans.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"navview/config"
	"navview/hal"
	"navview/internal/buildinfo"
	"navview/viz/frames"
	"navview/viz/laser"
	"navview/viz/layer"
	"navview/viz/raster"
	"navview/viz/view"
)

// Viewer is one running navigation view bound to a host framebuffer.
type Viewer struct {
	cfg config.Config
	log *slog.Logger

	tree   *frames.Tree
	static map[string]bool // children of config frame edges
	rend   *view.Renderer
	robot  layer.Layer
	goal   *goalLayer
	scans  *laser.Layer
	sim    *simulation

	fb     hal.Framebuffer
	target *raster.RGB565Target
	canvas *raster.Canvas
	w, h   int
	hud    *hud
	picks  chan mgl32.Vec2

	stats atomic.Pointer[view.FrameStats]
}

// New builds a viewer drawing into h's framebuffer.
func New(cfg config.Config, h hal.HAL, log *slog.Logger) (*Viewer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		level, _ := cfg.Level()
		log = slog.New(slog.NewTextHandler(hal.LineWriter{L: h.Logger()}, &slog.HandlerOptions{Level: level}))
	}

	tree := frames.NewTree()
	v := &Viewer{cfg: cfg, log: log, tree: tree, static: make(map[string]bool)}
	if err := v.setStaticFrames(cfg.Frames); err != nil {
		return nil, err
	}

	bg, err := config.ParseColor(cfg.Background, 1)
	if err != nil {
		return nil, err
	}
	rend := view.New(tree, view.WithLogger(log), view.WithClearColor(bg))
	rend.SetFixedFrame(cfg.FixedFrame)
	if err := rend.SetScalingFactor(cfg.Scale); err != nil {
		return nil, err
	}
	v.rend = rend

	if v.goal, err = newGoalLayer(); err != nil {
		return nil, err
	}
	if cfg.Robot.Frame != "" {
		robot, err := robotMesh(cfg.Robot)
		if err != nil {
			return nil, err
		}
		v.robot = layer.InFrame(cfg.Robot.Frame, robot)
		if v.sim, err = newSimulation(cfg, tree, log); err != nil {
			return nil, err
		}
		// Seed the robot pose so the first frame resolves.
		if err := v.sim.moveRobot(0); err != nil {
			return nil, err
		}
	}
	laserColor, err := config.ParseColor(cfg.Laser.Color, 1)
	if err != nil {
		return nil, err
	}
	if v.scans, err = laser.NewLayer(laserColor, cfg.Laser.PointSize); err != nil {
		return nil, err
	}

	layers, err := v.compose(cfg.Markers)
	if err != nil {
		return nil, err
	}
	rend.SetLayers(layers)

	if cfg.LockFrame != "" {
		rend.SetTargetFrame(cfg.LockFrame)
	}

	v.fb = h.Display().Framebuffer()
	v.target = &raster.RGB565Target{}
	v.canvas = raster.NewCanvas(v.target)
	v.canvas.SetUnitScale(cfg.PixelsPerUnit)
	v.picks = make(chan mgl32.Vec2, 8)
	v.hud = newHUD(v.fb)
	rend.OnSurfaceCreated(v.canvas)
	v.stats.Store(&view.FrameStats{})
	return v, nil
}

// compose builds the layer list: markers, goal, robot, then the laser scan
// on top.
func (v *Viewer) compose(markers []config.Marker) ([]layer.Layer, error) {
	var layers []layer.Layer
	for _, m := range markers {
		l, err := markerLayer(m)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	layers = append(layers, v.goal)
	if v.robot != nil {
		layers = append(layers, v.robot)
	}
	return append(layers, v.scans), nil
}

// setStaticFrames applies the configured frame edges and removes edges a
// previous configuration added that are gone now. A rejected edge set
// leaves the tree as it was.
func (v *Viewer) setStaticFrames(edges []config.Frame) error {
	next := make(map[string]bool, len(edges))
	batch := make([]frames.Edge, 0, len(edges))
	for _, f := range edges {
		batch = append(batch, frames.Edge{Parent: f.Parent, Child: f.Child, Transform: f.Transform()})
		next[f.Child] = true
	}
	var drop []string
	for child := range v.static {
		if !next[child] {
			drop = append(drop, child)
		}
	}
	if err := v.tree.Apply(batch, drop); err != nil {
		return fmt.Errorf("app: frames: %w", err)
	}
	v.static = next
	return nil
}

// Reload applies the markers and static frames of cfg. Camera, robot and
// window settings stay as they are.
func (v *Viewer) Reload(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	layers, err := v.compose(cfg.Markers)
	if err != nil {
		return err
	}
	if err := v.setStaticFrames(cfg.Frames); err != nil {
		return err
	}
	v.rend.SetLayers(layers)
	v.log.Info("config reloaded", "source", cfg.Source, "markers", len(cfg.Markers), "frames", len(cfg.Frames))
	return nil
}

// Renderer exposes the view for callers that drive it directly.
func (v *Viewer) Renderer() *view.Renderer { return v.rend }

// Tree returns the frame tree fed by configuration and simulation.
func (v *Viewer) Tree() *frames.Tree { return v.tree }

// LastStats reports the statistics of the most recent frame.
func (v *Viewer) LastStats() view.FrameStats { return *v.stats.Load() }

// Step renders one frame into the framebuffer and presents it.
func (v *Viewer) Step() error {
	if v.fb == nil {
		return hal.ErrNotImplemented
	}
	w, h := v.fb.Width(), v.fb.Height()
	v.target.Buf = v.fb.Buffer()
	v.target.Stride = v.fb.StrideBytes()
	v.target.W, v.target.H = w, h
	if w != v.w || h != v.h {
		if err := v.rend.OnSurfaceChanged(v.canvas, w, h); err != nil {
			return err
		}
		v.w, v.h = w, h
	}

	v.drainPicks()
	stats := v.rend.OnDrawFrame(v.canvas)
	v.stats.Store(&stats)
	v.hud.draw(v.rend, stats)
	return v.fb.Present()
}

// Start returns a host entrypoint: it builds the viewer, starts input and
// simulation loops bound to ctx, and hands back the per-frame step.
func Start(ctx context.Context, cfg config.Config, log *slog.Logger) func(hal.HAL) func() error {
	return func(h hal.HAL) func() error {
		v, err := New(cfg, h, log)
		if err != nil {
			return func() error { return err }
		}
		v.log.Info("viewer started",
			"build", buildinfo.Describe(),
			"config", cfg.Source,
			"fixed", v.rend.FixedFrame(),
			"scale", v.rend.ScalingFactor(),
			"layers", len(v.rend.Layers()))

		if in := h.Input(); in != nil {
			go v.runInput(ctx, in)
		}
		if v.sim != nil && h.Time() != nil {
			go v.sim.run(ctx, h.Time().Ticks(), v.scans)
		}
		if cfg.Watch && cfg.Source != "" {
			go v.watch(ctx, cfg.Source)
		}
		return v.Step
	}
}

func (v *Viewer) watch(ctx context.Context, path string) {
	err := config.Watch(ctx, path, func(cfg config.Config) {
		if err := v.Reload(cfg); err != nil {
			v.log.Warn("config reload rejected", "err", err)
		}
	}, func(err error) {
		v.log.Warn("config reload failed", "err", err)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		v.log.Warn("config watch stopped", "err", err)
	}
}
