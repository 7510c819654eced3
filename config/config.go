// Package config loads the viewer configuration from TOML or YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"navview/viz/camera"
	"navview/viz/geom"
	"navview/viz/laser"
	"navview/viz/surface"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	FixedFrame string  `toml:"fixed_frame" yaml:"fixed_frame"`
	LockFrame  string  `toml:"lock_frame" yaml:"lock_frame"`
	Scale      float32 `toml:"scale" yaml:"scale"`
	Background string  `toml:"background" yaml:"background"`
	// PixelsPerUnit is how many pixels one world unit covers at scale 1.
	PixelsPerUnit float32 `toml:"pixels_per_unit" yaml:"pixels_per_unit"`

	Window   Window   `toml:"window" yaml:"window"`
	Headless Headless `toml:"headless" yaml:"headless"`
	Laser    Laser    `toml:"laser" yaml:"laser"`
	Frames   []Frame  `toml:"frames" yaml:"frames"`
	Markers  []Marker `toml:"markers" yaml:"markers"`
	Robot    Robot    `toml:"robot" yaml:"robot"`

	// LogLevel is a slog level name: debug, info, warn or error.
	LogLevel string `toml:"log_level" yaml:"log_level"`

	// Watch reloads markers and static frames when the file changes.
	Watch bool `toml:"watch" yaml:"watch"`
	// Source is the file the config was loaded from, if any.
	Source string `toml:"-" yaml:"-"`
}

type Window struct {
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
	Title  string `toml:"title" yaml:"title"`
}

type Headless struct {
	Hz    int    `toml:"hz" yaml:"hz"`
	Ticks uint64 `toml:"ticks" yaml:"ticks"`
}

// Frame is one static edge of the frame tree.
type Frame struct {
	Parent string  `toml:"parent" yaml:"parent"`
	Child  string  `toml:"child" yaml:"child"`
	X      float32 `toml:"x" yaml:"x"`
	Y      float32 `toml:"y" yaml:"y"`
	Z      float32 `toml:"z" yaml:"z"`
	Yaw    float32 `toml:"yaw" yaml:"yaw"` // radians
}

func (f Frame) Transform() geom.Transform {
	t := geom.Planar(f.X, f.Y, f.Yaw)
	t.Translation[2] = f.Z
	return t
}

// Marker is a static mesh drawn in a frame.
type Marker struct {
	Name     string    `toml:"name" yaml:"name"`
	Frame    string    `toml:"frame" yaml:"frame"`
	Topology string    `toml:"topology" yaml:"topology"` // "triangle_fan" or "points"
	Color    string    `toml:"color" yaml:"color"`
	Alpha    float32   `toml:"alpha" yaml:"alpha"`
	Vertices []float32 `toml:"vertices" yaml:"vertices"`
}

func (m Marker) Primitive() (surface.Primitive, error) {
	switch m.Topology {
	case "", "triangle_fan":
		return surface.TriangleFan, nil
	case "points":
		return surface.Points, nil
	}
	return 0, fmt.Errorf("%w: marker %q topology %q", ErrInvalid, m.Name, m.Topology)
}

// Robot drives the simulated base and its laser.
type Robot struct {
	Frame       string  `toml:"frame" yaml:"frame"`
	Parent      string  `toml:"parent" yaml:"parent"`
	RoomWidth   float32 `toml:"room_width" yaml:"room_width"`
	RoomHeight  float32 `toml:"room_height" yaml:"room_height"`
	OrbitRadius float32 `toml:"orbit_radius" yaml:"orbit_radius"`
	OrbitPeriod float32 `toml:"orbit_period" yaml:"orbit_period"` // seconds
	Color       string  `toml:"color" yaml:"color"`
}

type Laser struct {
	Frame      string  `toml:"frame" yaml:"frame"`
	Color      string  `toml:"color" yaml:"color"`
	PointSize  float32 `toml:"point_size" yaml:"point_size"`
	TotalSteps int     `toml:"total_steps" yaml:"total_steps"`
	FirstStep  int     `toml:"first_step" yaml:"first_step"`
	LastStep   int     `toml:"last_step" yaml:"last_step"`
	FrontStep  int     `toml:"front_step" yaml:"front_step"`
	MotorSpeed int     `toml:"motor_speed" yaml:"motor_speed"`
	MinRangeMM int     `toml:"min_range_mm" yaml:"min_range_mm"`
	MaxRangeMM int     `toml:"max_range_mm" yaml:"max_range_mm"`
}

func (l Laser) Configuration() laser.Configuration {
	return laser.Configuration{
		TotalSteps: l.TotalSteps,
		FirstStep:  l.FirstStep,
		LastStep:   l.LastStep,
		FrontStep:  l.FrontStep,
		MotorSpeed: l.MotorSpeed,
		MinRangeMM: l.MinRangeMM,
		MaxRangeMM: l.MaxRangeMM,
	}
}

// Default returns the built-in demo configuration.
func Default() Config {
	dev := laser.URG04LX
	return Config{
		FixedFrame:    "/map",
		Scale:         camera.DefaultScale,
		Background:    "#000000",
		PixelsPerUnit: 400,
		LogLevel:      "info",
		Window:        Window{Width: 800, Height: 480, Title: "navview"},
		Headless:      Headless{Hz: 30},
		Robot: Robot{
			Frame:       "/base_link",
			Parent:      "/odom",
			RoomWidth:   8,
			RoomHeight:  6,
			OrbitRadius: 1.5,
			OrbitPeriod: 20,
			Color:       "#3399ff",
		},
		Laser: Laser{
			Frame:      "/laser",
			Color:      "#ff3333",
			PointSize:  2,
			TotalSteps: dev.TotalSteps,
			FirstStep:  dev.FirstStep,
			LastStep:   dev.LastStep,
			FrontStep:  dev.FrontStep,
			MotorSpeed: dev.MotorSpeed,
			MinRangeMM: dev.MinRangeMM,
			MaxRangeMM: dev.MaxRangeMM,
		},
		Frames: []Frame{
			{Parent: "/map", Child: "/odom"},
			{Parent: "/base_link", Child: "/laser", X: 0.2, Z: 0.1},
		},
		Markers: []Marker{{
			Name:     "origin",
			Frame:    "/map",
			Topology: "triangle_fan",
			Color:    "#ffffff",
			Alpha:    0.6,
			Vertices: []float32{0, 0, 0, 0.3, 0, 0, 0, 0.3, 0, -0.3, 0, 0, 0, -0.3, 0, 0.3, 0, 0},
		}},
	}
}

// Load reads path on top of Default. Files ending in .yaml or .yml are YAML,
// anything else is TOML. An empty path returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = ParseYAML(data)
	default:
		cfg, err = Parse(string(data))
	}
	if err != nil {
		return Config{}, err
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes TOML on top of Default and validates the result.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseYAML decodes YAML on top of Default and validates the result.
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.FixedFrame == "" {
		return fmt.Errorf("%w: fixed_frame is empty", ErrInvalid)
	}
	if !(c.Scale >= camera.MinScale && c.Scale <= camera.MaxScale) {
		return fmt.Errorf("%w: scale %v outside [%v,%v]", ErrInvalid, c.Scale, camera.MinScale, camera.MaxScale)
	}
	if !(c.PixelsPerUnit > 0) {
		return fmt.Errorf("%w: pixels_per_unit %v", ErrInvalid, c.PixelsPerUnit)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	if _, err := ParseColor(c.Background, 1); err != nil {
		return err
	}
	for _, f := range c.Frames {
		if f.Parent == "" || f.Child == "" {
			return fmt.Errorf("%w: frame edge %q -> %q", ErrInvalid, f.Parent, f.Child)
		}
	}
	for _, m := range c.Markers {
		if _, err := m.Primitive(); err != nil {
			return err
		}
		if len(m.Vertices)%3 != 0 {
			return fmt.Errorf("%w: marker %q has %d floats", ErrInvalid, m.Name, len(m.Vertices))
		}
		if _, err := ParseColor(m.Color, m.Alpha); err != nil {
			return err
		}
	}
	if err := c.Laser.Configuration().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Level parses LogLevel. An empty level is info.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return l, nil
}

// ParseColor parses a "#rrggbb" color. An alpha of 0 means opaque.
func ParseColor(hex string, alpha float32) (surface.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return surface.Color{}, fmt.Errorf("%w: color %q: %v", ErrInvalid, hex, err)
	}
	if alpha == 0 {
		alpha = 1
	}
	out := surface.RGBA(float32(c.R), float32(c.G), float32(c.B), alpha)
	if !out.Valid() {
		return surface.Color{}, fmt.Errorf("%w: color %q alpha %v", ErrInvalid, hex, alpha)
	}
	return out, nil
}
