package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chewxy/math32"
	"golang.org/x/time/rate"

	"navview/config"
	"navview/viz/frames"
	"navview/viz/geom"
	"navview/viz/laser"
)

// simulation orbits the robot frame around its parent and sweeps the laser
// against the walls of a rectangular room centred on the world frame.
type simulation struct {
	tree   *frames.Tree
	robot  config.Robot
	world  string
	frame  string
	device laser.Configuration
	room   laser.Room

	// epoch anchors tick counts to local time; clock maps local time to
	// wall time for scan stamps.
	epoch time.Time
	clock laser.ClockOffset
	every uint64 // ticks between scans
	last  uint64

	log        *slog.Logger
	warnLimit  *rate.Limiter
	suppressed int
}

// simWarnInterval spaces repeated step failures in the log.
const simWarnInterval = 2 * time.Second

func newSimulation(cfg config.Config, tree *frames.Tree, log *slog.Logger) (*simulation, error) {
	dev := cfg.Laser.Configuration()
	if err := dev.Validate(); err != nil {
		return nil, err
	}
	if cfg.Robot.Parent == "" {
		return nil, fmt.Errorf("%w: robot %s has no parent frame", config.ErrInvalid, cfg.Robot.Frame)
	}
	s := &simulation{
		tree:   tree,
		robot:  cfg.Robot,
		world:  cfg.FixedFrame,
		frame:  cfg.Laser.Frame,
		device: dev,
		room:   laser.Room{HalfWidth: cfg.Robot.RoomWidth / 2, HalfHeight: cfg.Robot.RoomHeight / 2},
		epoch:  time.Unix(0, 0),

		log:       log,
		warnLimit: rate.NewLimiter(rate.Every(simWarnInterval), 1),
	}
	// One sweep per motor revolution, in millisecond ticks.
	s.every = uint64(60000 / dev.MotorSpeed)
	if s.every == 0 {
		s.every = 1
	}
	s.clock.Sync(time.Now(), s.epoch)
	return s, nil
}

// pose is the robot pose in its parent frame at t seconds.
func (s *simulation) pose(t float32) geom.Transform {
	if s.robot.OrbitPeriod <= 0 || s.robot.OrbitRadius == 0 {
		return geom.Identity()
	}
	a := 2 * math32.Pi * t / s.robot.OrbitPeriod
	r := s.robot.OrbitRadius
	return geom.Planar(r*math32.Cos(a), r*math32.Sin(a), a+math32.Pi/2)
}

func (s *simulation) moveRobot(t float32) error {
	return s.tree.Set(s.robot.Parent, s.robot.Frame, s.pose(t))
}

// sweep scans the room from the current laser pose.
func (s *simulation) sweep(local time.Time) (laser.Scan, error) {
	frame := s.frame
	at, err := s.tree.LookupTransform(frame, s.world)
	if err != nil {
		frame = s.robot.Frame
		if at, err = s.tree.LookupTransform(frame, s.world); err != nil {
			return laser.Scan{}, err
		}
	}
	raw := s.room.Sweep(s.device, at.Translation.X(), at.Translation.Y(), at.Yaw())
	return laser.NewScan(s.device, raw, frame, s.clock.Apply(local))
}

// step advances the simulation to tick seq. It reports whether a scan was
// published.
func (s *simulation) step(seq uint64, out *laser.Layer) (bool, error) {
	if s.last != 0 && seq-s.last < s.every {
		return false, nil
	}
	s.last = seq
	local := s.epoch.Add(time.Duration(seq) * time.Millisecond)
	if err := s.moveRobot(float32(seq) / 1000); err != nil {
		return false, err
	}
	scan, err := s.sweep(local)
	if err != nil {
		return false, err
	}
	return true, out.Update(scan)
}

func (s *simulation) run(ctx context.Context, ticks <-chan uint64, out *laser.Layer) {
	for {
		select {
		case <-ctx.Done():
			return
		case seq, ok := <-ticks:
			if !ok {
				return
			}
			if _, err := s.step(seq, out); err != nil {
				s.warn(err)
			}
		}
	}
}

// warn logs a failed step. While failures repeat, the laser layer keeps the
// last scan, so the log is the only sign the view is stale.
func (s *simulation) warn(err error) {
	if !s.warnLimit.Allow() {
		s.suppressed++
		return
	}
	args := []any{"err", err}
	if s.suppressed > 0 {
		args = append(args, "suppressed", s.suppressed)
		s.suppressed = 0
	}
	s.log.Warn("simulation step failed", args...)
}
