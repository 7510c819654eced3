package app

import (
	"context"
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"navview/hal"
	"navview/viz/camera"
)

const (
	zoomStep  = 1.25
	wheelBase = 1.1
	panPixels = 20
)

func (v *Viewer) runInput(ctx context.Context, in hal.Input) {
	var keys <-chan hal.KeyEvent
	var ptr <-chan hal.PointerEvent
	if kb := in.Keyboard(); kb != nil {
		keys = kb.Events()
	}
	if p := in.Pointer(); p != nil {
		ptr = p.Events()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-keys:
			v.HandleKey(ev)
		case ev := <-ptr:
			v.HandlePointer(ev)
		}
	}
}

// HandlePointer maps gestures onto the camera: drag pans, wheel zooms, click
// places a goal.
func (v *Viewer) HandlePointer(ev hal.PointerEvent) {
	var err error
	switch ev.Kind {
	case hal.PointerDrag:
		// Dragging moves the scene with the pointer, so the camera goes the
		// other way.
		err = v.rend.MoveCameraScreenCoordinates(-ev.DX, -ev.DY)
	case hal.PointerWheel:
		err = v.rend.ZoomCamera(float32(math.Pow(wheelBase, float64(ev.DY))))
	case hal.PointerClick:
		v.queueGoal(mgl32.Vec2{ev.X, ev.Y})
	}
	v.report(err)
}

// HandleKey applies keyboard shortcuts:
//
//	arrows  pan          + / -  zoom
//	l       lock/unlock  f      next fixed frame
//	r, Home reset frame  c      clear goal
func (v *Viewer) HandleKey(ev hal.KeyEvent) {
	if !ev.Press {
		return
	}
	var err error
	switch ev.Code {
	case hal.KeyUp:
		err = v.rend.MoveCameraScreenCoordinates(0, -panPixels)
	case hal.KeyDown:
		err = v.rend.MoveCameraScreenCoordinates(0, panPixels)
	case hal.KeyLeft:
		err = v.rend.MoveCameraScreenCoordinates(-panPixels, 0)
	case hal.KeyRight:
		err = v.rend.MoveCameraScreenCoordinates(panPixels, 0)
	case hal.KeyPageUp:
		err = v.rend.ZoomCamera(zoomStep)
	case hal.KeyPageDown:
		err = v.rend.ZoomCamera(1 / zoomStep)
	case hal.KeyHome:
		v.rend.ResetFixedFrame()
	case hal.KeyUnknown:
		switch ev.Rune {
		case '+', '=':
			err = v.rend.ZoomCamera(zoomStep)
		case '-', '_':
			err = v.rend.ZoomCamera(1 / zoomStep)
		case 'l', 'L':
			v.toggleLock()
		case 'f', 'F':
			v.nextFixedFrame()
		case 'r', 'R':
			v.rend.ResetFixedFrame()
		case 'c', 'C':
			v.goal.clear()
		}
	}
	v.report(err)
}

func (v *Viewer) report(err error) {
	if err == nil {
		return
	}
	// Gestures before the first surface-changed event are expected.
	if errors.Is(err, camera.ErrViewportNotReady) {
		v.log.Debug("input ignored", "err", err)
		return
	}
	v.log.Warn("input failed", "err", err)
}

// toggleLock locks the camera on the robot, or releases an existing lock.
func (v *Viewer) toggleLock() {
	if _, locked := v.rend.LockedFrame(); locked {
		v.rend.ResetTargetFrame()
		return
	}
	frame := v.cfg.LockFrame
	if frame == "" {
		frame = v.cfg.Robot.Frame
	}
	if frame != "" {
		v.rend.SetTargetFrame(frame)
	}
}

// nextFixedFrame cycles the fixed frame through the known frames.
func (v *Viewer) nextFixedFrame() {
	all := v.tree.Frames()
	if len(all) == 0 {
		return
	}
	cur := v.rend.FixedFrame()
	next := all[0]
	for i, f := range all {
		if f == cur {
			next = all[(i+1)%len(all)]
			break
		}
	}
	v.rend.SetFixedFrame(next)
	v.log.Info("fixed frame", "frame", next)
}

// queueGoal hands a click to the render loop, which owns the canvas
// projection used to pick the goal.
func (v *Viewer) queueGoal(p mgl32.Vec2) {
	select {
	case v.picks <- p:
	default:
		v.log.Debug("goal pick dropped", "x", p.X(), "y", p.Y())
	}
}

func (v *Viewer) drainPicks() {
	for {
		select {
		case p := <-v.picks:
			v.report(v.placeGoal(p))
		default:
			return
		}
	}
}

// placeGoal puts the goal under pixel p in the fixed frame. Orientation comes
// from ToWorldPose; position is unprojected through the canvas so the marker
// lands where it was clicked at any pixels_per_unit.
func (v *Viewer) placeGoal(p mgl32.Vec2) error {
	pose, err := v.rend.ToWorldPose(p, 0)
	if err != nil {
		return err
	}
	state := v.rend.CameraModel().Snapshot()
	at, err := v.canvas.Unproject(p.X(), p.Y(), camera.ViewMatrix(state))
	if err != nil {
		return err
	}
	pose.Translation = mgl32.Vec3{at.X(), at.Y(), 0}
	fixed := v.rend.FixedFrame()
	if err := v.goal.set(fixed, pose); err != nil {
		return err
	}
	v.log.Info("goal set", "frame", fixed, "x", at.X(), "y", at.Y())
	return nil
}
