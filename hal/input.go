package hal

type hostKeyboard struct {
	ch chan KeyEvent
}

func newHostKeyboard() *hostKeyboard {
	return &hostKeyboard{ch: make(chan KeyEvent, 64)}
}

func (k *hostKeyboard) Events() <-chan KeyEvent { return k.ch }

func (k *hostKeyboard) emit(ev KeyEvent) {
	select {
	case k.ch <- ev:
	default:
	}
}

type hostPointer struct {
	ch chan PointerEvent

	down    bool
	moved   bool
	lastX   float32
	lastY   float32
	travel  float32
	clickAt [2]float32
}

// clickSlop is the travel in pixels below which a press-release is a click.
const clickSlop = 4

func newHostPointer() *hostPointer {
	return &hostPointer{ch: make(chan PointerEvent, 128)}
}

func (p *hostPointer) Events() <-chan PointerEvent { return p.ch }

func (p *hostPointer) emit(ev PointerEvent) {
	select {
	case p.ch <- ev:
	default:
	}
}

// track folds one sampled button state and cursor position into drag and
// click events.
func (p *hostPointer) track(pressed bool, x, y float32) {
	switch {
	case pressed && !p.down:
		p.down = true
		p.moved = false
		p.travel = 0
		p.lastX, p.lastY = x, y
		p.clickAt = [2]float32{x, y}
	case pressed && p.down:
		dx, dy := x-p.lastX, y-p.lastY
		if dx == 0 && dy == 0 {
			return
		}
		p.travel += abs32(dx) + abs32(dy)
		p.lastX, p.lastY = x, y
		if !p.moved {
			// Jitter under the slop stays a click. Once past it, the first
			// drag carries everything since the press.
			if p.travel < clickSlop {
				return
			}
			p.moved = true
			dx, dy = x-p.clickAt[0], y-p.clickAt[1]
		}
		p.emit(PointerEvent{Kind: PointerDrag, X: x, Y: y, DX: dx, DY: dy})
	case !pressed && p.down:
		p.down = false
		if !p.moved {
			p.emit(PointerEvent{Kind: PointerClick, X: p.clickAt[0], Y: p.clickAt[1]})
		}
	}
}

func (p *hostPointer) wheel(dy float32) {
	if dy == 0 {
		return
	}
	p.emit(PointerEvent{Kind: PointerWheel, DY: dy})
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
