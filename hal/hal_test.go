package hal

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainPointer(p *hostPointer) []PointerEvent {
	var out []PointerEvent
	for {
		select {
		case ev := <-p.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestPointerClickWithoutTravel(t *testing.T) {
	p := newHostPointer()
	p.track(true, 10, 20)
	p.track(true, 11, 20)
	p.track(false, 11, 20)

	evs := drainPointer(p)
	require.Len(t, evs, 1)
	assert.Equal(t, PointerEvent{Kind: PointerClick, X: 10, Y: 20}, evs[0])
}

func TestPointerDragStartsPastSlop(t *testing.T) {
	p := newHostPointer()
	p.track(true, 0, 0)
	p.track(true, 1, 1)
	p.track(true, 3, 2)
	p.track(true, 4, 2)
	p.track(false, 4, 2)

	evs := drainPointer(p)
	require.Len(t, evs, 2)
	assert.Equal(t, PointerEvent{Kind: PointerDrag, X: 3, Y: 2, DX: 3, DY: 2}, evs[0])
	assert.Equal(t, PointerEvent{Kind: PointerDrag, X: 4, Y: 2, DX: 1}, evs[1])
}

func TestPointerDragSuppressesClick(t *testing.T) {
	p := newHostPointer()
	p.track(true, 0, 0)
	p.track(true, 5, -3)
	p.track(true, 5, -3)
	p.track(false, 5, -3)

	evs := drainPointer(p)
	require.Len(t, evs, 1)
	assert.Equal(t, PointerEvent{Kind: PointerDrag, X: 5, Y: -3, DX: 5, DY: -3}, evs[0])
}

func TestPointerWheelIgnoresZero(t *testing.T) {
	p := newHostPointer()
	p.wheel(0)
	p.wheel(-1)
	evs := drainPointer(p)
	require.Len(t, evs, 1)
	assert.Equal(t, float32(-1), evs[0].DY)
}

func TestFramebufferResizeAndClear(t *testing.T) {
	fb := newHostFramebuffer(4, 2)
	assert.Equal(t, 8, fb.StrideBytes())
	assert.Len(t, fb.Buffer(), 16)
	assert.False(t, fb.resize(4, 2))

	require.True(t, fb.resize(3, 3))
	assert.Equal(t, 3, fb.Width())
	assert.Len(t, fb.Buffer(), 18)

	fb.ClearRGB(0xFF, 0, 0)
	rgba := make([]byte, 3*3*4)
	fb.snapshotRGBA(rgba)
	assert.Equal(t, []byte{0xFF, 0, 0, 0xFF}, rgba[:4])
	assert.Equal(t, []byte{0xFF, 0, 0, 0xFF}, rgba[len(rgba)-4:])

	assert.True(t, fb.resize(0, -1))
	assert.Equal(t, 1, fb.Width())
	assert.Equal(t, 1, fb.Height())
}

func TestLineWriterFeedsSlog(t *testing.T) {
	var buf bytes.Buffer
	h := newHost(8, 8, &buf)
	log := slog.New(slog.NewTextHandler(LineWriter{L: h.Logger()}, nil))
	log.Info("surface created", "w", 8)

	assert.Contains(t, buf.String(), `msg="surface created" w=8`)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte{'\n'}))
}

func TestHostTimeTicks(t *testing.T) {
	ht := newHostTime()
	base := time.Unix(100, 0)
	ht.advance(base)
	assert.Equal(t, uint64(1), <-ht.Ticks())

	ht.advance(base.Add(500 * time.Microsecond))
	select {
	case v := <-ht.Ticks():
		t.Fatalf("unexpected tick %d", v)
	default:
	}

	ht.advance(base.Add(3 * time.Millisecond))
	assert.Equal(t, uint64(4), <-ht.Ticks())
}

func TestRunHeadlessStopsAfterTicks(t *testing.T) {
	var steps int
	h := newHost(16, 8, &bytes.Buffer{})
	err := runHeadless(context.Background(), h, func(got HAL) func() error {
		assert.Equal(t, 16, got.Display().Framebuffer().Width())
		return func() error {
			steps++
			return nil
		}
	}, HeadlessConfig{Hz: 1000, Ticks: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, steps)
}

func TestRunHeadlessHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunHeadless(ctx, func(HAL) func() error { return nil }, HeadlessConfig{Width: 4, Height: 4})
	assert.ErrorIs(t, err, context.Canceled)
}
