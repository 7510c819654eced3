package view

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDiagInterval is the minimum spacing between repeated warnings for
// the same key.
const DefaultDiagInterval = 2 * time.Second

// diagnostics rate-limits warnings per key so a frame that stays
// unresolvable logs once per interval instead of once per frame.
type diagnostics struct {
	log      *slog.Logger
	interval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	dropped  map[string]int
}

func newDiagnostics(log *slog.Logger, interval time.Duration) *diagnostics {
	return &diagnostics{
		log:      log,
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
		dropped:  make(map[string]int),
	}
}

func (d *diagnostics) warn(key, msg string, args ...any) {
	d.mu.Lock()
	lim, ok := d.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(d.interval), 1)
		d.limiters[key] = lim
	}
	if !lim.Allow() {
		d.dropped[key]++
		d.mu.Unlock()
		return
	}
	suppressed := d.dropped[key]
	d.dropped[key] = 0
	d.mu.Unlock()

	if suppressed > 0 {
		args = append(args, "suppressed", suppressed)
	}
	d.log.Warn(msg, args...)
}
