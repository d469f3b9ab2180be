package logger

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ThrottledLogger rate-limits high-frequency diagnostic messages per
// category. Playback emits the same message hundreds of times per second
// when a queue starves or frames run late; the limiter lets the first few
// through and then samples, while counting everything it suppressed.
type ThrottledLogger struct {
	base Logger

	mu         sync.RWMutex
	limiters   map[string]*rate.Limiter
	suppressed map[string]*atomic.Int64

	every time.Duration
	burst int
}

// NewThrottledLogger wraps base so that each category logs at most once per
// interval, with an initial burst allowance.
func NewThrottledLogger(base Logger, every time.Duration, burst int) *ThrottledLogger {
	if every <= 0 {
		every = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return &ThrottledLogger{
		base:       base,
		limiters:   make(map[string]*rate.Limiter),
		suppressed: make(map[string]*atomic.Int64),
		every:      every,
		burst:      burst,
	}
}

func (t *ThrottledLogger) limiter(category string) (*rate.Limiter, *atomic.Int64) {
	t.mu.RLock()
	lim, ok := t.limiters[category]
	sup := t.suppressed[category]
	t.mu.RUnlock()
	if ok {
		return lim, sup
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if lim, ok = t.limiters[category]; ok {
		return lim, t.suppressed[category]
	}
	lim = rate.NewLimiter(rate.Every(t.every), t.burst)
	sup = &atomic.Int64{}
	t.limiters[category] = lim
	t.suppressed[category] = sup
	return lim, sup
}

// Allow reports whether a message in the given category should be logged
// now. Suppressed messages are counted.
func (t *ThrottledLogger) Allow(category string) bool {
	lim, sup := t.limiter(category)
	if lim.Allow() {
		return true
	}
	sup.Add(1)
	return false
}

// Warn logs a rate-limited warning, attaching the number of messages
// suppressed since the category last logged.
func (t *ThrottledLogger) Warn(category string, fields map[string]interface{}, args ...interface{}) {
	lim, sup := t.limiter(category)
	if !lim.Allow() {
		sup.Add(1)
		return
	}
	entry := t.base.WithField("category", category)
	if n := sup.Swap(0); n > 0 {
		entry = entry.WithField("suppressed", n)
	}
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Warn(args...)
}

// Debug logs a rate-limited debug message.
func (t *ThrottledLogger) Debug(category string, fields map[string]interface{}, args ...interface{}) {
	lim, sup := t.limiter(category)
	if !lim.Allow() {
		sup.Add(1)
		return
	}
	entry := t.base.WithField("category", category)
	if n := sup.Swap(0); n > 0 {
		entry = entry.WithField("suppressed", n)
	}
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Debug(args...)
}

// Suppressed returns the number of messages currently suppressed in a
// category, for tests and stats.
func (t *ThrottledLogger) Suppressed(category string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if sup, ok := t.suppressed[category]; ok {
		return sup.Load()
	}
	return 0
}
