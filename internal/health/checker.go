// Package health runs the playback process health checks served by the
// debug endpoints.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/zsiec/loopview/internal/logger"
)

// Status is the health of a component.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Check is one checker's latest result.
type Check struct {
	Name        string                 `json:"name"`
	Status      Status                 `json:"status"`
	Message     string                 `json:"message,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	DurationMS  float64                `json:"duration_ms"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// Checker probes one component. Check returns nil when healthy; a
// DegradedError marks the component impaired but serviceable.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// DegradedError downgrades a check to degraded instead of down.
type DegradedError struct {
	Reason string
}

func (e *DegradedError) Error() string { return e.Reason }

// Manager runs registered checkers and caches their results.
type Manager struct {
	mu       sync.RWMutex
	checkers []Checker
	results  map[string]*Check
	logger   logger.Logger
}

func NewManager(log logger.Logger) *Manager {
	return &Manager{
		results: make(map[string]*Check),
		logger:  log.WithField("component", "health"),
	}
}

// Register adds a checker.
func (m *Manager) Register(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
	m.logger.WithField("checker", checker.Name()).Debug("registered health checker")
}

// RunChecks executes every checker and returns the fresh results.
func (m *Manager) RunChecks(ctx context.Context) map[string]*Check {
	m.mu.RLock()
	checkers := make([]Checker, len(m.checkers))
	copy(checkers, m.checkers)
	m.mu.RUnlock()

	results := make(map[string]*Check, len(checkers))
	for _, c := range checkers {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		start := time.Now()
		err := c.Check(checkCtx)
		cancel()
		duration := time.Since(start)

		check := &Check{
			Name:        c.Name(),
			Status:      StatusOK,
			LastChecked: time.Now(),
			DurationMS:  float64(duration.Microseconds()) / 1000,
		}
		if err != nil {
			check.Message = err.Error()
			if _, degraded := err.(*DegradedError); degraded {
				check.Status = StatusDegraded
			} else {
				check.Status = StatusDown
			}
			m.logger.WithFields(logger.Fields{
				"checker": c.Name(),
				"status":  check.Status,
				"error":   err.Error(),
			}).Warn("health check not ok")
		}
		results[c.Name()] = check
	}

	m.mu.Lock()
	for k, v := range results {
		m.results[k] = v
	}
	m.mu.Unlock()

	return results
}

// Results returns the cached results from the last run.
func (m *Manager) Results() map[string]*Check {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Check, len(m.results))
	for k, v := range m.results {
		cp := *v
		out[k] = &cp
	}
	return out
}

// OverallStatus folds the cached results into one status. No results
// yet means the process just started and is still considered healthy.
func (m *Manager) OverallStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := StatusOK
	for _, check := range m.results {
		switch check.Status {
		case StatusDown:
			return StatusDown
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// StartPeriodicChecks re-runs the checks on the given interval until the
// context ends.
func (m *Manager) StartPeriodicChecks(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.RunChecks(ctx)
	for {
		select {
		case <-ticker.C:
			m.RunChecks(ctx)
		case <-ctx.Done():
			return
		}
	}
}
