package health

import (
	"context"
	"sync"

	"github.com/zsiec/loopview/internal/player"
)

// StatsProvider is the slice of the Player this checker needs.
type StatsProvider interface {
	Stats() player.Stats
}

// PipelineChecker watches playback progress between runs: a playing
// pipeline that renders no frames is wedged, and accumulating audio
// underruns mean playback is audibly degraded.
type PipelineChecker struct {
	provider StatsProvider

	mu            sync.Mutex
	lastRendered  int64
	lastUnderruns int64
	hasBaseline   bool
}

func NewPipelineChecker(provider StatsProvider) *PipelineChecker {
	return &PipelineChecker{provider: provider}
}

func (c *PipelineChecker) Name() string { return "pipeline" }

func (c *PipelineChecker) Check(ctx context.Context) error {
	stats := c.provider.Stats()

	c.mu.Lock()
	defer c.mu.Unlock()

	rendered := stats.FramesRendered - c.lastRendered
	underruns := stats.AudioUnderruns - c.lastUnderruns
	hadBaseline := c.hasBaseline
	c.lastRendered = stats.FramesRendered
	c.lastUnderruns = stats.AudioUnderruns
	c.hasBaseline = true

	// Stopped and paused players are idle, not unhealthy.
	if stats.State != "playing" || !hadBaseline {
		return nil
	}

	if stats.HasVideo && rendered == 0 {
		return &DegradedError{Reason: "playing but no frames rendered since last check"}
	}
	if underruns > 0 {
		return &DegradedError{Reason: "audio underruns since last check"}
	}
	return nil
}
