package player

import (
	"sync/atomic"
	"time"

	"github.com/zsiec/loopview/internal/config"
	"github.com/zsiec/loopview/internal/logger"
	"github.com/zsiec/loopview/internal/media"
	"github.com/zsiec/loopview/internal/queue"
)

// renderController paces video against the audio clock. It runs on a
// polling tick finer than the frame interval: each tick it either does
// nothing (next frame not yet due, or no frame available), or dequeues
// the head frame, presents it, and schedules the next render time from
// the frame's natural duration corrected by the measured audio drift.
//
// Audio is the master clock. Video ahead of audio gets a stretched
// delay; video behind gets a shrunk delay, and persistent deep lag drops
// a small batch of stale frames to catch up. With no valid audio clock
// (startup, seek landing, silent files) frames play at their natural
// rate, uncorrected.
type renderController struct {
	vq    *queue.Bounded[media.VideoFrame]
	sink  VideoSink
	clock func() (float64, bool)
	offset *syncOffset

	cfg config.SyncConfig

	// flushGen is bumped by the video decode stage when a flush marker
	// passes through; pacing state is then re-established.
	flushGen *atomic.Uint64
	lastGen  uint64

	// Pacing state, touched only from the render tick.
	originSet bool
	lastPTS   float64
	lastDelay time.Duration
	lagTicks  int
	next      time.Time

	onRendered func(pts float64)

	metrics Metrics
	logger  logger.Logger
	tlog    *logger.ThrottledLogger
}

func newRenderController(vq *queue.Bounded[media.VideoFrame], sink VideoSink,
	clock func() (float64, bool), offset *syncOffset, cfg config.SyncConfig,
	flushGen *atomic.Uint64, m Metrics, log logger.Logger, tlog *logger.ThrottledLogger,
) *renderController {
	return &renderController{
		vq:       vq,
		sink:     sink,
		clock:    clock,
		offset:   offset,
		cfg:      cfg,
		flushGen: flushGen,
		metrics:  m,
		logger:   log.WithField("component", "render"),
		tlog:     tlog,
	}
}

// resetPacing clears per-session pacing state after a start or flush.
func (c *renderController) resetPacing() {
	c.originSet = false
	c.lastPTS = 0
	c.lastDelay = 0
	c.lagTicks = 0
	c.next = time.Time{}
}

// Tick runs one controller iteration at wall time now.
func (c *renderController) Tick(now time.Time) {
	if gen := c.flushGen.Load(); gen != c.lastGen {
		c.lastGen = gen
		c.resetPacing()
	}

	// The computed delay is realized here: ticks arrive more often than
	// frames are due, and early ticks simply do nothing.
	if !c.next.IsZero() && now.Before(c.next) {
		return
	}

	frame, ok := c.vq.Peek()
	if !ok {
		return
	}

	if !c.originSet {
		c.originSet = true
		c.lastPTS = frame.PTS
		c.lastDelay = 0
		c.offset.SetVideoOrigin(frame.PTS)
		c.logger.WithField("origin_pts", frame.PTS).Debug("video clock origin recorded")
	}

	// Natural display duration of the head frame. Non-positive or
	// implausibly large gaps (bad timestamps, loop boundary remnants)
	// fall back to the previous delay.
	base := secondsToDuration(frame.PTS - c.lastPTS)
	if base <= 0 || base > time.Second {
		base = c.lastDelay
	}
	delay := base

	if ref, ok := c.referenceTime(); ok {
		diff := secondsToDuration(frame.PTS - ref)
		c.metrics.ClockDrift(diff.Seconds())

		if absDuration(diff) > c.cfg.NoSyncThreshold {
			// Clock discontinuity, typically right after a seek lands.
			// Correcting against it would produce a nonsense wait or
			// drop, so this tick renders uncorrected.
			c.lagTicks = 0
		} else {
			delay = c.correctDelay(base, diff, ref, &frame)
		}
	}

	if delay < c.cfg.MinDelay {
		delay = c.cfg.MinDelay
	}
	if delay > c.cfg.MaxDelay {
		delay = c.cfg.MaxDelay
	}

	out, ok := c.vq.TryPop()
	if !ok {
		return
	}

	c.present(out)
	c.metrics.FrameRendered()
	c.metrics.RenderDelay(delay.Seconds())
	c.metrics.QueueDepth("video_frames", c.vq.Len())

	c.lastPTS = out.PTS
	c.lastDelay = delay
	c.next = now.Add(delay)

	if c.onRendered != nil {
		c.onRendered(out.PTS)
	}
}

// referenceTime maps the audio clock into the video timestamp domain.
func (c *renderController) referenceTime() (float64, bool) {
	audio, ok := c.clock()
	if !ok {
		return 0, false
	}
	off, ok := c.offset.Offset()
	if !ok {
		return 0, false
	}
	return audio + off, true
}

// correctDelay applies the threshold-band correction. The active
// threshold is clamped to the frame duration itself, so high-frame-rate
// content is held to a tighter band than low-frame-rate content. frame
// is re-pointed at the new head if stale frames get dropped.
func (c *renderController) correctDelay(base, diff time.Duration, ref float64, frame *media.VideoFrame) time.Duration {
	threshold := c.cfg.MaxThreshold
	if base > 0 && base < threshold {
		threshold = base
	}
	if threshold < c.cfg.MinThreshold {
		threshold = c.cfg.MinThreshold
	}

	switch {
	case diff <= -threshold:
		// Video lagging: render sooner.
		delay := base + diff
		if delay < 0 {
			delay = 0
		}

		c.lagTicks++
		if c.lagTicks >= c.cfg.LagTicksBeforeDrop && -diff > c.cfg.LagDropThreshold {
			dropped := c.vq.DropWhile(func(f media.VideoFrame) bool {
				return f.PTS < ref
			}, c.cfg.MaxDropBatch)
			c.lagTicks = 0
			if dropped > 0 {
				c.metrics.FramesDropped(dropped)
				c.tlog.Warn("frames_dropped", logger.Fields{
					"dropped": dropped,
					"lag_s":   (-diff).Seconds(),
				}, "dropped stale video frames to catch up with audio")
				if head, ok := c.vq.Peek(); ok {
					*frame = head
				}
				delay = 0
			}
		}
		return delay

	case diff >= threshold:
		c.lagTicks = 0
		if c.lastDelay > c.cfg.LongFrameThreshold {
			// Long-frame content: one more long wait is invisible.
			return base + diff
		}
		// Grow gradually, capped so one wait never overshoots the gap.
		grown := base * 2
		if grown-base > diff {
			grown = base + diff
		}
		return grown

	default:
		c.lagTicks = 0
		return base
	}
}

// present hands a frame to the sink, holding the device lock for
// hardware frames since the decoder may touch the device concurrently.
func (c *renderController) present(frame media.VideoFrame) {
	if gpu, ok := frame.Picture.(media.GPUPicture); ok && gpu.Device != nil {
		gpu.Device.Lock()
		defer gpu.Device.Unlock()
	}
	c.sink.Present(frame)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
