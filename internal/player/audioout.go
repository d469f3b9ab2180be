package player

import (
	"sync/atomic"
	"time"

	"github.com/zsiec/loopview/internal/logger"
	"github.com/zsiec/loopview/internal/media"
	"github.com/zsiec/loopview/internal/queue"
)

// audioDriver feeds PCM to the audio sink and maintains the playback
// clock. It runs on the periodic audio tick, never blocking: it pops
// buffers non-blockingly, writes as much as the sink accepts, and keeps
// any unwritten remainder as its own head so partial writes lose and
// duplicate nothing. Writes are throttled so the sink holds roughly one
// configured window of audio: enough to ride out scheduling jitter,
// little enough that seek stays responsive.
type audioDriver struct {
	in    *queue.Bounded[media.AudioBuffer]
	sink  AudioSink
	clock *audioClock
	offset *syncOffset

	volume *atomic.Int32

	format      media.PCMFormat
	windowBytes int

	// Partially written head buffer. Discarded when the clock generation
	// changes, since it belongs to pre-discontinuity content.
	pending    *media.AudioBuffer
	pendingOff int
	lastGen    uint64

	metrics Metrics
	logger  logger.Logger
	tlog    *logger.ThrottledLogger
}

func newAudioDriver(in *queue.Bounded[media.AudioBuffer], sink AudioSink,
	clock *audioClock, offset *syncOffset, volume *atomic.Int32,
	format media.PCMFormat, window time.Duration,
	m Metrics, log logger.Logger, tlog *logger.ThrottledLogger,
) *audioDriver {
	windowBytes := int(float64(format.ByteRate()) * window.Seconds())
	if windowBytes < format.BytesPerFrame() {
		windowBytes = format.BytesPerFrame()
	}
	return &audioDriver{
		in:          in,
		sink:        sink,
		clock:       clock,
		offset:      offset,
		volume:      volume,
		format:      format,
		windowBytes: windowBytes,
		metrics:     m,
		logger:      log.WithField("component", "audio_output"),
		tlog:        tlog,
	}
}

// ClockNow returns the current audio-derived media time. Valid is false
// until the first buffer after a (re)start has been dequeued.
func (d *audioDriver) ClockNow() (float64, bool) {
	return d.clock.Now(d.sink.BytesQueued())
}

// Drained reports whether no audio remains anywhere in the output path.
// Called from the tick goroutine, same as Tick.
func (d *audioDriver) Drained() bool {
	return d.pending == nil && d.in.Len() == 0 && d.sink.BytesQueued() == 0
}

// Tick services the sink once. Called from the periodic audio tick.
func (d *audioDriver) Tick() {
	// A generation bump means a seek or loop restart happened: whatever
	// the sink still holds, and any half-written buffer, is stale.
	if gen := d.clock.Generation(); gen != d.lastGen {
		d.lastGen = gen
		d.pending = nil
		d.pendingOff = 0
		d.sink.Clear()
	}

	for {
		if d.pending == nil {
			buf, ok := d.in.TryPop()
			if !ok {
				// Starvation is degraded playback, not an error; it
				// self-heals when the decode stage catches up.
				if d.sink.BytesQueued() == 0 && d.clock.Valid() {
					d.metrics.AudioUnderrun()
					d.tlog.Warn("audio_underrun", nil, "audio sink underrun, queue empty")
				}
				return
			}

			if !d.clock.Valid() {
				d.clock.Establish(buf.PTS)
				d.offset.SetAudioOrigin(buf.PTS)
				d.logger.WithField("origin_pts", buf.PTS).Debug("audio clock established")
			}

			// Volume is applied exactly once per buffer; a retried
			// partial write must not rescale already-scaled samples.
			if !buf.VolumeApplied {
				media.ScaleVolume(buf.Data, int(d.volume.Load()))
				buf.VolumeApplied = true
			}

			d.pending = &buf
			d.pendingOff = 0
			d.metrics.QueueDepth("audio_frames", d.in.Len())
		}

		if d.sink.BytesQueued() >= d.windowBytes {
			return
		}

		n, err := d.sink.Write(d.pending.Data[d.pendingOff:])
		if err != nil {
			d.tlog.Warn("audio_sink_error", logger.Fields{"error": err.Error()}, "audio sink write failed")
			return
		}
		if n > 0 {
			d.clock.AddBytes(n)
			d.metrics.AudioBufferPlayed(n)
			d.pendingOff += n
		}

		if d.pendingOff >= len(d.pending.Data) {
			d.pending = nil
			d.pendingOff = 0
			continue
		}

		if n == 0 {
			// Sink accepted nothing; try again next tick.
			return
		}
	}
}
