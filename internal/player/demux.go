package player

import (
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/zsiec/loopview/internal/errors"
	"github.com/zsiec/loopview/internal/logger"
	"github.com/zsiec/loopview/internal/media"
	"github.com/zsiec/loopview/internal/queue"
)

// demuxState tracks the stage's position in its lifecycle for stats.
type demuxState int32

const (
	demuxIdle demuxState = iota
	demuxReading
	demuxSeeking
	demuxEnded
)

func (s demuxState) String() string {
	switch s {
	case demuxReading:
		return "reading"
	case demuxSeeking:
		return "seeking"
	case demuxEnded:
		return "ended"
	default:
		return "idle"
	}
}

// demuxStage reads the container sequentially and routes each compressed
// unit to the packet queue of its stream. A stalled decode path is
// absorbed by that stream's packet queue; the sibling stream keeps
// flowing until the stalled queue itself fills, at which point
// back-pressure stops the whole read loop. It owns seek and loop-restart
// handling, signalling each discontinuity downstream via flush markers.
type demuxStage struct {
	src      Source
	videoOut *queue.Bounded[media.Packet]
	audioOut *queue.Bounded[media.Packet]

	running *atomic.Bool
	loop    *atomic.Bool
	state   atomic.Int32

	seekMu      sync.Mutex
	seekPending bool
	seekTarget  float64

	onEndOfStream func()
	onFatal       func(error)

	metrics Metrics
	logger  logger.Logger
}

func newDemuxStage(src Source, videoOut, audioOut *queue.Bounded[media.Packet],
	running, loop *atomic.Bool, m Metrics, log logger.Logger,
) *demuxStage {
	return &demuxStage{
		src:      src,
		videoOut: videoOut,
		audioOut: audioOut,
		running:  running,
		loop:     loop,
		metrics:  m,
		logger:   log.WithField("component", "demux"),
	}
}

// RequestSeek asks the demux goroutine to perform a seek. The latest
// request wins if several arrive before the stage services one. Both
// packet queues are cleared right away: their contents are stale either
// way, and the space unblocks the stage if it is mid-Push, so the seek
// is serviced promptly.
func (d *demuxStage) RequestSeek(seconds float64) {
	d.seekMu.Lock()
	d.seekPending = true
	d.seekTarget = seconds
	d.seekMu.Unlock()
	d.videoOut.Clear()
	d.audioOut.Clear()
}

func (d *demuxStage) takeSeek() (float64, bool) {
	d.seekMu.Lock()
	defer d.seekMu.Unlock()
	if !d.seekPending {
		return 0, false
	}
	d.seekPending = false
	return d.seekTarget, true
}

// State returns the stage's current lifecycle state.
func (d *demuxStage) State() demuxState {
	return demuxState(d.state.Load())
}

// run is the demux goroutine body.
func (d *demuxStage) run() {
	d.state.Store(int32(demuxReading))
	defer func() {
		if d.State() != demuxEnded {
			d.state.Store(int32(demuxIdle))
		}
	}()

	for d.running.Load() {
		if target, ok := d.takeSeek(); ok {
			if !d.doSeek(target, true) {
				return
			}
			continue
		}

		pkt, err := d.src.ReadNextUnit()
		if err != nil {
			if stderrors.Is(err, ErrEndOfStream) {
				if d.loop.Load() {
					// Loop restart is not an error: back to zero with a
					// discontinuity marker on both streams. The queued tail
					// is still valid content, so the queues are left alone
					// and the marker pushes block behind it as usual.
					d.logger.Debug("end of stream, looping")
					if !d.doSeek(0, false) {
						return
					}
					continue
				}
				d.state.Store(int32(demuxEnded))
				d.logger.Info("end of stream")
				if d.onEndOfStream != nil {
					d.onEndOfStream()
				}
				return
			}

			d.logger.WithError(err).Error("source read failed")
			if d.onFatal != nil {
				d.onFatal(errors.WrapReadError(err, "reading media source"))
			}
			return
		}

		switch pkt.Stream {
		case media.StreamVideo:
			if !d.videoOut.Push(pkt) {
				return
			}
			d.metrics.PacketDemuxed("video")
			d.metrics.QueueDepth("video_packets", d.videoOut.Len())
		case media.StreamAudio:
			if !d.audioOut.Push(pkt) {
				return
			}
			d.metrics.PacketDemuxed("audio")
			d.metrics.QueueDepth("audio_packets", d.audioOut.Len())
		default:
			// Subtitle and data streams are not played.
			d.metrics.PacketDiscarded()
		}
	}
}

// doSeek repositions the source and queues a flush marker per stream so
// each decode stage resets its decoder state and clock validity. A
// user seek additionally clears the packet queues, since their contents
// are stale; a loop restart must not, because everything queued before
// the discontinuity is still playable. Returns false on teardown.
func (d *demuxStage) doSeek(target float64, clear bool) bool {
	d.state.Store(int32(demuxSeeking))
	defer d.state.Store(int32(demuxReading))

	if err := d.src.Seek(target); err != nil {
		d.logger.WithError(err).WithField("target", target).Error("seek failed")
		if d.onFatal != nil {
			d.onFatal(errors.WrapReadError(err, "seeking media source"))
		}
		return false
	}

	if clear {
		d.videoOut.Clear()
		d.audioOut.Clear()
	}

	info := d.src.Info()
	if info.HasVideo {
		if !d.videoOut.Push(media.FlushPacket(media.StreamVideo)) {
			return false
		}
	}
	if info.HasAudio {
		if !d.audioOut.Push(media.FlushPacket(media.StreamAudio)) {
			return false
		}
	}

	d.logger.WithField("target", target).Debug("seek complete, flush markers queued")
	return d.running.Load()
}
