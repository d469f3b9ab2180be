package player

import (
	stderrors "errors"
	"sync/atomic"

	"github.com/zsiec/loopview/internal/logger"
	"github.com/zsiec/loopview/internal/media"
	"github.com/zsiec/loopview/internal/queue"
)

// videoDecodeStage consumes compressed video units and produces
// presentable frames. It runs entirely independently of the audio stage:
// a hardware decoder can outrun real time by a wide margin and must be
// throttled only by its own bounded frame queue. One submitted unit can
// yield zero frames (decoder buffering) or several, so output is drained
// in a loop after every submit.
type videoDecodeStage struct {
	in  *queue.Bounded[media.Packet]
	out *queue.Bounded[media.VideoFrame]
	dec VideoDecoder

	offset *syncOffset
	// flushGen tells the render controller to reset pacing state after a
	// discontinuity.
	flushGen *atomic.Uint64

	metrics Metrics
	logger  logger.Logger
	tlog    *logger.ThrottledLogger
}

func newVideoDecodeStage(in *queue.Bounded[media.Packet], out *queue.Bounded[media.VideoFrame],
	dec VideoDecoder, offset *syncOffset, flushGen *atomic.Uint64,
	m Metrics, log logger.Logger, tlog *logger.ThrottledLogger,
) *videoDecodeStage {
	return &videoDecodeStage{
		in:       in,
		out:      out,
		dec:      dec,
		offset:   offset,
		flushGen: flushGen,
		metrics:  m,
		logger:   log.WithField("component", "video_decode"),
		tlog:     tlog,
	}
}

// run is the video decode goroutine body. It exits when either queue is
// torn down.
func (s *videoDecodeStage) run() {
	for {
		pkt, ok := s.in.Pop()
		if !ok {
			return
		}

		if pkt.Flush {
			s.handleFlush()
			continue
		}

		if err := s.dec.Submit(pkt); err != nil {
			// A bad unit is skipped, never fatal.
			s.metrics.DecodeError("video")
			s.tlog.Warn("video_decode_error", logger.Fields{"pts": pkt.PTS}, "video unit failed to decode")
			continue
		}

		if !s.drainDecoder() {
			return
		}
	}
}

// handleFlush resets decoder state and discards decoded-but-unrendered
// frames, then signals the controller that a discontinuity passed through.
func (s *videoDecodeStage) handleFlush() {
	s.dec.Flush()
	s.out.Clear()
	s.offset.ResetVideo()
	s.flushGen.Add(1)
	s.logger.Debug("video pipeline flushed")
}

// drainDecoder moves every frame the decoder has ready into the frame
// queue. Returns false on teardown.
func (s *videoDecodeStage) drainDecoder() bool {
	for {
		frame, err := s.dec.ReceiveFrame()
		if err != nil {
			if stderrors.Is(err, ErrWouldBlock) {
				return true
			}
			s.metrics.DecodeError("video")
			s.tlog.Warn("video_decode_error", nil, "video decoder output error")
			return true
		}

		if !s.out.Push(frame) {
			return false
		}
		s.metrics.FrameDecoded("video")
		s.metrics.QueueDepth("video_frames", s.out.Len())
	}
}
