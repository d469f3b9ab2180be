package player

import (
	stderrors "errors"

	"github.com/zsiec/loopview/internal/logger"
	"github.com/zsiec/loopview/internal/media"
	"github.com/zsiec/loopview/internal/queue"
)

// audioDecodeStage consumes compressed audio units, decodes them and
// normalizes the PCM to the fixed output format before enqueueing. When
// the frame queue is full the blocking Push is the "wait and retry":
// audio continuity outranks audio latency, so buffers are never dropped
// here.
type audioDecodeStage struct {
	in  *queue.Bounded[media.Packet]
	out *queue.Bounded[media.AudioBuffer]
	dec AudioDecoder

	native media.PCMFormat // decoder's output layout
	target media.PCMFormat

	clock  *audioClock
	offset *syncOffset

	metrics Metrics
	logger  logger.Logger
	tlog    *logger.ThrottledLogger
}

func newAudioDecodeStage(in *queue.Bounded[media.Packet], out *queue.Bounded[media.AudioBuffer],
	dec AudioDecoder, native, target media.PCMFormat, clock *audioClock, offset *syncOffset,
	m Metrics, log logger.Logger, tlog *logger.ThrottledLogger,
) *audioDecodeStage {
	return &audioDecodeStage{
		in:      in,
		out:     out,
		dec:     dec,
		native:  native,
		target:  target,
		clock:   clock,
		offset:  offset,
		metrics: m,
		logger:  log.WithField("component", "audio_decode"),
		tlog:    tlog,
	}
}

// run is the audio decode goroutine body.
func (s *audioDecodeStage) run() {
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
			s.metrics.DecodeError("audio")
			s.tlog.Warn("audio_decode_error", logger.Fields{"pts": pkt.PTS}, "audio unit failed to decode")
			continue
		}

		if !s.drainDecoder() {
			return
		}
	}
}

// handleFlush resets the decoder, discards queued PCM and invalidates the
// playback clock; the next decoded buffer re-establishes its origin.
func (s *audioDecodeStage) handleFlush() {
	s.dec.Flush()
	s.out.Clear()
	s.clock.Invalidate()
	s.offset.ResetAudio()
	s.logger.Debug("audio pipeline flushed, clock invalidated")
}

func (s *audioDecodeStage) drainDecoder() bool {
	for {
		buf, err := s.dec.ReceiveFrame()
		if err != nil {
			if stderrors.Is(err, ErrWouldBlock) {
				return true
			}
			s.metrics.DecodeError("audio")
			s.tlog.Warn("audio_decode_error", nil, "audio decoder output error")
			return true
		}

		if s.native != s.target {
			buf.Data = media.ConvertPCM(buf.Data, s.native, s.target)
		}

		if len(buf.Data) == 0 {
			continue
		}

		if !s.out.Push(buf) {
			return false
		}
		s.metrics.FrameDecoded("audio")
		s.metrics.QueueDepth("audio_frames", s.out.Len())
	}
}
