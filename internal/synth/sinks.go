package synth

import (
	"sync"
	"time"

	"github.com/zsiec/loopview/internal/media"
	"github.com/zsiec/loopview/internal/player"
)

// CaptureSink records every presented frame's timestamp.
type CaptureSink struct {
	mu  sync.Mutex
	pts []float64
}

var _ player.VideoSink = (*CaptureSink)(nil)

func (s *CaptureSink) Present(frame media.VideoFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pts = append(s.pts, frame.PTS)
}

// Presented returns a copy of the presented timestamps in order.
func (s *CaptureSink) Presented() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.pts))
	copy(out, s.pts)
	return out
}

// Count returns the number of presented frames.
func (s *CaptureSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pts)
}

// AudioSink models an OS audio device: Write accepts at most
// AcceptPerWrite bytes per call and never more than Capacity queued;
// Consume simulates playback draining the queue. Accepted bytes are
// retained for inspection.
type AudioSink struct {
	// AcceptPerWrite caps bytes accepted by one Write call. Zero means
	// unlimited.
	AcceptPerWrite int
	// Capacity caps queued bytes. Zero means unlimited.
	Capacity int
	// DrainRate, in bytes per second, makes the sink consume queued
	// audio on its own as wall time passes, like a real device. Zero
	// leaves draining to explicit Consume calls.
	DrainRate int

	mu        sync.Mutex
	queued    int
	accepted  []byte
	cleared   int
	volume    int
	lastDrain time.Time
}

// drainLocked applies the elapsed-time drain. Callers hold s.mu.
func (s *AudioSink) drainLocked() {
	if s.DrainRate <= 0 {
		return
	}
	now := time.Now()
	if !s.lastDrain.IsZero() {
		n := int(now.Sub(s.lastDrain).Seconds() * float64(s.DrainRate))
		if n > 0 {
			s.queued -= n
			if s.queued < 0 {
				s.queued = 0
			}
		} else {
			return // keep lastDrain until a whole byte has elapsed
		}
	}
	s.lastDrain = now
}

var _ player.AudioSink = (*AudioSink)(nil)

func (s *AudioSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainLocked()

	n := len(p)
	if s.AcceptPerWrite > 0 && n > s.AcceptPerWrite {
		n = s.AcceptPerWrite
	}
	if s.Capacity > 0 {
		if space := s.Capacity - s.queued; n > space {
			n = space
		}
	}
	if n < 0 {
		n = 0
	}
	s.queued += n
	s.accepted = append(s.accepted, p[:n]...)
	return n, nil
}

func (s *AudioSink) BytesQueued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainLocked()
	return s.queued
}

func (s *AudioSink) SetVolumeHint(volume int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
}

func (s *AudioSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = 0
	s.cleared++
}

// Consume drains up to n queued bytes, simulating audible playback.
func (s *AudioSink) Consume(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued -= n
	if s.queued < 0 {
		s.queued = 0
	}
}

// Accepted returns a copy of every byte the sink has accepted, across
// clears.
func (s *AudioSink) Accepted() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.accepted))
	copy(out, s.accepted)
	return out
}

// Clears reports how many times Clear ran.
func (s *AudioSink) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}

// VolumeHint returns the last hinted volume.
func (s *AudioSink) VolumeHint() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}
