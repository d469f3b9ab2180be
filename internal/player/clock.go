package player

import (
	"sync"

	"github.com/zsiec/loopview/internal/media"
)

// audioClock maps wall time to media time from the audio path. Media time
// is originPTS plus the seconds of PCM the sink has actually played, i.e.
// (bytesWritten - bytesQueuedInSink) / byteRate. Writing can run far
// ahead of audible playback, so the clock is derived from consumption,
// never from submission.
//
// The clock is invalidated on stop, seek and loop restart; the next
// buffer dequeued by the output driver re-establishes the origin.
type audioClock struct {
	mu sync.Mutex

	valid        bool
	originPTS    float64
	bytesWritten int64
	generation   uint64 // bumped on every invalidation

	format media.PCMFormat
}

func newAudioClock(format media.PCMFormat) *audioClock {
	return &audioClock{format: format}
}

// Establish sets the clock origin from the first buffer after an
// invalidation.
func (c *audioClock) Establish(pts float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = true
	c.originPTS = pts
	c.bytesWritten = 0
}

// Invalidate marks the clock stale and bumps the generation so the output
// driver discards in-flight state.
func (c *audioClock) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.bytesWritten = 0
	c.generation++
}

// AddBytes records PCM bytes accepted by the sink.
func (c *audioClock) AddBytes(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytesWritten += int64(n)
}

// Now returns the current media time given the bytes still queued inside
// the sink, and whether the clock is valid.
func (c *audioClock) Now(bytesQueued int) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return 0, false
	}
	played := c.bytesWritten - int64(bytesQueued)
	if played < 0 {
		played = 0
	}
	return c.originPTS + float64(played)/float64(c.format.ByteRate()), true
}

// Valid reports clock validity.
func (c *audioClock) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// Generation returns the invalidation counter.
func (c *audioClock) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// syncOffset aligns the video and audio timestamp domains, which are not
// guaranteed to start at zero or at the same value. The offset is the
// difference between the first video pts and the first audio pts seen
// after a (re)start, computed once when both are known and frozen until
// the next reset.
type syncOffset struct {
	mu sync.Mutex

	videoOrigin    float64
	videoOriginSet bool
	audioOrigin    float64
	audioOriginSet bool

	offset      float64
	offsetValid bool
}

// SetVideoOrigin records the first video pts after a restart.
func (s *syncOffset) SetVideoOrigin(pts float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.videoOriginSet {
		return
	}
	s.videoOrigin = pts
	s.videoOriginSet = true
	s.compute()
}

// SetAudioOrigin records the first audio pts after a restart.
func (s *syncOffset) SetAudioOrigin(pts float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audioOriginSet {
		return
	}
	s.audioOrigin = pts
	s.audioOriginSet = true
	s.compute()
}

func (s *syncOffset) compute() {
	if s.videoOriginSet && s.audioOriginSet && !s.offsetValid {
		s.offset = s.videoOrigin - s.audioOrigin
		s.offsetValid = true
	}
}

// Offset returns the frozen offset and whether it has been established.
func (s *syncOffset) Offset() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset, s.offsetValid
}

// ResetVideo clears the video origin and the offset, to be recomputed
// after a flush.
func (s *syncOffset) ResetVideo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoOriginSet = false
	s.offsetValid = false
}

// ResetAudio clears the audio origin and the offset.
func (s *syncOffset) ResetAudio() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioOriginSet = false
	s.offsetValid = false
}

// Reset clears everything.
func (s *syncOffset) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoOriginSet = false
	s.audioOriginSet = false
	s.offsetValid = false
}
