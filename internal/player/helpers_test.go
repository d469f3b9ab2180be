package player

import (
	"errors"
	"sync"
	"time"

	"github.com/zsiec/loopview/internal/logger"
	"github.com/zsiec/loopview/internal/media"
)

func testLog() logger.Logger {
	return logger.NewNullLogger()
}

func testThrottled() *logger.ThrottledLogger {
	return logger.NewThrottledLogger(logger.NewNullLogger(), time.Second, 1000)
}

func videoPkt(pts float64) media.Packet {
	return media.Packet{Stream: media.StreamVideo, PTS: pts}
}

func audioPkt(pts float64) media.Packet {
	return media.Packet{Stream: media.StreamAudio, PTS: pts}
}

// scriptSource plays back a fixed unit list. Seek repositions to the
// first unit at or after the target.
type scriptSource struct {
	mu    sync.Mutex
	info  SourceInfo
	units []media.Packet
	pos   int
	seeks []float64

	readErr   error
	readErrAt int // unit index triggering readErr, -1 disables
}

func newScriptSource(info SourceInfo, units []media.Packet) *scriptSource {
	return &scriptSource{info: info, units: units, readErrAt: -1}
}

func (s *scriptSource) Info() SourceInfo { return s.info }

func (s *scriptSource) ReadNextUnit() (media.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil && s.pos == s.readErrAt {
		return media.Packet{}, s.readErr
	}
	if s.pos >= len(s.units) {
		return media.Packet{}, ErrEndOfStream
	}
	pkt := s.units[s.pos]
	s.pos++
	return pkt, nil
}

func (s *scriptSource) Seek(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks = append(s.seeks, seconds)
	s.pos = len(s.units)
	for i, u := range s.units {
		if u.PTS >= seconds {
			s.pos = i
			break
		}
	}
	return nil
}

func (s *scriptSource) Close() error { return nil }

func (s *scriptSource) seekTargets() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.seeks))
	copy(out, s.seeks)
	return out
}

// fakeVideoDecoder echoes one frame per submitted unit, carrying the
// unit's pts.
type fakeVideoDecoder struct {
	mu        sync.Mutex
	pending   []media.VideoFrame
	flushes   int
	submitErr error
	gpu       bool
	device    *media.DeviceContext
}

func (d *fakeVideoDecoder) Submit(pkt media.Packet) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitErr != nil {
		err := d.submitErr
		d.submitErr = nil
		return err
	}
	var pic media.Picture
	if d.gpu {
		pic = media.GPUPicture{Handle: uint64(len(d.pending) + 1), Width: 2, Height: 2, Device: d.device}
	} else {
		pic = media.CPUPicture{Data: make([]byte, 16), Stride: 8, Width: 2, Height: 2}
	}
	d.pending = append(d.pending, media.VideoFrame{Picture: pic, PTS: pkt.PTS})
	return nil
}

func (d *fakeVideoDecoder) ReceiveFrame() (media.VideoFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return media.VideoFrame{}, ErrWouldBlock
	}
	f := d.pending[0]
	d.pending = d.pending[1:]
	return f, nil
}

func (d *fakeVideoDecoder) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
	d.flushes++
}

func (d *fakeVideoDecoder) Close() error { return nil }

func (d *fakeVideoDecoder) flushCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushes
}

// fakeAudioDecoder echoes one buffer per unit in the given native
// format, every sample set to sampleValue.
type fakeAudioDecoder struct {
	format      media.PCMFormat
	bufFrames   int
	sampleValue int16

	mu      sync.Mutex
	pending []media.AudioBuffer
	flushes int
}

func (d *fakeAudioDecoder) Submit(pkt media.Packet) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sample := d.sampleValue
	if sample == 0 {
		sample = 8192
	}
	data := make([]byte, d.bufFrames*d.format.BytesPerFrame())
	for i := 0; i+1 < len(data); i += 2 {
		data[i] = byte(uint16(sample))
		data[i+1] = byte(uint16(sample) >> 8)
	}
	d.pending = append(d.pending, media.AudioBuffer{Data: data, PTS: pkt.PTS})
	return nil
}

func (d *fakeAudioDecoder) ReceiveFrame() (media.AudioBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return media.AudioBuffer{}, ErrWouldBlock
	}
	b := d.pending[0]
	d.pending = d.pending[1:]
	return b, nil
}

func (d *fakeAudioDecoder) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
	d.flushes++
}

func (d *fakeAudioDecoder) Close() error { return nil }

// fakeAudioSink accepts at most acceptPerWrite bytes per call and
// retains what it accepted.
type fakeAudioSink struct {
	acceptPerWrite int

	mu       sync.Mutex
	queued   int
	accepted []byte
	clears   int
}

func (s *fakeAudioSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(p)
	if s.acceptPerWrite > 0 && n > s.acceptPerWrite {
		n = s.acceptPerWrite
	}
	s.queued += n
	s.accepted = append(s.accepted, p[:n]...)
	return n, nil
}

func (s *fakeAudioSink) BytesQueued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued
}

func (s *fakeAudioSink) SetVolumeHint(int) {}

func (s *fakeAudioSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = 0
	s.clears++
}

func (s *fakeAudioSink) consume(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued -= n
	if s.queued < 0 {
		s.queued = 0
	}
}

func (s *fakeAudioSink) acceptedBytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.accepted))
	copy(out, s.accepted)
	return out
}

func (s *fakeAudioSink) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// captureSink records presented frame timestamps.
type captureSink struct {
	mu  sync.Mutex
	pts []float64
}

func (s *captureSink) Present(frame media.VideoFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pts = append(s.pts, frame.PTS)
}

func (s *captureSink) presented() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.pts))
	copy(out, s.pts)
	return out
}

var errSynthetic = errors.New("synthetic failure")
