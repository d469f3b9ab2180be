// Package synth provides in-memory implementations of the player's
// collaborator interfaces: a deterministic media source, decoders that
// reconstruct timestamps from the synthetic units, and inspectable
// sinks. The demo binary and the pipeline tests both run on it, so the
// playback core can be exercised end to end without codecs or devices.
package synth

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/zsiec/loopview/internal/media"
	"github.com/zsiec/loopview/internal/player"
)

// Config describes the synthetic clip.
type Config struct {
	Duration  float64 // seconds
	FrameRate float64 // video frames per second

	HasVideo bool
	HasAudio bool

	Width  int
	Height int

	// AudioFormat is the decoder's native output layout; the pipeline
	// normalizes it to media.OutputFormat.
	AudioFormat media.PCMFormat
	// AudioChunk is the duration of PCM carried by one audio unit.
	AudioChunk time.Duration

	// GPU makes the video decoder emit GPUPicture frames sharing one
	// device context with the renderer.
	GPU bool
}

// DefaultConfig is a 30fps stereo clip of the given length.
func DefaultConfig(duration float64) Config {
	return Config{
		Duration:    duration,
		FrameRate:   30,
		HasVideo:    true,
		HasAudio:    true,
		Width:       64,
		Height:      36,
		AudioFormat: media.OutputFormat,
		AudioChunk:  20 * time.Millisecond,
	}
}

// Each unit's payload is just its timestamp; the synthetic decoders
// rebuild frames from it.
func encodePTS(pts float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(pts))
	return buf
}

func decodePTS(data []byte) (float64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("bad unit payload, got %d bytes", len(data))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
}

// Source emits video and audio units interleaved in timestamp order, the
// way a real container delivers them.
type Source struct {
	cfg Config

	mu         sync.Mutex
	nextVideo  int
	nextAudio  int
	readsAfter int // units read since the last Seek, for tests
}

var _ player.Source = (*Source)(nil)

func NewSource(cfg Config) *Source {
	return &Source{cfg: cfg}
}

func (s *Source) Info() player.SourceInfo {
	return player.SourceInfo{
		HasVideo:    s.cfg.HasVideo,
		HasAudio:    s.cfg.HasAudio,
		Duration:    s.cfg.Duration,
		Width:       s.cfg.Width,
		Height:      s.cfg.Height,
		AudioFormat: s.cfg.AudioFormat,
	}
}

func (s *Source) videoPTS(i int) float64 { return float64(i) / s.cfg.FrameRate }
func (s *Source) audioPTS(i int) float64 { return float64(i) * s.cfg.AudioChunk.Seconds() }

func (s *Source) ReadNextUnit() (media.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vPTS, aPTS := math.Inf(1), math.Inf(1)
	if s.cfg.HasVideo {
		if pts := s.videoPTS(s.nextVideo); pts < s.cfg.Duration {
			vPTS = pts
		}
	}
	if s.cfg.HasAudio {
		if pts := s.audioPTS(s.nextAudio); pts < s.cfg.Duration {
			aPTS = pts
		}
	}

	if math.IsInf(vPTS, 1) && math.IsInf(aPTS, 1) {
		return media.Packet{}, player.ErrEndOfStream
	}

	s.readsAfter++
	if vPTS <= aPTS {
		s.nextVideo++
		return media.Packet{Stream: media.StreamVideo, Data: encodePTS(vPTS), PTS: vPTS}, nil
	}
	s.nextAudio++
	return media.Packet{Stream: media.StreamAudio, Data: encodePTS(aPTS), PTS: aPTS}, nil
}

func (s *Source) Seek(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seconds < 0 || seconds > s.cfg.Duration {
		return fmt.Errorf("seek target %.3f outside [0, %.3f]", seconds, s.cfg.Duration)
	}
	s.nextVideo = int(math.Ceil(seconds * s.cfg.FrameRate))
	s.nextAudio = int(math.Ceil(seconds / s.cfg.AudioChunk.Seconds()))
	s.readsAfter = 0
	return nil
}

func (s *Source) Close() error { return nil }

// ReadsSinceSeek reports units handed out since the last Seek.
func (s *Source) ReadsSinceSeek() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readsAfter
}

// VideoDecoder turns synthetic video units back into frames, one frame
// per unit. ErrEvery, when positive, fails every Nth Submit to exercise
// the transient decode error path.
type VideoDecoder struct {
	cfg    Config
	device *media.DeviceContext

	ErrEvery int

	mu        sync.Mutex
	pending   []float64
	submits   int
	flushes   int
	handleSeq uint64
	closed    bool
}

var _ player.VideoDecoder = (*VideoDecoder)(nil)

func NewVideoDecoder(cfg Config, device *media.DeviceContext) *VideoDecoder {
	return &VideoDecoder{cfg: cfg, device: device}
}

func (d *VideoDecoder) Submit(pkt media.Packet) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("decoder closed")
	}
	d.submits++
	if d.ErrEvery > 0 && d.submits%d.ErrEvery == 0 {
		return fmt.Errorf("synthetic decode failure on unit %d", d.submits)
	}
	pts, err := decodePTS(pkt.Data)
	if err != nil {
		return err
	}
	d.pending = append(d.pending, pts)
	return nil
}

func (d *VideoDecoder) ReceiveFrame() (media.VideoFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return media.VideoFrame{}, player.ErrWouldBlock
	}
	pts := d.pending[0]
	d.pending = d.pending[1:]

	var pic media.Picture
	if d.cfg.GPU {
		d.handleSeq++
		pic = media.GPUPicture{
			Handle: d.handleSeq,
			Width:  d.cfg.Width,
			Height: d.cfg.Height,
			Device: d.device,
		}
	} else {
		pic = media.CPUPicture{
			Data:   make([]byte, d.cfg.Width*d.cfg.Height*4),
			Stride: d.cfg.Width * 4,
			Width:  d.cfg.Width,
			Height: d.cfg.Height,
		}
	}
	return media.VideoFrame{Picture: pic, PTS: pts}, nil
}

func (d *VideoDecoder) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
	d.flushes++
}

func (d *VideoDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.pending = nil
	return nil
}

// Flushes reports how many times Flush ran.
func (d *VideoDecoder) Flushes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushes
}

// AudioDecoder emits one PCM buffer per unit in the clip's native
// format, filled with a fixed nonzero sample so volume scaling is
// observable.
type AudioDecoder struct {
	cfg Config

	// SampleValue is the S16 value every sample carries. Defaults to
	// 8192 when zero.
	SampleValue int16

	mu      sync.Mutex
	pending []float64
	flushes int
	closed  bool
}

var _ player.AudioDecoder = (*AudioDecoder)(nil)

func NewAudioDecoder(cfg Config) *AudioDecoder {
	return &AudioDecoder{cfg: cfg}
}

func (d *AudioDecoder) Submit(pkt media.Packet) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("decoder closed")
	}
	pts, err := decodePTS(pkt.Data)
	if err != nil {
		return err
	}
	d.pending = append(d.pending, pts)
	return nil
}

func (d *AudioDecoder) ReceiveFrame() (media.AudioBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return media.AudioBuffer{}, player.ErrWouldBlock
	}
	pts := d.pending[0]
	d.pending = d.pending[1:]

	sample := d.SampleValue
	if sample == 0 {
		sample = 8192
	}
	frames := int(float64(d.cfg.AudioFormat.SampleRate) * d.cfg.AudioChunk.Seconds())
	data := make([]byte, frames*d.cfg.AudioFormat.BytesPerFrame())
	for i := 0; i+1 < len(data); i += 2 {
		binary.LittleEndian.PutUint16(data[i:], uint16(sample))
	}
	return media.AudioBuffer{Data: data, PTS: pts}, nil
}

func (d *AudioDecoder) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
	d.flushes++
}

func (d *AudioDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.pending = nil
	return nil
}

func (d *AudioDecoder) Flushes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushes
}

// Opener wires a Config into the player.Opener interface. The path
// argument is ignored; every open yields a fresh source and decoders
// over the same clip.
type Opener struct {
	Cfg Config

	// FailOpen, when set, makes OpenSource fail, for error-path tests.
	FailOpen error
	// FailHardware makes hardware decoder opens fail while software
	// succeeds, for fallback tests.
	FailHardware bool

	mu          sync.Mutex
	lastSource  *Source
	lastVideo   *VideoDecoder
	lastAudio   *AudioDecoder
	sourceOpens int
}

var _ player.Opener = (*Opener)(nil)

func (o *Opener) OpenSource(path string) (player.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.FailOpen != nil {
		return nil, o.FailOpen
	}
	o.sourceOpens++
	o.lastSource = NewSource(o.Cfg)
	return o.lastSource, nil
}

func (o *Opener) OpenVideoDecoder(info player.SourceInfo, preferHardware bool, device *media.DeviceContext) (player.VideoDecoder, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if preferHardware && o.FailHardware {
		return nil, fmt.Errorf("no hardware decode device")
	}
	cfg := o.Cfg
	cfg.GPU = preferHardware
	o.lastVideo = NewVideoDecoder(cfg, device)
	return o.lastVideo, nil
}

func (o *Opener) OpenAudioDecoder(info player.SourceInfo) (player.AudioDecoder, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastAudio = NewAudioDecoder(o.Cfg)
	return o.lastAudio, nil
}

// LastSource returns the most recently opened source.
func (o *Opener) LastSource() *Source {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSource
}

// SourceOpens reports how many sources have been opened.
func (o *Opener) SourceOpens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sourceOpens
}
