package player

import (
	"sync"
	"sync/atomic"
)

// Stats is a point-in-time snapshot of pipeline activity, served by the
// debug endpoints. Counters accumulate across the life of the Player,
// not per file.
type Stats struct {
	State    string  `json:"state"`
	Path     string  `json:"path,omitempty"`
	Position float64 `json:"position_seconds"`
	Duration float64 `json:"duration_seconds"`
	Volume   int     `json:"volume"`
	Loop     bool    `json:"loop"`
	Hardware bool    `json:"hardware_decode"`
	HasVideo bool    `json:"has_video"`
	HasAudio bool    `json:"has_audio"`

	PacketsDemuxed   int64 `json:"packets_demuxed"`
	PacketsDiscarded int64 `json:"packets_discarded"`
	FramesDecoded    int64 `json:"frames_decoded"`
	DecodeErrors     int64 `json:"decode_errors"`
	FramesRendered   int64 `json:"frames_rendered"`
	FramesDropped    int64 `json:"frames_dropped"`
	AudioBytesPlayed int64 `json:"audio_bytes_played"`
	AudioUnderruns   int64 `json:"audio_underruns"`

	QueueDepths map[string]int `json:"queue_depths"`

	LastRenderDelayMs float64 `json:"last_render_delay_ms"`
	LastClockDriftMs  float64 `json:"last_clock_drift_ms"`
}

// statsRecorder implements Metrics, keeping cheap local counters for
// Stats snapshots and forwarding every measurement to the injected
// backend (prometheus in the shipped binaries, NopMetrics otherwise).
type statsRecorder struct {
	next Metrics

	packetsDemuxed   atomic.Int64
	packetsDiscarded atomic.Int64
	framesDecoded    atomic.Int64
	decodeErrors     atomic.Int64
	framesRendered   atomic.Int64
	framesDropped    atomic.Int64
	audioBytesPlayed atomic.Int64
	audioUnderruns   atomic.Int64

	mu          sync.Mutex
	queueDepths map[string]int
	renderDelay float64
	clockDrift  float64
}

func newStatsRecorder(next Metrics) *statsRecorder {
	if next == nil {
		next = NopMetrics{}
	}
	return &statsRecorder{next: next, queueDepths: make(map[string]int)}
}

func (r *statsRecorder) PacketDemuxed(stream string) {
	r.packetsDemuxed.Add(1)
	r.next.PacketDemuxed(stream)
}

func (r *statsRecorder) PacketDiscarded() {
	r.packetsDiscarded.Add(1)
	r.next.PacketDiscarded()
}

func (r *statsRecorder) FrameDecoded(stream string) {
	r.framesDecoded.Add(1)
	r.next.FrameDecoded(stream)
}

func (r *statsRecorder) DecodeError(stream string) {
	r.decodeErrors.Add(1)
	r.next.DecodeError(stream)
}

func (r *statsRecorder) FrameRendered() {
	r.framesRendered.Add(1)
	r.next.FrameRendered()
}

func (r *statsRecorder) FramesDropped(n int) {
	r.framesDropped.Add(int64(n))
	r.next.FramesDropped(n)
}

func (r *statsRecorder) AudioBufferPlayed(bytes int) {
	r.audioBytesPlayed.Add(int64(bytes))
	r.next.AudioBufferPlayed(bytes)
}

func (r *statsRecorder) AudioUnderrun() {
	r.audioUnderruns.Add(1)
	r.next.AudioUnderrun()
}

func (r *statsRecorder) QueueDepth(queue string, depth int) {
	r.mu.Lock()
	r.queueDepths[queue] = depth
	r.mu.Unlock()
	r.next.QueueDepth(queue, depth)
}

func (r *statsRecorder) RenderDelay(seconds float64) {
	r.mu.Lock()
	r.renderDelay = seconds
	r.mu.Unlock()
	r.next.RenderDelay(seconds)
}

func (r *statsRecorder) ClockDrift(seconds float64) {
	r.mu.Lock()
	r.clockDrift = seconds
	r.mu.Unlock()
	r.next.ClockDrift(seconds)
}

func (r *statsRecorder) fill(s *Stats) {
	s.PacketsDemuxed = r.packetsDemuxed.Load()
	s.PacketsDiscarded = r.packetsDiscarded.Load()
	s.FramesDecoded = r.framesDecoded.Load()
	s.DecodeErrors = r.decodeErrors.Load()
	s.FramesRendered = r.framesRendered.Load()
	s.FramesDropped = r.framesDropped.Load()
	s.AudioBytesPlayed = r.audioBytesPlayed.Load()
	s.AudioUnderruns = r.audioUnderruns.Load()

	r.mu.Lock()
	s.QueueDepths = make(map[string]int, len(r.queueDepths))
	for k, v := range r.queueDepths {
		s.QueueDepths[k] = v
	}
	s.LastRenderDelayMs = r.renderDelay * 1000
	s.LastClockDriftMs = r.clockDrift * 1000
	r.mu.Unlock()
}
