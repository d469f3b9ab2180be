// Package metrics exposes the pipeline's prometheus instrumentation.
// The playback core reports through the player.Metrics interface;
// Recorder maps those calls onto the process-wide collectors served at
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Demux metrics
	packetsDemuxedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loopview_packets_demuxed_total",
		Help: "Compressed units routed to a decode stage",
	}, []string{"stream"})

	packetsDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loopview_packets_discarded_total",
		Help: "Units belonging to streams that are not played",
	})

	// Decode metrics
	framesDecodedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loopview_frames_decoded_total",
		Help: "Frames produced by the decode stages",
	}, []string{"stream"})

	decodeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loopview_decode_errors_total",
		Help: "Units that failed to decode and were skipped",
	}, []string{"stream"})

	// Render metrics
	framesRenderedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loopview_frames_rendered_total",
		Help: "Video frames handed to the presentation sink",
	})

	framesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loopview_frames_dropped_total",
		Help: "Video frames discarded to catch up with the audio clock",
	})

	renderDelaySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loopview_render_delay_seconds",
		Help:    "Scheduled inter-frame delay after sync correction",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~512ms
	})

	clockDriftSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loopview_clock_drift_seconds",
		Help: "Signed video-minus-audio drift at the last render decision",
	})

	// Audio output metrics
	audioBytesPlayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loopview_audio_bytes_played_total",
		Help: "PCM bytes accepted by the audio sink",
	})

	audioUnderrunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loopview_audio_underruns_total",
		Help: "Ticks that found the sink drained with no PCM queued",
	})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "loopview_queue_depth",
		Help: "Current occupancy of a pipeline queue",
	}, []string{"queue"})
)

// Recorder implements player.Metrics on the prometheus collectors.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (*Recorder) PacketDemuxed(stream string) {
	packetsDemuxedTotal.WithLabelValues(stream).Inc()
}

func (*Recorder) PacketDiscarded() {
	packetsDiscardedTotal.Inc()
}

func (*Recorder) FrameDecoded(stream string) {
	framesDecodedTotal.WithLabelValues(stream).Inc()
}

func (*Recorder) DecodeError(stream string) {
	decodeErrorsTotal.WithLabelValues(stream).Inc()
}

func (*Recorder) FrameRendered() {
	framesRenderedTotal.Inc()
}

func (*Recorder) FramesDropped(n int) {
	framesDroppedTotal.Add(float64(n))
}

func (*Recorder) AudioBufferPlayed(bytes int) {
	audioBytesPlayedTotal.Add(float64(bytes))
}

func (*Recorder) AudioUnderrun() {
	audioUnderrunsTotal.Inc()
}

func (*Recorder) QueueDepth(queue string, depth int) {
	queueDepth.WithLabelValues(queue).Set(float64(depth))
}

func (*Recorder) RenderDelay(seconds float64) {
	renderDelaySeconds.Observe(seconds)
}

func (*Recorder) ClockDrift(seconds float64) {
	clockDriftSeconds.Set(seconds)
}
