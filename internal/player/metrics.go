package player

// Metrics is the injectable diagnostics sink. The pipeline reports
// through it instead of mutating process-wide counters; the prometheus
// implementation lives in internal/metrics, and NopMetrics keeps the
// core dependency-free by default.
type Metrics interface {
	PacketDemuxed(stream string)
	PacketDiscarded()
	FrameDecoded(stream string)
	DecodeError(stream string)
	FrameRendered()
	FramesDropped(n int)
	AudioBufferPlayed(bytes int)
	AudioUnderrun()
	QueueDepth(queue string, depth int)
	RenderDelay(seconds float64)
	ClockDrift(seconds float64)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) PacketDemuxed(string)        {}
func (NopMetrics) PacketDiscarded()            {}
func (NopMetrics) FrameDecoded(string)         {}
func (NopMetrics) DecodeError(string)          {}
func (NopMetrics) FrameRendered()              {}
func (NopMetrics) FramesDropped(int)           {}
func (NopMetrics) AudioBufferPlayed(int)       {}
func (NopMetrics) AudioUnderrun()              {}
func (NopMetrics) QueueDepth(string, int)      {}
func (NopMetrics) RenderDelay(float64)         {}
func (NopMetrics) ClockDrift(float64)          {}
