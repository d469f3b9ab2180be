package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/zsiec/loopview/internal/player"
)

// The recorder satisfies the pipeline's metrics interface.
var _ player.Metrics = (*Recorder)(nil)

func TestRecorder_CountersAccumulate(t *testing.T) {
	r := NewRecorder()

	before := testutil.ToFloat64(framesRenderedTotal)
	r.FrameRendered()
	r.FrameRendered()
	assert.Equal(t, before+2, testutil.ToFloat64(framesRenderedTotal))

	droppedBefore := testutil.ToFloat64(framesDroppedTotal)
	r.FramesDropped(5)
	assert.Equal(t, droppedBefore+5, testutil.ToFloat64(framesDroppedTotal))

	bytesBefore := testutil.ToFloat64(audioBytesPlayedTotal)
	r.AudioBufferPlayed(4096)
	assert.Equal(t, bytesBefore+4096, testutil.ToFloat64(audioBytesPlayedTotal))
}

func TestRecorder_LabeledAndGaugeMetrics(t *testing.T) {
	r := NewRecorder()

	before := testutil.ToFloat64(packetsDemuxedTotal.WithLabelValues("video"))
	r.PacketDemuxed("video")
	assert.Equal(t, before+1, testutil.ToFloat64(packetsDemuxedTotal.WithLabelValues("video")))

	r.QueueDepth("video_frames", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(queueDepth.WithLabelValues("video_frames")))

	r.ClockDrift(-0.042)
	assert.Equal(t, -0.042, testutil.ToFloat64(clockDriftSeconds))
}
