package player

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/loopview/internal/media"
	"github.com/zsiec/loopview/internal/queue"
)

func TestVideoStage_DecodesAndForwards(t *testing.T) {
	in := queue.NewBounded[media.Packet](8, nil)
	out := queue.NewBounded[media.VideoFrame](8, nil)
	var offset syncOffset
	var flushGen atomic.Uint64

	s := newVideoDecodeStage(in, out, &fakeVideoDecoder{}, &offset, &flushGen, NopMetrics{}, testLog(), testThrottled())
	go s.run()
	defer func() { in.Close(); out.Close() }()

	in.Push(videoPkt(0))
	in.Push(videoPkt(0.033))

	f, ok := out.Pop()
	require.True(t, ok)
	assert.Equal(t, 0.0, f.PTS)
	assert.False(t, f.IsHardware())

	f, ok = out.Pop()
	require.True(t, ok)
	assert.Equal(t, 0.033, f.PTS)
}

func TestVideoStage_FlushResetsDecoderAndClearsFrames(t *testing.T) {
	in := queue.NewBounded[media.Packet](8, nil)
	out := queue.NewBounded[media.VideoFrame](8, nil)
	var offset syncOffset
	var flushGen atomic.Uint64
	dec := &fakeVideoDecoder{}

	offset.SetVideoOrigin(5.0)

	s := newVideoDecodeStage(in, out, dec, &offset, &flushGen, NopMetrics{}, testLog(), testThrottled())
	go s.run()
	defer func() { in.Close(); out.Close() }()

	in.Push(videoPkt(5.0))
	require.Eventually(t, func() bool { return out.Len() == 1 }, time.Second, time.Millisecond)

	in.Push(media.FlushPacket(media.StreamVideo))
	in.Push(videoPkt(0))

	require.Eventually(t, func() bool { return flushGen.Load() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return dec.flushCount() == 1 }, time.Second, time.Millisecond)

	// The pre-flush frame is gone; the post-flush frame comes through
	// and the video origin is free to be re-established.
	f, ok := out.Pop()
	require.True(t, ok)
	assert.Equal(t, 0.0, f.PTS)

	offset.SetVideoOrigin(0)
	offset.SetAudioOrigin(0)
	off, valid := offset.Offset()
	require.True(t, valid)
	assert.Equal(t, 0.0, off)
}

func TestVideoStage_BadUnitIsSkipped(t *testing.T) {
	in := queue.NewBounded[media.Packet](8, nil)
	out := queue.NewBounded[media.VideoFrame](8, nil)
	var offset syncOffset
	var flushGen atomic.Uint64
	dec := &fakeVideoDecoder{submitErr: errSynthetic}

	s := newVideoDecodeStage(in, out, dec, &offset, &flushGen, NopMetrics{}, testLog(), testThrottled())
	go s.run()
	defer func() { in.Close(); out.Close() }()

	in.Push(videoPkt(0))     // fails
	in.Push(videoPkt(0.033)) // decodes

	f, ok := out.Pop()
	require.True(t, ok)
	assert.Equal(t, 0.033, f.PTS, "stage should skip the bad unit and continue")
}

func TestAudioStage_NormalizesFormat(t *testing.T) {
	in := queue.NewBounded[media.Packet](8, nil)
	out := queue.NewBounded[media.AudioBuffer](8, nil)
	var offset syncOffset
	clock := newAudioClock(media.OutputFormat)

	native := media.PCMFormat{SampleRate: 22050, Channels: 1}
	dec := &fakeAudioDecoder{format: native, bufFrames: 2205} // 100ms mono

	s := newAudioDecodeStage(in, out, dec, native, media.OutputFormat, clock, &offset, NopMetrics{}, testLog(), testThrottled())
	go s.run()
	defer func() { in.Close(); out.Close() }()

	in.Push(audioPkt(0))

	buf, ok := out.Pop()
	require.True(t, ok)
	// 100ms at the output format, whatever the native layout was.
	assert.InDelta(t, 0.1, buf.Duration(media.OutputFormat), 0.001)
	assert.False(t, buf.VolumeApplied)
}

func TestAudioStage_FlushInvalidatesClock(t *testing.T) {
	in := queue.NewBounded[media.Packet](8, nil)
	out := queue.NewBounded[media.AudioBuffer](8, nil)
	var offset syncOffset
	clock := newAudioClock(media.OutputFormat)
	clock.Establish(3.0)
	offset.SetAudioOrigin(3.0)

	dec := &fakeAudioDecoder{format: media.OutputFormat, bufFrames: 64}
	s := newAudioDecodeStage(in, out, dec, media.OutputFormat, media.OutputFormat, clock, &offset, NopMetrics{}, testLog(), testThrottled())
	go s.run()
	defer func() { in.Close(); out.Close() }()

	in.Push(audioPkt(3.0))
	require.Eventually(t, func() bool { return out.Len() == 1 }, time.Second, time.Millisecond)

	gen := clock.Generation()
	in.Push(media.FlushPacket(media.StreamAudio))

	require.Eventually(t, func() bool { return clock.Generation() == gen+1 }, time.Second, time.Millisecond)
	assert.False(t, clock.Valid())
	assert.Equal(t, 0, out.Len(), "queued PCM discarded on flush")
}
