package player_test

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/loopview/internal/config"
	"github.com/zsiec/loopview/internal/errors"
	"github.com/zsiec/loopview/internal/logger"
	"github.com/zsiec/loopview/internal/media"
	"github.com/zsiec/loopview/internal/player"
	"github.com/zsiec/loopview/internal/synth"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Pipeline.RenderTick = 2 * time.Millisecond
	cfg.Pipeline.AudioTick = 2 * time.Millisecond
	cfg.Player.PositionInterval = 20 * time.Millisecond
	cfg.Audio.SinkWindow = 50 * time.Millisecond
	return cfg
}

func realtimeSink() *synth.AudioSink {
	return &synth.AudioSink{DrainRate: media.OutputFormat.ByteRate()}
}

type eventLog struct {
	mu        sync.Mutex
	eof       int
	loaded    int
	errs      []error
	positions []float64
	states    []bool
}

func (e *eventLog) events() *player.Events {
	return &player.Events{
		OnEndOfFile: func() {
			e.mu.Lock()
			e.eof++
			e.mu.Unlock()
		},
		OnFileLoaded: func() {
			e.mu.Lock()
			e.loaded++
			e.mu.Unlock()
		},
		OnError: func(err error) {
			e.mu.Lock()
			e.errs = append(e.errs, err)
			e.mu.Unlock()
		},
		OnPositionChanged: func(s float64) {
			e.mu.Lock()
			e.positions = append(e.positions, s)
			e.mu.Unlock()
		},
		OnStateChanged: func(playing bool) {
			e.mu.Lock()
			e.states = append(e.states, playing)
			e.mu.Unlock()
		},
	}
}

func (e *eventLog) eofCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eof
}

func (e *eventLog) lastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return nil
	}
	return e.errs[len(e.errs)-1]
}

func (e *eventLog) positionSeen(min float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.positions {
		if p >= min {
			return true
		}
	}
	return false
}

func TestPlayer_PlaysThroughAndSignalsEndOfFile(t *testing.T) {
	opener := &synth.Opener{Cfg: synth.DefaultConfig(0.3)}
	vsink := &synth.CaptureSink{}
	asink := realtimeSink()
	ev := &eventLog{}

	cfg := testConfig()
	cfg.Player.Loop = false

	p := player.New(cfg, opener, vsink, asink, ev.events(), nil, logger.NewNullLogger())
	require.NoError(t, p.Load("clip"))
	require.NoError(t, p.Play())
	assert.Equal(t, player.StatePlaying, p.State())

	require.Eventually(t, func() bool { return ev.eofCount() == 1 }, 10*time.Second, 10*time.Millisecond,
		"end of file never signaled")
	require.Eventually(t, func() bool { return p.State() == player.StateStopped }, 2*time.Second, 10*time.Millisecond)

	// The whole clip was presented in order.
	pts := vsink.Presented()
	require.NotEmpty(t, pts)
	assert.Equal(t, 0.0, pts[0])
	for i := 1; i < len(pts); i++ {
		assert.Greater(t, pts[i], pts[i-1], "frames out of order at %d", i)
	}
	assert.Less(t, pts[len(pts)-1], 0.3)
}

func TestPlayer_LoopRestartsFromZero(t *testing.T) {
	opener := &synth.Opener{Cfg: synth.DefaultConfig(0.2)}
	vsink := &synth.CaptureSink{}
	asink := realtimeSink()
	ev := &eventLog{}

	cfg := testConfig()
	cfg.Player.Loop = true

	p := player.New(cfg, opener, vsink, asink, ev.events(), nil, logger.NewNullLogger())
	require.NoError(t, p.Load("clip"))
	require.NoError(t, p.Play())
	defer p.Stop()

	// Wait for at least one wrap: a presented pts smaller than one the
	// sink already saw.
	require.Eventually(t, func() bool {
		pts := vsink.Presented()
		seenLate := false
		for _, v := range pts {
			if v >= 0.15 {
				seenLate = true
			}
			if seenLate && v < 0.05 {
				return true
			}
		}
		return false
	}, 10*time.Second, 10*time.Millisecond, "playback never looped back to the start")

	assert.Zero(t, ev.eofCount(), "looping playback must not signal end of file")
}

func TestPlayer_SeekJumpsForward(t *testing.T) {
	opener := &synth.Opener{Cfg: synth.DefaultConfig(2.0)}
	vsink := &synth.CaptureSink{}
	asink := realtimeSink()
	ev := &eventLog{}

	p := player.New(testConfig(), opener, vsink, asink, ev.events(), nil, logger.NewNullLogger())
	require.NoError(t, p.Load("clip"))
	require.NoError(t, p.Play())
	defer p.Stop()

	require.Eventually(t, func() bool { return vsink.Count() > 0 }, 2*time.Second, time.Millisecond)

	// Pausing keeps the render ticks from overwriting the position while
	// it is asserted.
	p.Pause()
	p.Seek(1.5)
	assert.InDelta(t, 1.5, p.Position(), 0.001, "position tracks the gesture immediately")
	require.NoError(t, p.Play())

	require.Eventually(t, func() bool {
		for _, v := range vsink.Presented() {
			if v >= 1.5 {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond, "post-seek content never rendered")
}

func TestPlayer_SeekClampedToDuration(t *testing.T) {
	opener := &synth.Opener{Cfg: synth.DefaultConfig(1.0)}
	ev := &eventLog{}

	p := player.New(testConfig(), opener, &synth.CaptureSink{}, realtimeSink(), ev.events(), nil, logger.NewNullLogger())
	require.NoError(t, p.Load("clip"))
	require.NoError(t, p.Play())
	defer p.Stop()
	p.Pause()

	p.Seek(99)
	assert.Equal(t, 1.0, p.Position())
	p.Seek(-5)
	assert.Equal(t, 0.0, p.Position())
}

func TestPlayer_OpenErrorSurfaced(t *testing.T) {
	opener := &synth.Opener{Cfg: synth.DefaultConfig(1), FailOpen: assert.AnError}
	ev := &eventLog{}

	p := player.New(testConfig(), opener, &synth.CaptureSink{}, realtimeSink(), ev.events(), nil, logger.NewNullLogger())
	err := p.Load("clip")
	require.Error(t, err)

	perr, ok := errors.GetPlayerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeOpen, perr.Type)
	assert.Equal(t, err, ev.lastError())
	assert.Equal(t, player.StateStopped, p.State())
}

func TestPlayer_HardwareFallbackToSoftware(t *testing.T) {
	opener := &synth.Opener{Cfg: synth.DefaultConfig(0.5), FailHardware: true}
	ev := &eventLog{}

	cfg := testConfig()
	cfg.Player.PreferHardware = true

	p := player.New(cfg, opener, &synth.CaptureSink{}, realtimeSink(), ev.events(), nil, logger.NewNullLogger())
	require.NoError(t, p.Load("clip"))
	assert.False(t, p.Stats().Hardware)
}

func TestPlayer_HardwareRequiredFailsClosed(t *testing.T) {
	opener := &synth.Opener{Cfg: synth.DefaultConfig(0.5), FailHardware: true}
	ev := &eventLog{}

	cfg := testConfig()
	cfg.Player.PreferHardware = true
	cfg.Player.RequireHardware = true

	p := player.New(cfg, opener, &synth.CaptureSink{}, realtimeSink(), ev.events(), nil, logger.NewNullLogger())
	err := p.Load("clip")
	require.Error(t, err)

	perr, ok := errors.GetPlayerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeDevice, perr.Type)
	assert.True(t, errors.IsFatal(err))
}

func TestPlayer_VolumeScaledOncePerSample(t *testing.T) {
	opener := &synth.Opener{Cfg: synth.DefaultConfig(0.3)}
	asink := realtimeSink()
	ev := &eventLog{}

	p := player.New(testConfig(), opener, &synth.CaptureSink{}, asink, ev.events(), nil, logger.NewNullLogger())
	p.SetVolume(50)
	require.NoError(t, p.Load("clip"))
	require.NoError(t, p.Play())
	defer p.Stop()

	require.Eventually(t, func() bool { return len(asink.Accepted()) > 1000 }, 5*time.Second, 10*time.Millisecond)
	p.Pause()

	// The synthetic decoder emits constant 8192 samples; at 50% every
	// accepted sample must be exactly 4096, not 2048 (scaled twice) and
	// not 8192 (never scaled).
	data := asink.Accepted()
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		require.Equal(t, int16(4096), sample, "sample %d", i/2)
	}
	assert.Equal(t, 50, asink.VolumeHint())
}

func TestPlayer_PauseAndResume(t *testing.T) {
	opener := &synth.Opener{Cfg: synth.DefaultConfig(5)}
	vsink := &synth.CaptureSink{}
	ev := &eventLog{}

	p := player.New(testConfig(), opener, vsink, realtimeSink(), ev.events(), nil, logger.NewNullLogger())
	require.NoError(t, p.Load("clip"))
	require.NoError(t, p.Play())
	defer p.Stop()

	require.Eventually(t, func() bool { return vsink.Count() > 2 }, 2*time.Second, time.Millisecond)

	p.Pause()
	assert.Equal(t, player.StatePaused, p.State())
	count := vsink.Count()
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, vsink.Count(), count+1, "paused player must not keep rendering")

	require.NoError(t, p.Play())
	assert.Equal(t, player.StatePlaying, p.State())
	require.Eventually(t, func() bool { return vsink.Count() > count+2 }, 2*time.Second, time.Millisecond)
}

func TestPlayer_StopTearsDownAndPlayReopens(t *testing.T) {
	opener := &synth.Opener{Cfg: synth.DefaultConfig(5)}
	vsink := &synth.CaptureSink{}
	ev := &eventLog{}

	p := player.New(testConfig(), opener, vsink, realtimeSink(), ev.events(), nil, logger.NewNullLogger())
	require.NoError(t, p.Load("clip"))
	require.NoError(t, p.Play())
	require.Eventually(t, func() bool { return vsink.Count() > 0 }, 2*time.Second, time.Millisecond)

	p.Stop()
	assert.Equal(t, player.StateStopped, p.State())
	assert.Equal(t, 0.0, p.Position())
	p.Stop() // idempotent

	opens := opener.SourceOpens()
	require.NoError(t, p.Play())
	defer p.Stop()
	assert.Equal(t, opens+1, opener.SourceOpens(), "play after stop reopens the source")
	require.Eventually(t, func() bool { return p.Position() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPlayer_PositionEventsAdvance(t *testing.T) {
	opener := &synth.Opener{Cfg: synth.DefaultConfig(5)}
	ev := &eventLog{}

	p := player.New(testConfig(), opener, &synth.CaptureSink{}, realtimeSink(), ev.events(), nil, logger.NewNullLogger())
	require.NoError(t, p.Load("clip"))
	require.NoError(t, p.Play())
	defer p.Stop()

	require.Eventually(t, func() bool { return ev.positionSeen(0.2) }, 5*time.Second, 10*time.Millisecond)
	assert.InDelta(t, 5.0, p.Duration(), 1e-9)
}

func TestPlayer_PlayWithoutLoadFails(t *testing.T) {
	p := player.New(testConfig(), &synth.Opener{Cfg: synth.DefaultConfig(1)},
		&synth.CaptureSink{}, realtimeSink(), nil, nil, logger.NewNullLogger())
	err := p.Play()
	require.Error(t, err)
	perr, ok := errors.GetPlayerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeOpen, perr.Type)
}

func TestPlayer_StatsSnapshot(t *testing.T) {
	opener := &synth.Opener{Cfg: synth.DefaultConfig(1)}
	p := player.New(testConfig(), opener, &synth.CaptureSink{}, realtimeSink(), nil, nil, logger.NewNullLogger())
	require.NoError(t, p.Load("clip"))
	require.NoError(t, p.Play())
	defer p.Stop()

	require.Eventually(t, func() bool { return p.Stats().FramesRendered > 0 }, 2*time.Second, 10*time.Millisecond)

	s := p.Stats()
	assert.Equal(t, "playing", s.State)
	assert.Equal(t, "clip", s.Path)
	assert.Positive(t, s.PacketsDemuxed)
	assert.Positive(t, s.FramesDecoded)
	assert.Positive(t, s.AudioBytesPlayed)
}
