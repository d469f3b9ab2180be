package player

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zsiec/loopview/internal/config"
	"github.com/zsiec/loopview/internal/errors"
	"github.com/zsiec/loopview/internal/logger"
	"github.com/zsiec/loopview/internal/media"
	"github.com/zsiec/loopview/internal/queue"
)

// State is the player lifecycle state.
type State int32

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Player owns the full pipeline: demux, the two decode stages, the audio
// output driver and the render controller, wired over bounded queues.
// Control methods are safe to call from any goroutine; event callbacks
// fire on pipeline goroutines and must not call back into the Player.
type Player struct {
	cfg    *config.Config
	opener Opener
	vsink  VideoSink
	asink  AudioSink
	events *Events

	log  logger.Logger
	tlog *logger.ThrottledLogger

	stats *statsRecorder

	mu sync.Mutex // lifecycle transitions and media handles

	state   atomic.Int32
	running atomic.Bool
	loop    atomic.Bool
	volume  atomic.Int32

	path     string
	src      Source
	info     SourceInfo
	device   *media.DeviceContext
	vdec     VideoDecoder
	adec     AudioDecoder
	hardware bool

	videoPackets *queue.Bounded[media.Packet]
	audioPackets *queue.Bounded[media.Packet]
	videoFrames  *queue.Bounded[media.VideoFrame]
	audioFrames  *queue.Bounded[media.AudioBuffer]

	demux    *demuxStage
	clock    *audioClock
	offset   syncOffset
	driver   *audioDriver
	render   *renderController
	flushGen atomic.Uint64

	eos         atomic.Bool
	eosSignaled atomic.Bool

	positionBits atomic.Uint64

	wg       sync.WaitGroup
	tickStop chan struct{}
	tickDone chan struct{}

	sessionID string
}

// New builds a stopped Player. A nil metrics sink and nil events are
// both fine.
func New(cfg *config.Config, opener Opener, vsink VideoSink, asink AudioSink,
	events *Events, m Metrics, log logger.Logger,
) *Player {
	p := &Player{
		cfg:    cfg,
		opener: opener,
		vsink:  vsink,
		asink:  asink,
		events: events,
		log:    log.WithField("component", "player"),
		stats:  newStatsRecorder(m),
	}
	p.tlog = logger.NewThrottledLogger(p.log, time.Second, 3)
	p.loop.Store(cfg.Player.Loop)
	p.volume.Store(int32(cfg.Player.Volume))
	return p
}

// Load stops current playback, opens the file and prepares decoders.
// Playback starts on Play; Load alone leaves the player stopped.
func (p *Player) Load(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.closeMediaLocked()

	if err := p.openLocked(path); err != nil {
		p.events.errorOccurred(err)
		return err
	}

	p.events.durationChanged(p.info.Duration)
	p.events.fileLoaded()
	return nil
}

// openLocked opens the source and its decoders, with hardware decode
// fallback: a device failure retries in software unless hardware is
// required.
func (p *Player) openLocked(path string) error {
	src, err := p.opener.OpenSource(path)
	if err != nil {
		return errors.WrapOpenError(err, fmt.Sprintf("opening %s", path))
	}
	info := src.Info()
	if !info.HasVideo && !info.HasAudio {
		src.Close()
		return errors.NewOpenError(fmt.Sprintf("%s has no playable streams", path))
	}

	var (
		device   *media.DeviceContext
		vdec     VideoDecoder
		adec     AudioDecoder
		hardware bool
	)

	if info.HasVideo {
		if p.cfg.Player.PreferHardware {
			device = &media.DeviceContext{}
			vdec, err = p.opener.OpenVideoDecoder(info, true, device)
			if err != nil {
				if p.cfg.Player.RequireHardware {
					src.Close()
					return errors.Wrap(err, errors.ErrorTypeDevice, errors.SeverityFatal,
						"hardware decoder unavailable and required")
				}
				p.log.WithError(err).Warn("hardware decoder unavailable, falling back to software")
				device = nil
				vdec, err = p.opener.OpenVideoDecoder(info, false, nil)
			} else {
				hardware = true
			}
		} else {
			vdec, err = p.opener.OpenVideoDecoder(info, false, nil)
		}
		if err != nil {
			src.Close()
			return errors.WrapOpenError(err, "opening video decoder")
		}
	}

	if info.HasAudio {
		adec, err = p.opener.OpenAudioDecoder(info)
		if err != nil {
			if vdec != nil {
				vdec.Close()
			}
			src.Close()
			return errors.WrapOpenError(err, "opening audio decoder")
		}
	}

	p.path = path
	p.src = src
	p.info = info
	p.device = device
	p.vdec = vdec
	p.adec = adec
	p.hardware = hardware

	p.log.WithFields(logger.Fields{
		"path":     path,
		"duration": info.Duration,
		"video":    info.HasVideo,
		"audio":    info.HasAudio,
		"hardware": hardware,
	}).Info("media loaded")
	return nil
}

// Play starts playback, resuming if paused. A stopped player whose media
// was torn down by Stop reopens the last loaded path.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.State() {
	case StatePlaying:
		return nil
	case StatePaused:
		p.state.Store(int32(StatePlaying))
		p.events.stateChanged(true)
		return nil
	}

	if p.path == "" {
		return errors.NewOpenError("no file loaded")
	}
	if p.src == nil {
		if err := p.openLocked(p.path); err != nil {
			p.events.errorOccurred(err)
			return err
		}
	}

	p.startLocked()
	return nil
}

// startLocked spins up queues, stages and the tick loop for the opened
// media.
func (p *Player) startLocked() {
	cfg := p.cfg
	p.sessionID = uuid.New().String()
	log := p.log.WithField("session_id", p.sessionID)

	p.clock = newAudioClock(media.OutputFormat)
	p.offset.Reset()
	p.eos.Store(false)
	p.eosSignaled.Store(false)
	p.positionBits.Store(0)

	p.videoPackets = queue.NewBounded[media.Packet](cfg.Pipeline.VideoPacketQueueSize, nil)
	p.audioPackets = queue.NewBounded[media.Packet](cfg.Pipeline.AudioPacketQueueSize, nil)
	p.videoFrames = queue.NewBounded[media.VideoFrame](cfg.Pipeline.VideoFrameQueueSize, nil)
	p.audioFrames = queue.NewBounded[media.AudioBuffer](cfg.Pipeline.AudioFrameQueueSize, nil)

	p.running.Store(true)

	p.demux = newDemuxStage(p.src, p.videoPackets, p.audioPackets, &p.running, &p.loop, p.stats, log)
	p.demux.onEndOfStream = func() { p.eos.Store(true) }
	p.demux.onFatal = p.fatalError

	p.render = nil
	p.driver = nil

	if p.info.HasAudio {
		astage := newAudioDecodeStage(p.audioPackets, p.audioFrames, p.adec,
			p.info.AudioFormat, media.OutputFormat, p.clock, &p.offset,
			p.stats, log, p.tlog)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			astage.run()
		}()
		p.driver = newAudioDriver(p.audioFrames, p.asink, p.clock, &p.offset,
			&p.volume, media.OutputFormat, cfg.Audio.SinkWindow,
			p.stats, log, p.tlog)
	}

	if p.info.HasVideo {
		vstage := newVideoDecodeStage(p.videoPackets, p.videoFrames, p.vdec,
			&p.offset, &p.flushGen, p.stats, log, p.tlog)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			vstage.run()
		}()

		clockNow := func() (float64, bool) { return 0, false }
		if p.driver != nil {
			clockNow = p.driver.ClockNow
		}
		p.render = newRenderController(p.videoFrames, p.vsink, clockNow,
			&p.offset, cfg.Sync, &p.flushGen, p.stats, log, p.tlog)
		p.render.onRendered = p.recordRenderedPosition
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.demux.run()
	}()

	p.tickStop = make(chan struct{})
	p.tickDone = make(chan struct{})
	go p.tickLoop(p.render, p.driver, p.tickStop, p.tickDone)

	p.state.Store(int32(StatePlaying))
	p.events.stateChanged(true)
	log.Info("playback started")
}

// tickLoop drives the render controller, the audio driver and position
// events. It is the only goroutine touching their internal pacing state.
func (p *Player) tickLoop(rc *renderController, drv *audioDriver, stop, done chan struct{}) {
	defer close(done)

	renderTick := time.NewTicker(p.cfg.Pipeline.RenderTick)
	defer renderTick.Stop()
	audioTick := time.NewTicker(p.cfg.Pipeline.AudioTick)
	defer audioTick.Stop()
	positionTick := time.NewTicker(p.cfg.Player.PositionInterval)
	defer positionTick.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-renderTick.C:
			if p.State() != StatePlaying {
				continue
			}
			if rc != nil {
				rc.Tick(now)
			}
			p.checkEndOfFile(rc, drv)
		case <-audioTick.C:
			if p.State() != StatePlaying {
				continue
			}
			if drv != nil {
				drv.Tick()
			}
		case <-positionTick.C:
			p.publishPosition(rc, drv)
		}
	}
}

// checkEndOfFile fires the end-of-file event once the demux has ended
// and both pipelines have fully drained.
func (p *Player) checkEndOfFile(rc *renderController, drv *audioDriver) {
	if !p.eos.Load() {
		return
	}
	videoDone := rc == nil || (p.videoPackets.Len() == 0 && p.videoFrames.Len() == 0)
	audioDone := drv == nil || (p.audioPackets.Len() == 0 && drv.Drained())
	if videoDone && audioDone && p.eosSignaled.CompareAndSwap(false, true) {
		p.log.Info("end of file reached")
		go func() {
			p.Stop()
			p.events.endOfFile()
		}()
	}
}

func (p *Player) recordRenderedPosition(pts float64) {
	p.positionBits.Store(math.Float64bits(pts))
}

func (p *Player) publishPosition(rc *renderController, drv *audioDriver) {
	if p.State() == StateStopped {
		return
	}
	pos := math.Float64frombits(p.positionBits.Load())
	if rc == nil && drv != nil {
		// Audio-only media: the audio clock is the only position source.
		t, ok := drv.ClockNow()
		if !ok {
			return
		}
		pos = t
		p.positionBits.Store(math.Float64bits(pos))
	}
	p.events.positionChanged(pos)
}

// Pause freezes the ticks; nothing is torn down and Play resumes in
// place. The sink finishes the audio it already accepted.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.State() != StatePlaying {
		return
	}
	p.state.Store(int32(StatePaused))
	p.events.stateChanged(false)
}

// TogglePause flips between playing and paused.
func (p *Player) TogglePause() {
	p.mu.Lock()
	state := p.State()
	p.mu.Unlock()
	if state == StatePaused {
		p.Play()
	} else if state == StatePlaying {
		p.Pause()
	}
}

// Stop tears playback down: workers are unblocked by closing the queues
// and waited on up to the shutdown timeout, then media handles close.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.State() == StateStopped {
		return
	}

	p.running.Store(false)
	p.videoPackets.Close()
	p.audioPackets.Close()
	p.videoFrames.Close()
	p.audioFrames.Close()
	close(p.tickStop)
	<-p.tickDone

	workersDone := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(workersDone)
	}()
	select {
	case <-workersDone:
	case <-time.After(p.cfg.Pipeline.ShutdownTimeout):
		err := errors.NewShutdownTimeoutError("pipeline workers did not exit in time")
		p.log.WithError(err).Error("shutdown timeout")
		p.events.errorOccurred(err)
	}

	if p.info.HasAudio {
		p.asink.Clear()
	}
	if p.clock != nil {
		p.clock.Invalidate()
	}
	p.offset.Reset()
	p.positionBits.Store(0)

	p.demux = nil
	p.render = nil
	p.driver = nil

	p.closeMediaLocked()

	p.state.Store(int32(StateStopped))
	p.events.stateChanged(false)
	p.log.Info("playback stopped")
}

func (p *Player) closeMediaLocked() {
	if p.vdec != nil {
		p.vdec.Close()
		p.vdec = nil
	}
	if p.adec != nil {
		p.adec.Close()
		p.adec = nil
	}
	if p.src != nil {
		p.src.Close()
		p.src = nil
	}
	p.device = nil
	p.hardware = false
}

// Seek jumps to the given media time, clamped to the file bounds. The
// demux goroutine performs the actual repositioning; the position event
// fires immediately so UIs track the gesture, not the pipeline.
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.demux == nil || p.State() == StateStopped {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if p.info.Duration > 0 && seconds > p.info.Duration {
		seconds = p.info.Duration
	}

	p.demux.RequestSeek(seconds)
	p.positionBits.Store(math.Float64bits(seconds))
	p.events.positionChanged(seconds)
}

// fatalError surfaces a pipeline error. Fatal errors stop playback from
// a fresh goroutine so the failing worker can exit first.
func (p *Player) fatalError(err error) {
	p.log.WithError(err).Error("pipeline error")
	p.events.errorOccurred(err)
	if errors.IsFatal(err) {
		go p.Stop()
	}
}

// SetVolume sets the playback volume, 0 to 100. The core scales samples
// itself; the hint lets the sink mirror it in an OS mixer.
func (p *Player) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	p.volume.Store(int32(volume))
	if p.asink != nil {
		p.asink.SetVolumeHint(volume)
	}
}

// Volume returns the current volume, 0 to 100.
func (p *Player) Volume() int {
	return int(p.volume.Load())
}

// SetLoop toggles restart-at-end. Takes effect at the next end of
// stream.
func (p *Player) SetLoop(loop bool) {
	p.loop.Store(loop)
}

// Loop reports whether looping is enabled.
func (p *Player) Loop() bool {
	return p.loop.Load()
}

// Position returns the current playback position in seconds.
func (p *Player) Position() float64 {
	return math.Float64frombits(p.positionBits.Load())
}

// Duration returns the loaded file's duration in seconds, zero when
// nothing is loaded.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info.Duration
}

// State returns the lifecycle state.
func (p *Player) State() State {
	return State(p.state.Load())
}

// Stats returns a snapshot for the debug endpoints.
func (p *Player) Stats() Stats {
	p.mu.Lock()
	path := p.path
	info := p.info
	hardware := p.hardware
	p.mu.Unlock()

	s := Stats{
		State:    p.State().String(),
		Path:     path,
		Position: p.Position(),
		Duration: info.Duration,
		Volume:   p.Volume(),
		Loop:     p.Loop(),
		Hardware: hardware,
		HasVideo: info.HasVideo,
		HasAudio: info.HasAudio,
	}
	p.stats.fill(&s)
	return s
}
