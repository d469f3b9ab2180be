package config

import (
	"fmt"
)

func (c *Config) Validate() error {
	if err := c.Player.Validate(); err != nil {
		return fmt.Errorf("player config: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func (p *PlayerConfig) Validate() error {
	if p.Volume < 0 || p.Volume > 100 {
		return fmt.Errorf("volume must be 0-100, got %d", p.Volume)
	}

	if p.RequireHardware && !p.PreferHardware {
		return fmt.Errorf("require_hardware implies prefer_hardware")
	}

	if p.PositionInterval <= 0 {
		return fmt.Errorf("position_interval must be positive")
	}

	return nil
}

func (p *PipelineConfig) Validate() error {
	if p.VideoPacketQueueSize <= 0 {
		return fmt.Errorf("video_packet_queue_size must be positive")
	}

	if p.AudioPacketQueueSize <= 0 {
		return fmt.Errorf("audio_packet_queue_size must be positive")
	}

	if p.VideoFrameQueueSize <= 0 {
		return fmt.Errorf("video_frame_queue_size must be positive")
	}

	if p.AudioFrameQueueSize <= 0 {
		return fmt.Errorf("audio_frame_queue_size must be positive")
	}

	if p.RenderTick <= 0 {
		return fmt.Errorf("render_tick must be positive")
	}

	if p.AudioTick <= 0 {
		return fmt.Errorf("audio_tick must be positive")
	}

	if p.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}

	return nil
}

func (s *SyncConfig) Validate() error {
	if s.MinThreshold <= 0 {
		return fmt.Errorf("min_threshold must be positive")
	}

	if s.MaxThreshold < s.MinThreshold {
		return fmt.Errorf("max_threshold %v below min_threshold %v", s.MaxThreshold, s.MinThreshold)
	}

	if s.NoSyncThreshold <= s.MaxThreshold {
		return fmt.Errorf("no_sync_threshold %v must exceed max_threshold %v", s.NoSyncThreshold, s.MaxThreshold)
	}

	if s.MinDelay <= 0 {
		return fmt.Errorf("min_delay must be positive")
	}

	if s.MaxDelay < s.MinDelay {
		return fmt.Errorf("max_delay %v below min_delay %v", s.MaxDelay, s.MinDelay)
	}

	if s.LagTicksBeforeDrop <= 0 {
		return fmt.Errorf("lag_ticks_before_drop must be positive")
	}

	if s.LagDropThreshold <= 0 {
		return fmt.Errorf("lag_drop_threshold must be positive")
	}

	if s.MaxDropBatch <= 0 {
		return fmt.Errorf("max_drop_batch must be positive")
	}

	return nil
}

func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive")
	}

	if a.Channels != 1 && a.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", a.Channels)
	}

	if a.SinkWindow <= 0 {
		return fmt.Errorf("sink_window must be positive")
	}

	return nil
}

func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	if l.Format != "json" && l.Format != "text" {
		return fmt.Errorf("log format must be json or text, got %s", l.Format)
	}

	return nil
}
