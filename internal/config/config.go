package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Player   PlayerConfig   `mapstructure:"player"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Debug    DebugConfig    `mapstructure:"debug"`
}

type PlayerConfig struct {
	Loop             bool          `mapstructure:"loop"`
	Volume           int           `mapstructure:"volume"` // 0-100
	PreferHardware   bool          `mapstructure:"prefer_hardware"`
	RequireHardware  bool          `mapstructure:"require_hardware"`
	PositionInterval time.Duration `mapstructure:"position_interval"` // min gap between position events
}

type PipelineConfig struct {
	// Queue capacities. Decoded video stays shallow to bound latency;
	// decoded audio is deep to absorb jitter.
	VideoPacketQueueSize int `mapstructure:"video_packet_queue_size"`
	AudioPacketQueueSize int `mapstructure:"audio_packet_queue_size"`
	VideoFrameQueueSize  int `mapstructure:"video_frame_queue_size"`
	AudioFrameQueueSize  int `mapstructure:"audio_frame_queue_size"`

	RenderTick      time.Duration `mapstructure:"render_tick"`
	AudioTick       time.Duration `mapstructure:"audio_tick"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SyncConfig struct {
	// Threshold band for delay correction. The active threshold is
	// clamped to the frame's own duration.
	MinThreshold time.Duration `mapstructure:"min_threshold"`
	MaxThreshold time.Duration `mapstructure:"max_threshold"`

	// A previous delay above this counts as long-frame content; ahead
	// corrections then snap instead of doubling.
	LongFrameThreshold time.Duration `mapstructure:"long_frame_threshold"`

	// |diff| beyond this is treated as a clock discontinuity and skipped.
	NoSyncThreshold time.Duration `mapstructure:"no_sync_threshold"`

	// Final delay clamp.
	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`

	// Persistent-lag frame dropping.
	LagTicksBeforeDrop int           `mapstructure:"lag_ticks_before_drop"`
	LagDropThreshold   time.Duration `mapstructure:"lag_drop_threshold"`
	MaxDropBatch       int           `mapstructure:"max_drop_batch"`
}

type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate"`
	Channels   int `mapstructure:"channels"`

	// Target amount of audio held inside the sink. Enough to avoid
	// underrun without hurting seek responsiveness.
	SinkWindow time.Duration `mapstructure:"sink_window"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or text
	Output     string `mapstructure:"output"` // stdout, stderr, or file path
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type DebugConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetConfigFile(configPath)

	// Environment variable override
	viper.SetEnvPrefix("LOOPVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration without reading a file.
func Default() *Config {
	v := viper.New()
	setDefaultsOn(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("built-in defaults failed to unmarshal: %v", err))
	}
	return &cfg
}

func setDefaults() {
	setDefaultsOn(viper.GetViper())
}

func setDefaultsOn(v *viper.Viper) {
	// Player defaults
	v.SetDefault("player.loop", true)
	v.SetDefault("player.volume", 50)
	v.SetDefault("player.prefer_hardware", true)
	v.SetDefault("player.require_hardware", false)
	v.SetDefault("player.position_interval", "250ms")

	// Pipeline defaults
	v.SetDefault("pipeline.video_packet_queue_size", 64)
	v.SetDefault("pipeline.audio_packet_queue_size", 128)
	v.SetDefault("pipeline.video_frame_queue_size", 4)
	v.SetDefault("pipeline.audio_frame_queue_size", 64)
	v.SetDefault("pipeline.render_tick", "5ms")
	v.SetDefault("pipeline.audio_tick", "5ms")
	v.SetDefault("pipeline.shutdown_timeout", "1s")

	// Sync defaults
	v.SetDefault("sync.min_threshold", "10ms")
	v.SetDefault("sync.max_threshold", "100ms")
	v.SetDefault("sync.long_frame_threshold", "100ms")
	v.SetDefault("sync.no_sync_threshold", "10s")
	v.SetDefault("sync.min_delay", "1ms")
	v.SetDefault("sync.max_delay", "500ms")
	v.SetDefault("sync.lag_ticks_before_drop", 10)
	v.SetDefault("sync.lag_drop_threshold", "1s")
	v.SetDefault("sync.max_drop_batch", 5)

	// Audio defaults
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.channels", 2)
	v.SetDefault("audio.sink_window", "200ms")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Debug server defaults
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.addr", "localhost:9420")
}
