// Package config provides configuration management for the pumpkin.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/logging"
)

// Config holds all application configuration
type Config struct {
	Assets    AssetsConfig    `mapstructure:"assets"`
	Render    RenderConfig    `mapstructure:"render"`
	Controls  ControlsConfig  `mapstructure:"controls"`
	Blink     BlinkConfig     `mapstructure:"blink"`
	LipSync   LipSyncConfig   `mapstructure:"lipsync"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Server    ServerConfig    `mapstructure:"server"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Log       logging.Config  `mapstructure:"log"`
}

// AssetsConfig locates the head plate, mouth sprites and head_meta.json.
type AssetsConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"` // reload sprites when files change
}

// RenderConfig configures the render loop and frame output
type RenderConfig struct {
	FPS         int    `mapstructure:"fps"`
	Width       int    `mapstructure:"width"`  // 0 uses the head meta canvas size
	Height      int    `mapstructure:"height"` // 0 uses the head meta canvas size
	FrameFormat string `mapstructure:"frame_format"` // jpeg or png
	JPEGQuality int    `mapstructure:"jpeg_quality"`
	StreamFPS   int    `mapstructure:"stream_fps"` // frames pushed to web viewers per second
}

// ControlsConfig holds the initial live control values.
type ControlsConfig struct {
	Bob  float64 `mapstructure:"bob"`
	Glow float64 `mapstructure:"glow"`
}

// BlinkConfig configures the blink scheduler
type BlinkConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Interval     time.Duration `mapstructure:"interval"`
	Jitter       time.Duration `mapstructure:"jitter"`
	Duration     time.Duration `mapstructure:"duration"`
}

// LipSyncConfig configures playback cues
type LipSyncConfig struct {
	FallbackHold time.Duration `mapstructure:"fallback_hold"`
	ReplayHold   time.Duration `mapstructure:"replay_hold"`
	History      int           `mapstructure:"history"`
}

// GeneratorConfig points at the generation service
type GeneratorConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Text    string        `mapstructure:"text"` // optional line sent with each request
}

// AudioConfig configures clip playback
type AudioConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	SampleRate int  `mapstructure:"sample_rate"`
}

// ServerConfig configures the viewer and control API
type ServerConfig struct {
	Listen       string   `mapstructure:"listen"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// ScheduleConfig configures unattended speaking
type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"`
	Text    string `mapstructure:"text"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Assets: AssetsConfig{
			Dir:   "assets",
			Watch: true,
		},
		Render: RenderConfig{
			FPS:         30,
			FrameFormat: "jpeg",
			JPEGQuality: 80,
			StreamFPS:   15,
		},
		Controls: ControlsConfig{
			Bob:  1.0,
			Glow: 1.0,
		},
		Blink: BlinkConfig{
			Enabled:      false,
			InitialDelay: 2 * time.Second,
			Interval:     3 * time.Second,
			Jitter:       1200 * time.Millisecond,
			Duration:     120 * time.Millisecond,
		},
		LipSync: LipSyncConfig{
			FallbackHold: 1200 * time.Millisecond,
			ReplayHold:   900 * time.Millisecond,
			History:      20,
		},
		Generator: GeneratorConfig{
			URL:     "http://localhost:5000",
			Timeout: 60 * time.Second,
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 44100,
		},
		Server: ServerConfig{
			Listen:       ":8090",
			AllowOrigins: []string{"*"},
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Spec:    "*/15 * * * *",
		},
		Log: logging.DefaultConfig(),
	}
}

// Validate rejects values the runtime cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Render.FPS <= 0 {
		errs = append(errs, fmt.Errorf("render.fps must be positive, got %d", c.Render.FPS))
	}
	if f := strings.ToLower(c.Render.FrameFormat); f != "jpeg" && f != "png" {
		errs = append(errs, fmt.Errorf("render.frame_format must be jpeg or png, got %q", c.Render.FrameFormat))
	}
	if c.Blink.Duration <= 0 || c.Blink.Interval <= 0 {
		errs = append(errs, errors.New("blink.duration and blink.interval must be positive"))
	}
	if c.Blink.Jitter < 0 || c.Blink.InitialDelay < 0 {
		errs = append(errs, errors.New("blink.jitter and blink.initial_delay must not be negative"))
	}
	if c.Controls.Bob < 0 || c.Controls.Glow < 0 {
		errs = append(errs, errors.New("controls must not be negative"))
	}
	if c.Schedule.Enabled && c.Schedule.Spec == "" {
		errs = append(errs, errors.New("schedule.spec is required when the schedule is enabled"))
	}
	return errors.Join(errs...)
}

// Loader reads config from a yaml file plus PUMPKIN_* environment variables.
type Loader struct {
	v    *viper.Viper
	mu   sync.Mutex
	file string
}

// NewLoader creates a Loader. An empty file searches ~/.ai-pumpkin and the working directory.
func NewLoader(file string) *Loader {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PUMPKIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	return &Loader{v: v, file: file}
}

// Load reads configuration from file and environment. A missing file is not an error.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case l.file != "" && errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	cfg := DefaultConfig()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// File returns the config file in use, empty when running on defaults.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch calls fn with the re-read configuration whenever the config file changes.
// Invalid edits are reported through onErr and otherwise ignored.
func (l *Loader) Watch(fn func(*Config), onErr func(error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		l.mu.Lock()
		cfg, err := l.decode()
		l.mu.Unlock()
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		fn(cfg)
	})
	l.v.WatchConfig()
}

// Save writes cfg as yaml to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)
	return v.WriteConfigAs(path)
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".ai-pumpkin"), nil
}

// setDefaults registers every key so environment overrides reach nested fields.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("assets.dir", cfg.Assets.Dir)
	v.SetDefault("assets.watch", cfg.Assets.Watch)

	v.SetDefault("render.fps", cfg.Render.FPS)
	v.SetDefault("render.width", cfg.Render.Width)
	v.SetDefault("render.height", cfg.Render.Height)
	v.SetDefault("render.frame_format", cfg.Render.FrameFormat)
	v.SetDefault("render.jpeg_quality", cfg.Render.JPEGQuality)
	v.SetDefault("render.stream_fps", cfg.Render.StreamFPS)

	v.SetDefault("controls.bob", cfg.Controls.Bob)
	v.SetDefault("controls.glow", cfg.Controls.Glow)

	v.SetDefault("blink.enabled", cfg.Blink.Enabled)
	v.SetDefault("blink.initial_delay", cfg.Blink.InitialDelay.String())
	v.SetDefault("blink.interval", cfg.Blink.Interval.String())
	v.SetDefault("blink.jitter", cfg.Blink.Jitter.String())
	v.SetDefault("blink.duration", cfg.Blink.Duration.String())

	v.SetDefault("lipsync.fallback_hold", cfg.LipSync.FallbackHold.String())
	v.SetDefault("lipsync.replay_hold", cfg.LipSync.ReplayHold.String())
	v.SetDefault("lipsync.history", cfg.LipSync.History)

	v.SetDefault("generator.url", cfg.Generator.URL)
	v.SetDefault("generator.timeout", cfg.Generator.Timeout.String())
	v.SetDefault("generator.text", cfg.Generator.Text)

	v.SetDefault("audio.enabled", cfg.Audio.Enabled)
	v.SetDefault("audio.sample_rate", cfg.Audio.SampleRate)

	v.SetDefault("server.listen", cfg.Server.Listen)
	v.SetDefault("server.allow_origins", cfg.Server.AllowOrigins)

	v.SetDefault("schedule.enabled", cfg.Schedule.Enabled)
	v.SetDefault("schedule.spec", cfg.Schedule.Spec)
	v.SetDefault("schedule.text", cfg.Schedule.Text)

	v.SetDefault("log.dir", cfg.Log.Dir)
	v.SetDefault("log.level", string(cfg.Log.Level))
	v.SetDefault("log.max_history", cfg.Log.MaxHistory)
	v.SetDefault("log.console", cfg.Log.Console)
}
