// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/cursortrail/internal/geometry"
	"github.com/xkilldash9x/cursortrail/internal/humanoid"
	"github.com/xkilldash9x/cursortrail/internal/samples"
	"github.com/xkilldash9x/cursortrail/internal/segmenter"
)

// Config holds the whole application configuration. Each section is handed to
// the component that owns it; nothing reads configuration globally.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Recorder RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
	Builder  BuilderConfig  `mapstructure:"builder" yaml:"builder"`
	Replay   ReplayConfig   `mapstructure:"replay" yaml:"replay"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
}

type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// RecorderConfig drives the `record` command.
type RecorderConfig struct {
	OutFile     string        `mapstructure:"out_file" yaml:"out_file"`
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	BatchPeriod time.Duration `mapstructure:"batch_period" yaml:"batch_period"`
	ActiveTime  time.Duration `mapstructure:"active_time" yaml:"active_time"`
	// StopKeys is the hotkey chord that ends a session early.
	StopKeys []string `mapstructure:"stop_keys" yaml:"stop_keys"`
}

// BuilderConfig holds the segmentation thresholds. The delta window is shared
// with the recorder, which uses it to flag noisy intervals.
type BuilderConfig struct {
	MinDeltaTime       time.Duration `mapstructure:"min_delta_time" yaml:"min_delta_time"`
	MaxDeltaTime       time.Duration `mapstructure:"max_delta_time" yaml:"max_delta_time"`
	MaxSingleAxisDelta int           `mapstructure:"max_single_axis_delta" yaml:"max_single_axis_delta"`
	MaxNoMoveTime      time.Duration `mapstructure:"max_no_move_time" yaml:"max_no_move_time"`
	MaxBatchRows       int           `mapstructure:"max_batch_rows" yaml:"max_batch_rows"`
	MaxTotalPathTime   time.Duration `mapstructure:"max_total_path_time" yaml:"max_total_path_time"`
	LibraryFile        string        `mapstructure:"library_file" yaml:"library_file"`
}

// ReplayConfig tunes the humanoid engine.
type ReplayConfig struct {
	LibraryFile       string        `mapstructure:"library_file" yaml:"library_file"`
	ConvergenceRadius int           `mapstructure:"convergence_radius" yaml:"convergence_radius"`
	InitialTolerance  int           `mapstructure:"initial_tolerance" yaml:"initial_tolerance"`
	MaxTolerance      int           `mapstructure:"max_tolerance" yaml:"max_tolerance"`
	MaxIterations     int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	SampleIntervalMin time.Duration `mapstructure:"sample_interval_min" yaml:"sample_interval_min"`
	SampleIntervalMax time.Duration `mapstructure:"sample_interval_max" yaml:"sample_interval_max"`
	MoveTimeout       time.Duration `mapstructure:"move_timeout" yaml:"move_timeout"`
	RecoveryX         int           `mapstructure:"recovery_x" yaml:"recovery_x"`
	RecoveryY         int           `mapstructure:"recovery_y" yaml:"recovery_y"`
	ClickHoldMin      time.Duration `mapstructure:"click_hold_min" yaml:"click_hold_min"`
	ClickHoldMax      time.Duration `mapstructure:"click_hold_max" yaml:"click_hold_max"`
	FullRotationTime  time.Duration `mapstructure:"full_rotation_time" yaml:"full_rotation_time"`
	PanLeftKey        string        `mapstructure:"pan_left_key" yaml:"pan_left_key"`
	PanRightKey       string        `mapstructure:"pan_right_key" yaml:"pan_right_key"`
}

// StoreConfig points at the optional Postgres library store. An empty URL
// disables it.
type StoreConfig struct {
	URL         string        `mapstructure:"url" yaml:"url"`
	LibraryName string        `mapstructure:"library_name" yaml:"library_name"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "cursortrail")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Recorder --
	v.SetDefault("recorder.out_file", "~/.cursortrail/samples.csv")
	v.SetDefault("recorder.interval", "10ms")
	v.SetDefault("recorder.batch_period", "1s")
	v.SetDefault("recorder.active_time", "60s")
	v.SetDefault("recorder.stop_keys", []string{"ctrl", "shift", "q"})

	// -- Builder --
	v.SetDefault("builder.min_delta_time", "9ms")
	v.SetDefault("builder.max_delta_time", "12ms")
	v.SetDefault("builder.max_single_axis_delta", 100)
	v.SetDefault("builder.max_no_move_time", "50ms")
	v.SetDefault("builder.max_batch_rows", 60000)
	v.SetDefault("builder.max_total_path_time", "10s")
	v.SetDefault("builder.library_file", "~/.cursortrail/library.json.br")

	// -- Replay --
	replay := humanoid.DefaultConfig()
	v.SetDefault("replay.library_file", "~/.cursortrail/library.json.br")
	v.SetDefault("replay.convergence_radius", replay.ConvergenceRadius)
	v.SetDefault("replay.initial_tolerance", replay.InitialTolerance)
	v.SetDefault("replay.max_tolerance", replay.MaxTolerance)
	v.SetDefault("replay.max_iterations", replay.MaxIterations)
	v.SetDefault("replay.sample_interval_min", replay.SampleIntervalMin)
	v.SetDefault("replay.sample_interval_max", replay.SampleIntervalMax)
	v.SetDefault("replay.move_timeout", replay.MoveTimeout)
	v.SetDefault("replay.recovery_x", 0)
	v.SetDefault("replay.recovery_y", 0)
	v.SetDefault("replay.click_hold_min", replay.ClickHoldMin)
	v.SetDefault("replay.click_hold_max", replay.ClickHoldMax)
	v.SetDefault("replay.full_rotation_time", replay.FullRotationTime)
	v.SetDefault("replay.pan_left_key", replay.PanLeftKey)
	v.SetDefault("replay.pan_right_key", replay.PanRightKey)

	// -- Store --
	v.SetDefault("store.url", "")
	v.SetDefault("store.library_name", "default")
	v.SetDefault("store.timeout", "30s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The store URL usually carries a password, keep it out of config files.
	_ = v.BindEnv("store.url", "CURSORTRAIL_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger configuration invalid: %w", err)
	}
	if err := c.Recorder.Validate(c.Builder); err != nil {
		return fmt.Errorf("recorder configuration invalid: %w", err)
	}
	if err := c.Builder.Segmenter().Validate(); err != nil {
		return fmt.Errorf("builder configuration invalid: %w", err)
	}
	if err := c.Replay.Humanoid().Validate(); err != nil {
		return fmt.Errorf("replay configuration invalid: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the logger settings.
func (l *LoggerConfig) Validate() error {
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", l.Format)
	}
	if l.LogFile != "" && l.MaxSize <= 0 {
		return fmt.Errorf("logger.max_size must be a positive integer")
	}
	return nil
}

// Validate checks the recorder settings. The builder supplies the delta window.
func (r *RecorderConfig) Validate(b BuilderConfig) error {
	if r.OutFile == "" {
		return fmt.Errorf("recorder.out_file is required")
	}
	return r.Samples(b).Validate()
}

// Samples converts the section into the recorder's own settings.
func (r *RecorderConfig) Samples(b BuilderConfig) samples.RecorderConfig {
	return samples.RecorderConfig{
		Interval:     r.Interval,
		BatchPeriod:  r.BatchPeriod,
		ActiveTime:   r.ActiveTime,
		MinDeltaTime: b.MinDeltaTime,
		MaxDeltaTime: b.MaxDeltaTime,
	}
}

// Segmenter converts the section into the segmenter's settings.
func (b *BuilderConfig) Segmenter() segmenter.Config {
	return segmenter.Config{
		MinDeltaTime:       b.MinDeltaTime,
		MaxDeltaTime:       b.MaxDeltaTime,
		MaxSingleAxisDelta: b.MaxSingleAxisDelta,
		MaxNoMoveTime:      b.MaxNoMoveTime,
		MaxBatchRows:       b.MaxBatchRows,
		MaxTotalPathTime:   b.MaxTotalPathTime,
	}
}

// Humanoid converts the section into engine settings. The random source is
// left nil, so every engine gets its own time seeded one.
func (r *ReplayConfig) Humanoid() humanoid.Config {
	return humanoid.Config{
		ConvergenceRadius: r.ConvergenceRadius,
		InitialTolerance:  r.InitialTolerance,
		MaxTolerance:      r.MaxTolerance,
		MaxIterations:     r.MaxIterations,
		SampleIntervalMin: r.SampleIntervalMin,
		SampleIntervalMax: r.SampleIntervalMax,
		MoveTimeout:       r.MoveTimeout,
		RecoveryPoint:     geometry.Position{X: r.RecoveryX, Y: r.RecoveryY},
		ClickHoldMin:      r.ClickHoldMin,
		ClickHoldMax:      r.ClickHoldMax,
		FullRotationTime:  r.FullRotationTime,
		PanLeftKey:        r.PanLeftKey,
		PanRightKey:       r.PanRightKey,
	}
}

// Validate checks the store settings. They only matter once a URL is set.
func (s *StoreConfig) Validate() error {
	if s.URL == "" {
		return nil
	}
	if s.LibraryName == "" {
		return fmt.Errorf("store.library_name is required when store.url is set")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be a positive duration")
	}
	return nil
}
