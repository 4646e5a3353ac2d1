// File: internal/config/config_test.go
package config

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/cursortrail/internal/geometry"
	"github.com/xkilldash9x/cursortrail/internal/humanoid"
	"github.com/xkilldash9x/cursortrail/internal/segmenter"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "cursortrail", cfg.Logger.ServiceName)
	assert.Equal(t, 10*time.Millisecond, cfg.Recorder.Interval)
	assert.Equal(t, []string{"ctrl", "shift", "q"}, cfg.Recorder.StopKeys)
	assert.Equal(t, 9*time.Millisecond, cfg.Builder.MinDeltaTime)
	assert.Equal(t, 12*time.Millisecond, cfg.Builder.MaxDeltaTime)
	assert.Equal(t, 100, cfg.Builder.MaxSingleAxisDelta)
	assert.Equal(t, 50*time.Millisecond, cfg.Builder.MaxNoMoveTime)
	assert.Equal(t, 60000, cfg.Builder.MaxBatchRows)
	assert.Equal(t, 10*time.Second, cfg.Builder.MaxTotalPathTime)
	assert.Empty(t, cfg.Store.URL)

	require.NoError(t, cfg.Validate(), "defaults must always be valid")
}

func TestDefaultsMatchEngineDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, humanoid.DefaultConfig(), cfg.Replay.Humanoid())
}

// -- Conversion Tests --

func TestSectionConversions(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Replay.RecoveryX = 40
	cfg.Replay.RecoveryY = 30
	cfg.Builder.MinDeltaTime = 5 * time.Millisecond

	assert.Equal(t, geometry.Position{X: 40, Y: 30}, cfg.Replay.Humanoid().RecoveryPoint)

	seg := cfg.Builder.Segmenter()
	assert.Equal(t, 5*time.Millisecond, seg.MinDeltaTime)
	assert.Equal(t, 60000, seg.MaxBatchRows)

	rec := cfg.Recorder.Samples(cfg.Builder)
	assert.Equal(t, 5*time.Millisecond, rec.MinDeltaTime, "recorder diagnostics share the builder window")
	assert.Equal(t, time.Second, rec.BatchPeriod)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logger.Format = "xml" },
			wantMsg: "logger.format must be console or json",
		},
		{
			name: "log file without size",
			mutate: func(c *Config) {
				c.Logger.LogFile = "app.log"
				c.Logger.MaxSize = 0
			},
			wantMsg: "logger.max_size must be a positive integer",
		},
		{
			name:    "missing recorder output",
			mutate:  func(c *Config) { c.Recorder.OutFile = "" },
			wantMsg: "recorder.out_file is required",
		},
		{
			name:    "batch shorter than interval",
			mutate:  func(c *Config) { c.Recorder.BatchPeriod = time.Millisecond },
			wantMsg: "recorder configuration invalid",
		},
		{
			name:    "zero batch rows",
			mutate:  func(c *Config) { c.Builder.MaxBatchRows = 0 },
			wantMsg: "max batch rows must be positive",
		},
		{
			name:    "tolerance below initial",
			mutate:  func(c *Config) { c.Replay.MaxTolerance = 0 },
			wantMsg: "replay configuration invalid",
		},
		{
			name: "store without library name",
			mutate: func(c *Config) {
				c.Store.URL = "postgres://localhost/trail"
				c.Store.LibraryName = ""
			},
			wantMsg: "store.library_name is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	t.Run("builder errors keep their sentinel", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Builder.MinDeltaTime = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, segmenter.ErrInvalidConfig))
	})

	t.Run("store is optional", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Store.LibraryName = ""
		cfg.Store.Timeout = 0
		assert.NoError(t, cfg.Validate())
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
builder:
  max_no_move_time: 80ms
  max_batch_rows: 500
replay:
  convergence_radius: 12
  pan_left_key: left
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, 80*time.Millisecond, cfg.Builder.MaxNoMoveTime)
		assert.Equal(t, 500, cfg.Builder.MaxBatchRows)
		assert.Equal(t, 12, cfg.Replay.ConvergenceRadius)
		assert.Equal(t, "left", cfg.Replay.PanLeftKey)
		// Untouched keys keep their defaults.
		assert.Equal(t, "d", cfg.Replay.PanRightKey)
		assert.Equal(t, "info", cfg.Logger.Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("builder.max_single_axis_delta", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "max single axis delta must be positive")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
store:
  url: "postgres://configfile/db"
`)))

		testDBURL := "postgres://envvar/db"
		t.Setenv("CURSORTRAIL_DATABASE_URL", testDBURL)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, testDBURL, cfg.Store.URL, "the environment overrides the config file")
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/cursortrail.log
  colors:
    warn: yellow
recorder:
  stop_keys: ["esc"]
replay:
  move_timeout: 90s
  recovery_x: 5
store:
  timeout: 2s
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "/var/log/cursortrail.log", cfg.Logger.LogFile)
	assert.Equal(t, "yellow", cfg.Logger.Colors.Warn)
	assert.Equal(t, []string{"esc"}, cfg.Recorder.StopKeys)
	assert.Equal(t, 90*time.Second, cfg.Replay.MoveTimeout)
	assert.Equal(t, 5, cfg.Replay.RecoveryX)
	assert.Equal(t, 2*time.Second, cfg.Store.Timeout)
}
