// internal/humanoid/config.go
package humanoid

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/xkilldash9x/cursortrail/internal/geometry"
)

// Config tunes replay and the input models.
type Config struct {
	// ConvergenceRadius is the distance from the destination at which the
	// cursor hops straight onto it. It is also the length of a cheat step.
	ConvergenceRadius int
	// InitialTolerance is the first half width of the distance window used to
	// look up a path. It doubles on every miss up to MaxTolerance.
	InitialTolerance int
	MaxTolerance     int
	// MaxIterations caps the replay rounds of a single MoveTo.
	MaxIterations int

	// SampleIntervalMin and SampleIntervalMax bound the pause after every
	// step. They should match the cadence the library was recorded at.
	SampleIntervalMin time.Duration
	SampleIntervalMax time.Duration

	// MoveTimeout is the total budget of EnsureMoveTo, split in three.
	MoveTimeout time.Duration
	// RecoveryPoint is visited when the destination cannot be reached
	// directly, to approach it again from a different side.
	RecoveryPoint geometry.Position

	ClickHoldMin time.Duration
	ClickHoldMax time.Duration

	// FullRotationTime is how long the pan key must be held to turn 360°.
	FullRotationTime time.Duration
	PanLeftKey       string
	PanRightKey      string

	// Rng seeds the jitter models. Nil uses a time seeded source.
	Rng *rand.Rand
}

// DefaultConfig returns settings matching a recording sampled every 9-12ms.
func DefaultConfig() Config {
	return Config{
		ConvergenceRadius: 20,
		InitialTolerance:  1,
		MaxTolerance:      4096,
		MaxIterations:     1000,
		SampleIntervalMin: 9 * time.Millisecond,
		SampleIntervalMax: 12 * time.Millisecond,
		MoveTimeout:       60 * time.Second,
		ClickHoldMin:      100 * time.Millisecond,
		ClickHoldMax:      150 * time.Millisecond,
		FullRotationTime:  3755 * time.Millisecond,
		PanLeftKey:        "a",
		PanRightKey:       "d",
	}
}

// Validate checks the settings New relies on.
func (c Config) Validate() error {
	var errs []error
	if c.ConvergenceRadius <= 0 {
		errs = append(errs, fmt.Errorf("convergence radius must be positive, got %d", c.ConvergenceRadius))
	}
	if c.InitialTolerance <= 0 {
		errs = append(errs, fmt.Errorf("initial tolerance must be positive, got %d", c.InitialTolerance))
	}
	if c.MaxTolerance < c.InitialTolerance {
		errs = append(errs, fmt.Errorf("max tolerance %d is below initial tolerance %d", c.MaxTolerance, c.InitialTolerance))
	}
	if c.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations))
	}
	if c.SampleIntervalMin < 0 || c.SampleIntervalMax < c.SampleIntervalMin {
		errs = append(errs, fmt.Errorf("invalid sample interval [%s, %s)", c.SampleIntervalMin, c.SampleIntervalMax))
	}
	if c.ClickHoldMin < 0 || c.ClickHoldMax < c.ClickHoldMin {
		errs = append(errs, fmt.Errorf("invalid click hold [%s, %s)", c.ClickHoldMin, c.ClickHoldMax))
	}
	if c.MoveTimeout <= 0 {
		errs = append(errs, errors.New("move timeout must be positive"))
	}
	if c.FullRotationTime <= 0 {
		errs = append(errs, errors.New("full rotation time must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("humanoid: invalid config: %w", errors.Join(errs...))
	}
	return nil
}
