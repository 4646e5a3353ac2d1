// internal/segmenter/config.go
package segmenter

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when a builder is created with unusable settings.
var ErrInvalidConfig = errors.New("invalid segmenter config")

// Config holds the thresholds used to cut a sample stream into paths. Every
// field must be set by the caller; this package assumes no defaults.
type Config struct {
	// MinDeltaTime and MaxDeltaTime bound the valid time between two samples.
	MinDeltaTime time.Duration
	MaxDeltaTime time.Duration
	// MaxSingleAxisDelta bounds the pixels moved on one axis in a single step.
	MaxSingleAxisDelta int
	// MaxNoMoveTime is how long the cursor must rest before a path ends.
	MaxNoMoveTime time.Duration
	// MaxBatchRows splits overlong batches.
	MaxBatchRows int
	// MaxTotalPathTime discards implausibly slow paths.
	MaxTotalPathTime time.Duration
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case c.MinDeltaTime <= 0:
		return fmt.Errorf("%w: min delta time must be positive, got %s", ErrInvalidConfig, c.MinDeltaTime)
	case c.MaxDeltaTime < c.MinDeltaTime:
		return fmt.Errorf("%w: max delta time %s is below min delta time %s", ErrInvalidConfig, c.MaxDeltaTime, c.MinDeltaTime)
	case c.MaxSingleAxisDelta <= 0:
		return fmt.Errorf("%w: max single axis delta must be positive, got %d", ErrInvalidConfig, c.MaxSingleAxisDelta)
	case c.MaxNoMoveTime <= 0:
		return fmt.Errorf("%w: max no move time must be positive, got %s", ErrInvalidConfig, c.MaxNoMoveTime)
	case c.MaxBatchRows <= 0:
		return fmt.Errorf("%w: max batch rows must be positive, got %d", ErrInvalidConfig, c.MaxBatchRows)
	case c.MaxTotalPathTime <= 0:
		return fmt.Errorf("%w: max total path time must be positive, got %s", ErrInvalidConfig, c.MaxTotalPathTime)
	}
	return nil
}
