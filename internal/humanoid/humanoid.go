// internal/humanoid/humanoid.go
package humanoid

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cursortrail/internal/pathlib"
)

// MouseButton names a physical mouse button.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "center"
)

// Humanoid drives the OS pointer and keyboard the way a person would, replaying
// recorded paths from a library instead of teleporting the cursor.
//
// The pointer is a single shared resource. Every exported method holds the
// Humanoid's lock for its whole duration, so two movements never interleave
// their steps.
type Humanoid struct {
	cfg      Config
	library  *pathlib.Library
	executor Executor
	logger   *zap.Logger

	// mu serializes all input and guards rng.
	mu  sync.Mutex
	rng *rand.Rand

	now func() time.Time
}

// New creates a Humanoid replaying paths from lib through executor. The
// library is validated here, so a malformed one fails at load time rather than
// mid replay. The distance 0 entry is dropped: it returns to its start and
// would never make progress.
func New(cfg Config, lib *pathlib.Library, executor Executor, logger *zap.Logger) (*Humanoid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lib == nil {
		lib = pathlib.New()
	}
	if err := lib.Validate(); err != nil {
		return nil, fmt.Errorf("humanoid: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rng := cfg.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	h := &Humanoid{
		cfg:      cfg,
		library:  lib.WithoutStationary(),
		executor: executor,
		logger:   logger.Named("humanoid"),
		rng:      rng,
		now:      time.Now,
	}
	span := []zap.Field{zap.Int("paths", h.library.Len())}
	if lo, ok := h.library.MinDistance(); ok {
		hi, _ := h.library.MaxDistance()
		span = append(span, zap.Int("min_distance", lo), zap.Int("max_distance", hi))
	}
	h.logger.Debug("Humanoid ready", span...)
	return h, nil
}

// uniformDuration draws from [lo, hi). Callers must hold h.mu.
func (h *Humanoid) uniformDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(h.rng.Int63n(int64(hi-lo)))
}
