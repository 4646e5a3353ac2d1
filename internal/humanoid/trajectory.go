// internal/humanoid/trajectory.go
package humanoid

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cursortrail/internal/geometry"
	"github.com/xkilldash9x/cursortrail/internal/pathlib"
)

// findMatch looks up the path to replay for delta. The window around the
// wanted distance starts at InitialTolerance and doubles on every miss, up to
// MaxTolerance. Within a window the shortest distance wins, biasing towards
// undershooting the destination rather than overshooting it.
//
// ok is false when nothing fits, including when delta is already shorter than
// the current tolerance.
func (h *Humanoid) findMatch(delta geometry.Displacement) (pathlib.Entry, bool) {
	dist := delta.Distance()
	for tol := h.cfg.InitialTolerance; tol <= h.cfg.MaxTolerance; tol *= 2 {
		if e, ok := h.library.First(max(0, dist-tol), dist+tol); ok {
			return e, true
		}
		if dist < tol {
			return pathlib.Entry{}, false
		}
	}
	h.logger.Debug("No path within max tolerance",
		zap.Int("distance", dist),
		zap.Int("max_tolerance", h.cfg.MaxTolerance))
	return pathlib.Entry{}, false
}

// replayBestMatch replays at most one library path towards delta.
func (h *Humanoid) replayBestMatch(ctx context.Context, delta geometry.Displacement) error {
	e, ok := h.findMatch(delta)
	if !ok {
		return nil
	}
	return h.replayPath(ctx, e.Summary, e.Path, delta)
}

// replayPath turns path from its recorded heading onto delta's heading and
// plays it step by step. Cancellation is honoured between steps only.
func (h *Humanoid) replayPath(ctx context.Context, summary pathlib.Summary, path pathlib.Path, delta geometry.Displacement) error {
	rotation := delta.Angle() - summary.Angle
	for _, step := range path {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.executor.MoveRelative(ctx, step.Rotate(rotation)); err != nil {
			return fmt.Errorf("humanoid: failed to move cursor: %w", err)
		}
		if err := h.sleepBetweenMoves(ctx); err != nil {
			return err
		}
	}
	return nil
}

// cheatToward takes a single ConvergenceRadius step along delta without
// consulting the library. It unsticks the cursor where recordings are sparse,
// such as against a screen edge.
func (h *Humanoid) cheatToward(ctx context.Context, delta geometry.Displacement) error {
	step := geometry.Displacement{DX: h.cfg.ConvergenceRadius}
	h.logger.Debug("Cheating toward destination", zap.Stringer("delta", delta))
	return h.replayPath(ctx, pathlib.Summarize(pathlib.Path{step}), pathlib.Path{step}, delta)
}

// sleepBetweenMoves waits a uniform draw from the sample interval, the same
// cadence the library was recorded at.
func (h *Humanoid) sleepBetweenMoves(ctx context.Context) error {
	return h.executor.Sleep(ctx, h.uniformDuration(h.cfg.SampleIntervalMin, h.cfg.SampleIntervalMax))
}
