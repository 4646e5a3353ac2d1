// internal/humanoid/movement.go
package humanoid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cursortrail/internal/geometry"
)

// ErrUnreachable is returned by EnsureMoveTo when every attempt failed.
var ErrUnreachable = errors.New("destination unreachable")

// MoveTo walks the cursor to dst by replaying library paths, then hops onto
// dst once within ConvergenceRadius. It reports whether the cursor ended
// exactly on dst. Failing to get there is not an error; the error return is
// reserved for cancellation and executor failures.
func (h *Humanoid) MoveTo(ctx context.Context, dst geometry.Position) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.moveTo(ctx, dst)
}

func (h *Humanoid) moveTo(ctx context.Context, dst geometry.Position) (bool, error) {
	justCheated := false
	for i := 0; i < h.cfg.MaxIterations; i++ {
		pos, err := h.executor.CursorPosition(ctx)
		if err != nil {
			return false, fmt.Errorf("humanoid: failed to read cursor position: %w", err)
		}
		dist := dst.Sub(pos).Distance()

		if err := h.replayBestMatch(ctx, dst.Sub(pos)); err != nil {
			return false, err
		}

		pos, err = h.executor.CursorPosition(ctx)
		if err != nil {
			return false, fmt.Errorf("humanoid: failed to read cursor position: %w", err)
		}
		remaining := dst.Sub(pos)
		newDist := remaining.Distance()

		switch {
		case newDist <= h.cfg.ConvergenceRadius:
			return h.hopTo(ctx, dst)
		case newDist >= dist:
			// No progress. A second stall in a row means neither the library
			// nor a cheat step can get closer from here.
			if justCheated {
				h.logger.Debug("Movement stalled",
					zap.Stringer("position", pos),
					zap.Stringer("destination", dst),
					zap.Int("distance", newDist))
				return pos == dst, nil
			}
			if err := h.cheatToward(ctx, remaining); err != nil {
				return false, err
			}
			justCheated = true
		default:
			justCheated = false
		}
	}

	h.logger.Debug("Movement gave up after max iterations",
		zap.Stringer("destination", dst),
		zap.Int("max_iterations", h.cfg.MaxIterations))
	return false, nil
}

// hopTo places the cursor on dst in one move after the usual inter-step pause.
func (h *Humanoid) hopTo(ctx context.Context, dst geometry.Position) (bool, error) {
	if err := h.sleepBetweenMoves(ctx); err != nil {
		return false, err
	}
	if err := h.executor.MoveAbsolute(ctx, dst); err != nil {
		return false, fmt.Errorf("humanoid: failed to move cursor: %w", err)
	}
	pos, err := h.executor.CursorPosition(ctx)
	if err != nil {
		return false, fmt.Errorf("humanoid: failed to read cursor position: %w", err)
	}
	return pos == dst, nil
}

// TryMoveTo repeats MoveTo until it lands on dst or timeout elapses.
func (h *Humanoid) TryMoveTo(ctx context.Context, dst geometry.Position, timeout time.Duration) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tryMoveTo(ctx, dst, timeout)
}

func (h *Humanoid) tryMoveTo(ctx context.Context, dst geometry.Position, timeout time.Duration) (bool, error) {
	deadline := h.now().Add(timeout)
	for attempt := 1; h.now().Before(deadline); attempt++ {
		ok, err := h.moveTo(ctx, dst)
		if err != nil || ok {
			return ok, err
		}
		h.logger.Debug("Move attempt missed", zap.Stringer("destination", dst), zap.Int("attempt", attempt))
	}
	return false, nil
}

// EnsureMoveTo spends a third of MoveTimeout trying to reach dst. If that
// fails it retreats to RecoveryPoint for another third, then uses the last
// third on dst again. ErrUnreachable is returned if the cursor never lands.
func (h *Humanoid) EnsureMoveTo(ctx context.Context, dst geometry.Position) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ensureMoveTo(ctx, dst)
}

func (h *Humanoid) ensureMoveTo(ctx context.Context, dst geometry.Position) error {
	third := h.cfg.MoveTimeout / 3

	ok, err := h.tryMoveTo(ctx, dst, third)
	if err != nil || ok {
		return err
	}

	h.logger.Warn("Destination not reached, retrying from recovery point",
		zap.Stringer("destination", dst),
		zap.Stringer("recovery_point", h.cfg.RecoveryPoint))
	if _, err := h.tryMoveTo(ctx, h.cfg.RecoveryPoint, third); err != nil {
		return err
	}

	ok, err = h.tryMoveTo(ctx, dst, third)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("humanoid: %w: %s", ErrUnreachable, dst)
	}
	return nil
}

// MoveNear moves to a point within one pixel of dst on each axis, so repeated
// visits do not land on the exact same pixel.
func (h *Humanoid) MoveNear(ctx context.Context, dst geometry.Position) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, ht, err := h.executor.ScreenSize(ctx)
	if err != nil {
		return fmt.Errorf("humanoid: failed to read screen size: %w", err)
	}
	near := geometry.Position{
		X: clamp(dst.X+h.rng.Intn(3)-1, 0, w-1),
		Y: clamp(dst.Y+h.rng.Intn(3)-1, 0, ht-1),
	}
	return h.ensureMoveTo(ctx, near)
}

// Position reports the current cursor position.
func (h *Humanoid) Position(ctx context.Context) (geometry.Position, error) {
	return h.executor.CursorPosition(ctx)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
