// internal/humanoid/keyboard.go
package humanoid

import (
	"context"
	"fmt"
	"time"
)

// ClickKey taps key, holding it as long as a mouse click.
func (h *Humanoid) ClickKey(ctx context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.holdFor(ctx, key, h.uniformDuration(h.cfg.ClickHoldMin, h.cfg.ClickHoldMax))
}

// HoldKey presses key and leaves it down, e.g. shift while clicking.
func (h *Humanoid) HoldKey(ctx context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.executor.KeyToggle(ctx, key, true); err != nil {
		return fmt.Errorf("humanoid: failed to press %q: %w", key, err)
	}
	return nil
}

// ReleaseKey releases a key pressed with HoldKey.
func (h *Humanoid) ReleaseKey(ctx context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.executor.KeyToggle(ctx, key, false); err != nil {
		return fmt.Errorf("humanoid: failed to release %q: %w", key, err)
	}
	return nil
}

// PanLeft turns the camera left by holding the pan key.
func (h *Humanoid) PanLeft(ctx context.Context, degrees float64) error {
	return h.pan(ctx, h.cfg.PanLeftKey, degrees)
}

// PanRight turns the camera right by holding the pan key.
func (h *Humanoid) PanRight(ctx context.Context, degrees float64) error {
	return h.pan(ctx, h.cfg.PanRightKey, degrees)
}

func (h *Humanoid) pan(ctx context.Context, key string, degrees float64) error {
	if degrees < 0 {
		return fmt.Errorf("humanoid: pan degrees must not be negative, got %v", degrees)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	hold := time.Duration(float64(h.cfg.FullRotationTime) * degrees / 360)
	return h.holdFor(ctx, key, hold)
}

// holdFor presses key, waits d and releases it. The key is released even if
// ctx is cancelled during the wait. Callers must hold h.mu.
func (h *Humanoid) holdFor(ctx context.Context, key string, d time.Duration) error {
	if err := h.executor.KeyToggle(ctx, key, true); err != nil {
		return fmt.Errorf("humanoid: failed to press %q: %w", key, err)
	}
	holdErr := h.executor.Sleep(ctx, d)
	if err := h.executor.KeyToggle(context.WithoutCancel(ctx), key, false); err != nil {
		return fmt.Errorf("humanoid: failed to release %q: %w", key, err)
	}
	return holdErr
}
