// internal/humanoid/clickmodel.go
package humanoid

import (
	"context"
	"fmt"
)

// LeftClick presses and releases the left button where the cursor is.
func (h *Humanoid) LeftClick(ctx context.Context) error {
	return h.Click(ctx, ButtonLeft)
}

// RightClick presses and releases the right button where the cursor is.
func (h *Humanoid) RightClick(ctx context.Context) error {
	return h.Click(ctx, ButtonRight)
}

// Click holds button for a uniform draw from [ClickHoldMin, ClickHoldMax).
// The button is released even if ctx is cancelled while it is held.
func (h *Humanoid) Click(ctx context.Context, button MouseButton) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.executor.MouseToggle(ctx, button, true); err != nil {
		return fmt.Errorf("humanoid: failed to press %s button: %w", button, err)
	}
	holdErr := h.executor.Sleep(ctx, h.uniformDuration(h.cfg.ClickHoldMin, h.cfg.ClickHoldMax))

	if err := h.executor.MouseToggle(context.WithoutCancel(ctx), button, false); err != nil {
		return fmt.Errorf("humanoid: failed to release %s button: %w", button, err)
	}
	return holdErr
}
