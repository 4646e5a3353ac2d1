// internal/humanoid/executor.go
package humanoid

import (
	"context"
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/xkilldash9x/cursortrail/internal/geometry"
)

// Executor is the input sink the Humanoid drives, plus the position query it
// steers by. Swapping it out is how the engine is tested without a desktop.
type Executor interface {
	// Sleep pauses execution, respecting context cancellation.
	Sleep(ctx context.Context, d time.Duration) error

	// CursorPosition reports where the pointer is now.
	CursorPosition(ctx context.Context) (geometry.Position, error)

	// MoveRelative shifts the pointer by d. The OS may clamp it at the screen
	// edge.
	MoveRelative(ctx context.Context, d geometry.Displacement) error

	// MoveAbsolute places the pointer at p in a single hop.
	MoveAbsolute(ctx context.Context, p geometry.Position) error

	// MouseToggle presses or releases a mouse button.
	MouseToggle(ctx context.Context, button MouseButton, down bool) error

	// KeyToggle presses or releases a keyboard key by name ("a", "shift", "esc").
	KeyToggle(ctx context.Context, key string, down bool) error

	// ScreenSize returns the main display size in pixels.
	ScreenSize(ctx context.Context) (width, height int, err error)
}

// RobotgoExecutor drives the real desktop through robotgo.
type RobotgoExecutor struct{}

// NewRobotgoExecutor creates the production executor.
func NewRobotgoExecutor() *RobotgoExecutor {
	return &RobotgoExecutor{}
}

func (e *RobotgoExecutor) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *RobotgoExecutor) CursorPosition(ctx context.Context) (geometry.Position, error) {
	x, y := robotgo.Location()
	return geometry.Position{X: x, Y: y}, nil
}

func (e *RobotgoExecutor) MoveRelative(ctx context.Context, d geometry.Displacement) error {
	robotgo.MoveRelative(d.DX, d.DY)
	return nil
}

func (e *RobotgoExecutor) MoveAbsolute(ctx context.Context, p geometry.Position) error {
	robotgo.Move(p.X, p.Y)
	return nil
}

func (e *RobotgoExecutor) MouseToggle(ctx context.Context, button MouseButton, down bool) error {
	if err := robotgo.Toggle(string(button), direction(down)); err != nil {
		return fmt.Errorf("failed to toggle %s mouse button: %w", button, err)
	}
	return nil
}

func (e *RobotgoExecutor) KeyToggle(ctx context.Context, key string, down bool) error {
	if err := robotgo.KeyToggle(key, direction(down)); err != nil {
		return fmt.Errorf("failed to toggle key %q: %w", key, err)
	}
	return nil
}

func (e *RobotgoExecutor) ScreenSize(ctx context.Context) (int, int, error) {
	w, h := robotgo.GetScreenSize()
	return w, h, nil
}

func direction(down bool) string {
	if down {
		return "down"
	}
	return "up"
}
