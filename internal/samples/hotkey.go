// internal/samples/hotkey.go
package samples

import (
	"context"

	hook "github.com/robotn/gohook"
	"go.uber.org/zap"
)

// StopOnHotkey returns a context that is cancelled when the key combination is
// pressed anywhere on the desktop. The returned func stops the global hook and
// must be called once recording ends.
func StopOnHotkey(parent context.Context, keys []string, logger *zap.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	if len(keys) == 0 {
		return ctx, cancel
	}

	hook.Register(hook.KeyDown, keys, func(hook.Event) {
		logger.Info("Stop hotkey pressed", zap.Strings("keys", keys))
		cancel()
	})
	done := hook.Process(hook.Start())

	ended := make(chan struct{})
	go func() {
		<-ctx.Done()
		hook.End()
		<-done
		close(ended)
	}()

	return ctx, func() {
		cancel()
		<-ended
	}
}
