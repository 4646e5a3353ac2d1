// internal/samples/recorder.go
package samples

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/cursortrail/internal/geometry"
)

// PositionSource reports where the cursor currently is.
type PositionSource interface {
	CursorPosition(ctx context.Context) (geometry.Position, error)
}

// RecorderConfig controls a recording session.
type RecorderConfig struct {
	// Interval is the target time between two samples.
	Interval time.Duration
	// BatchPeriod is how much sampling goes into one batch before it is written.
	BatchPeriod time.Duration
	// ActiveTime bounds the session. Zero records until the context ends.
	ActiveTime time.Duration
	// MinDeltaTime and MaxDeltaTime only drive diagnostics: intervals outside
	// the window are reported so a noisy recording is noticed early.
	MinDeltaTime time.Duration
	MaxDeltaTime time.Duration
}

// Validate checks the recorder settings.
func (c RecorderConfig) Validate() error {
	if c.Interval <= 0 {
		return errors.New("recorder interval must be positive")
	}
	if c.BatchPeriod < c.Interval {
		return fmt.Errorf("recorder batch period %s is shorter than the interval %s", c.BatchPeriod, c.Interval)
	}
	if c.ActiveTime < 0 {
		return errors.New("recorder active time cannot be negative")
	}
	if c.MinDeltaTime > c.MaxDeltaTime {
		return fmt.Errorf("recorder delta window [%s, %s] is inverted", c.MinDeltaTime, c.MaxDeltaTime)
	}
	return nil
}

// RecordStats summarizes a finished session.
type RecordStats struct {
	SessionID    string
	Samples      int
	Batches      int
	BadIntervals int
}

// Recorder polls a PositionSource at a fixed cadence and appends the samples
// to a Writer, one sentinel prefixed batch at a time.
type Recorder struct {
	cfg    RecorderConfig
	src    PositionSource
	out    *Writer
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder. The config is validated by Run.
func NewRecorder(cfg RecorderConfig, src PositionSource, out *Writer, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		cfg:    cfg,
		src:    src,
		out:    out,
		logger: logger.Named("recorder"),
		now:    time.Now,
	}
}

// Run records until ctx ends or ActiveTime elapses. Stopping either way is a
// normal end of session: the partial batch is written and a nil error is
// returned. Errors come from the position source or the writer.
func (r *Recorder) Run(ctx context.Context) (RecordStats, error) {
	stats := RecordStats{SessionID: uuid.NewString()}
	if err := r.cfg.Validate(); err != nil {
		return stats, err
	}
	logger := r.logger.With(zap.String("session_id", stats.SessionID))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if r.cfg.ActiveTime > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, r.cfg.ActiveTime)
		defer cancelTimeout()
	}

	logger.Info("Recording started",
		zap.Duration("interval", r.cfg.Interval),
		zap.Duration("batch_period", r.cfg.BatchPeriod),
		zap.Duration("active_time", r.cfg.ActiveTime))

	// The writer drains the channel until the sampler closes it, even after a
	// write error, so the sampler can never block on a send.
	batches := make(chan []Sample)
	var g errgroup.Group

	g.Go(func() error {
		defer close(batches)
		n, err := r.sample(runCtx, batches)
		stats.Samples = n
		return err
	})

	g.Go(func() error {
		var writeErr error
		for batch := range batches {
			if writeErr != nil {
				continue
			}
			if err := r.out.WriteBatch(batch); err != nil {
				writeErr = err
				cancel()
				continue
			}
			stats.Batches++
			bad := r.badIntervals(batch)
			stats.BadIntervals += bad
			logger.Debug("Batch written", zap.Int("samples", len(batch)), zap.Int("bad_intervals", bad))
		}
		return writeErr
	})

	err := g.Wait()
	logger.Info("Recording stopped",
		zap.Int("samples", stats.Samples),
		zap.Int("batches", stats.Batches),
		zap.Int("bad_intervals", stats.BadIntervals),
		zap.Error(err))
	return stats, err
}

// sample polls the source and sends full batches on out. It returns when ctx
// ends, after sending whatever partial batch it holds.
func (r *Recorder) sample(ctx context.Context, out chan<- []Sample) (int, error) {
	perBatch := int(r.cfg.BatchPeriod / r.cfg.Interval)
	limiter := rate.NewLimiter(rate.Every(r.cfg.Interval), 1)
	start := r.now()

	count := 0
	batch := make([]Sample, 0, perBatch)
	for {
		// Wait also fails early when the deadline falls before the next token.
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		pos, err := r.src.CursorPosition(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return count, fmt.Errorf("failed to read cursor position: %w", err)
		}
		batch = append(batch, Sample{TimeOffset: r.now().Sub(start), X: pos.X, Y: pos.Y})
		count++
		if len(batch) == perBatch {
			out <- batch
			batch = make([]Sample, 0, perBatch)
		}
	}
	if len(batch) > 0 {
		out <- batch
	}
	return count, nil
}

func (r *Recorder) badIntervals(batch []Sample) int {
	if r.cfg.MaxDeltaTime <= 0 {
		return 0
	}
	bad := 0
	for i := 1; i < len(batch); i++ {
		dt := batch[i].TimeOffset - batch[i-1].TimeOffset
		if dt < r.cfg.MinDeltaTime || dt > r.cfg.MaxDeltaTime {
			bad++
		}
	}
	return bad
}
