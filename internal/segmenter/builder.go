// internal/segmenter/builder.go
package segmenter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cursortrail/internal/geometry"
	"github.com/xkilldash9x/cursortrail/internal/pathlib"
	"github.com/xkilldash9x/cursortrail/internal/samples"
)

// Stats counts what happened to the input during a build.
type Stats struct {
	Samples        int `json:"samples"`
	Sentinels      int `json:"sentinels"`
	Malformed      int `json:"malformed"`
	Batches        int `json:"batches"`
	Steps          int `json:"steps"`
	Glitches       int `json:"glitches"`
	PathsFound     int `json:"paths_found"`
	PathsDiscarded int `json:"paths_discarded"`
	PathsStored    int `json:"paths_stored"`
	PathsReplaced  int `json:"paths_replaced"`
}

// step is one displacement between consecutive samples and the time it took.
type step struct {
	d       geometry.Displacement
	elapsed time.Duration
}

// Builder turns a sample stream into a path library incrementally. It is not
// safe for concurrent use.
type Builder struct {
	cfg    Config
	logger *zap.Logger
	lib    *pathlib.Library
	stats  Stats

	// prev is the last sample seen. A sentinel here means the next sample
	// only seeds the position and yields no step.
	prev  samples.Sample
	batch []step
}

// NewBuilder validates cfg and returns an empty builder.
func NewBuilder(cfg Config, logger *zap.Logger) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		cfg:    cfg,
		logger: logger.Named("segmenter"),
		lib:    pathlib.New(),
	}, nil
}

// Add feeds the next sample.
func (b *Builder) Add(s samples.Sample) {
	b.stats.Samples++
	if s.IsSentinel() {
		b.stats.Sentinels++
	}

	if b.prev.IsSentinel() {
		b.prev = s
		return
	}
	if s.IsSentinel() || len(b.batch) >= b.cfg.MaxBatchRows {
		// The sample closing a batch starts the next one without a step.
		b.prev = s
		b.flush()
		return
	}

	st := step{d: s.Position().Sub(b.prev.Position()), elapsed: s.TimeOffset - b.prev.TimeOffset}
	if b.isGlitch(st) {
		// Zeroed with no elapsed time so it keeps its slot without adding rest.
		st = step{}
		b.stats.Glitches++
	}
	b.batch = append(b.batch, st)
	b.stats.Steps++
	b.prev = s
}

// Finish processes the pending batch and returns the library with the build
// statistics. The builder must not be used afterwards.
func (b *Builder) Finish() (*pathlib.Library, Stats) {
	b.flush()
	b.logger.Info("Path library built",
		zap.Int("samples", b.stats.Samples),
		zap.Int("batches", b.stats.Batches),
		zap.Int("glitches", b.stats.Glitches),
		zap.Int("paths_found", b.stats.PathsFound),
		zap.Int("paths_discarded", b.stats.PathsDiscarded),
		zap.Int("paths_stored", b.lib.Len()))
	return b.lib, b.stats
}

func (b *Builder) isGlitch(st step) bool {
	if st.elapsed < b.cfg.MinDeltaTime || st.elapsed > b.cfg.MaxDeltaTime {
		return true
	}
	return abs(st.d.DX) > b.cfg.MaxSingleAxisDelta || abs(st.d.DY) > b.cfg.MaxSingleAxisDelta
}

func (b *Builder) flush() {
	if len(b.batch) == 0 {
		return
	}
	b.stats.Batches++
	b.extract(b.batch)
	b.batch = b.batch[:0]
}

// extract cuts one batch into paths. A path spans from its first movement to
// its last movement, and ends once the cursor has rested longer than
// MaxNoMoveTime before moving again.
//
// Index 0 doubles as "no start yet", so when a batch opens with movement the
// start lands on the second movement and the very first step is dropped.
// Replay does not need recordings to be exact.
func (b *Builder) extract(steps []step) {
	start, last := 0, 0
	var resting time.Duration
	for i, st := range steps {
		if st.d.IsZero() {
			resting += st.elapsed
			continue
		}
		if start == 0 {
			start = i
		}
		if start < last && resting > b.cfg.MaxNoMoveTime {
			b.accept(steps[start : last+1])
			start = i
		}
		resting = 0
		last = i
	}
	if start < last {
		b.accept(steps[start : last+1])
	}
}

func (b *Builder) accept(steps []step) {
	b.stats.PathsFound++

	var total time.Duration
	path := make(pathlib.Path, len(steps))
	for i, st := range steps {
		total += st.elapsed
		path[i] = st.d
	}
	if total > b.cfg.MaxTotalPathTime {
		b.stats.PathsDiscarded++
		b.logger.Debug("Discarding slow path", zap.Duration("total", total), zap.Int("steps", len(path)))
		return
	}

	_, existed := b.lib.Get(pathlib.Summarize(path).Distance)
	if _, stored := b.lib.Insert(path); stored {
		b.stats.PathsStored++
		if existed {
			b.stats.PathsReplaced++
		}
	}
}

// Build segments a complete sample sequence into a library.
func Build(ss []samples.Sample, cfg Config) (*pathlib.Library, error) {
	b, err := NewBuilder(cfg, nil)
	if err != nil {
		return nil, err
	}
	for _, s := range ss {
		b.Add(s)
	}
	lib, _ := b.Finish()
	return lib, nil
}

// BuildFromReader streams samples from r into a library. Malformed rows are
// skipped by the reader and reported in the stats.
func BuildFromReader(ctx context.Context, r *samples.Reader, cfg Config, logger *zap.Logger) (*pathlib.Library, Stats, error) {
	b, err := NewBuilder(cfg, logger)
	if err != nil {
		return nil, Stats{}, err
	}
	for n := 0; ; n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, b.stats, err
			}
		}
		s, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, b.stats, fmt.Errorf("failed to read samples: %w", err)
		}
		b.Add(s)
	}
	b.stats.Malformed = r.Malformed()
	lib, stats := b.Finish()
	return lib, stats, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
