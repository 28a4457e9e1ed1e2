// Package scheduler fans chunk files out over a bounded worker pool. Each
// chunk gets its own log and event stream; a marker file records that a chunk
// needs no further scheduling.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"subforge/internal/config"
	"subforge/internal/events"
	"subforge/internal/ledger"
	"subforge/internal/logging"
	"subforge/internal/workunit"
)

// Mode decides when a chunk stops being schedulable.
type Mode string

const (
	// ModeLenient marks a chunk done once every item has been attempted,
	// even if some stages failed.
	ModeLenient Mode = "lenient"
	// ModeStrict marks a chunk done only when every item has its primary
	// subtitle published. The hosting-upload flag is also what lets the
	// pipeline skip an item, so strict completion and the item-level skip
	// agree on what "done" means.
	ModeStrict Mode = "strict"
)

// ParseMode validates a completion mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLenient, ModeStrict:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown completion mode %q (want lenient or strict)", s)
	}
}

// Runner processes a single item.
type Runner interface {
	Process(ctx context.Context, itemID string) (ledger.Status, error)
}

// RunnerFactory builds the per-chunk runner, bound to that chunk's logger and
// event stream.
type RunnerFactory func(logger *slog.Logger, emitter Emitter) Runner

// Emitter matches the pipeline's event sink.
type Emitter interface {
	Emit(itemID, stage string, outcome events.Outcome, detail string) error
}

// Summary reports one scheduler run.
type Summary struct {
	RunID          string
	ChunksTotal    int
	ChunksRun      int
	ChunksSkipped  int
	ChunksActive   int
	ChunksFailed   []string
	ItemsProcessed int
	ItemsFailed    int
	Elapsed        time.Duration
}

// Failed reports whether any chunk finished unsuccessfully.
func (s Summary) Failed() bool {
	return len(s.ChunksFailed) > 0
}

// Scheduler owns one run over the chunk directory.
type Scheduler struct {
	cfg     *config.Config
	store   *ledger.Store
	factory RunnerFactory
	mode    Mode
	force   bool
	logger  *slog.Logger
	runID   string
	now     func() time.Time
}

// Option customizes a scheduler.
type Option func(*Scheduler)

// WithForce reprocesses chunks that already carry a marker, resetting their
// ledger rows first.
func WithForce(force bool) Option {
	return func(s *Scheduler) { s.force = force }
}

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New constructs a scheduler for one run.
func New(cfg *config.Config, store *ledger.Store, factory RunnerFactory, mode Mode, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:     cfg,
		store:   store,
		factory: factory,
		mode:    mode,
		logger:  logging.NewNop(),
		runID:   uuid.NewString(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunID identifies this scheduler run in event streams.
func (s *Scheduler) RunID() string { return s.runID }

// Run processes every schedulable chunk and returns a summary. The returned
// error covers only setup problems; per-chunk failures are reported through
// Summary.ChunksFailed so one bad chunk never stops the rest.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	started := s.now()
	summary := Summary{RunID: s.runID}

	lock := flock.New(s.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return summary, fmt.Errorf("acquire scheduler lock: %w", err)
	}
	if !locked {
		return summary, fmt.Errorf("another scheduler holds %s", s.cfg.LockPath())
	}
	defer lock.Unlock()

	chunks, err := workunit.List(s.cfg.Paths.ChunksDir)
	if err != nil {
		return summary, err
	}
	summary.ChunksTotal = len(chunks)
	if len(chunks) == 0 {
		s.logger.Warn("no chunk files found",
			logging.String("dir", s.cfg.Paths.ChunksDir))
		return summary, nil
	}

	runnable, skipped, active, err := s.selectChunks(ctx, chunks)
	if err != nil {
		return summary, err
	}
	summary.ChunksSkipped = skipped
	summary.ChunksActive = active

	s.logger.Info("scheduler starting",
		logging.String(logging.FieldRunID, s.runID),
		logging.Int("chunks", len(runnable)),
		logging.Int("workers", s.cfg.Scheduler.Workers),
		logging.String("mode", string(s.mode)),
	)

	progressDone := s.startProgress(ctx)
	defer progressDone()

	results := make([]chunkResult, len(runnable))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Scheduler.Workers)
	for i, chunk := range runnable {
		group.Go(func() error {
			results[i] = s.runChunk(gctx, chunk)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return summary, err
	}

	for _, res := range results {
		summary.ChunksRun++
		summary.ItemsProcessed += res.processed
		summary.ItemsFailed += res.failed
		if !res.completed {
			summary.ChunksFailed = append(summary.ChunksFailed, res.name)
		}
	}
	summary.Elapsed = s.now().Sub(started)

	s.logger.Info("scheduler finished",
		logging.String(logging.FieldRunID, s.runID),
		logging.Int("chunks_run", summary.ChunksRun),
		logging.Int("chunks_failed", len(summary.ChunksFailed)),
		logging.Int("items_processed", summary.ItemsProcessed),
		logging.Int("items_failed", summary.ItemsFailed),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// selectChunks drops chunks that carry a marker or look active in another
// process. With force set, marked chunks are reset and rescheduled instead.
func (s *Scheduler) selectChunks(ctx context.Context, chunks []workunit.Chunk) (runnable []workunit.Chunk, skipped, active int, err error) {
	cutoff := s.now().Add(-time.Duration(s.cfg.Scheduler.ActiveWindowSeconds) * time.Second)
	for _, chunk := range chunks {
		if chunk.HasMarker() {
			if !s.force {
				skipped++
				continue
			}
			if rmErr := chunk.RemoveMarker(); rmErr != nil {
				return nil, 0, 0, rmErr
			}
			if _, resetErr := s.store.Reset(ctx, chunk.Items...); resetErr != nil {
				return nil, 0, 0, resetErr
			}
		}
		if chunk.LogActiveSince(cutoff) && !s.force {
			s.logger.Warn("chunk log recently written, assuming another worker owns it",
				logging.String(logging.FieldChunk, chunk.Name))
			active++
			continue
		}
		runnable = append(runnable, chunk)
	}
	return runnable, skipped, active, nil
}

// ChunkProgress summarizes one chunk's ledger coverage: how many of its items
// have been attempted and how many have their primary subtitle published.
type ChunkProgress struct {
	Chunk     string
	Items     int
	Processed int
	Published int
}

// Percent reports attempted coverage as 0-100.
func (p ChunkProgress) Percent() float64 {
	if p.Items == 0 {
		return 100
	}
	return float64(p.Processed) * 100 / float64(p.Items)
}

// Progress cross-references every chunk's item list against the ledger.
func (s *Scheduler) Progress(ctx context.Context) ([]ChunkProgress, error) {
	chunks, err := workunit.List(s.cfg.Paths.ChunksDir)
	if err != nil {
		return nil, err
	}
	progress := make([]ChunkProgress, 0, len(chunks))
	for _, chunk := range chunks {
		cp := ChunkProgress{Chunk: chunk.Name, Items: len(chunk.Items)}
		for _, itemID := range chunk.Items {
			status, err := s.store.Get(ctx, itemID)
			if err != nil {
				return nil, err
			}
			if status == nil {
				continue
			}
			cp.Processed++
			if status.HostingUploaded {
				cp.Published++
			}
		}
		progress = append(progress, cp)
	}
	return progress, nil
}

// startProgress logs a per-chunk snapshot on an interval until the returned
// stop function is called.
func (s *Scheduler) startProgress(ctx context.Context) func() {
	interval := time.Duration(s.cfg.Scheduler.StatusIntervalSecs) * time.Second
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				progress, err := s.Progress(ctx)
				if err != nil {
					s.logger.Warn("progress snapshot failed", logging.Error(err))
					continue
				}
				for _, cp := range progress {
					s.logger.Info("progress",
						logging.String(logging.FieldChunk, cp.Chunk),
						logging.Int("items", cp.Items),
						logging.Int("processed", cp.Processed),
						logging.Int("published", cp.Published),
						logging.String("percent", fmt.Sprintf("%.0f%%", cp.Percent())),
					)
				}
			}
		}
	}()
	return func() { close(done) }
}
