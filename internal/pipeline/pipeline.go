package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
	"github.com/couchcryptid/ocean-grid-etl/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer tags a raw event with its grid box and pentad.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.TaggedObservation, error)
}

// BatchLoader writes tagged observations to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, obs []domain.TaggedObservation) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the clock used for retry delays and batch timing.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// Pipeline reads raw observations, tags each with its box and pentad, and
// hands the tagged batch to the loader. A batch's offsets, including those
// of observations that can never be tagged, are committed only after the
// load succeeds; a failed load is retried with the same batch.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
		batchSize:   batchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a batch has been tagged and loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not loaded any observations yet")
	}
	return nil
}

// Run executes the extract-tag-load loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	r := retry{clock: p.clock, delay: initialBackoff}
	for ctx.Err() == nil {
		if !p.processBatch(ctx, &r) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// processBatch runs one cycle. It returns false when the pipeline should stop.
//
// Group offsets are positional, so committing any message also commits every
// earlier message of its partition. Nothing in a batch is committed until
// the whole batch is settled: either every taggable observation is loaded or
// the batch held none.
func (p *Pipeline) processBatch(ctx context.Context, r *retry) bool {
	start := p.clock.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err, "retry_in", r.delay)
		return r.wait(ctx)
	}
	if len(rawBatch) == 0 {
		return true
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	r.reset()

	tagged := p.tag(ctx, rawBatch)
	if len(tagged) > 0 {
		if !p.load(ctx, tagged, r) {
			return false
		}
		p.metrics.BatchProcessingDuration.Observe(p.clock.Since(start).Seconds())
		p.ready.Store(true)
	}

	for _, raw := range rawBatch {
		p.commitOffset(ctx, raw)
	}
	p.logger.Debug("batch settled", "consumed", len(rawBatch), "loaded", len(tagged))
	return true
}

// load hands the batch to the loader, retrying the same batch with backoff
// until it succeeds. It returns false if ctx ends first.
func (p *Pipeline) load(ctx context.Context, tagged []domain.TaggedObservation, r *retry) bool {
	for {
		err := p.loader.LoadBatch(ctx, tagged)
		if err == nil {
			p.metrics.MessagesProduced.Add(float64(len(tagged)))
			r.reset()
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(tagged), "retry_in", r.delay)
		if !r.wait(ctx) {
			return false
		}
	}
}

// tag transforms every event in the batch and returns the observations that
// could be tagged. Untaggable events are counted and logged; their offsets
// are committed with the rest of the batch so a poison message or a point
// off the grid is never redelivered.
func (p *Pipeline) tag(ctx context.Context, rawBatch []domain.RawEvent) []domain.TaggedObservation {
	tagged := make([]domain.TaggedObservation, 0, len(rawBatch))
	for _, raw := range rawBatch {
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.skip(raw, err)
			continue
		}
		tagged = append(tagged, out)
	}
	return tagged
}

// skip records an untaggable event. Points outside the grid and in land gaps
// are routine for a global feed and are logged at debug level.
func (p *Pipeline) skip(raw domain.RawEvent, err error) {
	reason := observability.LookupOutcome(err)
	p.metrics.ObservationsSkipped.WithLabelValues(reason).Inc()

	level := slog.LevelWarn
	if reason == "out_of_bounds" || reason == "not_found" {
		level = slog.LevelDebug
	}
	p.logger.Log(context.Background(), level, "observation skipped",
		"reason", reason,
		"error", err,
		"topic", raw.Topic,
		"partition", raw.Partition,
		"offset", raw.Offset,
	)
}

func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// retry is an exponential backoff doubling from initialBackoff up to maxBackoff.
type retry struct {
	clock clockwork.Clock
	delay time.Duration
}

func (r *retry) reset() { r.delay = initialBackoff }

// wait sleeps for the current delay and doubles it. It returns false if ctx
// ends first.
func (r *retry) wait(ctx context.Context) bool {
	timer := r.clock.NewTimer(r.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
	}
	r.delay = min(r.delay*2, maxBackoff)
	return true
}
