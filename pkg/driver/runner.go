// Package driver runs an ordered sequence of batches through a processor,
// persisting progress after every batch so an interrupted run resumes after
// the last committed batch.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/papersift/pkg/batch"
	"github.com/Sumatoshi-tech/papersift/pkg/checkpoint"
	"github.com/Sumatoshi-tech/papersift/pkg/observability"
	"github.com/Sumatoshi-tech/papersift/pkg/partial"
)

const tracerName = "papersift/driver"

// Start modes recorded in metrics and summaries.
const (
	modeFresh   = "fresh"
	modeResumed = "resumed"
)

// Summary describes a finished or stopped run.
type Summary struct {
	Stage        string
	RunID        string
	Resumed      bool
	StartBatch   int
	TotalBatches int
	// ProcessedBatches counts batches committed by this invocation only.
	ProcessedBatches int
	InputCount       int
	Counts           map[string]int
	Outputs          []Output
	Duration         time.Duration
}

// Runner drives one run identity. It is not safe for concurrent use, and two
// runners must not share an identity.
type Runner[T any] struct {
	cfg     Config[T]
	proc    Processor[T]
	tracker *checkpoint.Tracker
	store   *partial.Store[T]
	logger  *slog.Logger
	state   State
}

// New validates cfg and creates a runner.
func New[T any](cfg Config[T], proc Processor[T]) (*Runner[T], error) {
	err := cfg.validate()
	if err != nil {
		return nil, err
	}

	if proc == nil {
		return nil, fmt.Errorf("%w: no processor", ErrConfiguration)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	id := cfg.Identity()
	dir := cfg.Dir()

	return &Runner[T]{
		cfg:     cfg,
		proc:    proc,
		tracker: checkpoint.NewTracker(dir, id),
		store:   partial.NewStore[T](dir, id, cfg.PartitionNames(), cfg.codec()),
		logger:  logger.With("stage", cfg.Stage),
		state:   StateInit,
	}, nil
}

// State returns the current state.
func (r *Runner[T]) State() State {
	return r.state
}

// Tracker returns the progress tracker of the run.
func (r *Runner[T]) Tracker() *checkpoint.Tracker {
	return r.tracker
}

// Store returns the partial result store of the run.
func (r *Runner[T]) Store() *partial.Store[T] {
	return r.store
}

// Run processes records from the resume point to the last batch, then writes
// the final outputs and deletes all transient state. If the context is
// cancelled or a batch fails, Run returns a *StoppedError and the state
// stays on disk for the next invocation.
func (r *Runner[T]) Run(ctx context.Context, records []T) (*Summary, error) {
	started := time.Now()
	r.state = StateInit

	src, err := batch.NewSource(records, r.cfg.BatchSize)
	if err != nil {
		return nil, configError(err)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "papersift.run",
		trace.WithAttributes(
			attribute.String("run.stage", r.cfg.Stage),
			attribute.Int("run.batches", src.Count()),
			attribute.Int("run.batch_size", src.Size()),
			attribute.Int("run.records", src.Len()),
		))
	defer span.End()

	r.logger.InfoContext(ctx, "driver: planning batches",
		"records", src.Len(), "batches", src.Count(), "batch_size", src.Size())

	progress, resumed, err := r.resolveStart(ctx, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve start")

		return nil, err
	}

	ctx = observability.WithLogAttrs(ctx, slog.String("run_id", progress.RunID))
	span.SetAttributes(attribute.Bool("run.resumed", resumed))

	summary := &Summary{
		Stage:        r.cfg.Stage,
		RunID:        progress.RunID,
		Resumed:      resumed,
		StartBatch:   progress.ResumePoint(),
		TotalBatches: progress.TotalBatches,
		InputCount:   src.Len(),
		Counts:       maps.Clone(progress.Counts),
		Outputs:      r.cfg.Outputs,
	}

	mode := modeFresh
	if resumed {
		mode = modeResumed
	}

	processed, err := r.processBatches(ctx, src, progress)

	summary.ProcessedBatches = processed
	summary.Counts = maps.Clone(progress.Counts)

	if err != nil {
		r.transition(ctx, StateInterrupted, Event{Batch: progress.ProcessedBatches, Total: progress.TotalBatches})
		r.cfg.Metrics.RecordRun(ctx, r.cfg.Stage, mode, StateInterrupted.String())
		span.RecordError(err)
		span.SetStatus(codes.Error, "run stopped")

		summary.Duration = time.Since(started)

		return summary, err
	}

	counts, err := r.finalize(ctx, progress)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "finalize")

		return summary, err
	}

	summary.Counts = counts
	summary.Duration = time.Since(started)

	r.cfg.Metrics.RecordRun(ctx, r.cfg.Stage, mode, StateDone.String())
	r.logger.InfoContext(ctx, "driver: run complete",
		"batches", progress.TotalBatches, "processed_now", processed, "duration", summary.Duration)

	return summary, nil
}

// processBatches runs every batch from the resume point in order. Each batch
// is appended to the partial store and then committed before the next one
// starts.
func (r *Runner[T]) processBatches(ctx context.Context, src *batch.Source[T], progress *checkpoint.Progress) (int, error) {
	r.transition(ctx, StateProcessing, Event{Batch: progress.ProcessedBatches, Total: progress.TotalBatches})

	processed := 0

	for b, records := range src.From(progress.ResumePoint()) {
		if ctx.Err() != nil {
			return processed, r.stopped(ctx, progress, b.Number, context.Cause(ctx))
		}

		if r.cfg.Pacer != nil {
			waitErr := r.cfg.Pacer.Wait(ctx)
			if waitErr != nil {
				return processed, r.stopped(ctx, progress, b.Number, waitErr)
			}
		}

		batchErr := r.processBatch(ctx, progress, b, records)
		if batchErr != nil {
			return processed, r.stopped(ctx, progress, b.Number, batchErr)
		}

		processed++
	}

	return processed, nil
}

func (r *Runner[T]) processBatch(
	ctx context.Context, progress *checkpoint.Progress, b batch.Bounds, records []T,
) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "papersift.batch",
		trace.WithAttributes(
			attribute.Int("batch.number", b.Number),
			attribute.Int("batch.records", b.Len()),
		))
	defer span.End()

	r.logger.DebugContext(ctx, "driver: processing batch",
		"batch", b.Number, "total", progress.TotalBatches, "start", b.Start, "end", b.End)

	start := time.Now()

	parts, err := r.proc.Process(ctx, Batch[T]{Number: b.Number, Total: progress.TotalBatches, Records: records})
	if err == nil {
		err = r.checkPartitions(parts, len(records))
	}

	if err != nil {
		r.cfg.Metrics.RecordBatch(ctx, r.cfg.Stage, time.Since(start), nil, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch failed")

		return err
	}

	deltas := make(map[string]int, len(r.cfg.Outputs))

	for _, out := range r.cfg.Outputs {
		appendErr := r.store.Append(out.Partition, b.Number, parts[out.Partition])
		if appendErr != nil {
			return fmt.Errorf("store batch %d: %w", b.Number, appendErr)
		}

		deltas[out.Partition] = len(parts[out.Partition])
	}

	commitErr := r.tracker.Commit(progress, b.Number, deltas)
	if commitErr != nil {
		return commitErr
	}

	dur := time.Since(start)

	r.cfg.Metrics.RecordBatch(ctx, r.cfg.Stage, dur, deltas, nil)

	attrs := []any{"batch", b.Number, "total", progress.TotalBatches, "records", len(records), "duration", dur}
	for _, name := range r.cfg.PartitionNames() {
		attrs = append(attrs, name, progress.Counts[name])
	}

	r.logger.InfoContext(ctx, "driver: batch committed", attrs...)

	r.emit(Event{
		State:   StateProcessing,
		Batch:   b.Number,
		Total:   progress.TotalBatches,
		Records: len(records),
		Counts:  maps.Clone(progress.Counts),
	})

	return nil
}

// checkPartitions verifies that every record produced exactly one result in
// a known partition.
func (r *Runner[T]) checkPartitions(parts Partitions[T], want int) error {
	for name := range parts {
		if !r.hasPartition(name) {
			return fmt.Errorf("%w: %q", partial.ErrUnknownPartition, name)
		}
	}

	if got := parts.Len(); got != want {
		return fmt.Errorf("%w: %d results for %d records", ErrIncompleteBatch, got, want)
	}

	return nil
}

func (r *Runner[T]) hasPartition(name string) bool {
	for _, out := range r.cfg.Outputs {
		if out.Partition == name {
			return true
		}
	}

	return false
}

// finalize writes every partition to its output file and then removes the
// progress record and partial files. A failed write leaves the completed
// state in place so the next run finalizes again.
func (r *Runner[T]) finalize(ctx context.Context, progress *checkpoint.Progress) (map[string]int, error) {
	r.transition(ctx, StateFinalizing, Event{Batch: progress.ProcessedBatches, Total: progress.TotalBatches})

	counts := make(map[string]int, len(r.cfg.Outputs))

	for _, out := range r.cfg.Outputs {
		records, err := r.store.LoadThrough(out.Partition, progress.TotalBatches)
		if err != nil {
			return nil, fmt.Errorf("finalize %s: %w", out.Partition, err)
		}

		writeErr := r.cfg.Write(out.Path, records)
		if writeErr != nil {
			return nil, fmt.Errorf("write %s: %w", out.Path, writeErr)
		}

		counts[out.Partition] = len(records)

		r.logger.InfoContext(ctx, "driver: output written",
			"partition", out.Partition, "path", out.Path, "records", len(records))
	}

	clearErr := errors.Join(r.tracker.Finalize(), r.store.Finalize())
	if clearErr != nil {
		r.logger.WarnContext(ctx, "driver: failed to clear run state after completion", "error", clearErr)
	}

	r.transition(ctx, StateDone, Event{Batch: progress.TotalBatches, Total: progress.TotalBatches, Counts: counts})

	return counts, nil
}

func (r *Runner[T]) stopped(ctx context.Context, progress *checkpoint.Progress, inFlight int, cause error) error {
	interrupted := ctx.Err() != nil

	level := slog.LevelError
	if interrupted {
		level = slog.LevelWarn
	}

	r.logger.Log(ctx, level, "driver: run stopped, progress saved",
		"batch", inFlight, "last_committed", progress.ProcessedBatches,
		"total", progress.TotalBatches, "interrupted", interrupted, "error", cause)

	return &StoppedError{
		Stage:         r.cfg.Stage,
		Batch:         inFlight,
		LastCommitted: progress.ProcessedBatches,
		Total:         progress.TotalBatches,
		Interrupted:   interrupted,
		Err:           cause,
	}
}

func (r *Runner[T]) transition(ctx context.Context, to State, ev Event) {
	r.logger.DebugContext(ctx, "driver: state", "from", r.state.String(), "to", to.String())

	r.state = to
	ev.State = to
	r.emit(ev)
}

func (r *Runner[T]) emit(ev Event) {
	if r.cfg.Observer != nil {
		r.cfg.Observer(ev)
	}
}
