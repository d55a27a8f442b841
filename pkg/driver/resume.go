package driver

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/papersift/pkg/batch"
	"github.com/Sumatoshi-tech/papersift/pkg/checkpoint"
)

// resolveStart decides between resuming a compatible previous run and
// starting fresh. Incompatible or unreadable state is never merged: it is
// discarded, or quarantined when corrupt, with a warning.
func (r *Runner[T]) resolveStart(ctx context.Context, src *batch.Source[T]) (*checkpoint.Progress, bool, error) {
	if r.cfg.Reset {
		r.logger.InfoContext(ctx, "driver: reset requested, discarding previous state")

		discardErr := r.discard()
		if discardErr != nil {
			return nil, false, discardErr
		}

		return r.start(ctx, src)
	}

	progress, err := r.tracker.Load()

	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		if r.store.Exists() {
			r.logger.WarnContext(ctx, "driver: partial results without a progress record, discarding")

			discardErr := r.discard()
			if discardErr != nil {
				return nil, false, discardErr
			}
		}

		return r.start(ctx, src)
	case errors.Is(err, checkpoint.ErrCorrupt):
		return r.recoverCorrupt(ctx, src, err)
	case err != nil:
		return nil, false, err
	}

	compatErr := progress.CheckCompatible(src.Count(), src.Size(), src.Len())
	if compatErr != nil {
		return r.restart(ctx, src, "driver: previous run does not match, starting fresh", compatErr)
	}

	verifyErr := r.verifyPartials(progress, src)
	if verifyErr != nil {
		return r.restart(ctx, src, "driver: partial results unusable, starting fresh", verifyErr)
	}

	r.logger.InfoContext(ctx, "driver: resuming",
		"processed", progress.ProcessedBatches, "total", progress.TotalBatches,
		"next", progress.ResumePoint(), "run_id", progress.RunID)

	trace.SpanFromContext(ctx).AddEvent("checkpoint.resumed", trace.WithAttributes(
		attribute.Int("batch", progress.ResumePoint()),
		attribute.String("run_id", progress.RunID),
	))

	r.transition(ctx, StateResuming, Event{
		Batch:  progress.ProcessedBatches,
		Total:  progress.TotalBatches,
		Counts: maps.Clone(progress.Counts),
	})

	return progress, true, nil
}

// recoverCorrupt moves the unreadable record aside and starts over. The
// partial results are useless without it and are discarded.
func (r *Runner[T]) recoverCorrupt(
	ctx context.Context, src *batch.Source[T], cause error,
) (*checkpoint.Progress, bool, error) {
	r.logger.ErrorContext(ctx, "driver: progress record is corrupt, starting fresh",
		"path", r.tracker.Path(), "error", cause)

	moved, err := r.tracker.Quarantine()
	if err != nil {
		return nil, false, err
	}

	if moved != "" {
		r.logger.WarnContext(ctx, "driver: corrupt progress record kept for inspection", "path", moved)
	}

	if r.store.Exists() {
		r.logger.WarnContext(ctx, "driver: discarding partial results of the corrupt run")
	}

	storeErr := r.store.Finalize()
	if storeErr != nil {
		return nil, false, storeErr
	}

	return r.start(ctx, src)
}

func (r *Runner[T]) restart(
	ctx context.Context, src *batch.Source[T], msg string, cause error,
) (*checkpoint.Progress, bool, error) {
	r.logger.WarnContext(ctx, msg, "error", cause)

	discardErr := r.discard()
	if discardErr != nil {
		return nil, false, discardErr
	}

	return r.start(ctx, src)
}

func (r *Runner[T]) start(ctx context.Context, src *batch.Source[T]) (*checkpoint.Progress, bool, error) {
	progress, err := r.tracker.Start(src.Count(), src.Size(), src.Len(), r.cfg.PartitionNames())
	if err != nil {
		return nil, false, err
	}

	r.logger.InfoContext(ctx, "driver: starting", "total", progress.TotalBatches, "run_id", progress.RunID)

	r.transition(ctx, StateStarting, Event{Total: progress.TotalBatches, Counts: maps.Clone(progress.Counts)})

	return progress, false, nil
}

func (r *Runner[T]) discard() error {
	err := errors.Join(r.tracker.Finalize(), r.store.Finalize())
	if err != nil {
		return fmt.Errorf("discard previous state: %w", err)
	}

	return nil
}

// verifyPartials checks that the committed batches are all present in the
// partial store. Records of a batch appended but never committed are
// ignored here; the batch is processed again and its chunk replaced.
func (r *Runner[T]) verifyPartials(progress *checkpoint.Progress, src *batch.Source[T]) error {
	total := 0

	for _, name := range r.cfg.PartitionNames() {
		records, err := r.store.LoadThrough(name, progress.ProcessedBatches)
		if err != nil {
			return err
		}

		if recorded, ok := progress.Counts[name]; ok && recorded != len(records) {
			return fmt.Errorf("%w: %s has %d records, progress says %d",
				ErrInconsistentState, name, len(records), recorded)
		}

		total += len(records)
	}

	want := min(progress.ProcessedBatches*src.Size(), src.Len())
	if total != want {
		return fmt.Errorf("%w: %d records stored for %d committed batches, want %d",
			ErrInconsistentState, total, progress.ProcessedBatches, want)
	}

	return nil
}
