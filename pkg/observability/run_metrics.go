package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricBatchesTotal  = "papersift.batches.total"
	metricRecordsTotal  = "papersift.records.total"
	metricBatchDuration = "papersift.batch.duration.seconds"
	metricRunsTotal     = "papersift.runs.total"

	attrStage     = "stage"
	attrPartition = "partition"
	attrOutcome   = "outcome"
	attrStartMode = "start_mode"
)

// RunMetrics holds OTel instruments for resumable batch runs.
type RunMetrics struct {
	batchesTotal  metric.Int64Counter
	recordsTotal  metric.Int64Counter
	batchDuration metric.Float64Histogram
	runsTotal     metric.Int64Counter
}

// NewRunMetrics creates run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	batches, err := mt.Int64Counter(metricBatchesTotal,
		metric.WithDescription("Batches sent to the processor by outcome"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBatchesTotal, err)
	}

	records, err := mt.Int64Counter(metricRecordsTotal,
		metric.WithDescription("Records committed per output partition"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRecordsTotal, err)
	}

	batchDur, err := mt.Float64Histogram(metricBatchDuration,
		metric.WithDescription("Per-batch processing duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBatchDuration, err)
	}

	runs, err := mt.Int64Counter(metricRunsTotal,
		metric.WithDescription("Runs by start mode and outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunsTotal, err)
	}

	return &RunMetrics{
		batchesTotal:  batches,
		recordsTotal:  records,
		batchDuration: batchDur,
		runsTotal:     runs,
	}, nil
}

// RecordBatch records one processed batch. counts is nil for failed batches.
// Safe to call on a nil receiver (no-op).
func (rm *RunMetrics) RecordBatch(ctx context.Context, stage string, dur time.Duration, counts map[string]int, err error) {
	if rm == nil {
		return
	}

	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}

	rm.batchesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStage, stage),
		attribute.String(attrOutcome, outcome),
	))
	rm.batchDuration.Record(ctx, dur.Seconds(), metric.WithAttributes(attribute.String(attrStage, stage)))

	for partition, n := range counts {
		rm.recordsTotal.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String(attrStage, stage),
			attribute.String(attrPartition, partition),
		))
	}
}

// RecordRun records the end of a run. mode is "fresh" or "resumed" and
// outcome is the final driver state. Safe to call on a nil receiver (no-op).
func (rm *RunMetrics) RecordRun(ctx context.Context, stage, mode, outcome string) {
	if rm == nil {
		return
	}

	rm.runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStage, stage),
		attribute.String(attrStartMode, mode),
		attribute.String(attrOutcome, outcome),
	))
}
