package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/papersift/pkg/observability"
)

func setupRunMetrics(t *testing.T) (*observability.RunMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	rm, err := observability.NewRunMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return rm, reader
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestRunMetrics_RecordBatch(t *testing.T) {
	t.Parallel()

	rm, reader := setupRunMetrics(t)
	ctx := context.Background()

	rm.RecordBatch(ctx, "filter", 2*time.Second, map[string]int{"included": 3, "excluded": 5}, nil)
	rm.RecordBatch(ctx, "filter", time.Second, nil, errors.New("timeout"))

	data := collectMetrics(t, reader)

	batches := findMetric(data, "papersift.batches.total")
	require.NotNil(t, batches)
	assert.Equal(t, int64(2), sumValue(t, batches))

	records := findMetric(data, "papersift.records.total")
	require.NotNil(t, records)
	assert.Equal(t, int64(8), sumValue(t, records))

	require.NotNil(t, findMetric(data, "papersift.batch.duration.seconds"))
}

func TestRunMetrics_RecordRun(t *testing.T) {
	t.Parallel()

	rm, reader := setupRunMetrics(t)

	rm.RecordRun(context.Background(), "categorize", "resumed", "done")

	runs := findMetric(collectMetrics(t, reader), "papersift.runs.total")
	require.NotNil(t, runs)
	assert.Equal(t, int64(1), sumValue(t, runs))
}

func TestRunMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var rm *observability.RunMetrics

	assert.NotPanics(t, func() {
		rm.RecordBatch(context.Background(), "filter", time.Second, map[string]int{"included": 1}, nil)
		rm.RecordRun(context.Background(), "filter", "fresh", "done")
	})
}
