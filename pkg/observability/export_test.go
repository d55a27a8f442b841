package observability

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ResourceAttrs returns the resource attributes Init would attach.
func ResourceAttrs(cfg Config) (map[string]string, error) {
	res, err := buildResource(cfg)
	if err != nil {
		return nil, err
	}

	attrs := make(map[string]string, res.Len())
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}

	return attrs, nil
}

// RootSpanSampled reports whether a root span is recorded under the sampler
// Init would select for cfg.
func RootSpanSampled(cfg Config) bool {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(selectSampler(cfg)),
	)

	_, span := tp.Tracer("probe").Start(context.Background(), "papersift.run")
	span.End()

	sampled := len(exporter.GetSpans()) > 0

	_ = tp.Shutdown(context.Background())

	return sampled
}
