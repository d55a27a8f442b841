package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	metricsPath = "/metrics"
	healthPath  = "/healthz"

	readHeaderTimeout = 5 * time.Second
)

// newPrometheusReader creates an OTel metric reader backed by its own
// Prometheus registry and the handler that serves that registry.
func newPrometheusReader() (sdkmetric.Reader, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return exporter, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// HealthHandler returns an [http.Handler] for liveness checks.
// It always returns HTTP 200 with {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte(`{"status":"ok"}`))
	})
}

// MetricsMux routes /metrics to metrics and /healthz to [HealthHandler],
// each wrapped in [InstrumentEndpoint].
func MetricsMux(tracer trace.Tracer, logger *slog.Logger, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, InstrumentEndpoint(tracer, logger, metricsPath, metrics))
	mux.Handle(healthPath, InstrumentEndpoint(tracer, logger, healthPath, HealthHandler()))

	return mux
}

// ServeMetrics listens on addr and serves [MetricsMux] until ctx is done.
func ServeMetrics(ctx context.Context, addr string, tracer trace.Tracer, metrics http.Handler, logger *slog.Logger) error {
	var lc net.ListenConfig

	listener, err := lc.Listen(context.WithoutCancel(ctx), "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           MetricsMux(tracer, logger, metrics),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeoutSec*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.InfoContext(ctx, "metrics: serving", "addr", listener.Addr().String(), "path", metricsPath)

	serveErr := srv.Serve(listener)
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", serveErr)
	}

	return nil
}
