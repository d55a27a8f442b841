package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricToolCalls    = "papersift.mcp.tool.calls"
	metricToolDuration = "papersift.mcp.tool.duration.seconds"
	metricToolInflight = "papersift.mcp.tool.inflight"
	metricToolPapers   = "papersift.mcp.tool.papers"

	attrTool = "tool"

	// unknownStage replaces stage names outside the known set so that
	// arbitrary client input cannot grow the label space.
	unknownStage = "unknown"
)

// Tool call outcomes recorded on papersift.mcp.tool.calls.
const (
	OutcomeOK           = "ok"
	OutcomeUnknownStage = "unknown_stage"
	OutcomeInvalidInput = "invalid_input"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
)

// durationBucketBoundaries covers 10ms to 600s: status and stats tool calls
// finish in milliseconds, LLM batches with retries can take minutes.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// ToolMetrics records MCP tool calls by tool, stage, and outcome, plus the
// number of papers each successful call covered.
type ToolMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	inflight metric.Int64UpDownCounter
	papers   metric.Int64Counter
	stages   map[string]bool
}

// NewToolMetrics creates tool metric instruments. stages lists the stage
// names recorded verbatim; any other stage is recorded as "unknown".
func NewToolMetrics(mt metric.Meter, stages ...string) (*ToolMetrics, error) {
	calls, err := mt.Int64Counter(metricToolCalls,
		metric.WithDescription("MCP tool calls by tool, stage and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCalls, err)
	}

	duration, err := mt.Float64Histogram(metricToolDuration,
		metric.WithDescription("MCP tool call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolDuration, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricToolInflight,
		metric.WithDescription("MCP tool calls in progress"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolInflight, err)
	}

	papers, err := mt.Int64Counter(metricToolPapers,
		metric.WithDescription("Papers covered by successful MCP tool calls"),
		metric.WithUnit("{paper}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolPapers, err)
	}

	known := make(map[string]bool, len(stages))
	for _, s := range stages {
		known[s] = true
	}

	return &ToolMetrics{
		calls:    calls,
		duration: duration,
		inflight: inflight,
		papers:   papers,
		stages:   known,
	}, nil
}

// ToolCall is one in-flight tool invocation.
type ToolCall struct {
	tm    *ToolMetrics
	tool  string
	stage string
	start time.Time
}

// Begin marks a call of tool on stage as in flight. A nil receiver returns a
// nil call, whose End is a no-op.
func (tm *ToolMetrics) Begin(ctx context.Context, tool, stage string) *ToolCall {
	if tm == nil {
		return nil
	}

	if !tm.stages[stage] {
		stage = unknownStage
	}

	tm.inflight.Add(ctx, 1, metric.WithAttributes(attribute.String(attrTool, tool)))

	return &ToolCall{tm: tm, tool: tool, stage: stage, start: time.Now()}
}

// End records the outcome of the call. papers is counted only for
// successful calls.
func (c *ToolCall) End(ctx context.Context, outcome string, papers int) {
	if c == nil {
		return
	}

	tool := attribute.String(attrTool, c.tool)
	stage := attribute.String(attrStage, c.stage)

	c.tm.inflight.Add(ctx, -1, metric.WithAttributes(tool))
	c.tm.calls.Add(ctx, 1, metric.WithAttributes(tool, stage, attribute.String(attrOutcome, outcome)))
	c.tm.duration.Record(ctx, time.Since(c.start).Seconds(), metric.WithAttributes(tool, stage))

	if outcome == OutcomeOK && papers > 0 {
		c.tm.papers.Add(ctx, int64(papers), metric.WithAttributes(tool, stage))
	}
}
