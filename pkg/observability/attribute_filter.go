package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// verdict is the export decision for one attribute key.
type verdict int

const (
	verdictDrop verdict = iota
	verdictKeep
	verdictBlock
)

// Span attribute key policy. Paper content and model traffic are blocked:
// titles and abstracts are unbounded text, prompts and replies may carry
// credentials pasted into config. Keys under a known namespace are kept;
// anything else is dropped quietly.
var (
	keptPrefixes = []string{
		"papersift.", "run.", "batch.", "checkpoint.", "llm.", "mcp.", "error.", "http.",
	}

	blockedPrefixes = []string{"paper.", "user."}

	blockedKeys = map[string]bool{
		"llm.prompt":  true,
		"llm.reply":   true,
		"llm.api_key": true,
		"email":       true,
	}
)

func classifyKey(key string) verdict {
	if blockedKeys[key] {
		return verdictBlock
	}

	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return verdictBlock
		}
	}

	if key == "error" {
		return verdictKeep
	}

	for _, prefix := range keptPrefixes {
		if strings.HasPrefix(key, prefix) {
			return verdictKeep
		}
	}

	return verdictDrop
}

// attributeFilter is a SpanProcessor that applies the key policy before a
// delegate processor sees the span.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	logger   *slog.Logger
	warned   sync.Map
}

// NewAttributeFilter returns a SpanProcessor that strips paper content, model
// traffic, and keys outside the papersift namespaces. When logger is non-nil,
// each blocked key is reported once as a warning.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, logger: logger}
}

// OnStart delegates to the wrapped processor.
func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

// OnEnd hands the delegate a view of s with the filtered attributes.
func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	orig := s.Attributes()
	kept := make([]attribute.KeyValue, 0, len(orig))

	for _, kv := range orig {
		key := string(kv.Key)

		switch classifyKey(key) {
		case verdictKeep:
			kept = append(kept, kv)
		case verdictBlock:
			f.warnOnce(key, s.Name())
		case verdictDrop:
		}
	}

	f.delegate.OnEnd(&filteredSpan{ReadOnlySpan: s, attrs: kept})
}

// Shutdown delegates to the wrapped processor.
func (f *attributeFilter) Shutdown(ctx context.Context) error {
	err := f.delegate.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

// ForceFlush delegates to the wrapped processor.
func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	err := f.delegate.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func (f *attributeFilter) warnOnce(key, span string) {
	if f.logger == nil {
		return
	}

	if _, seen := f.warned.LoadOrStore(key, struct{}{}); seen {
		return
	}

	f.logger.Warn("span attribute blocked by filter", "key", key, "span", span)
}

// filteredSpan is a ReadOnlySpan with a replaced attribute set.
type filteredSpan struct {
	sdktrace.ReadOnlySpan

	attrs []attribute.KeyValue
}

// Attributes returns the filtered attributes.
func (s *filteredSpan) Attributes() []attribute.KeyValue {
	return s.attrs
}
