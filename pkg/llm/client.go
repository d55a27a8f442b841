package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "papersift/llm"

// Retry defaults.
const (
	DefaultMaxRetries   = 2
	DefaultRetryInitial = 800 * time.Millisecond
	retryMultiplier     = 2
)

// Request is one prompt.
type Request struct {
	System      string
	User        string
	Temperature float32
}

// Client sends prompts to a chat model and retries failed calls or
// unparsable replies with exponential backoff.
type Client struct {
	model        model.BaseChatModel
	maxRetries   int
	retryInitial time.Duration
	logger       *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetries sets the number of retries after the first attempt and the
// delay before the first retry. Each further retry waits twice as long.
func WithRetries(maxRetries int, initial time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max(maxRetries, 0)
		if initial > 0 {
			c.retryInitial = initial
		}
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient wraps a chat model.
func NewClient(chatModel model.BaseChatModel, opts ...ClientOption) *Client {
	c := &Client{
		model:        chatModel,
		maxRetries:   DefaultMaxRetries,
		retryInitial: DefaultRetryInitial,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Do sends req and passes the reply text to handle. A failed call or a
// handle error triggers a retry; permanent provider errors (bad key,
// unknown model, oversized prompt) do not.
func (c *Client) Do(ctx context.Context, req Request, handle func(reply string) error) error {
	messages := make([]*schema.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, schema.SystemMessage(req.System))
	}

	messages = append(messages, schema.UserMessage(req.User))

	attempt := 0

	operation := func() (struct{}, error) {
		attempt++

		attemptCtx, span := otel.Tracer(tracerName).Start(ctx, "papersift.llm.attempt",
			trace.WithAttributes(attribute.Int("llm.attempt", attempt)))
		defer span.End()

		reply, err := c.model.Generate(attemptCtx, messages, model.WithTemperature(req.Temperature))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(Classify(err)))

			if Permanent(err) {
				return struct{}{}, backoff.Permanent(fmt.Errorf("%s: %w", Classify(err), err))
			}

			return struct{}{}, err
		}

		return struct{}{}, handle(reply.Content)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInitial
	policy.Multiplier = retryMultiplier
	policy.RandomizationFactor = 0

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.WarnContext(ctx, "llm: call or parse failed, retrying",
				"attempt", attempt, "of", c.maxRetries+1, "kind", string(Classify(err)),
				"wait", wait, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("llm request failed after %d attempt(s): %w", attempt, err)
	}

	return nil
}
