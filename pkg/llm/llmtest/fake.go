// Package llmtest provides an in-memory chat model for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrExhausted is returned once the scripted replies run out.
var ErrExhausted = errors.New("connection refused: no scripted reply left")

var errNoStream = errors.New("streaming not supported")

// Responder produces a reply for one call. Returning an error fails the call.
type Responder func(messages []*schema.Message) (string, error)

// Model is a scripted model.BaseChatModel. Each call consumes the next
// reply; Fallback, when set, answers once the script is exhausted.
type Model struct {
	mu       sync.Mutex
	script   []Responder
	Fallback Responder
	calls    [][]*schema.Message
	temps    []float32
}

// NewModel creates a model that answers with the given responders in order.
func NewModel(script ...Responder) *Model {
	return &Model{script: script}
}

// Reply answers with fixed text.
func Reply(text string) Responder {
	return func([]*schema.Message) (string, error) { return text, nil }
}

// Fail fails the call with err.
func Fail(err error) Responder {
	return func([]*schema.Message) (string, error) { return "", err }
}

// Generate implements model.BaseChatModel.
func (m *Model) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()

	m.calls = append(m.calls, input)

	common := model.GetCommonOptions(&model.Options{}, opts...)
	if common.Temperature != nil {
		m.temps = append(m.temps, *common.Temperature)
	}

	next := m.Fallback
	if len(m.script) > 0 {
		next = m.script[0]
		m.script = m.script[1:]
	}

	m.mu.Unlock()

	if next == nil {
		return nil, ErrExhausted
	}

	text, err := next(input)
	if err != nil {
		return nil, err
	}

	return schema.AssistantMessage(text, nil), nil
}

// Stream implements model.BaseChatModel; it is not supported.
func (m *Model) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errNoStream
}

// Calls returns the number of Generate calls.
func (m *Model) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.calls)
}

// Messages returns the messages of call i.
func (m *Model) Messages(i int) []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls[i]
}

// Temperatures returns the temperature of every call that set one.
func (m *Model) Temperatures() []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]float32(nil), m.temps...)
}
