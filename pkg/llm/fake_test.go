package llm

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var errNoStream = errors.New("streaming not supported")

// fakeModel replays scripted replies. An error entry fails that call.
type fakeModel struct {
	mu      sync.Mutex
	replies []any
	calls   [][]*schema.Message
	temps   []float32
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, input)

	common := model.GetCommonOptions(&model.Options{}, opts...)
	if common.Temperature != nil {
		f.temps = append(f.temps, *common.Temperature)
	}

	if len(f.replies) == 0 {
		return nil, errors.New("connection refused")
	}

	next := f.replies[0]
	f.replies = f.replies[1:]

	if err, ok := next.(error); ok {
		return nil, err
	}

	return schema.AssistantMessage(next.(string), nil), nil
}

func (f *fakeModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errNoStream
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}
