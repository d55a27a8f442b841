// Package filter implements the LLM relevance screen: every paper is sent
// to the model in batches and lands in the included or excluded partition.
package filter

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/papersift/pkg/driver"
	"github.com/Sumatoshi-tech/papersift/pkg/llm"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/stage"
)

// Stage is the run identity stage name.
const Stage = "filter"

// Partitions.
const (
	PartitionIncluded = "included"
	PartitionExcluded = "excluded"
)

// Annotation fields added to every result record.
const (
	FieldDecision   = "_filter_decision"
	FieldReason     = "_filter_reason"
	FieldConfidence = "_filter_confidence"
)

// Decisions.
const (
	DecisionInclude = "include"
	DecisionExclude = "exclude"
)

// DefaultTemperature is the sampling temperature for screening.
const DefaultTemperature = 0.1

//go:embed reply.schema.json
var replySchemaDoc []byte

var replySchema = llm.MustSchema(replySchemaDoc)

// verdict is one element of the model reply.
type verdict struct {
	Index      *int     `json:"index"`
	Decision   *string  `json:"decision"`
	Reason     *string  `json:"reason"`
	Confidence *float64 `json:"confidence"`
}

// Options tunes a Screener.
type Options struct {
	Temperature      float32
	AbstractMaxChars int
}

// Screener is a driver.Processor that screens papers with a chat model.
type Screener struct {
	client *llm.Client
	opts   Options
}

// New creates a Screener.
func New(client *llm.Client, opts Options) *Screener {
	return &Screener{client: client, opts: opts}
}

// Default output files.
const (
	DefaultOut      = "stage-2-output.json"
	DefaultRejected = "stage-2-rejected.json"
)

// Partitions returns the partitions a Screener fills, in output order.
func Partitions() []string {
	return []string{PartitionIncluded, PartitionExcluded}
}

// Outputs maps the included partition to out and the excluded one to rejected.
func Outputs(out, rejected string) []driver.Output {
	return []driver.Output{
		{Partition: PartitionIncluded, Path: out},
		{Partition: PartitionExcluded, Path: rejected},
	}
}

// Process implements driver.Processor. A reply that cannot be decoded or
// leaves a paper undecided is retried by the client.
func (s *Screener) Process(ctx context.Context, b driver.Batch[paper.Paper]) (driver.Partitions[paper.Paper], error) {
	payload, err := stage.PayloadJSON(b.Records, s.opts.AbstractMaxChars)
	if err != nil {
		return nil, err
	}

	req := llm.Request{
		System:      systemPrompt,
		User:        userPromptHeader + payload,
		Temperature: s.opts.Temperature,
	}

	var out driver.Partitions[paper.Paper]

	err = s.client.Do(ctx, req, func(reply string) error {
		parts, decodeErr := decide(b.Records, reply)
		if decodeErr != nil {
			return decodeErr
		}

		out = parts

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filter batch %d/%d: %w", b.Number, b.Total, err)
	}

	return out, nil
}

func decide(records []paper.Paper, reply string) (driver.Partitions[paper.Paper], error) {
	var verdicts []verdict

	err := replySchema.Decode(reply, &verdicts)
	if err != nil {
		return nil, err
	}

	indices := make([]*int, len(verdicts))
	for j, v := range verdicts {
		indices[j] = v.Index
	}

	owner, err := stage.Assign(len(records), indices)
	if err != nil {
		return nil, err
	}

	parts := driver.Partitions[paper.Paper]{
		PartitionIncluded: {},
		PartitionExcluded: {},
	}

	for i, j := range owner {
		result := annotate(records[i], verdicts[j])

		partition := PartitionExcluded
		if result[FieldDecision] == DecisionInclude {
			partition = PartitionIncluded
		}

		parts[partition] = append(parts[partition], result)
	}

	return parts, nil
}

func annotate(p paper.Paper, v verdict) paper.Paper {
	decision := DecisionExclude
	if v.Decision != nil && strings.TrimSpace(*v.Decision) != "" {
		decision = strings.ToLower(strings.TrimSpace(*v.Decision))
	}

	reason := ""
	if v.Reason != nil {
		reason = *v.Reason
	}

	confidence := 0.0
	if v.Confidence != nil {
		confidence = *v.Confidence
	}

	result := p.Clone()
	result[FieldDecision] = decision
	result[FieldReason] = reason
	result[FieldConfidence] = confidence

	return result
}
