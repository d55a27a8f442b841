// Package categorize assigns each relevant paper one label of a fixed
// taxonomy, or a model-proposed new label, in resumable batches.
package categorize

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/Sumatoshi-tech/papersift/pkg/driver"
	"github.com/Sumatoshi-tech/papersift/pkg/llm"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/stage"
)

// Stage is the run identity stage name.
const Stage = "categorize"

// PartitionCategorized is the only partition.
const PartitionCategorized = "categorized"

// Result record fields.
const (
	FieldCategory         = "category"
	FieldRecommendedLabel = "recommended_label"
	FieldSummary          = "summary"
	FieldConfidence       = "confidence"
	FieldRationale        = "rationale"
)

// DefaultOut is the default output file.
const DefaultOut = "stage-3-output.json"

// Outputs maps the categorized partition to out.
func Outputs(out string) []driver.Output {
	return []driver.Output{{Partition: PartitionCategorized, Path: out}}
}

// DefaultTemperature is the sampling temperature for categorization.
const DefaultTemperature = 0.2

//go:embed reply.schema.json
var replySchemaDoc []byte

var replySchema = llm.MustSchema(replySchemaDoc)

type label struct {
	Index            *int     `json:"index"`
	Category         *string  `json:"category"`
	RecommendedLabel *string  `json:"recommended_label"`
	Summary          *string  `json:"summary"`
	Confidence       *float64 `json:"confidence"`
	Rationale        *string  `json:"rationale"`
}

// Options tunes a Labeler.
type Options struct {
	Temperature      float32
	AbstractMaxChars int
}

// Labeler is a driver.Processor that categorizes papers with a chat model.
type Labeler struct {
	client *llm.Client
	opts   Options
}

// New creates a Labeler.
func New(client *llm.Client, opts Options) *Labeler {
	return &Labeler{client: client, opts: opts}
}

// Process implements driver.Processor. Results keep input order.
func (l *Labeler) Process(ctx context.Context, b driver.Batch[paper.Paper]) (driver.Partitions[paper.Paper], error) {
	payload, err := stage.PayloadJSON(b.Records, l.opts.AbstractMaxChars)
	if err != nil {
		return nil, err
	}

	req := llm.Request{
		System:      systemPrompt,
		User:        userPromptHeader + payload,
		Temperature: l.opts.Temperature,
	}

	var results []paper.Paper

	err = l.client.Do(ctx, req, func(reply string) error {
		out, decodeErr := classify(b.Records, reply)
		if decodeErr != nil {
			return decodeErr
		}

		results = out

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("categorize batch %d/%d: %w", b.Number, b.Total, err)
	}

	return driver.Partitions[paper.Paper]{PartitionCategorized: results}, nil
}

func classify(records []paper.Paper, reply string) ([]paper.Paper, error) {
	var labels []label

	err := replySchema.Decode(reply, &labels)
	if err != nil {
		return nil, err
	}

	indices := make([]*int, len(labels))
	for j, lb := range labels {
		indices[j] = lb.Index
	}

	owner, err := stage.Assign(len(records), indices)
	if err != nil {
		return nil, err
	}

	results := make([]paper.Paper, 0, len(records))
	for i, j := range owner {
		results = append(results, result(records[i], labels[j]))
	}

	return results, nil
}

// result builds the categorized record for p.
func result(p paper.Paper, lb label) paper.Paper {
	category := Normalize(deref(lb.Category))

	recommended, summary := "", ""
	if category == CategoryNew {
		recommended = deref(lb.RecommendedLabel)
		summary = deref(lb.Summary)
	}

	confidence := 0.0
	if lb.Confidence != nil {
		confidence = *lb.Confidence
	}

	return paper.Paper{
		paper.FieldTitle:      p.Title(),
		paper.FieldAbstract:   p.Abstract(),
		paper.FieldURL:        p.URL(),
		paper.FieldYear:       orEmpty(p[paper.FieldYear]),
		paper.FieldConference: p.Conference(),
		FieldCategory:         category,
		FieldRecommendedLabel: recommended,
		FieldSummary:          summary,
		FieldConfidence:       confidence,
		FieldRationale:        deref(lb.Rationale),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func orEmpty(v any) any {
	if v == nil {
		return ""
	}

	return v
}
