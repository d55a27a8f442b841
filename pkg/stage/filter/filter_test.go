package filter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/papersift/pkg/driver"
	"github.com/Sumatoshi-tech/papersift/pkg/llm"
	"github.com/Sumatoshi-tech/papersift/pkg/llm/llmtest"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/stage"
)

func newScreener(m *llmtest.Model) *Screener {
	client := llm.NewClient(m, llm.WithRetries(2, time.Millisecond))

	return New(client, Options{Temperature: DefaultTemperature, AbstractMaxChars: stage.DefaultAbstractMaxChars})
}

func batchOf(titles ...string) driver.Batch[paper.Paper] {
	records := make([]paper.Paper, 0, len(titles))
	for _, title := range titles {
		records = append(records, paper.Paper{"title": title, "abstract": "about " + title, "id": title})
	}

	return driver.Batch[paper.Paper]{Number: 1, Total: 1, Records: records}
}

// includeCode includes every paper whose title mentions code.
func includeCode(messages []*schema.Message) (string, error) {
	user := messages[len(messages)-1].Content

	var items []stage.Item

	err := json.Unmarshal([]byte(user[strings.Index(user, "["):]), &items)
	if err != nil {
		return "", err
	}

	out := make([]map[string]any, 0, len(items))

	for _, item := range items {
		decision := "exclude"
		if strings.Contains(item.Title, "code") {
			decision = "include"
		}

		out = append(out, map[string]any{"index": item.Index, "decision": decision, "reason": "", "confidence": 0.9})
	}

	data, err := json.Marshal(out)

	return "```json\n" + string(data) + "\n```", err
}

func TestScreener_Process(t *testing.T) {
	t.Parallel()

	m := llmtest.NewModel(includeCode)
	s := newScreener(m)

	parts, err := s.Process(context.Background(), batchOf("code gen", "vision", "code repair"))
	require.NoError(t, err)

	require.Len(t, parts[PartitionIncluded], 2)
	require.Len(t, parts[PartitionExcluded], 1)
	assert.Equal(t, "code gen", parts[PartitionIncluded][0].Title())
	assert.Equal(t, "code repair", parts[PartitionIncluded][1].Title())
	assert.Equal(t, "vision", parts[PartitionExcluded][0].Title())

	included := parts[PartitionIncluded][0]
	assert.Equal(t, DecisionInclude, included[FieldDecision])
	assert.Equal(t, "", included[FieldReason])
	assert.InDelta(t, 0.9, included[FieldConfidence], 1e-9)
	assert.Equal(t, "code gen", included["id"], "unknown fields are kept")

	assert.Equal(t, []float32{DefaultTemperature}, m.Temperatures())

	msgs := m.Messages(0)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[1].Content, `"index": 2`)
}

func TestScreener_Process_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	b := batchOf("code gen")
	s := newScreener(llmtest.NewModel(includeCode))

	_, err := s.Process(context.Background(), b)
	require.NoError(t, err)

	_, annotated := b.Records[0][FieldDecision]
	assert.False(t, annotated)
}

func TestScreener_Process_Defaults(t *testing.T) {
	t.Parallel()

	reply := `[{"index": 0}, {"index": 1, "decision": " INCLUDE ", "reason": null}]`
	s := newScreener(llmtest.NewModel(llmtest.Reply(reply)))

	parts, err := s.Process(context.Background(), batchOf("a", "b"))
	require.NoError(t, err)

	require.Len(t, parts[PartitionExcluded], 1)
	assert.Equal(t, DecisionExclude, parts[PartitionExcluded][0][FieldDecision])
	assert.InDelta(t, 0.0, parts[PartitionExcluded][0][FieldConfidence], 1e-9)

	require.Len(t, parts[PartitionIncluded], 1)
	assert.Equal(t, DecisionInclude, parts[PartitionIncluded][0][FieldDecision])
}

func TestScreener_Process_UnknownDecisionIsExcluded(t *testing.T) {
	t.Parallel()

	reply := `[{"index": 0, "decision": "maybe", "reason": "unsure", "confidence": 0.4}]`
	s := newScreener(llmtest.NewModel(llmtest.Reply(reply)))

	parts, err := s.Process(context.Background(), batchOf("a"))
	require.NoError(t, err)

	assert.Empty(t, parts[PartitionIncluded])
	require.Len(t, parts[PartitionExcluded], 1)
	assert.Equal(t, "maybe", parts[PartitionExcluded][0][FieldDecision])
	assert.Equal(t, "unsure", parts[PartitionExcluded][0][FieldReason])
}

func TestScreener_Process_IndexFallsBackToPosition(t *testing.T) {
	t.Parallel()

	reply := `[{"index": 5, "decision": "include"}, {"decision": "exclude"}]`
	s := newScreener(llmtest.NewModel(llmtest.Reply(reply)))

	parts, err := s.Process(context.Background(), batchOf("first", "second"))
	require.NoError(t, err)

	require.Len(t, parts[PartitionIncluded], 1)
	assert.Equal(t, "first", parts[PartitionIncluded][0].Title())
	assert.Equal(t, "second", parts[PartitionExcluded][0].Title())
}

func TestScreener_Process_RetriesIncompleteReply(t *testing.T) {
	t.Parallel()

	m := llmtest.NewModel(
		llmtest.Reply(`[{"index": 0, "decision": "include"}]`),
		llmtest.Reply("sorry, I cannot help"),
		includeCode,
	)
	s := newScreener(m)

	parts, err := s.Process(context.Background(), batchOf("code", "text"))
	require.NoError(t, err)

	assert.Equal(t, 3, m.Calls())
	assert.Equal(t, 2, parts.Len())
}

func TestScreener_Process_GivesUp(t *testing.T) {
	t.Parallel()

	m := llmtest.NewModel(
		llmtest.Reply(`[]`),
		llmtest.Reply(`[]`),
		llmtest.Reply(`[]`),
	)
	s := newScreener(m)

	_, err := s.Process(context.Background(), batchOf("a"))

	require.ErrorIs(t, err, stage.ErrIncompleteReply)
	assert.Contains(t, err.Error(), "filter batch 1/1")
	assert.Equal(t, 3, m.Calls())
}

func TestScreener_Process_AbstractTruncated(t *testing.T) {
	t.Parallel()

	m := llmtest.NewModel(llmtest.Reply(`[{"index":0,"decision":"exclude"}]`))
	s := New(llm.NewClient(m), Options{AbstractMaxChars: 5})

	b := driver.Batch[paper.Paper]{Number: 1, Total: 1, Records: []paper.Paper{{"title": "t", "abstract": "abcdefghij"}}}

	parts, err := s.Process(context.Background(), b)
	require.NoError(t, err)

	assert.Contains(t, m.Messages(0)[1].Content, `"abstract": "abcde …"`)
	assert.Equal(t, "abcdefghij", parts[PartitionExcluded][0].Abstract(), "results keep the full abstract")
}

func TestScreener_WithDriver_ResumesAfterFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "stage-2-output.json")
	rejected := filepath.Join(dir, "stage-2-rejected.json")

	records := make([]paper.Paper, 0, 5)
	for i := range 5 {
		title := fmt.Sprintf("paper %d", i)
		if i%2 == 0 {
			title = fmt.Sprintf("code paper %d", i)
		}

		records = append(records, paper.Paper{"title": title})
	}

	cfg := driver.Config[paper.Paper]{
		Stage:     Stage,
		Outputs:   Outputs(out, rejected),
		BatchSize: 2,
		Write:     paper.SaveList,
	}

	failing := llmtest.NewModel(includeCode, llmtest.Fail(errors.New("invalid api key")))
	first := New(llm.NewClient(failing, llm.WithRetries(0, time.Millisecond)), Options{})

	runner, err := driver.New[paper.Paper](cfg, first)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), records)
	require.ErrorIs(t, err, driver.ErrProcessing)

	second := newScreener(llmtest.NewModel(includeCode, includeCode))

	runner, err = driver.New[paper.Paper](cfg, second)
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), records)
	require.NoError(t, err)
	assert.True(t, summary.Resumed)
	assert.Equal(t, 2, summary.StartBatch)

	included, err := paper.LoadList(out)
	require.NoError(t, err)

	excluded, err := paper.LoadList(rejected)
	require.NoError(t, err)

	require.Len(t, included, 3)
	require.Len(t, excluded, 2)
	assert.Equal(t, "code paper 0", included[0].Title())
	assert.Equal(t, "code paper 4", included[2].Title())
}
