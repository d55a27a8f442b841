package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/papersift/pkg/llm"
	"github.com/Sumatoshi-tech/papersift/pkg/llm/llmtest"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/stage"
)

// testConfig is written to every test workspace so a config file in the
// user's home directory never leaks into the tests.
const testConfig = `pipeline:
  sleep: 0s
llm:
  retry_initial: 1ms
`

type workspace struct {
	t   *testing.T
	dir string
	cfg string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	dir := t.TempDir()
	cfg := filepath.Join(dir, "papersift.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(testConfig), 0o600))

	return &workspace{t: t, dir: dir, cfg: cfg}
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) writePapers(name string, papers []paper.Paper) string {
	w.t.Helper()

	path := w.path(name)
	require.NoError(w.t, paper.SaveList(path, papers))

	return path
}

func (w *workspace) readPapers(name string) []paper.Paper {
	w.t.Helper()

	papers, err := paper.LoadList(w.path(name))
	require.NoError(w.t, err)

	return papers
}

// run executes the root command with the workspace config and returns stdout.
func (w *workspace) run(factory llm.Factory, args ...string) (string, error) {
	w.t.Helper()

	if factory == nil {
		factory = fakeFactory(llmtest.NewModel())
	}

	cmd := newRootCommandWithDeps(factory)

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", w.cfg, "--no-color", "-q"}, args...))

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func fakeFactory(m model.BaseChatModel) llm.Factory {
	return func(context.Context, llm.Config) (model.BaseChatModel, error) {
		return m, nil
	}
}

// promptItems decodes the paper payload of the last user message.
func promptItems(messages []*schema.Message) ([]stage.Item, error) {
	user := messages[len(messages)-1].Content

	var items []stage.Item

	err := json.Unmarshal([]byte(user[strings.Index(user, "["):]), &items)

	return items, err
}

// includeCode screens in every paper whose title mentions code.
func includeCode(messages []*schema.Message) (string, error) {
	items, err := promptItems(messages)
	if err != nil {
		return "", err
	}

	out := make([]map[string]any, 0, len(items))

	for _, item := range items {
		decision := "exclude"
		if strings.Contains(item.Title, "code") {
			decision = "include"
		}

		out = append(out, map[string]any{"index": item.Index, "decision": decision, "reason": "test", "confidence": 0.8})
	}

	data, err := json.Marshal(out)

	return string(data), err
}

// labelRepair puts every paper in the code repair category.
func labelRepair(messages []*schema.Message) (string, error) {
	items, err := promptItems(messages)
	if err != nil {
		return "", err
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{"index": item.Index, "category": "code repair", "confidence": 0.7})
	}

	data, err := json.Marshal(out)

	return string(data), err
}

func numberedPapers(n int) []paper.Paper {
	papers := make([]paper.Paper, 0, n)

	for i := range n {
		title := "paper " + string(rune('a'+i))
		if i%2 == 0 {
			title = "code " + title
		}

		papers = append(papers, paper.Paper{"title": title, "abstract": "abstract of " + title})
	}

	return papers
}
