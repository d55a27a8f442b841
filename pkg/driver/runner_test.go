package driver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/papersift/pkg/batch"
	"github.com/Sumatoshi-tech/papersift/pkg/checkpoint"
	"github.com/Sumatoshi-tech/papersift/pkg/persist"
)

var errUpstream = errors.New("upstream unavailable")

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}

func parity(_ context.Context, b Batch[int]) (Partitions[int], error) {
	parts := Partitions[int]{"even": {}, "odd": {}}

	for _, v := range b.Records {
		if v%2 == 0 {
			parts["even"] = append(parts["even"], v)
		} else {
			parts["odd"] = append(parts["odd"], v)
		}
	}

	return parts, nil
}

func writeInts(path string, records []int) error {
	return persist.WriteFileAtomic(path, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(records)
	})
}

func readInts(t *testing.T, path string) []int {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out []int

	require.NoError(t, json.Unmarshal(data, &out))

	return out
}

func testConfig(dir string, batchSize int) Config[int] {
	return Config[int]{
		Stage: "filter",
		Outputs: []Output{
			{Partition: "even", Path: filepath.Join(dir, "even.json")},
			{Partition: "odd", Path: filepath.Join(dir, "odd.json")},
		},
		BatchSize: batchSize,
		Write:     writeInts,
	}
}

func newRunner(t *testing.T, cfg Config[int], proc ProcessorFunc[int]) *Runner[int] {
	t.Helper()

	r, err := New[int](cfg, proc)
	require.NoError(t, err)

	return r
}

func allOutputs(t *testing.T, dir string) []int {
	t.Helper()

	merged := append(readInts(t, filepath.Join(dir, "even.json")), readInts(t, filepath.Join(dir, "odd.json"))...)
	slices.Sort(merged)

	return merged
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

// interruptAt returns a processor that cancels the run when batch n starts.
func interruptAt(n int, cancel context.CancelFunc) ProcessorFunc[int] {
	return func(ctx context.Context, b Batch[int]) (Partitions[int], error) {
		if b.Number == n {
			cancel()

			return nil, ctx.Err()
		}

		return parity(ctx, b)
	}
}

func TestRunner_Run_Fresh(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var states []State

	cfg := testConfig(dir, 8)
	cfg.Observer = func(ev Event) {
		if len(states) == 0 || states[len(states)-1] != ev.State {
			states = append(states, ev.State)
		}
	}

	r := newRunner(t, cfg, parity)

	summary, err := r.Run(context.Background(), seq(23))
	require.NoError(t, err)

	assert.Equal(t, StateDone, r.State())
	assert.False(t, summary.Resumed)
	assert.Equal(t, 1, summary.StartBatch)
	assert.Equal(t, 3, summary.TotalBatches)
	assert.Equal(t, 3, summary.ProcessedBatches)
	assert.Equal(t, map[string]int{"even": 12, "odd": 11}, summary.Counts)
	assert.NotEmpty(t, summary.RunID)

	assert.Equal(t, seq(23), allOutputs(t, dir))
	assert.ElementsMatch(t, []string{"even.json", "odd.json"}, dirNames(t, dir))

	assert.Equal(t, []State{StateStarting, StateProcessing, StateFinalizing, StateDone}, states)
}

func TestRunner_Run_InterruptAndResume(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newRunner(t, testConfig(dir, 8), interruptAt(3, cancel))

	summary, err := first.Run(ctx, seq(23))

	require.ErrorIs(t, err, ErrInterrupted)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrProcessing)

	var stopped *StoppedError

	require.ErrorAs(t, err, &stopped)
	assert.Equal(t, 3, stopped.Batch)
	assert.Equal(t, 2, stopped.LastCommitted)
	assert.Equal(t, 3, stopped.Total)
	assert.Equal(t, StateInterrupted, first.State())
	assert.Equal(t, 2, summary.ProcessedBatches)

	progress, err := first.Tracker().Load()
	require.NoError(t, err)
	assert.Equal(t, 2, progress.ProcessedBatches)
	assert.Equal(t, 3, progress.TotalBatches)
	assert.Equal(t, 16, progress.TotalRecords())
	assert.NoFileExists(t, filepath.Join(dir, "even.json"))

	var (
		seen       []int
		seenSizes  []int
		resumedAt  Event
		gotResumed bool
	)

	cfg := testConfig(dir, 8)
	cfg.Observer = func(ev Event) {
		if ev.State == StateResuming {
			resumedAt = ev
			gotResumed = true
		}
	}

	second := newRunner(t, cfg, func(ctx context.Context, b Batch[int]) (Partitions[int], error) {
		seen = append(seen, b.Number)
		seenSizes = append(seenSizes, len(b.Records))

		return parity(ctx, b)
	})

	summary, err = second.Run(context.Background(), seq(23))
	require.NoError(t, err)

	require.True(t, gotResumed)
	assert.Equal(t, 2, resumedAt.Batch)
	assert.Equal(t, 3, resumedAt.Total)

	assert.Equal(t, []int{3}, seen)
	assert.Equal(t, []int{7}, seenSizes)
	assert.True(t, summary.Resumed)
	assert.Equal(t, 3, summary.StartBatch)
	assert.Equal(t, 1, summary.ProcessedBatches)
	assert.Equal(t, progress.RunID, summary.RunID)

	assert.Equal(t, seq(23), allOutputs(t, dir))
	assert.ElementsMatch(t, []string{"even.json", "odd.json"}, dirNames(t, dir))
}

func TestRunner_Run_ResumeMatchesUninterrupted(t *testing.T) {
	t.Parallel()

	plainDir := t.TempDir()

	_, err := newRunner(t, testConfig(plainDir, 4), parity).Run(context.Background(), seq(30))
	require.NoError(t, err)

	resumedDir := t.TempDir()

	for stopAt := 2; stopAt <= 8; stopAt += 3 {
		ctx, cancel := context.WithCancel(context.Background())

		_, err = newRunner(t, testConfig(resumedDir, 4), interruptAt(stopAt, cancel)).Run(ctx, seq(30))
		require.ErrorIs(t, err, ErrInterrupted)

		cancel()
	}

	_, err = newRunner(t, testConfig(resumedDir, 4), parity).Run(context.Background(), seq(30))
	require.NoError(t, err)

	for _, name := range []string{"even.json", "odd.json"} {
		assert.Equal(t, readInts(t, filepath.Join(plainDir, name)), readInts(t, filepath.Join(resumedDir, name)))
	}
}

func TestRunner_Run_ProcessorFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	failing := newRunner(t, testConfig(dir, 8), func(ctx context.Context, b Batch[int]) (Partitions[int], error) {
		if b.Number == 2 {
			return nil, errUpstream
		}

		return parity(ctx, b)
	})

	_, err := failing.Run(context.Background(), seq(23))

	require.ErrorIs(t, err, ErrProcessing)
	require.ErrorIs(t, err, errUpstream)
	assert.NotErrorIs(t, err, ErrInterrupted)

	var stopped *StoppedError

	require.ErrorAs(t, err, &stopped)
	assert.Equal(t, 1, stopped.LastCommitted)
	assert.Contains(t, stopped.Error(), "progress saved at 1/3")

	var seen []int

	summary, err := newRunner(t, testConfig(dir, 8), func(ctx context.Context, b Batch[int]) (Partitions[int], error) {
		seen = append(seen, b.Number)

		return parity(ctx, b)
	}).Run(context.Background(), seq(23))

	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, seen)
	assert.Equal(t, 2, summary.StartBatch)
	assert.Equal(t, seq(23), allOutputs(t, dir))
}

func TestRunner_Run_IncompleteBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	r := newRunner(t, testConfig(dir, 8), func(ctx context.Context, b Batch[int]) (Partitions[int], error) {
		parts, _ := parity(ctx, b)
		parts["even"] = parts["even"][1:]

		return parts, nil
	})

	_, err := r.Run(context.Background(), seq(23))

	require.ErrorIs(t, err, ErrProcessing)
	require.ErrorIs(t, err, ErrIncompleteBatch)

	progress, loadErr := r.Tracker().Load()
	require.NoError(t, loadErr)
	assert.Zero(t, progress.ProcessedBatches)

	records, loadErr := r.Store().LoadAll("even")
	require.NoError(t, loadErr)
	assert.Empty(t, records)
}

func TestRunner_Run_UnknownPartition(t *testing.T) {
	t.Parallel()

	r := newRunner(t, testConfig(t.TempDir(), 8), func(_ context.Context, b Batch[int]) (Partitions[int], error) {
		return Partitions[int]{"maybe": b.Records}, nil
	})

	_, err := r.Run(context.Background(), seq(5))

	require.ErrorIs(t, err, ErrProcessing)
}

func TestRunner_Run_Reset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newRunner(t, testConfig(dir, 8), interruptAt(3, cancel))

	_, err := first.Run(ctx, seq(23))
	require.ErrorIs(t, err, ErrInterrupted)

	old, err := first.Tracker().Load()
	require.NoError(t, err)

	var seen []int

	cfg := testConfig(dir, 8)
	cfg.Reset = true

	summary, err := newRunner(t, cfg, func(ctx context.Context, b Batch[int]) (Partitions[int], error) {
		seen = append(seen, b.Number)

		return parity(ctx, b)
	}).Run(context.Background(), seq(23))

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.False(t, summary.Resumed)
	assert.NotEqual(t, old.RunID, summary.RunID)
	assert.Equal(t, seq(23), allOutputs(t, dir))
}

func TestRunner_Run_BatchSizeMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := newRunner(t, testConfig(dir, 8), interruptAt(3, cancel)).Run(ctx, seq(23))
	require.ErrorIs(t, err, ErrInterrupted)

	var seen []int

	summary, err := newRunner(t, testConfig(dir, 5), func(ctx context.Context, b Batch[int]) (Partitions[int], error) {
		seen = append(seen, b.Number)

		return parity(ctx, b)
	}).Run(context.Background(), seq(23))

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, seen)
	assert.False(t, summary.Resumed)
	assert.Equal(t, seq(23), allOutputs(t, dir))
}

func TestRunner_Run_SameBatchCountDifferentSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 23 records make 3 batches with both 8 and 9 per batch.
	_, err := newRunner(t, testConfig(dir, 8), interruptAt(3, cancel)).Run(ctx, seq(23))
	require.ErrorIs(t, err, ErrInterrupted)

	summary, err := newRunner(t, testConfig(dir, 9), parity).Run(context.Background(), seq(23))

	require.NoError(t, err)
	assert.False(t, summary.Resumed)
	assert.Equal(t, 3, summary.ProcessedBatches)
	assert.Equal(t, seq(23), allOutputs(t, dir))
}

func TestRunner_Run_CorruptProgress(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newRunner(t, testConfig(dir, 8), interruptAt(3, cancel))

	_, err := first.Run(ctx, seq(23))
	require.ErrorIs(t, err, ErrInterrupted)

	require.NoError(t, os.WriteFile(first.Tracker().Path(), []byte(`{"stage": "fil`), 0o600))

	summary, err := newRunner(t, testConfig(dir, 8), parity).Run(context.Background(), seq(23))
	require.NoError(t, err)

	assert.False(t, summary.Resumed)
	assert.Equal(t, 3, summary.ProcessedBatches)
	assert.Equal(t, seq(23), allOutputs(t, dir))

	var quarantined []string

	for _, name := range dirNames(t, dir) {
		if strings.Contains(name, ".corrupt-") {
			quarantined = append(quarantined, name)
		}
	}

	assert.Len(t, quarantined, 1)
}

func TestRunner_Run_AppendCommitCrashWindow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newRunner(t, testConfig(dir, 8), interruptAt(3, cancel))

	_, err := first.Run(ctx, seq(23))
	require.ErrorIs(t, err, ErrInterrupted)

	// Batch 3 reached the partial files but its commit never happened.
	require.NoError(t, first.Store().Append("even", 3, []int{16, 18, 20, 22}))
	require.NoError(t, first.Store().Append("odd", 3, []int{17, 19, 21}))

	var seen []int

	summary, err := newRunner(t, testConfig(dir, 8), func(ctx context.Context, b Batch[int]) (Partitions[int], error) {
		seen = append(seen, b.Number)

		return parity(ctx, b)
	}).Run(context.Background(), seq(23))

	require.NoError(t, err)
	assert.True(t, summary.Resumed)
	assert.Equal(t, []int{3}, seen)
	assert.Equal(t, seq(23), allOutputs(t, dir))
}

func TestRunner_Run_MissingPartials(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newRunner(t, testConfig(dir, 8), interruptAt(3, cancel))

	_, err := first.Run(ctx, seq(23))
	require.ErrorIs(t, err, ErrInterrupted)

	path, err := first.Store().Path("odd")
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	summary, err := newRunner(t, testConfig(dir, 8), parity).Run(context.Background(), seq(23))

	require.NoError(t, err)
	assert.False(t, summary.Resumed)
	assert.Equal(t, seq(23), allOutputs(t, dir))
}

func TestRunner_Run_OrphanPartials(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	r := newRunner(t, testConfig(dir, 8), parity)

	require.NoError(t, r.Store().Append("even", 1, []int{100, 102}))

	_, err := r.Run(context.Background(), seq(10))
	require.NoError(t, err)

	assert.Equal(t, seq(10), allOutputs(t, dir))
}

func TestRunner_Run_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false

	r := newRunner(t, testConfig(dir, 8), func(ctx context.Context, b Batch[int]) (Partitions[int], error) {
		called = true

		return parity(ctx, b)
	})

	_, err := r.Run(ctx, seq(23))

	require.ErrorIs(t, err, ErrInterrupted)
	assert.False(t, called)

	var stopped *StoppedError

	require.ErrorAs(t, err, &stopped)
	assert.Equal(t, 1, stopped.Batch)
	assert.Zero(t, stopped.LastCommitted)

	progress, err := r.Tracker().Load()
	require.NoError(t, err)
	assert.Zero(t, progress.ProcessedBatches)
}

func TestRunner_Run_FinalizeWriteFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg := testConfig(dir, 8)
	cfg.Write = func(string, []int) error { return errUpstream }

	first := newRunner(t, cfg, parity)

	_, err := first.Run(context.Background(), seq(23))
	require.ErrorIs(t, err, errUpstream)
	assert.Equal(t, StateFinalizing, first.State())

	progress, err := first.Tracker().Load()
	require.NoError(t, err)
	assert.True(t, progress.Complete())

	called := false

	summary, err := newRunner(t, testConfig(dir, 8), func(ctx context.Context, b Batch[int]) (Partitions[int], error) {
		called = true

		return parity(ctx, b)
	}).Run(context.Background(), seq(23))

	require.NoError(t, err)
	assert.False(t, called)
	assert.True(t, summary.Resumed)
	assert.Zero(t, summary.ProcessedBatches)
	assert.Equal(t, seq(23), allOutputs(t, dir))
}

type countingPacer struct{ calls int }

func (p *countingPacer) Wait(ctx context.Context) error {
	p.calls++

	return ctx.Err()
}

func TestRunner_Run_Pacer(t *testing.T) {
	t.Parallel()

	pacer := &countingPacer{}

	cfg := testConfig(t.TempDir(), 8)
	cfg.Pacer = pacer

	_, err := newRunner(t, cfg, parity).Run(context.Background(), seq(23))
	require.NoError(t, err)

	assert.Equal(t, 3, pacer.calls)
}

func TestRunner_Run_Compressed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(dir, 8)
	cfg.Codec = persist.NewLZ4Codec(persist.NewJSONCodec())

	_, err := newRunner(t, cfg, interruptAt(2, cancel)).Run(ctx, seq(23))
	require.ErrorIs(t, err, ErrInterrupted)

	path, err := newRunner(t, cfg, parity).Store().Path("even")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.True(t, strings.HasSuffix(path, ".json.lz4"))

	_, err = newRunner(t, cfg, parity).Run(context.Background(), seq(23))
	require.NoError(t, err)
	assert.Equal(t, seq(23), allOutputs(t, dir))
}

func TestRunner_Run_StateDir(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	stateDir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(outDir, 8)
	cfg.StateDir = stateDir

	_, err := newRunner(t, cfg, interruptAt(2, cancel)).Run(ctx, seq(23))
	require.ErrorIs(t, err, ErrInterrupted)

	assert.Empty(t, dirNames(t, outDir))
	assert.NotEmpty(t, dirNames(t, stateDir))
}

func TestRunner_Run_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := newRunner(t, testConfig(dir, 0), parity).Run(context.Background(), seq(5))
	require.ErrorIs(t, err, ErrConfiguration)
	require.ErrorIs(t, err, batch.ErrInvalidBatchSize)

	_, err = newRunner(t, testConfig(dir, 8), parity).Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrConfiguration)
	require.ErrorIs(t, err, batch.ErrEmptyInput)

	assert.Empty(t, dirNames(t, dir))
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name   string
		mutate func(*Config[int])
	}{
		{name: "no stage", mutate: func(c *Config[int]) { c.Stage = "" }},
		{name: "no outputs", mutate: func(c *Config[int]) { c.Outputs = nil }},
		{name: "no writer", mutate: func(c *Config[int]) { c.Write = nil }},
		{name: "duplicate partition", mutate: func(c *Config[int]) { c.Outputs[1].Partition = "even" }},
		{name: "duplicate path", mutate: func(c *Config[int]) { c.Outputs[1].Path = c.Outputs[0].Path }},
		{name: "empty path", mutate: func(c *Config[int]) { c.Outputs[0].Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(dir, 8)
			tt.mutate(&cfg)

			_, err := New[int](cfg, ProcessorFunc[int](parity))
			require.ErrorIs(t, err, ErrConfiguration)
		})
	}

	_, err := New[int](testConfig(dir, 8), nil)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestConfig_Identity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := testConfig(dir, 8)

	want := checkpoint.NewIdentity("filter", filepath.Join(dir, "even.json"), filepath.Join(dir, "odd.json"))

	assert.Equal(t, want.Key(), cfg.Identity().Key())
	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, []string{"even", "odd"}, cfg.PartitionNames())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "init", StateInit.String())
	assert.Equal(t, "resuming", StateResuming.String())
	assert.Equal(t, "interrupted", StateInterrupted.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.True(t, StateDone.Terminal())
	assert.False(t, StateProcessing.Terminal())
}
