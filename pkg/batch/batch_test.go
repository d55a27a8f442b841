package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}

func TestPlanner_Plan_ShortLastBatch(t *testing.T) {
	t.Parallel()

	chunks, err := Planner{Total: 23, BatchSize: 8}.Plan()

	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, Bounds{Number: 1, Start: 0, End: 8}, chunks[0])
	assert.Equal(t, Bounds{Number: 2, Start: 8, End: 16}, chunks[1])
	assert.Equal(t, Bounds{Number: 3, Start: 16, End: 23}, chunks[2])
	assert.Equal(t, 7, chunks[2].Len())
}

func TestPlanner_Plan_Contiguous(t *testing.T) {
	t.Parallel()

	chunks, err := Planner{Total: 1000, BatchSize: 7}.Plan()

	require.NoError(t, err)
	assert.Equal(t, 0, chunks[0].Start)

	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].End, chunks[i].Start)
		assert.Equal(t, i+1, chunks[i].Number)
	}

	assert.Equal(t, 1000, chunks[len(chunks)-1].End)
}

func TestPlanner_Count(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		total int
		size  int
		want  int
	}{
		{name: "exact", total: 16, size: 8, want: 2},
		{name: "remainder", total: 23, size: 8, want: 3},
		{name: "single", total: 3, size: 8, want: 1},
		{name: "one per batch", total: 5, size: 1, want: 5},
		{name: "invalid size", total: 5, size: 0, want: 0},
		{name: "empty", total: 0, size: 8, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Planner{Total: tt.total, BatchSize: tt.size}.Count())
		})
	}
}

func TestPlanner_Validate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Planner{Total: 10, BatchSize: 0}.Validate(), ErrInvalidBatchSize)
	require.ErrorIs(t, Planner{Total: 10, BatchSize: -3}.Validate(), ErrInvalidBatchSize)
	require.ErrorIs(t, Planner{Total: 0, BatchSize: 8}.Validate(), ErrEmptyInput)
	require.NoError(t, Planner{Total: 1, BatchSize: 8}.Validate())
}

func TestNewSource_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewSource(seq(10), 0)
	require.ErrorIs(t, err, ErrInvalidBatchSize)

	_, err = NewSource([]int{}, 8)
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestSource_Batch_Stable(t *testing.T) {
	t.Parallel()

	src, err := NewSource(seq(23), 8)
	require.NoError(t, err)

	assert.Equal(t, 3, src.Count())
	assert.Equal(t, 8, src.Size())
	assert.Equal(t, 23, src.Len())

	first, err := src.Batch(3)
	require.NoError(t, err)

	again, err := src.Batch(3)
	require.NoError(t, err)

	assert.Equal(t, []int{16, 17, 18, 19, 20, 21, 22}, first)
	assert.Equal(t, first, again)
}

func TestSource_Batch_OutOfRange(t *testing.T) {
	t.Parallel()

	src, err := NewSource(seq(23), 8)
	require.NoError(t, err)

	_, err = src.Batch(0)
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = src.Batch(4)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestSource_Batch_Clipped(t *testing.T) {
	t.Parallel()

	items := seq(16)

	src, err := NewSource(items, 8)
	require.NoError(t, err)

	b1, err := src.Batch(1)
	require.NoError(t, err)

	_ = append(b1, -1)

	assert.Equal(t, 8, items[8])
}

func TestSource_From_Resumes(t *testing.T) {
	t.Parallel()

	src, err := NewSource(seq(23), 8)
	require.NoError(t, err)

	var numbers []int

	var sizes []int

	for b, records := range src.From(3) {
		numbers = append(numbers, b.Number)
		sizes = append(sizes, len(records))
	}

	assert.Equal(t, []int{3}, numbers)
	assert.Equal(t, []int{7}, sizes)
}

func TestSource_From_AllAndStop(t *testing.T) {
	t.Parallel()

	src, err := NewSource(seq(23), 8)
	require.NoError(t, err)

	var numbers []int

	for b := range src.From(0) {
		numbers = append(numbers, b.Number)
		if b.Number == 2 {
			break
		}
	}

	assert.Equal(t, []int{1, 2}, numbers)

	count := 0
	for range src.From(4) {
		count++
	}

	assert.Zero(t, count)
}
