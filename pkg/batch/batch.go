// Package batch partitions an ordered record collection into fixed-size,
// stably numbered batches.
package batch

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

// Sentinel errors for batch planning.
var (
	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("batch size must be positive")
	// ErrEmptyInput is returned when there are no records to batch.
	ErrEmptyInput = errors.New("input collection is empty")
	// ErrOutOfRange is returned when a batch number outside 1..Count is requested.
	ErrOutOfRange = errors.New("batch number out of range")
)

// Bounds represents one batch of records.
type Bounds struct {
	Number int // 1-based batch number.
	Start  int // Inclusive index.
	End    int // Exclusive index.
}

// Len returns the number of records in the batch.
func (b Bounds) Len() int {
	return b.End - b.Start
}

// Planner calculates batch boundaries for a record count.
type Planner struct {
	Total     int
	BatchSize int
}

// Validate checks that the planner can produce at least one batch.
func (p Planner) Validate() error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBatchSize, p.BatchSize)
	}

	if p.Total <= 0 {
		return ErrEmptyInput
	}

	return nil
}

// Count returns the number of batches, or 0 when the plan is invalid.
func (p Planner) Count() int {
	if p.Validate() != nil {
		return 0
	}

	return (p.Total + p.BatchSize - 1) / p.BatchSize
}

// Plan returns all batch boundaries in order.
func (p Planner) Plan() ([]Bounds, error) {
	err := p.Validate()
	if err != nil {
		return nil, err
	}

	chunks := make([]Bounds, 0, p.Count())

	for start := 0; start < p.Total; start += p.BatchSize {
		end := min(start+p.BatchSize, p.Total)
		chunks = append(chunks, Bounds{Number: len(chunks) + 1, Start: start, End: end})
	}

	return chunks, nil
}

// Bounds returns the boundaries of batch n.
func (p Planner) Bounds(n int) (Bounds, error) {
	err := p.Validate()
	if err != nil {
		return Bounds{}, err
	}

	count := p.Count()
	if n < 1 || n > count {
		return Bounds{}, fmt.Errorf("%w: %d not in 1..%d", ErrOutOfRange, n, count)
	}

	start := (n - 1) * p.BatchSize

	return Bounds{Number: n, Start: start, End: min(start+p.BatchSize, p.Total)}, nil
}

// Source serves the batches of an in-memory record collection. Requesting
// batch n twice yields the same records.
type Source[T any] struct {
	items   []T
	planner Planner
}

// NewSource validates the batch size and input and returns a Source.
func NewSource[T any](items []T, batchSize int) (*Source[T], error) {
	planner := Planner{Total: len(items), BatchSize: batchSize}

	err := planner.Validate()
	if err != nil {
		return nil, err
	}

	return &Source[T]{items: items, planner: planner}, nil
}

// Count returns the number of batches.
func (s *Source[T]) Count() int {
	return s.planner.Count()
}

// Size returns the configured batch size.
func (s *Source[T]) Size() int {
	return s.planner.BatchSize
}

// Len returns the number of input records.
func (s *Source[T]) Len() int {
	return len(s.items)
}

// Batch returns the records of batch n. The returned slice is clipped so
// appending to it never touches the next batch.
func (s *Source[T]) Batch(n int) ([]T, error) {
	b, err := s.planner.Bounds(n)
	if err != nil {
		return nil, err
	}

	return slices.Clip(s.items[b.Start:b.End]), nil
}

// From yields batches start..Count in increasing order. A start below 1 is
// treated as 1.
func (s *Source[T]) From(start int) iter.Seq2[Bounds, []T] {
	return func(yield func(Bounds, []T) bool) {
		for n := max(start, 1); n <= s.Count(); n++ {
			b, err := s.planner.Bounds(n)
			if err != nil {
				return
			}

			if !yield(b, slices.Clip(s.items[b.Start:b.End])) {
				return
			}
		}
	}
}
