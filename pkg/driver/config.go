package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/papersift/pkg/checkpoint"
	"github.com/Sumatoshi-tech/papersift/pkg/observability"
	"github.com/Sumatoshi-tech/papersift/pkg/persist"
)

// Output binds a partition to its final output file.
type Output struct {
	Partition string
	Path      string
}

// Batch is one unit of work handed to a Processor.
type Batch[T any] struct {
	Number  int
	Total   int
	Records []T
}

// Partitions maps partition names to the results of one batch.
type Partitions[T any] map[string][]T

// Len returns the number of results across all partitions.
func (p Partitions[T]) Len() int {
	n := 0
	for _, records := range p {
		n += len(records)
	}

	return n
}

// Processor turns a batch of records into partitioned results. It owns its
// retry policy; an error means the batch ultimately failed.
type Processor[T any] interface {
	Process(ctx context.Context, b Batch[T]) (Partitions[T], error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc[T any] func(ctx context.Context, b Batch[T]) (Partitions[T], error)

// Process implements Processor.
func (f ProcessorFunc[T]) Process(ctx context.Context, b Batch[T]) (Partitions[T], error) {
	return f(ctx, b)
}

// WriteFunc writes a final output file. It must replace path atomically.
type WriteFunc[T any] func(path string, records []T) error

// Pacer delays the next batch; *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Event reports a state change or a committed batch.
type Event struct {
	State   State
	Batch   int
	Total   int
	Records int
	Counts  map[string]int
}

// Observer receives events synchronously from the run loop.
type Observer func(Event)

// Config describes one resumable run.
type Config[T any] struct {
	Stage     string
	Outputs   []Output
	BatchSize int

	// StateDir holds progress and partial files. Empty means the directory
	// of the first output.
	StateDir string

	// Codec encodes partial result files. Nil means pretty JSON.
	Codec persist.Codec

	// Reset discards any previous state for the run identity.
	Reset bool

	Write WriteFunc[T]

	// Pacer, when set, is waited on before every batch.
	Pacer Pacer

	// Logger is the structured logger. When nil, a discard logger is used.
	Logger *slog.Logger

	// Metrics records run metrics. Nil-safe.
	Metrics *observability.RunMetrics

	Observer Observer
}

// Identity returns the run identity derived from the stage and output paths.
func (c Config[T]) Identity() checkpoint.Identity {
	paths := make([]string, 0, len(c.Outputs))
	for _, out := range c.Outputs {
		paths = append(paths, out.Path)
	}

	return checkpoint.NewIdentity(c.Stage, paths...)
}

// Dir returns the directory holding transient run state.
func (c Config[T]) Dir() string {
	if c.StateDir != "" {
		return c.StateDir
	}

	return c.Identity().Dir()
}

// PartitionNames returns the partitions in output order.
func (c Config[T]) PartitionNames() []string {
	names := make([]string, 0, len(c.Outputs))
	for _, out := range c.Outputs {
		names = append(names, out.Partition)
	}

	return names
}

func (c Config[T]) codec() persist.Codec {
	if c.Codec != nil {
		return c.Codec
	}

	return persist.NewJSONCodec()
}

func (c Config[T]) validate() error {
	if c.Stage == "" {
		return fmt.Errorf("%w: missing stage", ErrConfiguration)
	}

	if len(c.Outputs) == 0 {
		return fmt.Errorf("%w: no outputs", ErrConfiguration)
	}

	if c.Write == nil {
		return fmt.Errorf("%w: no output writer", ErrConfiguration)
	}

	seen := make(map[string]struct{}, len(c.Outputs))
	paths := make(map[string]struct{}, len(c.Outputs))

	for _, out := range c.Outputs {
		if out.Partition == "" || out.Path == "" {
			return fmt.Errorf("%w: output needs partition and path", ErrConfiguration)
		}

		if _, dup := seen[out.Partition]; dup {
			return fmt.Errorf("%w: duplicate partition %q", ErrConfiguration, out.Partition)
		}

		if _, dup := paths[out.Path]; dup {
			return fmt.Errorf("%w: duplicate output path %q", ErrConfiguration, out.Path)
		}

		seen[out.Partition] = struct{}{}
		paths[out.Path] = struct{}{}
	}

	return nil
}
