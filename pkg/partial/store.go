// Package partial accumulates per-partition results of a resumable run in
// durable, batch-tagged files.
package partial

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/papersift/pkg/checkpoint"
	"github.com/Sumatoshi-tech/papersift/pkg/persist"
)

// Sentinel errors for partial result storage.
var (
	// ErrUnknownPartition is returned for a partition the store was not created with.
	ErrUnknownPartition = errors.New("unknown partition")
	// ErrOutOfOrder is returned when appending a batch older than the last stored one.
	ErrOutOfOrder = errors.New("batch appended out of order")
	// ErrCorrupt is matched by errors for partial files that cannot be decoded.
	ErrCorrupt = errors.New("corrupt partial results")
)

// Chunk is the records one batch contributed to a partition.
type Chunk[T any] struct {
	Batch   int `json:"batch"`
	Records []T `json:"records"`
}

// Store holds the partial results of one run, one file per partition.
// Appends rewrite the whole partition file through an atomic rename.
type Store[T any] struct {
	partitions []string
	files      map[string]*persist.Persister[[]Chunk[T]]
}

// NewStore creates a store for the partitions of run id inside dir.
func NewStore[T any](dir string, id checkpoint.Identity, partitions []string, codec persist.Codec) *Store[T] {
	files := make(map[string]*persist.Persister[[]Chunk[T]], len(partitions))

	for _, name := range partitions {
		files[name] = persist.NewPersister[[]Chunk[T]](dir, id.PartialBase(name), codec)
	}

	return &Store[T]{partitions: slices.Clone(partitions), files: files}
}

// Partitions returns the partition names in creation order.
func (s *Store[T]) Partitions() []string {
	return slices.Clone(s.partitions)
}

// Path returns the file backing partition.
func (s *Store[T]) Path(partition string) (string, error) {
	file, err := s.file(partition)
	if err != nil {
		return "", err
	}

	return file.Path(), nil
}

// Exists reports whether any partition file is present.
func (s *Store[T]) Exists() bool {
	for _, name := range s.partitions {
		if s.files[name].Exists() {
			return true
		}
	}

	return false
}

// Append adds the records of batch to partition, creating the file if
// needed. Re-appending the last stored batch replaces its records, so a
// batch retried after a crash between append and commit is stored once.
// Empty record sets are stored too, keeping the batch sequence complete.
func (s *Store[T]) Append(partition string, batch int, records []T) error {
	chunks, err := s.Chunks(partition)
	if err != nil {
		return err
	}

	chunk := Chunk[T]{Batch: batch, Records: records}
	if chunk.Records == nil {
		chunk.Records = []T{}
	}

	switch last := len(chunks) - 1; {
	case last < 0 || chunks[last].Batch < batch:
		chunks = append(chunks, chunk)
	case chunks[last].Batch == batch:
		chunks[last] = chunk
	default:
		return fmt.Errorf("%w: %s batch %d after %d", ErrOutOfOrder, partition, batch, chunks[last].Batch)
	}

	saveErr := s.files[partition].Save(&chunks)
	if saveErr != nil {
		return fmt.Errorf("append %s batch %d: %w", partition, batch, saveErr)
	}

	return nil
}

// Chunks returns the stored chunks of partition in append order. A missing
// file yields no chunks.
func (s *Store[T]) Chunks(partition string) ([]Chunk[T], error) {
	file, err := s.file(partition)
	if err != nil {
		return nil, err
	}

	chunks, err := file.Load()
	if err != nil {
		if persist.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, partition, err)
	}

	for i := 1; i < len(*chunks); i++ {
		if (*chunks)[i].Batch <= (*chunks)[i-1].Batch {
			return nil, fmt.Errorf("%w: %s: batch %d stored after batch %d",
				ErrCorrupt, partition, (*chunks)[i].Batch, (*chunks)[i-1].Batch)
		}
	}

	return *chunks, nil
}

// LoadAll returns every record appended to partition, in append order.
func (s *Store[T]) LoadAll(partition string) ([]T, error) {
	return s.LoadThrough(partition, -1)
}

// LoadThrough returns the records of batches up to and including last.
// A negative last means no limit.
func (s *Store[T]) LoadThrough(partition string, last int) ([]T, error) {
	chunks, err := s.Chunks(partition)
	if err != nil {
		return nil, err
	}

	records := []T{}

	for _, chunk := range chunks {
		if last >= 0 && chunk.Batch > last {
			break
		}

		records = append(records, chunk.Records...)
	}

	return records, nil
}

// Finalize deletes every partition file. Missing files are ignored.
func (s *Store[T]) Finalize() error {
	var errs []error

	for _, name := range s.partitions {
		err := s.files[name].Remove()
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Store[T]) file(partition string) (*persist.Persister[[]Chunk[T]], error) {
	file, ok := s.files[partition]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPartition, partition)
	}

	return file, nil
}
