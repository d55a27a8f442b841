package persist

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Persister handles I/O for a specific state type stored at one path.
type Persister[T any] struct {
	path  string
	codec Codec
}

// NewPersister creates a persister for the file named basename plus the
// codec's extension inside dir.
func NewPersister[T any](dir, basename string, codec Codec) *Persister[T] {
	return &Persister[T]{
		path:  filepath.Join(dir, basename+codec.Extension()),
		codec: codec,
	}
}

// Path returns the canonical file path of the persisted state.
func (p *Persister[T]) Path() string {
	return p.path
}

// Exists reports whether the state file is present.
func (p *Persister[T]) Exists() bool {
	_, err := os.Stat(p.path)

	return err == nil
}

// Save atomically replaces the persisted state.
func (p *Persister[T]) Save(state *T) error {
	err := WriteFileAtomic(p.path, func(w io.Writer) error {
		return p.codec.Encode(w, state)
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(p.path), err)
	}

	return nil
}

// Load reads the persisted state. A missing file yields an error matching
// [os.ErrNotExist]; undecodable content yields an error matching [ErrDecode].
func (p *Persister[T]) Load() (*T, error) {
	file, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	var state T

	decodeErr := p.codec.Decode(file, &state)
	if decodeErr != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, filepath.Base(p.path), decodeErr)
	}

	return &state, nil
}

// Remove deletes the state file. A missing file is not an error.
func (p *Persister[T]) Remove() error {
	return RemoveFile(p.path)
}

// IsNotExist reports whether err came from a missing state file.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
