package driver

import (
	"errors"
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/papersift/pkg/checkpoint"
	"github.com/Sumatoshi-tech/papersift/pkg/partial"
)

// PartialFile describes one partition file on disk.
type PartialFile struct {
	Partition string `json:"partition"`
	Path      string `json:"path"`
	Present   bool   `json:"present"`
	Size      int64  `json:"size"`
}

// Status is a read-only view of the transient state of a run identity.
type Status struct {
	Stage        string               `json:"stage"`
	Key          string               `json:"key"`
	ProgressPath string               `json:"progress_path"`
	Progress     *checkpoint.Progress `json:"progress,omitempty"`
	Corrupt      string               `json:"corrupt,omitempty"`
	Partials     []PartialFile        `json:"partials"`
}

// Resumable reports whether the next run of the identity would resume.
func (s *Status) Resumable() bool {
	return s.Progress != nil && !s.Progress.Complete()
}

// Inspect loads the progress record and partial file sizes of the run that
// cfg describes. It never creates, modifies, or removes files; Write and the
// processor are not needed.
func Inspect[T any](cfg Config[T]) (*Status, error) {
	if cfg.Stage == "" || len(cfg.Outputs) == 0 {
		return nil, fmt.Errorf("%w: stage and outputs are required", ErrConfiguration)
	}

	id := cfg.Identity()
	dir := cfg.Dir()
	tracker := checkpoint.NewTracker(dir, id)
	store := partial.NewStore[T](dir, id, cfg.PartitionNames(), cfg.codec())

	status := &Status{
		Stage:        cfg.Stage,
		Key:          id.Key(),
		ProgressPath: tracker.Path(),
		Partials:     make([]PartialFile, 0, len(cfg.Outputs)),
	}

	progress, err := tracker.Load()

	var corrupt *checkpoint.CorruptError

	switch {
	case err == nil:
		status.Progress = progress
	case errors.Is(err, checkpoint.ErrNotFound):
	case errors.As(err, &corrupt):
		status.Corrupt = corrupt.Err.Error()
	default:
		return nil, err
	}

	for _, name := range cfg.PartitionNames() {
		path, pathErr := store.Path(name)
		if pathErr != nil {
			return nil, pathErr
		}

		file := PartialFile{Partition: name, Path: path}

		info, statErr := os.Stat(path)
		if statErr == nil {
			file.Present = true
			file.Size = info.Size()
		}

		status.Partials = append(status.Partials, file)
	}

	return status, nil
}
