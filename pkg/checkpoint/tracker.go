package checkpoint

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Sumatoshi-tech/papersift/pkg/persist"
)

// quarantineSuffix is appended, with a unix timestamp, to corrupt records.
const quarantineSuffix = ".corrupt-"

// Tracker owns the progress record of one run identity. It assumes a single
// writer per identity; nothing is locked.
type Tracker struct {
	id        Identity
	persister *persist.Persister[Progress]
	now       func() time.Time
}

// NewTracker creates a tracker storing the record for id inside dir.
func NewTracker(dir string, id Identity) *Tracker {
	return &Tracker{
		id:        id,
		persister: persist.NewPersister[Progress](dir, id.ProgressBase(), persist.NewJSONCodec()),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Identity returns the run identity.
func (t *Tracker) Identity() Identity {
	return t.id
}

// Path returns the progress file path.
func (t *Tracker) Path() string {
	return t.persister.Path()
}

// Exists reports whether a progress file is present, readable or not.
func (t *Tracker) Exists() bool {
	return t.persister.Exists()
}

// Load reads the persisted record. It returns ErrNotFound when the file is
// absent and a *CorruptError when it is present but unusable. Load never
// modifies the file.
func (t *Tracker) Load() (*Progress, error) {
	progress, err := t.persister.Load()
	if err != nil {
		if persist.IsNotExist(err) {
			return nil, ErrNotFound
		}

		return nil, &CorruptError{Path: t.Path(), Err: err}
	}

	validErr := progress.validate()
	if validErr != nil {
		return nil, &CorruptError{Path: t.Path(), Err: validErr}
	}

	if progress.Counts == nil {
		progress.Counts = make(map[string]int)
	}

	return progress, nil
}

// Start writes a fresh record with zero processed batches, replacing any
// existing record for the identity.
func (t *Tracker) Start(totalBatches, batchSize, inputCount int, partitions []string) (*Progress, error) {
	now := t.now()

	counts := make(map[string]int, len(partitions))
	for _, name := range partitions {
		counts[name] = 0
	}

	progress := &Progress{
		Version:      ProgressVersion,
		RunID:        uuid.NewString(),
		Stage:        t.id.Stage,
		Key:          t.id.Key(),
		TotalBatches: totalBatches,
		BatchSize:    batchSize,
		InputCount:   inputCount,
		Counts:       counts,
		CreatedAt:    now,
		Timestamp:    now,
	}

	err := t.persister.Save(progress)
	if err != nil {
		return nil, fmt.Errorf("start progress: %w", err)
	}

	return progress, nil
}

// Commit records batch as the highest completed batch and adds deltas to
// the running counts. The batch must be exactly one past the last committed
// batch. progress is updated only after the new record is durable.
func (t *Tracker) Commit(progress *Progress, batch int, deltas map[string]int) error {
	if batch != progress.ProcessedBatches+1 || batch > progress.TotalBatches {
		return fmt.Errorf("%w: batch %d after %d of %d",
			ErrOutOfOrder, batch, progress.ProcessedBatches, progress.TotalBatches)
	}

	next := *progress
	next.Counts = maps.Clone(progress.Counts)

	if next.Counts == nil {
		next.Counts = make(map[string]int, len(deltas))
	}

	for name, n := range deltas {
		next.Counts[name] += n
	}

	next.ProcessedBatches = batch
	next.Timestamp = t.now()

	err := t.persister.Save(&next)
	if err != nil {
		return fmt.Errorf("commit batch %d: %w", batch, err)
	}

	*progress = next

	return nil
}

// Finalize deletes the progress record. A missing record is not an error.
func (t *Tracker) Finalize() error {
	err := t.persister.Remove()
	if err != nil {
		return fmt.Errorf("finalize progress: %w", err)
	}

	return nil
}

// Quarantine moves an unusable progress file aside so it is kept for
// inspection but no longer found by Load. It returns the new path, or ""
// when there was nothing to move.
func (t *Tracker) Quarantine() (string, error) {
	target := t.Path() + quarantineSuffix + strconv.FormatInt(t.now().Unix(), 10)

	err := os.Rename(t.Path(), target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}

		return "", fmt.Errorf("quarantine progress: %w", err)
	}

	return target, nil
}
