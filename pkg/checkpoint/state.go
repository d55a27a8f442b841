// Package checkpoint tracks how far a resumable batch run has progressed.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// ProgressVersion is the current progress record format version.
const ProgressVersion = 1

// countSuffix marks flattened per-partition counts in the JSON form.
const countSuffix = "_count"

// Progress is the durable record of one run.
type Progress struct {
	Version          int
	RunID            string
	Stage            string
	Key              string
	TotalBatches     int
	ProcessedBatches int
	BatchSize        int
	InputCount       int
	// Counts holds the running record count per partition.
	Counts    map[string]int
	CreatedAt time.Time
	Timestamp time.Time
}

// Remaining returns the number of batches still to process.
func (p *Progress) Remaining() int {
	return max(p.TotalBatches-p.ProcessedBatches, 0)
}

// Complete reports whether every batch has been committed.
func (p *Progress) Complete() bool {
	return p.ProcessedBatches >= p.TotalBatches
}

// ResumePoint returns the next batch number to process.
func (p *Progress) ResumePoint() int {
	return p.ProcessedBatches + 1
}

// Partitions returns the partition names in sorted order.
func (p *Progress) Partitions() []string {
	return slices.Sorted(maps.Keys(p.Counts))
}

// TotalRecords returns the sum of all partition counts.
func (p *Progress) TotalRecords() int {
	total := 0
	for _, n := range p.Counts {
		total += n
	}

	return total
}

// CheckCompatible verifies that the record describes the same batching as
// the current invocation. Zero recorded batch size or input count are
// treated as unknown and skipped.
func (p *Progress) CheckCompatible(totalBatches, batchSize, inputCount int) error {
	if p.TotalBatches != totalBatches {
		return &MismatchError{Field: "total_batches", Recorded: p.TotalBatches, Current: totalBatches}
	}

	if p.BatchSize != 0 && p.BatchSize != batchSize {
		return &MismatchError{Field: "batch_size", Recorded: p.BatchSize, Current: batchSize}
	}

	if p.InputCount != 0 && p.InputCount != inputCount {
		return &MismatchError{Field: "input_count", Recorded: p.InputCount, Current: inputCount}
	}

	return nil
}

func (p *Progress) validate() error {
	switch {
	case p.Stage == "":
		return fmt.Errorf("%w: missing stage", ErrInvalidRecord)
	case p.TotalBatches < 0:
		return fmt.Errorf("%w: negative total_batches %d", ErrInvalidRecord, p.TotalBatches)
	case p.ProcessedBatches < 0 || p.ProcessedBatches > p.TotalBatches:
		return fmt.Errorf("%w: processed_batches %d outside 0..%d",
			ErrInvalidRecord, p.ProcessedBatches, p.TotalBatches)
	case p.Version > ProgressVersion:
		return fmt.Errorf("%w: version %d is newer than %d", ErrInvalidRecord, p.Version, ProgressVersion)
	}

	for name, n := range p.Counts {
		if n < 0 {
			return fmt.Errorf("%w: negative %s%s", ErrInvalidRecord, name, countSuffix)
		}
	}

	return nil
}

// progressJSON is the fixed part of the on-disk record.
type progressJSON struct {
	Version          int       `json:"version"`
	RunID            string    `json:"run_id"`
	Stage            string    `json:"stage"`
	Key              string    `json:"key"`
	TotalBatches     int       `json:"total_batches"`
	ProcessedBatches int       `json:"processed_batches"`
	BatchSize        int       `json:"batch_size"`
	InputCount       int       `json:"input_count"`
	CreatedAt        time.Time `json:"created_at"`
	Timestamp        time.Time `json:"timestamp"`
}

var fixedFields = map[string]struct{}{
	"version": {}, "run_id": {}, "stage": {}, "key": {}, "total_batches": {},
	"processed_batches": {}, "batch_size": {}, "input_count": {},
	"created_at": {}, "timestamp": {},
}

// MarshalJSON writes counts as flat "<partition>_count" fields next to the
// fixed fields, e.g. "included_count".
func (p Progress) MarshalJSON() ([]byte, error) {
	fixed, err := json.Marshal(progressJSON{
		Version:          p.Version,
		RunID:            p.RunID,
		Stage:            p.Stage,
		Key:              p.Key,
		TotalBatches:     p.TotalBatches,
		ProcessedBatches: p.ProcessedBatches,
		BatchSize:        p.BatchSize,
		InputCount:       p.InputCount,
		CreatedAt:        p.CreatedAt,
		Timestamp:        p.Timestamp,
	})
	if err != nil {
		return nil, err
	}

	var fields map[string]any

	unmarshalErr := json.Unmarshal(fixed, &fields)
	if unmarshalErr != nil {
		return nil, unmarshalErr
	}

	for name, n := range p.Counts {
		fields[name+countSuffix] = n
	}

	return json.Marshal(fields)
}

// UnmarshalJSON reads the flat form written by MarshalJSON.
func (p *Progress) UnmarshalJSON(data []byte) error {
	var fixed progressJSON

	err := json.Unmarshal(data, &fixed)
	if err != nil {
		return err
	}

	var raw map[string]json.RawMessage

	rawErr := json.Unmarshal(data, &raw)
	if rawErr != nil {
		return rawErr
	}

	counts := make(map[string]int)

	for field, value := range raw {
		if _, ok := fixedFields[field]; ok {
			continue
		}

		name, ok := strings.CutSuffix(field, countSuffix)
		if !ok || name == "" {
			continue
		}

		var n int

		countErr := json.Unmarshal(value, &n)
		if countErr != nil {
			return fmt.Errorf("%s: %w", field, countErr)
		}

		counts[name] = n
	}

	*p = Progress{
		Version:          fixed.Version,
		RunID:            fixed.RunID,
		Stage:            fixed.Stage,
		Key:              fixed.Key,
		TotalBatches:     fixed.TotalBatches,
		ProcessedBatches: fixed.ProcessedBatches,
		BatchSize:        fixed.BatchSize,
		InputCount:       fixed.InputCount,
		Counts:           counts,
		CreatedAt:        fixed.CreatedAt,
		Timestamp:        fixed.Timestamp,
	}

	return nil
}
