package driver

import (
	"errors"
	"fmt"
)

// Sentinel errors for run outcomes.
var (
	// ErrConfiguration is matched by errors for invalid run parameters; no state is created.
	ErrConfiguration = errors.New("configuration error")
	// ErrProcessing is matched by errors for a batch that ultimately failed.
	ErrProcessing = errors.New("batch processing failed")
	// ErrInterrupted is matched by errors for a cancelled run.
	ErrInterrupted = errors.New("run interrupted")
	// ErrIncompleteBatch is returned when a processor does not account for every record.
	ErrIncompleteBatch = errors.New("processor returned wrong number of results")
	// ErrInconsistentState is returned when partial results disagree with the progress record.
	ErrInconsistentState = errors.New("partial results do not match progress record")
)

// StoppedError reports a run that stopped before finishing. Committed
// progress is kept and re-running the same command resumes after
// LastCommitted.
type StoppedError struct {
	Stage         string
	Batch         int // Batch in flight when the run stopped.
	LastCommitted int
	Total         int
	Interrupted   bool
	Err           error
}

// Error implements error.
func (e *StoppedError) Error() string {
	kind := ErrProcessing
	if e.Interrupted {
		kind = ErrInterrupted
	}

	return fmt.Sprintf("%s: %v at batch %d/%d (progress saved at %d/%d): %v",
		e.Stage, kind, e.Batch, e.Total, e.LastCommitted, e.Total, e.Err)
}

// Unwrap exposes the outcome sentinel and the cause.
func (e *StoppedError) Unwrap() []error {
	if e.Interrupted {
		return []error{ErrInterrupted, e.Err}
	}

	return []error{ErrProcessing, e.Err}
}

func configError(err error) error {
	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}
