// Package resolve maps resumable stage names to their outputs.
package resolve

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/papersift/pkg/driver"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/categorize"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/filter"
)

// ErrUnknownStage indicates a stage name other than filter or categorize.
var ErrUnknownStage = errors.New("stage must be filter or categorize")

// Names lists the resumable stages in pipeline order.
func Names() []string {
	return []string{filter.Stage, categorize.Stage}
}

// Outputs returns the output set of the named stage. Empty paths fall back
// to the stage defaults; rejected only applies to filter.
func Outputs(name, out, rejected string) ([]driver.Output, error) {
	switch name {
	case filter.Stage:
		return filter.Outputs(orDefault(out, filter.DefaultOut), orDefault(rejected, filter.DefaultRejected)), nil
	case categorize.Stage:
		return categorize.Outputs(orDefault(out, categorize.DefaultOut)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
