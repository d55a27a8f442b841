package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// hashBytes is the number of sha256 bytes kept in an identity key.
const hashBytes = 4

// File name prefixes for transient run state.
const (
	progressPrefix = ".progress-"
	partialPrefix  = ".partial-"
)

// Identity names one logical run: a stage writing a fixed set of outputs.
// Two invocations with the same stage and output paths share state files.
type Identity struct {
	Stage   string
	Outputs []string
}

// NewIdentity creates the identity for stage writing outputs. The first
// output is the primary one.
func NewIdentity(stage string, outputs ...string) Identity {
	return Identity{Stage: stage, Outputs: outputs}
}

// Hash returns a short hex digest of the stage and output names.
func (id Identity) Hash() string {
	h := sha256.New()
	h.Write([]byte(id.Stage))

	for _, out := range id.Outputs {
		h.Write([]byte{0})
		h.Write([]byte(filepath.Clean(out)))
	}

	return hex.EncodeToString(h.Sum(nil)[:hashBytes])
}

// Key returns the file-name-safe key, e.g. "filter-stage-2-output-1a2b3c4d".
func (id Identity) Key() string {
	parts := []string{id.Stage}

	if primary := id.primary(); primary != "" {
		base := filepath.Base(primary)
		parts = append(parts, strings.TrimSuffix(base, filepath.Ext(base)))
	}

	parts = append(parts, id.Hash())

	return strings.Join(parts, "-")
}

// Dir returns the default state directory: the primary output's directory.
func (id Identity) Dir() string {
	primary := id.primary()
	if primary == "" {
		return "."
	}

	return filepath.Dir(primary)
}

// ProgressBase returns the progress file name without extension.
func (id Identity) ProgressBase() string {
	return progressPrefix + id.Key()
}

// PartialBase returns the partial file name for partition without extension.
func (id Identity) PartialBase(partition string) string {
	return partialPrefix + partition + "-" + id.Key()
}

func (id Identity) primary() string {
	if len(id.Outputs) == 0 {
		return ""
	}

	return id.Outputs[0]
}
