package paper

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/papersift/pkg/persist"
)

// maxSchemaErrors bounds how many schema violations are reported.
const maxSchemaErrors = 5

// ErrInvalidInput is matched by errors for unreadable or malformed paper lists.
var ErrInvalidInput = errors.New("invalid paper list")

//go:embed schema/papers.json
var listSchema []byte

var listSchemaLoader = gojsonschema.NewBytesLoader(listSchema)

// LoadList reads a JSON array of paper records from path.
func LoadList(path string) ([]Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	papers, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return papers, nil
}

// Decode reads and validates a JSON array of paper records. Numbers are
// kept as json.Number so they are written back unchanged.
func Decode(r io.Reader) ([]Paper, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any

	err := dec.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	validErr := Validate(doc)
	if validErr != nil {
		return nil, validErr
	}

	items, _ := doc.([]any)
	papers := make([]Paper, 0, len(items))

	for _, item := range items {
		obj, _ := item.(map[string]any)
		papers = append(papers, Paper(obj))
	}

	return papers, nil
}

// Validate checks a decoded document against the paper list schema.
func Validate(doc any) error {
	result, err := gojsonschema.Validate(listSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if result.Valid() {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrInvalidInput, describe(result.Errors()))
}

// SaveList writes papers to path as indented JSON, replacing the file
// atomically. A nil list is written as an empty array.
func SaveList(path string, papers []Paper) error {
	if papers == nil {
		papers = []Paper{}
	}

	codec := persist.NewJSONCodec()

	err := persist.WriteFileAtomic(path, func(w io.Writer) error {
		return codec.Encode(w, papers)
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	return nil
}

func describe(errs []gojsonschema.ResultError) string {
	msgs := make([]string, 0, min(len(errs), maxSchemaErrors))

	for i, e := range errs {
		if i == maxSchemaErrors {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(errs)-maxSchemaErrors))

			break
		}

		msgs = append(msgs, e.Field()+": "+e.Description())
	}

	return strings.Join(msgs, "; ")
}
