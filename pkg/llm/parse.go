package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedReply is matched by errors for replies that are not the
// expected JSON.
var ErrMalformedReply = errors.New("malformed model reply")

var (
	fenceOpen  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
	arraySpan  = regexp.MustCompile(`\[\s*[\s\S]*\]`)
)

// StripCodeFences removes a surrounding markdown code fence, if any.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = fenceOpen.ReplaceAllString(s, "")
		s = fenceClose.ReplaceAllString(s, "")
	}

	return strings.TrimSpace(s)
}

// ExtractJSON returns the JSON document in a reply: the whole text when it
// parses, otherwise the widest [...] span.
func ExtractJSON(reply string) ([]byte, error) {
	text := StripCodeFences(reply)
	if json.Valid([]byte(text)) {
		return []byte(text), nil
	}

	span := arraySpan.FindString(text)
	if span != "" && json.Valid([]byte(span)) {
		return []byte(span), nil
	}

	return nil, fmt.Errorf("%w: no JSON array in %q", ErrMalformedReply, abbreviate(text))
}

// Schema validates model replies against a JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

// MustSchema compiles a JSON schema document and panics if it is invalid.
// It is meant for package-level schema variables.
func MustSchema(doc []byte) *Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("llm: invalid reply schema: %v", err))
	}

	return &Schema{schema: schema}
}

// Decode extracts the JSON from reply, validates it, and unmarshals it into v.
func (s *Schema) Decode(reply string, v any) error {
	data, err := ExtractJSON(reply)
	if err != nil {
		return err
	}

	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}

		return fmt.Errorf("%w: %s", ErrMalformedReply, strings.Join(msgs, "; "))
	}

	unmarshalErr := json.Unmarshal(data, v)
	if unmarshalErr != nil {
		return fmt.Errorf("%w: %w", ErrMalformedReply, unmarshalErr)
	}

	return nil
}

const abbreviateLen = 120

func abbreviate(s string) string {
	r := []rune(s)
	if len(r) <= abbreviateLen {
		return s
	}

	return string(r[:abbreviateLen]) + "…"
}
