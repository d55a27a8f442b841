// Package paper loads, validates, and saves lists of paper records.
package paper

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
)

// Well-known record fields.
const (
	FieldTitle      = "title"
	FieldAbstract   = "abstract"
	FieldURL        = "url"
	FieldYear       = "year"
	FieldConference = "conference"
)

// Paper is one record. Unknown fields are carried through every stage
// untouched.
type Paper map[string]any

// String returns field key as text. Numbers are formatted without
// exponent; missing and null fields are empty.
func (p Paper) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Float returns field key as a number, or 0 when absent or not numeric.
func (p Paper) Float(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}

		return f
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}

		return f
	default:
		return 0
	}
}

// Strings returns field key as a string list, skipping non-string items.
func (p Paper) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))

		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

// Title returns the paper title.
func (p Paper) Title() string { return p.String(FieldTitle) }

// Abstract returns the paper abstract.
func (p Paper) Abstract() string { return p.String(FieldAbstract) }

// URL returns the paper URL.
func (p Paper) URL() string { return p.String(FieldURL) }

// Year returns the publication year as text.
func (p Paper) Year() string { return p.String(FieldYear) }

// Conference returns the venue name.
func (p Paper) Conference() string { return p.String(FieldConference) }

// Clone returns a shallow copy that can be annotated without touching p.
func (p Paper) Clone() Paper {
	if p == nil {
		return Paper{}
	}

	return maps.Clone(p)
}
