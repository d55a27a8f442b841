// Package stage holds the pieces shared by the LLM-backed pipeline stages:
// batch payloads for prompts and mapping of reply items back to records.
package stage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/papersift/pkg/paper"
)

// DefaultAbstractMaxChars is the abstract length sent to the model.
const DefaultAbstractMaxChars = 1600

// ellipsis marks a truncated abstract.
const ellipsis = " …"

// ErrIncompleteReply is returned when a reply does not cover every record
// of the batch. It is retried like any other unusable reply.
var ErrIncompleteReply = errors.New("reply does not cover every record")

// Item is the per-record prompt payload.
type Item struct {
	Index      int    `json:"index"`
	Title      string `json:"title"`
	Abstract   string `json:"abstract"`
	URL        string `json:"url"`
	Year       string `json:"year"`
	Conference string `json:"conference"`
}

// Truncate shortens s to maxChars runes plus an ellipsis marker. A
// non-positive maxChars disables truncation.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}

	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}

	return string(r[:maxChars]) + ellipsis
}

// Payload builds the prompt items for a batch, indexed from 0.
func Payload(records []paper.Paper, abstractMaxChars int) []Item {
	items := make([]Item, 0, len(records))

	for i, p := range records {
		items = append(items, Item{
			Index:      i,
			Title:      p.Title(),
			Abstract:   Truncate(p.Abstract(), abstractMaxChars),
			URL:        p.URL(),
			Year:       p.Year(),
			Conference: p.Conference(),
		})
	}

	return items
}

// PayloadJSON renders the payload as indented JSON for a prompt.
func PayloadJSON(records []paper.Paper, abstractMaxChars int) (string, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	err := enc.Encode(Payload(records, abstractMaxChars))
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	return buf.String(), nil
}

// Assign maps reply items to records. indices holds the index each reply
// item claims (nil when absent). An item takes its claimed record when the
// index is valid and unclaimed; otherwise it takes the record at its own
// position, or the first free record. The result maps record i to the reply
// item describing it. Every record must be covered.
func Assign(n int, indices []*int) ([]int, error) {
	owner := make([]int, n)
	for i := range owner {
		owner[i] = -1
	}

	var pending []int

	for j, idx := range indices {
		if idx != nil && *idx >= 0 && *idx < n && owner[*idx] < 0 {
			owner[*idx] = j

			continue
		}

		pending = append(pending, j)
	}

	for _, j := range pending {
		pos := j
		if pos >= n || owner[pos] >= 0 {
			pos = slices.Index(owner, -1)
		}

		if pos < 0 {
			break
		}

		owner[pos] = j
	}

	missing := 0

	for _, j := range owner {
		if j < 0 {
			missing++
		}
	}

	if missing > 0 {
		return nil, fmt.Errorf("%w: %d of %d records unanswered", ErrIncompleteReply, missing, n)
	}

	return owner, nil
}
