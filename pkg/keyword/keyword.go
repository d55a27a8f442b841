// Package keyword implements the non-LLM pre-filter that splits a paper
// collection into AI-for-coding, other AI, and non-AI papers by matching
// term lists against title and abstract.
package keyword

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/papersift/pkg/paper"
)

// Category is the pre-filter outcome.
type Category string

// Categories.
const (
	CategoryLLMCoding   Category = "llm-coding"
	CategoryAINonCoding Category = "ai-noncoding"
	CategoryNonAI       Category = "non-ai"
)

// Annotation fields.
const (
	FieldAIHits     = "_ai_hits"
	FieldCodingHits = "_coding_hits"
)

// Default file names.
const (
	DefaultIn             = "all_papers.json"
	DefaultLLMCodingOut   = "stage-1-output.json"
	DefaultAINonCodingOut = "ai-noncoding.json"
	DefaultNonAIOut       = "non-ai.json"
)

var (
	separators = regexp.MustCompile(`[\s\-_]+`)
	whitespace = regexp.MustCompile(`\s+`)
	dashes     = strings.NewReplacer("–", "-", "—", "-")
)

// Result is the classification of one paper.
type Result struct {
	Category   Category
	AIHits     []string
	CodingHits []string
}

// Classifier matches compiled term patterns.
type Classifier struct {
	ai     []*regexp.Regexp
	coding []*regexp.Regexp
}

// NewClassifier compiles the AI and coding term lists.
func NewClassifier(aiTerms, codingTerms []string) (*Classifier, error) {
	ai, err := compileTerms(aiTerms)
	if err != nil {
		return nil, err
	}

	coding, err := compileTerms(codingTerms)
	if err != nil {
		return nil, err
	}

	return &Classifier{ai: ai, coding: coding}, nil
}

var defaultClassifier = sync.OnceValue(func() *Classifier {
	c, err := NewClassifier(
		slices.Concat(AITerms, CodeModelNames),
		slices.Concat(CodingAnchors, CodeTaskSignals, CodeModelNames),
	)
	if err != nil {
		panic(fmt.Sprintf("keyword: built-in terms: %v", err))
	}

	return c
})

// Default returns the classifier for the built-in term lists.
func Default() *Classifier {
	return defaultClassifier()
}

// Pattern returns the regular expression for one term. Multi-word terms
// accept any run of spaces, hyphens, or underscores between words.
func Pattern(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return ""
	}

	parts := separators.Split(term, -1)
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}

	return `\b` + strings.Join(parts, `[-_ ]+`) + `\b`
}

func compileTerms(terms []string) ([]*regexp.Regexp, error) {
	unique := slices.Clone(terms)
	for i := range unique {
		unique[i] = strings.ToLower(strings.TrimSpace(unique[i]))
	}

	slices.Sort(unique)
	unique = slices.Compact(unique)

	patterns := make([]*regexp.Regexp, 0, len(unique))

	for _, term := range unique {
		expr := Pattern(term)
		if expr == "" {
			continue
		}

		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile term %q: %w", term, err)
		}

		patterns = append(patterns, re)
	}

	return patterns, nil
}

// Text is the normalized match text of a paper: lower-cased title and
// abstract with dashes unified and whitespace collapsed.
func Text(p paper.Paper) string {
	t := strings.ToLower(p.Title() + " " + p.Abstract())
	t = dashes.Replace(t)
	t = whitespace.ReplaceAllString(t, " ")

	return strings.TrimSpace(t)
}

func hits(text string, patterns []*regexp.Regexp) []string {
	out := []string{}

	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			out = append(out, m)
		}
	}

	slices.Sort(out)

	return slices.Compact(out)
}

// Classify places p in one category and reports the matched terms.
// Coding terms are only checked for AI papers.
func (c *Classifier) Classify(p paper.Paper) Result {
	text := Text(p)

	res := Result{AIHits: hits(text, c.ai), CodingHits: []string{}}
	if len(res.AIHits) == 0 {
		res.Category = CategoryNonAI

		return res
	}

	res.CodingHits = hits(text, c.coding)
	if len(res.CodingHits) == 0 {
		res.Category = CategoryAINonCoding

		return res
	}

	res.Category = CategoryLLMCoding

	return res
}

// Split holds the three pre-filter outputs.
type Split struct {
	LLMCoding   []paper.Paper
	AINonCoding []paper.Paper
	NonAI       []paper.Paper
}

// Total returns the number of papers across all outputs.
func (s Split) Total() int {
	return len(s.LLMCoding) + len(s.AINonCoding) + len(s.NonAI)
}

// Split classifies every paper and annotates copies with the matched
// terms. Input order is kept within each output.
func (c *Classifier) Split(papers []paper.Paper) Split {
	out := Split{
		LLMCoding:   []paper.Paper{},
		AINonCoding: []paper.Paper{},
		NonAI:       []paper.Paper{},
	}

	for _, p := range papers {
		res := c.Classify(p)

		q := p.Clone()
		q[FieldAIHits] = res.AIHits

		switch res.Category {
		case CategoryNonAI:
			out.NonAI = append(out.NonAI, q)
		case CategoryAINonCoding:
			q[FieldCodingHits] = res.CodingHits
			out.AINonCoding = append(out.AINonCoding, q)
		case CategoryLLMCoding:
			q[FieldCodingHits] = res.CodingHits
			out.LLMCoding = append(out.LLMCoding, q)
		}
	}

	return out
}
