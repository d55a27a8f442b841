// Package report computes and renders statistics over categorized papers.
package report

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/categorize"
)

// NoLabel stands in for a missing recommended label.
const NoLabel = "—"

const (
	topN          = 3
	percentFactor = 100
)

// Count is one category with its number of papers.
type Count struct {
	Category string  `json:"category" yaml:"category"`
	Papers   int     `json:"papers" yaml:"papers"`
	Percent  float64 `json:"percent" yaml:"percent"`
}

// LabelCount is one recommended label of the new category.
type LabelCount struct {
	Label  string `json:"label" yaml:"label"`
	Papers int    `json:"papers" yaml:"papers"`
}

// Entry is one paper in the per-category listing.
type Entry struct {
	Title            string  `json:"title" yaml:"title"`
	Year             string  `json:"year" yaml:"year"`
	Conference       string  `json:"conference" yaml:"conference"`
	Confidence       float64 `json:"confidence" yaml:"confidence"`
	RecommendedLabel string  `json:"recommended_label,omitempty" yaml:"recommended_label,omitempty"`
	Summary          string  `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Group lists the papers of one category.
type Group struct {
	Category string  `json:"category" yaml:"category"`
	Papers   []Entry `json:"papers" yaml:"papers"`
}

// Summary condenses the distribution.
type Summary struct {
	Total            int     `json:"total" yaml:"total"`
	NonEmpty         int     `json:"non_empty_categories" yaml:"non_empty_categories"`
	Categories       int     `json:"categories" yaml:"categories"`
	Largest          *Count  `json:"largest,omitempty" yaml:"largest,omitempty"`
	SmallestNonEmpty *Count  `json:"smallest_non_empty,omitempty" yaml:"smallest_non_empty,omitempty"`
	Top              []Count `json:"top" yaml:"top"`
}

// Stats is the full statistics report.
type Stats struct {
	Total     int          `json:"total" yaml:"total"`
	Counts    []Count      `json:"counts" yaml:"counts"`
	NewLabels []LabelCount `json:"new_labels" yaml:"new_labels"`
	Groups    []Group      `json:"groups" yaml:"groups"`
	Summary   Summary      `json:"summary" yaml:"summary"`
}

// Count returns the count of one category.
func (s Stats) Count(category string) Count {
	for _, c := range s.Counts {
		if c.Category == category {
			return c
		}
	}

	return Count{Category: category}
}

// Compute builds statistics for categorized records. Missing, empty, and
// unknown categories count as the new category.
func Compute(records []paper.Paper) Stats {
	names := categorize.Names()

	counts := make(map[string]int, len(names))
	groups := make(map[string][]Entry, len(names))
	labels := make(map[string]int)

	for _, rec := range records {
		category := categorize.Normalize(rec.String(categorize.FieldCategory))

		counts[category]++

		if category == categorize.CategoryNew {
			label := strings.TrimSpace(rec.String(categorize.FieldRecommendedLabel))
			if label == "" {
				label = NoLabel
			}

			labels[label]++
		}

		groups[category] = append(groups[category], Entry{
			Title:            rec.Title(),
			Year:             rec.Year(),
			Conference:       rec.Conference(),
			Confidence:       rec.Float(categorize.FieldConfidence),
			RecommendedLabel: rec.String(categorize.FieldRecommendedLabel),
			Summary:          rec.String(categorize.FieldSummary),
		})
	}

	total := len(records)
	stats := Stats{
		Total:     total,
		Counts:    make([]Count, 0, len(names)),
		NewLabels: make([]LabelCount, 0, len(labels)),
		Groups:    []Group{},
	}

	for _, name := range names {
		stats.Counts = append(stats.Counts, Count{Category: name, Papers: counts[name], Percent: percent(counts[name], total)})

		if len(groups[name]) > 0 {
			stats.Groups = append(stats.Groups, Group{Category: name, Papers: groups[name]})
		}
	}

	for label, n := range labels {
		stats.NewLabels = append(stats.NewLabels, LabelCount{Label: label, Papers: n})
	}

	slices.SortFunc(stats.NewLabels, func(a, b LabelCount) int {
		return cmp.Or(cmp.Compare(b.Papers, a.Papers), strings.Compare(a.Label, b.Label))
	})

	stats.Summary = summarize(stats.Counts, total)

	return stats
}

// summarize ranks categories by size. Ties keep taxonomy order.
func summarize(counts []Count, total int) Summary {
	sum := Summary{Total: total, Categories: len(counts), Top: []Count{}}

	var nonEmpty []Count

	for _, c := range counts {
		if c.Papers > 0 {
			nonEmpty = append(nonEmpty, c)
		}
	}

	sum.NonEmpty = len(nonEmpty)
	if len(nonEmpty) == 0 {
		return sum
	}

	ranked := slices.Clone(nonEmpty)
	slices.SortStableFunc(ranked, func(a, b Count) int { return cmp.Compare(b.Papers, a.Papers) })

	largest := ranked[0]
	sum.Largest = &largest

	smallest := nonEmpty[0]
	for _, c := range nonEmpty[1:] {
		if c.Papers < smallest.Papers {
			smallest = c
		}
	}

	sum.SmallestNonEmpty = &smallest
	sum.Top = ranked[:min(topN, len(ranked))]

	return sum
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}

	return float64(n) * percentFactor / float64(total)
}
