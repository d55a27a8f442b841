package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/papersift/pkg/stage/categorize"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatPlot = "plot"
)

// ErrUnsupportedFormat is returned for an unknown output format.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatText, FormatJSON, FormatYAML, FormatPlot}
}

// Options tunes rendering.
type Options struct {
	// HideListing omits the per-category paper listing from text output.
	HideListing bool
}

// Render writes stats in the given format.
func Render(w io.Writer, stats Stats, format string, opts Options) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatText, "":
		return renderText(w, stats, opts)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")

		err := encoder.Encode(stats)
		if err != nil {
			return fmt.Errorf("encode stats json: %w", err)
		}

		return nil
	case FormatYAML:
		data, err := yaml.Marshal(stats)
		if err != nil {
			return fmt.Errorf("encode stats yaml: %w", err)
		}

		_, err = w.Write(data)
		if err != nil {
			return fmt.Errorf("write stats yaml: %w", err)
		}

		return nil
	case FormatPlot:
		return renderPlot(w, stats)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

var heading = color.New(color.Bold, color.FgCyan)

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Format.Footer = text.FormatDefault

	return tbl
}

func renderText(w io.Writer, stats Stats, opts Options) error {
	var b strings.Builder

	b.WriteString(heading.Sprint("Papers per category") + "\n")

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Category", "Papers", "Share"})

	for _, c := range stats.Counts {
		tbl.AppendRow(table.Row{c.Category, humanize.Comma(int64(c.Papers)), fmt.Sprintf("%.1f%%", c.Percent)})
	}

	tbl.AppendFooter(table.Row{"Total", humanize.Comma(int64(stats.Total)), ""})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	b.WriteString(tbl.Render() + "\n\n")

	newCount := stats.Count(categorize.CategoryNew)
	fmt.Fprintf(&b, "%s %s / %s (%.1f%%)\n", heading.Sprint("New category:"),
		humanize.Comma(int64(newCount.Papers)), humanize.Comma(int64(stats.Total)), newCount.Percent)

	if len(stats.NewLabels) > 0 {
		labels := newTable()
		labels.AppendHeader(table.Row{"Recommended label", "Papers"})

		for _, l := range stats.NewLabels {
			labels.AppendRow(table.Row{l.Label, l.Papers})
		}

		b.WriteString(labels.Render() + "\n")
	}

	if !opts.HideListing {
		writeListing(&b, stats.Groups)
	}

	writeSummary(&b, stats.Summary)

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("write stats: %w", err)
	}

	return nil
}

func writeListing(b *strings.Builder, groups []Group) {
	if len(groups) == 0 {
		return
	}

	b.WriteString("\n" + heading.Sprint("Papers by category") + "\n")

	for _, g := range groups {
		fmt.Fprintf(b, "\n### %s (%s) ###\n", g.Category, papersNoun(len(g.Papers)))

		for i, e := range g.Papers {
			fmt.Fprintf(b, "%2d. [%s %s] (%.2f) %s\n", i+1, e.Year, e.Conference, e.Confidence, e.Title)

			if g.Category != categorize.CategoryNew || e.RecommendedLabel == "" {
				continue
			}

			fmt.Fprintf(b, "    -> recommended: %s\n", e.RecommendedLabel)

			if e.Summary != "" {
				fmt.Fprintf(b, "    -> summary: %s\n", e.Summary)
			}
		}
	}
}

func writeSummary(b *strings.Builder, s Summary) {
	b.WriteString("\n" + heading.Sprint("Summary") + "\n")
	fmt.Fprintf(b, "Total papers: %s\n", humanize.Comma(int64(s.Total)))
	fmt.Fprintf(b, "Non-empty categories: %d / %d\n", s.NonEmpty, s.Categories)

	if s.Largest == nil {
		return
	}

	fmt.Fprintf(b, "Largest: %s (%s)\n", s.Largest.Category, papersNoun(s.Largest.Papers))
	fmt.Fprintf(b, "Smallest non-empty: %s (%s)\n", s.SmallestNonEmpty.Category, papersNoun(s.SmallestNonEmpty.Papers))
	fmt.Fprintf(b, "Top %d:\n", len(s.Top))

	for i, c := range s.Top {
		fmt.Fprintf(b, "  %d. %s: %s (%.1f%%)\n", i+1, c.Category, papersNoun(c.Papers), c.Percent)
	}
}

func papersNoun(n int) string {
	return humanize.Comma(int64(n)) + " " + english.PluralWord(n, "paper", "")
}
