package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"

	"github.com/Sumatoshi-tech/papersift/pkg/driver"
)

// printer writes user-facing progress lines. Logs go to stderr through slog;
// these lines go to the command's stdout.
type printer struct {
	w      io.Writer
	stage  string
	header *color.Color
	ok     *color.Color
	warn   *color.Color
	fail   *color.Color
	dim    *color.Color
}

func newPrinter(w io.Writer, noColor bool) *printer {
	p := &printer{
		w:      w,
		header: color.New(color.FgCyan, color.Bold),
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		fail:   color.New(color.FgRed, color.Bold),
		dim:    color.New(color.Faint),
	}

	if noColor {
		for _, c := range []*color.Color{p.header, p.ok, p.warn, p.fail, p.dim} {
			c.DisableColor()
		}
	}

	return p
}

func (p *printer) printf(c *color.Color, format string, args ...any) {
	_, _ = c.Fprintf(p.w, format, args...)
	_, _ = fmt.Fprintln(p.w)
}

// Warnf prints a highlighted warning line.
func (p *printer) Warnf(format string, args ...any) {
	p.printf(p.warn, format, args...)
}

// Infof prints a plain line.
func (p *printer) Infof(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

// Observe is a driver.Observer printing run progress.
func (p *printer) Observe(ev driver.Event) {
	switch ev.State {
	case driver.StateStarting:
		p.printf(p.header, "%s: starting %d %s", p.stage, ev.Total, english.PluralWord(ev.Total, "batch", "batches"))
	case driver.StateResuming:
		p.printf(p.header, "%s: resuming after batch %d/%d (%s)", p.stage, ev.Batch, ev.Total, formatCounts(ev.Counts))
	case driver.StateProcessing:
		if ev.Records == 0 {
			return
		}

		p.printf(p.dim, "%s: batch %d/%d done, %d %s (%s)", p.stage, ev.Batch, ev.Total,
			ev.Records, english.PluralWord(ev.Records, "record", "records"), formatCounts(ev.Counts))
	case driver.StateFinalizing:
		p.printf(p.dim, "%s: writing outputs", p.stage)
	default:
	}
}

// Done prints the completion summary.
func (p *printer) Done(summary *driver.Summary) {
	mode := "fresh run"
	if summary.Resumed {
		mode = fmt.Sprintf("resumed at batch %d", summary.StartBatch)
	}

	p.printf(p.ok, "%s: done in %s, %s %s processed (%s)", summary.Stage, summary.Duration.Round(time.Millisecond),
		humanize.Comma(int64(summary.InputCount)), english.PluralWord(summary.InputCount, "record", "records"), mode)

	for _, out := range summary.Outputs {
		p.Infof("  %-12s %6s -> %s", out.Partition, humanize.Comma(int64(summary.Counts[out.Partition])), out.Path)
	}
}

// Stopped prints where a stopped run can be resumed.
func (p *printer) Stopped(err error) {
	var stopped *driver.StoppedError
	if !errors.As(err, &stopped) {
		return
	}

	what := "failed"
	if stopped.Interrupted {
		what = "interrupted"
	}

	p.printf(p.fail, "%s: %s at batch %d/%d", stopped.Stage, what, stopped.Batch, stopped.Total)
	p.printf(p.warn, "progress saved at batch %d/%d; re-run the same command to resume", stopped.LastCommitted, stopped.Total)
}

func formatCounts(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}

	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, counts[name]))
	}

	return strings.Join(parts, " ")
}
