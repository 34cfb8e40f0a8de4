package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/selimozcann/mainurlhunter/internal/model"
	"github.com/selimozcann/mainurlhunter/internal/statuscolor"
)

// PrintOutcome writes one console line for an outcome.
func PrintOutcome(w io.Writer, o model.Outcome) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-20s", statuscolor.Outcome(o.Status), o.Unit.Name)
	switch o.Status {
	case model.StatusUpdated:
		fmt.Fprintf(&b, " %s -> %s (version -> %s)", o.OldURL, o.NewDomain, VersionLabel(o.NewVersion))
		if o.Strategy == model.StrategyFallback {
			b.WriteString(statuscolor.Gray(" [fallback]"))
		}
		if o.DryRun {
			b.WriteString(statuscolor.Gray(" [dry run]"))
		}
	case model.StatusUnchanged:
		fmt.Fprintf(&b, " %s", o.OldDomain)
	default:
		if o.Reason != "" {
			b.WriteString(" " + statuscolor.Gray(o.Reason))
		}
	}
	fmt.Fprintln(w, b.String())
}

// PrintSummary renders the per-status counts as a table.
func PrintSummary(w io.Writer, sum Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Total", "Updated", "Unchanged", "Skipped", "Failed", "With Findings", "Fallbacks"})
	t.AppendRow(table.Row{sum.Total, sum.Updated, sum.Unchanged, sum.Skipped, sum.Failed, sum.WithFindings, sum.Fallbacks})
	t.Render()
}

// PrintChain prints a redirect chain with color-coded statuses, followed by
// its findings.
func PrintChain(w io.Writer, tr model.Trace) {
	for _, h := range tr.Chain {
		fmt.Fprintf(w, "[%d] %s %s (%s) via %s %s\n", h.Index, h.URL, statuscolor.Sprint(h.Status), h.Method, h.Via, statuscolor.Gray(fmt.Sprintf("%dms", h.TimeMs)))
	}
	if tr.Error != "" {
		fmt.Fprintf(w, "  [!] Error at %s: %s\n", tr.FinalURL(), tr.Error)
	}
	for _, f := range tr.Findings {
		fmt.Fprintf(w, "  [%s] %s at hop %d: %s\n", f.Severity, f.Type, f.AtHop, f.Detail)
	}
}
