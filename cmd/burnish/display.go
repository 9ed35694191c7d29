package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/burnish-dev/burnish/internal/metrics"
	"github.com/burnish-dev/burnish/internal/polish"
	"github.com/burnish-dev/burnish/internal/session"
)

// Column widths for the metric and commit tables.
const (
	colName  = 24
	colScore = 10
	colRaw   = 12
	colDelta = 8
)

// renderProgress consumes live session events and prints console progress.
// Returns when the event channel closes.
//
//nolint:errcheck // display-only writes; errors are not actionable
func renderProgress(w io.Writer, events <-chan session.Event, verbose bool) {
	for ev := range events {
		switch ev.Type {
		case session.EventPhase:
			iter := eventInt(ev, "iteration")
			focus, _ := ev.Data["focus"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%d] polishing %s...\n", iter, focus)

		case session.EventScore:
			iter := eventInt(ev, "iteration")
			if iter == 0 {
				continue // initial score is printed in the header
			}
			score := eventFloat(ev, "score")
			delta := eventFloat(ev, "delta")
			fmt.Fprintf(w, "[%d] score %.1f (%+.1f)\n", iter, score, delta)

		case session.EventCommit:
			hash, _ := ev.Data["hash"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%d] ✓ committed %.8s\n", eventInt(ev, "iteration"), hash)

		case session.EventRollback:
			reason, _ := ev.Data["reason"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%d] ✗ rolled back (%s)\n", eventInt(ev, "iteration"), reason)

		case session.EventError:
			msg, _ := ev.Data["message"].(string) //nolint:errcheck
			fmt.Fprintf(w, "    error: %s\n", msg)

		case session.EventAborted:
			reason, _ := ev.Data["reason"].(string) //nolint:errcheck
			fmt.Fprintf(w, "⛔ aborted: %s\n", reason)

		case session.EventStrategy:
			if verbose {
				name, _ := ev.Data["strategy"].(string) //nolint:errcheck
				fmt.Fprintf(w, "    strategy: %s\n", name)
			}

		case session.EventAgent:
			if verbose {
				phase, _ := ev.Data["phase"].(string) //nolint:errcheck
				tool, _ := ev.Data["tool"].(string)   //nolint:errcheck
				if tool != "" {
					fmt.Fprintf(w, "    · %s %s\n", phase, tool)
				} else if text, ok := ev.Data["text"].(string); ok && text != "" {
					fmt.Fprintf(w, "    › %s\n", text)
				}
			}
		}
	}
}

// printPolishSummary renders the terminal report for a finished session.
//
//nolint:errcheck // display-only writes; errors are not actionable
func printPolishSummary(w io.Writer, result *polish.PolishResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "═"+strings.Repeat("═", 54))
	fmt.Fprintln(w, " POLISH RESULTS")
	fmt.Fprintln(w, "═"+strings.Repeat("═", 54))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Reason:        %s\n", result.Reason)
	fmt.Fprintf(w, "Score:         %.1f → %.1f (%+.1f)\n",
		result.InitialScore, result.FinalScore, result.FinalScore-result.InitialScore)
	fmt.Fprintf(w, "Iterations:    %d\n", result.Iterations)
	fmt.Fprintf(w, "Commits:       %d\n", len(result.Commits))
	fmt.Fprintf(w, "Branch:        %s\n", result.Branch)
	if result.ErrorMsg != "" {
		fmt.Fprintf(w, "Error:         %s\n", result.ErrorMsg)
	}

	if len(result.Trajectory) > 1 {
		parts := make([]string, len(result.Trajectory))
		for i, s := range result.Trajectory {
			parts[i] = fmt.Sprintf("%.0f", s)
		}
		fmt.Fprintf(w, "Trajectory:    %s\n", strings.Join(parts, " → "))
	}

	if len(result.Commits) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s %s\n",
			padRight("Focus", colName), padRight("Delta", colDelta), "Commit")
		fmt.Fprintln(w, "─"+strings.Repeat("─", 54))
		for _, c := range result.Commits {
			fmt.Fprintf(w, "%s %s %.8s\n",
				padRight(truncateName(c.Focus, colName), colName),
				padRight(fmt.Sprintf("%+.1f", c.Delta), colDelta),
				c.Hash)
		}
	}
	fmt.Fprintln(w)
}

// printScoreTable renders a one-shot scoring pass.
//
//nolint:errcheck // display-only writes; errors are not actionable
func printScoreTable(w io.Writer, result *metrics.ScoreResult) {
	fmt.Fprintf(w, "%s %s %s %s\n",
		padRight("Metric", colName), padRight("Score", colScore),
		padRight("Raw", colRaw), "Target")
	fmt.Fprintln(w, "─"+strings.Repeat("─", 54))

	for _, mr := range result.Metrics {
		scoreStr := fmt.Sprintf("%.1f", mr.NormalizedScore)
		rawStr := fmt.Sprintf("%.2f", mr.RawValue)
		if mr.RunFailed {
			scoreStr = "failed"
			rawStr = "—"
		}
		fmt.Fprintf(w, "%s %s %s %.1f\n",
			padRight(truncateName(mr.Name, colName), colName),
			padRight(scoreStr, colScore),
			padRight(rawStr, colRaw),
			mr.Target)
	}

	fmt.Fprintln(w, "─"+strings.Repeat("─", 54))
	fmt.Fprintf(w, "%s %.1f\n", padRight("Composite", colName), result.Score)
}

// truncateName shortens a name to maxLen runes, replacing the last rune with "…" if needed.
func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-1]) + "…"
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func eventInt(ev session.Event, key string) int {
	switch n := ev.Data[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func eventFloat(ev session.Event, key string) float64 {
	switch n := ev.Data[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
