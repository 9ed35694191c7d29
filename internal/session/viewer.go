package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogFile represents a session log file on disk.
type LogFile struct {
	Path      string
	SessionID string
	Size      int64
	ModTime   time.Time
	NumEvents int
}

// ListLogs finds .jsonl session logs in dir, newest first.
func ListLogs(dir string) ([]LogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading session directory: %w", err)
	}

	var files []LogFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, e.Name())
		n, _ := countLines(path) //nolint:errcheck
		files = append(files, LogFile{
			Path:      path,
			SessionID: strings.TrimSuffix(e.Name(), ".jsonl"),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			NumEvents: n,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck
	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// RenderTimeline writes a human-readable session timeline to w.
//
//nolint:errcheck // display-only writes; errors are not actionable
func RenderTimeline(w io.Writer, events []Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w, " POLISH SESSION TIMELINE")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	start := events[0].Timestamp
	for _, ev := range events {
		elapsed := ev.Timestamp.Sub(start)
		ts := formatDuration(elapsed)

		switch ev.Type {
		case EventInit:
			branch, _ := ev.Data["branch"].(string) //nolint:errcheck
			score := jsonFloat(ev.Data["initial_score"])
			metrics := jsonNumber(ev.Data["metric_count"])
			fmt.Fprintf(w, "[%s] 🚀 Session started  branch=%s  score=%.1f  metrics=%d\n", ts, branch, score, metrics)

		case EventPhase:
			iter := jsonNumber(ev.Data["iteration"])
			fmt.Fprintf(w, "[%s] ▶  Iteration %d\n", ts, iter)

		case EventScore:
			score := jsonFloat(ev.Data["score"])
			delta := jsonFloat(ev.Data["delta"])
			fmt.Fprintf(w, "[%s]    Score %.1f (%+.1f)\n", ts, score, delta)

		case EventStrategy:
			name, _ := ev.Data["strategy"].(string) //nolint:errcheck
			focus, _ := ev.Data["focus"].(string)   //nolint:errcheck
			fmt.Fprintf(w, "[%s]    Strategy %s  focus=%s\n", ts, name, focus)

		case EventAgent:
			phase, _ := ev.Data["phase"].(string) //nolint:errcheck
			tool, _ := ev.Data["tool"].(string)   //nolint:errcheck
			if tool != "" {
				fmt.Fprintf(w, "[%s]    · %s %s\n", ts, phase, tool)
			}

		case EventCommit:
			hash, _ := ev.Data["hash"].(string) //nolint:errcheck
			delta := jsonFloat(ev.Data["score_delta"])
			fmt.Fprintf(w, "[%s] ✓  Committed %.8s (%+.1f)\n", ts, hash, delta)

		case EventRollback:
			reason, _ := ev.Data["reason"].(string)             //nolint:errcheck
			strat, _ := ev.Data["failed_strategy"].(string)     //nolint:errcheck
			fmt.Fprintf(w, "[%s] ✗  Rolled back  %s (%s)\n", ts, strat, reason)

		case EventError:
			msg, _ := ev.Data["message"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] ❌ Error: %s\n", ts, msg)

		case EventAborted:
			reason, _ := ev.Data["reason"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] ⛔ Aborted: %s\n", ts, reason)

		case EventResult:
			reason, _ := ev.Data["reason"].(string) //nolint:errcheck
			initial := jsonFloat(ev.Data["initial_score"])
			final := jsonFloat(ev.Data["final_score"])
			commits := jsonNumber(ev.Data["commits"])
			fmt.Fprintf(w, "[%s] 🏁 Session complete  %s  %.1f → %.1f  (%d commits)\n",
				ts, reason, initial, final, commits)

		default:
			fmt.Fprintf(w, "[%s] %s %v\n", ts, ev.Type, ev.Data)
		}
	}
	fmt.Fprintln(w)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%6dms", d.Milliseconds())
	}
	return fmt.Sprintf("%6.1fs", d.Seconds())
}

// jsonNumber extracts a number from a JSON-decoded interface{} (float64 or json.Number).
func jsonNumber(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64() //nolint:errcheck
		return int(i)
	}
	return 0
}

func jsonFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64() //nolint:errcheck
		return f
	}
	return 0
}
