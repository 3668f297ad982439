package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/wonny/quantdash/internal/brain"
	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/internal/scheduler"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const timeLayout = "2006-01-02 15:04:05"

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

func printSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

func printSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

func printError(w io.Writer, message string) {
	fmt.Fprintf(w, "❌ %s\n", message)
}

func printKeyValue(w io.Writer, key, value string) {
	fmt.Fprintf(w, "   %-12s : %s\n", key, value)
}

func printTable(w io.Writer, columns []string, rows [][]string) {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i, v := range row {
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	printRow := func(values []string) {
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = fmt.Sprintf("%-*s", widths[i], v)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}

	printRow(columns)
	total := 2 * (len(widths) - 1)
	for _, width := range widths {
		total += width
	}
	fmt.Fprintln(w, strings.Repeat("─", total))
	for _, row := range rows {
		printRow(row)
	}
}

func printOutcome(w io.Writer, o brain.RunOutcome) {
	printKeyValue(w, "Run ID", o.RunID)
	printKeyValue(w, "Status", string(o.Status))
	printKeyValue(w, "Rows", fmt.Sprintf("%d", o.RowsWritten))
	printKeyValue(w, "Duration", o.Duration.Round(time.Millisecond).String())
	for _, key := range sortedKeys(o.Details) {
		if key == "source_by_symbol" {
			continue
		}
		printKeyValue(w, key, fmt.Sprint(o.Details[key]))
	}
	if o.Err != nil {
		printError(w, fmt.Sprintf("%s: %v", o.Stage.ShortName(), o.Err))
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(timeLayout)
}

func runRow(r contracts.Run) []string {
	return []string{
		r.RunID,
		string(r.Status),
		r.StartedAt.Format(timeLayout),
		formatTime(r.FinishedAt),
		fmt.Sprintf("%d", r.RowsWritten),
	}
}

func printRunsTable(w io.Writer, runs []contracts.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = runRow(r)
	}
	printTable(w, []string{"RUN ID", "STATUS", "STARTED", "FINISHED", "ROWS"}, rows)
}

func printRunDetail(w io.Writer, r contracts.Run) {
	printHeader(w, "Run "+r.RunID)
	printKeyValue(w, "Status", string(r.Status))
	printKeyValue(w, "Started", r.StartedAt.Format(timeLayout))
	printKeyValue(w, "Finished", formatTime(r.FinishedAt))
	printKeyValue(w, "Rows", fmt.Sprintf("%d", r.RowsWritten))
	for _, key := range sortedKeys(r.Details) {
		printKeyValue(w, key, fmt.Sprint(r.Details[key]))
	}
	if r.ErrorMessage != nil {
		printError(w, *r.ErrorMessage)
	}
}

func printJobs(w io.Writer, jobs []scheduler.JobInfo) {
	rows := make([][]string, len(jobs))
	for i, j := range jobs {
		rows[i] = []string{j.Name, j.Schedule, j.Next.Format(timeLayout)}
	}
	printTable(w, []string{"JOB", "SCHEDULE", "NEXT RUN"}, rows)
}
