package commands

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantdash/internal/brain"
	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/internal/scheduler"
)

func TestPrintTable_AlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []string{"A", "BB"}, [][]string{{"xxx", "y"}, {"z", "wwww"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "A    BB", lines[0])
	assert.Equal(t, strings.Repeat("─", 9), lines[1])
	assert.Equal(t, "xxx  y", lines[2])
	assert.Equal(t, "z    wwww", lines[3])
}

func TestPrintRunsTable(t *testing.T) {
	started := time.Date(2026, 1, 8, 18, 0, 0, 0, time.UTC)
	finished := started.Add(2 * time.Second)

	var buf bytes.Buffer
	printRunsTable(&buf, []contracts.Run{
		{RunID: "abc", StartedAt: started, FinishedAt: &finished, Status: contracts.RunSuccess, RowsWritten: 42},
		{RunID: "def", StartedAt: started, Status: contracts.RunRunning},
	})

	out := buf.String()
	assert.Contains(t, out, "RUN ID")
	assert.Contains(t, out, "2026-01-08 18:00:02")
	assert.Contains(t, out, "SUCCESS")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "RUNNING")
}

func TestPrintRunsTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	printRunsTable(&buf, nil)
	assert.Equal(t, "No runs recorded\n", buf.String())
}

func TestPrintRunDetail(t *testing.T) {
	msg := "boom"
	var buf bytes.Buffer
	printRunDetail(&buf, contracts.Run{
		RunID:        "abc",
		StartedAt:    time.Date(2026, 1, 8, 18, 0, 0, 0, time.UTC),
		Status:       contracts.RunFailed,
		Details:      map[string]interface{}{"price_rows": 3},
		ErrorMessage: &msg,
	})

	out := buf.String()
	assert.Contains(t, out, "Run abc")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "price_rows")
	assert.Contains(t, out, "❌ boom")
	assert.Contains(t, out, "Finished     : -")
}

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer
	printOutcome(&buf, brain.RunOutcome{
		RunID:       "abc",
		Status:      contracts.RunFailed,
		RowsWritten: 0,
		Details: map[string]interface{}{
			"price_rows":       0,
			"source_by_symbol": map[string]string{"AAPL": "yahoo"},
		},
		Stage: contracts.StageData,
		Err:   errors.New("no data"),
	})

	out := buf.String()
	assert.Contains(t, out, "price_rows")
	assert.NotContains(t, out, "source_by_symbol")
	assert.Contains(t, out, "S1: no data")
}

func TestPrintJobs(t *testing.T) {
	var buf bytes.Buffer
	printJobs(&buf, []scheduler.JobInfo{
		{Name: "pipeline", Schedule: "0 18 * * 1-5", Next: time.Date(2026, 1, 8, 18, 0, 0, 0, time.UTC)},
	})

	assert.Contains(t, buf.String(), "pipeline")
	assert.Contains(t, buf.String(), "2026-01-08 18:00:00")
}
