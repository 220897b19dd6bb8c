package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAuditLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		lines = append(lines, m)
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestAuditLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.jsonl")

	a, err := NewAudit(path, "run-1")
	require.NoError(t, err)

	shown := true
	count := uint32(2)
	a.Log(AuditEvent{Type: AuditDecision, Key: "LiqMixAISlop", Phase: "initial", Reason: "initial_budget"})
	a.Log(AuditEvent{Type: AuditDisplay, Key: "LiqMixAISlop", Shown: &shown, Count: &count})
	a.Log(AuditEvent{Type: AuditDisplayError, Key: "LiqMixAISlop", Error: errors.New("headless")})
	a.Timed(AuditEvent{Type: AuditCheckEnd}, time.Now().Add(-time.Second))
	require.NoError(t, a.Close())

	lines := readAuditLines(t, path)
	require.Len(t, lines, 4)

	assert.Equal(t, "decision", lines[0]["event"])
	assert.Equal(t, "run-1", lines[0]["run"])
	assert.Equal(t, "initial_budget", lines[0]["reason"])
	assert.NotContains(t, lines[0], "shown")
	assert.Contains(t, lines[0], "ts")

	assert.Equal(t, true, lines[1]["shown"])
	assert.Equal(t, float64(2), lines[1]["count"])
	assert.Equal(t, "headless", lines[2]["error"])
	assert.GreaterOrEqual(t, lines[3]["dur_ms"], float64(1000))
}

func TestAuditLogger_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	for _, run := range []string{"a", "b"} {
		a, err := NewAudit(path, run)
		require.NoError(t, err)
		a.Log(AuditEvent{Type: AuditCheckStart})
		require.NoError(t, a.Close())
	}

	lines := readAuditLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0]["run"])
	assert.Equal(t, "b", lines[1]["run"])
}

func TestAuditLogger_Nil(t *testing.T) {
	var a *AuditLogger
	a.Log(AuditEvent{Type: AuditCheckStart})
	a.Timed(AuditEvent{Type: AuditCheckEnd}, time.Now())
	assert.NoError(t, a.Close())
}
