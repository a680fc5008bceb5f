package cmd

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Nova-Hunting/nova-tracer/internal/session"
	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

// Feature: nova, Property: status counts match the events in the active log
func TestStatusCountsAccuracy(t *testing.T) {
	dir := setupProject(t)
	run := 0
	rapid.Check(t, func(rt *rapid.T) {
		run++
		project := fmt.Sprintf("%s/p%d", dir, run)
		store := session.NewSessionStore(project)
		id, _, err := store.Init(fmt.Sprintf("2025-06-01_12-00-00_%06d", run), time.Now(), "test")
		if err != nil {
			rt.Fatalf("Init: %v", err)
		}

		verdicts := rapid.SliceOfN(rapid.SampledFrom([]verdict.Verdict{verdict.Allowed, verdict.Warned, verdict.Blocked}), 0, 15).Draw(rt, "verdicts")
		warned, blocked := 0, 0
		for i, v := range verdicts {
			switch v {
			case verdict.Warned:
				warned++
			case verdict.Blocked:
				blocked++
			}
			ev := session.Event{ID: i + 1, ToolName: "Read", ToolInput: map[string]any{}, Verdict: v}
			if err := store.Append(id, ev); err != nil {
				rt.Fatalf("Append: %v", err)
			}
		}

		out, _, err := executeCommand(rootCmd, "", "--project", project, "status")
		if err != nil {
			rt.Fatalf("status command error: %v", err)
		}
		for _, want := range []string{
			"Session: " + id,
			fmt.Sprintf("Events: %d", len(verdicts)),
			fmt.Sprintf("Warnings: %d", warned),
			fmt.Sprintf("Blocked: %d", blocked),
		} {
			if !strings.Contains(out, want) {
				rt.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})
}

func TestStatusWithoutSession(t *testing.T) {
	dir := setupProject(t)
	out, _, err := executeCommand(rootCmd, "", "--project", dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "no active session")
}

func TestSessionsListsNewestFirst(t *testing.T) {
	dir := setupProject(t)
	store := session.NewSessionStore(dir)
	for _, id := range []string{"2025-06-01_10-00-00_aaaaaa", "2025-06-02_10-00-00_bbbbbb"} {
		_, _, err := store.Init(id, time.Now(), "test")
		require.NoError(t, err)
		_, err = store.Finalize(id)
		require.NoError(t, err)
	}
	_, _, err := store.Init("2025-06-03_10-00-00_cccccc", time.Now(), "test")
	require.NoError(t, err)

	out, _, err := executeCommand(rootCmd, "", "--project", dir, "sessions")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "* 2025-06-03_10-00-00_cccccc"), lines[0])
	assert.Contains(t, lines[2], "2025-06-01_10-00-00_aaaaaa")

	empty := t.TempDir()
	out, _, err = executeCommand(rootCmd, "", "--project", empty, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "no sessions recorded")
}

func TestVersionCommand(t *testing.T) {
	setupProject(t)
	out, _, err := executeCommand(rootCmd, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "nova-tracer")
}
