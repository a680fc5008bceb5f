package session_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Nova-Hunting/nova-tracer/internal/session"
	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

// generateTime produces a second-precision UTC time.
func generateTime(t *rapid.T) time.Time {
	sec := rapid.Int64Range(1_000_000_000, 1_900_000_000).Draw(t, "unix_sec")
	return time.Unix(sec, 0).UTC()
}

func newEvent(id int, tool string, start time.Time) session.Event {
	return session.Event{
		ID:             id,
		TimestampStart: start,
		TimestampEnd:   start.Add(time.Second),
		DurationMS:     1000,
		ToolName:       tool,
		ToolInput:      map[string]any{"command": "ls"},
		ToolOutput:     "ok",
		WorkingDir:     "/work",
		Verdict:        verdict.Allowed,
	}
}

// Feature: nova, Property: sequence ids are gapless even when the log holds
// interleaved non-event records.
func TestSequenceIDsGapless(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dir, err := os.MkdirTemp("", "nova-seq-*")
		if err != nil {
			t.Fatalf("MkdirTemp: %v", err)
		}
		defer os.RemoveAll(dir)

		store := session.NewSessionStore(dir)
		start := generateTime(t)
		id, _, err := store.Init("s1", start, "test")
		if err != nil {
			t.Fatalf("Init: %v", err)
		}

		n := rapid.IntRange(0, 12).Draw(t, "n")
		for i := 0; i < n; i++ {
			if rapid.Bool().Draw(t, "noise") {
				f, err := os.OpenFile(store.LogPath(id), os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					t.Fatalf("open: %v", err)
				}
				fmt.Fprintln(f, `{"type":"heartbeat","note":"ignored"}`)
				f.Close()
			}
			seq := store.NextSequenceID(id)
			if err := store.Append(id, newEvent(seq, "Bash", start)); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}

		log, err := store.Read(id)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if len(log.Events) != n {
			t.Fatalf("events: got %d, want %d", len(log.Events), n)
		}
		for i, ev := range log.Events {
			if ev.ID != i+1 {
				t.Fatalf("event %d has id %d", i, ev.ID)
			}
		}
		if got := store.NextSequenceID(id); got != n+1 {
			t.Fatalf("NextSequenceID: got %d, want %d", got, n+1)
		}
	})
}

// Feature: nova, Property: a torn final line costs exactly one skipped line.
func TestReadLogSkipsTornLastLine(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "n")
		start := generateTime(t)

		var b strings.Builder
		b.WriteString(`{"type":"init","session_id":"s","session_start":"` + start.Format(time.RFC3339) + `","platform":"linux","project_dir":"/p"}` + "\n")
		for i := 1; i <= n; i++ {
			fmt.Fprintf(&b, `{"type":"event","id":%d,"timestamp_start":%q,"timestamp_end":%q,"tool_name":"Read","tool_input":{},"tool_output":"","working_dir":"/p","files_accessed":[],"nova_verdict":"allowed","nova_severity":null,"nova_rules_matched":[],"nova_scan_time_ms":0}`+"\n",
				i, start.Format(time.RFC3339), start.Format(time.RFC3339))
		}
		b.WriteString(`{"type":"event","id":`)

		log := session.ReadLog(strings.NewReader(b.String()))
		if len(log.Events) != n {
			t.Fatalf("events: got %d, want %d", len(log.Events), n)
		}
		if log.Skipped != 1 {
			t.Fatalf("skipped: got %d, want 1", log.Skipped)
		}
		if log.Init == nil || log.Init.SessionID != "s" {
			t.Fatalf("init record not recovered")
		}
	})
}

func TestReadLogRejectsBadEvents(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"event","id":0,"tool_name":"Read"}`,
		`{"type":"event","id":"two","tool_name":"Read"}`,
		`not json at all`,
		`{"type":"event","id":2,"tool_name":"Write"}`,
		`{"type":"event","id":1,"tool_name":"Read"}`,
		``,
	}, "\n")

	log := session.ReadLog(strings.NewReader(input))
	require.Len(t, log.Events, 2)
	assert.Equal(t, 3, log.Skipped)
	assert.Equal(t, 1, log.Events[0].ID)
	assert.Equal(t, "Write", log.Events[1].ToolName)
	assert.Equal(t, verdict.Allowed, log.Events[0].Verdict)
	assert.NotNil(t, log.Events[0].FilesAccessed)
	assert.NotNil(t, log.Events[0].RulesMatched)
}

func TestInitResumesActiveSession(t *testing.T) {
	dir := t.TempDir()
	store := session.NewSessionStore(dir)
	now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	first, resumed, err := store.Init("2024-01-15_14-30-00_aaaaaa", now, "1.0.0")
	require.NoError(t, err)
	assert.False(t, resumed)

	second, resumed, err := store.Init("2024-01-15_14-31-00_bbbbbb", now.Add(time.Minute), "1.0.0")
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, first, second)

	logs, err := filepath.Glob(filepath.Join(store.Paths().Sessions, "*.jsonl"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	active, err := store.ActiveSession()
	require.NoError(t, err)
	assert.Equal(t, first, active)

	log, err := store.Read(first)
	require.NoError(t, err)
	require.NotNil(t, log.Init)
	assert.Equal(t, "1.0.0", log.Init.Version)
	assert.Equal(t, dir, log.Init.ProjectDir)
}

func TestInitReplacesDanglingMarker(t *testing.T) {
	dir := t.TempDir()
	store := session.NewSessionStore(dir)
	marker := filepath.Join(store.Paths().Sessions, ".active")
	require.NoError(t, os.WriteFile(marker, []byte("gone\n"), 0o644))

	id, resumed, err := store.Init("fresh", time.Now(), "dev")
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.Equal(t, "fresh", id)
}

func TestFinalizeClearsMarker(t *testing.T) {
	dir := t.TempDir()
	store := session.NewSessionStore(dir)
	id, _, err := store.Init("s1", time.Now(), "dev")
	require.NoError(t, err)
	require.NoError(t, store.Append(id, newEvent(1, "Read", time.Now().UTC())))
	require.NoError(t, store.MarkToolStart(id, "toolu_1", time.Now()))

	log, err := store.Finalize(id)
	require.NoError(t, err)
	assert.Len(t, log.Events, 1)

	_, err = store.ActiveSession()
	assert.True(t, errors.Is(err, session.ErrNoSession))

	_, err = os.Stat(filepath.Join(store.Paths().Sessions, id+".pending"))
	assert.True(t, os.IsNotExist(err))
}

func TestActiveSessionMissing(t *testing.T) {
	store := session.NewSessionStore(t.TempDir())
	_, err := store.ActiveSession()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestNextSequenceIDEmptyOrMissing(t *testing.T) {
	store := session.NewSessionStore(t.TempDir())
	assert.Equal(t, 1, store.NextSequenceID("missing"))

	id, _, err := store.Init("s1", time.Now(), "dev")
	require.NoError(t, err)
	assert.Equal(t, 1, store.NextSequenceID(id))
}

func TestToolStartRoundTrip(t *testing.T) {
	store := session.NewSessionStore(t.TempDir())
	start := time.Date(2024, 1, 15, 14, 30, 0, 123_000_000, time.UTC)

	require.NoError(t, store.MarkToolStart("s1", "toolu_01/../x", start))
	got, ok := store.TakeToolStart("s1", "toolu_01/../x")
	require.True(t, ok)
	assert.True(t, got.Equal(start))

	_, ok = store.TakeToolStart("s1", "toolu_01/../x")
	assert.False(t, ok, "start time is consumed once")

	_, ok = store.TakeToolStart("s1", "")
	assert.False(t, ok)
}

func TestListNewestFirst(t *testing.T) {
	store := session.NewSessionStore(t.TempDir())
	_, _, err := store.Init("2024-01-01_00-00-00_aaaaaa", time.Now(), "dev")
	require.NoError(t, err)
	_, err = store.Finalize("2024-01-01_00-00-00_aaaaaa")
	require.NoError(t, err)

	id, _, err := store.Init("2024-02-01_00-00-00_bbbbbb", time.Now(), "dev")
	require.NoError(t, err)
	ev := newEvent(1, "Bash", time.Now().UTC())
	ev.Verdict = verdict.Blocked
	ev.Severity = verdict.SeverityHigh
	require.NoError(t, store.Append(id, ev))

	infos, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "2024-02-01_00-00-00_bbbbbb", infos[0].ID)
	assert.True(t, infos[0].Active)
	assert.Equal(t, 1, infos[0].Blocked)
	assert.False(t, infos[1].Active)
}

var idPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}_[0-9a-f]{6}$`)

func TestGenerateIDFormat(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := generateTime(t)
		id := session.GenerateID(now)
		if !idPattern.MatchString(id) {
			t.Fatalf("id %q does not match format", id)
		}
		if !strings.HasPrefix(id, now.Format("2006-01-02_15-04-05")) {
			t.Fatalf("id %q does not start with its timestamp", id)
		}
	})
}

func TestGenerateIDClockAnomaly(t *testing.T) {
	assert.Regexp(t, idPattern, session.GenerateID(time.Time{}))
	assert.Regexp(t, idPattern, session.GenerateID(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBuildFallsBackToFirstEventStart(t *testing.T) {
	start := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	s := session.Build("s1", &session.Log{Events: []session.Event{newEvent(1, "Read", start)}}, end, "dev")
	assert.True(t, s.StartTime.Equal(start))
	require.NotNil(t, s.EndTime)
	assert.True(t, s.EndTime.Equal(end))

	empty := session.Build("s2", nil, time.Time{}, "dev")
	assert.NotNil(t, empty.Events)
	assert.Nil(t, empty.EndTime)
}
