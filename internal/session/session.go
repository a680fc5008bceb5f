package session

import (
	"fmt"
	"time"

	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

// Record types written to the log's "type" discriminator.
const (
	RecordInit  = "init"
	RecordEvent = "event"
)

// InitRecord is the first line of every session log.
type InitRecord struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	StartTime  time.Time `json:"session_start"`
	Platform   string    `json:"platform"`
	ProjectDir string    `json:"project_dir"`
	Version    string    `json:"nova_version,omitempty"`
}

// Event records one tool invocation. Events are immutable once appended.
type Event struct {
	Type           string         `json:"type"`
	ID             int            `json:"id"`
	TimestampStart time.Time      `json:"timestamp_start"`
	TimestampEnd   time.Time      `json:"timestamp_end"`
	DurationMS     int64          `json:"duration_ms"`
	ToolName       string         `json:"tool_name"`
	ToolInput      map[string]any `json:"tool_input"`
	ToolOutput     string         `json:"tool_output"`
	// OriginalOutputSize is set only when ToolOutput was truncated.
	OriginalOutputSize *int     `json:"original_output_size,omitempty"`
	WorkingDir         string   `json:"working_dir"`
	FilesAccessed      []string `json:"files_accessed"`

	Verdict      verdict.Verdict  `json:"nova_verdict"`
	Severity     verdict.Severity `json:"nova_severity"`
	RulesMatched []string         `json:"nova_rules_matched"`
	ScanTimeMS   int64            `json:"nova_scan_time_ms"`
}

// Summary holds the aggregate statistics of a finalized session.
type Summary struct {
	AISummary       string         `json:"ai_summary"`
	TotalEvents     int            `json:"total_events"`
	ToolsUsed       map[string]int `json:"tools_used"`
	FilesTouched    int            `json:"files_touched"`
	Warnings        int            `json:"warnings"`
	Blocked         int            `json:"blocked"`
	DurationSeconds int64          `json:"duration_seconds"`
}

// Session is the finalized, immutable view of one session: its metadata, the
// ordered event list and the computed summary.
type Session struct {
	ID         string     `json:"session_id"`
	StartTime  time.Time  `json:"session_start"`
	EndTime    *time.Time `json:"session_end"`
	Platform   string     `json:"platform"`
	ProjectDir string     `json:"project_dir"`
	Version    string     `json:"nova_version"`
	Events     []Event    `json:"events"`
	Summary    Summary    `json:"summary"`
	// SkippedLines counts log lines that could not be parsed.
	SkippedLines int `json:"skipped_lines"`
}

// Log is the tolerant reconstruction of a session log file.
type Log struct {
	Init    *InitRecord
	Events  []Event
	Skipped int
}

// Build assembles the finalized session object from a reconstructed log.
// Statistics are left zero; the report compiler fills them in.
func Build(id string, log *Log, end time.Time, version string) *Session {
	s := &Session{
		ID:           id,
		Version:      version,
		Events:       []Event{},
		SkippedLines: 0,
	}
	if log != nil {
		if log.Init != nil {
			s.StartTime = log.Init.StartTime
			s.Platform = log.Init.Platform
			s.ProjectDir = log.Init.ProjectDir
		}
		if log.Events != nil {
			s.Events = log.Events
		}
		s.SkippedLines = log.Skipped
	}
	if s.StartTime.IsZero() && len(s.Events) > 0 {
		s.StartTime = s.Events[0].TimestampStart
	}
	if !end.IsZero() {
		e := end.UTC()
		s.EndTime = &e
	}
	return s
}

// FormatDuration renders whole seconds as "45s", "2m 5s" or "2h 1m".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}
