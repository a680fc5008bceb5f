// Package report compiles finalized sessions into reports and reads them back.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Nova-Hunting/nova-tracer/internal/session"
	"github.com/Nova-Hunting/nova-tracer/internal/summary"
	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

// Health labels, worst first.
const (
	HealthBlocked  = "BLOCKED"
	HealthWarnings = "WARNINGS"
	HealthClean    = "CLEAN"
)

// Summarizer writes the prose summary of a session.
type Summarizer interface {
	Summarize(ctx context.Context, s *session.Session) string
}

// ComputeStats derives the summary counts of s. The duration runs from the
// session start to its end, or to the last event when the session is still
// open.
func ComputeStats(s *session.Session) session.Summary {
	sum := session.Summary{
		TotalEvents: len(s.Events),
		ToolsUsed:   map[string]int{},
	}
	files := map[string]struct{}{}
	last := s.StartTime
	for _, ev := range s.Events {
		sum.ToolsUsed[ev.ToolName]++
		for _, f := range ev.FilesAccessed {
			files[f] = struct{}{}
		}
		switch ev.Verdict {
		case verdict.Warned:
			sum.Warnings++
		case verdict.Blocked:
			sum.Blocked++
		}
		if ev.TimestampEnd.After(last) {
			last = ev.TimestampEnd
		}
	}
	sum.FilesTouched = len(files)

	end := last
	if s.EndTime != nil {
		end = *s.EndTime
	}
	if !s.StartTime.IsZero() && end.After(s.StartTime) {
		sum.DurationSeconds = int64(end.Sub(s.StartTime).Seconds())
	}
	return sum
}

// Health maps the security counts to the report badge.
func Health(warnings, blocked int) string {
	switch {
	case blocked > 0:
		return HealthBlocked
	case warnings > 0:
		return HealthWarnings
	default:
		return HealthClean
	}
}

// Compile fills in the statistics and the prose summary of s. A nil
// summarizer uses the statistics-only text.
func Compile(ctx context.Context, s *session.Session, summarizer Summarizer) *session.Session {
	s.Summary = ComputeStats(s)
	if summarizer != nil {
		s.Summary.AISummary = summarizer.Summarize(ctx, s)
	}
	if s.Summary.AISummary == "" {
		s.Summary.AISummary = summary.Fallback(s.Summary)
	}
	return s
}

// Dir returns the directory reports are written to: the configured directory
// (relative paths resolve under the project) or the project's reports dir.
func Dir(configured, projectDir string) string {
	switch {
	case configured == "":
		return filepath.Join(projectDir, session.DirName, "reports")
	case filepath.IsAbs(configured):
		return configured
	default:
		return filepath.Join(projectDir, configured)
	}
}

// Save writes data to path, creating parent directories.
func Save(data []byte, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
