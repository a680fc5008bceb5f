package recorder

import (
	"time"

	"github.com/Nova-Hunting/nova-tracer/internal/session"
	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

// Observation is one raw tool call as delivered by the host.
type Observation struct {
	ToolName   string
	ToolInput  map[string]any
	Output     string
	Start      time.Time
	End        time.Time
	WorkingDir string
}

// BuildEvent assembles the event for seq from obs and the scan outcome.
// Output longer than maxBytes is truncated and the original size recorded.
func BuildEvent(seq int, obs Observation, outcome verdict.Outcome, maxBytes int) session.Event {
	out, size, truncated := Truncate(obs.Output, maxBytes)

	start, end := obs.Start.UTC(), obs.End.UTC()
	if end.IsZero() {
		end = start
	}
	if start.IsZero() {
		start = end
	}
	duration := end.Sub(start).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	input := obs.ToolInput
	if input == nil {
		input = map[string]any{}
	}

	res := outcome.Result()
	ev := session.Event{
		Type:           session.RecordEvent,
		ID:             seq,
		TimestampStart: start,
		TimestampEnd:   end,
		DurationMS:     duration,
		ToolName:       obs.ToolName,
		ToolInput:      input,
		ToolOutput:     out,
		WorkingDir:     obs.WorkingDir,
		FilesAccessed:  ExtractFiles(obs.ToolName, input),
		Verdict:        res.Verdict,
		Severity:       res.Severity,
		RulesMatched:   res.RulesMatched,
		ScanTimeMS:     outcome.Duration.Milliseconds(),
	}
	if truncated {
		ev.OriginalOutputSize = &size
	}
	if ev.RulesMatched == nil {
		ev.RulesMatched = []string{}
	}
	return ev
}
