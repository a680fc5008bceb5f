package guard

import (
	"context"
	"strings"
	"time"

	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

const (
	// MinScanLength is the shortest input text worth sending to the engine.
	MinScanLength = 10
	// DefaultMaxContentLength caps the text sent to the engine.
	DefaultMaxContentLength = 50000
)

// Guard holds everything the pre-tool check needs.
type Guard struct {
	Scanner          verdict.Scanner
	RulesDir         string
	MinSeverity      verdict.Severity
	MaxContentLength int
	Compliance       ComplianceConfig
}

// Decision is the outcome of a pre-tool check.
type Decision struct {
	Block  bool
	Reason string
	// Outcome is the scan that produced the decision, for recording.
	Outcome verdict.Outcome
}

// Check decides whether toolName may run with input. Blocking patterns are
// tried first and apply to any input length; then the detection engine scans
// the input text and any high-severity match blocks. Engine failures allow
// the call.
func (g *Guard) Check(ctx context.Context, toolName string, input map[string]any) Decision {
	start := time.Now()
	bash, content := Patterns(g.Compliance)

	if toolName == "Bash" {
		if cmd, ok := input["command"].(string); ok {
			if p, hit := firstMatch(bash, cmd); hit {
				return patternBlock(p, time.Since(start))
			}
		}
	}
	if writesContent(toolName) {
		for _, text := range writtenText(input) {
			if p, hit := firstMatch(content, text); hit {
				return patternBlock(p, time.Since(start))
			}
		}
	}

	text := ExtractInputText(input)
	// Without an engine the guard is pattern-only.
	if g.Scanner == nil || len(text) < MinScanLength {
		return Decision{}
	}
	limit := g.MaxContentLength
	if limit <= 0 {
		limit = DefaultMaxContentLength
	}
	if len(text) > limit {
		text = strings.ToValidUTF8(text[:limit], "")
	}

	outcome := verdict.Evaluate(ctx, g.Scanner, g.RulesDir, g.MinSeverity, text)
	d := Decision{Outcome: outcome}
	if outcome.Err != nil {
		return d
	}
	res := outcome.Result()
	if res.Severity == verdict.SeverityHigh {
		d.Block = true
		d.Reason = BlockReason(res.Detections)
	}
	return d
}

func patternBlock(p Pattern, elapsed time.Duration) Decision {
	name := p.ID
	if name == "" {
		name = p.Reason
	}
	det := verdict.Detection{
		RuleName:    name,
		Severity:    verdict.SeverityHigh,
		Description: p.Reason,
		Category:    "pre_tool_policy",
	}
	return Decision{
		Block:   true,
		Reason:  "[NOVA] Blocked: " + p.Reason,
		Outcome: verdict.Outcome{Pools: [][]verdict.Detection{{det}}, Duration: elapsed},
	}
}

func writesContent(toolName string) bool {
	switch toolName {
	case "Write", "Edit", "MultiEdit", "NotebookEdit":
		return true
	}
	return false
}

func writtenText(input map[string]any) []string {
	var out []string
	for _, f := range []string{"content", "new_string", "new_source"} {
		if s, ok := input[f].(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if edits, ok := input["edits"].([]any); ok {
		for _, e := range edits {
			if m, ok := e.(map[string]any); ok {
				if s, ok := m["new_string"].(string); ok && s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
