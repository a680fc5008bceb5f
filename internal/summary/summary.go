package summary

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Nova-Hunting/nova-tracer/internal/logging"
	"github.com/Nova-Hunting/nova-tracer/internal/session"
)

const (
	// APIKeyEnv names the environment variable holding the API credential.
	APIKeyEnv      = "ANTHROPIC_API_KEY"
	DefaultTimeout = 15 * time.Second
	timelineLimit  = 10
)

// Options configure a Service.
type Options struct {
	Enabled bool
	Model   string
	Timeout time.Duration
	// APIKey overrides the ANTHROPIC_API_KEY environment variable.
	APIKey string
}

// Service produces session summaries. It always returns text: every failure
// of the remote call resolves to Fallback.
type Service struct {
	generator Generator
	timeout   time.Duration
}

// NewService returns a Service. With summaries disabled or no credential the
// service only ever produces the fallback text.
func NewService(opts Options) *Service {
	s := &Service{timeout: opts.Timeout}
	if !opts.Enabled {
		return s
	}
	key := opts.APIKey
	if key == "" {
		key = os.Getenv(APIKeyEnv)
	}
	if key != "" {
		s.generator = NewAnthropicClient(key, opts.Model)
	}
	return s
}

// NewServiceWith wraps an arbitrary generator.
func NewServiceWith(g Generator, timeout time.Duration) *Service {
	return &Service{generator: g, timeout: timeout}
}

// Summarize describes sess. The remote call is bounded by the service
// timeout; on expiry, error, or an empty reply the fallback is returned.
func (s *Service) Summarize(ctx context.Context, sess *session.Session) string {
	fallback := Fallback(sess.Summary)
	if s == nil || s.generator == nil {
		return fallback
	}

	timeout := s.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := s.generator.Generate(ctx, BuildPrompt(sess))
	if err != nil {
		logging.Warn(logging.WithComponent(ctx, "summary"), "AI summary failed, using statistics", "error", err)
		return fallback
	}
	if text = strings.TrimSpace(text); text == "" {
		return fallback
	}
	return text
}

// Fallback is the statistics-only summary.
func Fallback(sum session.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session completed with %d tool calls over %s.", sum.TotalEvents, session.FormatDuration(sum.DurationSeconds))
	if sum.FilesTouched > 0 {
		fmt.Fprintf(&b, " Modified %d files.", sum.FilesTouched)
	}
	fmt.Fprintf(&b, " %d warnings, %d blocked.", sum.Warnings, sum.Blocked)
	return b.String()
}

// BuildPrompt condenses sess into a prompt: statistics plus the first few
// events of the timeline.
func BuildPrompt(sess *session.Session) string {
	sum := sess.Summary
	var b strings.Builder
	b.WriteString("Summarize this AI coding session in 2-3 sentences. Focus on what was accomplished and note any security concerns.\n\n")
	fmt.Fprintf(&b, "Project: %s\n", sess.ProjectDir)
	fmt.Fprintf(&b, "Duration: %s\n", durationPhrase(sum.DurationSeconds))
	fmt.Fprintf(&b, "Total tool calls: %d\n", sum.TotalEvents)

	tools := make([]string, 0, len(sum.ToolsUsed))
	for name := range sum.ToolsUsed {
		tools = append(tools, name)
	}
	sort.Slice(tools, func(i, j int) bool {
		if sum.ToolsUsed[tools[i]] != sum.ToolsUsed[tools[j]] {
			return sum.ToolsUsed[tools[i]] > sum.ToolsUsed[tools[j]]
		}
		return tools[i] < tools[j]
	})
	parts := make([]string, len(tools))
	for i, name := range tools {
		parts[i] = fmt.Sprintf("%s (%d)", name, sum.ToolsUsed[name])
	}
	fmt.Fprintf(&b, "Tools used: %s\n", strings.Join(parts, ", "))
	fmt.Fprintf(&b, "Files touched: %d\n", sum.FilesTouched)
	fmt.Fprintf(&b, "Security: %d warnings, %d blocked\n", sum.Warnings, sum.Blocked)

	b.WriteString("\nTimeline:\n")
	for i, ev := range sess.Events {
		if i == timelineLimit {
			fmt.Fprintf(&b, "... and %d more events\n", len(sess.Events)-timelineLimit)
			break
		}
		fmt.Fprintf(&b, "- %s (%s)\n", ev.ToolName, ev.Verdict)
	}
	return b.String()
}

func durationPhrase(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%d seconds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%d minutes", seconds/60)
	default:
		return fmt.Sprintf("%d hours %d minutes", seconds/3600, (seconds%3600)/60)
	}
}
