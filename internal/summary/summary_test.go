package summary_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Nova-Hunting/nova-tracer/internal/session"
	"github.com/Nova-Hunting/nova-tracer/internal/summary"
	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func sampleSession(events int) *session.Session {
	s := &session.Session{
		ID:         "2026-01-02_03-04-05_abcdef",
		ProjectDir: "/test/project",
		Summary: session.Summary{
			TotalEvents:     events,
			ToolsUsed:       map[string]int{"Read": 2, "Bash": 1},
			FilesTouched:    2,
			Warnings:        1,
			Blocked:         2,
			DurationSeconds: 3600,
		},
	}
	for i := 0; i < events; i++ {
		v := verdict.Allowed
		name := "Read"
		if i%2 == 1 {
			v = verdict.Warned
			name = "Bash"
		}
		s.Events = append(s.Events, session.Event{ID: i + 1, ToolName: name, Verdict: v})
	}
	return s
}

func TestFallback(t *testing.T) {
	tests := []struct {
		name string
		sum  session.Summary
		want string
	}{
		{
			name: "full",
			sum:  session.Summary{TotalEvents: 3, FilesTouched: 2, Warnings: 1, Blocked: 2, DurationSeconds: 3600},
			want: "Session completed with 3 tool calls over 1h 0m. Modified 2 files. 1 warnings, 2 blocked.",
		},
		{
			name: "no files",
			sum:  session.Summary{TotalEvents: 0, DurationSeconds: 5},
			want: "Session completed with 0 tool calls over 5s. 0 warnings, 0 blocked.",
		},
		{
			name: "minutes",
			sum:  session.Summary{TotalEvents: 1, DurationSeconds: 125},
			want: "Session completed with 1 tool calls over 2m 5s. 0 warnings, 0 blocked.",
		},
		{
			name: "hours",
			sum:  session.Summary{DurationSeconds: 7260},
			want: "Session completed with 0 tool calls over 2h 1m. 0 warnings, 0 blocked.",
		},
		{
			name: "zero",
			sum:  session.Summary{},
			want: "Session completed with 0 tool calls over 0s. 0 warnings, 0 blocked.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summary.Fallback(tt.sum))
		})
	}
	assert.Contains(t, summary.Fallback(session.Summary{DurationSeconds: 36000}), "10h")
}

func TestBuildPrompt(t *testing.T) {
	prompt := summary.BuildPrompt(sampleSession(3))
	assert.Contains(t, prompt, "/test/project")
	assert.Contains(t, prompt, "hour")
	assert.Contains(t, prompt, "Total tool calls: 3")
	assert.Contains(t, prompt, "Read (2)")
	assert.Contains(t, prompt, "Bash (1)")
	assert.Contains(t, prompt, "1 warnings")
	assert.Contains(t, prompt, "2 blocked")
	assert.Contains(t, prompt, "- Read (allowed)")
	assert.Contains(t, prompt, "- Bash (warned)")
	assert.NotContains(t, prompt, "more events")
}

func TestBuildPromptClipsTimeline(t *testing.T) {
	prompt := summary.BuildPrompt(sampleSession(15))
	assert.Contains(t, prompt, "and 5 more events")
}

// Feature: nova, Property: Summarize never returns empty text whatever the generator does
func TestSummarizeNeverEmpty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reply := rapid.SampledFrom([]string{"", "   \n\t", "A short summary."}).Draw(t, "reply")
		fail := rapid.Bool().Draw(t, "fail")
		svc := summary.NewServiceWith(generatorFunc(func(context.Context, string) (string, error) {
			if fail {
				return "", errors.New("boom")
			}
			return reply, nil
		}), time.Second)

		got := svc.Summarize(context.Background(), sampleSession(2))
		if got == "" {
			t.Fatalf("empty summary (reply=%q fail=%v)", reply, fail)
		}
	})
}

func TestSummarizeTrimsReply(t *testing.T) {
	svc := summary.NewServiceWith(generatorFunc(func(context.Context, string) (string, error) {
		return "\n  Refactored the parser and added tests.  \n", nil
	}), time.Second)
	assert.Equal(t, "Refactored the parser and added tests.", svc.Summarize(context.Background(), sampleSession(1)))
}

func TestSummarizeFallsBackOnError(t *testing.T) {
	s := sampleSession(3)
	svc := summary.NewServiceWith(generatorFunc(func(context.Context, string) (string, error) {
		return "", errors.New("network down")
	}), time.Second)
	assert.Equal(t, summary.Fallback(s.Summary), svc.Summarize(context.Background(), s))
}

func TestSummarizeFallsBackOnTimeout(t *testing.T) {
	s := sampleSession(3)
	svc := summary.NewServiceWith(generatorFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), 20*time.Millisecond)

	start := time.Now()
	got := svc.Summarize(context.Background(), s)
	assert.Equal(t, summary.Fallback(s.Summary), got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewServiceWithoutKey(t *testing.T) {
	t.Setenv(summary.APIKeyEnv, "")
	s := sampleSession(1)

	disabled := summary.NewService(summary.Options{Enabled: false, APIKey: "k"})
	assert.Equal(t, summary.Fallback(s.Summary), disabled.Summarize(context.Background(), s))

	noKey := summary.NewService(summary.Options{Enabled: true})
	assert.Equal(t, summary.Fallback(s.Summary), noKey.Summarize(context.Background(), s))

	var nilSvc *summary.Service
	assert.Equal(t, summary.Fallback(s.Summary), nilSvc.Summarize(context.Background(), s))
}

func TestAnthropicClientRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"Worked on the tracer."}]}`)
	}))
	defer srv.Close()

	c := summary.NewAnthropicClient("test-key", "").WithBaseURL(srv.URL + "/")
	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Worked on the tracer.", text)

	assert.Equal(t, summary.DefaultModel, got["model"])
	assert.EqualValues(t, summary.DefaultMaxTokens, got["max_tokens"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	blocks, ok := first["content"].([]any)
	require.True(t, ok)
	require.Len(t, blocks, 1)
	assert.Equal(t, "hello", blocks[0].(map[string]any)["text"])
}

func TestAnthropicClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	_, err := summary.NewAnthropicClient("bad", "").WithBaseURL(srv.URL).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid x-api-key")

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "not json")
	}))
	defer garbage.Close()
	_, err = summary.NewAnthropicClient("k", "").WithBaseURL(garbage.URL).Generate(context.Background(), "p")
	require.Error(t, err)
}

func TestServiceOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"content":[{"type":"text","text":"  Added a tracer.  "}]}`)
	}))
	defer srv.Close()

	svc := summary.NewServiceWith(summary.NewAnthropicClient("k", "").WithBaseURL(srv.URL), time.Second)
	assert.Equal(t, "Added a tracer.", svc.Summarize(context.Background(), sampleSession(1)))

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"content":[]}`)
	}))
	defer empty.Close()
	s := sampleSession(1)
	svc = summary.NewServiceWith(summary.NewAnthropicClient("k", "").WithBaseURL(empty.URL), time.Second)
	assert.Equal(t, summary.Fallback(s.Summary), svc.Summarize(context.Background(), s))
}
