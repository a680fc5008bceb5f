// Package hook decodes the lifecycle requests a host agent sends on stdin and
// encodes the decisions written back on stdout.
package hook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Exit codes understood by the host.
const (
	ExitAllow = 0
	ExitBlock = 2
)

// ProjectDirEnv is set by the host to the project root.
const ProjectDirEnv = "CLAUDE_PROJECT_DIR"

// ErrEmptyInput is returned by Read when stdin carries nothing.
var ErrEmptyInput = errors.New("empty hook input")

// Input is the request payload of every lifecycle hook. Fields a given event
// does not carry are left zero.
type Input struct {
	SessionID     string          `json:"session_id"`
	HookEventName string          `json:"hook_event_name"`
	Cwd           string          `json:"cwd"`
	ToolName      string          `json:"tool_name"`
	ToolInput     map[string]any  `json:"tool_input"`
	ToolResponse  json.RawMessage `json:"tool_response"`
	ToolUseID     string          `json:"tool_use_id"`
}

// Read parses one request from r.
func Read(r io.Reader) (*Input, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse hook input: %w", err)
	}
	if in.ToolInput == nil {
		in.ToolInput = map[string]any{}
	}
	return &in, nil
}

// ProjectDir resolves the project root: the host's environment variable,
// then the request's cwd, then the process working directory.
func ProjectDir(in *Input) string {
	if dir := os.Getenv(ProjectDirEnv); dir != "" {
		return dir
	}
	if in != nil && in.Cwd != "" {
		return in.Cwd
	}
	if dir, err := os.Getwd(); err == nil {
		return dir
	}
	return "."
}

// Decision is the response body of pre-tool and post-tool hooks.
type Decision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Block returns a blocking decision with reason.
func Block(reason string) Decision {
	return Decision{Decision: "block", Reason: reason}
}

// WriteDecision writes d as one JSON line.
func WriteDecision(w io.Writer, d Decision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write decision: %w", err)
	}
	return nil
}
