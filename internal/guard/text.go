package guard

import (
	"encoding/json"
	"strings"
)

// scannableFields are the tool input fields that may carry injected text.
var scannableFields = []string{"command", "content", "prompt", "query", "new_string", "old_string", "pattern"}

// ExtractInputText joins the scannable string fields of a tool input.
func ExtractInputText(input map[string]any) string {
	if len(input) == 0 {
		return ""
	}
	var parts []string
	for _, f := range scannableFields {
		if s, ok := input[f].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	// MultiEdit nests its replacements.
	if edits, ok := input["edits"].([]any); ok {
		for _, e := range edits {
			if m, ok := e.(map[string]any); ok {
				if s, ok := m["new_string"].(string); ok && s != "" {
					parts = append(parts, s)
				}
			}
		}
	}
	return strings.Join(parts, "\n")
}

// ExtractOutputText returns the text of a tool response, whatever shape the
// tool gave it. Unknown shapes fall back to their JSON encoding.
func ExtractOutputText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return trimmed
	}
	if s, ok := textOf(v); ok {
		return s
	}
	return trimmed
}

func textOf(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case map[string]any:
		if c, ok := t["content"]; ok {
			if s, ok := textOf(c); ok {
				return s, true
			}
		}
		if s, ok := t["output"].(string); ok {
			return s, true
		}
		stdout, hasOut := t["stdout"].(string)
		stderr, hasErr := t["stderr"].(string)
		if hasOut || hasErr {
			return strings.TrimSuffix(strings.Join([]string{stdout, stderr}, "\n"), "\n"), true
		}
		if file, ok := t["file"].(map[string]any); ok {
			if s, ok := file["content"].(string); ok {
				return s, true
			}
		}
	case []any:
		var parts []string
		for _, item := range t {
			switch b := item.(type) {
			case string:
				parts = append(parts, b)
			case map[string]any:
				if s, ok := b["text"].(string); ok {
					parts = append(parts, s)
				}
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n"), true
		}
	}
	return "", false
}

// Source describes where scanned output came from, for warning text.
func Source(toolName string, input map[string]any) string {
	for _, f := range []string{"file_path", "notebook_path", "url", "path", "query"} {
		if s, ok := input[f].(string); ok && s != "" {
			return s
		}
	}
	if cmd, ok := input["command"].(string); ok && cmd != "" {
		if r := []rune(cmd); len(r) > 80 {
			cmd = string(r[:77]) + "..."
		}
		return cmd
	}
	return toolName
}
