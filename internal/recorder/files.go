package recorder

import "strings"

// pathFields names the input field that holds the path for direct-path tools.
var pathFields = map[string]string{
	"Read":         "file_path",
	"Edit":         "file_path",
	"MultiEdit":    "file_path",
	"Write":        "file_path",
	"NotebookEdit": "notebook_path",
	"NotebookRead": "notebook_path",
	"Glob":         "path",
	"Grep":         "path",
}

var pathPrefixes = []string{"/", "./", "../", "~/"}

// ExtractFiles returns the file paths a tool call refers to, in first-seen
// order without duplicates. The result is never nil.
func ExtractFiles(toolName string, input map[string]any) []string {
	files := []string{}
	if input == nil {
		return files
	}

	if field, ok := pathFields[toolName]; ok {
		if p, ok := input[field].(string); ok && p != "" {
			files = append(files, p)
		}
		return files
	}

	if toolName == "Bash" {
		if cmd, ok := input["command"].(string); ok {
			files = append(files, bashPaths(cmd)...)
		}
	}
	return files
}

// bashPaths picks path-like tokens out of a shell command.
func bashPaths(command string) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, tok := range strings.Fields(command) {
		tok = strings.Trim(tok, "\"'`;|&()<>")
		if tok == "" || strings.HasPrefix(tok, "-") || strings.Contains(tok, "://") {
			continue
		}
		if !hasPathPrefix(tok) || seen[tok] {
			continue
		}
		seen[tok] = true
		paths = append(paths, tok)
	}
	return paths
}

func hasPathPrefix(tok string) bool {
	for _, p := range pathPrefixes {
		if strings.HasPrefix(tok, p) {
			return true
		}
	}
	return false
}
