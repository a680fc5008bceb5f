package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nova-Hunting/nova-tracer/internal/session"
)

// Parser reads a report back into the session it was rendered from.
type Parser interface {
	Parse(data []byte) (*session.Session, error)
}

// JSONParser parses a report written by JSONRenderer.
type JSONParser struct{}

func (p *JSONParser) Parse(data []byte) (*session.Session, error) {
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse JSON report: %w", err)
	}
	return &s, nil
}

// HTMLParser extracts the embedded SESSION_DATA from an HTML report.
type HTMLParser struct{}

func (p *HTMLParser) Parse(data []byte) (*session.Session, error) {
	content := string(data)
	// Tool output shown in the page may contain the prefix itself; start
	// looking at the data element when there is one.
	if i := strings.LastIndex(content, dataElement); i != -1 {
		content = content[i+len(dataElement):]
	}

	start := strings.Index(content, dataPrefix)
	if start == -1 {
		return nil, fmt.Errorf("not a valid NOVA report: missing session data")
	}
	start += len(dataPrefix)
	end := strings.Index(content[start:], dataSuffix)
	if end == -1 {
		return nil, fmt.Errorf("not a valid NOVA report: malformed session data")
	}

	var s session.Session
	if err := json.Unmarshal([]byte(content[start:start+end]), &s); err != nil {
		return nil, fmt.Errorf("not a valid NOVA report: failed to parse embedded JSON: %w", err)
	}
	return &s, nil
}

// ParserFor picks a parser from the file extension, falling back to sniffing
// the content.
func ParserFor(path string, data []byte) Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return &JSONParser{}
	case ".html", ".htm":
		return &HTMLParser{}
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return &JSONParser{}
	}
	return &HTMLParser{}
}

// Load reads and parses the report at path.
func Load(path string) (*session.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return ParserFor(path, data).Parse(data)
}
