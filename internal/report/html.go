package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/Nova-Hunting/nova-tracer/internal/session"
	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

const (
	// DisplayLimit caps the characters of a tool output shown in the report.
	DisplayLimit = 10000

	// dataElement opens the script holding the session. Rendered text has '<'
	// escaped, so the tag occurs once per report.
	dataElement = "<script id=\"session-data\">\n"
	dataPrefix  = "const SESSION_DATA = "
	dataSuffix  = ";\n"
)

// Renderer serializes a compiled session to bytes.
type Renderer interface {
	Render(s *session.Session) ([]byte, error)
}

// JSONRenderer renders the session as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(s *session.Session) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// HTMLRenderer renders a self-contained HTML report. The session is embedded
// as SESSION_DATA so HTMLParser can recover it.
type HTMLRenderer struct{}

// text nodes keep quotes readable; attribute values go through html.EscapeString
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func esc(s string) string  { return textEscaper.Replace(s) }
func attr(s string) string { return html.EscapeString(s) }

func (r *HTMLRenderer) Render(s *session.Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	id := s.ID
	if id == "" {
		id = "unknown"
	}
	sum := s.Summary

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "<title>NOVA Session Report - %s</title>\n", esc(id))
	sb.WriteString("<style>" + stylesheet + "</style>\n")
	sb.WriteString("</head>\n<body>\n<div class=\"container\">\n")

	writeHeader(&sb, id, sum)

	sb.WriteString("<section class=\"summary\">\n<h2>Session Summary</h2>\n")
	fmt.Fprintf(&sb, "<p>%s</p>\n</section>\n", esc(sum.AISummary))

	writeStats(&sb, sum)
	writeMetadata(&sb, s)
	writeTimeline(&sb, s.Events)
	writeEvents(&sb, s.Events)

	fmt.Fprintf(&sb, "<footer>Generated by NOVA Tracer %s</footer>\n", esc(s.Version))
	sb.WriteString("</div>\n" + dataElement)
	// json.Marshal escapes <, > and & so the data cannot close the element.
	sb.WriteString(dataPrefix)
	sb.Write(data)
	sb.WriteString(dataSuffix)
	sb.WriteString(script)
	sb.WriteString("</script>\n</body>\n</html>\n")
	return []byte(sb.String()), nil
}

func writeHeader(sb *strings.Builder, id string, sum session.Summary) {
	health := Health(sum.Warnings, sum.Blocked)
	sb.WriteString("<header>\n<div>\n<h1>NOVA Session Report</h1>\n")
	fmt.Fprintf(sb, "<div class=\"session-id\">%s</div>\n</div>\n", esc(id))
	sb.WriteString("<div class=\"health-badge-container\">\n")
	fmt.Fprintf(sb, "<div class=\"health-badge %s\">%s</div>\n", strings.ToLower(health), health)
	switch {
	case sum.Blocked > 0:
		fmt.Fprintf(sb, "<div class=\"health-subtitle\">%d blocked, %d warnings</div>\n", sum.Blocked, sum.Warnings)
	case sum.Warnings > 0:
		fmt.Fprintf(sb, "<div class=\"health-subtitle\">%d warnings</div>\n", sum.Warnings)
	}
	sb.WriteString("</div>\n</header>\n")
}

func writeStats(sb *strings.Builder, sum session.Summary) {
	sb.WriteString("<section>\n<div class=\"stats\">\n")
	card := func(class, label, value string) {
		fmt.Fprintf(sb, "<div class=\"stat-card%s\"><div class=\"stat-label\">%s</div><div class=\"stat-value\">%s</div></div>\n", class, label, value)
	}
	card("", "Total Events", fmt.Sprint(sum.TotalEvents))
	card("", "Tools Used", fmt.Sprint(len(sum.ToolsUsed)))
	card("", "Files Touched", fmt.Sprint(sum.FilesTouched))
	card(" warned", "Warnings", fmt.Sprint(sum.Warnings))
	card(" blocked", "Blocked", fmt.Sprint(sum.Blocked))
	card("", "Duration", session.FormatDuration(sum.DurationSeconds))
	sb.WriteString("</div>\n")

	if len(sum.ToolsUsed) > 0 {
		names := make([]string, 0, len(sum.ToolsUsed))
		for name := range sum.ToolsUsed {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if sum.ToolsUsed[names[i]] != sum.ToolsUsed[names[j]] {
				return sum.ToolsUsed[names[i]] > sum.ToolsUsed[names[j]]
			}
			return names[i] < names[j]
		})
		sb.WriteString("<ul class=\"tools-list\">\n")
		for _, name := range names {
			fmt.Fprintf(sb, "<li>%s<span>%s</span> <span class=\"tool-count\">%d</span></li>\n", ToolIcon(name), esc(name), sum.ToolsUsed[name])
		}
		sb.WriteString("</ul>\n")
	}
	sb.WriteString("</section>\n")
}

func writeMetadata(sb *strings.Builder, s *session.Session) {
	end := "N/A"
	if s.EndTime != nil {
		end = formatTimestamp(*s.EndTime)
	}
	version := s.Version
	if version == "" {
		version = "unknown"
	}
	sb.WriteString("<section>\n<h2>Session Details</h2>\n<dl class=\"metadata\">\n")
	row := func(label, value string) {
		fmt.Fprintf(sb, "<dt>%s</dt><dd>%s</dd>\n", label, esc(value))
	}
	row("Session Start", formatTimestamp(s.StartTime))
	row("Session End", end)
	row("Platform", orNA(s.Platform))
	row("NOVA Version", version)
	row("Project Directory", orNA(s.ProjectDir))
	sb.WriteString("</dl>\n")
	if s.SkippedLines > 0 {
		fmt.Fprintf(sb, "<div class=\"caveat\">%d log lines could not be read and are missing from this report.</div>\n", s.SkippedLines)
	}
	sb.WriteString("</section>\n")
}

func writeTimeline(sb *strings.Builder, events []session.Event) {
	if len(events) == 0 {
		return
	}
	sb.WriteString("<section class=\"timeline-container\">\n<div class=\"timeline\">\n")
	for i, ev := range events {
		v := verdictClass(ev.Verdict)
		fmt.Fprintf(sb, "<div class=\"timeline-node %s\" data-event-id=\"%d\" onclick=\"scrollToEvent(%d)\" title=\"%s\">", v, i, i, attr(ev.ToolName))
		fmt.Fprintf(sb, "<span class=\"node-icon\">%s</span><span class=\"node-time\">%s</span></div>\n", ToolIcon(ev.ToolName), formatClock(ev.TimestampStart))
	}
	sb.WriteString("</div>\n</section>\n")
}

func writeEvents(sb *strings.Builder, events []session.Event) {
	sb.WriteString("<section>\n<h2>Events</h2>\n")
	if len(events) == 0 {
		sb.WriteString("<p class=\"no-events\">No events recorded</p>\n</section>\n")
		return
	}
	sb.WriteString("<div class=\"events\">\n")
	for i, ev := range events {
		writeEvent(sb, i, ev)
	}
	sb.WriteString("</div>\n</section>\n")
}

func writeEvent(sb *strings.Builder, i int, ev session.Event) {
	v := verdictClass(ev.Verdict)
	fmt.Fprintf(sb, "<div class=\"event-card %s\" id=\"event-%d\">\n", v, i)
	fmt.Fprintf(sb, "<div class=\"event-header\" onclick=\"toggleEvent(%d)\">", i)
	fmt.Fprintf(sb, "<span class=\"event-id\">#%d</span>%s<span class=\"event-tool\">%s</span>", ev.ID, ToolIcon(ev.ToolName), esc(ev.ToolName))
	fmt.Fprintf(sb, "<span class=\"event-verdict %s\">%s</span>", v, strings.ToUpper(v))
	fmt.Fprintf(sb, "<span class=\"event-time\">%s</span><span class=\"expand-icon\">&#9660;</span></div>\n", formatClock(ev.TimestampStart))

	fmt.Fprintf(sb, "<div class=\"event-details\" id=\"details-%d\" style=\"display: none;\">\n", i)

	sb.WriteString("<div class=\"detail-section\"><div class=\"detail-label\">Tool Input</div><div class=\"detail-value\"><pre>")
	sb.WriteString(esc(prettyJSON(ev.ToolInput)))
	sb.WriteString("</pre></div></div>\n")

	output, clipped := clipDisplay(ev.ToolOutput)
	sb.WriteString("<div class=\"detail-section\"><div class=\"detail-label\">Tool Output</div><div class=\"detail-value\"><pre>")
	sb.WriteString(esc(output))
	sb.WriteString("</pre>")
	if clipped || ev.OriginalOutputSize != nil {
		size := len(ev.ToolOutput)
		if ev.OriginalOutputSize != nil {
			size = *ev.OriginalOutputSize
		}
		fmt.Fprintf(sb, "<div class=\"truncation-indicator\">Output truncated (original size: %.1f KB)</div>", float64(size)/1024)
	}
	sb.WriteString("</div></div>\n")

	fmt.Fprintf(sb, "<div class=\"detail-meta\"><span>Duration: %dms</span><span>Working Dir: %s</span></div>\n", ev.DurationMS, esc(orNA(ev.WorkingDir)))

	if len(ev.FilesAccessed) > 0 {
		fmt.Fprintf(sb, "<div class=\"detail-section\"><div class=\"detail-label\">Files Accessed (%d)</div><ul class=\"files-list\">", len(ev.FilesAccessed))
		for _, f := range ev.FilesAccessed {
			fmt.Fprintf(sb, "<li>%s</li>", esc(f))
		}
		sb.WriteString("</ul></div>\n")
	}

	if ev.Verdict == verdict.Warned || ev.Verdict == verdict.Blocked {
		sev := ev.Severity.String()
		sb.WriteString("<div class=\"nova-verdict-section\"><div class=\"detail-label\">NOVA Analysis</div>")
		fmt.Fprintf(sb, "<div>Severity: <span class=\"nova-severity %s\">%s</span></div>", sev, sev)
		fmt.Fprintf(sb, "<div>Rules matched: %s</div>", esc(strings.Join(ev.RulesMatched, ", ")))
		fmt.Fprintf(sb, "<div>Scan time: %dms</div></div>\n", ev.ScanTimeMS)
	}
	sb.WriteString("</div>\n</div>\n")
}

func verdictClass(v verdict.Verdict) string {
	switch v {
	case verdict.Warned, verdict.Blocked, verdict.ScanFailed:
		return string(v)
	default:
		return string(verdict.Allowed)
	}
}

func prettyJSON(v map[string]any) string {
	if v == nil {
		v = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// clipDisplay shortens text to DisplayLimit characters.
func clipDisplay(text string) (string, bool) {
	if len(text) <= DisplayLimit {
		return text, false
	}
	runes := []rune(text)
	if len(runes) <= DisplayLimit {
		return text, false
	}
	return string(runes[:DisplayLimit]), true
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.UTC().Format("15:04:05")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
