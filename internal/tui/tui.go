// Package tui provides a Bubble Tea TUI for viewing session reports.
package tui

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Nova-Hunting/nova-tracer/internal/report"
	"github.com/Nova-Hunting/nova-tracer/internal/session"
	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	bulletStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))

	// Verdict colours follow the HTML report palette.
	verdictStyles = map[verdict.Verdict]lipgloss.Style{
		verdict.Allowed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")).Bold(true),
		verdict.Warned:     lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b")).Bold(true),
		verdict.Blocked:    lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true),
		verdict.ScanFailed: lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")).Bold(true),
	}

	healthStyles = map[string]lipgloss.Style{
		report.HealthClean:    lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("#22c55e")).Bold(true).Padding(0, 1),
		report.HealthWarnings: lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("#f59e0b")).Bold(true).Padding(0, 1),
		report.HealthBlocked:  lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("#ef4444")).Bold(true).Padding(0, 1),
	}
)

// VerdictStyle returns the style used to print v.
func VerdictStyle(v verdict.Verdict) lipgloss.Style {
	if s, ok := verdictStyles[v]; ok {
		return s
	}
	return verdictStyles[verdict.Allowed]
}

// HealthBadge renders the health label as a coloured badge.
func HealthBadge(health string) string {
	if s, ok := healthStyles[health]; ok {
		return s.Render(health)
	}
	return health
}

// ── Key bindings ─────────────────

type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Jump   key.Binding
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Sort   key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Next:   key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("→", "next tab")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("←", "prev tab")),
	Jump:   key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "jump")),
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
	Toggle: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "expand/collapse")),
	Sort:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ── Tab definitions ─────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabEvents
	tabDetections
	tabFiles
	tabTimeline
	tabCount
)

var tabNames = [tabCount]string{
	"Summary", "Events", "Detections", "Files", "Timeline",
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	session   *session.Session
	filename  string
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	sortAsc   bool
	// Events tab: cursor position and expanded set
	cursor   int
	expanded map[int]bool
}

// New creates a new TUI model for the given session and source filename.
func New(s *session.Session, filename string) Model {
	return Model{
		session:  s,
		filename: filepath.Base(filename),
		sortAsc:  true,
		expanded: make(map[int]bool),
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Next):
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case key.Matches(msg, keys.Prev):
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(msg, keys.Jump):
			m.activeTab = tabID(msg.String()[0] - '1')
			return m, nil
		case key.Matches(msg, keys.Sort):
			if m.activeTab == tabTimeline {
				m.sortAsc = !m.sortAsc
				m.refresh(tabTimeline)
				m.viewports[tabTimeline].GotoTop()
			}
			return m, nil
		case key.Matches(msg, keys.Up):
			if m.activeTab == tabEvents && m.cursor > 0 {
				m.cursor--
				m.refresh(tabEvents)
				return m, nil
			}
		case key.Matches(msg, keys.Down):
			if m.activeTab == tabEvents && m.cursor < len(m.session.Events)-1 {
				m.cursor++
				m.refresh(tabEvents)
				return m, nil
			}
		case key.Matches(msg, keys.Toggle):
			if m.activeTab == tabEvents && len(m.session.Events) > 0 {
				if m.expanded[m.cursor] {
					delete(m.expanded, m.cursor)
				} else {
					m.expanded[m.cursor] = true
				}
				m.refresh(tabEvents)
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	sum := m.session.Summary
	title := titleStyle.Width(m.width).Render("  nova-tracer  " + m.filename)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabParts = append(tabParts, " ", HealthBadge(report.Health(sum.Warnings, sum.Blocked)))
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-5 jump  q quit"
	switch m.activeTab {
	case tabTimeline:
		dir := "newest first"
		if m.sortAsc {
			dir = "oldest first"
		}
		hint += "  s sort (" + dir + ")"
	case tabEvents:
		hint += "  enter expand/collapse"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + pct)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) refresh(t tabID) {
	m.viewports[t].SetContent(m.renderTab(t))
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabEvents:
		return m.renderEvents()
	case tabDetections:
		return m.renderDetections()
	case tabFiles:
		return m.renderFiles()
	case tabTimeline:
		return m.renderTimeline()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func bullet(text string) string {
	return bulletStyle.Render("  •") + "  " + text + "\n"
}

func (m *Model) renderSummary() string {
	s := m.session
	sum := s.Summary
	var sb strings.Builder
	sb.WriteString(heading("Session Summary"))
	if sum.AISummary != "" {
		sb.WriteString("  " + sum.AISummary + "\n")
	}

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", label)) + "  " + value + "\n")
	}
	sb.WriteString(heading("Session"))
	row("Session ID:", orDash(s.ID))
	row("Project:", orDash(s.ProjectDir))
	row("Platform:", orDash(s.Platform))
	row("Version:", orDash(s.Version))
	row("Started:", formatTime(s.StartTime.IsZero(), s.StartTime.Format("2006-01-02 15:04:05 MST")))
	if s.EndTime != nil {
		row("Ended:", s.EndTime.Format("2006-01-02 15:04:05 MST"))
	} else {
		row("Ended:", dimStyle.Render("(still active)"))
	}
	row("Duration:", session.FormatDuration(sum.DurationSeconds))

	sb.WriteString(heading("Counts"))
	row("Events:", fmt.Sprint(sum.TotalEvents))
	row("Files:", fmt.Sprint(sum.FilesTouched))
	row("Warnings:", VerdictStyle(verdict.Warned).Render(fmt.Sprint(sum.Warnings)))
	row("Blocked:", VerdictStyle(verdict.Blocked).Render(fmt.Sprint(sum.Blocked)))
	if s.SkippedLines > 0 {
		row("Skipped:", fmt.Sprintf("%d unreadable log lines", s.SkippedLines))
	}

	if len(sum.ToolsUsed) > 0 {
		sb.WriteString(heading("Tools"))
		for _, name := range sortedTools(sum.ToolsUsed) {
			sb.WriteString(bullet(fmt.Sprintf("%-14s %d", name, sum.ToolsUsed[name])))
		}
	}
	return sb.String()
}

func (m *Model) renderEvents() string {
	events := m.session.Events
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Events (%d)", len(events))))
	if len(events) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for i, ev := range events {
		toggle := dimStyle.Render("  ▶ ")
		if m.expanded[i] {
			toggle = dimStyle.Render("  ▼ ")
		}
		row := fmt.Sprintf("%s%s  #%-4d %-12s %s", toggle,
			timeStyle.Render(ev.TimestampStart.Format("15:04:05")),
			ev.ID, ev.ToolName, VerdictStyle(ev.Verdict).Render(strings.ToUpper(string(ev.Verdict))))
		if i == m.cursor {
			row = selectedRowStyle.Width(m.width - 2).Render(row)
		}
		sb.WriteString(row + "\n")
		if m.expanded[i] {
			sb.WriteString(renderEventDetail(ev))
		}
	}
	return sb.String()
}

func renderEventDetail(ev session.Event) string {
	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("      %-12s", label)) + " " + value + "\n")
	}
	row("Duration:", fmt.Sprintf("%dms", ev.DurationMS))
	row("Working dir:", orDash(ev.WorkingDir))
	if ev.Verdict == verdict.Warned || ev.Verdict == verdict.Blocked {
		row("Severity:", ev.Severity.String())
		row("Rules:", strings.Join(ev.RulesMatched, ", "))
		row("Scan time:", fmt.Sprintf("%dms", ev.ScanTimeMS))
	}
	for _, f := range ev.FilesAccessed {
		row("File:", f)
	}
	if input, err := json.MarshalIndent(ev.ToolInput, "", "  "); err == nil {
		sb.WriteString(labelStyle.Render("      Input:") + "\n")
		sb.WriteString(dimStyle.Render(indent(string(input), "        ")) + "\n")
	}
	if ev.ToolOutput != "" {
		sb.WriteString(labelStyle.Render("      Output:") + "\n")
		sb.WriteString(dimStyle.Render(indent(clip(ev.ToolOutput, 2000), "        ")) + "\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func (m *Model) renderDetections() string {
	var flagged []session.Event
	for _, ev := range m.session.Events {
		if ev.Verdict == verdict.Warned || ev.Verdict == verdict.Blocked {
			flagged = append(flagged, ev)
		}
	}
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Detections (%d)", len(flagged))))
	if len(flagged) == 0 {
		sb.WriteString(dimStyle.Render("  (no warnings or blocks in this session)") + "\n")
		return sb.String()
	}
	for _, ev := range flagged {
		badge := VerdictStyle(ev.Verdict).Render(fmt.Sprintf("%-8s", strings.ToUpper(string(ev.Verdict))))
		sb.WriteString(fmt.Sprintf("  %s  %s  #%d %s  [%s]\n", timeStyle.Render(ev.TimestampStart.Format("15:04:05")), badge, ev.ID, ev.ToolName, ev.Severity))
		for _, r := range ev.RulesMatched {
			sb.WriteString("    " + bullet(r))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderFiles() string {
	counts := map[string]int{}
	for _, ev := range m.session.Events {
		for _, f := range ev.FilesAccessed {
			counts[f]++
		}
	}
	files := make([]string, 0, len(counts))
	for f := range counts {
		files = append(files, f)
	}
	sort.Strings(files)

	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Files (%d)", len(files))))
	if len(files) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for _, f := range files {
		sb.WriteString(bullet(fmt.Sprintf("%s %s", stripWorkDir(f, m.session.ProjectDir), dimStyle.Render(fmt.Sprintf("(%d)", counts[f])))))
	}
	return sb.String()
}

func (m *Model) renderTimeline() string {
	var sb strings.Builder
	dir := "newest first"
	if m.sortAsc {
		dir = "oldest first"
	}
	sb.WriteString(heading(fmt.Sprintf("Timeline (%s)", dir)))

	events := make([]session.Event, len(m.session.Events))
	copy(events, m.session.Events)
	sort.SliceStable(events, func(i, j int) bool {
		if m.sortAsc {
			return events[i].ID < events[j].ID
		}
		return events[i].ID > events[j].ID
	})

	if len(events) == 0 {
		sb.WriteString(dimStyle.Render("  (no events in this session)") + "\n")
		return sb.String()
	}
	for _, ev := range events {
		ts := timeStyle.Render(ev.TimestampStart.Format("15:04:05"))
		marker := VerdictStyle(ev.Verdict).Render("●")
		sb.WriteString(fmt.Sprintf("  %s  %s  %-12s %s\n", ts, marker, ev.ToolName, dimStyle.Render(eventSubject(ev))))
	}
	return sb.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func sortedTools(tools map[string]int) []string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if tools[names[i]] != tools[names[j]] {
			return tools[names[i]] > tools[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// eventSubject is a one-line description of what the event touched.
func eventSubject(ev session.Event) string {
	if len(ev.FilesAccessed) > 0 {
		return ev.FilesAccessed[0]
	}
	if cmd, ok := ev.ToolInput["command"].(string); ok {
		return clip(strings.ReplaceAll(cmd, "\n", " "), 60)
	}
	for _, k := range []string{"url", "query", "pattern", "description"} {
		if v, ok := ev.ToolInput[k].(string); ok && v != "" {
			return clip(v, 60)
		}
	}
	return ""
}

// stripWorkDir removes the workDir prefix from path, returning a relative path.
// If path doesn't start with workDir, it's returned unchanged.
func stripWorkDir(path, workDir string) string {
	if workDir == "" {
		return path
	}
	prefix := workDir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if strings.HasPrefix(path, prefix) {
		return path[len(prefix):]
	}
	return path
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTime(zero bool, formatted string) string {
	if zero {
		return "-"
	}
	return formatted
}

// Run starts the TUI for the given session.
func Run(s *session.Session, filename string) error {
	p := tea.NewProgram(New(s, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
