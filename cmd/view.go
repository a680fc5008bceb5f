package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/Nova-Hunting/nova-tracer/internal/report"
	"github.com/Nova-Hunting/nova-tracer/internal/session"
	"github.com/Nova-Hunting/nova-tracer/internal/tui"
)

var plainOutput bool

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "View a saved HTML or JSON session report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		s, err := report.Load(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("file not found: %s", path)
			}
			return err
		}

		if plainOutput || !term.IsTerminal(os.Stdout.Fd()) {
			printSession(cmd.OutOrStdout(), s)
			return nil
		}
		return tui.Run(s, path)
	},
}

// printSession writes a plain-text rendition of s to w.
func printSession(w io.Writer, s *session.Session) {
	sum := s.Summary
	fmt.Fprintln(w, "## Summary")
	fmt.Fprintf(w, "  Session:   %s\n", s.ID)
	fmt.Fprintf(w, "  Health:    %s\n", report.Health(sum.Warnings, sum.Blocked))
	fmt.Fprintf(w, "  Project:   %s\n", orNA(s.ProjectDir))
	fmt.Fprintf(w, "  Started:   %s\n", s.StartTime.Format("2006-01-02 15:04:05 MST"))
	if s.EndTime != nil {
		fmt.Fprintf(w, "  Ended:     %s\n", s.EndTime.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(w, "  Duration:  %s\n", session.FormatDuration(sum.DurationSeconds))
	fmt.Fprintf(w, "  Events:    %d (%d warnings, %d blocked)\n", sum.TotalEvents, sum.Warnings, sum.Blocked)
	fmt.Fprintf(w, "  Files:     %d\n", sum.FilesTouched)
	if sum.AISummary != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, indent(sum.AISummary, "  "))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Events")
	if len(s.Events) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, ev := range s.Events {
		fmt.Fprintf(w, "  #%d %s %s (%s, %dms)\n", ev.ID, ev.TimestampStart.Format("15:04:05"), ev.ToolName, ev.Verdict, ev.DurationMS)
		for _, f := range ev.FilesAccessed {
			fmt.Fprintf(w, "      %s\n", f)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Detections")
	found := false
	for _, ev := range s.Events {
		if len(ev.RulesMatched) == 0 {
			continue
		}
		found = true
		fmt.Fprintf(w, "  #%d %s [%s] %s\n", ev.ID, ev.ToolName, ev.Severity, strings.Join(ev.RulesMatched, ", "))
	}
	if !found {
		fmt.Fprintln(w, "  (none)")
	}
	if s.SkippedLines > 0 {
		fmt.Fprintf(w, "\n%d log lines could not be parsed and were skipped.\n", s.SkippedLines)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func init() {
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	rootCmd.AddCommand(viewCmd)
}
