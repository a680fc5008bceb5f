package cmd

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nova-Hunting/nova-tracer/internal/report"
	"github.com/Nova-Hunting/nova-tracer/internal/session"
	"github.com/Nova-Hunting/nova-tracer/internal/tui"
	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active session of the project",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := session.NewSessionStore(projectDir(nil))

		id, err := store.ActiveSession()
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				cmd.Println("no active session")
				return nil
			}
			return err
		}
		log, err := store.Read(id)
		if err != nil {
			return err
		}
		s := session.Build(id, log, time.Time{}, "")
		s.Summary = report.ComputeStats(s)

		cmd.Printf("Session: %s %s\n", id, tui.HealthBadge(report.Health(s.Summary.Warnings, s.Summary.Blocked)))
		if !s.StartTime.IsZero() {
			cmd.Printf("Started: %s\n", s.StartTime.Local().Format(time.RFC3339))
			cmd.Printf("Duration: %s\n", session.FormatDuration(int64(now().Sub(s.StartTime).Seconds())))
		}
		cmd.Printf("Events: %d\n", s.Summary.TotalEvents)
		cmd.Printf("Warnings: %s\n", tui.VerdictStyle(verdict.Warned).Render(strconv.Itoa(s.Summary.Warnings)))
		cmd.Printf("Blocked: %s\n", tui.VerdictStyle(verdict.Blocked).Render(strconv.Itoa(s.Summary.Blocked)))
		if s.SkippedLines > 0 {
			cmd.Printf("Skipped lines: %d\n", s.SkippedLines)
		}
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List the sessions recorded in the project, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := session.NewSessionStore(projectDir(nil))
		infos, err := store.List()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			cmd.Println("no sessions recorded")
			return nil
		}
		for _, info := range infos {
			marker := " "
			if info.Active {
				marker = "*"
			}
			started := "-"
			if !info.Start.IsZero() {
				started = info.Start.Local().Format("2006-01-02 15:04:05")
			}
			cmd.Printf("%s %s  %s  %d events  %d warnings  %d blocked\n",
				marker, info.ID, started, info.Events, info.Warnings, info.Blocked)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, sessionsCmd)
}
