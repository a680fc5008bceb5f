package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Nova-Hunting/nova-tracer/internal/logging"
	"github.com/Nova-Hunting/nova-tracer/internal/report"
	"github.com/Nova-Hunting/nova-tracer/internal/session"
	"github.com/Nova-Hunting/nova-tracer/internal/version"
)

var (
	reportFormat string
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report [session-id]",
	Short: "Generate a report for a session (default: active or most recent)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := projectDir(nil)
		store := session.NewSessionStore(dir)

		var renderer report.Renderer
		switch reportFormat {
		case "html":
			renderer = &report.HTMLRenderer{}
		case "json":
			renderer = &report.JSONRenderer{}
		default:
			return fmt.Errorf("unknown format %q: want html or json", reportFormat)
		}

		id := ""
		if len(args) == 1 {
			id = args[0]
		} else {
			var err error
			if id, err = latestSession(store); err != nil {
				return err
			}
		}

		log, err := store.Read(id)
		if err != nil {
			return fmt.Errorf("session %s: %w", id, err)
		}
		active, _ := store.ActiveSession()
		end := now()
		if id != active && len(log.Events) > 0 {
			end = log.Events[len(log.Events)-1].TimestampEnd
		}
		s := session.Build(id, log, end, version.Short())

		path := reportOutput
		if path == "" {
			path = filepath.Join(report.Dir(cfg.ReportOutputDir, dir), id+"."+reportFormat)
		}
		ctx := logging.WithComponent(cmdContext(cmd), "report")
		if err := writeReport(ctx, s, cfg, renderer, path); err != nil {
			return err
		}
		cmd.Println(path)
		return nil
	},
}

// latestSession returns the active session, else the newest logged one.
func latestSession(store session.SessionStore) (string, error) {
	id, err := store.ActiveSession()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, session.ErrNoSession) {
		return "", err
	}
	infos, err := store.List()
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", errors.New("no sessions recorded in this project")
	}
	return infos[0].ID, nil
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "html", "output format: html or json")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "output path (default: the reports directory)")
	rootCmd.AddCommand(reportCmd)
}
