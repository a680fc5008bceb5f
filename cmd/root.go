package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nova-Hunting/nova-tracer/internal/config"
	"github.com/Nova-Hunting/nova-tracer/internal/hook"
	"github.com/Nova-Hunting/nova-tracer/internal/logging"
	"github.com/Nova-Hunting/nova-tracer/internal/report"
	"github.com/Nova-Hunting/nova-tracer/internal/rules"
	"github.com/Nova-Hunting/nova-tracer/internal/summary"
	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
	"github.com/Nova-Hunting/nova-tracer/internal/version"
)

// projectFlag overrides project directory detection.
var projectFlag string

// cfg is the configuration loaded for non-hook commands.
var cfg *config.Config

// Seams replaced by tests.
var (
	now        = time.Now
	newScanner = func() verdict.Scanner { return rules.NewEngine(0) }
	newSummary = func(c *config.Config) report.Summarizer {
		return summary.NewService(summary.Options{
			Enabled: c.AISummaryEnabled,
			Model:   c.SummaryModel,
			Timeout: c.SummaryTimeout,
		})
	}
)

// ExitError carries a process exit status out of a command without printing
// an error message.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

var rootCmd = &cobra.Command{
	Use:     "nova-tracer",
	Short:   "Audit trail and threat scanning for AI coding agent tool calls",
	Version: version.Info(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = loadConfig(cmd, projectDir(nil))
		return nil
	},
	SilenceUsage: true,
}

// loadConfig reads the layered config for projectDir, points logging at the
// command's stderr and reports load warnings there.
func loadConfig(cmd *cobra.Command, projectDir string) *config.Config {
	c := config.Load(projectDir)
	logging.Init(cmd.ErrOrStderr(), c.LogLevel)
	ctx := logging.WithComponent(cmdContext(cmd), "config")
	for _, w := range c.Warnings {
		logging.Warn(ctx, w)
	}
	return c
}

// projectDir returns --project when given, else the hook resolution order.
func projectDir(in *hook.Input) string {
	if projectFlag != "" {
		return projectFlag
	}
	return hook.ProjectDir(in)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Execute runs the root command. An ExitError exits with its code, any other
// error with 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectFlag, "project", "", "project directory (default: $CLAUDE_PROJECT_DIR or the working directory)")
	rootCmd.SilenceErrors = true
}
