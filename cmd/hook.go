package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Nova-Hunting/nova-tracer/internal/config"
	"github.com/Nova-Hunting/nova-tracer/internal/guard"
	"github.com/Nova-Hunting/nova-tracer/internal/hook"
	"github.com/Nova-Hunting/nova-tracer/internal/logging"
	"github.com/Nova-Hunting/nova-tracer/internal/recorder"
	"github.com/Nova-Hunting/nova-tracer/internal/report"
	"github.com/Nova-Hunting/nova-tracer/internal/session"
	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
	"github.com/Nova-Hunting/nova-tracer/internal/version"
)

// Hook commands never fail the host: every error is logged and the command
// exits 0. The only non-zero status is the pre-tool block.
var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Lifecycle hooks invoked by the agent runtime",
	// Hooks resolve their project from the request and load config there.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

// hookEnv is what every hook handler needs once the request is parsed.
type hookEnv struct {
	ctx        context.Context
	in         *hook.Input
	projectDir string
	cfg        *config.Config
	store      session.SessionStore
}

// setupHook reads the request and loads the project's state. A request that
// cannot be read is returned as an error; optional allows an empty one.
func setupHook(cmd *cobra.Command, name string, optional bool) (*hookEnv, error) {
	ctx := logging.WithComponent(cmdContext(cmd), name)
	in, readErr := hook.Read(cmd.InOrStdin())
	if readErr != nil {
		in = &hook.Input{ToolInput: map[string]any{}}
	}
	dir := projectDir(in)
	c := loadConfig(cmd, dir)
	if readErr != nil {
		if !optional {
			logging.Warn(ctx, "ignoring hook request", "error", readErr)
			return nil, readErr
		}
		logging.Debug(ctx, "no hook request, using defaults", "error", readErr)
	}
	return &hookEnv{
		ctx:        ctx,
		in:         in,
		projectDir: dir,
		cfg:        c,
		store:      session.NewSessionStore(dir),
	}, nil
}

var sessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Start or resume the project's session",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupHook(cmd, "session-start", true)
		if err != nil {
			return nil
		}
		t := now()
		id, resumed, err := env.store.Init(session.GenerateID(t), t, version.Short())
		if err != nil {
			logging.Warn(env.ctx, "could not start session", "error", err)
			return nil
		}
		if resumed {
			logging.Info(env.ctx, "resumed active session", "session", id)
		} else {
			logging.Info(env.ctx, "started session", "session", id)
		}
		return nil
	},
}

var preToolCmd = &cobra.Command{
	Use:   "pre-tool",
	Short: "Check a tool call before it runs; exits 2 to block",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupHook(cmd, "pre-tool", false)
		if err != nil || env.in.ToolName == "" {
			return nil
		}
		start := now()
		g := &guard.Guard{
			Scanner:          newScanner(),
			RulesDir:         env.cfg.RulesDir(env.projectDir),
			MinSeverity:      env.cfg.MinSeverity,
			MaxContentLength: env.cfg.MaxContentLength,
			Compliance:       guard.LoadCompliance(env.projectDir),
		}
		dec := g.Check(env.ctx, env.in.ToolName, env.in.ToolInput)
		if dec.Outcome.Err != nil {
			logging.Warn(env.ctx, "pre-tool scan failed, allowing", "tool", env.in.ToolName, "error", dec.Outcome.Err)
		}

		id, active := activeSession(env)
		if !dec.Block {
			if active && env.in.ToolUseID != "" {
				if err := env.store.MarkToolStart(id, env.in.ToolUseID, start); err != nil {
					logging.Debug(env.ctx, "could not record start time", "error", err)
				}
			}
			return nil
		}

		// The post-tool hook never runs for a refused call, so record it here.
		if active {
			obs := recorder.Observation{
				ToolName:   env.in.ToolName,
				ToolInput:  env.in.ToolInput,
				Output:     dec.Reason,
				Start:      start,
				End:        now(),
				WorkingDir: env.projectDir,
			}
			ev := recorder.BuildEvent(env.store.NextSequenceID(id), obs, dec.Outcome, env.cfg.MaxOutputBytes())
			if err := env.store.Append(id, ev); err != nil {
				logging.Warn(env.ctx, "could not record blocked call", "error", err)
			}
		}
		logging.Info(env.ctx, "blocked tool call", "tool", env.in.ToolName, "reason", dec.Reason)
		if err := hook.WriteDecision(cmd.OutOrStdout(), hook.Block(dec.Reason)); err != nil {
			logging.Warn(env.ctx, "could not write decision", "error", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), dec.Reason)
		return &ExitError{Code: hook.ExitBlock}
	},
}

var postToolCmd = &cobra.Command{
	Use:   "post-tool",
	Short: "Scan and record a completed tool call",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupHook(cmd, "post-tool", false)
		if err != nil || env.in.ToolName == "" {
			return nil
		}
		end := now()

		id, active := activeSession(env)
		if !active {
			// The session-start hook was missed; open a session now.
			var err error
			id, _, err = env.store.Init(session.GenerateID(end), end, version.Short())
			if err != nil {
				logging.Warn(env.ctx, "could not start session", "error", err)
				return nil
			}
		}
		start, ok := env.store.TakeToolStart(id, env.in.ToolUseID)
		if !ok {
			start = end
		}

		output := guard.ExtractOutputText(env.in.ToolResponse)
		outcome := verdict.Evaluate(env.ctx, newScanner(), env.cfg.RulesDir(env.projectDir), env.cfg.MinSeverity,
			guard.ExtractInputText(env.in.ToolInput), output)
		if outcome.Err != nil {
			logging.Warn(env.ctx, "scan failed", "tool", env.in.ToolName, "error", outcome.Err)
		}

		obs := recorder.Observation{
			ToolName:   env.in.ToolName,
			ToolInput:  env.in.ToolInput,
			Output:     output,
			Start:      start,
			End:        end,
			WorkingDir: workingDir(env),
		}
		ev := recorder.BuildEvent(env.store.NextSequenceID(id), obs, outcome, env.cfg.MaxOutputBytes())
		if err := env.store.Append(id, ev); err != nil {
			logging.Warn(env.ctx, "could not append event", "error", err)
		}

		res := outcome.Result()
		if len(res.Detections) == 0 {
			return nil
		}
		warning := guard.FormatWarning(res.Detections, env.in.ToolName, guard.Source(env.in.ToolName, env.in.ToolInput))
		if err := hook.WriteDecision(cmd.OutOrStdout(), hook.Block(warning)); err != nil {
			logging.Warn(env.ctx, "could not write warning", "error", err)
		}
		return nil
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "session-end",
	Short: "Finalize the session and write its report",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupHook(cmd, "session-end", true)
		if err != nil {
			return nil
		}
		id, active := activeSession(env)
		if !active {
			logging.Info(env.ctx, "no active session to finalize")
			return nil
		}
		log, err := env.store.Finalize(id)
		if err != nil {
			logging.Warn(env.ctx, "could not read session log", "session", id, "error", err)
			return nil
		}
		s := session.Build(id, log, now(), version.Short())
		path := filepath.Join(report.Dir(env.cfg.ReportOutputDir, env.projectDir), id+".html")
		if err := writeReport(env.ctx, s, env.cfg, &report.HTMLRenderer{}, path); err != nil {
			logging.Warn(env.ctx, "could not write report", "path", path, "error", err)
			return nil
		}
		logging.Info(env.ctx, "report saved", "path", path)
		return nil
	},
}

// activeSession returns the project's active session id, if any.
func activeSession(env *hookEnv) (string, bool) {
	id, err := env.store.ActiveSession()
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			logging.Warn(env.ctx, "could not read active session", "error", err)
		}
		return "", false
	}
	return id, true
}

func workingDir(env *hookEnv) string {
	if env.in.Cwd != "" {
		return env.in.Cwd
	}
	return env.projectDir
}

// writeReport compiles s and writes it to path with r.
func writeReport(ctx context.Context, s *session.Session, c *config.Config, r report.Renderer, path string) error {
	report.Compile(ctx, s, newSummary(c))
	data, err := r.Render(s)
	if err != nil {
		return err
	}
	return report.Save(data, path)
}

func init() {
	hookCmd.AddCommand(sessionStartCmd, preToolCmd, postToolCmd, sessionEndCmd)
	rootCmd.AddCommand(hookCmd)
}
