package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Nova-Hunting/nova-tracer/internal/session"
	"github.com/Nova-Hunting/nova-tracer/internal/tui"
	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

var tailCmd = &cobra.Command{
	Use:   "tail [session-id]",
	Short: "Follow a session log as events are recorded",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := session.NewSessionStore(projectDir(nil))
		id := ""
		if len(args) == 1 {
			id = args[0]
		} else {
			var err error
			if id, err = store.ActiveSession(); err != nil {
				if errors.Is(err, session.ErrNoSession) {
					return errors.New("no active session to follow")
				}
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
		defer stop()
		done := func() bool {
			active, err := store.ActiveSession()
			return err != nil || active != id
		}
		return followLog(ctx, store.LogPath(id), cmd.OutOrStdout(), done)
	},
}

// followLog prints every event already in path, then watches the file and
// prints events as they are appended. Only complete lines are consumed. It
// returns when ctx is cancelled or, after a change, done reports true.
func followLog(ctx context.Context, path string, w io.Writer, done func() bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Watch the directory: the active marker lives beside the log.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	r := bufio.NewReader(f)
	var partial []byte
	drain := func() {
		for {
			line, err := r.ReadBytes('\n')
			partial = append(partial, line...)
			if err != nil {
				return
			}
			printLogLine(w, bytes.TrimSpace(partial))
			partial = partial[:0]
		}
	}

	drain()
	if done() {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name == path && event.Has(fsnotify.Write) {
				drain()
			}
			if done() {
				drain()
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func printLogLine(w io.Writer, line []byte) {
	if len(line) == 0 {
		return
	}
	var ev session.Event
	if err := json.Unmarshal(line, &ev); err != nil || ev.Type != session.RecordEvent {
		return
	}
	if ev.Verdict == "" {
		ev.Verdict = verdict.Allowed
	}
	fmt.Fprintf(w, "#%-4d %s  %-10s %s", ev.ID, ev.TimestampStart.Local().Format("15:04:05"),
		ev.ToolName, tui.VerdictStyle(ev.Verdict).Render(string(ev.Verdict)))
	if len(ev.RulesMatched) > 0 {
		fmt.Fprintf(w, "  [%s]", strings.Join(ev.RulesMatched, ", "))
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(tailCmd)
}
