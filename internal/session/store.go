package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/Nova-Hunting/nova-tracer/internal/logging"
	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

// ErrNoSession is returned when no session is active for the project.
var ErrNoSession = errors.New("no active session")

// DirName is the per-project state directory.
const DirName = ".nova-tracer"

const (
	activeMarker = ".active"
	logExt       = ".jsonl"
	pendingExt   = ".pending"
)

// SessionStore owns the on-disk session state of one project directory.
type SessionStore interface {
	Paths() Paths
	// ActiveSession returns the id marked active, or ErrNoSession.
	ActiveSession() (string, error)
	// Init creates the log for id and marks it active. When a session is
	// already active it returns that id with resumed set and writes nothing.
	Init(id string, start time.Time, version string) (active string, resumed bool, err error)
	// Append writes one event record to the end of the log.
	Append(id string, ev Event) error
	// NextSequenceID returns one past the highest event id in the log, or 1.
	NextSequenceID(id string) int
	// Read reconstructs the log without touching the active marker.
	Read(id string) (*Log, error)
	// Finalize clears the active marker and returns the reconstructed log.
	Finalize(id string) (*Log, error)
	MarkToolStart(id, toolUseID string, t time.Time) error
	TakeToolStart(id, toolUseID string) (time.Time, bool)
	List() ([]Info, error)
	LogPath(id string) string
}

// Paths are the canonical storage locations under a project root.
type Paths struct {
	Root     string
	Sessions string
	Reports  string
}

// ResolvePaths returns the storage locations for projectDir, creating them
// when absent. Creation failures are logged and the intended paths are still
// returned; the first write into them will fail and be handled there.
func ResolvePaths(projectDir string) Paths {
	root := filepath.Join(projectDir, DirName)
	p := Paths{
		Root:     root,
		Sessions: filepath.Join(root, "sessions"),
		Reports:  filepath.Join(root, "reports"),
	}
	for _, dir := range []string{p.Sessions, p.Reports} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.Warn(logging.WithComponent(context.Background(), "session"),
				"could not create state directory", "path", dir, "error", err)
		}
	}
	return p
}

// diskStore is the concrete SessionStore backed by files under .nova-tracer.
type diskStore struct {
	projectDir string
	paths      Paths
}

// NewSessionStore returns a SessionStore for projectDir.
func NewSessionStore(projectDir string) SessionStore {
	return &diskStore{projectDir: projectDir, paths: ResolvePaths(projectDir)}
}

func (d *diskStore) Paths() Paths { return d.paths }

func (d *diskStore) LogPath(id string) string {
	return filepath.Join(d.paths.Sessions, id+logExt)
}

func (d *diskStore) markerPath() string {
	return filepath.Join(d.paths.Sessions, activeMarker)
}

func (d *diskStore) ActiveSession() (string, error) {
	data, err := os.ReadFile(d.markerPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("failed to read active session marker: %w", err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", ErrNoSession
	}
	return id, nil
}

func (d *diskStore) Init(id string, start time.Time, version string) (string, bool, error) {
	if active, err := d.ActiveSession(); err == nil {
		if _, statErr := os.Stat(d.LogPath(active)); statErr == nil {
			return active, true, nil
		}
		// The marker points at a log that no longer exists; replace it.
	}

	rec := InitRecord{
		Type:       RecordInit,
		SessionID:  id,
		StartTime:  start.UTC(),
		Platform:   runtime.GOOS,
		ProjectDir: d.projectDir,
		Version:    version,
	}
	f, err := os.OpenFile(d.LogPath(id), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", false, fmt.Errorf("failed to create session log: %w", err)
	}
	info, err := f.Stat()
	if err == nil && info.Size() == 0 {
		err = writeRecord(f, rec)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to write session header: %w", err)
	}

	if err := d.writeMarker(id); err != nil {
		return "", false, err
	}
	return id, false, nil
}

// writeMarker replaces the active marker atomically via a temp file + os.Rename.
func (d *diskStore) writeMarker(id string) (err error) {
	tmp, err := os.CreateTemp(d.paths.Sessions, "active-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to mark session active: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.WriteString(id + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to mark session active: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to mark session active: %w", err)
	}
	if err = os.Rename(tmpName, d.markerPath()); err != nil {
		return fmt.Errorf("failed to mark session active: %w", err)
	}
	return nil
}

func (d *diskStore) Append(id string, ev Event) error {
	if ev.Type == "" {
		ev.Type = RecordEvent
	}
	if ev.FilesAccessed == nil {
		ev.FilesAccessed = []string{}
	}
	if ev.RulesMatched == nil {
		ev.RulesMatched = []string{}
	}

	f, err := os.OpenFile(d.LogPath(id), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	err = writeRecord(f, ev)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to append event %d: %w", ev.ID, err)
	}
	return nil
}

// writeRecord encodes v and writes it plus its newline in a single call so a
// killed process can leave at most one partial line behind.
func writeRecord(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (d *diskStore) NextSequenceID(id string) int {
	log, err := d.Read(id)
	if err != nil {
		return 1
	}
	highest := 0
	for _, ev := range log.Events {
		if ev.ID > highest {
			highest = ev.ID
		}
	}
	return highest + 1
}

func (d *diskStore) Read(id string) (*Log, error) {
	f, err := os.Open(d.LogPath(id))
	if err != nil {
		return &Log{Events: []Event{}}, fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()
	return ReadLog(f), nil
}

// ReadLog reconstructs a log from r. Lines that do not parse are skipped and
// counted; records of unknown type are ignored. It never fails: a read error
// part-way through ends the scan and returns what was recovered.
func ReadLog(r io.Reader) *Log {
	log := &Log{Events: []Event{}}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			parseLine(log, trimmed)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Skipped++
			}
			break
		}
	}
	sort.SliceStable(log.Events, func(i, j int) bool { return log.Events[i].ID < log.Events[j].ID })
	return log
}

func parseLine(log *Log, line []byte) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		log.Skipped++
		return
	}
	switch probe.Type {
	case RecordInit:
		var rec InitRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Skipped++
			return
		}
		if log.Init == nil {
			log.Init = &rec
		}
	case RecordEvent:
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil || ev.ID < 1 {
			log.Skipped++
			return
		}
		if ev.FilesAccessed == nil {
			ev.FilesAccessed = []string{}
		}
		if ev.RulesMatched == nil {
			ev.RulesMatched = []string{}
		}
		if ev.Verdict == "" {
			ev.Verdict = verdict.Allowed
		}
		log.Events = append(log.Events, ev)
	}
}

func (d *diskStore) Finalize(id string) (*Log, error) {
	if active, err := d.ActiveSession(); err == nil && active == id {
		if err := os.Remove(d.markerPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warn(logging.WithComponent(context.Background(), "session"),
				"could not clear active marker", "session_id", id, "error", err)
		}
	}
	_ = os.RemoveAll(d.pendingDir(id))
	return d.Read(id)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

func (d *diskStore) pendingDir(id string) string {
	return filepath.Join(d.paths.Sessions, id+pendingExt)
}

func (d *diskStore) pendingPath(id, toolUseID string) string {
	return filepath.Join(d.pendingDir(id), unsafeName.ReplaceAllString(toolUseID, "_"))
}

// MarkToolStart remembers when the pre-tool hook saw toolUseID so the
// post-tool hook can compute the call's duration.
func (d *diskStore) MarkToolStart(id, toolUseID string, t time.Time) error {
	if toolUseID == "" {
		return nil
	}
	if err := os.MkdirAll(d.pendingDir(id), 0o755); err != nil {
		return fmt.Errorf("failed to record tool start: %w", err)
	}
	if err := os.WriteFile(d.pendingPath(id, toolUseID), []byte(t.UTC().Format(time.RFC3339Nano)), 0o644); err != nil {
		return fmt.Errorf("failed to record tool start: %w", err)
	}
	return nil
}

// TakeToolStart returns and forgets the start time recorded for toolUseID.
func (d *diskStore) TakeToolStart(id, toolUseID string) (time.Time, bool) {
	if toolUseID == "" {
		return time.Time{}, false
	}
	path := d.pendingPath(id, toolUseID)
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, false
	}
	os.Remove(path)
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Info describes one recorded session for listings.
type Info struct {
	ID       string
	Start    time.Time
	Events   int
	Warnings int
	Blocked  int
	Skipped  int
	Active   bool
}

// List returns every session log in the project, newest first.
func (d *diskStore) List() ([]Info, error) {
	matches, err := filepath.Glob(filepath.Join(d.paths.Sessions, "*"+logExt))
	if err != nil {
		return nil, err
	}
	active, _ := d.ActiveSession()

	infos := make([]Info, 0, len(matches))
	for _, path := range matches {
		id := strings.TrimSuffix(filepath.Base(path), logExt)
		log, err := d.Read(id)
		if err != nil {
			continue
		}
		info := Info{ID: id, Events: len(log.Events), Skipped: log.Skipped, Active: id == active}
		if log.Init != nil {
			info.Start = log.Init.StartTime
		}
		for _, ev := range log.Events {
			switch ev.Verdict {
			case verdict.Warned:
				info.Warnings++
			case verdict.Blocked:
				info.Blocked++
			}
		}
		infos = append(infos, info)
	}
	// Ids start with a sortable timestamp.
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID > infos[j].ID })
	return infos, nil
}
