package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

type fataler interface {
	Helper()
	Fatal(args ...any)
}

func writeFile(t fataler, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Feature: nova, Property: project config overrides global config, which overrides defaults
func TestConfigMergePrecedence(t *testing.T) {
	dirGen := rapid.StringMatching(`[a-z][a-z0-9_]{0,15}`)
	dir := t.TempDir()

	rapid.Check(t, func(t *rapid.T) {
		globalPath := filepath.Join(dir, "global.yaml")
		projectPath := filepath.Join(dir, "project.yaml")
		os.Remove(globalPath)
		os.Remove(projectPath)

		var globalVal, projectVal string
		if rapid.Bool().Draw(t, "hasGlobal") {
			globalVal = dirGen.Draw(t, "global")
			writeFile(t, globalPath, "report_output_dir: '"+globalVal+"'\n")
		}
		if rapid.Bool().Draw(t, "hasProject") {
			projectVal = dirGen.Draw(t, "project")
			writeFile(t, projectPath, "report_output_dir: '"+projectVal+"'\n")
		}

		cfg := LoadFiles(globalPath, projectPath)
		checkStringField(t, "ReportOutputDir", globalVal, projectVal, Defaults().ReportOutputDir, cfg.ReportOutputDir)
	})
}

// checkStringField asserts the merge precedence rule for a single string field:
//   - project non-empty  → merged == project
//   - project empty, global non-empty → merged == global
//   - both empty → merged == defaultVal
func checkStringField(t *rapid.T, name, globalVal, projectVal, defaultVal, mergedVal string) {
	t.Helper()
	switch {
	case projectVal != "":
		if mergedVal != projectVal {
			t.Fatalf("%s: both set, expected project value %q, got %q", name, projectVal, mergedVal)
		}
	case globalVal != "":
		if mergedVal != globalVal {
			t.Fatalf("%s: only global set, expected global value %q, got %q", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: neither set, expected default %q, got %q", name, defaultVal, mergedVal)
		}
	}
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	if !d.AISummaryEnabled {
		t.Error("AISummaryEnabled: want true")
	}
	if d.OutputTruncationKB != 10 {
		t.Errorf("OutputTruncationKB: want 10, got %d", d.OutputTruncationKB)
	}
	if d.MaxOutputBytes() != 10240 {
		t.Errorf("MaxOutputBytes: want 10240, got %d", d.MaxOutputBytes())
	}
	if d.MinSeverity != verdict.SeverityLow {
		t.Errorf("MinSeverity: want low, got %s", d.MinSeverity)
	}
	if d.SummaryTimeout != 15*time.Second {
		t.Errorf("SummaryTimeout: want 15s, got %s", d.SummaryTimeout)
	}
	if d.LogLevel != "warn" {
		t.Errorf("LogLevel: want warn, got %q", d.LogLevel)
	}
}

func TestLoadMissingFilesReturnsDefaults(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfg := Load(filepath.Join(tmp, "project"))
	if len(cfg.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", cfg.Warnings)
	}
	d := Defaults()
	if cfg.SummaryModel != d.SummaryModel || cfg.MaxContentLength != d.MaxContentLength || cfg.ReportOutputDir != "" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadGlobalAndProjectLocations(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)

	writeFile(t, filepath.Join(home, ".config", "nova-tracer", FileName), "ai_summary_enabled: false\nmin_severity: medium\n")
	writeFile(t, ProjectPath(project), "min_severity: high\noutput_truncation_kb: 64\n")

	cfg := Load(project)
	if cfg.AISummaryEnabled {
		t.Error("AISummaryEnabled: global false should apply")
	}
	if cfg.MinSeverity != verdict.SeverityHigh {
		t.Errorf("MinSeverity: project should win, got %s", cfg.MinSeverity)
	}
	if cfg.MaxOutputBytes() != 64*1024 {
		t.Errorf("MaxOutputBytes: want %d, got %d", 64*1024, cfg.MaxOutputBytes())
	}
}

func TestEnvironmentOverridesFiles(t *testing.T) {
	dir := t.TempDir()
	projectPath := filepath.Join(dir, "project.yaml")
	writeFile(t, projectPath, "log_level: info\nsummary_timeout: 30\n")
	t.Setenv("NOVA_TRACER_LOG_LEVEL", "debug")

	cfg := LoadFiles("", projectPath)
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: want env value debug, got %q", cfg.LogLevel)
	}
	if cfg.SummaryTimeout != 30*time.Second {
		t.Errorf("SummaryTimeout: bare number should be seconds, got %s", cfg.SummaryTimeout)
	}
}

func TestInvalidValuesFallBackWithWarnings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	writeFile(t, path, strings.Join([]string{
		"output_truncation_kb: 4096",
		"max_content_length: -1",
		"min_severity: extreme",
		"ai_summary_enabled: maybe",
		"summary_timeout: soon",
		"log_level: loud",
		"summary_model: '  '",
		"colour: blue",
	}, "\n"))

	cfg := LoadFiles("", path)
	d := Defaults()
	if cfg.OutputTruncationKB != d.OutputTruncationKB || cfg.MaxContentLength != d.MaxContentLength ||
		cfg.MinSeverity != d.MinSeverity || cfg.AISummaryEnabled != d.AISummaryEnabled ||
		cfg.SummaryTimeout != d.SummaryTimeout || cfg.LogLevel != d.LogLevel || cfg.SummaryModel != d.SummaryModel {
		t.Errorf("invalid values should keep defaults, got %+v", cfg)
	}
	// Seven rejected values plus one unknown key.
	if len(cfg.Warnings) != 8 {
		t.Fatalf("want 8 warnings, got %d: %v", len(cfg.Warnings), cfg.Warnings)
	}
	if !strings.Contains(cfg.Warnings[0], `unknown config key "colour"`) {
		t.Errorf("first warning should name the unknown key, got %q", cfg.Warnings[0])
	}
}

func TestParseErrorIsWarning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	writeFile(t, path, "report_output_dir: [unclosed\n")

	_, err := readFile(path)
	if err == nil {
		t.Fatal("expected an error for invalid YAML, got nil")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *ParseError, got %T: %v", err, err)
	}
	if parseErr != nil && parseErr.Path != path {
		t.Errorf("ParseError.Path: want %q, got %q", path, parseErr.Path)
	}

	cfg := LoadFiles("", path)
	if len(cfg.Warnings) != 1 || !strings.Contains(cfg.Warnings[0], path) {
		t.Errorf("want one warning naming %s, got %v", path, cfg.Warnings)
	}
	if cfg.ReportOutputDir != "" {
		t.Errorf("broken file should be ignored, got %q", cfg.ReportOutputDir)
	}
}

func TestRulesDir(t *testing.T) {
	cfg := Defaults()
	if got := cfg.RulesDir("/p"); got != "" {
		t.Errorf("empty CustomRulesDir: want \"\", got %q", got)
	}
	cfg.CustomRulesDir = "rules"
	if got := cfg.RulesDir("/p"); got != filepath.Join("/p", "rules") {
		t.Errorf("relative CustomRulesDir: got %q", got)
	}
	cfg.CustomRulesDir = "/abs/rules"
	if got := cfg.RulesDir("/p"); got != "/abs/rules" {
		t.Errorf("absolute CustomRulesDir: got %q", got)
	}
}
