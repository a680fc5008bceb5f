package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

// EnvPrefix prefixes the environment overrides, e.g. NOVA_TRACER_LOG_LEVEL.
const EnvPrefix = "NOVA_TRACER"

// FileName is the config file name in both the global and project locations.
const FileName = "config.yaml"

// Config keys.
const (
	KeyReportOutputDir    = "report_output_dir"
	KeyAISummaryEnabled   = "ai_summary_enabled"
	KeyOutputTruncationKB = "output_truncation_kb"
	KeyCustomRulesDir     = "custom_rules_dir"
	KeyMinSeverity        = "min_severity"
	KeyMaxContentLength   = "max_content_length"
	KeySummaryModel       = "summary_model"
	KeySummaryTimeout     = "summary_timeout"
	KeyLogLevel           = "log_level"
)

// Config holds all configurable tracer settings.
type Config struct {
	ReportOutputDir    string
	AISummaryEnabled   bool
	OutputTruncationKB int
	CustomRulesDir     string
	MinSeverity        verdict.Severity
	MaxContentLength   int
	SummaryModel       string
	SummaryTimeout     time.Duration
	LogLevel           string

	// Warnings collects problems found while loading: unreadable files,
	// unknown keys and rejected values. Loading itself never fails.
	Warnings []string
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		AISummaryEnabled:   true,
		OutputTruncationKB: 10,
		MinSeverity:        verdict.SeverityLow,
		MaxContentLength:   50000,
		SummaryModel:       "claude-3-5-haiku-20241022",
		SummaryTimeout:     15 * time.Second,
		LogLevel:           "warn",
	}
}

func defaultValues() map[string]any {
	d := Defaults()
	return map[string]any{
		KeyReportOutputDir:    d.ReportOutputDir,
		KeyAISummaryEnabled:   d.AISummaryEnabled,
		KeyOutputTruncationKB: d.OutputTruncationKB,
		KeyCustomRulesDir:     d.CustomRulesDir,
		KeyMinSeverity:        d.MinSeverity.String(),
		KeyMaxContentLength:   d.MaxContentLength,
		KeySummaryModel:       d.SummaryModel,
		KeySummaryTimeout:     d.SummaryTimeout.String(),
		KeyLogLevel:           d.LogLevel,
	}
}

// GlobalPath is ~/.config/nova-tracer/config.yaml, or "" without a home dir.
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nova-tracer", FileName)
}

// ProjectPath is <project>/.nova-tracer/config.yaml.
func ProjectPath(projectDir string) string {
	return filepath.Join(projectDir, ".nova-tracer", FileName)
}

// Load layers defaults, the global file, the project file and the
// environment, lowest precedence first.
func Load(projectDir string) *Config {
	return LoadFiles(GlobalPath(), ProjectPath(projectDir))
}

// LoadFiles is Load with explicit file locations. Empty paths are skipped.
func LoadFiles(globalPath, projectPath string) *Config {
	v := viper.New()
	for key, val := range defaultValues() {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var warnings []string
	for _, path := range []string{globalPath, projectPath} {
		if path == "" {
			continue
		}
		settings, err := readFile(path)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		if settings == nil {
			continue
		}
		for _, key := range unknownKeys(settings) {
			warnings = append(warnings, fmt.Sprintf("unknown config key %q in %s", key, path))
		}
		if err := v.MergeConfigMap(settings); err != nil {
			warnings = append(warnings, (&ParseError{Path: path, Err: err}).Error())
		}
	}

	cfg := decode(v)
	cfg.Warnings = append(warnings, cfg.Warnings...)
	return cfg
}

// readFile returns the settings in path, nil when the file is absent, or a
// ParseError.
func readFile(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	f := viper.New()
	f.SetConfigFile(path)
	f.SetConfigType("yaml")
	if err := f.ReadInConfig(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return f.AllSettings(), nil
}

func unknownKeys(settings map[string]any) []string {
	known := defaultValues()
	var out []string
	for key := range settings {
		if _, ok := known[strings.ToLower(key)]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// decode validates every key; a rejected value keeps its default.
func decode(v *viper.Viper) *Config {
	cfg := Defaults()
	reject := func(key string, val any, why string) {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid value %v for %s (%s), using default", val, key, why))
	}

	if s, err := cast.ToStringE(v.Get(KeyReportOutputDir)); err == nil {
		cfg.ReportOutputDir = s
	} else {
		reject(KeyReportOutputDir, v.Get(KeyReportOutputDir), "want a path")
	}
	if s, err := cast.ToStringE(v.Get(KeyCustomRulesDir)); err == nil {
		cfg.CustomRulesDir = s
	} else {
		reject(KeyCustomRulesDir, v.Get(KeyCustomRulesDir), "want a path")
	}

	if b, err := cast.ToBoolE(v.Get(KeyAISummaryEnabled)); err == nil {
		cfg.AISummaryEnabled = b
	} else {
		reject(KeyAISummaryEnabled, v.Get(KeyAISummaryEnabled), "want true or false")
	}

	if n, err := cast.ToIntE(v.Get(KeyOutputTruncationKB)); err == nil && n >= 1 && n <= 1024 {
		cfg.OutputTruncationKB = n
	} else {
		reject(KeyOutputTruncationKB, v.Get(KeyOutputTruncationKB), "want 1..1024")
	}
	if n, err := cast.ToIntE(v.Get(KeyMaxContentLength)); err == nil && n > 0 {
		cfg.MaxContentLength = n
	} else {
		reject(KeyMaxContentLength, v.Get(KeyMaxContentLength), "want a positive integer")
	}

	if s, err := cast.ToStringE(v.Get(KeyMinSeverity)); err == nil && oneOf(s, "low", "medium", "high") {
		cfg.MinSeverity = verdict.ParseSeverity(s)
	} else {
		reject(KeyMinSeverity, v.Get(KeyMinSeverity), "want low, medium or high")
	}

	if s, err := cast.ToStringE(v.Get(KeySummaryModel)); err == nil && strings.TrimSpace(s) != "" {
		cfg.SummaryModel = strings.TrimSpace(s)
	} else {
		reject(KeySummaryModel, v.Get(KeySummaryModel), "want a model name")
	}

	if d, err := toDuration(v.Get(KeySummaryTimeout)); err == nil && d > 0 {
		cfg.SummaryTimeout = d
	} else {
		reject(KeySummaryTimeout, v.Get(KeySummaryTimeout), "want a positive duration")
	}

	if s, err := cast.ToStringE(v.Get(KeyLogLevel)); err == nil && oneOf(s, "debug", "info", "warn", "error") {
		cfg.LogLevel = strings.ToLower(s)
	} else {
		reject(KeyLogLevel, v.Get(KeyLogLevel), "want debug, info, warn or error")
	}
	return &cfg
}

// toDuration reads bare numbers as seconds and strings as Go durations.
func toDuration(val any) (time.Duration, error) {
	switch val.(type) {
	case int, int32, int64, float32, float64:
		secs, err := cast.ToFloat64E(val)
		if err != nil {
			return 0, err
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	return cast.ToDurationE(val)
}

func oneOf(s string, allowed ...string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

// MaxOutputBytes is the stored tool-output limit in bytes.
func (c *Config) MaxOutputBytes() int {
	return c.OutputTruncationKB * 1024
}

// RulesDir resolves CustomRulesDir against projectDir; "" means built-in
// rules only.
func (c *Config) RulesDir(projectDir string) string {
	switch {
	case c.CustomRulesDir == "":
		return ""
	case filepath.IsAbs(c.CustomRulesDir):
		return c.CustomRulesDir
	default:
		return filepath.Join(projectDir, c.CustomRulesDir)
	}
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
