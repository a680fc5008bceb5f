package rules

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Nova-Hunting/nova-tracer/internal/logging"
)

//go:embed defaults/*.yaml
var defaultRules embed.FS

// RuleSet is a compiled, immutable collection of rules.
type RuleSet struct {
	rules []*compiledRule
}

// Len returns the number of compiled rules.
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Names returns the rule names in load order.
func (s *RuleSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.rule.Name
	}
	return names
}

// Load compiles the built-in rules plus every rule file under dir. A rule in
// dir replaces a built-in rule of the same name, or removes it when marked
// disabled. Files and rules that fail
// to parse are skipped with a warning; an empty or missing dir is not an
// error.
func Load(dir string) *RuleSet {
	ctx := logging.WithComponent(context.Background(), "rules")
	byName := make(map[string]Rule)
	var order []string

	add := func(rs []Rule, source string) {
		for _, r := range rs {
			if r.Disabled {
				delete(byName, r.Name)
				continue
			}
			r.SourceFile = source
			if _, exists := byName[r.Name]; !exists {
				order = append(order, r.Name)
			}
			byName[r.Name] = r
		}
	}

	builtin, _ := fs.Glob(defaultRules, "defaults/*.yaml")
	sort.Strings(builtin)
	for _, name := range builtin {
		data, err := defaultRules.ReadFile(name)
		if err != nil {
			continue
		}
		rs, err := parse(data)
		if err != nil {
			logging.Warn(ctx, "built-in rule file is invalid", "file", name, "error", err)
			continue
		}
		add(rs, name)
	}

	for _, path := range ruleFiles(ctx, dir) {
		data, err := os.ReadFile(path)
		if err != nil {
			logging.Warn(ctx, "could not read rule file", "file", path, "error", err)
			continue
		}
		rs, err := parse(data)
		if err != nil {
			logging.Warn(ctx, "could not parse rule file", "file", path, "error", err)
			continue
		}
		add(rs, path)
	}

	set := &RuleSet{}
	for _, name := range order {
		r, ok := byName[name]
		if !ok {
			continue
		}
		c, err := compile(r)
		if err != nil {
			logging.Warn(ctx, "invalid rule skipped", "rule", name, "file", byName[name].SourceFile, "error", err)
			continue
		}
		set.rules = append(set.rules, c)
	}
	logging.Debug(ctx, "rules loaded", "dir", dir, "count", len(set.rules))
	return set
}

// parse accepts either a {rules: [...]} document or a bare list of rules.
func parse(data []byte) ([]Rule, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err == nil {
		return f.Rules, nil
	}
	var list []Rule
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return list, nil
}

// ruleFiles returns the YAML files under dir in a stable order.
func ruleFiles(ctx context.Context, dir string) []string {
	if dir == "" {
		return nil
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		logging.Warn(ctx, "could not walk rules directory", "dir", dir, "error", err)
	}
	sort.Strings(files)
	return files
}
