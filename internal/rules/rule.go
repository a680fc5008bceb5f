// Package rules is the built-in detection engine: keyword and regular
// expression rules loaded from YAML and matched against tool text.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

// Rule is one detection rule as written in a rule file.
type Rule struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Severity    string   `yaml:"severity"`
	Category    string   `yaml:"category"`
	Keywords    []string `yaml:"keywords"`
	Patterns    []string `yaml:"patterns"`
	Disabled    bool     `yaml:"disabled"`

	SourceFile string `yaml:"-"`
}

// File is the top-level shape of a rule file.
type File struct {
	Rules []Rule `yaml:"rules"`
}

// Validate reports whether the rule can be compiled.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule has no name")
	}
	if len(r.Keywords) == 0 && len(r.Patterns) == 0 {
		return fmt.Errorf("rule %s has neither keywords nor patterns", r.Name)
	}
	return nil
}

type compiledRule struct {
	rule     Rule
	severity verdict.Severity
	keywords []string
	patterns []*regexp.Regexp
}

func compile(r Rule) (*compiledRule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	c := &compiledRule{rule: r, severity: verdict.ParseSeverity(r.Severity)}
	for _, k := range r.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			c.keywords = append(c.keywords, k)
		}
	}
	for _, p := range r.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("rule %s: bad pattern %q: %w", r.Name, p, err)
		}
		c.patterns = append(c.patterns, re)
	}
	return c, nil
}

// match returns the detection for text, or false. lower is text lowercased.
func (c *compiledRule) match(text, lower string) (verdict.Detection, bool) {
	var hits []string
	for _, k := range c.keywords {
		if strings.Contains(lower, k) {
			hits = append(hits, k)
		}
	}
	for _, re := range c.patterns {
		if m := re.FindString(text); m != "" {
			hits = append(hits, m)
		}
	}
	if len(hits) == 0 {
		return verdict.Detection{}, false
	}
	return verdict.Detection{
		RuleName:        c.rule.Name,
		Severity:        c.severity,
		Description:     c.rule.Description,
		Category:        c.rule.Category,
		MatchedKeywords: hits,
	}, true
}
