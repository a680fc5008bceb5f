package rules

import (
	"context"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Nova-Hunting/nova-tracer/internal/verdict"
)

const defaultCacheSize = 8

// Engine scans text against rule sets, compiling each rules directory once.
type Engine struct {
	cache *lru.Cache[string, *RuleSet]
}

var _ verdict.Scanner = (*Engine)(nil)

// NewEngine returns an Engine that keeps up to size compiled rule sets.
func NewEngine(size int) *Engine {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, _ := lru.New[string, *RuleSet](size)
	return &Engine{cache: cache}
}

// RuleSet returns the compiled rules for dir, loading them on first use.
func (e *Engine) RuleSet(dir string) *RuleSet {
	key := dir
	if key != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			key = abs
		}
	}
	if set, ok := e.cache.Get(key); ok {
		return set
	}
	set := Load(key)
	e.cache.Add(key, set)
	return set
}

// Scan returns a detection for every rule that matches text. The only error
// it returns is ctx's.
func (e *Engine) Scan(ctx context.Context, text, rulesDir string) ([]verdict.Detection, error) {
	set := e.RuleSet(rulesDir)
	lower := strings.ToLower(text)

	var found []verdict.Detection
	for _, r := range set.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d, ok := r.match(text, lower); ok {
			found = append(found, d)
		}
	}
	return found, nil
}
