package guard

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Nova-Hunting/nova-tracer/internal/logging"
)

// ComplianceFile is the name of the compliance rules file.
const ComplianceFile = "pre-tool-rules.json"

//go:embed compliance.schema.json
var complianceSchema string

// ComplianceRule is a user-defined blocking pattern.
type ComplianceRule struct {
	ID      string `json:"id"`
	Pattern string `json:"pattern"`
	Reason  string `json:"reason"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// IsEnabled reports whether the rule is active. Rules are on unless
// explicitly disabled.
func (r ComplianceRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ComplianceConfig is the decoded pre-tool-rules.json.
type ComplianceConfig struct {
	Version         int `json:"version"`
	ComplianceRules struct {
		Bash  []ComplianceRule `json:"bash"`
		Write []ComplianceRule `json:"write"`
	} `json:"compliance_rules"`
	DisableDefaultRules []string `json:"disable_default_rules"`
}

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(complianceSchema))
})

// ParseCompliance validates data against the compliance schema and decodes it.
func ParseCompliance(data []byte) (ComplianceConfig, error) {
	var cfg ComplianceConfig
	schema, err := loadSchema()
	if err != nil {
		return cfg, fmt.Errorf("failed to load compliance schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return cfg, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return cfg, fmt.Errorf("validation failed: %s", strings.Join(problems, "; "))
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ComplianceConfig{}, fmt.Errorf("failed to decode compliance rules: %w", err)
	}
	return cfg, nil
}

// FindCompliance returns the compliance file that applies to projectDir: the
// project's own, else the user's global one. It returns "" when neither exists.
func FindCompliance(projectDir string) string {
	candidates := []string{filepath.Join(projectDir, ".nova-tracer", ComplianceFile)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "nova-tracer", ComplianceFile))
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// LoadCompliance reads the compliance rules for projectDir. A missing,
// unreadable or invalid file yields the empty config, so only the defaults
// apply.
func LoadCompliance(projectDir string) ComplianceConfig {
	path := FindCompliance(projectDir)
	if path == "" {
		return ComplianceConfig{}
	}
	ctx := logging.WithComponent(context.Background(), "guard")
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Warn(ctx, "could not read compliance rules", "path", path, "error", err)
		return ComplianceConfig{}
	}
	cfg, err := ParseCompliance(data)
	if err != nil {
		logging.Warn(ctx, "ignoring invalid compliance rules", "path", path, "error", err)
		return ComplianceConfig{}
	}
	return cfg
}
