// Package guard decides whether a tool call may run and phrases the warnings
// shown to the agent after a call returns suspicious content.
package guard

import (
	"context"
	"regexp"

	"github.com/Nova-Hunting/nova-tracer/internal/logging"
)

// Pattern is one blocking regular expression with the reason shown on a hit.
type Pattern struct {
	ID     string
	Re     *regexp.Regexp
	Reason string
}

func mustPattern(id, expr, reason string) Pattern {
	return Pattern{ID: id, Re: regexp.MustCompile(expr), Reason: reason}
}

// Default bash patterns. They apply regardless of command length.
var defaultBash = []Pattern{
	mustPattern("default-rm-root",
		`\brm\s+-[a-zA-Z]*[rRfF][a-zA-Z]*(\s+-[a-zA-Z]+)*\s+(/|/\*|~/?|\$HOME/?)(\s|;|&|\||$)`,
		"Destructive rm command"),
	mustPattern("default-fork-bomb",
		`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`,
		"Fork bomb"),
	mustPattern("default-dd-device",
		`\bdd\b.*\bof=/dev/(sd[a-z]|hd[a-z]|nvme\d|disk\d|mmcblk\d)`,
		"Raw disk write"),
	mustPattern("default-mkfs-device",
		`\bmkfs(\.\w+)?\s+.*?/dev/`,
		"Filesystem format of a device"),
	mustPattern("default-remote-script",
		`\b(curl|wget)\b[^|;&]*\|\s*(sudo\s+)?(ba|z|da|k)?sh\b`,
		"Remote script piped to shell"),
	mustPattern("default-chmod-root",
		`\bchmod\s+(-R\s+)?0?777\s+/(\s|;|&|$)`,
		"World-writable permissions on filesystem root"),
}

// Default content patterns, applied to text a tool is about to write.
var defaultContent = []Pattern{
	mustPattern("default-private-key",
		`-----BEGIN ((RSA|EC|DSA|OPENSSH|PGP|ENCRYPTED) )?PRIVATE KEY( BLOCK)?-----`,
		"Private key material"),
	mustPattern("default-aws-key",
		`\b(AKIA|ASIA)[0-9A-Z]{16}\b`,
		"AWS access key id"),
}

// Patterns returns the active bash and content patterns: the defaults not
// disabled by cfg, followed by cfg's enabled compliance rules. Compliance
// rules whose pattern does not compile are skipped.
func Patterns(cfg ComplianceConfig) (bash, content []Pattern) {
	disabled := make(map[string]bool, len(cfg.DisableDefaultRules))
	for _, r := range cfg.DisableDefaultRules {
		disabled[r] = true
	}
	for _, p := range defaultBash {
		if !disabled[p.Reason] {
			bash = append(bash, p)
		}
	}
	for _, p := range defaultContent {
		if !disabled[p.Reason] {
			content = append(content, p)
		}
	}
	bash = append(bash, compileRules(cfg.ComplianceRules.Bash)...)
	content = append(content, compileRules(cfg.ComplianceRules.Write)...)
	return bash, content
}

func compileRules(rules []ComplianceRule) []Pattern {
	var out []Pattern
	for _, r := range rules {
		if !r.IsEnabled() {
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			logging.Warn(logging.WithComponent(context.Background(), "guard"),
				"compliance pattern does not compile", "id", r.ID, "error", err)
			continue
		}
		out = append(out, Pattern{ID: r.ID, Re: re, Reason: r.Reason})
	}
	return out
}

// firstMatch returns the first pattern matching text.
func firstMatch(patterns []Pattern, text string) (Pattern, bool) {
	if text == "" {
		return Pattern{}, false
	}
	for _, p := range patterns {
		if p.Re.MatchString(text) {
			return p, true
		}
	}
	return Pattern{}, false
}
