// Package verdict reduces detection-engine matches into a single verdict and
// severity per event.
package verdict

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Severity is the threat level backing a verdict. The zero value is
// SeverityNone and orders below every other level.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "none"
	}
}

// ParseSeverity maps an engine label onto the four-level order. "critical" is
// folded into high; anything unrecognised is treated as medium, which is the
// engine's default for rules that omit a severity.
func ParseSeverity(label string) Severity {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "none":
		return SeverityNone
	case "low", "info":
		return SeverityLow
	case "medium", "moderate":
		return SeverityMedium
	case "high", "critical":
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// MarshalJSON renders SeverityNone as null.
func (s Severity) MarshalJSON() ([]byte, error) {
	if s == SeverityNone {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts null or a severity label.
func (s *Severity) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = SeverityNone
		return nil
	}
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("severity: %w", err)
	}
	*s = ParseSeverity(label)
	return nil
}

// Verdict is the coarse outcome recorded for an event.
type Verdict string

const (
	Allowed    Verdict = "allowed"
	Warned     Verdict = "warned"
	Blocked    Verdict = "blocked"
	ScanFailed Verdict = "scan_failed"
)

// FromSeverity is the pure verdict mapping for a maximum severity.
func FromSeverity(s Severity) Verdict {
	switch s {
	case SeverityHigh:
		return Blocked
	case SeverityLow, SeverityMedium:
		return Warned
	default:
		return Allowed
	}
}

// Detection is one rule match reported by the detection engine.
type Detection struct {
	RuleName        string   `json:"rule_name"`
	Severity        Severity `json:"severity"`
	Description     string   `json:"description,omitempty"`
	Category        string   `json:"category,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

// Result is the aggregated verdict for one event.
type Result struct {
	Verdict      Verdict
	Severity     Severity
	RulesMatched []string
	// Detections holds one entry per distinct rule, highest severity first.
	Detections []Detection
}

// Aggregate pools detections from any number of scans, de-duplicates them by
// rule name and derives the verdict from the maximum severity. Every matched
// rule name is kept regardless of its own severity. The result does not
// depend on the order of the input.
func Aggregate(pools ...[]Detection) Result {
	byRule := make(map[string]Detection)
	for _, pool := range pools {
		for _, d := range pool {
			name := d.RuleName
			if name == "" {
				name = "unknown"
				d.RuleName = name
			}
			// A match always counts for at least the lowest level.
			if d.Severity == SeverityNone {
				d.Severity = SeverityLow
			}
			prev, ok := byRule[name]
			if !ok || d.Severity > prev.Severity {
				byRule[name] = d
			}
		}
	}

	res := Result{
		Verdict:      Allowed,
		Severity:     SeverityNone,
		RulesMatched: []string{},
	}
	if len(byRule) == 0 {
		return res
	}

	for name, d := range byRule {
		res.RulesMatched = append(res.RulesMatched, name)
		res.Detections = append(res.Detections, d)
		if d.Severity > res.Severity {
			res.Severity = d.Severity
		}
	}
	sort.Strings(res.RulesMatched)
	sort.Slice(res.Detections, func(i, j int) bool {
		if res.Detections[i].Severity != res.Detections[j].Severity {
			return res.Detections[i].Severity > res.Detections[j].Severity
		}
		return res.Detections[i].RuleName < res.Detections[j].RuleName
	})

	res.Verdict = FromSeverity(res.Severity)
	return res
}

// Failed is the result recorded when the scan itself could not complete.
func Failed() Result {
	return Result{
		Verdict:      ScanFailed,
		Severity:     SeverityNone,
		RulesMatched: []string{},
	}
}

// FilterBySeverity drops detections below min.
func FilterBySeverity(detections []Detection, min Severity) []Detection {
	out := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Severity >= min {
			out = append(out, d)
		}
	}
	return out
}
