package verdict

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoScanner is recorded when no detection engine is configured.
var ErrNoScanner = errors.New("no detection engine configured")

// Scanner is the detection-engine boundary: given a text payload and a rule
// set location it returns zero or more detections, or an error when the
// engine itself fails.
type Scanner interface {
	Scan(ctx context.Context, text, rulesDir string) ([]Detection, error)
}

// ScannerFunc adapts a plain function to Scanner.
type ScannerFunc func(ctx context.Context, text, rulesDir string) ([]Detection, error)

func (f ScannerFunc) Scan(ctx context.Context, text, rulesDir string) ([]Detection, error) {
	return f(ctx, text, rulesDir)
}

// Outcome is everything the event builder needs from one round of scanning.
type Outcome struct {
	// Pools holds the detections of each scanned text (tool input, tool output).
	Pools [][]Detection
	// Err is set when the engine failed; the pools are then ignored.
	Err      error
	Duration time.Duration
}

// Result reduces the outcome to the event's verdict.
func (o Outcome) Result() Result {
	if o.Err != nil {
		return Failed()
	}
	return Aggregate(o.Pools...)
}

// Evaluate scans every non-empty text with s and collects the detections at
// or above min. Any error or panic raised by the scanner is captured in the
// outcome instead of being returned, so callers always get a usable value.
func Evaluate(ctx context.Context, s Scanner, rulesDir string, min Severity, texts ...string) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("scanner panic: %v", r)}
		}
		out.Duration = time.Since(start)
	}()

	if s == nil {
		return Outcome{Err: ErrNoScanner}
	}
	for _, text := range texts {
		if text == "" {
			continue
		}
		found, err := s.Scan(ctx, text, rulesDir)
		if err != nil {
			return Outcome{Err: fmt.Errorf("scan: %w", err)}
		}
		out.Pools = append(out.Pools, FilterBySeverity(found, min))
	}
	return out
}
