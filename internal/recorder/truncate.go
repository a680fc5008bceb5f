// Package recorder turns one observed tool call into a session.Event.
package recorder

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultMaxBytes is the tool output limit used when none is configured.
const DefaultMaxBytes = 10 * 1024

const markerFormat = "\n\n[TRUNCATED - original size: %.1f KB]"

var markerSuffix = regexp.MustCompile(`\n\n\[TRUNCATED - original size: \d+\.\d KB\]$`)

// Truncate bounds text to maxBytes of UTF-8 payload. When text is longer it
// is cut at the byte boundary, invalid or incomplete sequences are dropped,
// and a marker naming the original size is appended. originalSize is only
// meaningful when truncated is true.
//
// Output that already carries the marker over a payload within the limit is
// returned unchanged, so Truncate(Truncate(s, n), n) == Truncate(s, n).
func Truncate(text string, maxBytes int) (out string, originalSize int, truncated bool) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(text) <= maxBytes {
		return text, 0, false
	}
	if loc := markerSuffix.FindStringIndex(text); loc != nil && loc[0] <= maxBytes {
		return text, 0, false
	}

	cut := strings.ToValidUTF8(text[:maxBytes], "")
	return cut + fmt.Sprintf(markerFormat, float64(len(text))/1024), len(text), true
}
