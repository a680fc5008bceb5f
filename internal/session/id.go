package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// idLayout is the sortable timestamp prefix of a session id.
const idLayout = "2006-01-02_15-04-05"

// GenerateID returns an id of the form "YYYY-MM-DD_HH-MM-SS_<6 hex>". Ids
// sort by creation time and the random suffix keeps two sessions started in
// the same second apart.
func GenerateID(now time.Time) string {
	if now.IsZero() || now.Year() < 2000 {
		// Clock anomaly: fall back to the process clock at second resolution.
		now = time.Unix(time.Now().Unix(), 0)
	}
	return now.UTC().Format(idLayout) + "_" + randomSuffix(now)
}

func randomSuffix(now time.Time) string {
	u, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("%06x", uint64(now.UnixNano())&0xffffff)
	}
	return strings.ReplaceAll(u.String(), "-", "")[:6]
}
