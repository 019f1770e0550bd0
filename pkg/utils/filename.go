package utils

import (
	"fmt"
	"strings"
	"time"
)

const unknownBatch = "UnknownBatch"

// SanitizeBatchNumber turns a user-visible batch number into a string safe to
// embed in a filename: leading '#' markers are stripped and path-hostile
// characters are replaced with underscores. An empty or all-whitespace result
// falls back to "UnknownBatch".
func SanitizeBatchNumber(batch string) string {
	s := strings.TrimLeft(batch, "#")
	s = strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(s)
	if strings.TrimSpace(s) == "" {
		return unknownBatch
	}
	return s
}

// NotificationFilename generates a filename for a generated notification
// image. The timestamp carries microsecond resolution so that rapid
// successive generations for the same batch never collide.
func NotificationFilename(batch string, now time.Time) string {
	stamp := fmt.Sprintf("%s_%06d", now.Format("20060102150405"), now.Nanosecond()/1000)
	return fmt.Sprintf("Heyao_%s_%s.png", SanitizeBatchNumber(batch), stamp)
}
