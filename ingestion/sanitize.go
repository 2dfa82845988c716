package ingestion

import (
	"regexp"
	"strings"
)

// User-facing failure messages must not leak internal detail. URLs and
// filesystem paths from wrapped errors are masked before the message is
// stored on the document record.
var (
	urlPattern  = regexp.MustCompile(`\bhttps?://[^\s"']+`)
	pathPattern = regexp.MustCompile(`(?:/[\w.\-]+){2,}/?`)
)

const maxErrorMessageLen = 300

// sanitizeMessage produces a user-facing failure message from an internal
// error string.
func sanitizeMessage(msg string) string {
	msg = urlPattern.ReplaceAllString(msg, "[service]")
	msg = pathPattern.ReplaceAllString(msg, "[path]")
	msg = strings.TrimSpace(msg)
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return msg
}
