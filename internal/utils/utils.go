package utils

import (
	"context"
	"regexp"
	"strings"
	"time"
)

var sleep = time.Sleep

// WaitFor sleeps for the given duration but returns early with the context
// error if the context is canceled first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

var unsafePathChars = regexp.MustCompile(`[^a-z0-9_\-]`)

// SanitizeUserID converts a user identifier into a form safe for file paths.
// Lowercased, everything outside [a-z0-9_-] replaced with an underscore.
// An empty id maps to "anonymous".
func SanitizeUserID(id string) string {
	if id == "" {
		return "anonymous"
	}
	return unsafePathChars.ReplaceAllString(strings.ToLower(id), "_")
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
