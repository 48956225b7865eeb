package utils

import (
	"context"
	"testing"
	"time"
)

func TestSanitizeUserID(t *testing.T) {
	cases := map[string]string{
		"dasanirban268@gmail.com": "dasanirban268_gmail_com",
		"User-42":                 "user-42",
		"":                        "anonymous",
		"simple":                  "simple",
	}

	for in, want := range cases {
		if got := SanitizeUserID(in); got != want {
			t.Fatalf("SanitizeUserID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWaitForCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := WaitFor(ctx, time.Minute)
	if err == nil {
		t.Fatalf("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("WaitFor did not return early on cancellation")
	}
}

func TestTruncateForLog(t *testing.T) {
	if got := TruncateForLog("  hello  ", 10); got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
	if got := TruncateForLog("abcdef", 3); got != "abc..." {
		t.Fatalf("got %q, want %q", got, "abc...")
	}
	if got := TruncateForLog("abcdef", 0); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestWaitForZeroDuration(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
