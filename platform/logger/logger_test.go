package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestWithContextAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, "user-1")
	log.WithContext(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output: %v", err)
	}
	if entry["request_id"] != "req-1" || entry["user_id"] != "user-1" {
		t.Fatalf("expected ids in entry, got %v", entry)
	}
}

func TestDevelopmentLoggerIsText(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("development", &buf)
	log.Debug("visible")

	if !strings.Contains(buf.String(), "msg=visible") {
		t.Fatalf("expected debug text line, got %q", buf.String())
	}
}

func TestLeadTransitionFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)
	log.LeadTransition("lead-1", "schedule_meeting", "NEW", "MEETING")

	out := buf.String()
	for _, want := range []string{`"lead_id":"lead-1"`, `"from":"NEW"`, `"to":"MEETING"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}
