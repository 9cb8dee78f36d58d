package observability

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newBufferedAudit(buf *bytes.Buffer) *AuditLogger {
	return &AuditLogger{writer: buf, sessionID: "test-session", enabled: true}
}

func TestAuditLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedAudit(&buf)

	l.LogQueryReceived(24)
	l.LogQueryRefused(10 * time.Millisecond)
	l.LogIngestComplete(time.Second, 120, 1)

	scanner := bufio.NewScanner(&buf)
	var events []AuditEvent
	for scanner.Scan() {
		var ev AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		events = append(events, ev)
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].EventType != AuditEventQueryReceived {
		t.Errorf("event 0 type = %s", events[0].EventType)
	}
	if events[0].SessionID != "test-session" {
		t.Errorf("session id = %q", events[0].SessionID)
	}
	if events[1].EventType != AuditEventQueryRefused {
		t.Errorf("event 1 type = %s", events[1].EventType)
	}
	if events[2].Success {
		t.Error("ingest with failed sources should not be marked success")
	}
}

func TestAuditLogger_DoesNotLogQueryText(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedAudit(&buf)

	l.LogQueryReceived(len("Which fund should I buy?"))
	if bytes.Contains(buf.Bytes(), []byte("Which fund")) {
		t.Error("query text leaked into audit log")
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: false}

	l.LogIngestError(errors.New("boom"))
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote %d bytes", buf.Len())
	}
}

func TestNewDisabledAuditLogger(t *testing.T) {
	l := NewDisabledAuditLogger()
	if err := l.Log(&AuditEvent{EventType: AuditEventQueryReceived}); err != nil {
		t.Fatalf("disabled logger returned error: %v", err)
	}
}
