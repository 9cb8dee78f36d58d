package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventQueryReceived  AuditEventType = "query.received"
	AuditEventQueryAnswered  AuditEventType = "query.answered"
	AuditEventQueryRefused   AuditEventType = "query.refused"
	AuditEventIngestStart    AuditEventType = "ingest.start"
	AuditEventIngestComplete AuditEventType = "ingest.complete"
	AuditEventIngestError    AuditEventType = "ingest.error"
	AuditEventLLMError       AuditEventType = "llm.error"
)

// AuditEvent is a single JSONL audit entry.
type AuditEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	EventType   AuditEventType `json:"event_type"`
	SessionID   string         `json:"session_id"`
	Success     bool           `json:"success"`
	Duration    time.Duration  `json:"duration_ms,omitempty"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// AuditLogger writes audit events as JSON lines.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // file path, or "stdout"/"stderr"
	SessionID  string
}

// DefaultAuditConfig returns the default audit configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{Enabled: true, OutputPath: "stdout"}
}

// NewAuditLogger creates an audit logger.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil {
		config = DefaultAuditConfig()
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("session-%d", time.Now().UnixNano())
	}

	return &AuditLogger{
		writer:    writer,
		sessionID: sessionID,
		enabled:   config.Enabled,
	}, nil
}

// NewDisabledAuditLogger returns a logger that drops everything.
func NewDisabledAuditLogger() *AuditLogger {
	return &AuditLogger{enabled: false}
}

// Log writes one audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

// LogQueryReceived logs an incoming query. Only the length is recorded,
// not the query text.
func (l *AuditLogger) LogQueryReceived(queryLen int) {
	l.Log(&AuditEvent{
		EventType: AuditEventQueryReceived,
		Success:   true,
		Message:   "query received",
		Details:   map[string]any{"query_length": queryLen},
	})
}

// LogQueryAnswered logs a completed factual query.
func (l *AuditLogger) LogQueryAnswered(duration time.Duration, candidates int, cited bool) {
	l.Log(&AuditEvent{
		EventType: AuditEventQueryAnswered,
		Success:   true,
		Duration:  duration,
		Message:   "query answered",
		Details: map[string]any{
			"candidates": candidates,
			"cited":      cited,
		},
	})
}

// LogQueryRefused logs a refused advice-seeking query.
func (l *AuditLogger) LogQueryRefused(duration time.Duration) {
	l.Log(&AuditEvent{
		EventType: AuditEventQueryRefused,
		Success:   true,
		Duration:  duration,
		Message:   "query refused",
	})
}

// LogIngestStart logs the beginning of an ingestion run.
func (l *AuditLogger) LogIngestStart(sourceCount int, reset bool) {
	l.Log(&AuditEvent{
		EventType: AuditEventIngestStart,
		Success:   true,
		Message:   fmt.Sprintf("ingestion started for %d sources", sourceCount),
		Details: map[string]any{
			"source_count": sourceCount,
			"reset":        reset,
		},
	})
}

// LogIngestComplete logs a finished ingestion run.
func (l *AuditLogger) LogIngestComplete(duration time.Duration, chunks, failedSources int) {
	l.Log(&AuditEvent{
		EventType: AuditEventIngestComplete,
		Success:   failedSources == 0,
		Duration:  duration,
		Message:   fmt.Sprintf("ingestion complete: %d chunks indexed", chunks),
		Details: map[string]any{
			"chunks":         chunks,
			"failed_sources": failedSources,
		},
	})
}

// LogIngestError logs a failed ingestion run.
func (l *AuditLogger) LogIngestError(err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventIngestError,
		Success:     false,
		Message:     "ingestion failed",
		ErrorDetail: err.Error(),
	})
}

// Close closes the underlying file, if any.
func (l *AuditLogger) Close() error {
	if closer, ok := l.writer.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}
