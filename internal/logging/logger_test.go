package logging

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"

	"imposter-game-backend/internal/models"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []models.EventLog
	err     error
	block   chan struct{}
}

func (s *recordingSink) AppendEventLog(ctx context.Context, entry *models.EventLog) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *recordingSink) all() []models.EventLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.EventLog(nil), s.entries...)
}

func TestStdLoggerFormatsSortedMetadata(t *testing.T) {
	var buf bytes.Buffer
	l := StdLogger{Logger: log.New(&buf, "", 0)}
	l.LogEvent(LevelInfo, "SessionService", "vote cast", map[string]any{"round": 2, "actor": "p1"})

	got := strings.TrimSpace(buf.String())
	want := `[SessionService] INFO vote cast actor="p1" round=2`
	if got != want {
		t.Fatalf("line = %q, want %q", got, want)
	}
}

func TestAuditLoggerPersistsOnClose(t *testing.T) {
	sink := &recordingSink{}
	l := NewAuditLogger(sink, 8, nil)
	l.LogEvent(LevelInfo, "Scheduler", "warning", map[string]any{"session_id": "s1"})
	l.LogEvent(LevelError, "Scheduler", "expired", nil)
	l.Close()

	entries := sink.all()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Metadata != `{"session_id":"s1"}` {
		t.Fatalf("metadata = %q", entries[0].Metadata)
	}
	if entries[1].Level != string(LevelError) || entries[1].Metadata != "" {
		t.Fatalf("second entry = %+v", entries[1])
	}
}

func TestAuditLoggerDropsWhenFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	l := NewAuditLogger(sink, 1, nil)
	for i := 0; i < 10; i++ {
		l.LogEvent(LevelInfo, "test", "m", nil)
	}
	close(sink.block)
	l.Close()

	// At most one entry in the writer and one in the buffer.
	if got := len(sink.all()); got > 2 {
		t.Fatalf("persisted = %d, want at most 2", got)
	}
	if l.Dropped() < 8 {
		t.Fatalf("dropped = %d, want at least 8", l.Dropped())
	}
}

func TestAuditLoggerIgnoresEventsAfterClose(t *testing.T) {
	sink := &recordingSink{}
	l := NewAuditLogger(sink, 4, nil)
	l.Close()
	l.Close()
	l.LogEvent(LevelInfo, "test", "late", nil)
	if got := len(sink.all()); got != 0 {
		t.Fatalf("persisted = %d, want 0", got)
	}
}

func TestAuditLoggerFallsBackOnSinkError(t *testing.T) {
	var buf bytes.Buffer
	sink := &recordingSink{err: errors.New("disk full")}
	l := NewAuditLogger(sink, 4, StdLogger{Logger: log.New(&buf, "", 0)})
	l.LogEvent(LevelInfo, "SessionService", "joined", nil)
	l.Close()
	if !strings.Contains(buf.String(), "persist failed: disk full") {
		t.Fatalf("fallback output = %q", buf.String())
	}
}

func TestMultiWritesToEveryLogger(t *testing.T) {
	var a, b bytes.Buffer
	m := Multi{StdLogger{Logger: log.New(&a, "", 0)}, StdLogger{Logger: log.New(&b, "", 0)}}
	m.LogEvent(LevelWarn, "Scheduler", "tick late", nil)
	for _, buf := range []*bytes.Buffer{&a, &b} {
		if got := strings.TrimSpace(buf.String()); got != "[Scheduler] WARN tick late" {
			t.Fatalf("line = %q", got)
		}
	}
}
