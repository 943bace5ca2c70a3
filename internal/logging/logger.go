// Package logging carries the fire-and-forget LogEvent collaborator used by
// the engine.
package logging

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"imposter-game-backend/internal/models"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// EventLogger never blocks the caller and never returns an error.
type EventLogger interface {
	LogEvent(level Level, source, message string, metadata map[string]any)
}

// StdLogger writes one line per event through the standard logger.
type StdLogger struct {
	Logger *log.Logger
}

func (l StdLogger) LogEvent(level Level, source, message string, metadata map[string]any) {
	line := formatLine(level, source, message, metadata)
	if l.Logger != nil {
		l.Logger.Print(line)
		return
	}
	log.Print(line)
}

// Multi fans an event out to several loggers.
type Multi []EventLogger

func (m Multi) LogEvent(level Level, source, message string, metadata map[string]any) {
	for _, l := range m {
		l.LogEvent(level, source, message, metadata)
	}
}

func formatLine(level Level, source, message string, metadata map[string]any) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(source)
	b.WriteString("] ")
	b.WriteString(string(level))
	b.WriteString(" ")
	b.WriteString(message)
	if len(metadata) > 0 {
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(" ")
			b.WriteString(k)
			b.WriteString("=")
			if raw, err := json.Marshal(metadata[k]); err == nil {
				b.Write(raw)
			}
		}
	}
	return b.String()
}

// Sink persists audit lines. store.GormStore and store.MemoryStore
// implement it.
type Sink interface {
	AppendEventLog(ctx context.Context, entry *models.EventLog) error
}

// AuditLogger hands events to a background writer through a bounded buffer.
// Events are dropped, not queued, once the buffer is full.
type AuditLogger struct {
	sink     Sink
	fallback EventLogger
	timeout  time.Duration

	entries chan models.EventLog
	done    chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewAuditLogger(sink Sink, buffer int, fallback EventLogger) *AuditLogger {
	if buffer <= 0 {
		buffer = 256
	}
	if fallback == nil {
		fallback = StdLogger{}
	}
	l := &AuditLogger{
		sink:     sink,
		fallback: fallback,
		timeout:  2 * time.Second,
		entries:  make(chan models.EventLog, buffer),
		done:     make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *AuditLogger) LogEvent(level Level, source, message string, metadata map[string]any) {
	entry := models.EventLog{
		Level:     string(level),
		Source:    source,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = string(raw)
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.entries <- entry:
	default:
		l.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (l *AuditLogger) Dropped() int64 {
	return l.dropped.Load()
}

// Close flushes buffered events and stops the writer.
func (l *AuditLogger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.entries)
	l.mu.Unlock()
	<-l.done
}

func (l *AuditLogger) run() {
	defer close(l.done)
	for entry := range l.entries {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		err := l.sink.AppendEventLog(ctx, &entry)
		cancel()
		if err != nil {
			l.fallback.LogEvent(LevelWarn, "AuditLogger", "persist failed: "+err.Error(), map[string]any{
				"source":  entry.Source,
				"message": entry.Message,
			})
		}
	}
}
