package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Agurato/kolnoa/internal/model"
)

// SourceField marks the log events that are copied to the logs table
const SourceField = model.LogSourceField

const logWriteTimeout = 5 * time.Second

type LogAdder interface {
	AddLog(ctx context.Context, entry *model.LogEntry) error
}

// LogTableWriter is a zerolog.LevelWriter copying the events that carry a source field
// into the logs table. Entries are written by a background goroutine and dropped when
// the buffer is full.
type LogTableWriter struct {
	store   LogAdder
	entries chan model.LogEntry
	minimum zerolog.Level

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewLogTableWriter(store LogAdder, bufferSize int, minimum zerolog.Level) *LogTableWriter {
	w := &LogTableWriter{
		store:   store,
		entries: make(chan model.LogEntry, bufferSize),
		minimum: minimum,
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *LogTableWriter) run() {
	defer close(w.done)
	for entry := range w.entries {
		ctx, cancel := context.WithTimeout(context.Background(), logWriteTimeout)
		if err := w.store.AddLog(ctx, &entry); err != nil {
			// Not through zerolog, the event would come back here
			fmt.Fprintf(os.Stderr, "could not write log entry to the logs table: %v\n", err)
		}
		cancel()
	}
}

func (w *LogTableWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

func (w *LogTableWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level != zerolog.NoLevel && level < w.minimum {
		return len(p), nil
	}
	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err != nil {
		return len(p), nil
	}
	source, _ := fields[SourceField].(string)
	if source == "" {
		return len(p), nil
	}

	entry := model.LogEntry{
		ID:        uuid.NewString(),
		Level:     level.String(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if msg, ok := fields[zerolog.MessageFieldName].(string); ok {
		entry.Message = msg
	}
	if lvl, ok := fields[zerolog.LevelFieldName].(string); ok && level == zerolog.NoLevel {
		entry.Level = lvl
	}
	for _, key := range []string{SourceField, zerolog.MessageFieldName, zerolog.LevelFieldName, zerolog.TimestampFieldName} {
		delete(fields, key)
	}
	if len(fields) > 0 {
		entry.Context = fields
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return len(p), nil
	}
	select {
	case w.entries <- entry:
	default:
	}
	return len(p), nil
}

// Close flushes the pending entries. Events logged after Close are ignored.
func (w *LogTableWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.entries)
	}
	w.mu.Unlock()
	<-w.done
	return nil
}
