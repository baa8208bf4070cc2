// Package logbook keeps the most recent system log lines for the dashboard's
// log panel and pushes new ones to connected clients.
package logbook

import (
	"strings"
	"sync"

	"bot-dashboard/internal/model"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const DefaultCapacity = 1000

// Publisher receives entries added through Add.
type Publisher interface {
	PublishLog(entry model.LogEntry)
}

// Book is a fixed-size ring of log entries.
type Book struct {
	mu      sync.Mutex
	entries []model.LogEntry
	next    int
	full    bool

	publisher Publisher
	clock     clockwork.Clock
}

func New(capacity int, clock clockwork.Clock) *Book {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Book{entries: make([]model.LogEntry, capacity), clock: clock}
}

// SetPublisher installs the push target for Add.
func (b *Book) SetPublisher(p Publisher) {
	b.mu.Lock()
	b.publisher = p
	b.mu.Unlock()
}

// Add records an entry and publishes it.
func (b *Book) Add(level, message, source string) model.LogEntry {
	entry := b.Record(level, message, source)

	b.mu.Lock()
	p := b.publisher
	b.mu.Unlock()
	if p != nil {
		p.PublishLog(entry)
	}
	return entry
}

// Record stores an entry without publishing it.
func (b *Book) Record(level, message, source string) model.LogEntry {
	entry := model.LogEntry{
		Timestamp: b.clock.Now().UTC(),
		Level:     strings.ToUpper(level),
		Message:   message,
		Source:    source,
	}

	b.mu.Lock()
	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
	b.mu.Unlock()
	return entry
}

// Len returns the number of stored entries.
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(b.entries)
	}
	return b.next
}

// Recent returns the last limit entries, oldest first, keeping only those
// of level when it is set. The level filter applies after the limit.
func (b *Book) Recent(limit int, level string) []model.LogEntry {
	b.mu.Lock()
	ordered := make([]model.LogEntry, 0, len(b.entries))
	if b.full {
		ordered = append(ordered, b.entries[b.next:]...)
	}
	ordered = append(ordered, b.entries[:b.next]...)
	b.mu.Unlock()

	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	if level == "" {
		return ordered
	}

	filtered := make([]model.LogEntry, 0, len(ordered))
	for _, e := range ordered {
		if strings.EqualFold(e.Level, level) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// Hook mirrors zerolog entries at or above MinLevel into a Book. It only
// records; publishing from inside a log call would log again on failure.
type Hook struct {
	Book     *Book
	MinLevel zerolog.Level
	Source   string
}

func (h Hook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if level < h.MinLevel || level == zerolog.NoLevel || msg == "" {
		return
	}
	h.Book.Record(LevelName(level), msg, h.Source)
}

// LevelName maps zerolog levels onto the names the log panel filters by.
func LevelName(level zerolog.Level) string {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return "DEBUG"
	case zerolog.InfoLevel:
		return "INFO"
	case zerolog.WarnLevel:
		return "WARNING"
	case zerolog.ErrorLevel:
		return "ERROR"
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return "CRITICAL"
	}
	return strings.ToUpper(level.String())
}
