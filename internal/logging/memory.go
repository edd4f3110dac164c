package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// DefaultMemoryLogCapacity bounds the number of buffered lines.
const DefaultMemoryLogCapacity = 4096

type memoryEntry struct {
	at   time.Time
	line string
}

// MemoryLog is a slog sink that keeps formatted console lines in memory until
// they are drained. The oldest line is dropped once capacity is reached.
type MemoryLog struct {
	mu       sync.Mutex
	entries  *queue.Queue
	capacity int
	level    *slog.LevelVar
	dropped  uint64
}

// NewMemoryLog creates a sink holding at most capacity lines.
func NewMemoryLog(capacity int, level slog.Level) *MemoryLog {
	if capacity <= 0 {
		capacity = DefaultMemoryLogCapacity
	}
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	return &MemoryLog{entries: queue.New(), capacity: capacity, level: lvl}
}

// SetLevel changes the minimum level recorded.
func (m *MemoryLog) SetLevel(level slog.Level) {
	m.level.Set(level)
}

// Handler returns a slog handler writing into the sink.
func (m *MemoryLog) Handler() slog.Handler {
	return &memoryHandler{log: m}
}

// Logger returns a logger writing into the sink.
func (m *MemoryLog) Logger() *slog.Logger {
	return slog.New(m.Handler())
}

// Len reports the number of buffered lines.
func (m *MemoryLog) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries.Length()
}

// Dropped reports how many lines were discarded because the buffer was full.
func (m *MemoryLog) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Drain removes every buffered line and returns, newline separated, those
// logged at or after since. Older lines are discarded.
func (m *MemoryLog) Drain(since time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	for m.entries.Length() > 0 {
		entry := m.entries.Remove().(memoryEntry)
		if entry.at.Before(since) {
			continue
		}
		b.WriteString(entry.line)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m *MemoryLog) append(at time.Time, line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.entries.Length() >= m.capacity {
		m.entries.Remove()
		m.dropped++
	}
	m.entries.Add(memoryEntry{at: at, line: line})
}

type memoryHandler struct {
	log    *MemoryLog
	attrs  []slog.Attr
	groups []string
}

func (h *memoryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.log.level.Level()
}

func (h *memoryHandler) Handle(_ context.Context, record slog.Record) error {
	at := record.Time
	if at.IsZero() {
		at = time.Now()
	}
	h.log.append(at, formatLine(record, h.groups, h.attrs, false))
	return nil
}

func (h *memoryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &memoryHandler{
		log:    h.log,
		attrs:  append(append([]slog.Attr(nil), h.attrs...), attrs...),
		groups: h.groups,
	}
}

func (h *memoryHandler) WithGroup(name string) slog.Handler {
	return &memoryHandler{
		log:    h.log,
		attrs:  h.attrs,
		groups: append(append([]string(nil), h.groups...), name),
	}
}
