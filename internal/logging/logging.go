// Package logging holds the slog plumbing shared by the engine and the CLI.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a BufferHandler created with a non-positive size.
const DefaultMaxEntries = 1000

// Entry is one buffered log record.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Time.Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(e.Level.String())
	b.WriteByte(' ')
	b.WriteString(e.Message)
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, e.Attrs[k])
	}
	return b.String()
}

type buffer struct {
	mu      sync.RWMutex
	entries []Entry
	maxSize int
}

// BufferHandler is a slog.Handler keeping the most recent records in memory.
// Handlers derived through WithAttrs and WithGroup share the buffer.
type BufferHandler struct {
	buf    *buffer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewBufferHandler returns a handler retaining up to maxEntries records at or
// above level. A nil level means slog.LevelInfo.
func NewBufferHandler(maxEntries int, level slog.Leveler) *BufferHandler {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &BufferHandler{
		buf:   &buffer{entries: make([]Entry, 0, min(maxEntries, 64)), maxSize: maxEntries},
		level: level,
	}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+record.NumAttrs())
	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		flatten(attrs, "", a)
	}
	record.Attrs(func(a slog.Attr) bool {
		flatten(attrs, prefix, a)
		return true
	})

	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()
	h.buf.entries = append(h.buf.entries, Entry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})
	if over := len(h.buf.entries) - h.buf.maxSize; over > 0 {
		h.buf.entries = slices.Delete(h.buf.entries, 0, over)
	}
	return nil
}

func flatten(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			flatten(dst, key, ga)
		}
		return
	}
	dst[key] = a.Value.String()
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := *h
	c.attrs = slices.Clip(h.attrs)
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		if prefix != "" {
			a = slog.Attr{Key: prefix + "." + a.Key, Value: a.Value}
		}
		c.attrs = append(c.attrs, a)
	}
	return &c
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(slices.Clip(h.groups), name)
	return &c
}

// Entries returns a copy of every buffered entry, oldest first.
func (h *BufferHandler) Entries() []Entry {
	h.buf.mu.RLock()
	defer h.buf.mu.RUnlock()
	return slices.Clone(h.buf.entries)
}

// Recent returns up to n of the newest entries, oldest first. A non-positive
// n returns everything.
func (h *BufferHandler) Recent(n int) []Entry {
	h.buf.mu.RLock()
	defer h.buf.mu.RUnlock()
	if n <= 0 || n > len(h.buf.entries) {
		n = len(h.buf.entries)
	}
	return slices.Clone(h.buf.entries[len(h.buf.entries)-n:])
}

// Search returns the entries whose message, attribute keys or attribute
// values contain query, case-insensitively.
func (h *BufferHandler) Search(query string) []Entry {
	query = strings.ToLower(query)
	h.buf.mu.RLock()
	defer h.buf.mu.RUnlock()
	var matches []Entry
	for _, e := range h.buf.entries {
		if matchEntry(e, query) {
			matches = append(matches, e)
		}
	}
	return matches
}

func matchEntry(e Entry, query string) bool {
	if strings.Contains(strings.ToLower(e.Message), query) {
		return true
	}
	for k, v := range e.Attrs {
		if strings.Contains(strings.ToLower(k), query) || strings.Contains(strings.ToLower(v), query) {
			return true
		}
	}
	return false
}

// Clear drops every buffered entry.
func (h *BufferHandler) Clear() {
	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()
	h.buf.entries = h.buf.entries[:0]
}

// ParseLevel parses debug, info, warn or error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}
