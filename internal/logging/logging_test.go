package logging

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferHandlerRing(t *testing.T) {
	h := NewBufferHandler(3, slog.LevelDebug)
	logger := slog.New(h)
	for i := range 5 {
		logger.Info(fmt.Sprintf("msg %d", i), "i", i)
	}

	entries := h.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "msg 2", entries[0].Message)
	assert.Equal(t, "msg 4", entries[2].Message)
	assert.Equal(t, "4", entries[2].Attrs["i"])

	recent := h.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "msg 3", recent[0].Message)
	assert.Len(t, h.Recent(0), 3)
	assert.Len(t, h.Recent(100), 3)

	h.Clear()
	assert.Empty(t, h.Entries())
}

func TestBufferHandlerLevel(t *testing.T) {
	var level slog.LevelVar
	level.Set(slog.LevelWarn)
	h := NewBufferHandler(0, &level)
	logger := slog.New(h)

	logger.Info("dropped")
	logger.Warn("kept")
	level.Set(slog.LevelDebug)
	logger.Debug("now kept")

	entries := h.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, slog.LevelDebug, entries[1].Level)
}

func TestBufferHandlerAttrsAndGroups(t *testing.T) {
	h := NewBufferHandler(10, nil)
	logger := slog.New(h).With("realm", "main").WithGroup("op").With("name", "Eval")
	logger.Info("done", "ok", true, slog.Group("script", "path", "a.js"))

	entries := h.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, map[string]string{
		"realm":          "main",
		"op.name":        "Eval",
		"op.ok":          "true",
		"op.script.path": "a.js",
	}, entries[0].Attrs)
}

func TestBufferHandlerSearch(t *testing.T) {
	h := NewBufferHandler(10, nil)
	logger := slog.New(h)
	logger.Info("Realm created", "id", "alpha")
	logger.Info("script failed", "path", "BETA.js")
	logger.Info("unrelated")

	assert.Len(t, h.Search("realm"), 1)
	assert.Len(t, h.Search("beta"), 1)
	assert.Len(t, h.Search("ID"), 1)
	assert.Empty(t, h.Search("gamma"))
}

func TestBufferHandlerConcurrent(t *testing.T) {
	h := NewBufferHandler(50, nil)
	logger := slog.New(h)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Go(func() {
			for j := range 20 {
				logger.Info("entry", "g", i, "j", j)
			}
		})
	}
	wg.Wait()
	assert.Len(t, h.Entries(), 50)
}

func TestFanout(t *testing.T) {
	debug := NewBufferHandler(10, slog.LevelDebug)
	warn := NewBufferHandler(10, slog.LevelWarn)
	logger := slog.New(Fanout{debug, warn}).With("k", "v")

	logger.Debug("d")
	logger.Warn("w")

	assert.Len(t, debug.Entries(), 2)
	require.Len(t, warn.Entries(), 1)
	assert.Equal(t, "v", warn.Entries()[0].Attrs["k"])
	assert.False(t, Fanout{warn}.Enabled(t.Context(), slog.LevelInfo))
}

func TestConsolePrinter(t *testing.T) {
	h := NewBufferHandler(10, slog.LevelDebug)
	p := ConsolePrinter{Logger: slog.New(h)}
	p.Log("hello")
	p.Warn("careful")
	p.Error("broken")

	entries := h.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []slog.Level{slog.LevelInfo, slog.LevelWarn, slog.LevelError},
		[]slog.Level{entries[0].Level, entries[1].Level, entries[2].Level})
	assert.Equal(t, "console", entries[0].Attrs["source"])
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":  slog.LevelDebug,
		"INFO":   slog.LevelInfo,
		" warn ": slog.LevelWarn,
		"error":  slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestEntryString(t *testing.T) {
	e := Entry{Level: slog.LevelWarn, Message: "m", Attrs: map[string]string{"b": "2", "a": "1"}}
	assert.Contains(t, e.String(), "WARN m a=1 b=2")
}
