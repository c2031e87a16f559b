package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter_HistoryAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, Config{Level: LevelInfo, MaxHistory: 2})

	l.Debug("blink", "hidden", nil)
	l.Info("blink", "one", map[string]interface{}{"b": 2, "a": 1})
	l.Warn("lipsync", "two", nil)
	l.Error("lipsync", "three", errors.New("boom"), nil)

	hist := l.History(0)
	require.Len(t, hist, 2)
	assert.Equal(t, "two", hist[0].Message)
	assert.Equal(t, "three", hist[1].Message)
	assert.Equal(t, "error=boom", hist[1].Data)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"component":"lipsync"`)
}

func TestFormatData_Sorted(t *testing.T) {
	assert.Equal(t, "", formatData(nil))
	assert.Equal(t, "a=1, b=x", formatData(map[string]interface{}{"b": "x", "a": 1}))
}

func TestHistory_Limit(t *testing.T) {
	l := NewWriter(&bytes.Buffer{}, Config{Level: LevelDebug, MaxHistory: 10})
	for _, m := range []string{"a", "b", "c"} {
		l.Info("x", m, nil)
	}
	hist := l.History(2)
	require.Len(t, hist, 2)
	assert.Equal(t, "b", hist[0].Message)
	assert.Equal(t, "c", hist[1].Message)
}

func TestNew_WritesFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{Dir: dir, Level: LevelDebug})
	require.NoError(t, err)

	l.Info("test", "hello", nil)
	require.NoError(t, l.Close())

	assert.Equal(t, dir, filepath.Dir(l.Path()))
	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, Config{Level: LevelDebug})
	zl := l.Component("render")
	zl.Info().Msg("frame")
	assert.Contains(t, buf.String(), `"component":"render"`)
}

func TestComponent_RecordsHistory(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, Config{Level: LevelInfo})
	zl := l.Component("lipsync")
	zl.Debug().Msg("hidden")
	zl.Warn().Str("run", "abc").Msg("audio did not start")

	hist := l.History(0)
	require.Len(t, hist, 1)
	assert.Equal(t, "warn", hist[0].Level)
	assert.Equal(t, "lipsync", hist[0].Component)
	assert.Equal(t, "audio did not start", hist[0].Message)
}
