package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  Gemini  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	require.Len(t, fields, 1)
	assert.Equal(t, "provider", fields[0].Key)
	assert.Equal(t, "Gemini", fields[0].String)
	assert.Empty(t, StringFields())
}

func TestWithFields_NilLogger(t *testing.T) {
	enriched := WithFields(nil, zap.String("baz", "qux"))
	require.NotNil(t, enriched)
	enriched.Info("does not panic")
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(core), "gemini", "model-x").Info("test log")

	entries := observed.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "gemini", ctx[FieldProvider])
	assert.Equal(t, "model-x", ctx[FieldModel])
	assert.Empty(t, CommonFields("", ""))
}

func TestForJob(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	ForJob(zap.New(core), "reasoning", "j1").Info("scored")

	ctx := observed.All()[0].ContextMap()
	assert.Equal(t, "reasoning", ctx[FieldStage])
	assert.Equal(t, "j1", ctx[FieldJobID])
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "abc", TruncateForLog("  abc  ", 10))
	assert.Equal(t, "ab...", TruncateForLog("abcdef", 2))
	assert.Equal(t, "жё...", TruncateForLog("жёлтый", 2))
	assert.Empty(t, TruncateForLog("abc", 0))
}

func TestNew(t *testing.T) {
	l, err := New(Options{JSON: true, Debug: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(Options{})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_InitialFieldsAndOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	l, err := New(Options{JSON: true, App: "apply-queue", Version: "v1", Command: "run", Output: path})
	require.NoError(t, err)
	l.Info("matching")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "matching", entry["step"])
	assert.Equal(t, "apply-queue", entry[FieldApp])
	assert.Equal(t, "v1", entry[FieldVersion])
	assert.Equal(t, "run", entry[FieldCommand])
}
