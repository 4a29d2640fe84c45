package log

import (
	"bytes"
	"testing"

	"github.com/kataras/golog"
	"github.com/stretchr/testify/assert"
)

func TestNewGologLogger(t *testing.T) {
	glogger := golog.New()
	logger := NewGologLogger(glogger)

	assert.NotNil(t, logger)
	assert.Equal(t, LogLevelInfo, logger.GetLevel())
}

func TestGologLogger_LevelControl(t *testing.T) {
	logger := NewGologLogger(golog.New())

	logger.SetLevel(LogLevelDebug)
	assert.Equal(t, LogLevelDebug, logger.GetLevel())

	logger.SetLevel(LogLevelError)
	assert.Equal(t, LogLevelError, logger.GetLevel())

	logger.SetLevel(LogLevelNone)
	assert.Equal(t, LogLevelNone, logger.GetLevel())
}

func TestGologLogger_FormatsMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, LogLevelDebug)

	logger.Debug("fetched %d leads", 3)
	logger.Warn("blog for %s unavailable", "acme.io")

	out := buf.String()
	assert.Contains(t, out, "fetched 3 leads")
	assert.Contains(t, out, "blog for acme.io unavailable")
	assert.Contains(t, out, "[leadgraph]")
	assert.NotContains(t, out, "%d")
}

func TestGologLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, LogLevelError)

	logger.Debug("filtered debug")
	logger.Info("filtered info")
	logger.Warn("filtered warn")
	logger.Error("kept error")

	out := buf.String()
	assert.NotContains(t, out, "filtered")
	assert.Contains(t, out, "kept error")
}

func TestGologLogger_Child(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, LogLevelInfo)
	child := logger.Child("source")

	assert.Equal(t, LogLevelInfo, child.GetLevel())
	child.Info("connected")
	assert.Contains(t, buf.String(), "connected")
}

func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCustomLogger(&buf, LogLevelWarn)

	logger.Info("hidden")
	logger.Warn("shown %s", "warning")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN] shown warning")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"":        LogLevelInfo,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
		"off":     LogLevelNone,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestPackageLevelLogger(t *testing.T) {
	prev := GetDefaultLogger()
	defer SetDefaultLogger(prev)

	var buf bytes.Buffer
	SetDefaultLogger(NewCustomLogger(&buf, LogLevelDebug))
	Debug("package %s", "debug")
	Error("package error")

	assert.Contains(t, buf.String(), "package debug")
	assert.Contains(t, buf.String(), "package error")
	assert.Equal(t, "WARN", LogLevelWarn.String())
}
