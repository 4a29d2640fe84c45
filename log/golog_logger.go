package log

import (
	"io"
	"strings"

	"github.com/kataras/golog"
)

// GologLogger implements Logger interface using kataras/golog
type GologLogger struct {
	logger *golog.Logger
	level  LogLevel
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger creates a new logger using an existing golog.Logger
func NewGologLogger(logger *golog.Logger) *GologLogger {
	return &GologLogger{
		logger: logger,
		level:  LogLevelInfo, // default level
	}
}

// NewConsoleLogger builds a golog-backed logger writing to out with the
// leadgraph prefix and the given level.
func NewConsoleLogger(out io.Writer, level LogLevel) *GologLogger {
	gl := golog.New().
		SetOutput(out).
		SetPrefix("[leadgraph] ").
		SetTimeFormat("2006-01-02 15:04:05")
	l := NewGologLogger(gl)
	l.SetLevel(level)
	return l
}

// Child returns a logger whose lines are tagged with name, sharing the level.
func (l *GologLogger) Child(name string) *GologLogger {
	return &GologLogger{logger: l.logger.Child(name), level: l.level}
}

// Level filtering is left to golog, configured by SetLevel.

func (l *GologLogger) Debug(format string, v ...any) { l.logger.Debugf(format, v...) }
func (l *GologLogger) Info(format string, v ...any)  { l.logger.Infof(format, v...) }
func (l *GologLogger) Warn(format string, v ...any)  { l.logger.Warnf(format, v...) }
func (l *GologLogger) Error(format string, v ...any) { l.logger.Errorf(format, v...) }

// SetLevel sets the log level
func (l *GologLogger) SetLevel(level LogLevel) {
	l.level = level
	name := strings.ToLower(level.String())
	if level >= LogLevelNone {
		name = "disable"
	}
	l.logger.SetLevel(name)
}

// GetLevel returns the current log level
func (l *GologLogger) GetLevel() LogLevel {
	return l.level
}
