package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel represents logging severity
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	// LogLevelNone disables all logging
	LogLevelNone
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "NONE"}

func (l LogLevel) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("UNKNOWN(%d)", l)
}

// ParseLevel converts a level name such as "debug" or "WARN" into a LogLevel.
// The empty name is LogLevelInfo.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "none", "disable", "off":
		return LogLevelNone, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Logger is the printf-style logger used by the engine, the pipeline nodes and their collaborators.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// DefaultLogger writes through the standard library logger. It is the
// package default until SetDefaultLogger installs something else.
type DefaultLogger struct {
	logger *log.Logger
	level  LogLevel
}

// NewDefaultLogger creates a logger writing to stderr.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return NewCustomLogger(os.Stderr, level)
}

// NewCustomLogger creates a logger writing to out.
func NewCustomLogger(out io.Writer, level LogLevel) *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(out, "[leadgraph] ", log.LstdFlags),
		level:  level,
	}
}

func (l *DefaultLogger) printf(level LogLevel, format string, v []any) {
	if l.level > level {
		return
	}
	l.logger.Printf("["+level.String()+"] "+format, v...)
}

func (l *DefaultLogger) Debug(format string, v ...any) { l.printf(LogLevelDebug, format, v) }
func (l *DefaultLogger) Info(format string, v ...any)  { l.printf(LogLevelInfo, format, v) }
func (l *DefaultLogger) Warn(format string, v ...any)  { l.printf(LogLevelWarn, format, v) }
func (l *DefaultLogger) Error(format string, v ...any) { l.printf(LogLevelError, format, v) }

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (*NoOpLogger) Debug(string, ...any) {}
func (*NoOpLogger) Info(string, ...any)  {}
func (*NoOpLogger) Warn(string, ...any)  {}
func (*NoOpLogger) Error(string, ...any) {}

type holder struct{ Logger }

// defaultLogger is read from concurrently running nodes.
var defaultLogger atomic.Pointer[holder]

func init() {
	defaultLogger.Store(&holder{NewDefaultLogger(LogLevelInfo)})
}

// SetDefaultLogger sets the package-level logger used by the helpers below
// and by components constructed without a Logger. A nil logger discards
// everything.
func SetDefaultLogger(logger Logger) {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	defaultLogger.Store(&holder{logger})
}

// GetDefaultLogger returns the current package-level logger
func GetDefaultLogger() Logger {
	return defaultLogger.Load().Logger
}

// SetLogLevel installs a DefaultLogger with the given level.
func SetLogLevel(level LogLevel) {
	SetDefaultLogger(NewDefaultLogger(level))
}

func Debug(format string, v ...any) { GetDefaultLogger().Debug(format, v...) }
func Info(format string, v ...any)  { GetDefaultLogger().Info(format, v...) }
func Warn(format string, v ...any)  { GetDefaultLogger().Warn(format, v...) }
func Error(format string, v ...any) { GetDefaultLogger().Error(format, v...) }
