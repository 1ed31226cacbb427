package logger

import (
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level represents the severity of a log message
type Level int

const (
	// LevelDebug for detailed troubleshooting
	LevelDebug Level = iota
	// LevelInfo for general operational entries
	LevelInfo
	// LevelWarn for non-critical issues
	LevelWarn
	// LevelError for errors that should be addressed
	LevelError
)

var (
	logger   = newLogger(os.Stderr)
	logLevel = LevelInfo
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	l.SetLevel(logrus.DebugLevel)
	return l
}

// Initialize sets up the logger with the specified level.
// Output goes to stderr so that the stdio MCP transport keeps stdout clean.
func Initialize(level string) {
	logger = newLogger(os.Stderr)
	setLogLevel(level)
}

// SetOutput redirects log output
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Writer returns a writer that logs each line at info level
func Writer() io.Writer {
	return logger.WriterLevel(logrus.InfoLevel)
}

// setLogLevel sets the log level from a string
func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		logLevel = LevelDebug
	case "info":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	logger.SetLevel(toLogrus(logLevel))
}

func toLogrus(level Level) logrus.Level {
	switch level {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// logMessage logs a message with the given level
func logMessage(level Level, format string, v ...interface{}) {
	if level < logLevel {
		return
	}
	logger.Logf(toLogrus(level), format, v...)
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	logMessage(LevelDebug, format, v...)
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	logMessage(LevelInfo, format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	logMessage(LevelWarn, format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	logMessage(LevelError, format, v...)
}

// ErrorWithStack logs an error with a stack trace
func ErrorWithStack(err error) {
	if err == nil {
		return
	}
	logMessage(LevelError, "%v\n%s", err, debug.Stack())
}

// WithFields returns an entry carrying structured fields.
// Entries respect the level configured through Initialize.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return logger.WithFields(logrus.Fields(fields))
}
