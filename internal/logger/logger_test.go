package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureOutput captures log output during a test
func captureOutput(f func()) string {
	var buf bytes.Buffer
	oldLogger := logger
	logger = newLogger(&buf)
	logger.SetLevel(toLogrus(logLevel))
	defer func() { logger = oldLogger }()

	f()
	return buf.String()
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"unknown", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			setLogLevel(tt.level)
			assert.Equal(t, tt.expected, logLevel)
		})
	}
}

func TestDebug(t *testing.T) {
	logLevel = LevelDebug
	output := captureOutput(func() {
		Debug("Test debug message: %s", "value")
	})
	assert.Contains(t, output, "level=debug")
	assert.Contains(t, output, "Test debug message: value")

	logLevel = LevelInfo
	output = captureOutput(func() {
		Debug("This should not appear")
	})
	assert.Empty(t, output)
}

func TestInfo(t *testing.T) {
	logLevel = LevelInfo
	output := captureOutput(func() {
		Info("Test info message: %s", "value")
	})
	assert.Contains(t, output, "level=info")
	assert.Contains(t, output, "Test info message: value")

	logLevel = LevelError
	output = captureOutput(func() {
		Info("This should not appear")
	})
	assert.Empty(t, output)
}

func TestWarnAndError(t *testing.T) {
	logLevel = LevelWarn
	output := captureOutput(func() {
		Warn("careful: %d", 3)
		Error("broken: %s", "x")
	})
	assert.Contains(t, output, "level=warning")
	assert.Contains(t, output, "careful: 3")
	assert.Contains(t, output, "level=error")
	assert.Contains(t, output, "broken: x")
}

func TestErrorWithStack(t *testing.T) {
	logLevel = LevelError
	output := captureOutput(func() {
		ErrorWithStack(errors.New("boom"))
	})
	assert.Contains(t, output, "boom")
	assert.Contains(t, output, "goroutine")

	output = captureOutput(func() {
		ErrorWithStack(nil)
	})
	assert.Empty(t, output)
}

func TestWithFields(t *testing.T) {
	logLevel = LevelInfo
	output := captureOutput(func() {
		WithFields(map[string]interface{}{"operation": "query_tasks"}).Info("executed")
	})
	assert.Contains(t, output, "operation=query_tasks")
	assert.Contains(t, output, "executed")
}
