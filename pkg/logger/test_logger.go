package logger

import (
	"testing"

	"go.uber.org/zap/zaptest"
)

// NewTestLogger returns a logger that writes through t.Log and installs it
// globally so code under test that calls Get() is captured too.
func NewTestLogger(t *testing.T) *Logger {
	zl := zaptest.NewLogger(t)
	SetGlobalLogger(zl)
	return &Logger{Logger: zl}
}
