package ebox

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Leak warnings are emitted from the runtime's cleanup goroutine, so the
// logger is swapped atomically.
var logger atomic.Pointer[zap.Logger]

// Logger returns the ebox package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// SetLogger configures the ebox package's logger.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
