package shared

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/rc/errors"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
	loggerSet  bool
)

// Logger returns the shared package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the shared package's logger.
// This must be called before any pointers are created.
func SetLogger(l *zap.Logger) {
	Logger()
	logger = l
	loggerSet = true
}

// fatal terminates the process. Count overflow and allocator exhaustion end
// up here; neither leaves the counts in a state that is safe to continue from.
func fatal(err *errors.Error) {
	if !loggerSet {
		fmt.Fprintln(os.Stderr, "rc: fatal:", err)
	}
	Logger().Fatal("unrecoverable reference counting error", zap.Error(err))
	// Only reached when the logger's fatal hook returns.
	panic(err)
}
