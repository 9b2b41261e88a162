package fiber

import (
	"log/slog"
	"os"
)

// logger is the package-wide structured logger. It carries scheduler start
// and stop (debug level) and a warning when a fiber exits while the scheduler
// is not running; individual fiber transitions are not logged. It follows the
// style in which vango's pkg/server and
// cmd/vango/internal/routes log via slog.Default() rather than a third-party
// logging library (none appears anywhere in the retrieved corpus).
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelWarn,
}))

// SetLogger replaces the package logger, e.g. so fiberctl can raise the
// level to Debug or redirect output.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}
