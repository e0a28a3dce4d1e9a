package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger for structured JSON logging.
type Logger struct {
	*slog.Logger
}

// New creates a logger at the given level (DEBUG, INFO, WARN, ERROR).
func New(level string) *Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter creates a logger writing JSON lines to w.
func NewWithWriter(w io.Writer, level string) *Logger {
	var logLevel slog.Level

	switch strings.ToUpper(level) {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "INFO":
		logLevel = slog.LevelInfo
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	return &Logger{Logger: slog.New(handler)}
}

// WithReference returns a logger with the payment reference attached.
func (l *Logger) WithReference(reference string) *Logger {
	return &Logger{Logger: l.With("reference", reference)}
}

// WithUserID returns a logger with the user id attached.
func (l *Logger) WithUserID(userID uint) *Logger {
	return &Logger{Logger: l.With("user_id", userID)}
}
