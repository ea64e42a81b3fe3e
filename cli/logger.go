package cli

import (
	"io"

	"github.com/sirupsen/logrus"
)

// LoggerOption configures an event logger.
type LoggerOption func(*logrus.Logger)

// WithLevel sets the minimum level written.
func WithLevel(level logrus.Level) LoggerOption {
	return func(l *logrus.Logger) {
		l.SetLevel(level)
	}
}

// WithFormatter replaces the formatter chosen by NewEventLogger.
func WithFormatter(formatter logrus.Formatter) LoggerOption {
	return func(l *logrus.Logger) {
		l.SetFormatter(formatter)
	}
}

// NewEventLogger returns a logger that streams one line per event to w,
// as JSON when jsonOutput is set. Long-running commands such as
// `wip watch` use it for their output; diagnostics go through
// logging.NewLogger instead.
func NewEventLogger(w io.Writer, jsonOutput bool, opts ...LoggerOption) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(logrus.InfoLevel)
	if jsonOutput {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	for _, opt := range opts {
		opt(logger)
	}
	return logger
}
