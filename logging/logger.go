package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/util/sanitize"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Environment variables consulted by NewLogger.
const (
	EnvLogLevel  = "COORD_LOG_LEVEL"
	EnvLogCaller = "COORD_LOG_CALLER"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	configured *Options
)

// Options fixes the logging configuration for the rest of the process.
type Options struct {
	// Config is the decoded logging extension.
	Config Config
	// LogDir receives <component>-<date>.log files. Empty disables the
	// default file sink.
	LogDir string
	// Level, when set, wins over COORD_LOG_LEVEL and the config.
	Level string
	// Stderr overrides os.Stderr, for tests.
	Stderr io.Writer
}

// Configure sets the options used by subsequent NewLogger calls and drops
// any cached loggers.
func Configure(opts Options) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	configured = &opts
	loggers = make(map[string]*logrus.Entry)
}

// ConfigFrom decodes the logging extension of cfg, tolerating a nil config.
func ConfigFrom(cfg *config.Config) Config {
	var logCfg Config
	if cfg == nil {
		return logCfg
	}
	if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
		logrus.Warnf("Failed to parse 'logging' config: %v", err)
	}
	return logCfg
}

// LogDir returns the directory the default file sink writes to, or "" when
// no project has been configured.
func LogDir() string {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	if configured == nil {
		return ""
	}
	return configured.LogDir
}

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	var opts Options
	if configured != nil {
		opts = *configured
	} else if cfg, err := config.LoadDefault(); err == nil {
		opts.Config = ConfigFrom(cfg)
	}
	logCfg := opts.Config
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	logger := logrus.New()

	// Configure Level
	levelStr := "info"
	if opts.Level != "" {
		levelStr = opts.Level
	} else if env := os.Getenv(EnvLogLevel); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv(EnvLogCaller) == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	var writers []io.Writer

	// File sink: JSON lines unless text is requested.
	var logFilePath string
	if logCfg.File.Path != "" {
		logFilePath = expandPath(logCfg.File.Path)
	} else if opts.LogDir != "" && logCfg.File.enabled() {
		dateStr := time.Now().Format("2006-01-02")
		logFilePath = filepath.Join(opts.LogDir, fmt.Sprintf("%s-%s.log", sanitize.ForFilename(component), dateStr))
	}

	var fileWriter io.Writer
	if logFilePath != "" && logCfg.File.enabled() {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err == nil {
			file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				fileWriter = file
			}
		}
	}

	shouldLogToStderr := false
	switch logCfg.Format.StructuredToStderr {
	case "always":
		shouldLogToStderr = true
	case "never":
	default:
		shouldLogToStderr = logger.GetLevel() >= logrus.DebugLevel
	}

	colorStderr := false
	if f, ok := stderr.(*os.File); ok {
		colorStderr = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	// Text goes to stderr; files get JSON. A single logrus.Logger has one
	// formatter, so the file sink is attached as a hook when both are used.
	switch {
	case fileWriter != nil && shouldLogToStderr:
		writers = append(writers, stderr)
		logger.AddHook(&fileHook{writer: fileWriter, formatter: fileFormatter(logCfg)})
	case fileWriter != nil:
		writers = append(writers, fileWriter)
	case shouldLogToStderr:
		writers = append(writers, stderr)
	}

	if fileWriter != nil && !shouldLogToStderr {
		logger.SetFormatter(fileFormatter(logCfg))
	} else {
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format, Color: colorStderr})
	}

	if len(writers) == 0 {
		logger.SetOutput(io.Discard)
	} else {
		logger.SetOutput(writers[0])
	}

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

func fileFormatter(logCfg Config) logrus.Formatter {
	if logCfg.File.Format == "text" {
		return &TextFormatter{Config: logCfg.Format}
	}
	return &logrus.JSONFormatter{}
}

// fileHook mirrors every entry into the file sink with its own formatter.
type fileHook struct {
	mu        sync.Mutex
	writer    io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(line)
	return err
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
