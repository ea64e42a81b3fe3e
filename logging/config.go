package logging

// Config defines the structure for the logging extension in coord.yml.
type Config struct {
	// Level is the minimum log level to output (e.g., "debug", "info", "warn", "error").
	// Can be overridden by the COORD_LOG_LEVEL environment variable.
	Level string `yaml:"level"`

	// ReportCaller, if true, includes the file, line, and function name in the log output.
	// Can be enabled with the COORD_LOG_CALLER=true environment variable.
	ReportCaller bool `yaml:"report_caller"`

	// File configures logging to a file.
	File FileSinkConfig `yaml:"file"`

	// Format configures the appearance of the log output.
	Format FormatConfig `yaml:"format"`
}

// FileSinkConfig configures the file logging sink.
type FileSinkConfig struct {
	// Enabled turns the file sink on. Defaults to true when unset in config.
	Enabled *bool `yaml:"enabled"`
	// Path is the full path to the log file. Defaults to
	// <registry>/logs/<component>-<date>.log.
	Path   string `yaml:"path"`
	Format string `yaml:"format,omitempty"` // "json" (default) or "text"
}

// FormatConfig controls the log output format.
type FormatConfig struct {
	// DisableTimestamp disables the timestamp from text output.
	DisableTimestamp bool `yaml:"disable_timestamp"`
	// DisableComponent disables the component name from text output.
	DisableComponent bool `yaml:"disable_component"`
	// StructuredToStderr controls when log lines are sent to stderr.
	// Can be "auto" (default: only at debug level), "always", or "never".
	// Hook output travels over stderr, so auto keeps it clean.
	StructuredToStderr string `yaml:"structured_to_stderr"`
}

func (f FileSinkConfig) enabled() bool {
	return f.Enabled == nil || *f.Enabled
}
