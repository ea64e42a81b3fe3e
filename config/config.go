package config

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/coord/errors"
	"github.com/grovetools/coord/git"
	"github.com/grovetools/coord/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// configNames are searched in order in each directory.
var configNames = []string{
	"coord.yml",
	"coord.yaml",
	".coord.yml",
	".coord.yaml",
	"coord.toml",
}

// overrideNames are merged on top of the project file, in order.
var overrideNames = []string{
	"coord.override.yml",
	"coord.override.yaml",
	".coord.override.yml",
	".coord.override.yaml",
}

// Environment variables that override file configuration.
const (
	EnvConflictMode      = "CONFLICT_CHECK_MODE"
	EnvCoordConflictMode = "COORD_CONFLICT_MODE"
	EnvRedisURL          = "COORD_REDIS_URL"
)

// Load reads and parses a single configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, formatOf(path))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault finds and loads the configuration starting at the current
// directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the given directory
func LoadFrom(startDir string) (*Config, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	return LoadFromWithLogger(startDir, logger)
}

// LoadFromWithLogger loads configuration with hierarchical merging:
// 1. Global config ($XDG_CONFIG_HOME/coord/coord.yml) - base layer
// 2. Project config (coord.yml) - overrides global
// 3. Local override (coord.override.yml) - overrides all
// Environment overrides are applied last.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	projectPath, err := FindConfigFile(startDir)
	if err != nil {
		return nil, err
	}

	logger.WithField("path", projectPath).Debug("Loading project configuration")

	var finalConfig *Config

	globalPath := getXDGConfigPath()
	if globalPath != "" && globalPath != projectPath {
		if _, err := os.Stat(globalPath); err == nil {
			logger.WithField("path", globalPath).Debug("Loading global configuration")
			globalConfig, err := readLayer(globalPath)
			if err != nil {
				logger.WithError(err).Warn("Failed to load global configuration, continuing without it")
			} else {
				finalConfig = globalConfig
			}
		}
	}

	projectConfig, err := readLayer(projectPath)
	if err != nil {
		return nil, err
	}

	if finalConfig == nil {
		finalConfig = projectConfig
	} else {
		logger.Debug("Merging project configuration over global configuration")
		finalConfig = mergeConfigs(finalConfig, projectConfig)
	}

	projectDir := filepath.Dir(projectPath)
	for _, name := range overrideNames {
		overridePath := filepath.Join(projectDir, name)
		if _, err := os.Stat(overridePath); err != nil {
			continue
		}
		logger.WithField("path", overridePath).Debug("Loading local override configuration")
		overrideConfig, err := readLayer(overridePath)
		if err != nil {
			logger.WithError(err).Warn("Failed to load override file, skipping")
			continue
		}
		finalConfig = mergeConfigs(finalConfig, overrideConfig)
	}

	finalConfig.SetDefaults()
	ApplyEnv(finalConfig, logger)

	if err := finalConfig.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Configuration loaded and validated successfully")

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		configData, err := yaml.Marshal(finalConfig)
		if err == nil {
			logger.Debugf("Merged configuration:\n%s", string(configData))
		}
	}

	return finalConfig, nil
}

// LoadOrDefault behaves like LoadFromWithLogger but falls back to defaults
// (plus environment overrides) when no configuration file exists. Hooks use
// this so an unconfigured project still coordinates.
func LoadOrDefault(startDir string, logger *logrus.Logger) (*Config, error) {
	cfg, err := LoadFromWithLogger(startDir, logger)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, errors.ErrCodeConfigNotFound) {
		return nil, err
	}
	cfg = Default()
	ApplyEnv(cfg, logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromBytes parses, schema-validates, defaults and validates a single
// document. format is "yaml" or "toml".
func LoadFromBytes(data []byte, format string) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	raw, err := decodeRaw(expanded, format)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse configuration").
			WithDetail("format", format)
	}

	if err := validateDocument(raw, ""); err != nil {
		return nil, err
	}

	config, err := decodeConfig(expanded, raw, format)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// readLayer reads one file for merging, without defaults or validation.
func readLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config").
			WithDetail("path", path)
	}
	expanded := []byte(expandEnvVars(string(data)))
	format := formatOf(path)
	raw, err := decodeRaw(expanded, format)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config").
			WithDetail("path", path)
	}
	if err := validateDocument(raw, path); err != nil {
		return nil, err
	}
	cfg, err := decodeConfig(expanded, raw, format)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode config").
			WithDetail("path", path)
	}
	return cfg, nil
}

// decodeRaw parses a document into a generic map for schema validation.
func decodeRaw(data []byte, format string) (map[string]interface{}, error) {
	raw := map[string]interface{}{}
	if len(bytes.TrimSpace(data)) == 0 {
		return raw, nil
	}
	var err error
	if format == "toml" {
		err = toml.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func decodeConfig(data []byte, raw map[string]interface{}, format string) (*Config, error) {
	if format == "toml" {
		return decodeMap(raw)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

// ApplyEnv applies environment overrides. An unrecognised conflict mode is
// ignored with a warning so a typo never blocks edits.
func ApplyEnv(cfg *Config, logger *logrus.Logger) {
	for _, key := range []string{EnvCoordConflictMode, EnvConflictMode} {
		mode := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
		if mode == "" {
			continue
		}
		switch mode {
		case ModeWarn, ModeBlock, ModeSkip:
			cfg.Coordination.ConflictMode = mode
		default:
			if logger != nil {
				logger.WithFields(logrus.Fields{"variable": key, "value": mode}).
					Warn("Ignoring unknown conflict mode")
			}
		}
		break
	}

	if url := os.Getenv(EnvRedisURL); url != "" {
		cfg.Registry.Backend = BackendRedis
		cfg.Registry.RedisURL = url
	}
}

// FindConfigFile searches for coord configuration files with the following precedence:
// 1. Start directory up to filesystem root
// 2. Git repository root (if in a git repo)
// 3. XDG config directory ($XDG_CONFIG_HOME/coord/coord.yml)
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if gitRoot, err := git.GetGitRoot(startDir); err == nil && gitRoot != "" {
		for _, name := range configNames {
			path := filepath.Join(gitRoot, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}

	if xdgConfigPath := getXDGConfigPath(); xdgConfigPath != "" {
		if info, err := os.Stat(xdgConfigPath); err == nil && !info.IsDir() {
			return xdgConfigPath, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// getXDGConfigPath returns the global configuration file path
func getXDGConfigPath() string {
	dir := paths.ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "coord.yml")
}

// GlobalConfigPath exposes the global configuration file location.
func GlobalConfigPath() string {
	return getXDGConfigPath()
}
