package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

//go:generate go run ../tools/schema-generator/ -out ..

// Conflict modes accepted by coordination.conflict_mode.
const (
	ModeWarn  = "warn"
	ModeBlock = "block"
	ModeSkip  = "skip"
)

// Registry backends accepted by registry.backend.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Defaults applied by SetDefaults.
const (
	DefaultRegistryDir   = ".coord"
	DefaultStaleAfter    = "30m"
	DefaultZombieAfter   = "2h"
	DefaultSyncTTL       = "5m"
	DefaultRemote        = "origin"
	DefaultMaxCommits    = 10
	DefaultConfigVersion = "1.0"
)

// DefaultDependencyFiles are the manifest and lockfile names whose remote
// changes imply a local install step.
var DefaultDependencyFiles = []string{
	"pubspec.yaml",
	"pubspec.lock",
	"package.json",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"requirements.txt",
	"Pipfile.lock",
	"Gemfile.lock",
	"go.mod",
	"go.sum",
	"Cargo.lock",
}

// DefaultHighImpactPaths are path prefixes whose remote changes are likely
// to affect work elsewhere in the tree.
var DefaultHighImpactPaths = []string{
	"lib/core/",
	"lib/shared/",
	"src/core/",
	"src/shared/",
	"src/common/",
	"packages/core/",
	"config/",
	".env",
	"database/",
	"migrations/",
}

// DefaultIgnore lists globs that are never conflict-checked or tracked.
var DefaultIgnore = []string{
	".git/**",
	".coord/**",
}

// CoordinationConfig controls the session registry and conflict checks.
type CoordinationConfig struct {
	RegistryDir  string   `yaml:"registry_dir,omitempty" toml:"registry_dir,omitempty" json:"registry_dir,omitempty" jsonschema:"description=Registry directory relative to the project root (default: .coord)"`
	StaleAfter   string   `yaml:"stale_after,omitempty" toml:"stale_after,omitempty" json:"stale_after,omitempty" jsonschema:"description=Idle time after which a session stops counting as a conflict source (default: 30m)"`
	ZombieAfter  string   `yaml:"zombie_after,omitempty" toml:"zombie_after,omitempty" json:"zombie_after,omitempty" jsonschema:"description=Idle time after which a session record is removed by cleanup (default: 2h)"`
	ConflictMode string   `yaml:"conflict_mode,omitempty" toml:"conflict_mode,omitempty" json:"conflict_mode,omitempty" jsonschema:"description=Conflict enforcement mode,enum=warn,enum=block,enum=skip,default=warn"`
	Ignore       []string `yaml:"ignore,omitempty" toml:"ignore,omitempty" json:"ignore,omitempty" jsonschema:"description=Glob patterns excluded from conflict checks and tracking"`
}

// SyncConfig controls the remote sync monitor.
type SyncConfig struct {
	TTL             string   `yaml:"ttl,omitempty" toml:"ttl,omitempty" json:"ttl,omitempty" jsonschema:"description=Minimum time between remote checks (default: 5m)"`
	DefaultRemote   string   `yaml:"default_remote,omitempty" toml:"default_remote,omitempty" json:"default_remote,omitempty" jsonschema:"description=Remote used when the branch has no configured upstream (default: origin)"`
	MaxCommits      int      `yaml:"max_commits,omitempty" toml:"max_commits,omitempty" json:"max_commits,omitempty" jsonschema:"description=Maximum remote commit summaries collected per check (default: 10)"`
	Fetch           *bool    `yaml:"fetch,omitempty" toml:"fetch,omitempty" json:"fetch,omitempty" jsonschema:"description=Fetch from the remote before comparing (default: true)"`
	DependencyFiles []string `yaml:"dependency_files,omitempty" toml:"dependency_files,omitempty" json:"dependency_files,omitempty" jsonschema:"description=Manifest and lockfile names that trigger an install recommendation"`
	HighImpactPaths []string `yaml:"high_impact_paths,omitempty" toml:"high_impact_paths,omitempty" json:"high_impact_paths,omitempty" jsonschema:"description=Path prefixes reported as core/shared changes"`
}

// RegistryConfig selects where session and WIP records are stored.
type RegistryConfig struct {
	Backend   string `yaml:"backend,omitempty" toml:"backend,omitempty" json:"backend,omitempty" jsonschema:"description=Record store backend,enum=file,enum=redis,default=file"`
	RedisURL  string `yaml:"redis_url,omitempty" toml:"redis_url,omitempty" json:"redis_url,omitempty" jsonschema:"description=Redis connection URL when backend is redis"`
	Namespace string `yaml:"namespace,omitempty" toml:"namespace,omitempty" json:"namespace,omitempty" jsonschema:"description=Key namespace shared by all sessions of one project (default: project directory name)"`
}

// Config is the coord.yml document.
type Config struct {
	Version      string             `yaml:"version" toml:"version" json:"version" jsonschema:"description=Configuration version (e.g. '1.0')"`
	Coordination CoordinationConfig `yaml:"coordination,omitempty" toml:"coordination,omitempty" json:"coordination,omitempty" jsonschema:"description=Session registry and conflict checking"`
	Sync         SyncConfig         `yaml:"sync,omitempty" toml:"sync,omitempty" json:"sync,omitempty" jsonschema:"description=Remote sync monitor"`
	Registry     RegistryConfig     `yaml:"registry,omitempty" toml:"registry,omitempty" json:"registry,omitempty" jsonschema:"description=Record storage backend"`

	// Extensions captures all other top-level keys, such as logging.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`
}

// knownKeys are the top-level keys decoded into Config fields.
var knownKeys = map[string]bool{
	"version":      true,
	"coordination": true,
	"sync":         true,
	"registry":     true,
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = DefaultConfigVersion
	}

	co := &c.Coordination
	if co.RegistryDir == "" {
		co.RegistryDir = DefaultRegistryDir
	}
	if co.StaleAfter == "" {
		co.StaleAfter = DefaultStaleAfter
	}
	if co.ZombieAfter == "" {
		co.ZombieAfter = DefaultZombieAfter
	}
	if co.ConflictMode == "" {
		co.ConflictMode = ModeWarn
	}
	if co.Ignore == nil {
		co.Ignore = append([]string(nil), DefaultIgnore...)
	}

	s := &c.Sync
	if s.TTL == "" {
		s.TTL = DefaultSyncTTL
	}
	if s.DefaultRemote == "" {
		s.DefaultRemote = DefaultRemote
	}
	if s.MaxCommits == 0 {
		s.MaxCommits = DefaultMaxCommits
	}
	if s.Fetch == nil {
		fetch := true
		s.Fetch = &fetch
	}
	if s.DependencyFiles == nil {
		s.DependencyFiles = append([]string(nil), DefaultDependencyFiles...)
	}
	if s.HighImpactPaths == nil {
		s.HighImpactPaths = append([]string(nil), DefaultHighImpactPaths...)
	}

	if c.Registry.Backend == "" {
		c.Registry.Backend = BackendFile
	}
}

// StaleThreshold returns coordination.stale_after as a duration.
func (c *Config) StaleThreshold() time.Duration {
	return mustDuration(c.Coordination.StaleAfter, DefaultStaleAfter)
}

// ZombieThreshold returns coordination.zombie_after as a duration.
func (c *Config) ZombieThreshold() time.Duration {
	return mustDuration(c.Coordination.ZombieAfter, DefaultZombieAfter)
}

// SyncTTL returns sync.ttl as a duration.
func (c *Config) SyncTTL() time.Duration {
	return mustDuration(c.Sync.TTL, DefaultSyncTTL)
}

// FetchEnabled reports whether the sync monitor fetches before comparing.
func (c *Config) FetchEnabled() bool {
	return c.Sync.Fetch == nil || *c.Sync.Fetch
}

// mustDuration parses s, falling back to def. Validate rejects unparsable
// values, so the fallback only applies to unvalidated configs.
func mustDuration(s, def string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(def)
	return d
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded coord.yml into the provided target struct. The target must be a
// pointer. A missing key leaves the target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// decodeMap converts a generic document (as produced by the TOML decoder)
// into a Config, routing unknown top-level keys into Extensions.
func decodeMap(raw map[string]interface{}) (*Config, error) {
	known := make(map[string]interface{}, len(raw))
	var cfg Config
	for k, v := range raw {
		if knownKeys[k] {
			known[k] = v
			continue
		}
		if cfg.Extensions == nil {
			cfg.Extensions = make(map[string]interface{})
		}
		cfg.Extensions[k] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(known); err != nil {
		return nil, err
	}
	return &cfg, nil
}
