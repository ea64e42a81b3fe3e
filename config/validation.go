package config

import (
	"fmt"
	"time"

	"github.com/grovetools/coord/errors"
	"github.com/moby/patternmatcher"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	co := c.Coordination

	stale, err := validateDuration("coordination.stale_after", co.StaleAfter)
	if err != nil {
		return err
	}
	zombie, err := validateDuration("coordination.zombie_after", co.ZombieAfter)
	if err != nil {
		return err
	}
	if zombie < stale {
		return errors.New(errors.ErrCodeConfigValidation,
			fmt.Sprintf("coordination.zombie_after (%s) must not be shorter than coordination.stale_after (%s)", co.ZombieAfter, co.StaleAfter))
	}

	switch co.ConflictMode {
	case ModeWarn, ModeBlock, ModeSkip:
	default:
		return errors.New(errors.ErrCodeConfigValidation,
			fmt.Sprintf("coordination.conflict_mode must be one of warn, block, skip (got %q)", co.ConflictMode)).
			WithDetail("field", "coordination.conflict_mode")
	}

	if co.RegistryDir == "" {
		return errors.New(errors.ErrCodeConfigValidation, "coordination.registry_dir cannot be empty")
	}

	if _, err := patternmatcher.New(co.Ignore); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid coordination.ignore pattern").
			WithDetail("field", "coordination.ignore")
	}

	if _, err := validateDuration("sync.ttl", c.Sync.TTL); err != nil {
		return err
	}
	if c.Sync.MaxCommits < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "sync.max_commits cannot be negative")
	}

	switch c.Registry.Backend {
	case BackendFile:
	case BackendRedis:
		if c.Registry.RedisURL == "" {
			return errors.New(errors.ErrCodeConfigValidation, "registry.redis_url is required when registry.backend is redis").
				WithDetail("field", "registry.redis_url")
		}
	default:
		return errors.New(errors.ErrCodeConfigValidation,
			fmt.Sprintf("registry.backend must be file or redis (got %q)", c.Registry.Backend)).
			WithDetail("field", "registry.backend")
	}

	return nil
}

func validateDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("%s is not a valid duration", field)).
			WithDetail("field", field).
			WithDetail("value", value)
	}
	if d <= 0 {
		return 0, errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("%s must be positive", field)).
			WithDetail("field", field)
	}
	return d, nil
}
