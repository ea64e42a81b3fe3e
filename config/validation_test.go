package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, Default().Validate())

	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty registry dir", func(c *Config) { c.Coordination.RegistryDir = "" }},
		{"zero stale", func(c *Config) { c.Coordination.StaleAfter = "0s" }},
		{"negative commits", func(c *Config) { c.Sync.MaxCommits = -1 }},
		{"bad ignore glob", func(c *Config) { c.Coordination.Ignore = []string{"[unclosed"} }},
		{"unknown backend", func(c *Config) { c.Registry.Backend = "etcd" }},
		{"unknown mode", func(c *Config) { c.Coordination.ConflictMode = "deny" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
