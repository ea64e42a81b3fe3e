package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillFromBuildInfo(t *testing.T) {
	info := Info{Version: "dev", Commit: "none", BuildDate: "unknown"}
	fillFromBuildInfo(&info, &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2025-03-01T09:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	assert.Equal(t, "v0.3.1", info.Version)
	assert.Equal(t, "0123456789ab", info.Commit)
	assert.Equal(t, "2025-03-01T09:00:00Z", info.BuildDate)
	assert.True(t, info.Modified)
	assert.Contains(t, info.String(), "0123456789ab (modified)")
}

func TestFillFromBuildInfoKeepsLinkerValues(t *testing.T) {
	info := Info{Version: "v1.0.0", Commit: "abc1234", BuildDate: "today"}
	fillFromBuildInfo(&info, &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffffffffffff"}},
	})

	assert.Equal(t, "v1.0.0", info.Version)
	assert.Equal(t, "abc1234", info.Commit)
	assert.Equal(t, "today", info.BuildDate)
}
