package cmd

import (
	"fmt"

	"github.com/grovetools/coord/cli"
	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/pkg/coord"
	"github.com/grovetools/coord/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput lists the directories coord reads and writes.
type PathsOutput struct {
	ProjectRoot  string `json:"project_root"`
	RegistryDir  string `json:"registry_dir"`
	SessionsDir  string `json:"sessions_dir"`
	WipDir       string `json:"wip_dir"`
	CacheDir     string `json:"cache_dir"`
	LogsDir      string `json:"logs_dir"`
	StateFile    string `json:"state_file"`
	GlobalConfig string `json:"global_config"`
	GlobalState  string `json:"global_state_dir"`
}

// NewPathsCmd creates the `paths` command.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by coord as JSON",
		Long: `Print the project registry layout and the global XDG directories as JSON.

- registry_dir: shared session, wip and cache records (coordination.registry_dir)
- logs_dir: component log files
- state_file: per-user file remembering your session id for this project
- global_config: user-wide coord.yml merged beneath the project file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.OpenProject(cmd.Context(), cmd, "paths")
			if err != nil {
				return err
			}
			defer p.Close()

			c := p.Context
			output := PathsOutput{
				ProjectRoot:  c.RootDir,
				RegistryDir:  c.RegistryDir,
				SessionsDir:  c.BucketDir(coord.SessionsBucket),
				WipDir:       c.BucketDir(coord.WipBucket),
				CacheDir:     c.BucketDir(coord.CacheBucket),
				LogsDir:      c.LogDir(),
				StateFile:    c.StatePath(),
				GlobalConfig: config.GlobalConfigPath(),
				GlobalState:  paths.StateDir(),
			}
			if err := cli.WriteJSON(cmd.OutOrStdout(), output); err != nil {
				return fmt.Errorf("failed to write paths: %w", err)
			}
			return nil
		},
	}
}
