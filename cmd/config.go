package cmd

import (
	"fmt"

	"github.com/grovetools/coord/cli"
	"github.com/grovetools/coord/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the `config` command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration or its schema",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigSchemaCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration with defaults and environment overrides applied",
		Long: `Shows the configuration coord will use, built by merging:
1. Global config ($XDG_CONFIG_HOME/coord/coord.yml)
2. Project config (coord.yml, coord.yaml, .coord.yml or coord.toml)
3. Override file (coord.override.yml)
4. Environment overrides (CONFLICT_CHECK_MODE, COORD_REDIS_URL)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.OpenProject(cmd.Context(), cmd, "config")
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				return cli.WriteJSON(out, p.Config)
			}
			data, err := yaml.Marshal(p.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintf(out, "# Project root: %s\n", p.Context.RootDir)
			if path, err := config.FindConfigFile(p.Context.RootDir); err == nil {
				fmt.Fprintf(out, "# Source: %s\n", path)
			}
			fmt.Fprint(out, string(data))
			return nil
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema for coord.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
