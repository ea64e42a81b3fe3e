package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/grovetools/coord/pkg/project"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds the standard persistent flags.
type CommandOptions struct {
	ConfigFile string
	Dir        string
	SessionID  string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a command carrying the standard coord flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to coord.yml config file")
	cmd.PersistentFlags().StringP("dir", "C", "", "Project directory (default: git root of the working directory)")
	cmd.PersistentFlags().String("session", "", "Session id (default: COORD_SESSION_ID or the remembered id)")

	return cmd
}

// GetOptions extracts the standard options from a command.
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	dir, _ := cmd.Flags().GetString("dir")
	sessionID, _ := cmd.Flags().GetString("session")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Dir:        dir,
		SessionID:  sessionID,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// ProjectOptions maps the standard flags onto project.Options.
func (o CommandOptions) ProjectOptions(component string) project.Options {
	opts := project.Options{
		Dir:        o.Dir,
		SessionID:  o.SessionID,
		Component:  component,
		ConfigFile: o.ConfigFile,
	}
	if o.Verbose {
		opts.LogLevel = logrus.DebugLevel.String()
	}
	return opts
}

// OpenProject opens the project selected by cmd's flags.
func OpenProject(ctx context.Context, cmd *cobra.Command, component string) (*project.Project, error) {
	return project.Open(ctx, GetOptions(cmd).ProjectOptions(component))
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
