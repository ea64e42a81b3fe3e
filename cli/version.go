package cli

import (
	"fmt"

	"github.com/grovetools/coord/version"
	"github.com/spf13/cobra"
)

// SetVersionTemplate sets a custom version template for a cobra command
func SetVersionTemplate(cmd *cobra.Command, info version.Info) {
	cmd.Version = info.Version
	cmd.SetVersionTemplate(fmt.Sprintf(`{{.Name}} {{.Version}}
  Commit:    %s
  Built:     %s
  Platform:  %s
`, info.Commit, info.BuildDate, info.Platform))
}

// NewVersionCommand creates a standard version command
func NewVersionCommand(componentName string, info version.Info) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: fmt.Sprintf("Print the version number of %s", componentName),
		RunE: func(cmd *cobra.Command, args []string) error {
			if GetOptions(cmd).JSONOutput {
				return WriteJSON(cmd.OutOrStdout(), info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", componentName, info.Version)
			fmt.Fprintf(out, "  Commit:    %s\n", info.Commit)
			fmt.Fprintf(out, "  Branch:    %s\n", info.Branch)
			fmt.Fprintf(out, "  Built:     %s\n", info.BuildDate)
			fmt.Fprintf(out, "  Go:        %s\n", info.GoVersion)
			fmt.Fprintf(out, "  Platform:  %s\n", info.Platform)
			return nil
		},
	}
	return cmd
}
