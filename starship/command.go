package starship

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/grovetools/coord/cli"
	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/pkg/project"
)

// ModuleName is the starship custom module coord installs.
const ModuleName = "custom.coord"

// NewStarshipCmd returns the starship command. binaryName is the command
// starship runs for the status segment.
func NewStarshipCmd(binaryName string) *cobra.Command {
	starshipCmd := &cobra.Command{
		Use:   "starship",
		Short: "Show coordination status in the Starship prompt",
	}

	var configPath string
	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Add the coord module to starship.toml",
		Long: `Adds a [custom.coord] module to starship.toml and, when possible, inserts
${custom.coord} into the prompt format after $git_metrics.

The file is $STARSHIP_CONFIG when set, otherwise ~/.config/starship.toml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				var err error
				if path, err = DefaultConfigPath(); err != nil {
					return err
				}
			}
			return Install(cmd.OutOrStdout(), path, binaryName)
		},
	}
	installCmd.Flags().StringVar(&configPath, "starship-config", "", "Path to starship.toml")

	statusCmd := &cobra.Command{
		Use:    "status",
		Short:  "Print the prompt segment",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The prompt must never show errors; every failure prints nothing.
			opts := cli.GetOptions(cmd).ProjectOptions("starship")
			opts.LogLevel = "panic"
			p, err := project.Open(cmd.Context(), opts)
			if err != nil {
				return nil
			}
			defer p.Close()
			fmt.Fprint(cmd.OutOrStdout(), Render(cmd.Context(), p))
			return nil
		},
	}

	starshipCmd.AddCommand(installCmd, statusCmd)
	return starshipCmd
}

// DefaultConfigPath returns where starship reads its configuration.
func DefaultConfigPath() (string, error) {
	if p := os.Getenv("STARSHIP_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "starship.toml"), nil
}

// ModuleConfig is the TOML block Install writes.
func ModuleConfig(binaryName string) string {
	return fmt.Sprintf(`
# Added by '%[1]s starship install'
[custom.coord]
description = "Shows concurrent agent sessions"
command = "%[1]s starship status"
when = "test -d %[2]s"
format = " $output "
`, binaryName, config.DefaultRegistryDir)
}

type starshipFile struct {
	Format string                    `toml:"format"`
	Custom map[string]map[string]any `toml:"custom"`
}

// Install adds or refreshes the coord module in the starship config at
// path. A [custom.coord] block running a different command is left alone.
func Install(out io.Writer, path, binaryName string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("starship config not found at %s", path)
		}
		return fmt.Errorf("could not read starship config: %w", err)
	}

	var parsed starshipFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	s := cli.NewStyles(out)
	content := string(data)
	block := ModuleConfig(binaryName)
	wantCommand := binaryName + " starship status"

	existing, found := parsed.Custom["coord"]
	switch {
	case !found:
		content += block
		fmt.Fprintf(out, "%s Added [%s] to %s\n", s.Success.Render("✓"), ModuleName, path)
	case existing["command"] != wantCommand:
		fmt.Fprintf(out, "%s [%s] already runs %q; leaving it unchanged\n", s.Warning.Render("!"), ModuleName, existing["command"])
	default:
		content = replaceSection(content, "[custom.coord]", block)
		fmt.Fprintf(out, "%s Updated [%s]\n", s.Success.Render("✓"), ModuleName)
	}

	switch {
	case strings.Contains(parsed.Format, "${custom.coord}") || strings.Contains(parsed.Format, "$custom.coord"):
	case strings.Contains(content, "$git_metrics\\"):
		content = strings.Replace(content, "$git_metrics\\", "$git_metrics\\\n${custom.coord}\\", 1)
		fmt.Fprintf(out, "%s Added ${custom.coord} to the prompt format\n", s.Success.Render("✓"))
	default:
		fmt.Fprintf(out, "%s Add ${custom.coord} to the format string in %s\n", s.Warning.Render("!"), path)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write starship config: %w", err)
	}
	return nil
}

// replaceSection swaps the table starting at header, up to the next table
// header, for block.
func replaceSection(content, header, block string) string {
	start := strings.Index(content, header)
	if start == -1 {
		return content + block
	}
	// Take the comment line install wrote along with the table.
	if i := strings.LastIndex(content[:start], "\n# Added by "); i != -1 && !strings.Contains(content[i+1:start], "\n[") {
		start = i
	}
	end := len(content)
	if next := strings.Index(content[start+len(header):], "\n["); next != -1 {
		end = start + len(header) + next + 1
	}
	return content[:start] + block + content[end:]
}
