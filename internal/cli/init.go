package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imyousuf/bizgraph/internal/config"
	"github.com/imyousuf/bizgraph/internal/filter"
)

const envTemplate = `# bizgraph credentials. Keep this file out of version control.
# Variables here override .bizgraph/config.yaml (prefix BIZGRAPH_, dots become underscores).

# BIZGRAPH_GRAPH_NEO4J_URI=bolt://localhost:7687
# BIZGRAPH_GRAPH_NEO4J_USER=neo4j
# BIZGRAPH_GRAPH_NEO4J_PASSWORD=
`

func newInitCmd() *cobra.Command {
	var (
		name  string
		inbox string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a .bizgraph/ project directory",
		Long: `Initialize a bizgraph project in the current directory.

Creates a .bizgraph/ directory containing:
  config.yaml    Project configuration
  presets.toml   Filter presets

and a .env credentials template next to it. The project is also registered
in ~/.bizgraph-projects.yaml so commands run elsewhere can find it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}

			projectDir := filepath.Join(cwd, config.ProjectDirName)
			if _, err := os.Stat(projectDir); err == nil {
				return fmt.Errorf("%s already exists; project is already initialized", projectDir)
			}
			if err := os.MkdirAll(projectDir, 0755); err != nil {
				return fmt.Errorf("create project directory: %w", err)
			}

			out := cmd.OutOrStdout()
			if name == "" {
				name = filepath.Base(cwd)
			}

			cfg := config.Default()
			cfg.Project.Name = name
			cfg.Import.Inbox = inbox
			if workspaceFlag != "" {
				cfg.Workspace = workspaceFlag
			}
			configPath := filepath.Join(projectDir, config.ProjectConfigFile)
			if err := config.WriteConfig(cfg, configPath); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}
			fmt.Fprintf(out, "Created %s\n", configPath)

			presetsPath := filepath.Join(projectDir, config.DefaultPresetsFile)
			if err := filter.BuiltinPresets().Save(presetsPath); err != nil {
				return fmt.Errorf("write presets: %w", err)
			}
			fmt.Fprintf(out, "Created %s\n", presetsPath)

			envPath := filepath.Join(cwd, ".env")
			if _, err := os.Stat(envPath); os.IsNotExist(err) {
				if err := os.WriteFile(envPath, []byte(envTemplate), 0600); err != nil {
					return fmt.Errorf("write .env file: %w", err)
				}
				fmt.Fprintf(out, "Created %s\n", envPath)
			}

			if inbox != "" {
				inboxPath := inbox
				if !filepath.IsAbs(inboxPath) {
					inboxPath = filepath.Join(cwd, inboxPath)
				}
				if err := os.MkdirAll(inboxPath, 0755); err != nil {
					return fmt.Errorf("create inbox: %w", err)
				}
				fmt.Fprintf(out, "Created %s\n", inboxPath)
			}

			if err := config.RegisterProject(name, cwd, projectDir); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to register project in %s: %v\n", config.RegistryPath(), err)
			} else {
				fmt.Fprintf(out, "Registered project %q in %s\n", name, config.RegistryPath())
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Run 'bizgraph import <file>' to load registry data")
			fmt.Fprintln(out, "  2. Run 'bizgraph filter --preset high-risk' or 'bizgraph serve'")
			fmt.Fprintln(out, "  3. Add to .gitignore:")
			fmt.Fprintln(out, "       .bizgraph/graph.db/")
			fmt.Fprintln(out, "       .bizgraph/imports.json")
			fmt.Fprintln(out, "       .env")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "project name (default: directory name)")
	cmd.Flags().StringVar(&inbox, "inbox", "", "inbox directory watched by 'bizgraph watch'")
	return cmd
}
