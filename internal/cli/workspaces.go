package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imyousuf/bizgraph/internal/config"
	"github.com/imyousuf/bizgraph/internal/graph/embedded"
)

func newWorkspacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspaces",
		Short: "List or delete workspaces",
		Long: `Every import targets one workspace of the graph store, so several
independent investigations can share one database. The active workspace
comes from config or --workspace.`,
		RunE: runWorkspacesList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List workspaces in the store",
		RunE:  runWorkspacesList,
	})
	cmd.AddCommand(newWorkspacesDeleteCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "projects",
		Short: "List registered bizgraph projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			projects := config.ListProjects()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No registered projects.")
				return nil
			}
			for _, p := range projects {
				fmt.Fprintf(out, "%-20s %s\n", p.Name, p.Root)
			}
			return nil
		},
	})

	return cmd
}

func runWorkspacesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	names, err := store.ListWorkspaces()
	if err != nil {
		return fmt.Errorf("list workspaces: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, "No workspaces.")
		return nil
	}
	for _, name := range names {
		marker := " "
		if name == store.Workspace() {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, name)
	}
	return nil
}

func newWorkspacesDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a workspace and its import history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := embedded.ValidateWorkspace(name); err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete workspace %q without --yes", name)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteWorkspace(name); err != nil {
				return fmt.Errorf("delete workspace: %w", err)
			}

			history, historyPath, err := openHistory(cfg)
			if err != nil {
				return err
			}
			history.Forget(name)
			if historyPath != "" {
				if err := history.Save(historyPath); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted workspace %q\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
