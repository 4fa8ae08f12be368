// Package cli implements the command-line interface for bizgraph.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imyousuf/bizgraph/internal/config"
	"github.com/imyousuf/bizgraph/internal/logger"
)

var (
	cfgFile       string
	dbPath        string
	workspaceFlag string
	verbose       bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bizgraph",
		Short: "bizgraph - business registry relationship graphs",
		Long: `bizgraph imports business-registry extracts (CSV, XLSX/XLS, JSON, PDF)
into a graph of companies, persons, addresses and debts, and narrows that
graph with filters.

Commands:
  init        Initialize a .bizgraph/ project directory
  import      Import registry files into the graph
  filter      Print the visible subgraph for a filter
  status      Show graph stats and recent imports
  export      Export the stored graph
  serve       Serve the HTTP API
  watch       Import files dropped into the inbox directory
  sync        Mirror the graph into Neo4j
  workspaces  List or delete workspaces`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .bizgraph/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "graph database directory (default: .bizgraph/graph.db)")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "workspace to use (default: from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := viper.BindPFlag("config_file", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		panic(fmt.Sprintf("failed to bind config flag: %v", err))
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newFilterCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newWorkspacesCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig loads and validates the configuration, applying flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if workspaceFlag != "" {
		cfg.Workspace = workspaceFlag
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger for cfg.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}
