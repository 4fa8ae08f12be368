package cli

import (
	"fmt"

	"github.com/imyousuf/bizgraph/internal/config"
	"github.com/imyousuf/bizgraph/internal/graph/embedded"
	"github.com/imyousuf/bizgraph/internal/ingest"
)

// openStore opens the workspace store using the config and CLI flags.
func openStore(cfg *config.Config) (*embedded.WorkspaceStore, error) {
	resolved := cfg.ResolveDBPath(dbPath)
	if resolved == "" {
		return nil, fmt.Errorf("no graph database path; run 'bizgraph init' or use --db-path")
	}
	store, err := embedded.NewWorkspaceStore(resolved, cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	return store, nil
}

// openHistory loads the import history. Without a project directory the
// history lives only in memory and the returned path is empty.
func openHistory(cfg *config.Config) (*ingest.History, string, error) {
	path := cfg.HistoryPath()
	if path == "" {
		return &ingest.History{}, "", nil
	}
	h, err := ingest.LoadHistory(path)
	if err != nil {
		return nil, "", fmt.Errorf("load import history: %w", err)
	}
	return h, path, nil
}
