package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/imyousuf/bizgraph/internal/graph/neo4jsync"
)

func newSyncCmd() *cobra.Command {
	var (
		uri     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the graph into Neo4j",
		Long: `Replace the workspace's nodes in Neo4j with the stored graph.

Connection settings come from graph.neo4j_* in config. Keep the password in
.env as BIZGRAPH_GRAPH_NEO4J_PASSWORD. Edges of unknown type, or whose
endpoints are not in the graph, are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if uri == "" {
				uri = cfg.Graph.Neo4jURI
			}
			if uri == "" {
				return fmt.Errorf("no Neo4j URI; set graph.neo4j_uri or use --uri")
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			frag, err := store.LoadGraph(ctx)
			if err != nil {
				return fmt.Errorf("load graph: %w", err)
			}

			client, err := neo4jsync.Open(ctx, neo4jsync.Options{
				URI:      uri,
				User:     cfg.Graph.Neo4jUser,
				Password: cfg.Graph.Neo4jPassword,
				Database: cfg.Graph.Neo4jDatabase,
				Timeout:  timeout,
			}, log)
			if err != nil {
				return err
			}
			defer client.Close(context.Background())

			res, err := client.Sync(ctx, store.Workspace(), frag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Synced workspace %q to %s\n", res.Workspace, uri)
			fmt.Fprintf(out, "  Nodes:   %d\n", res.Nodes)
			fmt.Fprintf(out, "  Edges:   %d\n", res.Edges)
			if res.Skipped > 0 {
				fmt.Fprintf(out, "  Skipped: %d\n", res.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&uri, "uri", "", "Neo4j URI (default: graph.neo4j_uri from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "connection timeout")

	return cmd
}
