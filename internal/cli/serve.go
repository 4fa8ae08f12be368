package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/imyousuf/bizgraph/internal/ingest"
	"github.com/imyousuf/bizgraph/internal/server"
	"github.com/imyousuf/bizgraph/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the bizgraph HTTP API.

Routes:
  POST /api/import              upload a file (multipart field "file", ?mode=replace|merge)
  GET  /api/graph               the stored graph
  POST /api/graph/visible       visible subgraph of the stored graph
  POST /api/filter              visible subgraph of a graph sent in the body
  GET  /api/stats               node and edge counts
  GET  /api/imports             recent imports
  GET  /api/nodes               query nodes (?type, ?country, ?ico, ?q label glob)
  GET  /api/nodes/:id           one node
  GET  /api/nodes/:id/neighbors neighbouring nodes
  GET  /metrics                 Prometheus metrics

With --watch, files dropped into the inbox directory are merged into the
workspace while the server runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
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

			history, historyPath, err := openHistory(cfg)
			if err != nil {
				return err
			}

			ing := ingest.New(ingest.Config{Store: store, Logger: log, Workspace: cfg.Workspace})
			srv, err := server.New(server.Options{
				Store:       store,
				Ingestor:    ing,
				History:     history,
				HistoryPath: historyPath,
				Workspace:   cfg.Workspace,
				Filter:      cfg.Filter,
				CORSOrigins: cfg.Server.CORSOrigins,
				Logger:      log,
			})
			if err != nil {
				return err
			}

			if addr == "" {
				addr = cfg.Server.Addr
			}

			out := cmd.OutOrStdout()
			ctx, cancel := signalContext(cmd.Context(), out)
			defer cancel()

			g, gctx := errgroup.WithContext(ctx)

			if watch {
				dir := cfg.InboxPath()
				if dir == "" {
					return fmt.Errorf("--watch needs import.inbox in config")
				}
				inbox, w, err := newInboxWatcher(cfg, ing, history, historyPath, log, dir, func(r watcher.Result) {
					if r.Outcome == watcher.OutcomeImported {
						printReport(out, r.Report)
					}
				})
				if err != nil {
					return err
				}
				defer w.Close()

				fmt.Fprintf(out, "Watching %s\n", dir)
				g.Go(func() error {
					if err := runInbox(gctx, inbox, w, dir, true); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				})
			}

			fmt.Fprintf(out, "Serving workspace %q on %s\n", cfg.Workspace, addr)
			g.Go(func() error { return srv.Run(gctx, addr) })
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "also import files dropped into the inbox directory")

	return cmd
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, out io.Writer) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(out, "\nShutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
