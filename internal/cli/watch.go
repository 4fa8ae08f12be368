package cli

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/imyousuf/bizgraph/internal/config"
	"github.com/imyousuf/bizgraph/internal/ingest"
	"github.com/imyousuf/bizgraph/internal/logger"
	"github.com/imyousuf/bizgraph/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var (
		dir    string
		noScan bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Import files dropped into the inbox directory",
		Long: `Watch the inbox directory and merge every supported file written to it
into the workspace graph.

Files already imported (same checksum) are skipped. Paths matching
import.exclude or a .bizgraphignore file in the inbox are ignored. Unless
--no-scan is given, files already present in the inbox are imported first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.InboxPath()
			}
			if dir == "" {
				return fmt.Errorf("no inbox directory; set import.inbox or use --dir")
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

			out := cmd.OutOrStdout()
			var imported, skipped, failed atomic.Int64
			inbox, w, err := newInboxWatcher(cfg, ingest.New(ingest.Config{Store: store, Logger: log, Workspace: cfg.Workspace}), history, historyPath, log, dir, func(r watcher.Result) {
				switch r.Outcome {
				case watcher.OutcomeImported:
					imported.Add(1)
					printReport(out, r.Report)
				case watcher.OutcomeFailed:
					failed.Add(1)
					fmt.Fprintf(out, "%s  failed: %v\n", r.Path, r.Err)
				default:
					skipped.Add(1)
				}
			})
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, cancel := signalContext(cmd.Context(), out)
			defer cancel()

			fmt.Fprintf(out, "Watching %s (workspace %q)...\n", dir, cfg.Workspace)
			if err := runInbox(ctx, inbox, w, dir, !noScan); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			fmt.Fprintf(out, "\nFinal stats:\n")
			fmt.Fprintf(out, "  Imported: %d\n", imported.Load())
			fmt.Fprintf(out, "  Skipped:  %d\n", skipped.Load())
			if n := failed.Load(); n > 0 {
				fmt.Fprintf(out, "  Failed:   %d\n", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory to watch (default: import.inbox from config)")
	cmd.Flags().BoolVar(&noScan, "no-scan", false, "skip importing files already in the inbox")

	return cmd
}

// newInboxWatcher wires an Inbox importing through ing to a watcher on dir.
func newInboxWatcher(cfg *config.Config, ing *ingest.Ingestor, history *ingest.History, historyPath string, log *logger.Logger, dir string, onResult func(watcher.Result)) (*watcher.Inbox, *watcher.Watcher, error) {
	inbox, err := watcher.NewInbox(watcher.InboxConfig{
		Ingestor:    ing,
		Workspace:   cfg.Workspace,
		History:     history,
		HistoryPath: historyPath,
		Logger:      log,
		OnResult:    onResult,
	})
	if err != nil {
		return nil, nil, err
	}

	w, err := watcher.New(watcher.Config{
		Dir:     dir,
		Exclude: cfg.Import.Exclude,
		Logger:  log,
	})
	if err != nil {
		return nil, nil, err
	}
	return inbox, w, nil
}

// runInbox optionally imports files already in dir, then processes watcher
// events until ctx is done.
func runInbox(ctx context.Context, inbox *watcher.Inbox, w *watcher.Watcher, dir string, scan bool) error {
	if scan {
		if _, err := inbox.Scan(ctx, dir, w.Matcher()); err != nil {
			return fmt.Errorf("scan inbox: %w", err)
		}
	}

	events, err := w.Start(ctx)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := inbox.Run(ctx, events); err != nil {
		return fmt.Errorf("inbox: %w", err)
	}
	return nil
}
