package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/imyousuf/bizgraph/internal/ingest"
	"github.com/imyousuf/bizgraph/internal/logger"
)

// Outcome classifies what the inbox did with one file.
type Outcome string

const (
	OutcomeImported    Outcome = "imported"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeFailed      Outcome = "failed"
)

// Result is reported for every file the inbox looks at.
type Result struct {
	Path    string
	Outcome Outcome
	Report  *ingest.Report
	Err     error
}

// InboxConfig configures an Inbox.
type InboxConfig struct {
	Ingestor  *ingest.Ingestor
	Workspace string
	// History deduplicates by checksum. Optional.
	History     *ingest.History
	HistoryPath string
	Logger      *logger.Logger
	// OnResult is called after each file. Optional.
	OnResult func(Result)
}

// Inbox merges files dropped into the watched directory into the store.
type Inbox struct {
	cfg InboxConfig
	log *logger.Logger
	mu  sync.Mutex
}

// NewInbox creates an Inbox. The ingestor must have a store.
func NewInbox(cfg InboxConfig) (*Inbox, error) {
	if cfg.Ingestor == nil {
		return nil, errors.New("inbox: ingestor is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Inbox{cfg: cfg, log: log.With("component", "inbox", "workspace", cfg.Workspace)}, nil
}

// Scan imports every supported file already present under dir, in lexical
// order, skipping paths the matcher ignores.
func (in *Inbox) Scan(ctx context.Context, dir string, matcher *Matcher) ([]Result, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && matcher != nil && matcher.MatchDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Base(path) == IgnoreFileName || (matcher != nil && matcher.Match(path)) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(paths)

	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, in.Process(ctx, p))
	}
	return results, nil
}

// Run consumes watcher events until the channel closes or ctx is cancelled.
// Only creations and writes are imported.
func (in *Inbox) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if evt.Op != Create && evt.Op != Write {
				continue
			}
			if filepath.Base(evt.Path) == IgnoreFileName {
				continue
			}
			in.Process(ctx, evt.Path)
		}
	}
}

// Process merges one file into the store unless its content was already
// imported into the workspace.
func (in *Inbox) Process(ctx context.Context, path string) Result {
	in.mu.Lock()
	defer in.mu.Unlock()

	res := in.process(ctx, path)
	switch res.Outcome {
	case OutcomeImported:
		in.log.Info("inbox file imported", "path", path, "nodes", res.Report.Nodes, "edges", res.Report.Edges)
	case OutcomeDuplicate:
		in.log.Debug("inbox file already imported", "path", path)
	case OutcomeUnsupported:
		in.log.Debug("inbox file skipped", "path", path)
	case OutcomeFailed:
		in.log.Warn("inbox import failed", "path", path, "error", res.Err)
	}
	if in.cfg.OnResult != nil {
		in.cfg.OnResult(res)
	}
	return res
}

func (in *Inbox) process(ctx context.Context, path string) Result {
	res := Result{Path: path}
	if !in.cfg.Ingestor.Supports(filepath.Base(path)) {
		res.Outcome = OutcomeUnsupported
		return res
	}
	content, err := os.ReadFile(path)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	if in.cfg.History != nil && in.cfg.History.Contains(in.cfg.Workspace, ingest.Checksum(content)) {
		res.Outcome = OutcomeDuplicate
		return res
	}

	report, _, err := in.cfg.Ingestor.Import(ctx, filepath.Base(path), content, ingest.ModeMerge)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	res.Outcome, res.Report = OutcomeImported, report

	if in.cfg.History != nil {
		in.cfg.History.Add(in.cfg.Workspace, report)
		if in.cfg.HistoryPath != "" {
			if err := in.cfg.History.Save(in.cfg.HistoryPath); err != nil {
				in.log.Warn("save import history", "error", err)
			}
		}
	}
	return res
}
