package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imyousuf/bizgraph/internal/graph"
	"github.com/imyousuf/bizgraph/internal/logger"
	"github.com/imyousuf/bizgraph/internal/metrics"
	"github.com/imyousuf/bizgraph/internal/parser"
	csvparser "github.com/imyousuf/bizgraph/internal/parser/csv"
	"github.com/imyousuf/bizgraph/internal/parser/jsonfmt"
	pdfparser "github.com/imyousuf/bizgraph/internal/parser/pdf"
	"github.com/imyousuf/bizgraph/internal/parser/spreadsheet"
)

// Mode selects how an imported fragment is applied to the stored graph.
type Mode string

const (
	// ModeReplace discards the stored graph and stores the fragment.
	ModeReplace Mode = "replace"
	// ModeMerge upserts nodes by ID and adds edges.
	ModeMerge Mode = "merge"
)

// ParseMode validates a mode name. An empty name means replace.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeReplace:
		return ModeReplace, nil
	case ModeMerge:
		return ModeMerge, nil
	}
	return "", fmt.Errorf("invalid import mode %q (want replace or merge)", s)
}

// DefaultRegistry returns a registry with every supported format parser.
func DefaultRegistry() *parser.Registry {
	r := parser.NewRegistry()
	r.Register(csvparser.NewParser())
	r.Register(spreadsheet.NewParser())
	r.Register(jsonfmt.NewParser())
	r.Register(pdfparser.NewParser())
	return r
}

// Config holds configuration for the Ingestor.
type Config struct {
	Registry *parser.Registry // defaults to DefaultRegistry()
	Store    graph.Store      // optional; required by Import
	Logger   *logger.Logger   // optional; defaults to a no-op logger
	// Workspace labels the graph size gauges published after an import.
	Workspace string
	// MaxFileBytes caps the payload size accepted for parsing.
	// Zero means DefaultMaxFileBytes.
	MaxFileBytes int64
}

// DefaultMaxFileBytes is the payload cap used when Config.MaxFileBytes is unset.
const DefaultMaxFileBytes int64 = 64 << 20

// Report summarizes one import run.
type Report struct {
	ImportID string                         `json:"import_id"`
	FileName string                         `json:"file_name"`
	Format   parser.Format                  `json:"format"`
	Mode     Mode                           `json:"mode"`
	Checksum string                         `json:"checksum"`
	Nodes    int                            `json:"nodes"`
	Edges    int                            `json:"edges"`
	Metrics  map[metrics.MetricType]float64 `json:"metrics"`
	Stats    *graph.GraphStats              `json:"stats,omitempty"`
	Time     time.Time                      `json:"time"`
}

// Ingestor turns file payloads into graph fragments and applies them to a store.
type Ingestor struct {
	registry  *parser.Registry
	store     graph.Store
	log       *logger.Logger
	calc      *metrics.CompositeCalculator
	workspace string
	maxBytes  int64
}

// New creates a new Ingestor with the given configuration.
func New(cfg Config) *Ingestor {
	reg := cfg.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &Ingestor{
		registry:  reg,
		store:     cfg.Store,
		log:       log,
		calc:      metrics.NewCompositeCalculator(),
		workspace: cfg.Workspace,
		maxBytes:  maxBytes,
	}
}

// Registry returns the parser registry used for dispatch.
func (i *Ingestor) Registry() *parser.Registry {
	return i.registry
}

// Supports reports whether a parser is registered for the file name's suffix.
func (i *Ingestor) Supports(fileName string) bool {
	_, ok := i.registry.ForFile(fileName)
	return ok
}

// Parse dispatches content to the parser registered for the file name suffix.
func (i *Ingestor) Parse(ctx context.Context, fileName string, content []byte) (*parser.ParseResult, error) {
	p, err := i.parserFor(fileName)
	if err != nil {
		return nil, err
	}
	return i.parse(ctx, p, fileName, content)
}

// ParseReader materializes r and parses it as fileName.
func (i *Ingestor) ParseReader(ctx context.Context, fileName string, r io.Reader) (*parser.ParseResult, error) {
	p, err := i.parserFor(fileName)
	if err != nil {
		return nil, err
	}
	content, err := i.read(fileName, r)
	if err != nil {
		return nil, err
	}
	return i.parse(ctx, p, fileName, content)
}

// ParseFile reads and parses the file at path. The base name is used for dispatch.
func (i *Ingestor) ParseFile(ctx context.Context, path string) (*parser.ParseResult, error) {
	fileName := filepath.Base(path)
	p, err := i.parserFor(fileName)
	if err != nil {
		return nil, err
	}
	content, err := i.readFile(fileName, path)
	if err != nil {
		return nil, err
	}
	return i.parse(ctx, p, fileName, content)
}

// Import parses content and applies the fragment to the store.
func (i *Ingestor) Import(ctx context.Context, fileName string, content []byte, mode Mode) (*Report, *parser.ParseResult, error) {
	if i.store == nil {
		return nil, nil, errors.New("import: no graph store configured")
	}
	result, err := i.Parse(ctx, fileName, content)
	if err != nil {
		return nil, nil, err
	}

	frag := result.Fragment()
	switch mode {
	case ModeMerge:
		err = i.store.MergeGraph(ctx, frag)
	case ModeReplace, "":
		mode = ModeReplace
		err = i.store.ReplaceGraph(ctx, frag)
	default:
		return nil, nil, fmt.Errorf("import: invalid mode %q", mode)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("store %s: %w", fileName, err)
	}

	report := &Report{
		ImportID: uuid.NewString(),
		FileName: fileName,
		Format:   result.Format,
		Mode:     mode,
		Checksum: Checksum(content),
		Nodes:    len(result.Nodes),
		Edges:    len(result.Edges),
		Metrics:  i.calc.Calculate(frag),
		Time:     time.Now().UTC(),
	}
	if stats, err := i.store.Stats(ctx); err == nil {
		report.Stats = stats
		metrics.ObserveStats(i.workspace, stats)
	} else {
		i.log.Warn("graph stats unavailable", "error", err)
	}

	i.log.Info("import applied",
		"import_id", report.ImportID,
		"file", fileName,
		"mode", string(mode),
		"nodes", report.Nodes,
		"edges", report.Edges,
	)
	return report, result, nil
}

// ImportFile reads the file at path and imports it.
func (i *Ingestor) ImportFile(ctx context.Context, path string, mode Mode) (*Report, *parser.ParseResult, error) {
	fileName := filepath.Base(path)
	if _, err := i.parserFor(fileName); err != nil {
		return nil, nil, err
	}
	content, err := i.readFile(fileName, path)
	if err != nil {
		return nil, nil, err
	}
	return i.Import(ctx, fileName, content, mode)
}

// Checksum returns the hex SHA-256 of a file payload.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (i *Ingestor) parserFor(fileName string) (parser.Parser, error) {
	p, ok := i.registry.ForFile(fileName)
	if !ok {
		return nil, parser.NewError(parser.ErrUnsupportedFormat, fileName,
			fmt.Errorf("suffix %q is not one of %s", filepath.Ext(fileName), strings.Join(i.registry.SupportedExtensions(), ", ")))
	}
	return p, nil
}

func (i *Ingestor) readFile(fileName, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, parser.NewError(parser.ErrReadFailure, fileName, err)
	}
	defer f.Close()
	return i.read(fileName, f)
}

// read consumes at most maxBytes+1 bytes so oversized payloads fail fast.
func (i *Ingestor) read(fileName string, r io.Reader) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, i.maxBytes+1))
	if err != nil {
		return nil, parser.NewError(parser.ErrReadFailure, fileName, err)
	}
	if err := i.checkSize(fileName, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (i *Ingestor) checkSize(fileName string, content []byte) error {
	if int64(len(content)) > i.maxBytes {
		return parser.NewError(parser.ErrReadFailure, fileName,
			fmt.Errorf("file exceeds the %d byte limit", i.maxBytes))
	}
	return nil
}

func (i *Ingestor) parse(ctx context.Context, p parser.Parser, fileName string, content []byte) (*parser.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := i.checkSize(fileName, content); err != nil {
		return nil, err
	}
	format := string(p.Format())
	timer := prometheus.NewTimer(metrics.IngestDuration.WithLabelValues(format))
	result, err := p.ParseFile(fileName, content)
	timer.ObserveDuration()
	if err != nil {
		metrics.IngestFiles.WithLabelValues(format, metrics.ResultError).Inc()
		i.log.Warn("parse failed", "file", fileName, "format", format, "error", err)
		return nil, err
	}

	metrics.IngestFiles.WithLabelValues(format, metrics.ResultOK).Inc()
	metrics.IngestNodes.WithLabelValues(format).Add(float64(len(result.Nodes)))
	i.log.Debug("parsed file",
		"file", fileName,
		"format", format,
		"bytes", len(content),
		"nodes", len(result.Nodes),
		"edges", len(result.Edges),
	)
	return result, nil
}
