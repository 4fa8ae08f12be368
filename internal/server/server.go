// Package server exposes ingestion and filtering over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imyousuf/bizgraph/internal/filter"
	"github.com/imyousuf/bizgraph/internal/graph"
	"github.com/imyousuf/bizgraph/internal/ingest"
	"github.com/imyousuf/bizgraph/internal/logger"
)

// maxUploadBytes bounds multipart uploads.
const maxUploadBytes = 64 << 20

// Options configures a Server.
type Options struct {
	Store    graph.Store
	Ingestor *ingest.Ingestor
	// History is optional; when set, applied imports are recorded and saved.
	History     *ingest.History
	HistoryPath string
	Workspace   string
	// Filter is applied when a request omits its config or some of its fields.
	Filter filter.Config
	// CORSOrigins enables CORS for the listed origins when non-empty.
	CORSOrigins []string
	Logger      *logger.Logger
}

// Server serves the bizgraph HTTP API.
type Server struct {
	store       graph.Store
	ingestor    *ingest.Ingestor
	history     *ingest.History
	historyPath string
	workspace   string
	filter      filter.Config
	corsOrigins []string
	log         *logger.Logger
}

// New creates a Server. Store and Ingestor are required.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server: graph store is required")
	}
	if opts.Ingestor == nil {
		return nil, errors.New("server: ingestor is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		store:       opts.Store,
		ingestor:    opts.Ingestor,
		history:     opts.History,
		historyPath: opts.HistoryPath,
		workspace:   opts.Workspace,
		filter:      opts.Filter,
		corsOrigins: opts.CORSOrigins,
		log:         log.With("component", "server"),
	}, nil
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), requestMetrics())
	if len(s.corsOrigins) > 0 {
		r.Use(corsMiddleware(s.corsOrigins))
	}
	r.MaxMultipartMemory = maxUploadBytes

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(metricsHandler()))

	api := r.Group("/api")
	api.POST("/import", s.Import)
	api.GET("/graph", s.Graph)
	api.POST("/graph/visible", s.Visible)
	api.POST("/filter", s.Filter)
	api.GET("/stats", s.Stats)
	api.GET("/imports", s.Imports)
	api.GET("/nodes", s.Nodes)
	api.GET("/nodes/:id", s.Node)
	api.GET("/nodes/:id/neighbors", s.Neighbors)
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}
