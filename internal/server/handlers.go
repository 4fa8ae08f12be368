package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imyousuf/bizgraph/internal/filter"
	"github.com/imyousuf/bizgraph/internal/graph"
	"github.com/imyousuf/bizgraph/internal/graph/embedded"
	"github.com/imyousuf/bizgraph/internal/ingest"
	"github.com/imyousuf/bizgraph/internal/metrics"
	"github.com/imyousuf/bizgraph/internal/parser"
)

// ImportResponse is returned by POST /api/import.
type ImportResponse struct {
	Fragment *graph.Fragment `json:"fragment"`
	Text     string          `json:"text,omitempty"`
	Report   *ingest.Report  `json:"report"`
}

// VisibleRequest is the body of POST /api/graph/visible.
type VisibleRequest struct {
	Config filter.Config `json:"config"`
	Focus  string        `json:"focus"`
}

// FilterRequest is the body of POST /api/filter.
type FilterRequest struct {
	Graph  *graph.Fragment `json:"graph"`
	Config filter.Config   `json:"config"`
	Focus  string          `json:"focus"`
}

// Health reports liveness.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "workspace": s.workspace})
}

// Import ingests the uploaded multipart "file" into the store.
func (s *Server) Import(c *gin.Context) {
	mode, err := ingest.ParseMode(c.DefaultQuery("mode", string(ingest.ModeReplace)))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_mode", err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("multipart field \"file\" is required: %w", err))
		return
	}
	if !s.ingestor.Supports(fh.Filename) {
		// Dispatch again to get the typed error and its message.
		_, err := s.ingestor.Parse(c.Request.Context(), fh.Filename, nil)
		respondParseError(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondParseError(c, parser.NewError(parser.ErrReadFailure, fh.Filename, err))
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		respondParseError(c, parser.NewError(parser.ErrReadFailure, fh.Filename, err))
		return
	}

	report, result, err := s.ingestor.Import(c.Request.Context(), fh.Filename, content, mode)
	if err != nil {
		respondParseError(c, err)
		return
	}
	s.recordImport(report)

	c.JSON(http.StatusOK, ImportResponse{
		Fragment: result.Fragment(),
		Text:     result.Text,
		Report:   report,
	})
}

func (s *Server) recordImport(report *ingest.Report) {
	if s.history == nil {
		return
	}
	s.history.Add(s.workspace, report)
	if s.historyPath == "" {
		return
	}
	if err := s.history.Save(s.historyPath); err != nil {
		s.log.Warn("save import history", "error", err)
	}
}

// Graph returns the stored graph.
func (s *Server) Graph(c *gin.Context) {
	frag, err := s.store.LoadGraph(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "store", err)
		return
	}
	c.JSON(http.StatusOK, frag)
}

// Visible filters the stored graph.
func (s *Server) Visible(c *gin.Context) {
	req := VisibleRequest{Config: s.defaultFilter()}
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	frag, err := s.store.LoadGraph(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "store", err)
		return
	}
	c.JSON(http.StatusOK, computeVisible(frag, req.Config, req.Focus))
}

// Filter filters the graph supplied in the request body.
func (s *Server) Filter(c *gin.Context) {
	req := FilterRequest{Config: s.defaultFilter()}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	c.JSON(http.StatusOK, computeVisible(req.Graph, req.Config, req.Focus))
}

// Stats returns aggregate counts of the stored graph.
func (s *Server) Stats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "store", err)
		return
	}
	metrics.ObserveStats(s.workspace, stats)
	c.JSON(http.StatusOK, stats)
}

// Imports lists recent imports, newest first. ?limit bounds the list.
func (s *Server) Imports(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	reports := []*ingest.Report{}
	if s.history != nil {
		reports = append(reports, s.history.Recent(s.workspace, limit)...)
	}
	c.JSON(http.StatusOK, gin.H{"imports": reports})
}

// Nodes queries stored nodes by ?type, ?country, ?ico and ?q, a glob
// matched against the label.
func (s *Server) Nodes(c *gin.Context) {
	f := graph.NodeFilter{
		Type:         graph.NodeType(c.Query("type")),
		Country:      c.Query("country"),
		ICO:          c.Query("ico"),
		LabelPattern: c.Query("q"),
	}
	nodes, err := s.store.QueryNodes(c.Request.Context(), f)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "store", err)
		return
	}
	if nodes == nil {
		nodes = []*graph.Node{}
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes})
}

// Node returns one stored node.
func (s *Server) Node(c *gin.Context) {
	node, err := s.store.GetNode(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// Neighbors returns the nodes adjacent to a stored node.
// ?type restricts the edge type, ?direction is out, in or both (default).
func (s *Server) Neighbors(c *gin.Context) {
	dir, err := parseDirection(c.DefaultQuery("direction", "both"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_direction", err)
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := s.store.GetNode(ctx, id); err != nil {
		s.respondLookupError(c, err)
		return
	}
	nodes, err := s.store.GetNeighbors(ctx, id, graph.EdgeType(c.Query("type")), dir)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "store", err)
		return
	}
	if nodes == nil {
		nodes = []*graph.Node{}
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes})
}

func (s *Server) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, embedded.ErrNotFound) {
		respondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	respondError(c, http.StatusInternalServerError, "store", err)
}

func (s *Server) defaultFilter() filter.Config {
	cfg := s.filter
	cfg.Countries = append([]string(nil), s.filter.Countries...)
	return cfg
}

func computeVisible(full *graph.Fragment, cfg filter.Config, focus string) *graph.Fragment {
	timer := prometheus.NewTimer(metrics.FilterDuration)
	defer timer.ObserveDuration()
	return filter.ComputeVisibleSubgraph(full, cfg, focus)
}

// bindOptionalJSON decodes the body when one is present.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}

func parseDirection(s string) (graph.Direction, error) {
	switch s {
	case "out", "outgoing":
		return graph.Outgoing, nil
	case "in", "incoming":
		return graph.Incoming, nil
	case "both", "":
		return graph.Both, nil
	default:
		return graph.Both, fmt.Errorf("direction must be out, in or both, got %q", s)
	}
}
