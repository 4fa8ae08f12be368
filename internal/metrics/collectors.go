package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imyousuf/bizgraph/internal/graph"
)

var (
	// Ingestion metrics
	IngestFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizgraph_ingest_files_total",
			Help: "Files passed to the ingestion parser by format and result",
		},
		[]string{"format", "result"},
	)

	IngestNodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizgraph_ingest_nodes_total",
			Help: "Nodes produced by the ingestion parser",
		},
		[]string{"format"},
	)

	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bizgraph_ingest_duration_seconds",
			Help:    "Time spent parsing one file",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)

	// Filter metrics
	FilterDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bizgraph_filter_duration_seconds",
		Help:    "Time spent computing one visible subgraph",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
	})

	// Graph metrics
	GraphNodeCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bizgraph_graph_nodes",
			Help: "Nodes in the stored graph",
		},
		[]string{"workspace", "node_type"},
	)

	GraphEdgeCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bizgraph_graph_edges",
			Help: "Edges in the stored graph",
		},
		[]string{"workspace", "edge_type"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizgraph_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)
)

// Result labels for IngestFiles.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// ObserveStats publishes the stored graph size of a workspace.
func ObserveStats(workspace string, stats *graph.GraphStats) {
	if stats == nil {
		return
	}
	for _, t := range graph.NodeTypes {
		GraphNodeCount.WithLabelValues(workspace, string(t)).Set(float64(stats.NodesByType[t]))
	}
	for _, t := range graph.EdgeTypes {
		GraphEdgeCount.WithLabelValues(workspace, string(t)).Set(float64(stats.EdgesByType[t]))
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
