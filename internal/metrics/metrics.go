// Package metrics computes quality metrics for graph fragments and exposes
// the process collectors scraped from /metrics.
package metrics

import "github.com/imyousuf/bizgraph/internal/graph"

// MetricType identifies a specific fragment metric.
type MetricType string

const (
	NodeCount      MetricType = "node_count"
	EdgeCount      MetricType = "edge_count"
	DanglingEdges  MetricType = "dangling_edges"
	IsolatedNodes  MetricType = "isolated_nodes"
	MeanRisk       MetricType = "mean_risk"
	MaxRisk        MetricType = "max_risk"
	HighRiskNodes  MetricType = "high_risk_nodes"
	VirtualSeats   MetricType = "virtual_seats"
	MissingICO     MetricType = "missing_ico"
	MissingCountry MetricType = "missing_country"
	UnknownCountry MetricType = "unknown_country"
)

// HighRiskMinimum is the lowest risk score counted as high risk.
const HighRiskMinimum = 7.0

// Calculator computes metrics for a fragment.
type Calculator interface {
	Calculate(frag *graph.Fragment) map[MetricType]float64
}

// CompositeCalculator runs multiple calculators and merges their results.
type CompositeCalculator struct {
	calculators []Calculator
}

// NewCompositeCalculator creates a CompositeCalculator with all built-in calculators.
func NewCompositeCalculator() *CompositeCalculator {
	return &CompositeCalculator{
		calculators: []Calculator{
			&StructureCalculator{},
			&RiskCalculator{},
			&CompletenessCalculator{},
		},
	}
}

// Calculate runs all calculators and merges results into a single map.
func (c *CompositeCalculator) Calculate(frag *graph.Fragment) map[MetricType]float64 {
	result := make(map[MetricType]float64)
	for _, calc := range c.calculators {
		for k, v := range calc.Calculate(frag) {
			result[k] = v
		}
	}
	return result
}

// StructureCalculator counts nodes and edges, edges whose endpoints are not
// part of the fragment, and nodes no edge touches.
type StructureCalculator struct{}

func (c *StructureCalculator) Calculate(frag *graph.Fragment) map[MetricType]float64 {
	ids := make(map[string]bool, len(frag.Nodes))
	for _, n := range frag.Nodes {
		ids[n.ID] = true
	}
	touched := make(map[string]bool, len(frag.Nodes))
	var dangling float64
	for _, e := range frag.Edges {
		if !ids[e.Source] || !ids[e.Target] {
			dangling++
		}
		touched[e.Source] = true
		touched[e.Target] = true
	}
	var isolated float64
	for id := range ids {
		if !touched[id] {
			isolated++
		}
	}
	return map[MetricType]float64{
		NodeCount:     float64(len(frag.Nodes)),
		EdgeCount:     float64(len(frag.Edges)),
		DanglingEdges: dangling,
		IsolatedNodes: isolated,
	}
}

// RiskCalculator summarizes risk scores and virtual seat flags.
// Nodes without a score do not contribute to the mean.
type RiskCalculator struct{}

func (c *RiskCalculator) Calculate(frag *graph.Fragment) map[MetricType]float64 {
	var sum, maxRisk, scored, high, seats float64
	for _, n := range frag.Nodes {
		if n.VirtualSeat != nil && *n.VirtualSeat {
			seats++
		}
		if n.RiskScore == nil {
			continue
		}
		r := *n.RiskScore
		scored++
		sum += r
		if r > maxRisk {
			maxRisk = r
		}
		if r >= HighRiskMinimum {
			high++
		}
	}
	mean := 0.0
	if scored > 0 {
		mean = sum / scored
	}
	return map[MetricType]float64{
		MeanRisk:      mean,
		MaxRisk:       maxRisk,
		HighRiskNodes: high,
		VirtualSeats:  seats,
	}
}

// CompletenessCalculator counts companies lacking a registry number and nodes
// lacking a usable country code.
type CompletenessCalculator struct{}

func (c *CompletenessCalculator) Calculate(frag *graph.Fragment) map[MetricType]float64 {
	known := make(map[string]bool, len(graph.Countries))
	for _, cc := range graph.Countries {
		known[cc] = true
	}
	var noICO, noCountry, unknown float64
	for _, n := range frag.Nodes {
		if n.Type == graph.NodeCompany && n.ICO == "" {
			noICO++
		}
		switch {
		case n.Country == "":
			noCountry++
		case !known[n.Country]:
			unknown++
		}
	}
	return map[MetricType]float64{
		MissingICO:     noICO,
		MissingCountry: noCountry,
		UnknownCountry: unknown,
	}
}
