package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/imyousuf/bizgraph/internal/graph"
)

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func sampleFragment() *graph.Fragment {
	return &graph.Fragment{
		Nodes: []*graph.Node{
			{ID: "c1", Label: "Acme", Type: graph.NodeCompany, ICO: "12345678", Country: "SK", RiskScore: floatPtr(8)},
			{ID: "c2", Label: "Beta", Type: graph.NodeCompany, Country: "AT", RiskScore: floatPtr(2)},
			{ID: "a1", Label: "Hlavná 1", Type: graph.NodeAddress, VirtualSeat: boolPtr(true)},
			{ID: "p1", Label: "Novák", Type: graph.NodePerson, Country: "CZ"},
		},
		Edges: []*graph.Edge{
			{Source: "c1", Target: "a1", Type: graph.EdgeLocatedAt},
			{Source: "c1", Target: "ghost", Type: graph.EdgeOwnedBy},
		},
	}
}

func TestStructureCalculator(t *testing.T) {
	m := (&StructureCalculator{}).Calculate(sampleFragment())
	want := map[MetricType]float64{
		NodeCount:     4,
		EdgeCount:     2,
		DanglingEdges: 1,
		IsolatedNodes: 2,
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s = %v, want %v", k, m[k], v)
		}
	}
}

func TestRiskCalculator(t *testing.T) {
	m := (&RiskCalculator{}).Calculate(sampleFragment())
	if m[MeanRisk] != 5 {
		t.Errorf("mean risk = %v, want 5 (unscored nodes excluded)", m[MeanRisk])
	}
	if m[MaxRisk] != 8 {
		t.Errorf("max risk = %v, want 8", m[MaxRisk])
	}
	if m[HighRiskNodes] != 1 {
		t.Errorf("high risk nodes = %v, want 1", m[HighRiskNodes])
	}
	if m[VirtualSeats] != 1 {
		t.Errorf("virtual seats = %v, want 1", m[VirtualSeats])
	}
}

func TestCompletenessCalculator(t *testing.T) {
	m := (&CompletenessCalculator{}).Calculate(sampleFragment())
	if m[MissingICO] != 1 {
		t.Errorf("missing ico = %v, want 1", m[MissingICO])
	}
	if m[MissingCountry] != 1 {
		t.Errorf("missing country = %v, want 1", m[MissingCountry])
	}
	if m[UnknownCountry] != 1 {
		t.Errorf("unknown country = %v, want 1", m[UnknownCountry])
	}
}

func TestCompositeCalculatorEmptyFragment(t *testing.T) {
	m := NewCompositeCalculator().Calculate(graph.NewFragment())
	if len(m) != 11 {
		t.Errorf("got %d metrics, want 11", len(m))
	}
	for k, v := range m {
		if v != 0 {
			t.Errorf("%s = %v, want 0 for an empty fragment", k, v)
		}
	}
}

func TestObserveStats(t *testing.T) {
	ObserveStats("metrics-test", &graph.GraphStats{
		NodesByType: map[graph.NodeType]int64{graph.NodeCompany: 3},
		EdgesByType: map[graph.EdgeType]int64{graph.EdgeHasDebt: 2},
	})
	if got := testutil.ToFloat64(GraphNodeCount.WithLabelValues("metrics-test", "company")); got != 3 {
		t.Errorf("company gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(GraphNodeCount.WithLabelValues("metrics-test", "debt")); got != 0 {
		t.Errorf("debt gauge = %v, want 0", got)
	}
	if got := testutil.ToFloat64(GraphEdgeCount.WithLabelValues("metrics-test", "HAS_DEBT")); got != 2 {
		t.Errorf("HAS_DEBT gauge = %v, want 2", got)
	}
	ObserveStats("metrics-test", nil)
}
