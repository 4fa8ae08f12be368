// Package filter derives the visible subgraph of a registry graph from a
// filter configuration and an optional focus node.
package filter

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/imyousuf/bizgraph/internal/graph"
)

// Risk score bounds used by DefaultConfig.
const (
	MinRiskScore = 0.0
	MaxRiskScore = 10.0
)

// Config selects which edges and nodes are visible.
type Config struct {
	ShowOwnership  bool     `json:"showOwnership" toml:"show_ownership" mapstructure:"show_ownership" yaml:"show_ownership"`
	ShowManagement bool     `json:"showManagement" toml:"show_management" mapstructure:"show_management" yaml:"show_management"`
	ShowLocation   bool     `json:"showLocation" toml:"show_location" mapstructure:"show_location" yaml:"show_location"`
	ShowDebts      bool     `json:"showDebts" toml:"show_debts" mapstructure:"show_debts" yaml:"show_debts"`
	RiskScoreMin   float64  `json:"riskScoreMin" toml:"risk_score_min" mapstructure:"risk_score_min" yaml:"risk_score_min"`
	RiskScoreMax   float64  `json:"riskScoreMax" toml:"risk_score_max" mapstructure:"risk_score_max" yaml:"risk_score_max"`
	Countries      []string `json:"countries" toml:"countries" mapstructure:"countries" yaml:"countries"`
}

// DefaultConfig shows every edge type, the full risk range and all supported countries.
func DefaultConfig() Config {
	return Config{
		ShowOwnership:  true,
		ShowManagement: true,
		ShowLocation:   true,
		ShowDebts:      true,
		RiskScoreMin:   MinRiskScore,
		RiskScoreMax:   MaxRiskScore,
		Countries:      append([]string(nil), graph.Countries...),
	}
}

// Validate reports configurations that can never show a scored node.
// ComputeVisibleSubgraph accepts any configuration; Validate is for callers
// that persist or edit one.
func (c Config) Validate() error {
	if c.RiskScoreMin > c.RiskScoreMax {
		return fmt.Errorf("riskScoreMin %g is greater than riskScoreMax %g", c.RiskScoreMin, c.RiskScoreMax)
	}
	for _, cc := range c.Countries {
		if strings.TrimSpace(cc) == "" {
			return fmt.Errorf("empty country code")
		}
	}
	return nil
}

// EdgeVisible reports whether edges of type t pass the toggles.
// RELATED (or an empty type) is always visible; types outside the closed
// set never are.
func (c Config) EdgeVisible(t graph.EdgeType) bool {
	switch graph.NormalizeEdgeType(t) {
	case graph.EdgeOwnedBy:
		return c.ShowOwnership
	case graph.EdgeManagedBy:
		return c.ShowManagement
	case graph.EdgeLocatedAt:
		return c.ShowLocation
	case graph.EdgeHasDebt:
		return c.ShowDebts
	case graph.EdgeRelated:
		return true
	default:
		return false
	}
}

// ComputeVisibleSubgraph returns the nodes and edges of full that pass cfg.
//
// An edge is kept when its type is enabled. A node is kept when it is the
// focus node, or when a kept edge touches it and its risk score (0 when
// absent) lies in the inclusive range and its country is unset or allowed.
// Kept edges are not checked against the kept nodes, so an edge may
// reference a node that was dropped. Input order is preserved and full is
// never modified; the result shares node and edge pointers with full.
func ComputeVisibleSubgraph(full *graph.Fragment, cfg Config, focusID string) *graph.Fragment {
	out := graph.NewFragment()
	if full == nil {
		return out
	}

	connected := mapset.NewThreadUnsafeSet[string]()
	for _, e := range full.Edges {
		if e == nil || !cfg.EdgeVisible(e.Type) {
			continue
		}
		out.Edges = append(out.Edges, e)
		connected.Add(e.Source)
		connected.Add(e.Target)
	}

	countries := mapset.NewThreadUnsafeSet(cfg.Countries...)
	for _, n := range full.Nodes {
		if n == nil {
			continue
		}
		if (focusID != "" && n.ID == focusID) || (connected.Contains(n.ID) && nodePasses(n, cfg, countries)) {
			out.Nodes = append(out.Nodes, n)
		}
	}
	return out
}

func nodePasses(n *graph.Node, cfg Config, countries mapset.Set[string]) bool {
	risk := n.Risk()
	if risk < cfg.RiskScoreMin || risk > cfg.RiskScoreMax {
		return false
	}
	return n.Country == "" || countries.Contains(n.Country)
}
