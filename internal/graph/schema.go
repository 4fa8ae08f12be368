package graph

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// NodeType represents the kind of entity in the registry graph.
type NodeType string

const (
	NodeCompany NodeType = "company"
	NodePerson  NodeType = "person"
	NodeAddress NodeType = "address"
	NodeDebt    NodeType = "debt"
)

// NodeTypes lists every node type in the closed set.
var NodeTypes = []NodeType{NodeCompany, NodePerson, NodeAddress, NodeDebt}

// EdgeType represents a relationship between two nodes.
type EdgeType string

const (
	EdgeOwnedBy   EdgeType = "OWNED_BY"
	EdgeManagedBy EdgeType = "MANAGED_BY"
	EdgeLocatedAt EdgeType = "LOCATED_AT"
	EdgeHasDebt   EdgeType = "HAS_DEBT"
	EdgeRelated   EdgeType = "RELATED"
)

// EdgeTypes lists every edge type in the closed set.
var EdgeTypes = []EdgeType{EdgeOwnedBy, EdgeManagedBy, EdgeLocatedAt, EdgeHasDebt, EdgeRelated}

// Supported country codes.
const (
	CountrySK = "SK"
	CountryCZ = "CZ"
	CountryPL = "PL"
	CountryHU = "HU"
)

// Countries lists the country codes understood by filtering.
var Countries = []string{CountrySK, CountryCZ, CountryPL, CountryHU}

// Keys of well-known entries in Node.Extra.
const (
	// PropProvenance identifies the ingestion path that synthesized a node.
	PropProvenance = "provenance"
	// PropLegalForm holds the descriptive type column of spreadsheet imports.
	PropLegalForm = "legal_form"
)

// Node is a company, person, address or debt in the registry graph.
// Fields not modelled explicitly are kept in Extra and survive a JSON round trip.
type Node struct {
	ID          string
	Label       string
	Type        NodeType
	ICO         string
	Country     string
	RiskScore   *float64
	VirtualSeat *bool
	Details     string
	Founded     string
	Extra       map[string]any
}

// Edge represents a relationship between two nodes, referenced by ID.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"type"`
}

// Fragment is the canonical {nodes, edges} shape every ingestion path produces.
type Fragment struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// NewFragment returns an empty fragment whose slices marshal as [] rather than null.
func NewFragment() *Fragment {
	return &Fragment{Nodes: []*Node{}, Edges: []*Edge{}}
}

// GraphStats holds aggregate statistics about a graph.
type GraphStats struct {
	NodeCount   int64              `json:"node_count"`
	EdgeCount   int64              `json:"edge_count"`
	NodesByType map[NodeType]int64 `json:"nodes_by_type"`
	EdgesByType map[EdgeType]int64 `json:"edges_by_type"`
}

// Risk returns the node's risk score, treating an absent score as 0.
func (n *Node) Risk() float64 {
	if n.RiskScore == nil {
		return 0
	}
	return *n.RiskScore
}

// SetExtra stores an additional field on the node.
func (n *Node) SetExtra(key string, value any) {
	if n.Extra == nil {
		n.Extra = make(map[string]any)
	}
	n.Extra[key] = value
}

// Provenance returns the ingestion path tag, if any.
func (n *Node) Provenance() string {
	s, _ := n.Extra[PropProvenance].(string)
	return s
}

// NormalizeNodeType maps free text onto the closed node type set.
// Unknown and empty values become company, the most common imported entity.
func NormalizeNodeType(s string) NodeType {
	switch NodeType(strings.ToLower(strings.TrimSpace(s))) {
	case NodePerson:
		return NodePerson
	case NodeAddress:
		return NodeAddress
	case NodeDebt:
		return NodeDebt
	default:
		return NodeCompany
	}
}

// IsValidNodeType reports whether t is one of the closed node types.
func IsValidNodeType(t NodeType) bool {
	for _, v := range NodeTypes {
		if v == t {
			return true
		}
	}
	return false
}

// NormalizeEdgeType returns RELATED for an empty edge type and t otherwise.
func NormalizeEdgeType(t EdgeType) EdgeType {
	if strings.TrimSpace(string(t)) == "" {
		return EdgeRelated
	}
	return t
}

// NewNodeID generates a deterministic node ID from the provenance, file name and a per-file key.
// The ID is a hex-encoded SHA-256 hash prefix to keep keys compact and collision-resistant.
func NewNodeID(provenance, fileName, key string) string {
	raw := fmt.Sprintf("%s:%s:%s", provenance, fileName, key)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:12])
}

// EdgeKey derives a stable identity for an edge from its endpoints and type.
func EdgeKey(e *Edge) string {
	raw := fmt.Sprintf("%s|%s|%s", e.Source, NormalizeEdgeType(e.Type), e.Target)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:12])
}
