package graph

import "context"

// Direction specifies the traversal direction for edge queries.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// NodeFilter specifies criteria for querying nodes.
type NodeFilter struct {
	Type         NodeType
	Country      string
	ICO          string
	LabelPattern string // glob pattern matched against Label
}

// Store is the interface for registry graph persistence.
type Store interface {
	// ReplaceGraph discards the current graph and stores frag in its place.
	ReplaceGraph(ctx context.Context, frag *Fragment) error

	// MergeGraph upserts the nodes of frag by ID and adds its edges.
	MergeGraph(ctx context.Context, frag *Fragment) error

	// LoadGraph returns the full stored graph.
	LoadGraph(ctx context.Context) (*Fragment, error)

	// AddNode inserts or replaces a node.
	AddNode(ctx context.Context, node *Node) error

	// DeleteNode removes a node by ID along with its connected edges.
	DeleteNode(ctx context.Context, id string) error

	// GetNode retrieves a single node by ID.
	GetNode(ctx context.Context, id string) (*Node, error)

	// QueryNodes returns all nodes matching the given filter.
	QueryNodes(ctx context.Context, filter NodeFilter) ([]*Node, error)

	// AddEdge inserts an edge. Edges are identified by source, type and target.
	AddEdge(ctx context.Context, edge *Edge) error

	// GetEdges returns edges touching nodeID with the given type.
	// If edgeType is empty, all edge types are returned.
	GetEdges(ctx context.Context, nodeID string, edgeType EdgeType) ([]*Edge, error)

	// GetNeighbors returns nodes connected to nodeID via edges of the given type
	// in the specified direction. If edgeType is empty, all edge types are traversed.
	GetNeighbors(ctx context.Context, nodeID string, edgeType EdgeType, direction Direction) ([]*Node, error)

	// Stats returns aggregate statistics about the graph.
	Stats(ctx context.Context) (*GraphStats, error)

	// Close releases resources held by the store.
	Close() error
}
