// Package neo4jsync mirrors a workspace graph into a Neo4j database so it can
// be explored with Cypher.
package neo4jsync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/imyousuf/bizgraph/internal/graph"
	"github.com/imyousuf/bizgraph/internal/logger"
)

// baseLabel is carried by every mirrored node next to its type label.
const baseLabel = "BizNode"

// Options configures the Neo4j connection.
type Options struct {
	URI      string
	User     string
	Password string
	Database string
	// Timeout bounds connection setup. Zero means 10 seconds.
	Timeout time.Duration
}

// Client wraps a Neo4j driver bound to one database.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

// Open connects to Neo4j and verifies connectivity.
func Open(ctx context.Context, opts Options, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(opts.URI) == "" {
		return nil, fmt.Errorf("neo4jsync: uri is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	user := opts.User
	if user == "" {
		user = "neo4j"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(user, opts.Password, ""), func(cfg *neo4j.Config) {
		cfg.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jsync: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jsync: verify connectivity: %w", err)
	}
	return &Client{Driver: driver, Database: opts.Database, log: log.With("client", "neo4j")}, nil
}

// Close releases the driver.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}

// Result summarizes one sync.
type Result struct {
	Workspace string
	Nodes     int
	Edges     int
	// Skipped counts edges whose type is outside the closed set or whose
	// endpoints are missing from the fragment.
	Skipped int
}

// Sync replaces the mirrored copy of workspace with frag.
func (c *Client) Sync(ctx context.Context, workspace string, frag *graph.Fragment) (*Result, error) {
	if c == nil || c.Driver == nil {
		return nil, fmt.Errorf("neo4jsync: client is closed")
	}
	if frag == nil {
		frag = graph.NewFragment()
	}

	nodes := NodeParams(workspace, frag)
	edges, skipped := EdgeParams(workspace, frag)
	res := &Result{Workspace: workspace, Skipped: skipped}
	for _, rows := range nodes {
		res.Nodes += len(rows)
	}
	for _, rows := range edges {
		res.Edges += len(rows)
	}

	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	for _, q := range SchemaStatements() {
		r, err := session.Run(ctx, q, nil)
		if err != nil {
			c.log.Warn("neo4j schema init failed (continuing)", "error", err)
			continue
		}
		_, _ = r.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := run(ctx, tx, clearQuery, map[string]any{"workspace": workspace}); err != nil {
			return nil, err
		}
		for _, t := range graph.NodeTypes {
			rows := nodes[t]
			if len(rows) == 0 {
				continue
			}
			if err := run(ctx, tx, nodeQuery(t), map[string]any{"rows": rows}); err != nil {
				return nil, fmt.Errorf("upsert %s nodes: %w", t, err)
			}
		}
		for _, t := range graph.EdgeTypes {
			rows := edges[t]
			if len(rows) == 0 {
				continue
			}
			if err := run(ctx, tx, edgeQuery(t), map[string]any{"rows": rows}); err != nil {
				return nil, fmt.Errorf("upsert %s edges: %w", t, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jsync: write: %w", err)
	}

	c.log.Info("synced workspace to neo4j", "workspace", workspace, "nodes", res.Nodes, "edges", res.Edges, "skipped", res.Skipped)
	return res, nil
}

func run(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) error {
	r, err := tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = r.Consume(ctx)
	return err
}

const clearQuery = `
MATCH (n:` + baseLabel + ` {workspace: $workspace})
DETACH DELETE n
`

// SchemaStatements returns the constraints created before each sync.
func SchemaStatements() []string {
	return []string{
		`CREATE CONSTRAINT biznode_key IF NOT EXISTS FOR (n:` + baseLabel + `) REQUIRE (n.workspace, n.id) IS UNIQUE`,
		`CREATE INDEX biznode_ico IF NOT EXISTS FOR (n:` + baseLabel + `) ON (n.ico)`,
	}
}

// Label returns the Neo4j label for a node type, e.g. "Company".
func Label(t graph.NodeType) string {
	s := string(graph.NormalizeNodeType(string(t)))
	return strings.ToUpper(s[:1]) + s[1:]
}

func nodeQuery(t graph.NodeType) string {
	return `
UNWIND $rows AS row
MERGE (n:` + baseLabel + ` {workspace: row.workspace, id: row.id})
SET n += row, n:` + Label(t) + `
`
}

func edgeQuery(t graph.EdgeType) string {
	return `
UNWIND $rows AS row
MATCH (s:` + baseLabel + ` {workspace: row.workspace, id: row.source})
MATCH (d:` + baseLabel + ` {workspace: row.workspace, id: row.target})
MERGE (s)-[:` + string(t) + `]->(d)
`
}

// NodeParams groups the fragment's nodes by type as Cypher parameter rows.
// Properties are flattened to Neo4j primitives; Extra is stored as JSON text.
func NodeParams(workspace string, frag *graph.Fragment) map[graph.NodeType][]map[string]any {
	out := make(map[graph.NodeType][]map[string]any)
	for _, n := range frag.Nodes {
		if n == nil || n.ID == "" {
			continue
		}
		t := graph.NormalizeNodeType(string(n.Type))
		row := map[string]any{
			"workspace": workspace,
			"id":        n.ID,
			"label":     n.Label,
			"type":      string(t),
		}
		if n.ICO != "" {
			row["ico"] = n.ICO
		}
		if n.Country != "" {
			row["country"] = n.Country
		}
		if n.RiskScore != nil {
			row["risk_score"] = *n.RiskScore
		}
		if n.VirtualSeat != nil {
			row["virtual_seat"] = *n.VirtualSeat
		}
		if n.Details != "" {
			row["details"] = n.Details
		}
		if n.Founded != "" {
			row["founded"] = n.Founded
		}
		if len(n.Extra) > 0 {
			if data, err := json.Marshal(n.Extra); err == nil {
				row["extra_json"] = string(data)
			}
		}
		out[t] = append(out[t], row)
	}
	return out
}

// EdgeParams groups the fragment's edges by type as Cypher parameter rows.
// Edges with an unknown type or an endpoint missing from the fragment are
// dropped and counted.
func EdgeParams(workspace string, frag *graph.Fragment) (map[graph.EdgeType][]map[string]any, int) {
	known := make(map[string]struct{}, len(frag.Nodes))
	for _, n := range frag.Nodes {
		if n != nil {
			known[n.ID] = struct{}{}
		}
	}
	valid := make(map[graph.EdgeType]struct{}, len(graph.EdgeTypes))
	for _, t := range graph.EdgeTypes {
		valid[t] = struct{}{}
	}

	out := make(map[graph.EdgeType][]map[string]any)
	skipped := 0
	for _, e := range frag.Edges {
		if e == nil {
			continue
		}
		t := graph.NormalizeEdgeType(e.Type)
		_, okType := valid[t]
		_, okSrc := known[e.Source]
		_, okDst := known[e.Target]
		if !okType || !okSrc || !okDst {
			skipped++
			continue
		}
		out[t] = append(out[t], map[string]any{
			"workspace": workspace,
			"source":    e.Source,
			"target":    e.Target,
		})
	}
	return out, skipped
}
