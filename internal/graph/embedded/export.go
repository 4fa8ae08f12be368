package embedded

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"

	"github.com/imyousuf/bizgraph/internal/graph"
)

// exportRecord is the JSON-lines format for export/import.
type exportRecord struct {
	Kind string          `json:"kind"` // "node" or "edge"
	Data json.RawMessage `json:"data"`
}

// Export writes all nodes and edges of the workspace to w in JSON-lines format.
func (s *WorkspaceStore) Export(_ context.Context, w io.Writer) error {
	enc := json.NewEncoder(w)
	var encErr error
	err := s.db.View(func(txn *badger.Txn) error {
		if err := scanWorkspaceNodes(txn, s.workspace, func(node *graph.Node) bool {
			data, err := json.Marshal(node)
			if err != nil {
				return true // skip bad nodes
			}
			encErr = enc.Encode(exportRecord{Kind: "node", Data: data})
			return encErr == nil
		}); err != nil {
			return fmt.Errorf("export nodes: %w", err)
		}
		if encErr != nil {
			return fmt.Errorf("encode node: %w", encErr)
		}

		if err := scanWorkspaceEdges(txn, s.workspace, func(edge *graph.Edge) bool {
			data, err := json.Marshal(edge)
			if err != nil {
				return true
			}
			encErr = enc.Encode(exportRecord{Kind: "edge", Data: data})
			return encErr == nil
		}); err != nil {
			return fmt.Errorf("export edges: %w", err)
		}
		if encErr != nil {
			return fmt.Errorf("encode edge: %w", encErr)
		}
		return nil
	})
	return err
}

// Import reads JSON-lines from r, clears the workspace, and inserts all records.
func (s *WorkspaceStore) Import(ctx context.Context, r io.Reader) error {
	if err := s.DeleteWorkspace(s.workspace); err != nil {
		return fmt.Errorf("clear workspace: %w", err)
	}

	scanner := bufio.NewScanner(r)
	// Increase buffer for potentially large lines.
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec exportRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("unmarshal record: %w", err)
		}

		switch rec.Kind {
		case "node":
			var node graph.Node
			if err := json.Unmarshal(rec.Data, &node); err != nil {
				return fmt.Errorf("unmarshal node: %w", err)
			}
			if err := s.AddNode(ctx, &node); err != nil {
				return fmt.Errorf("import node %s: %w", node.ID, err)
			}
		case "edge":
			var edge graph.Edge
			if err := json.Unmarshal(rec.Data, &edge); err != nil {
				return fmt.Errorf("unmarshal edge: %w", err)
			}
			if err := s.AddEdge(ctx, &edge); err != nil {
				return fmt.Errorf("import edge %s->%s: %w", edge.Source, edge.Target, err)
			}
		default:
			return fmt.Errorf("unknown record kind: %q", rec.Kind)
		}
	}

	return scanner.Err()
}
