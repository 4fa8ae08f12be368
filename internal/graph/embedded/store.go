package embedded

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/imyousuf/bizgraph/internal/graph"
)

// Key prefixes for the BadgerDB key scheme. Key segments after the prefix are
// joined with sep, which cannot occur in workspace names and is not expected in node IDs.
const (
	prefixNode           = "n:"
	prefixEdge           = "e:"
	prefixIdxType        = "idx:type:"
	prefixIdxCountry     = "idx:country:"
	prefixIdxEdge        = "idx:edge:"
	prefixIdxReverseEdge = "idx:redge:"

	sep = "\x00"
)

// DefaultWorkspace is used when no workspace name is given.
const DefaultWorkspace = "default"

// ErrNotFound is returned when a node is not present in the workspace.
var ErrNotFound = errors.New("not found")

// WorkspaceStore implements graph.Store using BadgerDB with workspace-aware key prefixes.
// All keys are prefixed with the workspace name, so one DB holds several investigations.
type WorkspaceStore struct {
	db        *badger.DB
	workspace string
}

// NewWorkspaceStore opens (or creates) a BadgerDB-backed graph store at dbPath
// operating on the given workspace.
func NewWorkspaceStore(dbPath, workspace string) (*WorkspaceStore, error) {
	if err := ValidateWorkspace(workspace); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // suppress badger logs
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &WorkspaceStore{db: db, workspace: workspace}, nil
}

// NewStore opens (or creates) a BadgerDB-backed graph store at dbPath using the default workspace.
func NewStore(dbPath string) (*WorkspaceStore, error) {
	return NewWorkspaceStore(dbPath, DefaultWorkspace)
}

// ValidateWorkspace checks that name can be used as a key segment.
func ValidateWorkspace(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("workspace name is required")
	}
	if strings.Contains(name, sep) {
		return fmt.Errorf("workspace name %q contains a NUL byte", name)
	}
	return nil
}

// Workspace returns the workspace this store reads and writes.
func (s *WorkspaceStore) Workspace() string { return s.workspace }

// --- workspace-aware key functions ---

func join(parts ...string) string { return strings.Join(parts, sep) }

func nodeKey(ws, id string) []byte { return []byte(prefixNode + join(ws, id)) }

func edgeKey(ws, key string) []byte { return []byte(prefixEdge + join(ws, key)) }

func indexTypeKey(ws string, nodeType graph.NodeType, id string) []byte {
	return []byte(prefixIdxType + join(ws, string(nodeType), id))
}

func indexCountryKey(ws, country, id string) []byte {
	return []byte(prefixIdxCountry + join(ws, country, id))
}

func indexEdgeKey(ws, sourceID string, edgeType graph.EdgeType, key string) []byte {
	return []byte(prefixIdxEdge + join(ws, sourceID, string(edgeType), key))
}

func indexReverseEdgeKey(ws, targetID string, edgeType graph.EdgeType, key string) []byte {
	return []byte(prefixIdxReverseEdge + join(ws, targetID, string(edgeType), key))
}

// workspacePrefixes lists every key prefix holding data of workspace ws.
func workspacePrefixes(ws string) []string {
	return []string{
		prefixNode + ws + sep,
		prefixEdge + ws + sep,
		prefixIdxType + ws + sep,
		prefixIdxCountry + ws + sep,
		prefixIdxEdge + ws + sep,
		prefixIdxReverseEdge + ws + sep,
	}
}

// ReplaceGraph swaps the workspace contents for frag in one transaction.
// An invalid fragment leaves the stored graph untouched.
func (s *WorkspaceStore) ReplaceGraph(_ context.Context, frag *graph.Fragment) error {
	if err := checkFragment(frag); err != nil {
		return err
	}
	ws := s.workspace
	return s.db.Update(func(txn *badger.Txn) error {
		if err := clearWorkspaceInTxn(txn, ws); err != nil {
			return fmt.Errorf("clear workspace %s: %w", ws, err)
		}
		return writeFragmentInTxn(txn, ws, frag)
	})
}

// MergeGraph upserts the nodes and edges of frag in one transaction.
func (s *WorkspaceStore) MergeGraph(_ context.Context, frag *graph.Fragment) error {
	if err := checkFragment(frag); err != nil {
		return err
	}
	ws := s.workspace
	return s.db.Update(func(txn *badger.Txn) error {
		return writeFragmentInTxn(txn, ws, frag)
	})
}

// checkFragment rejects fragments the store cannot key.
func checkFragment(frag *graph.Fragment) error {
	if frag == nil {
		return nil
	}
	for i, node := range frag.Nodes {
		if node == nil || node.ID == "" {
			return fmt.Errorf("node %d: node id is required", i)
		}
	}
	for i, edge := range frag.Edges {
		if edge == nil {
			return fmt.Errorf("edge %d: edge is nil", i)
		}
	}
	return nil
}

func writeFragmentInTxn(txn *badger.Txn, ws string, frag *graph.Fragment) error {
	if frag == nil {
		return nil
	}
	for _, node := range frag.Nodes {
		if err := putNodeInTxn(txn, ws, node); err != nil {
			return fmt.Errorf("add node %s: %w", node.ID, err)
		}
	}
	for _, edge := range frag.Edges {
		if err := putEdgeInTxn(txn, ws, edge); err != nil {
			return fmt.Errorf("add edge %s->%s: %w", edge.Source, edge.Target, err)
		}
	}
	return nil
}

// clearWorkspaceInTxn deletes every key of workspace ws inside txn.
func clearWorkspaceInTxn(txn *badger.Txn, ws string) error {
	for _, prefix := range workspacePrefixes(ws) {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Seek(opts.Prefix); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *WorkspaceStore) LoadGraph(_ context.Context) (*graph.Fragment, error) {
	frag := graph.NewFragment()
	err := s.db.View(func(txn *badger.Txn) error {
		if err := scanWorkspaceNodes(txn, s.workspace, func(n *graph.Node) bool {
			frag.Nodes = append(frag.Nodes, n)
			return true
		}); err != nil {
			return err
		}
		return scanWorkspaceEdges(txn, s.workspace, func(e *graph.Edge) bool {
			frag.Edges = append(frag.Edges, e)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return frag, nil
}

func (s *WorkspaceStore) AddNode(_ context.Context, node *graph.Node) error {
	if node == nil || node.ID == "" {
		return fmt.Errorf("node id is required")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return putNodeInTxn(txn, s.workspace, node)
	})
}

func putNodeInTxn(txn *badger.Txn, ws string, node *graph.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	// Remove stale indexes when an existing node changes type or country.
	if old, err := getNodeInTxn(txn, ws, node.ID); err == nil {
		if old.Type != node.Type {
			_ = txn.Delete(indexTypeKey(ws, old.Type, old.ID))
		}
		if old.Country != node.Country && old.Country != "" {
			_ = txn.Delete(indexCountryKey(ws, old.Country, old.ID))
		}
	}
	if err := txn.Set(nodeKey(ws, node.ID), data); err != nil {
		return err
	}
	if err := txn.Set(indexTypeKey(ws, node.Type, node.ID), []byte(node.ID)); err != nil {
		return err
	}
	if node.Country != "" {
		if err := txn.Set(indexCountryKey(ws, node.Country, node.ID), []byte(node.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (s *WorkspaceStore) DeleteNode(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return deleteNodeInTxn(txn, s.workspace, id)
	})
}

// deleteNodeInTxn removes a node and all its edges within a transaction.
func deleteNodeInTxn(txn *badger.Txn, ws, id string) error {
	node, err := getNodeInTxn(txn, ws, id)
	if err != nil {
		return err
	}
	// Forward edges (this node as source), then reverse edges (this node as target).
	for _, prefix := range []string{prefixIdxEdge, prefixIdxReverseEdge} {
		keys, err := scanIndexPrefix(txn, buildEdgeIndexPrefix(prefix, ws, id, ""))
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := deleteEdgeInTxn(txn, ws, k); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
	}
	_ = txn.Delete(indexTypeKey(ws, node.Type, id))
	if node.Country != "" {
		_ = txn.Delete(indexCountryKey(ws, node.Country, id))
	}
	return txn.Delete(nodeKey(ws, id))
}

func (s *WorkspaceStore) GetNode(_ context.Context, id string) (*graph.Node, error) {
	var node *graph.Node
	err := s.db.View(func(txn *badger.Txn) error {
		n, err := getNodeInTxn(txn, s.workspace, id)
		if err != nil {
			return err
		}
		node = n
		return nil
	})
	return node, err
}

func getNodeInTxn(txn *badger.Txn, ws, id string) (*graph.Node, error) {
	item, err := txn.Get(nodeKey(ws, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("get node %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", id, err)
	}
	var node graph.Node
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &node)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal node %s: %w", id, err)
	}
	return &node, nil
}

func (s *WorkspaceStore) QueryNodes(_ context.Context, filter graph.NodeFilter) ([]*graph.Node, error) {
	ws := s.workspace
	var results []*graph.Node
	err := s.db.View(func(txn *badger.Txn) error {
		var ids []string
		switch {
		case filter.Type != "":
			found, err := scanIndexPrefix(txn, []byte(prefixIdxType+join(ws, string(filter.Type), "")))
			if err != nil {
				return err
			}
			ids = found
		case filter.Country != "":
			found, err := scanIndexPrefix(txn, []byte(prefixIdxCountry+join(ws, filter.Country, "")))
			if err != nil {
				return err
			}
			ids = found
		default:
			return scanWorkspaceNodes(txn, ws, func(node *graph.Node) bool {
				if matchesFilter(node, filter) {
					results = append(results, node)
				}
				return true
			})
		}
		for _, id := range ids {
			node, err := getNodeInTxn(txn, ws, id)
			if err != nil {
				continue // index entry for deleted node; skip
			}
			if matchesFilter(node, filter) {
				results = append(results, node)
			}
		}
		return nil
	})
	return results, err
}

func (s *WorkspaceStore) AddEdge(_ context.Context, edge *graph.Edge) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return putEdgeInTxn(txn, s.workspace, edge)
	})
}

func putEdgeInTxn(txn *badger.Txn, ws string, edge *graph.Edge) error {
	e := *edge
	e.Type = graph.NormalizeEdgeType(e.Type)
	key := graph.EdgeKey(&e)
	data, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("marshal edge: %w", err)
	}
	if err := txn.Set(edgeKey(ws, key), data); err != nil {
		return err
	}
	if err := txn.Set(indexEdgeKey(ws, e.Source, e.Type, key), []byte(key)); err != nil {
		return err
	}
	return txn.Set(indexReverseEdgeKey(ws, e.Target, e.Type, key), []byte(key))
}

func deleteEdgeInTxn(txn *badger.Txn, ws, key string) error {
	edge, err := getEdgeInTxn(txn, ws, key)
	if err != nil {
		return err
	}
	_ = txn.Delete(indexEdgeKey(ws, edge.Source, edge.Type, key))
	_ = txn.Delete(indexReverseEdgeKey(ws, edge.Target, edge.Type, key))
	return txn.Delete(edgeKey(ws, key))
}

func (s *WorkspaceStore) GetEdges(_ context.Context, nodeID string, edgeType graph.EdgeType) ([]*graph.Edge, error) {
	ws := s.workspace
	seen := make(map[string]struct{})
	var results []*graph.Edge

	err := s.db.View(func(txn *badger.Txn) error {
		for _, prefix := range []string{prefixIdxEdge, prefixIdxReverseEdge} {
			keys, err := scanIndexPrefix(txn, buildEdgeIndexPrefix(prefix, ws, nodeID, edgeType))
			if err != nil {
				return err
			}
			for _, k := range keys {
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				e, err := getEdgeInTxn(txn, ws, k)
				if err != nil {
					continue
				}
				results = append(results, e)
			}
		}
		return nil
	})
	return results, err
}

func (s *WorkspaceStore) GetNeighbors(_ context.Context, nodeID string, edgeType graph.EdgeType, direction graph.Direction) ([]*graph.Node, error) {
	ws := s.workspace
	var results []*graph.Node
	err := s.db.View(func(txn *badger.Txn) error {
		seen := make(map[string]struct{})
		visit := func(prefix string, other func(*graph.Edge) string) error {
			keys, err := scanIndexPrefix(txn, buildEdgeIndexPrefix(prefix, ws, nodeID, edgeType))
			if err != nil {
				return err
			}
			for _, k := range keys {
				e, err := getEdgeInTxn(txn, ws, k)
				if err != nil {
					continue
				}
				id := other(e)
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				n, err := getNodeInTxn(txn, ws, id)
				if err != nil {
					continue // dangling endpoint
				}
				results = append(results, n)
			}
			return nil
		}

		// Outgoing: nodeID is source -> follow forward index -> neighbor is target.
		if direction == graph.Outgoing || direction == graph.Both {
			if err := visit(prefixIdxEdge, func(e *graph.Edge) string { return e.Target }); err != nil {
				return err
			}
		}
		// Incoming: nodeID is target -> follow reverse index -> neighbor is source.
		if direction == graph.Incoming || direction == graph.Both {
			if err := visit(prefixIdxReverseEdge, func(e *graph.Edge) string { return e.Source }); err != nil {
				return err
			}
		}
		return nil
	})
	return results, err
}

func (s *WorkspaceStore) Stats(_ context.Context) (*graph.GraphStats, error) {
	stats := &graph.GraphStats{
		NodesByType: make(map[graph.NodeType]int64),
		EdgesByType: make(map[graph.EdgeType]int64),
	}
	err := s.db.View(func(txn *badger.Txn) error {
		if err := scanWorkspaceNodes(txn, s.workspace, func(node *graph.Node) bool {
			stats.NodeCount++
			stats.NodesByType[node.Type]++
			return true
		}); err != nil {
			return err
		}
		return scanWorkspaceEdges(txn, s.workspace, func(edge *graph.Edge) bool {
			stats.EdgeCount++
			stats.EdgesByType[edge.Type]++
			return true
		})
	})
	return stats, err
}

func (s *WorkspaceStore) Close() error {
	return s.db.Close()
}

// DeleteWorkspace removes all keys belonging to the given workspace from the DB.
func (s *WorkspaceStore) DeleteWorkspace(ws string) error {
	if err := ValidateWorkspace(ws); err != nil {
		return err
	}
	for _, prefix := range workspacePrefixes(ws) {
		if err := s.db.DropPrefix([]byte(prefix)); err != nil {
			return fmt.Errorf("delete workspace %s prefix %q: %w", ws, prefix, err)
		}
	}
	return nil
}

// ListWorkspaces discovers workspace names present in the DB by scanning node key prefixes.
func (s *WorkspaceStore) ListWorkspaces() ([]string, error) {
	set := make(map[string]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixNode)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.Valid(); it.Next() {
			// Key format: n:<workspace>\x00<nodeID>
			rest := string(it.Item().Key())[len(prefixNode):]
			if idx := strings.Index(rest, sep); idx > 0 {
				set[rest[:idx]] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// --- helpers ---

// buildEdgeIndexPrefix constructs the prefix for scanning edge indexes.
// If edgeType is empty, it scans all edge types for the given nodeID.
func buildEdgeIndexPrefix(prefix, ws, nodeID string, edgeType graph.EdgeType) []byte {
	if edgeType == "" {
		return []byte(prefix + join(ws, nodeID, ""))
	}
	return []byte(prefix + join(ws, nodeID, string(edgeType), ""))
}

// scanIndexPrefix returns the values (node IDs or edge keys) stored under every index key with prefix.
func scanIndexPrefix(txn *badger.Txn, prefix []byte) ([]string, error) {
	var ids []string
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.Valid(); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		ids = append(ids, string(val))
	}
	return ids, nil
}

// scanWorkspaceNodes iterates over all node entries of a workspace and calls fn for each.
// Return false from fn to stop iteration.
func scanWorkspaceNodes(txn *badger.Txn, ws string, fn func(*graph.Node) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	prefix := []byte(prefixNode + ws + sep)
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.Valid(); it.Next() {
		var node graph.Node
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &node)
		})
		if err != nil {
			continue
		}
		if !fn(&node) {
			break
		}
	}
	return nil
}

// scanWorkspaceEdges iterates over all edge entries of a workspace and calls fn for each.
func scanWorkspaceEdges(txn *badger.Txn, ws string, fn func(*graph.Edge) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	prefix := []byte(prefixEdge + ws + sep)
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.Valid(); it.Next() {
		var edge graph.Edge
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &edge)
		})
		if err != nil {
			continue
		}
		if !fn(&edge) {
			break
		}
	}
	return nil
}

func getEdgeInTxn(txn *badger.Txn, ws, key string) (*graph.Edge, error) {
	item, err := txn.Get(edgeKey(ws, key))
	if err != nil {
		return nil, fmt.Errorf("get edge %s: %w", key, err)
	}
	var edge graph.Edge
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &edge)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal edge %s: %w", key, err)
	}
	return &edge, nil
}

// matchesFilter checks whether a node matches all non-zero fields in the filter.
func matchesFilter(node *graph.Node, filter graph.NodeFilter) bool {
	if filter.Type != "" && node.Type != filter.Type {
		return false
	}
	if filter.Country != "" && node.Country != filter.Country {
		return false
	}
	if filter.ICO != "" && node.ICO != filter.ICO {
		return false
	}
	if filter.LabelPattern != "" {
		matched, err := filepath.Match(filter.LabelPattern, node.Label)
		if err != nil || !matched {
			return false
		}
	}
	return true
}
