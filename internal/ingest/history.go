package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// maxHistory bounds how many import reports a workspace history keeps.
const maxHistory = 200

// History records the import runs applied to each workspace.
type History struct {
	mu         sync.Mutex
	Workspaces map[string][]*Report `json:"workspaces,omitempty"`
}

// LoadHistory reads import history from the given file path.
// Returns an empty history (no error) if the file does not exist.
func LoadHistory(path string) (*History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &History{}, nil
		}
		return nil, fmt.Errorf("read import history: %w", err)
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("unmarshal import history: %w", err)
	}
	return &h, nil
}

// Save writes the history to the given file path.
func (h *History) Save(path string) error {
	h.mu.Lock()
	data, err := json.MarshalIndent(h, "", "  ")
	h.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal import history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write import history: %w", err)
	}
	return nil
}

// Add appends a report to the workspace history, dropping the oldest entries
// beyond maxHistory. A replace import starts a new history for the workspace.
func (h *History) Add(workspace string, r *Report) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Workspaces == nil {
		h.Workspaces = make(map[string][]*Report)
	}
	runs := h.Workspaces[workspace]
	if r.Mode == ModeReplace {
		runs = nil
	}
	runs = append(runs, r)
	if len(runs) > maxHistory {
		runs = runs[len(runs)-maxHistory:]
	}
	h.Workspaces[workspace] = runs
}

// Contains reports whether content with the given checksum is part of the
// workspace's current graph.
func (h *History) Contains(workspace, checksum string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.Workspaces[workspace] {
		if r.Checksum == checksum {
			return true
		}
	}
	return false
}

// Recent returns up to n of the latest reports of the workspace, newest first.
func (h *History) Recent(workspace string, n int) []*Report {
	h.mu.Lock()
	defer h.mu.Unlock()
	runs := h.Workspaces[workspace]
	if n <= 0 || n > len(runs) {
		n = len(runs)
	}
	out := make([]*Report, 0, n)
	for i := len(runs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, runs[i])
	}
	return out
}

// Forget drops the history of a workspace.
func (h *History) Forget(workspace string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.Workspaces, workspace)
}
