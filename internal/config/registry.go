package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

const registryFileName = ".bizgraph-projects.yaml"

// ProjectEntry is one investigation known to the global registry.
type ProjectEntry struct {
	Name       string    `yaml:"name"`
	Root       string    `yaml:"root"`
	ConfigDir  string    `yaml:"config_dir"`
	Registered time.Time `yaml:"registered,omitempty"`
}

type registryFile struct {
	Projects []ProjectEntry `yaml:"projects"`
}

// RegistryPath returns the global registry file in the home directory, or ""
// when the home directory is unknown.
func RegistryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, registryFileName)
}

// RegisterProject records a project root so commands run from outside it can
// still find its configuration. An empty name defaults to the root's base name.
// Registering an existing root updates its entry.
func RegisterProject(name, root, configDir string) error {
	if name == "" {
		name = filepath.Base(root)
	}
	entries, err := readRegistry()
	if err != nil {
		return err
	}

	entry := ProjectEntry{Name: name, Root: root, ConfigDir: configDir, Registered: time.Now().UTC().Truncate(time.Second)}
	replaced := false
	for i := range entries {
		if entries[i].Root == root {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return writeRegistry(entries)
}

// UnregisterProject removes the entry for root. Unknown roots are ignored.
func UnregisterProject(root string) error {
	entries, err := readRegistry()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Root != root {
			kept = append(kept, e)
		}
	}
	return writeRegistry(kept)
}

// LookupProject returns the entry whose root is path or an ancestor of it.
// The deepest matching root wins.
func LookupProject(path string) (*ProjectEntry, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	var best *ProjectEntry
	for _, e := range ListProjects() {
		root, err := filepath.Abs(e.Root)
		if err != nil {
			root = e.Root
		}
		if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
			continue
		}
		if best == nil || len(root) > len(best.Root) {
			e := e
			e.Root = root
			best = &e
		}
	}
	return best, best != nil
}

// ListProjects returns the registered projects sorted by name. A missing or
// unreadable registry yields no entries.
func ListProjects() []ProjectEntry {
	entries, err := readRegistry()
	if err != nil {
		return nil
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func readRegistry() ([]ProjectEntry, error) {
	path := RegistryPath()
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read project registry: %w", err)
	}
	var reg registryFile
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse project registry: %w", err)
	}
	return reg.Projects, nil
}

func writeRegistry(entries []ProjectEntry) error {
	path := RegistryPath()
	if path == "" {
		return nil
	}
	data, err := yaml.Marshal(&registryFile{Projects: entries})
	if err != nil {
		return fmt.Errorf("encode project registry: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
