package parser

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry manages a collection of format parsers.
type Registry struct {
	mu       sync.RWMutex
	parsers  map[Format]Parser
	extIndex map[string]Parser
	order    []Format
}

// NewRegistry creates a new parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers:  make(map[Format]Parser),
		extIndex: make(map[string]Parser),
		order:    make([]Format, 0),
	}
}

// Register adds a parser to the registry, indexing it by format and file extensions.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	format := p.Format()
	if _, exists := r.parsers[format]; !exists {
		r.order = append(r.order, format)
	}
	r.parsers[format] = p
	for _, ext := range p.Extensions() {
		r.extIndex[strings.ToLower(ext)] = p
	}
}

// Get retrieves a parser by format.
func (r *Registry) Get(format Format) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parsers[format]
	return p, ok
}

// GetByExtension retrieves a parser by file extension (e.g. ".csv", ".XLSX").
func (r *Registry) GetByExtension(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.extIndex[strings.ToLower(ext)]
	return p, ok
}

// ForFile retrieves the parser for a file name by its suffix, case-insensitively.
func (r *Registry) ForFile(fileName string) (Parser, bool) {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return nil, false
	}
	return r.GetByExtension(ext)
}

// All returns all registered parsers in registration order.
func (r *Registry) All() []Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Parser, len(r.order))
	for i, format := range r.order {
		result[i] = r.parsers[format]
	}
	return result
}

// SupportedExtensions returns all file extensions that have a registered parser, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extIndex))
	for ext := range r.extIndex {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
