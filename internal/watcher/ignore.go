package watcher

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is read from the inbox root; one glob per line, "#" comments,
// "!" negates and a trailing "/" restricts the pattern to directories.
const IgnoreFileName = ".bizgraphignore"

// Matcher decides which inbox paths are ignored. Patterns without a slash
// match any path component; patterns with a slash are anchored at the inbox
// root and may use "**". The last matching rule wins.
type Matcher struct {
	root  string
	rules []ignoreRule
}

type ignoreRule struct {
	pattern  string
	negation bool
	dirOnly  bool
}

// NewMatcher builds a matcher for root from exclude patterns and, when
// present, root/.bizgraphignore. File rules follow the exclude patterns.
func NewMatcher(root string, exclude []string) (*Matcher, error) {
	m := &Matcher{root: root}
	for _, p := range exclude {
		if r, ok := parseRule(p); ok {
			m.rules = append(m.rules, r)
		}
	}
	fileRules, err := loadIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	m.rules = append(m.rules, fileRules...)
	return m, nil
}

// Match reports whether the file at path is ignored.
func (m *Matcher) Match(path string) bool { return m.match(path, false) }

// MatchDir reports whether the directory at path is ignored.
func (m *Matcher) MatchDir(path string) bool { return m.match(path, true) }

func (m *Matcher) match(path string, isDir bool) bool {
	rel := path
	if m.root != "" {
		r, err := filepath.Rel(m.root, path)
		if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			return false
		}
		rel = r
	}
	parts := splitPath(rel)
	if len(parts) == 0 {
		return false
	}

	ignored := false
	for _, r := range m.rules {
		if r.matches(parts, isDir) {
			ignored = !r.negation
		}
	}
	return ignored
}

func loadIgnoreFile(path string) ([]ignoreRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rules []ignoreRule
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if r, ok := parseRule(scanner.Text()); ok {
			rules = append(rules, r)
		}
	}
	return rules, scanner.Err()
}

func parseRule(line string) (ignoreRule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ignoreRule{}, false
	}
	var r ignoreRule
	if strings.HasPrefix(line, "!") {
		r.negation = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	r.pattern = strings.TrimPrefix(line, "/")
	return r, r.pattern != ""
}

// matches tests the rule against a root-relative path split into components.
// Directory-only rules skip the last component unless it is a directory.
func (r ignoreRule) matches(parts []string, isDir bool) bool {
	skipLast := r.dirOnly && !isDir
	if strings.Contains(r.pattern, "/") {
		pat := splitPath(r.pattern)
		// An anchored pattern also ignores everything below a matched directory.
		for n := len(parts); n >= 1; n-- {
			if skipLast && n == len(parts) {
				continue
			}
			if matchParts(pat, parts[:n]) {
				return true
			}
		}
		return false
	}

	candidates := parts
	if skipLast {
		candidates = parts[:len(parts)-1]
	}
	for _, part := range candidates {
		if ok, _ := filepath.Match(r.pattern, part); ok {
			return true
		}
	}
	return false
}

func matchParts(pattern, parts []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(parts); i++ {
			if matchParts(pattern[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	if ok, _ := filepath.Match(pattern[0], parts[0]); !ok {
		return false
	}
	return matchParts(pattern[1:], parts[1:])
}

func splitPath(path string) []string {
	var out []string
	for _, p := range strings.Split(filepath.ToSlash(path), "/") {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}
