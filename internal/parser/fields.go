package parser

import (
	"fmt"
	"strings"
)

// MatchHeader returns the index of the first header containing any of the
// vocabulary terms as a substring, or -1. Headers are compared lower-cased and trimmed.
func MatchHeader(headers []string, vocabulary []string) int {
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, term := range vocabulary {
			if strings.Contains(h, term) {
				return i
			}
		}
	}
	return -1
}

// Record is one data row of a tabular file keyed by its header cells.
// Keys keeps the header order so positional fallbacks stay deterministic.
type Record struct {
	Keys   []string
	Values map[string]string
}

// NewRecord pairs header cells with row cells. Missing cells are empty and
// cells beyond the header are dropped. Blank and repeated headers are ignored.
func NewRecord(headers, cells []string) Record {
	rec := Record{Values: make(map[string]string, len(headers))}
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, dup := rec.Values[h]; dup {
			continue
		}
		val := ""
		if i < len(cells) {
			val = strings.TrimSpace(cells[i])
		}
		rec.Keys = append(rec.Keys, h)
		rec.Values[h] = val
	}
	return rec
}

// Empty reports whether every value of the record is blank.
func (r Record) Empty() bool {
	for _, v := range r.Values {
		if v != "" {
			return false
		}
	}
	return true
}

// Lookup returns the first non-empty value among the aliases, tried in order.
func (r Record) Lookup(aliases ...string) (string, bool) {
	for _, a := range aliases {
		if v := r.Values[a]; v != "" {
			return v, true
		}
	}
	return "", false
}

// First returns the first non-empty value in header order.
func (r Record) First() string {
	for _, k := range r.Keys {
		if v := r.Values[k]; v != "" {
			return v
		}
	}
	return ""
}

// IDAllocator hands out node IDs that are unique within one parse call.
type IDAllocator struct {
	seen map[string]int
}

// NewIDAllocator creates an empty allocator.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{seen: make(map[string]int)}
}

// Claim returns id, or id suffixed with a counter when it was already handed out.
func (a *IDAllocator) Claim(id string) string {
	n := a.seen[id]
	a.seen[id] = n + 1
	if n == 0 {
		return id
	}
	for {
		n++
		candidate := fmt.Sprintf("%s-%d", id, n)
		if _, taken := a.seen[candidate]; !taken {
			a.seen[candidate] = 1
			a.seen[id] = n
			return candidate
		}
	}
}

// Taken reports whether id was already handed out.
func (a *IDAllocator) Taken(id string) bool {
	return a.seen[id] > 0
}
