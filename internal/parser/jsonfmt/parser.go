// Package jsonfmt ingests canonical graph fragments and bare record arrays.
package jsonfmt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/imyousuf/bizgraph/internal/graph"
	"github.com/imyousuf/bizgraph/internal/parser"
)

const (
	provenance   = "json"
	unknownLabel = "Unknown"
)

var labelAliases = []string{"name", "nazov", "label"}

// JSONParser accepts either a {nodes, edges} object or an array of records.
type JSONParser struct{}

// NewParser creates a new JSON parser.
func NewParser() *JSONParser {
	return &JSONParser{}
}

func (p *JSONParser) Format() parser.Format {
	return parser.FormatJSON
}

func (p *JSONParser) Extensions() []string {
	return parser.FileExtensions[parser.FormatJSON]
}

func (p *JSONParser) ParseFile(fileName string, content []byte) (*parser.ParseResult, error) {
	if !gjson.ValidBytes(content) {
		return nil, parser.NewError(parser.ErrMalformedJSON, fileName, syntaxError(content))
	}

	root := gjson.ParseBytes(content)
	var frag *graph.Fragment
	switch {
	case root.IsObject() && root.Get("nodes").IsArray():
		frag = passthrough(fileName, root)
	case root.IsArray():
		frag = fromRecords(fileName, root)
	default:
		return nil, parser.NewError(parser.ErrUnrecognizedJSONStructure, fileName,
			fmt.Errorf("top-level %s is neither a {nodes, edges} object nor an array of records", describe(root)))
	}

	return &parser.ParseResult{
		Nodes:    frag.Nodes,
		Edges:    frag.Edges,
		FileName: fileName,
		Format:   parser.FormatJSON,
	}, nil
}

// passthrough keeps a canonical fragment as produced. Only type closure and
// ID uniqueness are enforced; entries that are not objects are skipped.
// A repeated id keeps its first node. Nodes without an id get a synthesized one.
func passthrough(fileName string, root gjson.Result) *graph.Fragment {
	frag := graph.NewFragment()
	ids := parser.NewIDAllocator()

	index := 0
	root.Get("nodes").ForEach(func(_, v gjson.Result) bool {
		index++
		if !v.IsObject() {
			return true
		}
		var n graph.Node
		if err := json.Unmarshal([]byte(v.Raw), &n); err != nil {
			return true
		}
		if id := strings.TrimSpace(n.ID); id != "" {
			if ids.Taken(n.ID) {
				return true
			}
			n.ID = ids.Claim(n.ID)
		} else {
			n.ID = ids.Claim(graph.NewNodeID(provenance, fileName, fmt.Sprintf("node:%d", index)))
		}
		if !graph.IsValidNodeType(n.Type) {
			n.Type = graph.NormalizeNodeType(string(n.Type))
		}
		frag.Nodes = append(frag.Nodes, &n)
		return true
	})

	if edges := root.Get("edges"); edges.IsArray() {
		edges.ForEach(func(_, v gjson.Result) bool {
			if !v.IsObject() {
				return true
			}
			var e graph.Edge
			if err := json.Unmarshal([]byte(v.Raw), &e); err != nil {
				return true
			}
			frag.Edges = append(frag.Edges, &e)
			return true
		})
	}
	return frag
}

// fromRecords maps every object of a bare array onto one node.
func fromRecords(fileName string, root gjson.Result) *graph.Fragment {
	frag := graph.NewFragment()
	ids := parser.NewIDAllocator()

	index := 0
	root.ForEach(func(_, rec gjson.Result) bool {
		index++
		if !rec.IsObject() {
			return true
		}
		frag.Nodes = append(frag.Nodes, recordNode(fileName, index, rec, ids))
		return true
	})
	return frag
}

func recordNode(fileName string, index int, rec gjson.Result, ids *parser.IDAllocator) *graph.Node {
	fields := rec.Map()

	id := strings.TrimSpace(fields["id"].String())
	if id == "" {
		id = graph.NewNodeID(provenance, fileName, fmt.Sprintf("record:%d", index))
	}
	label := unknownLabel
	for _, alias := range labelAliases {
		if s := strings.TrimSpace(fields[alias].String()); s != "" {
			label = s
			break
		}
	}

	node := &graph.Node{
		ID:    ids.Claim(id),
		Label: label,
		Type:  graph.NormalizeNodeType(fields["type"].String()),
	}
	rec.ForEach(func(k, v gjson.Result) bool {
		switch key := k.String(); key {
		case "id", "label", "type":
		default:
			node.SetField(key, v.Value())
		}
		return true
	})
	if node.Provenance() == "" {
		node.SetExtra(graph.PropProvenance, provenance)
	}
	return node
}

// syntaxError recovers the decoder's message for invalid input.
func syntaxError(content []byte) error {
	var v any
	if err := json.Unmarshal(content, &v); err != nil {
		return err
	}
	return errors.New("invalid json")
}

func describe(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	}
	return "object"
}
