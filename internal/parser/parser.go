package parser

import "github.com/imyousuf/bizgraph/internal/graph"

// Format represents a supported input file format.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatSpreadsheet Format = "spreadsheet"
	FormatJSON        Format = "json"
	FormatPDF         Format = "pdf"
)

// FileExtensions maps each format to its recognized file extensions.
var FileExtensions = map[Format][]string{
	FormatCSV:         {".csv"},
	FormatSpreadsheet: {".xlsx", ".xls"},
	FormatJSON:        {".json"},
	FormatPDF:         {".pdf"},
}

// ParseResult holds the graph fragment extracted from one file.
type ParseResult struct {
	Nodes    []*graph.Node
	Edges    []*graph.Edge
	FileName string
	Format   Format
	// Text is the full extracted document text (PDF only).
	Text string
}

// Fragment returns the result as a canonical graph fragment.
func (r *ParseResult) Fragment() *graph.Fragment {
	frag := graph.NewFragment()
	frag.Nodes = append(frag.Nodes, r.Nodes...)
	frag.Edges = append(frag.Edges, r.Edges...)
	return frag
}

// Parser defines the interface for format-specific registry data parsers.
type Parser interface {
	// Format returns which format this parser handles.
	Format() Format

	// Extensions returns the file extensions this parser can handle.
	Extensions() []string

	// ParseFile parses the given file content and returns extracted nodes and edges.
	ParseFile(fileName string, content []byte) (*ParseResult, error)
}
