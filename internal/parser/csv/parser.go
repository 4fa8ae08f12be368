package csv

import (
	"bytes"
	stdcsv "encoding/csv"
	"fmt"
	"strings"

	"github.com/imyousuf/bizgraph/internal/graph"
	"github.com/imyousuf/bizgraph/internal/parser"
)

const provenance = "csv"

// Header vocabularies, matched as substrings of the lower-cased header cells.
var (
	nameVocabulary = []string{"názov", "name", "firma"}
	idVocabulary   = []string{"ico", "ičo", "id"}
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVParser turns delimited text exports into company nodes.
type CSVParser struct{}

// NewParser creates a new delimited text parser.
func NewParser() *CSVParser {
	return &CSVParser{}
}

func (p *CSVParser) Format() parser.Format {
	return parser.FormatCSV
}

func (p *CSVParser) Extensions() []string {
	return parser.FileExtensions[parser.FormatCSV]
}

func (p *CSVParser) ParseFile(fileName string, content []byte) (*parser.ParseResult, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	comma := detectDelimiter(content)

	e := &extractor{fileName: fileName, ids: parser.NewIDAllocator(), nodes: []*graph.Node{}}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSuffix(line, "\r")
		e.line++
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells, ok := splitRecord(line, comma)
		if !ok {
			continue
		}
		e.row(cells)
	}

	return &parser.ParseResult{
		Nodes:    e.nodes,
		Edges:    []*graph.Edge{},
		FileName: fileName,
		Format:   parser.FormatCSV,
	}, nil
}

// splitRecord splits one line into fields. Quotes are honoured within the
// line only, so an unbalanced quote affects nothing but its own row.
func splitRecord(line string, comma rune) ([]string, bool) {
	r := stdcsv.NewReader(strings.NewReader(line))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	cells, err := r.Read()
	if err != nil {
		return nil, false
	}
	return cells, true
}

// detectDelimiter returns whichever of ',' and ';' occurs first in content.
func detectDelimiter(content []byte) rune {
	if i := bytes.IndexAny(content, ",;"); i >= 0 && content[i] == ';' {
		return ';'
	}
	return ','
}

type extractor struct {
	fileName string
	ids      *parser.IDAllocator
	nodes    []*graph.Node

	headerSeen bool
	nameCol    int
	idCol      int
	line       int
}

func (e *extractor) row(cells []string) {
	if !e.headerSeen {
		e.header(cells)
		return
	}
	if len(cells) < 2 {
		return
	}

	name := cell(cells, e.nameCol)
	if name == "" {
		return
	}
	ico := cell(cells, e.idCol)

	id := ico
	if id == "" {
		id = graph.NewNodeID(provenance, e.fileName, fmt.Sprintf("row:%d", e.line))
	}
	node := &graph.Node{
		ID:    e.ids.Claim(id),
		Label: name,
		Type:  graph.NodeCompany,
		ICO:   ico,
	}
	node.SetExtra(graph.PropProvenance, provenance)
	e.nodes = append(e.nodes, node)
}

func (e *extractor) header(cells []string) {
	e.headerSeen = true
	headers := make([]string, len(cells))
	for i, c := range cells {
		headers[i] = strings.ToLower(strings.TrimSpace(c))
	}

	e.nameCol = parser.MatchHeader(headers, nameVocabulary)
	if e.nameCol < 0 {
		e.nameCol = 0
	}
	// A header matching both vocabularies feeds both fields.
	e.idCol = parser.MatchHeader(headers, idVocabulary)
	if e.idCol < 0 {
		// Positional fallback never shares a column with the name: column 1
		// when the name sits in column 0, else column 0.
		// Open question: whether both should fall back to column 0, making
		// each label its own identifier. Decision recorded in DESIGN.md.
		e.idCol = 0
		if e.nameCol == 0 {
			e.idCol = 1
		}
	}
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}
