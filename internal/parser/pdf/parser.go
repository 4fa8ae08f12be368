package pdf

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/imyousuf/bizgraph/internal/graph"
	"github.com/imyousuf/bizgraph/internal/parser"
)

const (
	provenance  = "pdf"
	labelPrefix = "Subjekt IČO "
)

// icoRe matches an eight digit business registry number.
var icoRe = regexp.MustCompile(`\b\d{8}\b`)

// PageExtractor returns the plain text of every page in ascending page order.
type PageExtractor func(content []byte) ([]string, error)

// PDFParser extracts registry numbers from the text layer of PDF excerpts.
type PDFParser struct {
	extract PageExtractor
}

// NewParser creates a PDF parser backed by the document text layer.
func NewParser() *PDFParser {
	return &PDFParser{extract: ExtractPages}
}

// NewParserWithExtractor creates a PDF parser using a custom page extractor.
func NewParserWithExtractor(extract PageExtractor) *PDFParser {
	return &PDFParser{extract: extract}
}

func (p *PDFParser) Format() parser.Format {
	return parser.FormatPDF
}

func (p *PDFParser) Extensions() []string {
	return parser.FileExtensions[parser.FormatPDF]
}

func (p *PDFParser) ParseFile(fileName string, content []byte) (*parser.ParseResult, error) {
	pages, err := p.extract(content)
	if err != nil {
		return nil, parser.NewError(parser.ErrCorruptDocument, fileName, err)
	}
	text := strings.Join(pages, "\n")

	// Repeated numbers are not merged; every occurrence is its own node.
	ids := parser.NewIDAllocator()
	nodes := []*graph.Node{}
	for i, ico := range icoRe.FindAllString(text, -1) {
		node := &graph.Node{
			ID:    ids.Claim(graph.NewNodeID(provenance, fileName, fmt.Sprintf("match:%d", i))),
			Label: labelPrefix + ico,
			Type:  graph.NodeCompany,
			ICO:   ico,
		}
		node.SetExtra(graph.PropProvenance, provenance)
		nodes = append(nodes, node)
	}

	return &parser.ParseResult{
		Nodes:    nodes,
		Edges:    []*graph.Edge{},
		FileName: fileName,
		Format:   parser.FormatPDF,
		Text:     text,
	}, nil
}

// ExtractPages reads the text layer of every page. Pages without content or
// whose text cannot be decoded are skipped.
func ExtractPages(content []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := r.NumPage()
	for pageIndex := 1; pageIndex <= total; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
