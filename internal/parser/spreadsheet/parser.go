package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/imyousuf/bizgraph/internal/graph"
	"github.com/imyousuf/bizgraph/internal/parser"
)

const provenance = "spreadsheet"

// Header aliases, tried in order against the exact (trimmed) header text.
var (
	nameAliases = []string{"Obchodné meno", "Názov", "Name", "Firma"}
	idAliases   = []string{"IČO", "ICO", "ID"}
	typeAliases = []string{"Právna forma", "Type"}
)

// SpreadsheetParser reads the first sheet of xlsx and legacy xls workbooks.
type SpreadsheetParser struct{}

// NewParser creates a new spreadsheet parser.
func NewParser() *SpreadsheetParser {
	return &SpreadsheetParser{}
}

func (p *SpreadsheetParser) Format() parser.Format {
	return parser.FormatSpreadsheet
}

func (p *SpreadsheetParser) Extensions() []string {
	return parser.FileExtensions[parser.FormatSpreadsheet]
}

func (p *SpreadsheetParser) ParseFile(fileName string, content []byte) (*parser.ParseResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(fileName), ".xls") {
		rows, err = readXLS(content)
	} else {
		rows, err = readXLSX(content)
	}
	if err != nil {
		return nil, parser.NewError(parser.ErrCorruptDocument, fileName, err)
	}

	nodes := []*graph.Node{}
	if len(rows) > 0 {
		ids := parser.NewIDAllocator()
		headers := rows[0]
		for i, cells := range rows[1:] {
			rec := parser.NewRecord(headers, cells)
			if rec.Empty() {
				continue
			}
			if node := recordNode(fileName, i+2, rec, ids); node != nil {
				nodes = append(nodes, node)
			}
		}
	}

	return &parser.ParseResult{
		Nodes:    nodes,
		Edges:    []*graph.Edge{},
		FileName: fileName,
		Format:   parser.FormatSpreadsheet,
	}, nil
}

// recordNode maps one keyed record to a node, or nil when no name resolves.
// line is the 1-based sheet row, used for synthesized IDs.
func recordNode(fileName string, line int, rec parser.Record, ids *parser.IDAllocator) *graph.Node {
	name, ok := rec.Lookup(nameAliases...)
	if !ok {
		name = rec.First()
	}
	if name == "" {
		return nil
	}
	ico, _ := rec.Lookup(idAliases...)

	id := ico
	if id == "" {
		id = graph.NewNodeID(provenance, fileName, fmt.Sprintf("row:%d", line))
	}
	node := &graph.Node{
		ID:    ids.Claim(id),
		Label: name,
		Type:  graph.NodeCompany,
		ICO:   ico,
	}
	if form, ok := rec.Lookup(typeAliases...); ok {
		node.Type = graph.NormalizeNodeType(form)
		node.SetExtra(graph.PropLegalForm, form)
	}
	node.SetExtra(graph.PropProvenance, provenance)
	return node
}

func readXLSX(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// xlsMaxCols is the column limit of a BIFF8 worksheet.
const xlsMaxCols = 256

func readXLS(content []byte) (rows [][]string, err error) {
	// The BIFF reader panics on some truncated workbooks.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("read xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(content), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb == nil {
		return nil, errors.New("open xls: empty workbook")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		// LastCol comes from the ROW record and is 0 for rows written without one.
		width := row.LastCol()
		if width < xlsMaxCols {
			width = xlsMaxCols
		}
		cells := make([]string, 0, width)
		for c := 0; c < width; c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, trimTrailingEmpty(cells))
	}
	return rows, nil
}

// xlsRow returns row i of sheet, or nil when the sheet has no record for it.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func trimTrailingEmpty(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}
