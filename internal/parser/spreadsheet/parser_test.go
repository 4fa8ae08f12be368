package spreadsheet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/imyousuf/bizgraph/internal/graph"
	"github.com/imyousuf/bizgraph/internal/parser"
)

// buildWorkbook writes rows into the first sheet of a new xlsx workbook.
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	// A second sheet must be ignored.
	if _, err := f.NewSheet("Ignored"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	if err := f.SetSheetRow("Ignored", "A1", &[]any{"Názov", "Skrytá s.r.o."}); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	content := buildWorkbook(t, [][]any{
		{"Obchodné meno", "IČO", "Právna forma", "Sídlo"},
		{"Acme s.r.o.", "12345678", "s.r.o.", "Bratislava"},
		{"Ján Novák", "", "person", "Košice"},
		{"", "", "", ""},
		{"", "87654321", "", "Žilina"},
	})

	p := NewParser()
	result, err := p.ParseFile("register.XLSX", content)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if result.Format != parser.FormatSpreadsheet {
		t.Errorf("Format = %q", result.Format)
	}
	if len(result.Edges) != 0 {
		t.Errorf("len(Edges) = %d, want 0", len(result.Edges))
	}
	if len(result.Nodes) != 3 {
		t.Fatalf("len(Nodes) = %d, want 3", len(result.Nodes))
	}

	acme := result.Nodes[0]
	if acme.ID != "12345678" || acme.ICO != "12345678" || acme.Label != "Acme s.r.o." {
		t.Errorf("acme = %+v", acme)
	}
	if acme.Type != graph.NodeCompany {
		t.Errorf("acme Type = %q, want company", acme.Type)
	}
	if acme.Extra[graph.PropLegalForm] != "s.r.o." {
		t.Errorf("acme legal_form = %v", acme.Extra[graph.PropLegalForm])
	}

	novak := result.Nodes[1]
	if novak.Type != graph.NodePerson {
		t.Errorf("novak Type = %q, want person", novak.Type)
	}
	if novak.ICO != "" || novak.ID == "" {
		t.Errorf("novak ID = %q ICO = %q", novak.ID, novak.ICO)
	}

	// No name alias is filled, so the first value in column order is the label.
	fallback := result.Nodes[2]
	if fallback.Label != "87654321" {
		t.Errorf("fallback Label = %q, want first non-empty value", fallback.Label)
	}
	if fallback.Provenance() != "spreadsheet" {
		t.Errorf("Provenance = %q", fallback.Provenance())
	}
}

func TestParseXLSXAliasesAndTypeDefault(t *testing.T) {
	content := buildWorkbook(t, [][]any{
		{"ID", "Name", "Poznámka"},
		{"1", "Alfa", "x"},
		{"1", "Beta", "y"},
		{42, "Gama", ""},
	})
	result, err := NewParser().ParseFile("list.xlsx", content)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(result.Nodes) != 3 {
		t.Fatalf("len(Nodes) = %d, want 3", len(result.Nodes))
	}
	seen := make(map[string]bool)
	for _, n := range result.Nodes {
		if n.Type != graph.NodeCompany {
			t.Errorf("%s Type = %q, want company default", n.Label, n.Type)
		}
		if _, ok := n.Extra[graph.PropLegalForm]; ok {
			t.Errorf("%s has legal_form without a type column", n.Label)
		}
		if seen[n.ID] {
			t.Errorf("duplicate ID %q", n.ID)
		}
		seen[n.ID] = true
	}
	if result.Nodes[2].ICO != "42" {
		t.Errorf("numeric identifier = %q, want 42", result.Nodes[2].ICO)
	}
}

// testdata/register.xls is a BIFF8 workbook. Its first sheet "Firmy" holds
// Obchodné meno / IČO / Právna forma headers, three companies and a row
// without a ROW record; the second sheet "Archív" must be ignored.
func TestParseXLS(t *testing.T) {
	content, err := os.ReadFile(filepath.Join("testdata", "register.xls"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	result, err := NewParser().ParseFile("register.xls", content)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if result.Format != parser.FormatSpreadsheet {
		t.Errorf("Format = %q", result.Format)
	}
	if len(result.Nodes) != 3 {
		for _, n := range result.Nodes {
			t.Logf("node %+v", n)
		}
		t.Fatalf("len(Nodes) = %d, want 3", len(result.Nodes))
	}

	alfa := result.Nodes[0]
	if alfa.Label != "Alfa s.r.o." || alfa.ICO != "11111111" || alfa.ID != "11111111" {
		t.Errorf("alfa = %+v", alfa)
	}
	if alfa.Type != graph.NodeCompany {
		t.Errorf("alfa Type = %q, want company", alfa.Type)
	}
	if alfa.Extra[graph.PropLegalForm] != "s.r.o." {
		t.Errorf("alfa legal_form = %v", alfa.Extra[graph.PropLegalForm])
	}

	beta := result.Nodes[1]
	if beta.Label != "Beta a.s." || beta.ICO != "22222222" {
		t.Errorf("beta = %+v", beta)
	}
	if _, ok := beta.Extra[graph.PropLegalForm]; ok {
		t.Errorf("beta has legal_form from an empty cell")
	}

	gama := result.Nodes[2]
	if gama.Label != "Gama" || gama.ICO != "" || gama.ID == "" {
		t.Errorf("gama = %+v", gama)
	}

	for _, n := range result.Nodes {
		if n.Label == "Skrytá s.r.o." {
			t.Errorf("node %q read from the second sheet", n.Label)
		}
	}
}

func TestParseEmptyWorkbook(t *testing.T) {
	result, err := NewParser().ParseFile("empty.xlsx", buildWorkbook(t, nil))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if result.Nodes == nil || len(result.Nodes) != 0 {
		t.Errorf("Nodes = %v, want empty non-nil slice", result.Nodes)
	}
}

func TestParseCorruptDocument(t *testing.T) {
	for _, name := range []string{"broken.xlsx", "broken.xls"} {
		t.Run(name, func(t *testing.T) {
			_, err := NewParser().ParseFile(name, []byte("definitely not a workbook"))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, parser.ErrCorruptDocument) {
				t.Errorf("error = %v, want ErrCorruptDocument", err)
			}
		})
	}
}
