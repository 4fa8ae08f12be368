package parser

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

type stubParser struct {
	format Format
}

func (s stubParser) Format() Format       { return s.format }
func (s stubParser) Extensions() []string { return FileExtensions[s.format] }
func (s stubParser) ParseFile(fileName string, _ []byte) (*ParseResult, error) {
	return &ParseResult{FileName: fileName, Format: s.format}, nil
}

func TestRegistryForFileIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(stubParser{format: FormatCSV})
	r.Register(stubParser{format: FormatSpreadsheet})

	tests := []struct {
		name   string
		file   string
		want   Format
		wantOK bool
	}{
		{name: "lower csv", file: "firms.csv", want: FormatCSV, wantOK: true},
		{name: "upper csv", file: "FIRMS.CSV", want: FormatCSV, wantOK: true},
		{name: "xlsx", file: "export.XlSx", want: FormatSpreadsheet, wantOK: true},
		{name: "legacy xls", file: "export.xls", want: FormatSpreadsheet, wantOK: true},
		{name: "unregistered", file: "notes.txt", wantOK: false},
		{name: "no suffix", file: "README", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := r.ForFile(tt.file)
			if ok != tt.wantOK {
				t.Fatalf("ForFile(%q) ok = %v, want %v", tt.file, ok, tt.wantOK)
			}
			if ok && p.Format() != tt.want {
				t.Errorf("ForFile(%q) = %q, want %q", tt.file, p.Format(), tt.want)
			}
		})
	}

	exts := r.SupportedExtensions()
	if len(exts) != 3 || exts[0] != ".csv" {
		t.Errorf("SupportedExtensions = %v", exts)
	}
	if all := r.All(); len(all) != 2 || all[0].Format() != FormatCSV {
		t.Errorf("All() order = %v", all)
	}
}

func TestMatchHeader(t *testing.T) {
	headers := []string{" Poradie ", "Názov firmy", "IČO"}
	if got := MatchHeader(headers, []string{"názov", "name", "firma"}); got != 1 {
		t.Errorf("name column = %d, want 1", got)
	}
	if got := MatchHeader(headers, []string{"ico", "ičo", "id"}); got != 2 {
		t.Errorf("id column = %d, want 2", got)
	}
	if got := MatchHeader(headers, []string{"adresa"}); got != -1 {
		t.Errorf("missing column = %d, want -1", got)
	}
}

func TestRecordLookup(t *testing.T) {
	rec := NewRecord([]string{"Poznámka", "Názov", "IČO", "", "Názov"}, []string{"", " Acme ", "123", "x"})
	if v, ok := rec.Lookup("Obchodné meno", "Názov"); !ok || v != "Acme" {
		t.Errorf("Lookup = %q, %v", v, ok)
	}
	if _, ok := rec.Lookup("Firma"); ok {
		t.Error("Lookup of absent alias should fail")
	}
	if got := rec.First(); got != "Acme" {
		t.Errorf("First = %q, want %q (blank leading cells are skipped)", got, "Acme")
	}
	if len(rec.Keys) != 3 {
		t.Errorf("Keys = %v, want blank and repeated headers dropped", rec.Keys)
	}
	if rec.Empty() {
		t.Error("Empty() = true")
	}
	if !NewRecord([]string{"a"}, nil).Empty() {
		t.Error("record without cells should be empty")
	}
}

func TestIDAllocator(t *testing.T) {
	a := NewIDAllocator()
	got := []string{a.Claim("x"), a.Claim("x"), a.Claim("x-3"), a.Claim("x")}
	want := []string{"x", "x-2", "x-3", "x-4"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Claim #%d = %q, want %q", i, got[i], want[i])
		}
	}
	if !a.Taken("x-2") || a.Taken("y") {
		t.Error("Taken reports wrong state")
	}
}

func TestErrorKinds(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := fmt.Errorf("import: %w", NewError(ErrReadFailure, "a.csv", cause))

	if !errors.Is(err, ErrReadFailure) {
		t.Error("errors.Is(err, ErrReadFailure) = false")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("cause is not reachable through errors.Is")
	}
	if errors.Is(err, ErrMalformedJSON) {
		t.Error("unexpected kind match")
	}
	if KindOf(err) != ErrReadFailure {
		t.Errorf("KindOf = %v", KindOf(err))
	}
	var pe *Error
	if !errors.As(err, &pe) || pe.FileName != "a.csv" {
		t.Errorf("errors.As = %+v", pe)
	}
	if got := pe.Error(); got != "a.csv: read failure: unexpected EOF" {
		t.Errorf("Error() = %q", got)
	}
	if KindOf(errors.New("other")) != nil {
		t.Error("KindOf of foreign error should be nil")
	}
}
