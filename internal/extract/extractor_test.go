package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("Hello world\nLine 2"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 1 || pages[0] != "Hello world\nLine 2" {
		t.Errorf("got %q", pages)
	}
}

func TestExtractBytes_plainFormFeedPages(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("page one\ftext on page two\fthird"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := []string{"page one", "text on page two", "third"}
	if len(pages) != 3 {
		t.Fatalf("got %d pages", len(pages))
	}
	for i, p := range want {
		if pages[i] != p {
			t.Errorf("page %d: got %q, want %q", i, pages[i], p)
		}
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("hello\x80world"), ".md")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 1 || pages[0] != "hello�world" {
		t.Errorf("got %q", pages)
	}
}

func TestExtractBytes_unknownExtensionIsPlain(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("raw text"), ".weird")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 1 || pages[0] != "raw text" {
		t.Errorf("got %q", pages)
	}
}

func TestExtractBytes_excelSheetPerPage(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Clause")
	f.SetCellValue("Sheet1", "A2", "Term")
	f.SetCellValue("Sheet1", "B2", "Two years")
	if _, err := f.NewSheet("Schedule"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Schedule", "A1", "Fees")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	e := NewExtractor()
	pages, err := e.ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want one per sheet", len(pages))
	}
	if pages[0] != "Clause\nTerm\tTwo years" {
		t.Errorf("sheet 1: got %q", pages[0])
	}
	if pages[1] != "Fees" {
		t.Errorf("sheet 2: got %q", pages[1])
	}
}

// buildDocx assembles a minimal OOXML package with the given document body.
func buildDocx(t *testing.T, bodyXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	ct, err := zw.Create("[Content_Types].xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = ct.Write([]byte(`<?xml version="1.0"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`))

	doc, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = doc.Write([]byte(`<?xml version="1.0"?><w:document><w:body>` + bodyXML + `</w:body></w:document>`))

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes_docx(t *testing.T) {
	content := buildDocx(t, `<w:p><w:r><w:t>First clause text.</w:t></w:r></w:p><w:p><w:r><w:t xml:space="preserve">Second run.</w:t></w:r></w:p>`)

	e := NewExtractor()
	pages, err := e.ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages", len(pages))
	}
	if pages[0] != "First clause text. Second run." {
		t.Errorf("got %q", pages[0])
	}
}

func TestExtractBytes_docxPageBreaks(t *testing.T) {
	content := buildDocx(t, `<w:p><w:r><w:t>Page one.</w:t></w:r></w:p><w:p><w:r><w:br w:type="page"/></w:r></w:p><w:p><w:r><w:t>Page two.</w:t></w:r></w:p>`)

	e := NewExtractor()
	pages, err := e.ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if pages[0] != "Page one." || pages[1] != "Page two." {
		t.Errorf("got %q", pages)
	}
}

func TestExtractBytes_docxNotAZip(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("plainly not a zip"), ".docx"); err == nil {
		t.Error("want error for non-zip docx")
	}
}

func TestExtract_plainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contract.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor()
	pages, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(pages) != 1 || pages[0] != "File content" {
		t.Errorf("got %q", pages)
	}
}

func TestExtract_missingFile(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("want error for missing file")
	}
}
