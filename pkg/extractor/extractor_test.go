package extractor

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func TestExtractPlainTextVerbatim(t *testing.T) {
	e := New()
	tests := []struct {
		name     string
		fileType string
		data     string
	}{
		{"txt", "txt", "plain text content\nwith a second line"},
		{"markdown", "md", "# Title\n\nSome **markdown** body."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract([]byte(tt.data), tt.fileType)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.data {
				t.Errorf("expected verbatim content, got %q", got)
			}
		})
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := New()
	for _, fileType := range []string{"exe", "jpg", "", "PDF"} {
		if _, err := e.Extract([]byte("data"), fileType); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("fileType %q: expected ErrUnsupportedFormat, got %v", fileType, err)
		}
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	e := New()
	if _, err := e.Extract([]byte("this is not a pdf"), "pdf"); !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction for corrupt pdf, got %v", err)
	}
}

func TestExtractCorruptDocx(t *testing.T) {
	e := New()
	if _, err := e.Extract([]byte("this is not a zip archive"), "docx"); !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction for corrupt docx, got %v", err)
	}
}

func TestExtractDocxMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, _ := w.Create("word/styles.xml")
	_, _ = f.Write([]byte("<styles/>"))
	_ = w.Close()

	e := New()
	if _, err := e.Extract(buf.Bytes(), "docx"); !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction when document.xml is missing, got %v", err)
	}
}

func TestExtractDocxParagraphs(t *testing.T) {
	documentXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t xml:space="preserve">Second </w:t></w:r><w:r><w:t>paragraph</w:t></w:r></w:p>
  </w:body>
</w:document>`

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	e := New()
	got, err := e.Extract(buf.Bytes(), "docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "First paragraph\n\nSecond paragraph"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
