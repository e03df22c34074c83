package parser

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/dgallion1/legalens/internal/apperr"
)

func newTestPDF(doc pdfDocument, pageOCR Extractor, raster *fakeRaster) *PDFExtractor {
	e := NewPDFExtractor(PDFConfig{}, pageOCR, raster, nil, nil)
	e.open = func(context.Context, string) (pdfDocument, error) { return doc, nil }
	return e
}

func TestPDFExtractor_MixedNativeAndOCRPagesKeepOrder(t *testing.T) {
	path := touch(t, "mixed.pdf")
	doc := &fakeDoc{pages: []string{"native page one", "", "native page three"}}
	pageOCR := &fakeExtractor{results: []Result{success(SourceOCR, "scanned page two")}}
	raster := &fakeRaster{}

	res := newTestPDF(doc, pageOCR, raster).Extract(context.Background(), path)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	want := "native page one\nscanned page two\nnative page three"
	if res.Text != want {
		t.Errorf("expected %q, got %q", want, res.Text)
	}
	if res.Source != SourcePDF {
		t.Errorf("expected source pdf, got %q", res.Source)
	}
	if len(raster.rendered) != 1 || raster.rendered[0] != 2 {
		t.Errorf("expected only page 2 rendered, got %v", raster.rendered)
	}
	if !doc.closed {
		t.Error("expected document to be closed")
	}
}

func TestPDFExtractor_RemovesPageImageAfterOCR(t *testing.T) {
	path := touch(t, "scan.pdf")
	doc := &fakeDoc{pages: []string{"", ""}}
	pageOCR := &fakeExtractor{results: []Result{success(SourceOCR, "a"), success(SourceOCR, "b")}}

	res := newTestPDF(doc, pageOCR, &fakeRaster{}).Extract(context.Background(), path)
	if res.Text != "a\nb" {
		t.Fatalf("expected %q, got %q", "a\nb", res.Text)
	}
	if len(pageOCR.paths) != 2 {
		t.Fatalf("expected 2 OCR calls, got %d", len(pageOCR.paths))
	}
	if pageOCR.paths[0] == pageOCR.paths[1] {
		t.Error("expected a distinct temp image per page")
	}
	for i, p := range pageOCR.paths {
		if !pageOCR.existed[i] {
			t.Errorf("page image %s missing during OCR", p)
		}
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("page image %s not removed after OCR", p)
		}
	}
}

func TestPDFExtractor_NoTextAnywhere(t *testing.T) {
	path := touch(t, "blank.pdf")
	doc := &fakeDoc{pages: []string{"  ", ""}}
	pageOCR := &fakeExtractor{results: []Result{
		failure(SourceOCR, apperr.ExtractionFailed, "No text detected."),
		failure(SourceOCR, apperr.UpstreamServiceFailure, "Vision API Error: quota"),
	}}

	res := newTestPDF(doc, pageOCR, &fakeRaster{}).Extract(context.Background(), path)
	if res.Status != StatusError {
		t.Fatalf("expected error, got %+v", res)
	}
	if !strings.HasPrefix(res.Text, "No text could be extracted from the PDF.") {
		t.Errorf("unexpected diagnostic %q", res.Text)
	}
	if !strings.Contains(res.Text, "[OCR Error on page 2: Vision API Error: quota]") {
		t.Errorf("expected per-page OCR diagnostic, got %q", res.Text)
	}
	if res.Kind != apperr.ExtractionFailed {
		t.Errorf("expected kind %q, got %q", apperr.ExtractionFailed, res.Kind)
	}
}

func TestPDFExtractor_OCRFailureOnOnePageStillSucceeds(t *testing.T) {
	path := touch(t, "partial.pdf")
	doc := &fakeDoc{pages: []string{"", "Section 138 NI Act"}}
	pageOCR := &fakeExtractor{results: []Result{failure(SourceOCR, "", "Vision API Error: bad image")}}

	res := newTestPDF(doc, pageOCR, &fakeRaster{}).Extract(context.Background(), path)
	if res.Status != StatusSuccess || res.Text != "Section 138 NI Act" {
		t.Errorf("expected native page text only, got %+v", res)
	}
}

func TestPDFExtractor_RasterFailure(t *testing.T) {
	path := touch(t, "r.pdf")
	doc := &fakeDoc{pages: []string{""}}
	res := newTestPDF(doc, &fakeExtractor{}, &fakeRaster{err: errBoom}).Extract(context.Background(), path)
	if res.Status != StatusError {
		t.Fatalf("expected error, got %+v", res)
	}
	if !strings.Contains(res.Text, "boom") {
		t.Errorf("expected raster error in diagnostic, got %q", res.Text)
	}
}

func TestPDFExtractor_MissingFile(t *testing.T) {
	e := NewPDFExtractor(PDFConfig{}, nil, nil, nil, nil)
	res := e.Extract(context.Background(), "/nonexistent/path.pdf")
	if res.Status != StatusError {
		t.Fatalf("expected error, got %+v", res)
	}
	if res.Text != "File not found: /nonexistent/path.pdf" {
		t.Errorf("unexpected diagnostic %q", res.Text)
	}
	if res.Kind != apperr.FileNotFound {
		t.Errorf("expected kind %q, got %q", apperr.FileNotFound, res.Kind)
	}
}

func TestPDFExtractor_OpenFailure(t *testing.T) {
	path := touch(t, "broken.pdf")
	e := NewPDFExtractor(PDFConfig{}, nil, nil, nil, nil)
	e.open = func(context.Context, string) (pdfDocument, error) { return nil, errBoom }
	res := e.Extract(context.Background(), path)
	if res.Text != "Unexpected error: boom" {
		t.Errorf("expected %q, got %q", "Unexpected error: boom", res.Text)
	}
}

type panicDoc struct{ fakeDoc }

func (panicDoc) PageText(int) (string, error) { panic("corrupt xref") }

func TestPDFExtractor_RecoversFromPanic(t *testing.T) {
	path := touch(t, "panic.pdf")
	doc := &panicDoc{fakeDoc{pages: []string{"x"}}}
	res := newTestPDF(doc, nil, nil).Extract(context.Background(), path)
	if res.Status != StatusError {
		t.Fatalf("expected error, got %+v", res)
	}
	if res.Text != "Unexpected error: corrupt xref" {
		t.Errorf("unexpected diagnostic %q", res.Text)
	}
}

func TestPDFExtractor_InvalidFileWithoutFallback(t *testing.T) {
	path := touch(t, "not-a-pdf.pdf")
	e := NewPDFExtractor(PDFConfig{FallbackPdftotext: false}, nil, nil, nil, nil)
	res := e.Extract(context.Background(), path)
	if res.Status != StatusError {
		t.Fatalf("expected error for invalid pdf, got %+v", res)
	}
	if !strings.HasPrefix(res.Text, "Unexpected error:") {
		t.Errorf("unexpected diagnostic %q", res.Text)
	}
}

type stubRunner struct {
	stdout string
	args   []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.args = append([]string{name}, args...)
	return []byte(s.stdout), nil, nil
}

func TestPDFExtractor_PdftotextFallbackSplitsPages(t *testing.T) {
	path := touch(t, "fallback.pdf")
	runner := &stubRunner{stdout: "Article 14\fArticle 21\f"}
	e := NewPDFExtractor(PDFConfig{FallbackPdftotext: true}, nil, nil, runner, nil)
	res := e.Extract(context.Background(), path)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Text != "Article 14\nArticle 21" {
		t.Errorf("expected %q, got %q", "Article 14\nArticle 21", res.Text)
	}
	if runner.args[0] != "pdftotext" {
		t.Errorf("expected pdftotext invocation, got %v", runner.args)
	}
}
