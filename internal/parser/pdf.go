package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/legalens/internal/apperr"
	"github.com/dgallion1/legalens/internal/execx"
	"github.com/dgallion1/legalens/internal/ocr"
	pdflib "github.com/ledongthuc/pdf"
)

// pdfDocument is the per-page view of a PDF the extractor needs.
type pdfDocument interface {
	NumPage() int
	PageText(n int) (string, error)
	Close() error
}

// PDFConfig tunes the PDF extractor.
type PDFConfig struct {
	DPI               int
	FallbackPdftotext bool
	PdftotextBin      string
}

// PDFExtractor reads the text layer of each page and falls back to OCR for
// pages that have none.
type PDFExtractor struct {
	cfg    PDFConfig
	ocr    Extractor
	raster ocr.Rasterizer
	runner execx.Runner
	log    *slog.Logger
	open   func(ctx context.Context, path string) (pdfDocument, error)
}

// NewPDFExtractor returns a PDF extractor. pageOCR extracts text from a
// rendered page image; an ImageExtractor is the usual choice.
func NewPDFExtractor(cfg PDFConfig, pageOCR Extractor, raster ocr.Rasterizer, runner execx.Runner, log *slog.Logger) *PDFExtractor {
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PdftotextBin == "" {
		cfg.PdftotextBin = "pdftotext"
	}
	if log == nil {
		log = slog.Default()
	}
	e := &PDFExtractor{cfg: cfg, ocr: pageOCR, raster: raster, runner: runner, log: log}
	e.open = e.openDocument
	return e
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (res Result) {
	defer recoverInto(&res, SourcePDF)

	if _, err := os.Stat(path); err != nil {
		return notFound(SourcePDF, path)
	}

	doc, err := e.open(ctx, path)
	if err != nil {
		return failure(SourcePDF, apperr.ExtractionFailed, "Unexpected error: %v", err)
	}
	defer doc.Close()

	var (
		pages    []string
		ocrFails []string
	)
	for i := 1; i <= doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return failure(SourcePDF, apperr.ExtractionFailed, "Unexpected error: %v", err)
		}
		text, err := doc.PageText(i)
		if err != nil {
			e.log.Warn("pdf.page.text_failed", "path", path, "page", i, "error", err)
		}
		if strings.TrimSpace(text) == "" {
			ocrRes := e.ocrPage(ctx, path, i)
			if ocrRes.Status != StatusSuccess {
				e.log.Warn("ocr.page.failed", "path", path, "page", i, "detail", ocrRes.Text)
				ocrFails = append(ocrFails, fmt.Sprintf("[OCR Error on page %d: %s]", i, ocrRes.Text))
				continue
			}
			text = ocrRes.Text
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		msg := "No text could be extracted from the PDF."
		if len(ocrFails) > 0 {
			msg += " " + strings.Join(ocrFails, " ")
		}
		return failure(SourcePDF, apperr.ExtractionFailed, "%s", msg)
	}
	return success(SourcePDF, strings.Join(pages, "\n"))
}

// ocrPage renders one page into its own temp directory, runs OCR on it and
// removes the image before returning.
func (e *PDFExtractor) ocrPage(ctx context.Context, path string, page int) Result {
	if e.raster == nil || e.ocr == nil {
		return failure(SourceOCR, apperr.ExtractionFailed, "OCR is not configured")
	}
	dir, err := os.MkdirTemp("", "legalens-page-*")
	if err != nil {
		return failure(SourceOCR, apperr.ExtractionFailed, "create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	img, err := e.raster.RenderPage(ctx, path, page, e.cfg.DPI, filepath.Join(dir, "page"))
	if err != nil {
		return failure(SourceOCR, apperr.ExtractionFailed, "%v", err)
	}
	return e.ocr.Extract(ctx, img)
}

func (e *PDFExtractor) openDocument(ctx context.Context, path string) (pdfDocument, error) {
	doc, err := openLedongthuc(path)
	if err != nil && e.cfg.FallbackPdftotext && e.runner != nil {
		e.log.Info("pdf.fallback.pdftotext", "path", path, "error", err)
		return e.openPdftotext(ctx, path)
	}
	return doc, err
}

type ledongthucDoc struct {
	f *os.File
	r *pdflib.Reader
}

func openLedongthuc(path string) (doc pdfDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()
	f, r, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	return &ledongthucDoc{f: f, r: r}, nil
}

func (d *ledongthucDoc) NumPage() int { return d.r.NumPage() }

func (d *ledongthucDoc) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", n, r)
		}
	}()
	page := d.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func (d *ledongthucDoc) Close() error { return d.f.Close() }

// pdftotextDoc holds pages split on the form feed pdftotext emits between pages.
type pdftotextDoc struct {
	pages []string
}

func (e *PDFExtractor) openPdftotext(ctx context.Context, path string) (pdfDocument, error) {
	out, stderr, err := e.runner.Run(ctx, e.cfg.PdftotextBin, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(execx.Truncate(string(stderr), 512)))
	}
	pages := strings.Split(string(out), "\f")
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return &pdftotextDoc{pages: pages}, nil
}

func (d *pdftotextDoc) NumPage() int { return len(d.pages) }

func (d *pdftotextDoc) PageText(n int) (string, error) { return d.pages[n-1], nil }

func (d *pdftotextDoc) Close() error { return nil }
