package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgallion1/legalens/internal/apperr"
	"github.com/fumiama/go-docx"
)

// DOCXExtractor reads paragraph text from .docx files. Documents with no
// paragraph text (scanned pages pasted as images) are converted to PDF and
// handed to the PDF extractor.
type DOCXExtractor struct {
	pdf  Extractor
	conv PDFConverter
	log  *slog.Logger
}

func NewDOCXExtractor(pdf Extractor, conv PDFConverter, log *slog.Logger) *DOCXExtractor {
	if log == nil {
		log = slog.Default()
	}
	return &DOCXExtractor{pdf: pdf, conv: conv, log: log}
}

func (e *DOCXExtractor) Extract(ctx context.Context, path string) (res Result) {
	defer recoverInto(&res, SourceDOCX)

	if _, err := os.Stat(path); err != nil {
		return notFound(SourceDOCX, path)
	}

	paras, err := docxParagraphs(path)
	if err != nil {
		return failure(SourceDOCX, apperr.ExtractionFailed, "Unexpected error: %v", err)
	}
	if len(paras) > 0 {
		return success(SourceDOCX, strings.Join(paras, "\n"))
	}

	e.log.Info("docx.no_text.converting", "path", path)
	return e.viaPDF(ctx, path)
}

func (e *DOCXExtractor) viaPDF(ctx context.Context, path string) Result {
	const noText = "No text detected and PDF conversion failed."
	if e.conv == nil || e.pdf == nil {
		return failure(SourceDOCX, apperr.ExtractionFailed, noText)
	}

	outDir, err := os.MkdirTemp("", "legalens-docx-*")
	if err != nil {
		return failure(SourceDOCX, apperr.ExtractionFailed, "Unexpected error: %v", err)
	}
	defer os.RemoveAll(outDir)

	pdfPath, err := e.conv.ConvertToPDF(ctx, path, outDir)
	if err != nil {
		e.log.Warn("docx.convert.failed", "path", path, "error", err)
	}
	if pdfPath == "" {
		return failure(SourceDOCX, apperr.ExtractionFailed, noText)
	}
	if _, statErr := os.Stat(pdfPath); statErr != nil {
		return failure(SourceDOCX, apperr.ExtractionFailed, noText)
	}

	res := e.pdf.Extract(ctx, pdfPath)
	res.Source = SourceDOCX
	return res
}

func docxParagraphs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat docx: %w", err)
	}
	doc, err := docx.Parse(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var paras []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if text := docxParagraphText(para); text != "" {
			paras = append(paras, text)
		}
	}
	return paras, nil
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
