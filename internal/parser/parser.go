// Package parser turns raw text and document files into a uniform
// extraction envelope. Extractors never fail with a Go error: every outcome,
// including recovered panics from the underlying libraries, is a Result.
package parser

import (
	"context"
	"fmt"

	"github.com/dgallion1/legalens/internal/apperr"
)

// Status of an extraction.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Source names the extractor that produced a Result.
type Source string

const (
	SourceText Source = "text"
	SourcePDF  Source = "pdf"
	SourceDOCX Source = "docx"
	SourceOCR  Source = "ocr"
)

// Result is the extraction envelope. On success Text holds the extracted
// content; on error it holds a human-readable diagnostic and Kind says why.
type Result struct {
	Status Status      `json:"status"`
	Source Source      `json:"source"`
	Text   string      `json:"text"`
	Kind   apperr.Kind `json:"kind,omitempty"`
}

// OK reports whether the extraction succeeded with non-empty text.
func (r Result) OK() bool {
	return r.Status == StatusSuccess && r.Text != ""
}

// Extractor pulls text out of a file on disk.
type Extractor interface {
	Extract(ctx context.Context, path string) Result
}

func success(src Source, text string) Result {
	return Result{Status: StatusSuccess, Source: src, Text: text}
}

func failure(src Source, kind apperr.Kind, format string, args ...any) Result {
	return Result{Status: StatusError, Source: src, Text: fmt.Sprintf(format, args...), Kind: kind}
}

func notFound(src Source, path string) Result {
	return failure(src, apperr.FileNotFound, "File not found: %s", path)
}

// recoverInto converts a panic raised by a parsing library into an error
// Result written to *res.
func recoverInto(res *Result, src Source) {
	if r := recover(); r != nil {
		*res = failure(src, apperr.ExtractionFailed, "Unexpected error: %v", r)
	}
}
