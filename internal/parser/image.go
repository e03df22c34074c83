package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/legalens/internal/apperr"
	"github.com/dgallion1/legalens/internal/ocr"
)

// ImageExtractor runs OCR over a single image file.
type ImageExtractor struct {
	ocr ocr.Recognizer
}

func NewImageExtractor(r ocr.Recognizer) *ImageExtractor {
	return &ImageExtractor{ocr: r}
}

func (e *ImageExtractor) Extract(ctx context.Context, path string) (res Result) {
	defer recoverInto(&res, SourceOCR)

	if _, err := os.Stat(path); err != nil {
		return notFound(SourceOCR, path)
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return failure(SourceOCR, apperr.UnsupportedType,
			"Direct PDF input is not supported. Use the PDF extractor instead.")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return failure(SourceOCR, apperr.ExtractionFailed, "Unexpected error: %v", err)
	}

	resp, err := e.ocr.Recognize(ctx, data)
	if err != nil {
		return failure(SourceOCR, apperr.UpstreamServiceFailure, "Unexpected error: %v", err)
	}
	if resp.Error != "" {
		return failure(SourceOCR, apperr.UpstreamServiceFailure, "Vision API Error: %s", resp.Error)
	}

	if text := strings.TrimSpace(resp.FullText); text != "" {
		return success(SourceOCR, text)
	}
	if len(resp.Blocks) > 0 {
		if text := strings.TrimSpace(resp.Blocks[0]); text != "" {
			return success(SourceOCR, text)
		}
	}
	return failure(SourceOCR, apperr.ExtractionFailed, "No text detected.")
}
