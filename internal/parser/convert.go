package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/legalens/internal/execx"
)

// PDFConverter converts a word-processing document to PDF inside outDir and
// returns the path where the PDF is expected.
type PDFConverter interface {
	ConvertToPDF(ctx context.Context, path, outDir string) (string, error)
}

// SofficeConverter shells out to LibreOffice in headless mode.
type SofficeConverter struct {
	Runner execx.Runner
	Bin    string
}

func NewSofficeConverter(r execx.Runner, bin string) *SofficeConverter {
	if bin == "" {
		bin = "libreoffice"
	}
	return &SofficeConverter{Runner: r, Bin: bin}
}

// ConvertToPDF runs the conversion. LibreOffice's exit status is not a
// reliable success signal, so callers must check the returned path exists.
func (c *SofficeConverter) ConvertToPDF(ctx context.Context, path, outDir string) (string, error) {
	_, stderr, err := c.Runner.Run(ctx, c.Bin, "--headless", "--convert-to", "pdf", "--outdir", outDir, path)
	out := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".pdf")
	if err != nil {
		return out, fmt.Errorf("soffice convert: %w: %s", err, strings.TrimSpace(execx.Truncate(string(stderr), 512)))
	}
	return out, nil
}
