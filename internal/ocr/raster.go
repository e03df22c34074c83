package ocr

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dgallion1/legalens/internal/execx"
)

// Rasterizer renders a single PDF page to a PNG file.
type Rasterizer interface {
	RenderPage(ctx context.Context, pdfPath string, page, dpi int, outPrefix string) (string, error)
}

// Pdftoppm renders pages with poppler's pdftoppm.
type Pdftoppm struct {
	Runner execx.Runner
	Bin    string
}

func NewPdftoppm(r execx.Runner, bin string) *Pdftoppm {
	if bin == "" {
		bin = "pdftoppm"
	}
	return &Pdftoppm{Runner: r, Bin: bin}
}

// RenderPage writes outPrefix+".png" for the 1-based page and returns its path.
func (p *Pdftoppm) RenderPage(ctx context.Context, pdfPath string, page, dpi int, outPrefix string) (string, error) {
	n := strconv.Itoa(page)
	_, stderr, err := p.Runner.Run(ctx, p.Bin,
		"-r", strconv.Itoa(dpi), "-png", "-f", n, "-l", n, "-singlefile",
		pdfPath, outPrefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w: %s", page, err, strings.TrimSpace(execx.Truncate(string(stderr), 512)))
	}
	out := outPrefix + ".png"
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("pdftoppm page %d: no output image", page)
	}
	return out, nil
}
