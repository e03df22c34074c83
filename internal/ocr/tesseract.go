package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/legalens/internal/execx"
)

// Tesseract runs the local tesseract binary.
type Tesseract struct {
	Runner execx.Runner
	Bin    string
	Lang   string
}

func NewTesseract(r execx.Runner, bin, lang string) *Tesseract {
	if bin == "" {
		bin = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	return &Tesseract{Runner: r, Bin: bin, Lang: lang}
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte) (Response, error) {
	dir, err := os.MkdirTemp("", "legalens-tess-*")
	if err != nil {
		return Response{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.img")
	if err := os.WriteFile(in, image, 0o600); err != nil {
		return Response{}, fmt.Errorf("write temp image: %w", err)
	}

	stdout, stderr, err := t.Runner.Run(ctx, t.Bin, in, "stdout", "-l", t.Lang, "--psm", "3")
	if err != nil {
		return Response{Error: strings.TrimSpace(execx.Truncate(string(stderr), 512))}, nil
	}
	return Response{FullText: string(stdout)}, nil
}
