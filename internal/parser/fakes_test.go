package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/legalens/internal/ocr"
)

type fakeDoc struct {
	pages  []string
	closed bool
}

func (d *fakeDoc) NumPage() int                   { return len(d.pages) }
func (d *fakeDoc) PageText(n int) (string, error) { return d.pages[n-1], nil }
func (d *fakeDoc) Close() error                   { d.closed = true; return nil }

// fakeRaster writes an empty PNG at the requested prefix.
type fakeRaster struct {
	rendered []int
	err      error
}

func (r *fakeRaster) RenderPage(_ context.Context, _ string, page, _ int, outPrefix string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.rendered = append(r.rendered, page)
	out := outPrefix + ".png"
	return out, os.WriteFile(out, []byte("png"), 0o600)
}

// fakeExtractor answers from a queue and records the paths it saw.
type fakeExtractor struct {
	results []Result
	paths   []string
	existed []bool
}

func (f *fakeExtractor) Extract(_ context.Context, path string) Result {
	f.paths = append(f.paths, path)
	_, err := os.Stat(path)
	f.existed = append(f.existed, err == nil)
	if len(f.results) == 0 {
		return failure(SourceOCR, "", "No text detected.")
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r
}

type fakeRecognizer struct {
	resp ocr.Response
	err  error
	got  []byte
}

func (f *fakeRecognizer) Recognize(_ context.Context, image []byte) (ocr.Response, error) {
	f.got = image
	return f.resp, f.err
}

var errBoom = errors.New("boom")

func touch(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("data"), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}
