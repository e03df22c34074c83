package ocr

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vision "google.golang.org/api/vision/v1"
)

type fakeRunner struct {
	calls  [][]string
	stdout string
	stderr string
	err    error
	onRun  func(args []string)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.onRun != nil {
		f.onRun(args)
	}
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func TestFromAnnotateResponse(t *testing.T) {
	r := fromAnnotateResponse(&vision.AnnotateImageResponse{
		FullTextAnnotation: &vision.TextAnnotation{Text: "Section 420 IPC"},
		TextAnnotations: []*vision.EntityAnnotation{
			{Description: "Section 420 IPC"},
			{Description: "Section"},
		},
	})
	assert.Equal(t, "Section 420 IPC", r.FullText)
	assert.Equal(t, []string{"Section 420 IPC", "Section"}, r.Blocks)
	assert.Empty(t, r.Error)

	r = fromAnnotateResponse(&vision.AnnotateImageResponse{Error: &vision.Status{Code: 3, Message: "bad image"}})
	assert.Equal(t, "bad image", r.Error)

	assert.Equal(t, Response{}, fromAnnotateResponse(nil))
}

func TestTesseract_Recognize(t *testing.T) {
	fr := &fakeRunner{stdout: "Article 21\n"}
	tess := NewTesseract(fr, "", "")
	resp, err := tess.Recognize(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "Article 21\n", resp.FullText)
	require.Len(t, fr.calls, 1)
	assert.Equal(t, "tesseract", fr.calls[0][0])
	assert.Contains(t, fr.calls[0], "stdout")
	assert.Contains(t, fr.calls[0], "eng")

	// The temp input must be gone after the call.
	_, statErr := os.Stat(fr.calls[0][1])
	assert.True(t, os.IsNotExist(statErr))
}

func TestTesseract_FailureReportsStderr(t *testing.T) {
	fr := &fakeRunner{stderr: "Error opening data file", err: errors.New("exit 1")}
	resp, err := NewTesseract(fr, "tesseract", "eng").Recognize(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "Error opening data file", resp.Error)
}

func TestPdftoppm_RenderPage(t *testing.T) {
	prefix := t.TempDir() + "/page"
	fr := &fakeRunner{onRun: func(args []string) {
		_ = os.WriteFile(args[len(args)-1]+".png", []byte("png"), 0o600)
	}}
	out, err := NewPdftoppm(fr, "").RenderPage(context.Background(), "/docs/a.pdf", 2, 300, prefix)
	require.NoError(t, err)
	assert.Equal(t, prefix+".png", out)
	assert.Equal(t, "pdftoppm -r 300 -png -f 2 -l 2 -singlefile /docs/a.pdf "+prefix, strings.Join(fr.calls[0], " "))
}

func TestPdftoppm_NoOutput(t *testing.T) {
	fr := &fakeRunner{}
	_, err := NewPdftoppm(fr, "pdftoppm").RenderPage(context.Background(), "a.pdf", 1, 300, t.TempDir()+"/page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output image")
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{Err: errors.New("no credentials")}.Recognize(context.Background(), nil)
	assert.EqualError(t, err, "no credentials")
}
