package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/legalens/internal/agent"
	"github.com/dgallion1/legalens/internal/answer"
	"github.com/dgallion1/legalens/internal/apperr"
	"github.com/dgallion1/legalens/internal/config"
	"github.com/dgallion1/legalens/internal/llm"
	"github.com/dgallion1/legalens/internal/router"
	"github.com/dgallion1/legalens/internal/storage"
)

type fakeAgent struct {
	processErr error
	textCalls  int
	routedPath string
	routedData string
	rtr        *router.Router
}

func (f *fakeAgent) Process(_ context.Context, input string) (*answer.StructuredAnswer, error) {
	if f.processErr != nil {
		return nil, f.processErr
	}
	out := answer.Assemble(input, nil, "", answer.Structured{Summary: "sum", Explanation: "exp"}, []string{"Article 21"})
	return &out, nil
}

func (f *fakeAgent) ProcessText(ctx context.Context, text string) (*answer.StructuredAnswer, error) {
	f.textCalls++
	return f.Process(ctx, text)
}

func (f *fakeAgent) Route(ctx context.Context, input string) (*router.RoutedInput, error) {
	f.routedPath = input
	if data, err := os.ReadFile(input); err == nil {
		f.routedData = string(data)
	}
	return f.rtr.Route(ctx, input)
}

func newFakeAgent() *fakeAgent {
	return &fakeAgent{rtr: router.New(router.Extractors{}, nil, quiet())}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{
		CORSOrigins:    []string{"http://localhost:3000"},
		MaxUploadBytes: 1 << 20,
	}
}

func newTestServer(t *testing.T, d Deps, cfg config.Config) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewServer(d, quiet(), cfg))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Deps{Agent: newFakeAgent()}, testConfig())
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestQuery(t *testing.T) {
	ts := newTestServer(t, Deps{Agent: newFakeAgent()}, testConfig())

	resp, out := postJSON(t, ts.URL+"/api/query", `{"query":"right to life"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "right to life", out["query"])
	assert.Equal(t, map[string]any{"summary": "sum", "explanation": "exp"}, out["llm_answer"])
	assert.Equal(t, []any{"Article 21"}, out["citations"])
	assert.Equal(t, []any{}, out["legal_entities"])
}

// echoLLM replies with the raw text it was given as the summary.
type echoLLM struct{}

func (echoLLM) Answer(_ context.Context, req llm.Request) (string, error) {
	b, err := json.Marshal(map[string]string{"summary": req.RawText, "explanation": req.Context})
	return string(b), err
}

func (echoLLM) Model() string { return "echo" }

func TestQuery_TreatsPathsAsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.txt")
	require.NoError(t, os.WriteFile(path, []byte("DB_PASSWORD=hunter2"), 0o600))

	a := agent.New(router.New(router.Extractors{}, nil, quiet()), echoLLM{}, nil, quiet())
	ts := newTestServer(t, Deps{Agent: a}, testConfig())

	body, err := json.Marshal(map[string]string{"query": path})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(raw), "hunter2")
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, path, out["query"])
}

func TestQuery_UsesTextEntryPoint(t *testing.T) {
	a := newFakeAgent()
	ts := newTestServer(t, Deps{Agent: a}, testConfig())
	postJSON(t, ts.URL+"/api/query", `{"query":"Section 420 IPC"}`)
	assert.Equal(t, 1, a.textCalls)
}

func TestQuery_MissingField(t *testing.T) {
	ts := newTestServer(t, Deps{Agent: newFakeAgent()}, testConfig())
	for _, body := range []string{`{}`, `{"q":"x"}`, `not json`, `null`} {
		resp, out := func() (*http.Response, map[string]any) {
			resp, err := http.Post(ts.URL+"/api/query", "application/json", strings.NewReader(body))
			require.NoError(t, err)
			defer resp.Body.Close()
			var out map[string]any
			json.NewDecoder(resp.Body).Decode(&out)
			return resp, out
		}()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "Missing 'query' field", out["error"], body)
	}
}

func TestQuery_ErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{apperr.New(apperr.MissingInput, "No input provided", ""), http.StatusBadRequest},
		{apperr.New(apperr.UnsupportedSource, "URL input not yet supported", "http://x"), http.StatusBadRequest},
		{apperr.New(apperr.FileNotFound, "File not found", "a.pdf"), http.StatusNotFound},
		{apperr.New(apperr.UnsupportedType, "Unsupported or empty input type", "a.pdf"), http.StatusUnsupportedMediaType},
		{apperr.New(apperr.ExtractionFailed, "Unsupported or empty input type", "a.pdf"), http.StatusUnprocessableEntity},
		{apperr.New(apperr.UpstreamServiceFailure, "LLM call failed", "llm"), http.StatusBadGateway},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		a := newFakeAgent()
		a.processErr = tt.err
		ts := newTestServer(t, Deps{Agent: a}, testConfig())
		resp, out := postJSON(t, ts.URL+"/api/query", `{"query":"x"}`)
		assert.Equal(t, tt.code, resp.StatusCode, tt.err.Error())
		assert.NotEmpty(t, out["error"])
		if k := apperr.KindOf(tt.err); k != "" {
			assert.Equal(t, string(k), out["kind"])
		}
	}
}

func TestContact(t *testing.T) {
	ts := newTestServer(t, Deps{Agent: newFakeAgent()}, testConfig())

	resp, out := postJSON(t, ts.URL+"/api/contact",
		`{"name":"A","email":"a@example.com","inquiryType":"general","message":"hi"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Contact form submitted successfully", out["message"])

	resp, out = postJSON(t, ts.URL+"/api/contact", `{"name":"A","email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing required fields", out["error"])
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload_TextFile(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	a := newFakeAgent()
	ts := newTestServer(t, Deps{Agent: a, Storage: store}, testConfig())

	body, ct := multipartBody(t, "../../notes.txt", "Appeal under Section 96 CPC")
	resp, err := http.Post(ts.URL+"/api/upload", ct, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "notes.txt", out["source"])
	assert.Equal(t, "txt", out["type"])
	assert.Equal(t, "Appeal under Section 96 CPC", out["raw_text"])
	assert.NotEmpty(t, out["archived"])

	assert.Equal(t, "Appeal under Section 96 CPC", a.routedData)
	_, statErr := os.Stat(a.routedPath)
	assert.True(t, os.IsNotExist(statErr), "temp upload should be removed")
}

func TestUpload_Rejections(t *testing.T) {
	ts := newTestServer(t, Deps{Agent: newFakeAgent()}, testConfig())

	body, ct := multipartBody(t, "malware.exe", "MZ")
	resp, err := http.Post(ts.URL+"/api/upload", ct, body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	body, ct = multipartBody(t, "empty.txt", "   ")
	resp, err = http.Post(ts.URL+"/api/upload", ct, body)
	require.NoError(t, err)
	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Equal(t, "empty.txt", out["source"])

	resp, err = http.Post(ts.URL+"/api/upload", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpload_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 10
	ts := newTestServer(t, Deps{Agent: newFakeAgent()}, cfg)

	body, ct := multipartBody(t, "big.txt", strings.Repeat("a", 64))
	resp, err := http.Post(ts.URL+"/api/upload", ct, body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "secret"
	ts := newTestServer(t, Deps{Agent: newFakeAgent()}, cfg)

	resp, err := http.Post(ts.URL+"/api/query", "application/json", strings.NewReader(`{"query":"x"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/query", strings.NewReader(`{"query":"x"}`))
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health stays public")
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, Deps{Agent: newFakeAgent()}, testConfig())

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodPost, ts.URL+"/api/query", strings.NewReader(`{"query":"x"}`))
	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestLLMStats(t *testing.T) {
	ts := newTestServer(t, Deps{Agent: newFakeAgent()}, testConfig())
	resp, err := http.Get(ts.URL + "/api/stats/llm")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	stats := llm.NewLLMStats(0)
	stats.Record(llm.Call{Latency: 120 * time.Millisecond, Attempts: 2, Outcome: llm.OutcomeOK})
	ts = newTestServer(t, Deps{Agent: newFakeAgent(), Stats: stats, Model: "gemini-2.5-flash"}, testConfig())
	resp, err = http.Get(ts.URL + "/api/stats/llm")
	require.NoError(t, err)
	defer resp.Body.Close()
	var out struct {
		Model string         `json:"model"`
		Stats map[string]any `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "gemini-2.5-flash", out.Model)
	assert.EqualValues(t, 1, out.Stats["count"])
	assert.EqualValues(t, 1, out.Stats["ok"])
	assert.EqualValues(t, 1, out.Stats["retries"])
	assert.EqualValues(t, 120, out.Stats["max_ms"])
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"brief.pdf":            "brief.pdf",
		"../../etc/passwd.txt": "passwd.txt",
		`C:\Users\a\scan.png`:  "scan.png",
		"":                     "unnamed",
		"..":                   "_",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
