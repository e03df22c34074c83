package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/grpc/codes"
)

// GeminiClient answers through a genai GenerativeModel.
type GeminiClient struct {
	model    *genai.GenerativeModel
	settings Settings
	log      *slog.Logger
	Stats    *LLMStats
}

// NewGeminiClient configures a model on an existing genai client. The
// caller owns client and closes it.
func NewGeminiClient(client *genai.Client, settings Settings, log *slog.Logger) *GeminiClient {
	if settings.Model == "" {
		settings.Model = "gemini-2.5-flash"
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = 512
	}
	if log == nil {
		log = slog.Default()
	}
	m := client.GenerativeModel(settings.Model)
	m.SetTemperature(settings.Temperature)
	m.SetMaxOutputTokens(int32(settings.MaxTokens))
	m.SystemInstruction = genai.NewUserContent(genai.Text(SystemPrompt))

	return &GeminiClient{model: m, settings: settings, log: log, Stats: NewLLMStats(time.Hour)}
}

func (c *GeminiClient) Model() string { return c.settings.Model }

func (c *GeminiClient) Answer(ctx context.Context, req Request) (string, error) {
	prompt := BuildUserPrompt(req)
	return withRetry(ctx, c.log, c.Stats, c.settings.Model, func(ctx context.Context) (string, error) {
		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", classifyGenaiError(err)
		}
		text := responseText(resp)
		if text == "" {
			return "", fmt.Errorf("empty response from gemini")
		}
		return text, nil
	})
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

// classifyGenaiError marks quota and availability failures as retryable.
func classifyGenaiError(err error) error {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("gemini: %w", err)
	}
	code := apiErr.HTTPCode()
	if code == http.StatusTooManyRequests || code >= 500 {
		return &RetryableError{StatusCode: code, Message: apiErr.Error()}
	}
	if st := apiErr.GRPCStatus(); st != nil {
		switch st.Code() {
		case codes.ResourceExhausted:
			return &RetryableError{StatusCode: http.StatusTooManyRequests, Message: apiErr.Error()}
		case codes.Unavailable, codes.Internal, codes.DeadlineExceeded:
			return &RetryableError{StatusCode: http.StatusServiceUnavailable, Message: apiErr.Error()}
		}
	}
	return fmt.Errorf("gemini: %w", err)
}
