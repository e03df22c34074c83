// Package app wires the extraction stack, LLM, retrieval and storage from
// configuration. Both entry points build on it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/option"

	"github.com/dgallion1/legalens/internal/agent"
	"github.com/dgallion1/legalens/internal/config"
	"github.com/dgallion1/legalens/internal/execx"
	"github.com/dgallion1/legalens/internal/legalref"
	"github.com/dgallion1/legalens/internal/llm"
	"github.com/dgallion1/legalens/internal/ocr"
	"github.com/dgallion1/legalens/internal/parser"
	"github.com/dgallion1/legalens/internal/retrieve"
	"github.com/dgallion1/legalens/internal/router"
	"github.com/dgallion1/legalens/internal/storage"
)

// App holds the wired components. Optional parts are nil when their
// configuration is absent.
type App struct {
	Cfg     config.Config
	Log     *slog.Logger
	Matcher *legalref.Matcher
	Router  *router.Router

	Genai     *genai.Client
	Embedder  *retrieve.GeminiEmbedder
	LLM       llm.Client
	Stats     *llm.LLMStats
	Pool      *pgxpool.Pool
	Store     *retrieve.PGStore
	Retriever *retrieve.Retriever
	Agent     *agent.Agent
	Storage   storage.Storage

	closers []func()
}

// Options selects which optional parts New builds.
type Options struct {
	LLM      bool
	Database bool
	Storage  bool
}

// New builds the router and, as requested by opts, the LLM client, the
// vector store and the storage backend.
func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts Options) (*App, error) {
	a := &App{Cfg: cfg, Log: log, Matcher: legalref.Default()}
	a.Router = a.buildRouter(ctx)

	if cfg.GeminiAPIKey != "" {
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		a.Genai = client
		a.closers = append(a.closers, func() { client.Close() })
		a.Embedder = retrieve.NewGeminiEmbedder(client, cfg.EmbeddingModel)
	}

	if opts.LLM {
		if err := a.buildLLM(); err != nil {
			a.Close()
			return nil, err
		}
	}

	if opts.Database && cfg.DatabaseURL != "" {
		if err := a.buildStore(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	if opts.Storage {
		s, err := storage.New(ctx, storage.Config{
			Type:         storage.Type(cfg.StorageType),
			LocalPath:    cfg.StorageLocalPath,
			S3Bucket:     cfg.S3Bucket,
			S3Region:     cfg.S3Region,
			AWSAccessKey: cfg.AWSAccessKey,
			AWSSecretKey: cfg.AWSSecretKey,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("storage: %w", err)
		}
		a.Storage = s
	}

	if a.LLM != nil {
		var ret agent.Retriever
		if a.Retriever != nil {
			ret = a.Retriever
		}
		a.Agent = agent.New(a.Router, a.LLM, ret, log)
	}
	return a, nil
}

func (a *App) buildRouter(ctx context.Context) *router.Router {
	cfg := a.Cfg
	runner := execx.NewExecRunner(a.Log)

	rec := a.buildRecognizer(ctx, runner)
	image := parser.NewImageExtractor(rec)
	pdf := parser.NewPDFExtractor(parser.PDFConfig{
		DPI:               cfg.OCRDPI,
		FallbackPdftotext: cfg.PDFFallbackPdftotext,
		PdftotextBin:      cfg.PdftotextBin,
	}, image, ocr.NewPdftoppm(runner, cfg.PdftoppmBin), runner, a.Log)
	docx := parser.NewDOCXExtractor(pdf, parser.NewSofficeConverter(runner, cfg.SofficeBin), a.Log)

	return router.New(router.Extractors{PDF: pdf, Image: image, DOCX: docx}, a.Matcher, a.Log)
}

// buildRecognizer never fails: an OCR backend that cannot be built turns
// into ocr.Unavailable so text and DOCX inputs keep working.
func (a *App) buildRecognizer(ctx context.Context, runner execx.Runner) ocr.Recognizer {
	if a.Cfg.OCRProvider == "tesseract" {
		return ocr.NewTesseract(runner, a.Cfg.TesseractBin, a.Cfg.TesseractLang)
	}
	vc, err := ocr.NewVisionClient(ctx, a.Cfg.VisionAPIKey)
	if err != nil {
		a.Log.Warn("ocr.unavailable", "provider", a.Cfg.OCRProvider, "error", err)
		return ocr.Unavailable{Err: err}
	}
	return vc
}

func (a *App) buildLLM() error {
	settings := llm.Settings{
		Temperature: float32(a.Cfg.LLMTemperature),
		MaxTokens:   a.Cfg.LLMMaxTokens,
	}
	switch a.Cfg.LLMProvider {
	case "anthropic":
		if a.Cfg.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
		settings.Model = a.Cfg.AnthropicModel
		c := llm.NewClaudeClient(a.Cfg.AnthropicAPIKey, settings, a.Cfg.LLMTimeout, a.Log)
		a.closers = append(a.closers, c.Close)
		a.LLM, a.Stats = c, c.Stats
	case "gemini":
		if a.Genai == nil {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
		settings.Model = a.Cfg.GeminiModel
		c := llm.NewGeminiClient(a.Genai, settings, a.Log)
		a.LLM, a.Stats = c, c.Stats
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", a.Cfg.LLMProvider)
	}
	a.Log.Info("llm.ready", "provider", a.Cfg.LLMProvider, "model", a.LLM.Model())
	return nil
}

func (a *App) buildStore(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, a.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	a.Pool = pool
	a.Store = retrieve.NewPGStore(pool, a.Cfg.EmbeddingDimensions)

	if a.Embedder == nil {
		a.Log.Warn("retrieve.disabled", "reason", "GEMINI_API_KEY not set")
		return nil
	}
	a.Retriever = retrieve.NewRetriever(a.Embedder, a.Store, a.Cfg.RetrievalK, a.Log)
	return nil
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
