package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey      string
	CORSOrigins []string

	// LLM
	LLMProvider     string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	LLMTemperature  float64
	LLMMaxTokens    int
	LLMTimeout      time.Duration

	// Embeddings and retrieval
	EmbeddingModel      string
	EmbeddingBatchSize  int
	EmbeddingDimensions int
	EmbeddingsFile      string
	DatabaseURL         string
	RetrievalK          int

	// OCR and external tools
	OCRProvider          string
	VisionAPIKey         string
	TesseractBin         string
	TesseractLang        string
	PdftoppmBin          string
	PdftotextBin         string
	SofficeBin           string
	OCRDPI               int
	PDFFallbackPdftotext bool

	// Upload limits
	MaxUploadBytes int64

	// Storage
	StorageType      string
	StorageLocalPath string
	S3Bucket         string
	S3Region         string
	AWSAccessKey     string
	AWSSecretKey     string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "5000"),

		APIKey:      os.Getenv("LEGALENS_API_KEY"),
		CORSOrigins: envList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		LLMProvider:     strings.ToLower(envOr("LLM_PROVIDER", "gemini")),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		LLMTemperature:  envFloat("LLM_TEMPERATURE", 0),
		LLMMaxTokens:    envInt("LLM_MAX_TOKENS", 512),
		LLMTimeout:      envDuration("LLM_TIMEOUT", 120*time.Second),

		EmbeddingModel:      envOr("EMBEDDING_MODEL", "text-embedding-004"),
		EmbeddingBatchSize:  envInt("EMBEDDING_BATCH_SIZE", 16),
		EmbeddingDimensions: envInt("EMBEDDING_DIMENSIONS", 768),
		EmbeddingsFile:      envOr("EMBEDDINGS_LOCAL_FILE", "data/embeddings/embeddings.jsonl"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RetrievalK:          envInt("RETRIEVAL_K", 3),

		OCRProvider:          strings.ToLower(envOr("OCR_PROVIDER", "vision")),
		VisionAPIKey:         os.Getenv("GOOGLE_VISION_API_KEY"),
		TesseractBin:         envOr("TESSERACT_BIN", "tesseract"),
		TesseractLang:        envOr("TESSERACT_LANG", "eng"),
		PdftoppmBin:          envOr("PDFTOPPM_BIN", "pdftoppm"),
		PdftotextBin:         envOr("PDFTOTEXT_BIN", "pdftotext"),
		SofficeBin:           envOr("SOFFICE_BIN", "libreoffice"),
		OCRDPI:               envInt("OCR_DPI", 300),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		StorageType:      strings.ToLower(envOr("STORAGE_TYPE", "none")),
		StorageLocalPath: envOr("STORAGE_LOCAL_PATH", "./storage/files"),
		S3Bucket:         os.Getenv("AWS_S3_BUCKET"),
		S3Region:         envOr("AWS_REGION", "us-east-1"),
		AWSAccessKey:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:     os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}

	if cfg.LLMTemperature < 0 {
		cfg.LLMTemperature = 0
	}
	if cfg.LLMMaxTokens <= 0 {
		cfg.LLMMaxTokens = 512
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 120 * time.Second
	}
	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = 16
	}
	if cfg.EmbeddingDimensions <= 0 {
		cfg.EmbeddingDimensions = 768
	}
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = 3
	}
	if cfg.OCRDPI <= 0 {
		cfg.OCRDPI = 300
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}

	return cfg
}

// Validate checks the settings the HTTP server cannot start without.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.OCRProvider {
	case "vision", "tesseract":
	default:
		return fmt.Errorf("unknown OCR_PROVIDER %q", c.OCRProvider)
	}
	switch c.StorageType {
	case "none", "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required when STORAGE_TYPE=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", c.StorageType)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
