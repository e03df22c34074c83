// Package router classifies a raw input string (free text, a file path or a
// URL), sends it to the right extractor and runs reference detection over
// whatever text comes back.
package router

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/legalens/internal/apperr"
	"github.com/dgallion1/legalens/internal/legalref"
	"github.com/dgallion1/legalens/internal/parser"
)

// InputType is the detected kind of input.
type InputType string

const (
	TypeText  InputType = "text"
	TypePDF   InputType = "pdf"
	TypeImage InputType = "image"
	TypeDOCX  InputType = "docx"
	TypeTXT   InputType = "txt"
)

// SupportedExtensions lists the file extensions Route dispatches on.
var SupportedExtensions = map[string]InputType{
	".pdf":  TypePDF,
	".jpg":  TypeImage,
	".jpeg": TypeImage,
	".png":  TypeImage,
	".docx": TypeDOCX,
	".txt":  TypeTXT,
}

// IsSupportedExtension reports whether filename has a routable extension.
func IsSupportedExtension(filename string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// RoutedInput is the successful outcome of Route.
type RoutedInput struct {
	Source        string               `json:"source"`
	Type          InputType            `json:"type"`
	RawText       string               `json:"raw_text"`
	LegalEntities []legalref.Reference `json:"legal_entities"`
	Metadata      legalref.Metadata    `json:"metadata"`
}

// Extractors are the format extractors the router dispatches to.
type Extractors struct {
	PDF   parser.Extractor
	Image parser.Extractor
	DOCX  parser.Extractor
}

// Router is stateless apart from its injected collaborators.
type Router struct {
	ex      Extractors
	matcher *legalref.Matcher
	log     *slog.Logger
}

func New(ex Extractors, m *legalref.Matcher, log *slog.Logger) *Router {
	if m == nil {
		m = legalref.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Router{ex: ex, matcher: m, log: log}
}

const unsupported = "Unsupported or empty input type"

// Route classifies input and returns extracted text with detected references.
// An input that names an existing file is always treated as a file, even if
// it starts with "http". Errors are *apperr.Error.
func (r *Router) Route(ctx context.Context, input string) (*RoutedInput, error) {
	if input == "" {
		return nil, apperr.New(apperr.MissingInput, "No input provided", "")
	}

	exists := fileExists(input)
	var (
		res       parser.Result
		inputType InputType
	)
	switch {
	case !exists && !looksLikeURL(input):
		inputType = TypeText
		res = parser.Normalize(input)
	case exists:
		inputType, res = r.extractFile(ctx, input)
	default:
		return nil, apperr.New(apperr.UnsupportedSource, "URL input not yet supported", input)
	}
	return r.finish(input, inputType, res)
}

// RouteText treats input as literal text and never touches the filesystem,
// even when input names an existing file. URL-shaped input is still
// rejected.
func (r *Router) RouteText(ctx context.Context, input string) (*RoutedInput, error) {
	if input == "" {
		return nil, apperr.New(apperr.MissingInput, "No input provided", "")
	}
	if looksLikeURL(input) {
		return nil, apperr.New(apperr.UnsupportedSource, "URL input not yet supported", input)
	}
	return r.finish(input, TypeText, parser.Normalize(input))
}

func (r *Router) finish(input string, inputType InputType, res parser.Result) (*RoutedInput, error) {
	if !res.OK() {
		kind := res.Kind
		if kind == "" {
			kind = apperr.UnsupportedType
		}
		r.log.Info("route.no_text", "input_type", inputType, "kind", kind, "detail", res.Text)
		return nil, &apperr.Error{Kind: kind, Message: unsupported, Source: input, Detail: res.Text}
	}

	m := r.matcher.Match(res.Text)
	return &RoutedInput{
		Source:        input,
		Type:          inputType,
		RawText:       m.RawText,
		LegalEntities: m.LegalEntities,
		Metadata:      m.Metadata,
	}, nil
}

func (r *Router) extractFile(ctx context.Context, path string) (InputType, parser.Result) {
	ext := strings.ToLower(filepath.Ext(path))
	inputType, ok := SupportedExtensions[ext]
	if !ok {
		return "", parser.Result{Status: parser.StatusError, Kind: apperr.UnsupportedType,
			Text: "unsupported file extension: " + ext}
	}

	var ex parser.Extractor
	switch inputType {
	case TypePDF:
		ex = r.ex.PDF
	case TypeImage:
		ex = r.ex.Image
	case TypeDOCX:
		ex = r.ex.DOCX
	case TypeTXT:
		data, err := os.ReadFile(path)
		if err != nil {
			return inputType, parser.Result{Status: parser.StatusError, Source: parser.SourceText,
				Kind: apperr.ExtractionFailed, Text: "read text file: " + err.Error()}
		}
		return inputType, parser.Normalize(string(data))
	}
	if ex == nil {
		return inputType, parser.Result{Status: parser.StatusError, Kind: apperr.ExtractionFailed,
			Text: "no extractor configured for " + string(inputType)}
	}
	return inputType, ex.Extract(ctx, path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func looksLikeURL(s string) bool {
	return len(s) >= 4 && strings.EqualFold(s[:4], "http")
}
