// Package agent runs the query pipeline: route the input, retrieve related
// sections, ask the LLM and assemble a StructuredAnswer.
package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dgallion1/legalens/internal/answer"
	"github.com/dgallion1/legalens/internal/apperr"
	"github.com/dgallion1/legalens/internal/legalref"
	"github.com/dgallion1/legalens/internal/llm"
	"github.com/dgallion1/legalens/internal/retrieve"
	"github.com/dgallion1/legalens/internal/router"
)

// Router is the input classification stage.
type Router interface {
	Route(ctx context.Context, input string) (*router.RoutedInput, error)
	RouteText(ctx context.Context, input string) (*router.RoutedInput, error)
}

// Retriever looks up sections related to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]retrieve.Document, error)
}

type Agent struct {
	router    Router
	llm       llm.Client
	retriever Retriever
	log       *slog.Logger
}

// New builds an Agent. retriever may be nil, in which case the LLM is asked
// without context.
func New(r Router, client llm.Client, retriever Retriever, log *slog.Logger) *Agent {
	if log == nil {
		log = slog.Default()
	}
	return &Agent{router: r, llm: client, retriever: retriever, log: log}
}

// Route exposes the routing stage on its own.
func (a *Agent) Route(ctx context.Context, input string) (*router.RoutedInput, error) {
	return a.router.Route(ctx, input)
}

// Process answers a user query given as text or a local file path. Errors
// are *apperr.Error.
func (a *Agent) Process(ctx context.Context, input string) (*answer.StructuredAnswer, error) {
	routed, err := a.router.Route(ctx, input)
	if err != nil {
		return nil, err
	}
	return a.respond(ctx, routed)
}

// ProcessText answers a query that is always read as literal text. Use it
// for input from remote callers, which must not name server files.
func (a *Agent) ProcessText(ctx context.Context, text string) (*answer.StructuredAnswer, error) {
	routed, err := a.router.RouteText(ctx, text)
	if err != nil {
		return nil, err
	}
	return a.respond(ctx, routed)
}

func (a *Agent) respond(ctx context.Context, routed *router.RoutedInput) (*answer.StructuredAnswer, error) {
	refs := referenceStrings(routed.LegalEntities)
	lawContext := a.lookupContext(ctx, refs, routed.RawText)

	raw, err := a.llm.Answer(ctx, llm.Request{
		Query:    routed.RawText,
		Entities: refs,
		RawText:  routed.RawText,
		Context:  lawContext,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamServiceFailure, err, "llm", "LLM call failed")
	}
	if strings.TrimSpace(raw) == "" {
		return nil, apperr.New(apperr.UpstreamServiceFailure, "LLM returned no answer", "llm")
	}

	var reply answer.LLMAnswer
	var citations []string
	if parsed, ok := answer.ParseReply(raw); ok {
		reply = parsed
		citations = parsed.Citations
	} else {
		a.log.Warn("agent.llm_reply_not_json",
			"kind", apperr.MalformedUpstreamResponse,
			"model", a.llm.Model(),
			"reply_len", len(raw))
		reply = answer.PlainText(raw)
	}
	citations = mergeCitations(citations, retrieve.ExtractCitations(lawContext))

	out := answer.Assemble(routed.RawText, routed.LegalEntities, lawContext, reply, citations)
	a.log.Info("agent.processed",
		"source", routed.Source,
		"type", routed.Type,
		"entities", len(routed.LegalEntities),
		"context_len", len(lawContext),
		"citations", len(out.Citations))
	return &out, nil
}

// lookupContext returns the formatted retrieval context, or "" when retrieval is
// disabled or fails.
func (a *Agent) lookupContext(ctx context.Context, refs []string, rawText string) string {
	if a.retriever == nil {
		return ""
	}
	query := rawText
	if len(refs) > 0 {
		query = strings.Join(refs, ", ")
	}
	docs, err := a.retriever.Retrieve(ctx, query)
	if err != nil {
		a.log.Warn("agent.retrieve_failed", "error", err)
		return ""
	}
	return retrieve.FormatContext(docs)
}

func referenceStrings(refs []legalref.Reference) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Reference)
	}
	return out
}

func mergeCitations(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, list := range lists {
		for _, c := range list {
			c = strings.TrimSpace(c)
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
