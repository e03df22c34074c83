// Package mcptools exposes the router, reference detection and text
// normalisation as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/legalens/internal/answer"
	"github.com/dgallion1/legalens/internal/apperr"
	"github.com/dgallion1/legalens/internal/legalref"
	"github.com/dgallion1/legalens/internal/parser"
	"github.com/dgallion1/legalens/internal/router"
)

// Router routes raw input.
type Router interface {
	Route(ctx context.Context, input string) (*router.RoutedInput, error)
}

// Querier answers a query end to end.
type Querier interface {
	Process(ctx context.Context, input string) (*answer.StructuredAnswer, error)
}

// Deps are the collaborators behind the tools. Querier is optional; without
// it the legal_query tool is not registered.
type Deps struct {
	Router  Router
	Matcher *legalref.Matcher
	Querier Querier
}

// Register adds the tools to srv.
func Register(srv *mcp.Server, d Deps) {
	if d.Matcher == nil {
		d.Matcher = legalref.Default()
	}

	addTool(srv, &mcp.Tool{
		Name:        "input_router",
		Description: "Classify an input (free text or local file path), extract its text and detect legal references.",
		InputSchema: inputSchema("input", "Free text or a path to a .pdf, .docx, .txt, .jpg, .jpeg or .png file"),
	}, "input", func(ctx context.Context, v string) (any, error) {
		return d.Router.Route(ctx, v)
	})

	addTool(srv, &mcp.Tool{
		Name:        "legal_ner",
		Description: "Detect statute, article, rule and order references in text.",
		InputSchema: inputSchema("text", "Text to scan"),
	}, "text", func(_ context.Context, v string) (any, error) {
		return d.Matcher.Match(v), nil
	})

	addTool(srv, &mcp.Tool{
		Name:        "extract_from_text",
		Description: "Normalise free text: Unicode NFKC, strip markup tags, collapse whitespace.",
		InputSchema: inputSchema("text", "Text to normalise"),
	}, "text", func(_ context.Context, v string) (any, error) {
		return parser.Normalize(v), nil
	})

	if d.Querier != nil {
		addTool(srv, &mcp.Tool{
			Name:        "legal_query",
			Description: "Answer a legal question with retrieved sections and citations.",
			InputSchema: inputSchema("query", "The question or a path to a document"),
		}, "query", func(ctx context.Context, v string) (any, error) {
			return d.Querier.Process(ctx, v)
		})
	}
}

func inputSchema(field, description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			field: map[string]any{"type": "string", "description": description},
		},
		"required": []string{field},
	}
}

// addTool registers a tool taking one string argument. Endpoint failures are
// tool errors, not protocol errors.
func addTool(srv *mcp.Server, tool *mcp.Tool, field string, fn func(context.Context, string) (any, error)) {
	name := tool.Name
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return toolError(fmt.Errorf("%s: invalid arguments: %w", name, err)), nil
			}
		}
		v, _ := args[field].(string)

		out, err := fn(ctx, v)
		if err != nil {
			return toolError(err), nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			return toolError(fmt.Errorf("%s: marshal result: %w", name, err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// toolError reports err as a tool error. Classified errors carry the same
// JSON body the HTTP API sends, so kind, source and detail reach the client.
func toolError(err error) *mcp.CallToolResult {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if data, merr := json.Marshal(ae); merr == nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
			}
		}
	}
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}
