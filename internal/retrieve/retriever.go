// Package retrieve finds statute sections related to a query by embedding
// similarity and turns them into prompt context and citations.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// DefaultSource tags sections whose origin was not recorded.
const DefaultSource = "Vector DB"

// DocMetadata describes where a retrieved passage comes from.
type DocMetadata struct {
	ID           string  `json:"id"`
	Score        float64 `json:"score"`
	Act          string  `json:"act,omitempty"`
	Chapter      string  `json:"chapter,omitempty"`
	Section      string  `json:"section,omitempty"`
	SectionTitle string  `json:"section_title,omitempty"`
	Source       string  `json:"source"`
}

// Document is one retrieved passage.
type Document struct {
	ID       string      `json:"id"`
	Text     string      `json:"text"`
	Metadata DocMetadata `json:"metadata"`
}

// Searcher runs a nearest-neighbour query.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, k int) ([]Document, error)
}

// Retriever embeds queries and looks up the nearest sections.
type Retriever struct {
	embed  QueryEmbedder
	search Searcher
	k      int
	log    *slog.Logger
}

func NewRetriever(embed QueryEmbedder, search Searcher, k int, log *slog.Logger) *Retriever {
	if k <= 0 {
		k = 3
	}
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{embed: embed, search: search, k: k, log: log}
}

// Retrieve returns up to k documents for query.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	vec, err := r.embed.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	docs, err := r.search.Search(ctx, vec, r.k)
	if err != nil {
		return nil, err
	}
	r.log.Debug("retrieve.done", "query_len", len(query), "docs", len(docs))
	return docs, nil
}

// FormatContext renders documents as prompt context blocks separated by
// blank lines.
func FormatContext(docs []Document) string {
	blocks := make([]string, 0, len(docs))
	for _, d := range docs {
		var sb strings.Builder
		if d.Metadata.Act != "" {
			fmt.Fprintf(&sb, "Act: %s\n", d.Metadata.Act)
		}
		if d.Metadata.Chapter != "" {
			fmt.Fprintf(&sb, "Chapter: %s\n", d.Metadata.Chapter)
		}
		if d.Metadata.Section != "" {
			fmt.Fprintf(&sb, "Section %s", d.Metadata.Section)
			if d.Metadata.SectionTitle != "" {
				fmt.Fprintf(&sb, " - %s", d.Metadata.SectionTitle)
			}
			sb.WriteString("\n")
		}
		sb.WriteString(strings.TrimSpace(d.Text))
		if block := strings.TrimSpace(sb.String()); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

var citationRe = regexp.MustCompile(`(?i)(?:Article\s?\d+[A-Z]?|Art\.?\s?\d+[A-Z]?|Section\s?\d+[A-Z]?|Sec\.?\s?\d+[A-Z]?)`)

// ExtractCitations lists the article and section mentions in text, trimmed
// and deduplicated in first-seen order.
func ExtractCitations(text string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, m := range citationRe.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
