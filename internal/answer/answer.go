// Package answer shapes the final response returned to callers of the query
// pipeline and parses LLM replies into it.
package answer

import (
	"strings"

	"github.com/dgallion1/legalens/internal/legalref"
)

// LLMAnswer is the model output handed to Assemble: either PlainText or
// Structured.
type LLMAnswer interface {
	isLLMAnswer()
}

// PlainText is an unstructured model reply.
type PlainText string

// Structured is a model reply that followed the JSON contract.
type Structured struct {
	Summary     string   `json:"summary"`
	Explanation string   `json:"explanation"`
	Citations   []string `json:"citations"`
}

func (PlainText) isLLMAnswer()  {}
func (Structured) isLLMAnswer() {}

// Body is the llm_answer section of a StructuredAnswer. Both fields are
// always present in JSON.
type Body struct {
	Summary     string `json:"summary"`
	Explanation string `json:"explanation"`
}

// StructuredAnswer is the response of the query pipeline.
type StructuredAnswer struct {
	Query         string               `json:"query"`
	LegalEntities []legalref.Reference `json:"legal_entities"`
	Context       string               `json:"context"`
	LLMAnswer     Body                 `json:"llm_answer"`
	Citations     []string             `json:"citations"`
}

// Assemble merges the pipeline outputs. Nil entities and citations become
// empty lists; a nil answer becomes an empty Body.
func Assemble(query string, entities []legalref.Reference, context string, llm LLMAnswer, citations []string) StructuredAnswer {
	if entities == nil {
		entities = []legalref.Reference{}
	}
	if citations == nil {
		citations = []string{}
	}

	var body Body
	switch a := llm.(type) {
	case PlainText:
		body.Summary = strings.TrimSpace(string(a))
	case Structured:
		body = Body{Summary: a.Summary, Explanation: a.Explanation}
	case *Structured:
		if a != nil {
			body = Body{Summary: a.Summary, Explanation: a.Explanation}
		}
	}

	return StructuredAnswer{
		Query:         query,
		LegalEntities: entities,
		Context:       context,
		LLMAnswer:     body,
		Citations:     citations,
	}
}
