package llm

import (
	"encoding/json"
	"strings"
)

// SystemPrompt fixes the reply contract that answer.ParseReply reads.
const SystemPrompt = `You are a legal assistant. Always respond in valid JSON format with fields:
{
  "summary": "...",
  "explanation": "...",
  "citations": ["..."]
}

Rules:
- Use only educational terminology.
- Be concise and accurate.
- Always include citations if available, else keep it empty.
- Respond with ONLY the JSON object, no other text.`

// Request carries everything the model sees for one query.
type Request struct {
	Query    string
	Entities []string
	RawText  string
	Context  string
}

// BuildUserPrompt renders the human turn of the conversation.
func BuildUserPrompt(req Request) string {
	entities := req.Entities
	if entities == nil {
		entities = []string{}
	}
	ents, _ := json.Marshal(entities)

	var sb strings.Builder
	sb.WriteString("User Query: ")
	sb.WriteString(req.Query)
	sb.WriteString("\n\nDetected References: ")
	sb.Write(ents)
	sb.WriteString("\n\nExtracted Text: ")
	sb.WriteString(req.RawText)
	if strings.TrimSpace(req.Context) != "" {
		sb.WriteString("\n\nRetrieved Context:\n")
		sb.WriteString(req.Context)
	}
	return sb.String()
}
