package answer

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*(.*?)\\s*```$")

// stripCodeBlock removes a surrounding markdown code fence.
func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// ParseReply reads an LLM reply that should be a JSON object with summary,
// explanation and citations. Anything else degrades to a Structured whose
// Summary is the whole trimmed reply; ok is false in that case.
func ParseReply(raw string) (answer Structured, ok bool) {
	content := strings.TrimSpace(raw)
	var obj map[string]any
	if err := json.Unmarshal([]byte(stripCodeBlock(content)), &obj); err != nil || obj == nil {
		return Structured{Summary: content, Citations: []string{}}, false
	}

	answer = Structured{
		Summary:     stringField(obj, "summary"),
		Explanation: stringField(obj, "explanation"),
		Citations:   []string{},
	}
	if list, isList := obj["citations"].([]any); isList {
		for _, c := range list {
			if s, isStr := c.(string); isStr && strings.TrimSpace(s) != "" {
				answer.Citations = append(answer.Citations, strings.TrimSpace(s))
			}
		}
	}
	return answer, true
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
