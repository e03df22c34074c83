// Package legalref finds statutory references such as "Section 302 IPC",
// "Article 21" and "Order 7 Rule 11 CPC" in free text.
package legalref

import (
	"regexp"
	"strings"
)

// ExtractionMethod identifies the two-pass detection in result metadata.
const ExtractionMethod = "grammar+regex"

// Reference is one detected mention.
type Reference struct {
	Reference string `json:"reference"`
}

// Metadata summarises a match run.
type Metadata struct {
	EntityCount      int    `json:"entity_count"`
	ExtractionMethod string `json:"extraction_method"`
}

// Result is the output of Match.
type Result struct {
	RawText       string      `json:"raw_text"`
	LegalEntities []Reference `json:"legal_entities"`
	Metadata      Metadata    `json:"metadata"`
}

// Strings returns the reference texts in order.
func (r Result) Strings() []string {
	out := make([]string, len(r.LegalEntities))
	for i, e := range r.LegalEntities {
		out[i] = e.Reference
	}
	return out
}

// Vocabulary is the closed set of keywords and act abbreviations the grammar
// pass recognises. Keywords and acts are matched case-sensitively.
type Vocabulary struct {
	SectionKeywords []string
	ArticleKeywords []string
	RuleKeywords    []string
	SectionActs     []string
	RuleActs        []string
}

// DefaultVocabulary covers the common Indian statutes.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		SectionKeywords: []string{"Section", "Sec.", "Sec", "S."},
		ArticleKeywords: []string{"Article", "Art.", "Art"},
		RuleKeywords:    []string{"Rule", "Order"},
		SectionActs:     []string{"IPC", "CrPC", "NI Act", "IT Act", "CPC"},
		RuleActs:        []string{"CPC", "CrPC", "IT Act"},
	}
}

var fallbackRe = regexp.MustCompile(`(?i)(?:Sec\.?|Section|Art\.?|Article|Rule|Order)\s?\d+[A-Z]?`)

var (
	suffixRe  = regexp.MustCompile(`^[A-Z]$`)
	subRuleRe = regexp.MustCompile(`^(?:Rule)?\d+[A-Z]?$`)
	ruleNumRe = regexp.MustCompile(`^\d+[A-Z]?$`)
)

// element consumes tokens at position i and returns how many matched.
type element func(toks []token, i int) int

type pattern struct {
	keywords map[string]bool
	optional []element
}

// Matcher runs the grammar pass followed by the regex fallback. It holds no
// mutable state and is safe for concurrent use.
type Matcher struct {
	patterns []pattern
	abbrevs  map[string]bool
}

// New builds a Matcher from vocab.
func New(vocab Vocabulary) *Matcher {
	m := &Matcher{abbrevs: map[string]bool{}}
	for _, kws := range [][]string{vocab.SectionKeywords, vocab.ArticleKeywords, vocab.RuleKeywords} {
		for _, k := range kws {
			if strings.HasSuffix(k, ".") {
				m.abbrevs[k] = true
			}
		}
	}
	m.patterns = []pattern{
		{keywords: set(vocab.SectionKeywords), optional: []element{matchRe(suffixRe), matchActs(vocab.SectionActs)}},
		{keywords: set(vocab.ArticleKeywords)},
		{keywords: set(vocab.RuleKeywords), optional: []element{matchSubRule, matchActs(vocab.RuleActs)}},
	}
	return m
}

// Default returns a Matcher over DefaultVocabulary.
func Default() *Matcher {
	return New(DefaultVocabulary())
}

// Match detects references in text. Results are trimmed, non-empty and
// deduplicated by exact string equality, in first-seen order.
func (m *Matcher) Match(text string) Result {
	res := Result{
		RawText:       strings.TrimSpace(text),
		LegalEntities: []Reference{},
		Metadata:      Metadata{ExtractionMethod: ExtractionMethod},
	}
	if res.RawText == "" {
		return res
	}

	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		res.LegalEntities = append(res.LegalEntities, Reference{Reference: s})
	}

	for _, span := range m.grammarSpans(text) {
		add(span)
	}
	for _, span := range fallbackRe.FindAllString(text, -1) {
		add(span)
	}

	res.Metadata.EntityCount = len(res.LegalEntities)
	return res
}

// grammarSpans emits every match of every pattern, including the shorter
// spans obtained by leaving out optional elements.
func (m *Matcher) grammarSpans(text string) []string {
	toks := tokenize(text, m.abbrevs)
	var spans []string
	for i := 0; i+1 < len(toks); i++ {
		for _, p := range m.patterns {
			if !p.keywords[toks[i].text] || !isDigits(toks[i+1].text) {
				continue
			}
			ends := []int{i + 2}
			for _, el := range p.optional {
				next := append([]int(nil), ends...)
				for _, e := range ends {
					if n := el(toks, e); n > 0 {
						next = appendUnique(next, e+n)
					}
				}
				ends = next
			}
			for _, e := range ends {
				spans = append(spans, text[toks[i].start:toks[e-1].end])
			}
		}
	}
	return spans
}

func matchRe(re *regexp.Regexp) element {
	return func(toks []token, i int) int {
		if i < len(toks) && re.MatchString(toks[i].text) {
			return 1
		}
		return 0
	}
}

// matchSubRule accepts "Rule 11", "Rule 11A", "Rule11" or a bare "11".
func matchSubRule(toks []token, i int) int {
	if i >= len(toks) {
		return 0
	}
	if toks[i].text == "Rule" && i+1 < len(toks) && ruleNumRe.MatchString(toks[i+1].text) {
		return 2
	}
	if subRuleRe.MatchString(toks[i].text) {
		return 1
	}
	return 0
}

// matchActs accepts any act phrase, either as its words in consecutive
// tokens or written without spaces in a single token ("NIAct").
func matchActs(acts []string) element {
	phrases := make([][]string, 0, len(acts))
	for _, a := range acts {
		if words := strings.Fields(a); len(words) > 0 {
			phrases = append(phrases, words)
		}
	}
	return func(toks []token, i int) int {
		best := 0
		for _, words := range phrases {
			if i < len(toks) && toks[i].text == strings.Join(words, "") {
				best = max(best, 1)
			}
			if i+len(words) > len(toks) {
				continue
			}
			ok := true
			for k, w := range words {
				if toks[i+k].text != w {
					ok = false
					break
				}
			}
			if ok {
				best = max(best, len(words))
			}
		}
		return best
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func set(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

func appendUnique(xs []int, v int) []int {
	for _, x := range xs {
		if x == v {
			return xs
		}
	}
	return append(xs, v)
}
