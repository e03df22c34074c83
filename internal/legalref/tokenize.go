package legalref

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type token struct {
	text       string
	start, end int
}

const (
	openPunct  = "(\"'[{“‘«"
	closePunct = ",;:!?)\"'”’]}»"
)

// tokenize splits on whitespace, then peels leading and trailing punctuation
// into their own tokens. A trailing period stays attached only for the
// dotted keywords in abbrevs ("Sec.", "S.", "Art.").
func tokenize(s string, abbrevs map[string]bool) []token {
	var toks []token
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		j := i
		for j < len(s) {
			r, size := utf8.DecodeRuneInString(s[j:])
			if unicode.IsSpace(r) {
				break
			}
			j += size
		}
		toks = append(toks, splitChunk(s, i, j, abbrevs)...)
		i = j
	}
	return toks
}

func splitChunk(s string, start, end int, abbrevs map[string]bool) []token {
	var head, tail []token
	for start < end {
		r, size := utf8.DecodeRuneInString(s[start:end])
		if !strings.ContainsRune(openPunct, r) {
			break
		}
		head = append(head, token{text: s[start : start+size], start: start, end: start + size})
		start += size
	}
	for start < end {
		r, size := utf8.DecodeLastRuneInString(s[start:end])
		if r == '.' && abbrevs[s[start:end]] {
			break
		}
		if r != '.' && !strings.ContainsRune(closePunct, r) {
			break
		}
		tail = append(tail, token{text: s[end-size : end], start: end - size, end: end})
		end -= size
	}
	if start < end {
		head = append(head, token{text: s[start:end], start: start, end: end})
	}
	for k := len(tail) - 1; k >= 0; k-- {
		head = append(head, tail[k])
	}
	return head
}
