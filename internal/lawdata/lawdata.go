// Package lawdata loads the statute corpus, builds its embedding file and
// loads that file into the vector store.
package lawdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/legalens/internal/retrieve"
)

// Law is one statute record as it appears in the corpus files. Field names
// vary between sources, so it is kept as a generic object.
type Law map[string]any

// Str returns field key as a string. Numbers are formatted without a
// trailing ".0"; missing or null fields are "".
func (l Law) Str(key string) string {
	switch v := l[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func (l Law) first(keys ...string) string {
	for _, k := range keys {
		if _, ok := l[k]; ok {
			return l.Str(k)
		}
	}
	return ""
}

// Title is "title", falling back to "section_title".
func (l Law) Title() string { return l.first("title", "section_title") }

// Description is "description", falling back to "section_desc".
func (l Law) Description() string { return l.first("description", "section_desc") }

// LoadLaws reads every *.json file in dir, each holding a top-level JSON
// array, and concatenates their records in file-name order.
func LoadLaws(dir string) ([]Law, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%s not found: %w", dir, err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Strings(files)

	var all []Law
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(f), err)
		}
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(f), err)
		}
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%s does not contain a JSON list at top level", filepath.Base(f))
		}
		for i, it := range items {
			obj, ok := it.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: record %d is not an object", filepath.Base(f), i)
			}
			all = append(all, Law(obj))
		}
	}
	return all, nil
}

// RecordText is the passage embedded for a law record.
func RecordText(l Law) string {
	var parts []string
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	add(l.Str("act"))
	if _, ok := l["chapter"]; ok {
		add(fmt.Sprintf("Chapter %s - %s", l.Str("chapter"), l.Str("chapter_title")))
	}
	add(fmt.Sprintf("Section %s: %s", l.Str("section"), l.Title()))
	add(l.Description())
	return strings.TrimSpace(strings.Join(parts, " "))
}

// ToSection maps an embedded record onto the vector table row.
func ToSection(rec EmbeddingRecord) retrieve.Section {
	l := rec.Metadata
	src := l.Str("source")
	if src == "" {
		src = retrieve.DefaultSource
	}
	return retrieve.Section{
		ID:           rec.ID,
		Act:          l.Str("act"),
		Chapter:      l.Str("chapter"),
		Section:      l.first("section", "Section"),
		SectionTitle: l.Title(),
		Text:         l.Description(),
		Source:       src,
		Metadata:     map[string]any(l),
		Embedding:    rec.Embedding,
	}
}
