package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Section is one statute section as stored in the vector table.
type Section struct {
	ID           string
	Act          string
	Chapter      string
	Section      string
	SectionTitle string
	Text         string
	Source       string
	Metadata     map[string]any
	Embedding    []float32
}

// PGStore keeps section embeddings in a pgvector table.
type PGStore struct {
	db         *pgxpool.Pool
	dimensions int
}

func NewPGStore(db *pgxpool.Pool, dimensions int) *PGStore {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &PGStore{db: db, dimensions: dimensions}
}

// EnsureSchema creates the pgvector extension and the legal_sections table.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS legal_sections (
			id            TEXT PRIMARY KEY,
			act           TEXT NOT NULL DEFAULT '',
			chapter       TEXT NOT NULL DEFAULT '',
			section       TEXT NOT NULL DEFAULT '',
			section_title TEXT NOT NULL DEFAULT '',
			text          TEXT NOT NULL DEFAULT '',
			source        TEXT NOT NULL DEFAULT '',
			metadata      JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding     vector(%d) NOT NULL
		)`, s.dimensions),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const upsertSQL = `
	INSERT INTO legal_sections (id, act, chapter, section, section_title, text, source, metadata, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)
	ON CONFLICT (id) DO UPDATE SET
		act = EXCLUDED.act,
		chapter = EXCLUDED.chapter,
		section = EXCLUDED.section,
		section_title = EXCLUDED.section_title,
		text = EXCLUDED.text,
		source = EXCLUDED.source,
		metadata = EXCLUDED.metadata,
		embedding = EXCLUDED.embedding`

// Upsert writes sections in a single batch.
func (s *PGStore) Upsert(ctx context.Context, sections []Section) error {
	batch := &pgx.Batch{}
	for _, sec := range sections {
		if len(sec.Embedding) != s.dimensions {
			return fmt.Errorf("section %s: embedding must be %d dimensions, got %d", sec.ID, s.dimensions, len(sec.Embedding))
		}
		meta, err := json.Marshal(orEmpty(sec.Metadata))
		if err != nil {
			return fmt.Errorf("section %s: marshal metadata: %w", sec.ID, err)
		}
		batch.Queue(upsertSQL, sec.ID, sec.Act, sec.Chapter, sec.Section, sec.SectionTitle,
			sec.Text, sec.Source, meta, formatVector(sec.Embedding))
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()
	for _, sec := range sections {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert section %s: %w", sec.ID, err)
		}
	}
	return nil
}

// Search returns the k nearest sections by cosine distance.
func (s *PGStore) Search(ctx context.Context, embedding []float32, k int) ([]Document, error) {
	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("embedding must be %d dimensions, got %d", s.dimensions, len(embedding))
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, act, chapter, section, section_title, text, source,
			embedding <=> $1::vector AS distance
		FROM legal_sections
		ORDER BY embedding <=> $1::vector
		LIMIT $2`, formatVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			d        Document
			distance float64
		)
		if err := rows.Scan(&d.ID, &d.Metadata.Act, &d.Metadata.Chapter, &d.Metadata.Section,
			&d.Metadata.SectionTitle, &d.Text, &d.Metadata.Source, &distance); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		d.Metadata.ID = d.ID
		d.Metadata.Score = 1 - distance
		if d.Metadata.Source == "" {
			d.Metadata.Source = DefaultSource
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return docs, nil
}

// formatVector renders an embedding in pgvector's text form.
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
