package lawdata

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/legalens/internal/retrieve"
)

// EmbeddingRecord is one line of the embeddings JSONL file.
type EmbeddingRecord struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	Metadata  Law       `json:"metadata"`
}

// BuildOptions controls BuildJSONL.
type BuildOptions struct {
	BatchSize int
	Log       *slog.Logger
}

// BuildJSONL embeds laws in batches and appends one record per line to
// out. Complete lines already present are counted and that many records
// are skipped, so an interrupted run resumes where it stopped. A partial
// trailing line left by a crash mid-write is cut off first. It returns the
// number of records written by this call.
func BuildJSONL(ctx context.Context, emb retrieve.DocumentEmbedder, laws []Law, out string, opts BuildOptions) (int, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 16
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	done, cut, err := completeLines(out)
	if err != nil {
		return 0, err
	}
	if cut > 0 {
		log.Warn("embed.truncated_partial_line", "path", out, "bytes", cut)
	}
	if done > 0 {
		log.Info("embed.resume", "already_written", done)
	}
	log.Info("embed.start", "total", len(laws), "remaining", max(len(laws)-done, 0), "batch_size", opts.BatchSize)

	f, err := os.OpenFile(out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", out, err)
	}
	defer f.Close()

	written := 0
	for start := done; start < len(laws); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(laws))
		batch := laws[start:end]

		texts := make([]string, len(batch))
		for i, l := range batch {
			texts[i] = RecordText(l)
		}
		log.Info("embed.batch", "from", start, "to", end-1)
		vecs, err := emb.EmbedDocuments(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("embed records %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != len(batch) {
			return written, fmt.Errorf("embed records %d-%d: got %d embeddings", start, end-1, len(vecs))
		}

		for i, vec := range vecs {
			id := batch[i].Str("id")
			if id == "" {
				id = fmt.Sprintf("rec_%d", start+i)
			}
			line, err := json.Marshal(EmbeddingRecord{ID: id, Embedding: vec, Metadata: batch[i]})
			if err != nil {
				return written, fmt.Errorf("marshal record %s: %w", id, err)
			}
			if _, err := f.Write(append(line, '\n')); err != nil {
				return written, fmt.Errorf("write record %s: %w", id, err)
			}
			if err := f.Sync(); err != nil {
				return written, fmt.Errorf("sync %s: %w", out, err)
			}
			written++
		}
	}
	log.Info("embed.done", "path", out, "written", written)
	return written, nil
}

// ReadJSONL decodes an embeddings file.
func ReadJSONL(path string) ([]EmbeddingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var recs []EmbeddingRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for n := 1; sc.Scan(); n++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec EmbeddingRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, n, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recs, nil
}

// SectionWriter persists sections; *retrieve.PGStore satisfies it.
type SectionWriter interface {
	Upsert(ctx context.Context, sections []retrieve.Section) error
}

// LoadIntoStore upserts records in chunks of batchSize.
func LoadIntoStore(ctx context.Context, w SectionWriter, recs []EmbeddingRecord, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	for start := 0; start < len(recs); start += batchSize {
		end := min(start+batchSize, len(recs))
		sections := make([]retrieve.Section, 0, end-start)
		for _, r := range recs[start:end] {
			sections = append(sections, ToSection(r))
		}
		if err := w.Upsert(ctx, sections); err != nil {
			return err
		}
	}
	return nil
}

// completeLines counts newline-terminated lines in path and truncates any
// bytes after the last newline. It returns the count and the number of
// bytes removed. A missing file has zero lines.
func completeLines(path string) (int, int64, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var (
		n     int
		size  int64
		keep  int64
		chunk = make([]byte, 64*1024)
	)
	for {
		m, rerr := f.Read(chunk)
		for i, b := range chunk[:m] {
			if b == '\n' {
				n++
				keep = size + int64(i) + 1
			}
		}
		size += int64(m)
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return 0, 0, fmt.Errorf("count lines in %s: %w", path, rerr)
		}
	}

	if size == keep {
		return n, 0, nil
	}
	if err := os.Truncate(path, keep); err != nil {
		return 0, 0, fmt.Errorf("truncate partial line in %s: %w", path, err)
	}
	return n, size - keep, nil
}
