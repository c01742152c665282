// Package ingestion implements the course document ingestion pipeline.
// It reads script files from a directory, parses each into a Course plus
// content chunks, embeds the chunks, and upserts the results into both
// vector collections. Ingestion runs once, sequentially, before the server
// starts answering queries.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/courseai/courseai-go/internal/course"
	"github.com/courseai/courseai-go/internal/rag"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per content chunk.
	// Defaults to 800 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters carried between consecutive
	// chunks. Defaults to 100 if zero.
	ChunkOverlap int

	// EmbedBatchSize is the number of chunk texts sent to the embedder per
	// request. Defaults to 64 if zero.
	EmbedBatchSize int
}

// Stats summarises one ingestion run.
type Stats struct {
	// CoursesAdded is the number of new courses fully indexed.
	CoursesAdded int

	// ChunksAdded is the number of content chunks written.
	ChunksAdded int

	// Skipped is the number of files skipped because their course title was
	// already indexed.
	Skipped int

	// Failed is the number of files rejected (unreadable or bad header).
	Failed int
}

// Pipeline orchestrates the parse → skip-check → embed → upsert flow for a
// directory of course documents.
type Pipeline struct {
	embedder rag.Embedder
	index    rag.VectorIndex
	cfg      *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, index rag.VectorIndex, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 800
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 100
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 64
	}

	return &Pipeline{embedder: embedder, index: index, cfg: cfg}, nil
}

// IngestDir ingests every course document under dir (non-recursive,
// lexicographic order). Failures are file-scoped: a document that cannot be
// read or parsed is logged and skipped, and the rest of the batch continues.
// Documents whose course title is already indexed are skipped so repeated
// runs are idempotent.
func (p *Pipeline) IngestDir(ctx context.Context, dir string, log *slog.Logger) (Stats, error) {
	var stats Stats

	entries, err := os.ReadDir(dir)
	if err != nil {
		return stats, fmt.Errorf("ingestion: read dir %s: %w", dir, err)
	}

	existing, err := p.index.ExistingTitles(ctx)
	if err != nil {
		return stats, fmt.Errorf("ingestion: list existing titles: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isCourseFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := p.ingestFile(ctx, path, existing, &stats, log); err != nil {
			return stats, err
		}
	}

	log.Info("ingestion complete",
		slog.Int("courses_added", stats.CoursesAdded),
		slog.Int("chunks_added", stats.ChunksAdded),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

// ingestFile processes a single document. Parse and read failures are
// recorded in stats and logged but do not return an error; index and
// embedder failures abort the run — they indicate a broken dependency, not a
// bad file.
func (p *Pipeline) ingestFile(ctx context.Context, path string, existing map[string]bool, stats *Stats, log *slog.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		stats.Failed++
		log.Warn("ingestion: unreadable file, skipping", slog.String("path", path), slog.Any("error", err))
		return nil
	}

	crs, chunks, err := course.Parse(string(raw), course.ParseConfig{
		ChunkSize:    p.cfg.ChunkSize,
		ChunkOverlap: p.cfg.ChunkOverlap,
	})
	if err != nil {
		stats.Failed++
		log.Warn("ingestion: rejected file", slog.String("path", path), slog.Any("error", err))
		return nil
	}

	if existing[crs.Title] {
		stats.Skipped++
		log.Info("ingestion: course already indexed, skipping",
			slog.String("path", path),
			slog.String("title", crs.Title),
		)
		return nil
	}

	vecs, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("ingestion: embed %s: %w", path, err)
	}

	titleVecs, err := p.embedder.Embed(ctx, []string{crs.Title})
	if err != nil || len(titleVecs) == 0 {
		return fmt.Errorf("ingestion: embed title for %s: %w", path, err)
	}

	// Catalog entry first: a title present in the catalog with missing
	// chunks is visible and debuggable, the reverse is orphaned data.
	if err := p.index.UpsertCourse(ctx, crs, titleVecs[0]); err != nil {
		return fmt.Errorf("ingestion: upsert course %q: %w", crs.Title, err)
	}
	if err := p.index.UpsertChunks(ctx, chunks, vecs); err != nil {
		return fmt.Errorf("ingestion: upsert chunks for %q: %w", crs.Title, err)
	}

	existing[crs.Title] = true
	stats.CoursesAdded++
	stats.ChunksAdded += len(chunks)
	log.Info("ingestion: indexed course",
		slog.String("title", crs.Title),
		slog.Int("lessons", len(crs.Lessons)),
		slog.Int("chunks", len(chunks)),
	)
	return nil
}

// embedChunks embeds chunk contents in batches to stay within backend
// request limits.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []course.Chunk) ([][]float32, error) {
	vecs := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.cfg.EmbedBatchSize {
		end := start + p.cfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}
		batch, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), len(texts))
		}
		vecs = append(vecs, batch...)
	}
	return vecs, nil
}

// isCourseFile reports whether a directory entry looks like a course script.
func isCourseFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".txt" || ext == ".md"
}
