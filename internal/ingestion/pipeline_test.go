package ingestion

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/courseai/courseai-go/internal/course"
	"github.com/courseai/courseai-go/internal/rag"
)

// fakeEmbedder returns fixed-size vectors without a backend.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 2, 3}
	}
	return vecs, nil
}

// memIndex is an in-memory VectorIndex capturing writes.
type memIndex struct {
	courses map[string]course.Course
	chunks  map[string]course.Chunk
}

func newMemIndex() *memIndex {
	return &memIndex{
		courses: map[string]course.Course{},
		chunks:  map[string]course.Chunk{},
	}
}

func (m *memIndex) UpsertCourse(_ context.Context, crs course.Course, _ []float32) error {
	m.courses[crs.Title] = crs
	return nil
}

func (m *memIndex) UpsertChunks(_ context.Context, chunks []course.Chunk, _ [][]float32) error {
	for _, c := range chunks {
		m.chunks[c.ID()] = c
	}
	return nil
}

func (m *memIndex) ExistingTitles(context.Context) (map[string]bool, error) {
	titles := make(map[string]bool, len(m.courses))
	for t := range m.courses {
		titles[t] = true
	}
	return titles, nil
}

func (m *memIndex) ResolveCourseName(context.Context, []float32) (string, float32, bool, error) {
	return "", 0, false, nil
}

func (m *memIndex) Search(context.Context, []float32, rag.Filter, int) ([]rag.Match, error) {
	return nil, nil
}

func (m *memIndex) CourseOutline(context.Context, string) (rag.Outline, error) {
	return rag.Outline{}, nil
}

func (m *memIndex) CourseTitles(context.Context) ([]string, error) { return nil, nil }
func (m *memIndex) Close() error                                   { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const validDoc = `Course Title: Intro to X
Course Link: https://example.com/x
Course Instructor: Pat

Lesson 0: Basics
Lesson Link: https://example.com/x/0
First lesson body. It has a couple of sentences.

Lesson 1: More
Second lesson body. Also a couple of sentences.
`

func newTestPipeline(t *testing.T, idx rag.VectorIndex) *Pipeline {
	t.Helper()
	p, err := NewPipeline(fakeEmbedder{}, idx, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func Test_IngestDir_IndexesCourses(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeDoc(t, dir, "x.txt", validDoc)

	idx := newMemIndex()
	stats, err := newTestPipeline(t, idx).IngestDir(context.Background(), dir, discardLogger())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if stats.CoursesAdded != 1 {
		t.Errorf("courses added = %d, want 1", stats.CoursesAdded)
	}
	if len(idx.courses) != 1 {
		t.Errorf("stored courses = %d", len(idx.courses))
	}
	if stats.ChunksAdded != len(idx.chunks) || stats.ChunksAdded == 0 {
		t.Errorf("chunks added = %d, stored = %d", stats.ChunksAdded, len(idx.chunks))
	}
}

func Test_IngestDir_Idempotent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeDoc(t, dir, "x.txt", validDoc)

	idx := newMemIndex()
	p := newTestPipeline(t, idx)

	if _, err := p.IngestDir(context.Background(), dir, discardLogger()); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	firstChunks := len(idx.chunks)

	stats, err := p.IngestDir(context.Background(), dir, discardLogger())
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if stats.CoursesAdded != 0 || stats.Skipped != 1 {
		t.Errorf("second run stats = %+v, want skip", stats)
	}
	if len(idx.chunks) != firstChunks {
		t.Errorf("chunk count changed on re-ingestion: %d -> %d", firstChunks, len(idx.chunks))
	}
}

func Test_IngestDir_BadFileDoesNotAbortBatch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeDoc(t, dir, "a-broken.txt", "no header at all, just text")
	writeDoc(t, dir, "b-good.txt", validDoc)

	idx := newMemIndex()
	stats, err := newTestPipeline(t, idx).IngestDir(context.Background(), dir, discardLogger())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("failed = %d, want 1", stats.Failed)
	}
	if stats.CoursesAdded != 1 {
		t.Errorf("courses added = %d, want 1 (good file must still be indexed)", stats.CoursesAdded)
	}
}

func Test_IngestDir_IgnoresNonDocumentFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeDoc(t, dir, "notes.json", `{"not": "a course"}`)
	writeDoc(t, dir, ".hidden.txt", validDoc)

	stats, err := newTestPipeline(t, newMemIndex()).IngestDir(context.Background(), dir, discardLogger())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if stats.CoursesAdded != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want untouched", stats)
	}
}
