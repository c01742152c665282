// Package rag implements the retrieval side of the assistant: a
// dual-collection vector index (course catalog + content chunks), the
// embedding interface, and the Searcher that turns free-text queries into
// filtered similarity lookups with fuzzy course-name resolution.
package rag

import (
	"context"
	"errors"

	"github.com/courseai/courseai-go/internal/course"
)

// ErrCourseNotFound is returned when fuzzy course-name resolution finds no
// catalog entry above the similarity threshold. It is not a service failure;
// the search tool converts it into a message the LLM can relay.
var ErrCourseNotFound = errors.New("rag: no matching course")

// Match is a single content-search hit.
type Match struct {
	// Content is the stored chunk text.
	Content string

	// CourseTitle is the owning course's title.
	CourseTitle string

	// LessonNumber is the owning lesson number; nil for unattributed content.
	LessonNumber *int

	// ChunkIndex is the chunk's position within its course. Used as the
	// stable tie-break when scores are equal.
	ChunkIndex int

	// LessonLink is the owning lesson's URL, if any.
	LessonLink string

	// Score is the cosine similarity of this chunk to the query.
	Score float32
}

// Filter restricts a content search. Zero-value fields are unrestricted;
// set fields combine with AND semantics.
type Filter struct {
	// CourseTitle restricts hits to a single course. Must be a canonical
	// title, i.e. the output of name resolution, not raw user input.
	CourseTitle string

	// LessonNumber restricts hits to a single lesson.
	LessonNumber *int
}

// Outline is the catalog view of one course: enough to present its
// structure without touching the content collection.
type Outline struct {
	// Title is the canonical course title.
	Title string

	// Link is the course URL, if any.
	Link string

	// Instructor is the course instructor, if any.
	Instructor string

	// Lessons is the ordered lesson list as stored at ingestion time.
	Lessons []course.Lesson
}

// VectorIndex persists the two collections and answers similarity queries.
// Implementations must be safe for concurrent reads; writes happen only
// during ingestion, before queries are served.
type VectorIndex interface {
	// UpsertCourse writes (or overwrites) the catalog entry for crs,
	// embedding its title with titleVec.
	UpsertCourse(ctx context.Context, crs course.Course, titleVec []float32) error

	// UpsertChunks writes a batch of content chunks. vecs must be parallel
	// to chunks. Re-upserting an existing chunk id overwrites it.
	UpsertChunks(ctx context.Context, chunks []course.Chunk, vecs [][]float32) error

	// ExistingTitles returns the set of course titles already in the catalog,
	// used by ingestion to decide skip-vs-index per file.
	ExistingTitles(ctx context.Context) (map[string]bool, error)

	// ResolveCourseName runs a top-1 similarity lookup of queryVec against
	// the catalog and returns (title, score) for the best entry.
	// ok is false when the catalog is empty.
	ResolveCourseName(ctx context.Context, queryVec []float32) (title string, score float32, ok bool, err error)

	// Search returns up to limit content chunks nearest to queryVec that
	// satisfy f, ordered by descending similarity.
	Search(ctx context.Context, queryVec []float32, f Filter, limit int) ([]Match, error)

	// CourseOutline returns the catalog entry for an exact canonical title.
	CourseOutline(ctx context.Context, title string) (Outline, error)

	// CourseTitles returns all catalog titles.
	CourseTitles(ctx context.Context) ([]string, error)

	// Close releases the underlying connection.
	Close() error
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their embeddings.
	// The returned slice is parallel to the input.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
