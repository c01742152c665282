// Package course defines the course document model and implements the
// parser and chunker that turn a raw script file into a Course record plus
// an ordered sequence of content chunks ready for embedding.
package course

import "fmt"

// Course is the top-level record built from a single source document.
// Title is the globally unique identity key used across both vector
// collections; a document is either fully indexed under its title or skipped.
type Course struct {
	// Title is the course name. Mandatory, unique across the corpus.
	Title string

	// Link is the optional course URL.
	Link string

	// Instructor is the optional instructor name.
	Instructor string

	// Lessons is the ordered list of lessons found in the document.
	Lessons []Lesson
}

// Lesson is a numbered section within a course. Lessons are owned by their
// Course and have no independent lifecycle.
type Lesson struct {
	// Number is the lesson number as written in the document. Non-negative,
	// unique within a course, not necessarily contiguous.
	Number int `json:"number"`

	// Title is the lesson title.
	Title string `json:"title"`

	// Link is the optional lesson URL.
	Link string `json:"link,omitempty"`
}

// Chunk is the atomic unit of stored and retrieved content.
type Chunk struct {
	// Content is the chunk text, including the prepended context label.
	Content string

	// CourseTitle is the owning course's title.
	CourseTitle string

	// LessonNumber is the owning lesson's number, or nil for content that
	// belongs to no numbered lesson.
	LessonNumber *int

	// ChunkIndex is the position of this chunk within its course,
	// strictly increasing from 0 with no gaps.
	ChunkIndex int

	// LessonLink is a denormalized copy of the owning lesson's link so
	// results can be presented without a catalog lookup.
	LessonLink string
}

// ID returns the deterministic composite identifier for this chunk.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s#%d", c.CourseTitle, c.ChunkIndex)
}

// Source identifies where a piece of an answer came from. Produced by the
// search tool, deduplicated by (Label, URL), and surfaced to the client
// alongside the final answer.
type Source struct {
	// Label is the human-readable reference, e.g. "MCP Basics — Lesson 2".
	Label string `json:"label"`

	// URL is the lesson link, if the owning lesson had one.
	URL string `json:"url,omitempty"`
}
