package course

import (
	"errors"
	"strings"
	"testing"
)

const twoLessonDoc = `Course Title: Intro to X
Course Link: https://example.com/intro-x
Course Instructor: Ada Lovelace

Lesson 0: Getting Started
Lesson Link: https://example.com/intro-x/lesson-0
Welcome to the course. This lesson covers the basics. We will look at the
core ideas first. Then we move on to practice.

Lesson 1: Going Deeper
Lesson Link: https://example.com/intro-x/lesson-1
This lesson builds on the first. It introduces advanced material. Expect
more depth here.
`

func Test_Parse_Header(t *testing.T) {
	t.Parallel()

	crs, _, err := Parse(twoLessonDoc, ParseConfig{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if crs.Title != "Intro to X" {
		t.Errorf("title = %q, want %q", crs.Title, "Intro to X")
	}
	if crs.Link != "https://example.com/intro-x" {
		t.Errorf("link = %q", crs.Link)
	}
	if crs.Instructor != "Ada Lovelace" {
		t.Errorf("instructor = %q", crs.Instructor)
	}
}

func Test_Parse_Lessons(t *testing.T) {
	t.Parallel()

	crs, _, err := Parse(twoLessonDoc, ParseConfig{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(crs.Lessons) != 2 {
		t.Fatalf("want 2 lessons, got %d", len(crs.Lessons))
	}
	if crs.Lessons[0].Number != 0 || crs.Lessons[0].Title != "Getting Started" {
		t.Errorf("lesson 0 = %+v", crs.Lessons[0])
	}
	if crs.Lessons[1].Link != "https://example.com/intro-x/lesson-1" {
		t.Errorf("lesson 1 link = %q", crs.Lessons[1].Link)
	}
}

func Test_Parse_MissingHeaderRejected(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":          "",
		"no title line":  "Just some text.\nMore text.",
		"empty title":    "Course Title:\nCourse Link: x\nCourse Instructor: y",
		"wrong ordering": "Course Link: https://x\nCourse Title: T",
	}

	for name, doc := range cases {
		_, _, err := Parse(doc, ParseConfig{})
		if !errors.Is(err, ErrBadHeader) {
			t.Errorf("%s: want ErrBadHeader, got %v", name, err)
		}
	}
}

func Test_Parse_OptionalHeaderFields(t *testing.T) {
	t.Parallel()

	crs, chunks, err := Parse("Course Title: Bare\nSome body text here.", ParseConfig{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if crs.Link != "" || crs.Instructor != "" {
		t.Errorf("want empty link/instructor, got %q/%q", crs.Link, crs.Instructor)
	}
	if len(chunks) == 0 {
		t.Fatal("want chunks from body text")
	}
}

func Test_Parse_NoLessonMarkers(t *testing.T) {
	t.Parallel()

	doc := "Course Title: Plain\nCourse Link: https://x\nCourse Instructor: Y\n\n" +
		"This document has no lesson markers at all. It should still be chunked. " +
		"All chunks belong to an implicit lesson."

	crs, chunks, err := Parse(doc, ParseConfig{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(crs.Lessons) != 0 {
		t.Errorf("want 0 lessons, got %d", len(crs.Lessons))
	}
	if len(chunks) == 0 {
		t.Fatal("want at least one chunk")
	}
	for _, c := range chunks {
		if c.LessonNumber != nil {
			t.Errorf("chunk %d: want nil lesson number, got %d", c.ChunkIndex, *c.LessonNumber)
		}
	}
}

func Test_Parse_LessonWithoutLink(t *testing.T) {
	t.Parallel()

	doc := "Course Title: T\n\nLesson 3: No Link Here\nBody of the lesson. More body."
	crs, chunks, err := Parse(doc, ParseConfig{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(crs.Lessons) != 1 || crs.Lessons[0].Link != "" {
		t.Fatalf("lessons = %+v", crs.Lessons)
	}
	for _, c := range chunks {
		if c.LessonLink != "" {
			t.Errorf("chunk %d: want empty lesson link, got %q", c.ChunkIndex, c.LessonLink)
		}
		if c.LessonNumber == nil || *c.LessonNumber != 3 {
			t.Errorf("chunk %d: want lesson number 3", c.ChunkIndex)
		}
	}
}

func Test_Parse_ChunkIndexContiguous(t *testing.T) {
	t.Parallel()

	_, chunks, err := Parse(twoLessonDoc, ParseConfig{ChunkSize: 120, ChunkOverlap: 20})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("want multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.ChunkIndex)
		}
		if c.CourseTitle != "Intro to X" {
			t.Errorf("chunk %d course title = %q", i, c.CourseTitle)
		}
	}
}

func Test_Parse_ChunkIDFormat(t *testing.T) {
	t.Parallel()

	_, chunks, err := Parse(twoLessonDoc, ParseConfig{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := chunks[0].ID(); got != "Intro to X#0" {
		t.Errorf("chunk id = %q, want %q", got, "Intro to X#0")
	}
}

func Test_Parse_ContextLabelPrefix(t *testing.T) {
	t.Parallel()

	_, chunks, err := Parse(twoLessonDoc, ParseConfig{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, c := range chunks {
		want := "Course Intro to X Lesson "
		if !strings.HasPrefix(c.Content, want) {
			t.Errorf("chunk %d content %q lacks prefix %q", c.ChunkIndex, c.Content, want)
		}
	}
}
