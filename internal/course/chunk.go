package course

import (
	"fmt"
	"regexp"
	"strings"
)

// sentenceSplitter breaks body text into sentence-like units. Anything not
// ending in terminal punctuation is handled by the trailing-remainder case in
// splitSentences.
var sentenceSplitter = regexp.MustCompile(`(?mU)[^.!?]+[.!?]+`)

// chunkRegions runs the chunker over every lesson region in document order,
// assigning a single per-course chunk index that starts at 0.
// Overlap never carries across region boundaries.
func chunkRegions(courseTitle string, regions []region, cfg ParseConfig) []Chunk {
	var chunks []Chunk
	index := 0

	for _, reg := range regions {
		body := strings.TrimSpace(strings.Join(reg.lines, "\n"))
		if body == "" {
			continue
		}

		var lessonNumber *int
		var lessonLink string
		if reg.lesson != nil {
			n := reg.lesson.Number
			lessonNumber = &n
			lessonLink = reg.lesson.Link
		}

		label := contextLabel(courseTitle, lessonNumber)
		for _, text := range chunkText(body, cfg.ChunkSize, cfg.ChunkOverlap) {
			chunks = append(chunks, Chunk{
				Content:      label + text,
				CourseTitle:  courseTitle,
				LessonNumber: lessonNumber,
				ChunkIndex:   index,
				LessonLink:   lessonLink,
			})
			index++
		}
	}

	return chunks
}

// contextLabel builds the short prefix that keeps a chunk self-describing
// when it is retrieved out of context.
func contextLabel(courseTitle string, lessonNumber *int) string {
	if lessonNumber == nil {
		return fmt.Sprintf("Course %s content: ", courseTitle)
	}
	return fmt.Sprintf("Course %s Lesson %d content: ", courseTitle, *lessonNumber)
}

// chunkText splits text into sentence units and greedily accumulates them
// into chunks of at most maxSize characters. Each chunk after the first is
// seeded with up to overlap trailing characters of its predecessor, cut on a
// word boundary, so cross-chunk context survives retrieval.
func chunkText(text string, maxSize, overlap int) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	seedLen := 0

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		chunks = append(chunks, cur.String())
		tail := overlapTail(cur.String(), overlap)
		cur.Reset()
		cur.WriteString(tail)
		seedLen = cur.Len()
	}

	for _, s := range sentences {
		// Flush only when the chunk already holds content beyond its overlap
		// seed. A sentence longer than maxSize becomes its own chunk;
		// splitting mid-sentence would destroy the unit we search on.
		if cur.Len() > seedLen && cur.Len()+1+len(s) > maxSize {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(s)
	}
	if cur.Len() > seedLen {
		chunks = append(chunks, cur.String())
	}

	return chunks
}

// splitSentences returns the sentence-like units of text. Trailing text with
// no terminal punctuation is kept as a final unit so no content is dropped.
func splitSentences(text string) []string {
	matches := sentenceSplitter.FindAllStringIndex(text, -1)

	var out []string
	last := 0
	for _, m := range matches {
		s := strings.TrimSpace(text[m[0]:m[1]])
		if s != "" {
			out = append(out, collapseWhitespace(s))
		}
		last = m[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		out = append(out, collapseWhitespace(rest))
	}
	return out
}

// overlapTail returns the last at-most-n characters of s, trimmed forward to
// the first word boundary so the overlap never starts mid-word.
func overlapTail(s string, n int) string {
	if n <= 0 || len(s) == 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	tail := s[len(s)-n:]
	if cut := strings.IndexByte(tail, ' '); cut >= 0 {
		tail = tail[cut+1:]
	}
	return tail
}

// collapseWhitespace normalises runs of whitespace (including newlines inside
// a sentence) to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
