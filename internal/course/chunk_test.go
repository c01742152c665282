package course

import (
	"strings"
	"testing"
)

func Test_ChunkText_SingleSmallChunk(t *testing.T) {
	t.Parallel()

	got := chunkText("One sentence. Two sentences.", 800, 100)
	if len(got) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(got))
	}
	if got[0] != "One sentence. Two sentences." {
		t.Errorf("chunk = %q", got[0])
	}
}

func Test_ChunkText_RespectsMaxSize(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	for range 40 {
		sb.WriteString("This is a filler sentence of some length. ")
	}

	chunks := chunkText(sb.String(), 200, 40)
	if len(chunks) < 2 {
		t.Fatalf("want multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 200 {
			t.Errorf("chunk %d length %d exceeds max 200", i, len(c))
		}
	}
}

func Test_ChunkText_OverlapCarried(t *testing.T) {
	t.Parallel()

	text := "Alpha sentence one here. Beta sentence two follows now. Gamma sentence three arrives. Delta sentence four closes."
	chunks := chunkText(text, 60, 25)
	if len(chunks) < 2 {
		t.Fatalf("want multiple chunks, got %d: %q", len(chunks), chunks)
	}

	for i := 1; i < len(chunks); i++ {
		tail := overlapTail(chunks[i-1], 25)
		if tail == "" {
			continue
		}
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not start with overlap %q: %q", i, tail, chunks[i])
		}
	}
}

func Test_ChunkText_NoTrailingPunctuationKept(t *testing.T) {
	t.Parallel()

	chunks := chunkText("Complete sentence. trailing fragment without punctuation", 800, 100)
	if len(chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "trailing fragment without punctuation") {
		t.Errorf("fragment dropped: %q", chunks[0])
	}
}

func Test_ChunkText_Empty(t *testing.T) {
	t.Parallel()

	if got := chunkText("   \n  ", 800, 100); got != nil {
		t.Errorf("want nil, got %q", got)
	}
}

func Test_OverlapTail_WordBoundary(t *testing.T) {
	t.Parallel()

	tail := overlapTail("the quick brown fox jumps", 9)
	// Raw 9-char suffix is "fox jumps"; the partial word before the first
	// space must not survive, so anything returned starts at a word start.
	if strings.HasPrefix(tail, "ox") {
		t.Errorf("tail starts mid-word: %q", tail)
	}
	if len(tail) > 9 {
		t.Errorf("tail too long: %q", tail)
	}
}

func Test_Chunk_OverlapResetsAtLessonBoundary(t *testing.T) {
	t.Parallel()

	doc := "Course Title: Boundaries\n\n" +
		"Lesson 0: First\n" +
		"Ending of lesson zero is a marker phrase UNIQUETAIL. " +
		"Another closing sentence mentioning UNIQUETAIL once more.\n\n" +
		"Lesson 1: Second\n" +
		"Opening of lesson one has fresh content. Nothing carried over appears here."

	_, chunks, err := Parse(doc, ParseConfig{ChunkSize: 90, ChunkOverlap: 40})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var firstOfLessonOne string
	for _, c := range chunks {
		if c.LessonNumber != nil && *c.LessonNumber == 1 {
			firstOfLessonOne = c.Content
			break
		}
	}
	if firstOfLessonOne == "" {
		t.Fatal("no chunk for lesson 1")
	}
	if strings.Contains(firstOfLessonOne, "UNIQUETAIL") {
		t.Errorf("overlap leaked across lesson boundary: %q", firstOfLessonOne)
	}
}

func Test_Chunk_Idempotent(t *testing.T) {
	t.Parallel()

	_, first, err := Parse(twoLessonDoc, ParseConfig{ChunkSize: 150, ChunkOverlap: 30})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, second, err := Parse(twoLessonDoc, ParseConfig{ChunkSize: 150, ChunkOverlap: 30})
	if err != nil {
		t.Fatalf("parse again: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	seen := map[string]bool{}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
		id := first[i].ID()
		if seen[id] {
			t.Errorf("duplicate chunk id %s", id)
		}
		seen[id] = true
	}
}
