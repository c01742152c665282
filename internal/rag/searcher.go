package rag

import (
	"context"
	"fmt"
	"sort"
)

// DefaultMaxResults is the number of content matches returned when the
// caller passes 0.
const DefaultMaxResults = 5

// DefaultResolveThreshold is the minimum cosine similarity a catalog entry
// must reach for fuzzy course-name resolution to accept it. Below this,
// resolution reports no match rather than guessing.
const DefaultResolveThreshold = 0.5

// Searcher combines an Embedder with a VectorIndex to answer free-text
// queries: it resolves approximate course names against the catalog and runs
// filtered similarity searches over the content collection.
// Safe for concurrent use.
type Searcher struct {
	embedder   Embedder
	index      VectorIndex
	maxResults int
	threshold  float32
}

// SearcherConfig holds the tunable parameters for a Searcher.
type SearcherConfig struct {
	// MaxResults caps the number of content matches per search.
	// Defaults to DefaultMaxResults if zero.
	MaxResults int

	// ResolveThreshold is the minimum similarity for name resolution.
	// Defaults to DefaultResolveThreshold if zero.
	ResolveThreshold float32
}

// NewSearcher constructs a Searcher from the given Embedder and VectorIndex.
func NewSearcher(embedder Embedder, index VectorIndex, cfg *SearcherConfig) (*Searcher, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if cfg == nil {
		cfg = &SearcherConfig{}
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	threshold := cfg.ResolveThreshold
	if threshold <= 0 {
		threshold = DefaultResolveThreshold
	}
	return &Searcher{
		embedder:   embedder,
		index:      index,
		maxResults: maxResults,
		threshold:  threshold,
	}, nil
}

// Resolve maps a user-supplied, possibly misspelled course name to its
// canonical catalog title. Returns a wrapped ErrCourseNotFound when no
// catalog entry clears the similarity threshold.
func (s *Searcher) Resolve(ctx context.Context, name string) (string, error) {
	vec, err := s.embedOne(ctx, name)
	if err != nil {
		return "", err
	}

	title, score, ok, err := s.index.ResolveCourseName(ctx, vec)
	if err != nil {
		return "", fmt.Errorf("rag: resolve %q: %w", name, err)
	}
	if !ok || score < s.threshold {
		return "", fmt.Errorf("%w: %q", ErrCourseNotFound, name)
	}
	return title, nil
}

// Search embeds query and returns the nearest content chunks, optionally
// restricted to a course (by approximate name) and a lesson number.
// A supplied courseName that fails resolution aborts the search with a
// wrapped ErrCourseNotFound; it never silently falls back to an unfiltered
// search. An empty result slice with a nil error means "no matches".
func (s *Searcher) Search(ctx context.Context, query, courseName string, lessonNumber *int) ([]Match, error) {
	var f Filter
	if courseName != "" {
		title, err := s.Resolve(ctx, courseName)
		if err != nil {
			return nil, err
		}
		f.CourseTitle = title
	}
	f.LessonNumber = lessonNumber

	vec, err := s.embedOne(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := s.index.Search(ctx, vec, f, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}

	// The index orders by descending similarity; make ties deterministic.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].ChunkIndex != matches[j].ChunkIndex {
			return matches[i].ChunkIndex < matches[j].ChunkIndex
		}
		return matches[i].CourseTitle < matches[j].CourseTitle
	})

	return matches, nil
}

// Outline resolves name fuzzily and returns the matched course's catalog
// outline.
func (s *Searcher) Outline(ctx context.Context, name string) (Outline, error) {
	title, err := s.Resolve(ctx, name)
	if err != nil {
		return Outline{}, err
	}
	out, err := s.index.CourseOutline(ctx, title)
	if err != nil {
		return Outline{}, fmt.Errorf("rag: outline: %w", err)
	}
	return out, nil
}

// embedOne embeds a single text, unwrapping the batch interface.
func (s *Searcher) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding failed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("rag: embedder returned no vector")
	}
	return vecs[0], nil
}
