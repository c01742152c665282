package rag

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/qdrant/go-client/qdrant"

	"github.com/courseai/courseai-go/internal/course"
)

// maxCatalogScroll bounds catalog listing reads. The catalog holds one point
// per course, so a single scroll page is enough for any realistic corpus.
const maxCatalogScroll = 1024

// QdrantConfig holds connection parameters for a Qdrant instance hosting
// both collections.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// CatalogCollection is the course-directory collection name.
	CatalogCollection string

	// ContentCollection is the chunk-content collection name.
	ContentCollection string

	// VectorSize is the dimensionality of the stored embeddings.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements VectorIndex backed by two Qdrant collections.
type QdrantIndex struct {
	client *qdrant.Client
	cfg    *QdrantConfig
}

// NewQdrantIndex connects to Qdrant and ensures both collections exist,
// creating them with cosine distance if necessary.
func NewQdrantIndex(ctx context.Context, cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.CatalogCollection == "" {
		cfg.CatalogCollection = "course-catalog"
	}
	if cfg.ContentCollection == "" {
		cfg.ContentCollection = "course-content"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	idx := &QdrantIndex{client: client, cfg: cfg}
	for _, name := range []string{cfg.CatalogCollection, cfg.ContentCollection} {
		if err := idx.ensureCollection(ctx, name); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

// ensureCollection creates the named collection if it does not already exist.
func (x *QdrantIndex) ensureCollection(ctx context.Context, name string) error {
	exists, err := x.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection %q: %w", name, err)
	}
	if exists {
		return nil
	}

	err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     x.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", name, err)
	}
	return nil
}

// UpsertCourse writes the catalog entry for crs. The lesson list is stored
// serialized in the payload so outlines never need the content collection.
func (x *QdrantIndex) UpsertCourse(ctx context.Context, crs course.Course, titleVec []float32) error {
	lessonsJSON, err := json.Marshal(crs.Lessons)
	if err != nil {
		return fmt.Errorf("qdrant: marshal lessons for %q: %w", crs.Title, err)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(pointUUID(crs.Title)),
		Vectors: qdrant.NewVectors(titleVec...),
		Payload: qdrant.NewValueMap(map[string]any{
			"title":        crs.Title,
			"link":         crs.Link,
			"instructor":   crs.Instructor,
			"lessons":      string(lessonsJSON),
			"lesson_count": int64(len(crs.Lessons)),
		}),
	}

	_, err = x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.cfg.CatalogCollection,
		Points:         []*qdrant.PointStruct{point},
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert course %q: %w", crs.Title, err)
	}
	return nil
}

// UpsertChunks writes a batch of content chunks. Point IDs are derived
// deterministically from the composite chunk id, so re-ingesting a course
// overwrites rather than duplicates.
func (x *QdrantIndex) UpsertChunks(ctx context.Context, chunks []course.Chunk, vecs [][]float32) error {
	if len(chunks) != len(vecs) {
		return fmt.Errorf("qdrant: %d chunks but %d vectors", len(chunks), len(vecs))
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, c := range chunks {
		payload := map[string]any{
			"content":      c.Content,
			"course_title": c.CourseTitle,
			"chunk_index":  int64(c.ChunkIndex),
			"chunk_id":     c.ID(),
		}
		// The lesson_number key is omitted for unattributed chunks so a
		// lesson filter can never match them.
		if c.LessonNumber != nil {
			payload["lesson_number"] = int64(*c.LessonNumber)
		}
		if c.LessonLink != "" {
			payload["lesson_link"] = c.LessonLink
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointUUID(c.ID())),
			Vectors: qdrant.NewVectors(vecs[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.cfg.ContentCollection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %d chunks: %w", len(chunks), err)
	}
	return nil
}

// ExistingTitles scrolls the catalog and returns the set of indexed titles.
func (x *QdrantIndex) ExistingTitles(ctx context.Context) (map[string]bool, error) {
	points, err := x.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: x.cfg.CatalogCollection,
		Limit:          qdrant.PtrOf(uint32(maxCatalogScroll)),
		WithPayload:    qdrant.NewWithPayloadInclude("title"),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: scroll catalog: %w", err)
	}

	titles := make(map[string]bool, len(points))
	for _, p := range points {
		if v, ok := p.Payload["title"]; ok {
			titles[v.GetStringValue()] = true
		}
	}
	return titles, nil
}

// ResolveCourseName performs a top-1 similarity lookup against the catalog.
func (x *QdrantIndex) ResolveCourseName(ctx context.Context, queryVec []float32) (string, float32, bool, error) {
	results, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.cfg.CatalogCollection,
		Query:          qdrant.NewQuery(queryVec...),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayloadInclude("title"),
	})
	if err != nil {
		return "", 0, false, fmt.Errorf("qdrant: catalog query: %w", err)
	}
	if len(results) == 0 {
		return "", 0, false, nil
	}

	best := results[0]
	title := ""
	if v, ok := best.Payload["title"]; ok {
		title = v.GetStringValue()
	}
	return title, best.Score, title != "", nil
}

// Search returns up to limit content chunks nearest to queryVec,
// restricted by f.
func (x *QdrantIndex) Search(ctx context.Context, queryVec []float32, f Filter, limit int) ([]Match, error) {
	results, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.cfg.ContentCollection,
		Query:          qdrant.NewQuery(queryVec...),
		Limit:          qdrant.PtrOf(uint64(limit)), //nolint:gosec // limit is a small positive constant
		Filter:         contentFilter(f),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: content query: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		m := Match{Score: r.Score}
		p := r.Payload
		if v, ok := p["content"]; ok {
			m.Content = v.GetStringValue()
		}
		if v, ok := p["course_title"]; ok {
			m.CourseTitle = v.GetStringValue()
		}
		if v, ok := p["chunk_index"]; ok {
			m.ChunkIndex = int(v.GetIntegerValue())
		}
		if v, ok := p["lesson_number"]; ok {
			n := int(v.GetIntegerValue())
			m.LessonNumber = &n
		}
		if v, ok := p["lesson_link"]; ok {
			m.LessonLink = v.GetStringValue()
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// contentFilter builds the AND equality filter over the content payload.
// Returns nil for an unrestricted search.
func contentFilter(f Filter) *qdrant.Filter {
	var must []*qdrant.Condition
	if f.CourseTitle != "" {
		must = append(must, qdrant.NewMatch("course_title", f.CourseTitle))
	}
	if f.LessonNumber != nil {
		must = append(must, qdrant.NewMatchInt("lesson_number", int64(*f.LessonNumber)))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

// CourseOutline returns the catalog entry for an exact canonical title.
func (x *QdrantIndex) CourseOutline(ctx context.Context, title string) (Outline, error) {
	points, err := x.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: x.cfg.CatalogCollection,
		Limit:          qdrant.PtrOf(uint32(1)),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("title", title)},
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return Outline{}, fmt.Errorf("qdrant: outline lookup for %q: %w", title, err)
	}
	if len(points) == 0 {
		return Outline{}, fmt.Errorf("%w: %q", ErrCourseNotFound, title)
	}

	p := points[0].Payload
	out := Outline{Title: title}
	if v, ok := p["link"]; ok {
		out.Link = v.GetStringValue()
	}
	if v, ok := p["instructor"]; ok {
		out.Instructor = v.GetStringValue()
	}
	if v, ok := p["lessons"]; ok {
		if raw := v.GetStringValue(); raw != "" {
			if err := json.Unmarshal([]byte(raw), &out.Lessons); err != nil {
				return Outline{}, fmt.Errorf("qdrant: corrupt lesson payload for %q: %w", title, err)
			}
		}
	}
	return out, nil
}

// CourseTitles returns all catalog titles.
func (x *QdrantIndex) CourseTitles(ctx context.Context) ([]string, error) {
	set, err := x.ExistingTitles(ctx)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(set))
	for t := range set {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles, nil
}

// HealthCheck probes the Qdrant instance. Used by the server's readiness
// endpoint.
func (x *QdrantIndex) HealthCheck(ctx context.Context) error {
	if _, err := x.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check: %w", err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (x *QdrantIndex) Close() error {
	return x.client.Close()
}

// pointUUID derives a stable UUID-format point id from a logical key.
// Qdrant point ids must be integers or UUIDs, so the composite string ids
// are hashed and formatted rather than used directly.
func pointUUID(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}
