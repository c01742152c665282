package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/courseai/courseai-go/internal/course"
	"github.com/courseai/courseai-go/internal/rag"
)

// CourseSearcher is the slice of the retrieval layer the tools need.
// Abstracting this allows tests to inject a fake without a vector store.
type CourseSearcher interface {
	// Search retrieves the chunks most relevant to query, optionally scoped
	// to a fuzzily-matched course name and a lesson number.
	Search(ctx context.Context, query, courseName string, lessonNumber *int) ([]rag.Match, error)

	// Outline returns the full lesson list for a fuzzily-matched course name.
	Outline(ctx context.Context, name string) (rag.Outline, error)
}

// SearchTool is an Eino tool that performs semantic search over indexed
// course content and returns formatted excerpts with provenance.
type SearchTool struct {
	searcher CourseSearcher
}

// searchInput is the JSON-serialisable input schema for SearchTool.
type searchInput struct {
	// Query is the free-text question or topic to search for.
	Query string `json:"query"`

	// CourseName optionally narrows results to one course. Partial names
	// are resolved against the catalog.
	CourseName string `json:"course_name,omitempty"`

	// LessonNumber optionally narrows results to one lesson.
	LessonNumber *int `json:"lesson_number,omitempty"`
}

// NewSearchTool constructs a SearchTool over the given searcher.
func NewSearchTool(searcher CourseSearcher) *SearchTool {
	return &SearchTool{searcher: searcher}
}

// Name returns the tool name registered with the agent.
func (t *SearchTool) Name() string { return "search_course_content" }

// Info returns the Eino tool metadata including the JSON input schema.
func (t *SearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: "Searches course materials for content relevant to a question. " +
			"Use this for questions about specific topics, concepts, or details covered in the courses.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "What to search for in the course content.",
				Required: true,
			},
			"course_name": {
				Type: schema.String,
				Desc: "Course title to restrict the search to. Partial titles are matched against the catalog (e.g. 'MCP' for 'MCP: Build Rich-Context AI Apps').",
			},
			"lesson_number": {
				Type: schema.Integer,
				Desc: "Specific lesson number to restrict the search to (e.g. 3).",
			},
		}),
	}, nil
}

// Execute runs the search and formats the matches for the model. A course
// name that cannot be resolved or a query with no matches produces a
// descriptive result string, not an error, so the model can tell the user.
func (t *SearchTool) Execute(ctx context.Context, argumentsInJSON string) (string, []course.Source, error) {
	var input searchInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", nil, fmt.Errorf("search_course_content: invalid input: %w", err)
	}
	if strings.TrimSpace(input.Query) == "" {
		return "", nil, fmt.Errorf("search_course_content: query is required")
	}

	matches, err := t.searcher.Search(ctx, input.Query, input.CourseName, input.LessonNumber)
	if err != nil {
		if errors.Is(err, rag.ErrCourseNotFound) {
			return fmt.Sprintf("No course matching '%s' was found.", input.CourseName), nil, nil
		}
		return "", nil, fmt.Errorf("search_course_content: %w", err)
	}
	if len(matches) == 0 {
		return emptyResultMessage(input), nil, nil
	}

	return formatMatches(matches)
}

// emptyResultMessage names the filters that were in effect so the model can
// explain an empty result instead of hallucinating content.
func emptyResultMessage(input searchInput) string {
	var b strings.Builder
	b.WriteString("No relevant content found")
	if input.CourseName != "" {
		fmt.Fprintf(&b, " in course '%s'", input.CourseName)
	}
	if input.LessonNumber != nil {
		fmt.Fprintf(&b, " in lesson %d", *input.LessonNumber)
	}
	b.WriteString(".")
	return b.String()
}

// formatMatches renders each match under a [Course - Lesson N] banner and
// collects one deduplicated source entry per (label, url) pair.
func formatMatches(matches []rag.Match) (string, []course.Source, error) {
	blocks := make([]string, 0, len(matches))
	sources := make([]course.Source, 0, len(matches))
	seen := map[course.Source]bool{}

	for _, m := range matches {
		header := m.CourseTitle
		label := m.CourseTitle
		if m.LessonNumber != nil {
			header = fmt.Sprintf("%s - Lesson %d", m.CourseTitle, *m.LessonNumber)
			label = fmt.Sprintf("%s - Lesson %d", m.CourseTitle, *m.LessonNumber)
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", header, m.Content))

		src := course.Source{Label: label, URL: m.LessonLink}
		if !seen[src] {
			seen[src] = true
			sources = append(sources, src)
		}
	}

	return strings.Join(blocks, "\n\n"), sources, nil
}
