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

// OutlineTool is an Eino tool that returns a course's full lesson list so
// the agent can answer structural questions without a content search.
type OutlineTool struct {
	searcher CourseSearcher
}

// outlineInput is the JSON-serialisable input schema for OutlineTool.
type outlineInput struct {
	// CourseName is the (possibly partial) title of the course.
	CourseName string `json:"course_name"`
}

// NewOutlineTool constructs an OutlineTool over the given searcher.
func NewOutlineTool(searcher CourseSearcher) *OutlineTool {
	return &OutlineTool{searcher: searcher}
}

// Name returns the tool name registered with the agent.
func (t *OutlineTool) Name() string { return "get_course_outline" }

// Info returns the Eino tool metadata including the JSON input schema.
func (t *OutlineTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: "Returns a course's title, link, and complete lesson list. " +
			"Use this for questions about a course's structure, its lessons, or what it covers overall.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"course_name": {
				Type:     schema.String,
				Desc:     "Course title to look up. Partial titles are matched against the catalog.",
				Required: true,
			},
		}),
	}, nil
}

// Execute resolves the course name and renders its outline. An unresolvable
// name produces a descriptive result string, not an error.
func (t *OutlineTool) Execute(ctx context.Context, argumentsInJSON string) (string, []course.Source, error) {
	var input outlineInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", nil, fmt.Errorf("get_course_outline: invalid input: %w", err)
	}
	if strings.TrimSpace(input.CourseName) == "" {
		return "", nil, fmt.Errorf("get_course_outline: course_name is required")
	}

	outline, err := t.searcher.Outline(ctx, input.CourseName)
	if err != nil {
		if errors.Is(err, rag.ErrCourseNotFound) {
			return fmt.Sprintf("No course matching '%s' was found.", input.CourseName), nil, nil
		}
		return "", nil, fmt.Errorf("get_course_outline: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", outline.Title)
	if outline.Link != "" {
		fmt.Fprintf(&b, "Link: %s\n", outline.Link)
	}
	if outline.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", outline.Instructor)
	}
	fmt.Fprintf(&b, "Lessons (%d):\n", len(outline.Lessons))
	for _, l := range outline.Lessons {
		fmt.Fprintf(&b, "  %d. %s\n", l.Number, l.Title)
	}

	sources := []course.Source{{Label: outline.Title, URL: outline.Link}}
	return b.String(), sources, nil
}
