// Package tools defines the CourseTool interface and the course-material
// tool implementations the agent can invoke during a conversation. Each
// tool returns both the LLM-facing result text and the structured sources
// backing it, so the server can attach provenance to answers without the
// model having to repeat citations.
package tools

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/courseai/courseai-go/internal/course"
)

// CourseTool is the interface that all course-material tools must satisfy.
// It mirrors the Eino tool contract but threads structured sources through
// Execute so the agent can collect provenance per call rather than scraping
// it out of the result text.
type CourseTool interface {
	// Name returns the unique tool name registered with the agent.
	Name() string

	// Info returns the Eino tool metadata including the JSON input schema.
	Info(ctx context.Context) (*schema.ToolInfo, error)

	// Execute runs the tool with a JSON-encoded argument string. It returns
	// the text result handed back to the model and the sources that back it.
	// Recoverable lookup failures (no matches, unresolvable course names)
	// are reported in the result string so the model can relay them; an
	// error return is reserved for malformed arguments and backend faults.
	Execute(ctx context.Context, argumentsInJSON string) (string, []course.Source, error)
}
