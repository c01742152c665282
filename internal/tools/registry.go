package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/courseai/courseai-go/internal/course"
)

// ErrUnknownTool is returned when the model requests a tool name that was
// never registered. This indicates a protocol fault, not a lookup miss.
var ErrUnknownTool = errors.New("tools: unknown tool")

// Registry routes tool calls by name and exposes the combined tool schemas
// for binding to the chat model.
type Registry struct {
	order  []string
	byName map[string]CourseTool
}

// NewRegistry builds a registry over the given tools. Registration order is
// preserved in Infos so the schema list sent to the model is stable.
func NewRegistry(ts ...CourseTool) *Registry {
	r := &Registry{byName: make(map[string]CourseTool, len(ts))}
	for _, t := range ts {
		if _, dup := r.byName[t.Name()]; dup {
			continue
		}
		r.order = append(r.order, t.Name())
		r.byName[t.Name()] = t
	}
	return r
}

// Infos returns the Eino tool metadata for every registered tool.
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		info, err := r.byName[name].Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tools: schema for %s: %w", name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Execute dispatches a tool call to the named tool. Tool-internal failures
// come back as a descriptive result string so the conversation can continue;
// only an unregistered name is an error.
func (r *Registry) Execute(ctx context.Context, name, argumentsInJSON string) (string, []course.Source, error) {
	t, ok := r.byName[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	result, sources, err := t.Execute(ctx, argumentsInJSON)
	if err != nil {
		return fmt.Sprintf("Tool %s failed: %v", name, err), nil, nil
	}
	return result, sources, nil
}
