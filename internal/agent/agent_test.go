package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/courseai/courseai-go/internal/course"
	"github.com/courseai/courseai-go/internal/store"
	"github.com/courseai/courseai-go/internal/tools"
)

// modelCall records one Generate invocation and whether tools were bound.
type modelCall struct {
	messages  []*schema.Message
	withTools bool
}

// fakeState is shared between a fake model and its WithTools derivative so
// both drain the same scripted response queue.
type fakeState struct {
	responses []*schema.Message
	calls     []modelCall
	toolInfos []*schema.ToolInfo
	err       error
}

// fakeModel is a scriptable model.ToolCallingChatModel.
type fakeModel struct {
	state *fakeState
	bound bool
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.state.calls = append(f.state.calls, modelCall{messages: input, withTools: f.bound})
	if f.state.err != nil {
		return nil, f.state.err
	}
	if len(f.state.responses) == 0 {
		return nil, errors.New("fake model: out of scripted responses")
	}
	resp := f.state.responses[0]
	f.state.responses = f.state.responses[1:]
	return resp, nil
}

func (f *fakeModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("fake model: streaming not supported")
}

func (f *fakeModel) WithTools(infos []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	f.state.toolInfos = infos
	return &fakeModel{state: f.state, bound: true}, nil
}

// echoTool is a CourseTool that returns a fixed result and source.
type echoTool struct {
	name     string
	result   string
	sources  []course.Source
	lastArgs string
}

func (e *echoTool) Name() string { return e.name }

func (e *echoTool) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{Name: e.name, Desc: "test tool"}, nil
}

func (e *echoTool) Execute(_ context.Context, args string) (string, []course.Source, error) {
	e.lastArgs = args
	return e.result, e.sources, nil
}

// memHistory is an in-memory ConversationStore for agent tests.
type memHistory struct {
	msgs map[string][]store.Message
}

func newMemHistory() *memHistory { return &memHistory{msgs: map[string][]store.Message{}} }

func (h *memHistory) Append(_ context.Context, sessionID string, role store.Role, content string) error {
	h.msgs[sessionID] = append(h.msgs[sessionID], store.Message{Role: role, Content: content})
	return nil
}

func (h *memHistory) Recent(_ context.Context, sessionID string, n int) ([]store.Message, error) {
	msgs := h.msgs[sessionID]
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs, nil
}

func (h *memHistory) Close() error { return nil }

func toolCallMsg(id, name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{ID: id, Function: schema.FunctionCall{Name: name, Arguments: args}},
		},
	}
}

func newTestAgent(t *testing.T, st *fakeState, reg *tools.Registry, history store.ConversationStore) *Agent {
	t.Helper()
	a, err := New(context.Background(), &Config{
		ChatModel: &fakeModel{state: st},
		Registry:  reg,
		History:   history,
	})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	return a
}

func Test_Agent_DirectAnswerSkipsTools(t *testing.T) {
	t.Parallel()
	st := &fakeState{responses: []*schema.Message{
		schema.AssistantMessage("Paris is the capital of France.", nil),
	}}
	a := newTestAgent(t, st, tools.NewRegistry(&echoTool{name: "search_course_content"}), nil)

	answer, sources, err := a.Answer(context.Background(), "capital of France?", "")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer != "Paris is the capital of France." {
		t.Errorf("answer = %q", answer)
	}
	if sources != nil {
		t.Errorf("direct answer must carry no sources, got %v", sources)
	}
	if len(st.calls) != 1 {
		t.Fatalf("model calls = %d, want 1", len(st.calls))
	}
	if !st.calls[0].withTools {
		t.Error("first call must have tools bound")
	}
}

func Test_Agent_ToolRoundFeedsResultsBack(t *testing.T) {
	t.Parallel()
	tool := &echoTool{
		name:    "search_course_content",
		result:  "[Course A - Lesson 1]\nChunk text.",
		sources: []course.Source{{Label: "Course A - Lesson 1", URL: "https://a/1"}},
	}
	st := &fakeState{responses: []*schema.Message{
		toolCallMsg("call-1", "search_course_content", `{"query":"chunking"}`),
		schema.AssistantMessage("Chunking splits text.", nil),
	}}
	a := newTestAgent(t, st, tools.NewRegistry(tool), nil)

	answer, sources, err := a.Answer(context.Background(), "what is chunking?", "")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer != "Chunking splits text." {
		t.Errorf("answer = %q", answer)
	}
	if len(sources) != 1 || sources[0].URL != "https://a/1" {
		t.Errorf("sources = %+v", sources)
	}
	if tool.lastArgs != `{"query":"chunking"}` {
		t.Errorf("tool args = %q", tool.lastArgs)
	}

	if len(st.calls) != 2 {
		t.Fatalf("model calls = %d, want 2", len(st.calls))
	}
	if st.calls[1].withTools {
		t.Error("final call must not have tools bound")
	}
	finalMsgs := st.calls[1].messages
	last := finalMsgs[len(finalMsgs)-1]
	if last.Role != schema.Tool || last.ToolCallID != "call-1" {
		t.Errorf("last message before final call = role %s, tool_call_id %q", last.Role, last.ToolCallID)
	}
	if last.Content != tool.result {
		t.Errorf("tool message content = %q", last.Content)
	}
}

func Test_Agent_UnknownToolNameIsError(t *testing.T) {
	t.Parallel()
	st := &fakeState{responses: []*schema.Message{
		toolCallMsg("call-1", "no_such_tool", `{}`),
	}}
	a := newTestAgent(t, st, tools.NewRegistry(&echoTool{name: "search_course_content"}), nil)

	_, _, err := a.Answer(context.Background(), "q", "")
	if !errors.Is(err, tools.ErrUnknownTool) {
		t.Fatalf("err = %v, want ErrUnknownTool", err)
	}
}

func Test_Agent_HistoryInjectedBetweenSystemAndUser(t *testing.T) {
	t.Parallel()
	history := newMemHistory()
	ctx := context.Background()
	if err := history.Append(ctx, "sess-1", store.RoleUser, "earlier question"); err != nil {
		t.Fatal(err)
	}
	if err := history.Append(ctx, "sess-1", store.RoleAssistant, "earlier answer"); err != nil {
		t.Fatal(err)
	}

	st := &fakeState{responses: []*schema.Message{
		schema.AssistantMessage("follow-up answer", nil),
	}}
	a := newTestAgent(t, st, tools.NewRegistry(&echoTool{name: "search_course_content"}), history)

	if _, _, err := a.Answer(ctx, "follow-up", "sess-1"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	msgs := st.calls[0].messages
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want system+2 history+user", len(msgs))
	}
	if msgs[0].Role != schema.System {
		t.Errorf("msgs[0].Role = %s", msgs[0].Role)
	}
	if msgs[1].Content != "earlier question" || msgs[2].Content != "earlier answer" {
		t.Errorf("history not injected in order: %q / %q", msgs[1].Content, msgs[2].Content)
	}
	if msgs[3].Content != "follow-up" {
		t.Errorf("msgs[3].Content = %q", msgs[3].Content)
	}
}

func Test_Agent_PersistsExchange(t *testing.T) {
	t.Parallel()
	history := newMemHistory()
	st := &fakeState{responses: []*schema.Message{
		schema.AssistantMessage("the answer", nil),
	}}
	a := newTestAgent(t, st, tools.NewRegistry(&echoTool{name: "search_course_content"}), history)

	if _, _, err := a.Answer(context.Background(), "the question", "sess-2"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	saved := history.msgs["sess-2"]
	if len(saved) != 2 {
		t.Fatalf("persisted = %d messages, want 2", len(saved))
	}
	if saved[0].Role != store.RoleUser || saved[0].Content != "the question" {
		t.Errorf("saved[0] = %+v", saved[0])
	}
	if saved[1].Role != store.RoleAssistant || saved[1].Content != "the answer" {
		t.Errorf("saved[1] = %+v", saved[1])
	}
}

func Test_Agent_MultipleToolCallsAggregateSources(t *testing.T) {
	t.Parallel()
	search := &echoTool{
		name:    "search_course_content",
		result:  "content result",
		sources: []course.Source{{Label: "Course A - Lesson 1"}},
	}
	outline := &echoTool{
		name:    "get_course_outline",
		result:  "outline result",
		sources: []course.Source{{Label: "Course A"}},
	}
	first := toolCallMsg("call-1", "search_course_content", `{"query":"x"}`)
	first.ToolCalls = append(first.ToolCalls, schema.ToolCall{
		ID:       "call-2",
		Function: schema.FunctionCall{Name: "get_course_outline", Arguments: `{"course_name":"A"}`},
	})
	st := &fakeState{responses: []*schema.Message{
		first,
		schema.AssistantMessage("combined answer", nil),
	}}
	a := newTestAgent(t, st, tools.NewRegistry(search, outline), nil)

	_, sources, err := a.Answer(context.Background(), "q", "")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(sources))
	}
	if sources[0].Label != "Course A - Lesson 1" || sources[1].Label != "Course A" {
		t.Errorf("sources order = %+v", sources)
	}
}
