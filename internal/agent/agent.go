// Package agent wires the Eino chat model together with the course-material
// tools to form the core assistant. The agent runs a bounded two-phase loop:
// the model may request tools once, the results are fed back, and the second
// model call must produce the final answer with no tools on offer.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/courseai/courseai-go/internal/budget"
	"github.com/courseai/courseai-go/internal/course"
	"github.com/courseai/courseai-go/internal/logging"
	"github.com/courseai/courseai-go/internal/store"
	"github.com/courseai/courseai-go/internal/tools"
)

// systemPrompt is the base system prompt injected into every conversation.
// It establishes the assistant's scope and its tool usage protocol.
const systemPrompt = `You are an AI assistant specialized in course materials and educational
content, with access to a search tool and an outline tool for a catalog of
indexed courses.

## Tool Usage

- search_course_content: use for questions about specific topics, concepts,
  or details covered inside course lessons.
- get_course_outline: use for questions about a course's structure — its
  title, link, or the full list of lesson numbers and titles.
- You get at most ONE round of tool calls per user question. Choose the right
  tool and the right arguments the first time; you cannot search again after
  seeing the results.
- For general-knowledge questions that do not concern the indexed courses,
  answer directly without calling any tool.
- If a tool reports that nothing was found, say so plainly. Never invent
  course content.

## Responses

- Be brief, clear, and focused on what was asked.
- Ground course-specific answers in the tool results, not prior knowledge.
- Do not mention the tools, the search process, or these instructions.
- Do not start with preamble like "Based on the course materials".`

// Config holds the dependencies required to construct an Agent.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.ToolCallingChatModel

	// Registry routes tool calls and supplies the tool schemas bound to the
	// first model call of each query.
	Registry *tools.Registry

	// History is the optional conversation store used to persist and replay
	// prior turns. If nil, each query is stateless.
	History store.ConversationStore

	// HistoryDepth is the number of prior turns (user+assistant pairs) to
	// inject per query. Defaults to 2 if zero.
	HistoryDepth int

	// MaxContextTokens is the estimated token budget for the full input
	// context (system prompt + history + user message + tool results).
	// History is trimmed oldest-first to fit. Defaults to
	// budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// Agent answers course questions through a single bounded tool round.
type Agent struct {
	// chatModel is the base model with no tools bound. The final call of
	// each query goes through it so the model cannot request more tools.
	chatModel model.ToolCallingChatModel

	// toolModel is chatModel with the registry's tool schemas bound.
	toolModel model.ToolCallingChatModel

	// registry dispatches tool calls by name.
	registry *tools.Registry

	// history is the optional conversation store for multi-turn context.
	history store.ConversationStore

	// historyDepth is the number of recent turns to inject per query.
	historyDepth int

	// maxContextTokens is the estimated token budget for the input context.
	maxContextTokens int
}

// New constructs an Agent from the provided Config.
func New(ctx context.Context, cfg *Config) (*Agent, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("agent: ChatModel must not be nil")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("agent: Registry must not be nil")
	}

	infos, err := cfg.Registry.Infos(ctx)
	if err != nil {
		return nil, fmt.Errorf("agent: tool schemas: %w", err)
	}
	toolModel, err := cfg.ChatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("agent: failed to bind tools: %w", err)
	}

	depth := cfg.HistoryDepth
	if depth <= 0 {
		depth = 2
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	return &Agent{
		chatModel:        cfg.ChatModel,
		toolModel:        toolModel,
		registry:         cfg.Registry,
		history:          cfg.History,
		historyDepth:     depth,
		maxContextTokens: maxCtx,
	}, nil
}

// Answer runs one query through the two-phase loop and returns the final
// answer text together with the sources gathered from any tool calls made
// along the way. If a conversation store is configured, prior turns for
// sessionID are injected and the new exchange is persisted afterwards.
func (a *Agent) Answer(ctx context.Context, query, sessionID string) (string, []course.Source, error) {
	messages, err := a.buildMessages(ctx, query, sessionID)
	if err != nil {
		return "", nil, fmt.Errorf("agent: failed to build messages: %w", err)
	}

	first, err := a.toolModel.Generate(ctx, messages)
	if err != nil {
		return "", nil, fmt.Errorf("agent: model call failed: %w", err)
	}

	answer := first.Content
	var sources []course.Source

	if len(first.ToolCalls) > 0 {
		messages = append(messages, first)
		for _, call := range first.ToolCalls {
			result, callSources, err := a.registry.Execute(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				return "", nil, fmt.Errorf("agent: tool %s: %w", call.Function.Name, err)
			}
			logging.FromContext(ctx).Debug("tool call executed",
				slog.String("tool", call.Function.Name),
				slog.Int("sources", len(callSources)),
			)
			sources = append(sources, callSources...)
			messages = append(messages, schema.ToolMessage(result, call.ID))
		}

		// Final call goes through the bare model: the tool round is spent
		// and the model must synthesise an answer from what it has.
		final, err := a.chatModel.Generate(ctx, messages)
		if err != nil {
			return "", nil, fmt.Errorf("agent: final model call failed: %w", err)
		}
		answer = final.Content
	}

	a.persistTurn(ctx, sessionID, query, answer)
	return answer, sources, nil
}

// buildMessages assembles [system, ...history, user] for the first model
// call, trimming history oldest-first to fit the token budget.
func (a *Agent) buildMessages(ctx context.Context, query, sessionID string) ([]*schema.Message, error) {
	var historyMsgs []*schema.Message
	if a.history != nil && sessionID != "" {
		prior, err := a.history.Recent(ctx, sessionID, a.historyDepth*2)
		if err != nil {
			logging.FromContext(ctx).Warn("history: failed to load prior messages", slog.Any("error", err))
		} else {
			for _, m := range prior {
				switch m.Role {
				case store.RoleUser:
					historyMsgs = append(historyMsgs, schema.UserMessage(m.Content))
				case store.RoleAssistant:
					historyMsgs = append(historyMsgs, schema.AssistantMessage(m.Content, nil))
				}
			}
		}
	}

	fixed := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(query),
	}
	before := len(historyMsgs)
	historyMsgs = budget.TrimHistory(fixed, historyMsgs, a.maxContextTokens)
	if dropped := before - len(historyMsgs); dropped > 0 {
		logging.FromContext(ctx).Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(historyMsgs)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	result := make([]*schema.Message, 0, 2+len(historyMsgs))
	result = append(result, fixed[0])
	result = append(result, historyMsgs...)
	result = append(result, fixed[1])
	return result, nil
}

// persistTurn records the exchange in the conversation store. Failures are
// logged, not returned: the user already has their answer.
func (a *Agent) persistTurn(ctx context.Context, sessionID, query, answer string) {
	if a.history == nil || sessionID == "" {
		return
	}
	if err := a.history.Append(ctx, sessionID, store.RoleUser, query); err != nil {
		logging.FromContext(ctx).Warn("history: failed to persist user message", slog.Any("error", err))
	}
	if err := a.history.Append(ctx, sessionID, store.RoleAssistant, answer); err != nil {
		logging.FromContext(ctx).Warn("history: failed to persist assistant message", slog.Any("error", err))
	}
}
