package server

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// LLMPinger probes an LLM backend by sending a minimal single-message
// generate request. It satisfies the Pinger interface and is used by
// GET /api/ready. The probe consumes a handful of tokens; the readiness
// probe timeout keeps the cost bounded.
type LLMPinger struct {
	// model is the chat model to probe.
	model model.ToolCallingChatModel
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
}

// NewLLMPinger constructs an LLMPinger for the given model and backend name.
func NewLLMPinger(m model.ToolCallingChatModel, name string) *LLMPinger {
	return &LLMPinger{model: m, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping sends a minimal generate request to verify the backend responds.
func (p *LLMPinger) Ping(ctx context.Context) error {
	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}

// healthChecker is the slice of the vector index the Qdrant probe needs.
type healthChecker interface {
	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error
}

// QdrantPinger probes the Qdrant vector store through the index's native
// health check RPC. It satisfies the Pinger interface.
type QdrantPinger struct {
	// index is the vector index whose connection is probed.
	index healthChecker
}

// NewQdrantPinger constructs a QdrantPinger over the given index.
func NewQdrantPinger(index healthChecker) *QdrantPinger {
	return &QdrantPinger{index: index}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant health check RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if err := p.index.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
