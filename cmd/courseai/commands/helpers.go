package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/courseai/courseai-go/internal/embedder"
	"github.com/courseai/courseai-go/internal/rag"
	"github.com/courseai/courseai-go/internal/store"
	"github.com/courseai/courseai-go/internal/tools"
)

// openIndex connects to the Qdrant vector store using the QDRANT_* family of
// environment variables. The vector size is derived from the configured
// embedding backend so collection creation matches what the embedder emits.
func openIndex(ctx context.Context, log *slog.Logger) (*rag.QdrantIndex, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	vectorSize := uint64(embedder.DefaultDimensions(embedder.Backend())) //nolint:gosec // dimensions are bounded

	index, err := rag.NewQdrantIndex(ctx, &rag.QdrantConfig{
		Host:              host,
		Port:              port,
		CatalogCollection: getEnvOrDefault("QDRANT_CATALOG_COLLECTION", "course-catalog"),
		ContentCollection: getEnvOrDefault("QDRANT_CONTENT_COLLECTION", "course-content"),
		VectorSize:        vectorSize,
		APIKey:            os.Getenv("QDRANT_API_KEY"),
		UseTLS:            os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}

	log.Info("qdrant index ready", slog.String("host", host), slog.Int("port", port))
	return index, nil
}

// buildRegistry constructs the tool registry the agent exposes to the model:
// content search and course outline lookup, both backed by the same searcher.
func buildRegistry(searcher *rag.Searcher) *tools.Registry {
	return tools.NewRegistry(
		tools.NewSearchTool(searcher),
		tools.NewOutlineTool(searcher),
	)
}

// buildSearcher wires the embedder and vector index into a Searcher.
// COURSEAI_MAX_RESULTS overrides the per-search result cap.
func buildSearcher(emb rag.Embedder, index *rag.QdrantIndex) (*rag.Searcher, error) {
	return rag.NewSearcher(emb, index, &rag.SearcherConfig{
		MaxResults: getEnvInt("COURSEAI_MAX_RESULTS", 0),
	})
}

// openHistory opens the conversation history store. COURSEAI_HISTORY_DB
// overrides the default path (~/.courseai/history.db); set it to "disabled"
// to run without persistence. Failures are non-fatal: the returned store is
// nil and the agent runs stateless.
func openHistory(log *slog.Logger) (store.ConversationStore, func()) {
	dbPath := os.Getenv("COURSEAI_HISTORY_DB")
	if dbPath == "disabled" {
		log.Info("history: disabled via COURSEAI_HISTORY_DB=disabled")
		return nil, func() {}
	}

	if dbPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, func() {}
		}
		dbPath = p
	}

	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil, func() {}
	}

	log.Info("history: store opened", slog.String("path", dbPath))
	return hs, func() { _ = hs.Close() }
}

// getEnvOrDefault returns the value of the environment variable key, or
// fallback if it is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt parses the environment variable key as an int, returning
// fallback if it is unset or malformed.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
