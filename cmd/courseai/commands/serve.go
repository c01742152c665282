package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/courseai/courseai-go/internal/agent"
	"github.com/courseai/courseai-go/internal/embedder"
	"github.com/courseai/courseai-go/internal/ingestion"
	"github.com/courseai/courseai-go/internal/logging"
	"github.com/courseai/courseai-go/internal/provider"
	"github.com/courseai/courseai-go/internal/server"
	"github.com/courseai/courseai-go/internal/tracing"
)

// NewServeCmd constructs the `courseai serve` command, which starts the HTTP
// API for the course assistant.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the courseai HTTP API",
		Long: `Start the courseai HTTP server on localhost.

The server exposes POST /api/query for question answering, GET /api/courses
for catalog statistics, plus health, readiness, and Prometheus metrics
endpoints. If COURSEAI_DOCS_DIR is set, course documents found there are
ingested on startup before the server begins accepting requests.

Examples:
  courseai serve
  courseai serve --port 9090
  COURSEAI_DOCS_DIR=./docs MODEL_PROVIDER=openai courseai serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			providerName := getEnvOrDefault("MODEL_PROVIDER", "ollama")
			log.Info("serve starting", slog.String("provider", providerName))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", providerName))

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			index, err := openIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer index.Close()

			// Populate the index on startup when a docs directory is
			// configured. Already-indexed courses are skipped.
			if docsDir := os.Getenv("COURSEAI_DOCS_DIR"); docsDir != "" {
				pipeline, pErr := ingestion.NewPipeline(emb, index, &ingestion.Config{
					ChunkSize:      getEnvInt("COURSEAI_CHUNK_SIZE", 0),
					ChunkOverlap:   getEnvInt("COURSEAI_CHUNK_OVERLAP", 0),
					EmbedBatchSize: getEnvInt("COURSEAI_EMBED_BATCH", 0),
				})
				if pErr != nil {
					return fmt.Errorf("serve: failed to create ingestion pipeline: %w", pErr)
				}
				stats, iErr := pipeline.IngestDir(ctx, docsDir, log)
				if iErr != nil {
					log.Warn("startup ingestion failed, serving existing index",
						slog.String("dir", docsDir), slog.Any("error", iErr))
				} else {
					log.Info("startup ingestion complete",
						slog.Int("courses_added", stats.CoursesAdded),
						slog.Int("chunks_added", stats.ChunksAdded),
						slog.Int("skipped", stats.Skipped),
					)
				}
			}

			searcher, err := buildSearcher(emb, index)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			registry := buildRegistry(searcher)

			historyStore, closeHistory := openHistory(log)
			defer closeHistory()

			courseAgent, err := agent.New(ctx, &agent.Config{
				ChatModel:    chatModel,
				Registry:     registry,
				History:      historyStore,
				HistoryDepth: getEnvInt("COURSEAI_HISTORY_DEPTH", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to initialise agent: %w", err)
			}

			pingers := []server.Pinger{
				server.NewLLMPinger(chatModel, providerName),
				server.NewQdrantPinger(index),
			}

			srv, err := server.New(courseAgent, index, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("COURSEAI_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
