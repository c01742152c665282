package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/courseai/courseai-go/internal/embedder"
	"github.com/courseai/courseai-go/internal/ingestion"
	"github.com/courseai/courseai-go/internal/logging"
)

// NewIngestCmd constructs the `courseai ingest` command, which parses course
// documents from a directory and indexes them into the Qdrant vector store.
func NewIngestCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index course documents into the vector store",
		Long: `Parse course documents from a directory and index them into Qdrant.

Each document is a plain text file with a course header (title, link,
instructor) followed by numbered lesson sections. Courses already present
in the index are skipped, so re-running ingest is safe.

Required environment variables:
  QDRANT_HOST                 Qdrant server hostname (default: localhost)
  QDRANT_PORT                 Qdrant gRPC port (default: 6334)
  QDRANT_CATALOG_COLLECTION   Course-directory collection (default: course-catalog)
  QDRANT_CONTENT_COLLECTION   Chunk-content collection (default: course-content)
  QDRANT_API_KEY              Optional API key for authenticated clusters
  MODEL_PROVIDER              Embedding backend: ollama, openai (default: ollama)
  EMBEDDING_*                 Provider-specific overrides (see README)

Chunking is tuned with COURSEAI_CHUNK_SIZE, COURSEAI_CHUNK_OVERLAP, and
COURSEAI_EMBED_BATCH.

Examples:
  courseai ingest --dir ./docs
  COURSEAI_CHUNK_SIZE=1200 courseai ingest --dir ./docs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if dir == "" {
				dir = getEnvOrDefault("COURSEAI_DOCS_DIR", "./docs")
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("backend", embedder.Backend()))

			index, err := openIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer index.Close()

			pipeline, err := ingestion.NewPipeline(emb, index, &ingestion.Config{
				ChunkSize:      getEnvInt("COURSEAI_CHUNK_SIZE", 0),
				ChunkOverlap:   getEnvInt("COURSEAI_CHUNK_OVERLAP", 0),
				EmbedBatchSize: getEnvInt("COURSEAI_EMBED_BATCH", 0),
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			log.Info("starting ingestion", slog.String("dir", dir))

			stats, err := pipeline.IngestDir(ctx, dir, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			log.Info("ingestion complete",
				slog.Int("courses_added", stats.CoursesAdded),
				slog.Int("chunks_added", stats.ChunksAdded),
				slog.Int("skipped", stats.Skipped),
				slog.Int("failed", stats.Failed),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory of course documents (default: COURSEAI_DOCS_DIR or ./docs)")

	return cmd
}
