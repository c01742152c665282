package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/courseai/courseai-go/internal/agent"
	"github.com/courseai/courseai-go/internal/embedder"
	"github.com/courseai/courseai-go/internal/logging"
	"github.com/courseai/courseai-go/internal/provider"
)

// NewAskCmd constructs the `courseai ask` command, which sends a single
// natural language question to the agent and prints the answer to stdout.
func NewAskCmd() *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the indexed course materials",
		Long: `Ask the courseai agent a natural language question.

The agent searches the indexed course content, resolves partial course
names, and answers strictly from what it finds. Use --sources to print
the lessons the answer drew from.

Examples:
  courseai ask "what is covered in lesson 4 of the MCP course?"
  courseai ask --sources "how does prompt caching work?"
  courseai ask "outline of Building Toward Computer Use"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			index, err := openIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer index.Close()

			searcher, err := buildSearcher(emb, index)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			courseAgent, err := agent.New(ctx, &agent.Config{
				ChatModel: chatModel,
				Registry:  buildRegistry(searcher),
			})
			if err != nil {
				return fmt.Errorf("ask: failed to initialise agent: %w", err)
			}

			answer, sources, err := courseAgent.Answer(ctx, args[0], "")
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(answer)

			if showSources && len(sources) > 0 {
				fmt.Println("\nSources:")
				for _, s := range sources {
					if s.URL != "" {
						fmt.Printf("  - %s (%s)\n", s.Label, s.URL)
					} else {
						fmt.Printf("  - %s\n", s.Label)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSources, "sources", false, "Print the lessons the answer drew from")

	return cmd
}
