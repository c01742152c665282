package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/courseai/courseai-go/internal/logging"
)

// NewCoursesCmd constructs the `courseai courses` command, which lists the
// titles of every course currently in the vector index.
func NewCoursesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List the indexed courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			index, err := openIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("courses: %w", err)
			}
			defer index.Close()

			titles, err := index.CourseTitles(ctx)
			if err != nil {
				return fmt.Errorf("courses: %w", err)
			}

			if len(titles) == 0 {
				fmt.Println("No courses indexed. Run 'courseai ingest --dir <docs>' first.")
				return nil
			}

			fmt.Printf("%d course(s) indexed:\n", len(titles))
			for _, t := range titles {
				fmt.Printf("  - %s\n", t)
			}
			return nil
		},
	}
}
